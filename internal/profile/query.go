package profile

import "slices"

// Overlap requires a facet field to share at least one element with Values.
type Overlap struct {
	Field  FacetField
	Values []string
}

// Query is the predicate a Repository evaluates. All clauses are combined with AND.
//
// The zero Status is treated as StatusApproved so a query can never widen
// visibility by accident.
type Query struct {
	Status Status

	// Category, when non-empty, must be contained in the profile's InterestedIn.
	Category string

	// Overlaps holds one entry per filtered facet, in a stable order.
	Overlaps []Overlap

	// ExcludeUserID drops profiles owned by this user.
	ExcludeUserID string
}

// EffectiveStatus returns the status the query filters on.
func (q Query) EffectiveStatus() Status {
	if q.Status == "" {
		return StatusApproved
	}
	return q.Status
}

// Matches evaluates the query against a single profile in memory.
// It mirrors the SQL produced by PostgresRepository.
func (q Query) Matches(p *Profile) bool {
	if p == nil {
		return false
	}
	if p.Status != q.EffectiveStatus() {
		return false
	}
	if q.Category != "" && !slices.Contains(p.InterestedIn, q.Category) {
		return false
	}
	for _, o := range q.Overlaps {
		if len(o.Values) == 0 {
			continue
		}
		if !overlaps(p.FacetValues(o.Field), o.Values) {
			return false
		}
	}
	if q.ExcludeUserID != "" && p.UserID == q.ExcludeUserID {
		return false
	}
	return true
}

func overlaps(have, want []string) bool {
	for _, v := range want {
		if slices.Contains(have, v) {
			return true
		}
	}
	return false
}
