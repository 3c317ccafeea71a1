package directory

import "github.com/onnwee/talentdir/internal/profile"

// Compile translates a normalized filter into the store predicate and the
// residual free-text predicate the store cannot express.
//
// The store predicate always restricts to approved profiles. Facets with an
// empty selection are omitted, so they place no restriction.
func Compile(f FilterState) (profile.Query, *TextMatcher) {
	q := profile.Query{Status: profile.StatusApproved}

	if !f.IsAllCategories() {
		q.Category = f.Category
	}

	facets := []struct {
		field  profile.FacetField
		values []string
	}{
		{profile.FacetLanguages, f.Languages},
		{profile.FacetAreasOfExpertise, f.AreasOfExpertise},
		{profile.FacetMemberships, f.Memberships},
	}
	for _, facet := range facets {
		if len(facet.values) == 0 {
			continue
		}
		q.Overlaps = append(q.Overlaps, profile.Overlap{
			Field:  facet.field,
			Values: facet.values,
		})
	}

	return q, NewTextMatcher(f.SearchTerm)
}

// WithViewer applies the viewer's self-exclusion to q.
func WithViewer(q profile.Query, v Viewer) profile.Query {
	if v.ExcludeSelf && v.UserID != "" {
		q.ExcludeUserID = v.UserID
	}
	return q
}
