// Package directory implements the talent directory search pipeline:
// filter normalization, query compilation, free-text matching, completeness
// ranking and the facet catalog.
package directory

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/onnwee/talentdir/internal/profile"
	"github.com/onnwee/talentdir/internal/validate"
)

// CategoryAll is the sentinel category meaning "no category restriction".
const CategoryAll = "all"

// Default filter limits.
const (
	DefaultMaxSearchTermLength = 100
	DefaultMaxLanguages        = 15
	DefaultMaxExpertise        = 10
	DefaultMaxMemberships      = 10
)

// ErrInvalidFilter is the sentinel wrapped by every filter validation failure.
var ErrInvalidFilter = errors.New("invalid filter")

// Limits bounds the size of filter input.
type Limits struct {
	MaxSearchTermLength int
	MaxLanguages        int
	MaxExpertise        int
	MaxMemberships      int
}

// DefaultLimits returns the standard directory filter limits.
func DefaultLimits() Limits {
	return Limits{
		MaxSearchTermLength: DefaultMaxSearchTermLength,
		MaxLanguages:        DefaultMaxLanguages,
		MaxExpertise:        DefaultMaxExpertise,
		MaxMemberships:      DefaultMaxMemberships,
	}
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxSearchTermLength <= 0 {
		l.MaxSearchTermLength = d.MaxSearchTermLength
	}
	if l.MaxLanguages <= 0 {
		l.MaxLanguages = d.MaxLanguages
	}
	if l.MaxExpertise <= 0 {
		l.MaxExpertise = d.MaxExpertise
	}
	if l.MaxMemberships <= 0 {
		l.MaxMemberships = d.MaxMemberships
	}
	return l
}

// FilterState is the caller's current directory query. It is treated as an
// immutable value: use Apply to derive a new state.
type FilterState struct {
	Category         string   `json:"category"`
	SearchTerm       string   `json:"search_term"`
	Languages        []string `json:"languages"`
	AreasOfExpertise []string `json:"areas_of_expertise"`
	Memberships      []string `json:"memberships"`
}

// DefaultFilterState returns the unrestricted filter.
func DefaultFilterState() FilterState {
	return FilterState{
		Category:         CategoryAll,
		Languages:        []string{},
		AreasOfExpertise: []string{},
		Memberships:      []string{},
	}
}

// Clone returns a copy that shares no slices with f.
func (f FilterState) Clone() FilterState {
	f.Languages = slices.Clone(f.Languages)
	f.AreasOfExpertise = slices.Clone(f.AreasOfExpertise)
	f.Memberships = slices.Clone(f.Memberships)
	return f
}

// IsAllCategories reports whether the state places no category restriction.
func (f FilterState) IsAllCategories() bool {
	return f.Category == "" || f.Category == CategoryAll
}

// FilterPatch is a partial FilterState. Nil fields leave the current value
// unchanged; a non-nil field replaces it (an empty slice clears a facet).
type FilterPatch struct {
	Category         *string
	SearchTerm       *string
	Languages        *[]string
	AreasOfExpertise *[]string
	Memberships      *[]string
}

// Apply merges p into f and returns the new state. f is not modified.
func (p FilterPatch) Apply(f FilterState) FilterState {
	next := f.Clone()
	if p.Category != nil {
		next.Category = *p.Category
	}
	if p.SearchTerm != nil {
		next.SearchTerm = *p.SearchTerm
	}
	if p.Languages != nil {
		next.Languages = slices.Clone(*p.Languages)
	}
	if p.AreasOfExpertise != nil {
		next.AreasOfExpertise = slices.Clone(*p.AreasOfExpertise)
	}
	if p.Memberships != nil {
		next.Memberships = slices.Clone(*p.Memberships)
	}
	return next
}

// FieldError is a validation failure for one filter field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ValidationError collects every field that failed validation.
// errors.Is(err, ErrInvalidFilter) holds for any ValidationError.
type ValidationError struct {
	Fields []*FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidFilter, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields)+1)
	errs = append(errs, ErrInvalidFilter)
	for _, f := range e.Fields {
		errs = append(errs, f)
	}
	return errs
}

// FieldNames returns the names of the failing fields, in check order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return names
}

// Normalizer sanitizes and validates filter input.
type Normalizer struct {
	limits Limits
}

// NewNormalizer creates a Normalizer. Zero limits take their defaults.
func NewNormalizer(limits Limits) *Normalizer {
	return &Normalizer{limits: limits.withDefaults()}
}

// Limits returns the effective limits.
func (n *Normalizer) Limits() Limits {
	return n.limits
}

// Sanitize applies the unconditional cleanup: markup characters are stripped
// from the search term, facet values are trimmed and blanks dropped, and an
// empty category becomes CategoryAll.
func Sanitize(f FilterState) FilterState {
	out := FilterState{
		Category:         strings.TrimSpace(f.Category),
		SearchTerm:       validate.StripMarkup(f.SearchTerm),
		Languages:        validate.CleanValues(f.Languages),
		AreasOfExpertise: validate.CleanValues(f.AreasOfExpertise),
		Memberships:      validate.CleanValues(f.Memberships),
	}
	if out.Category == "" {
		out.Category = CategoryAll
	}
	return out
}

// Normalize sanitizes f and validates it against the limits.
//
// The returned state is always usable. When validation fails the error is a
// *ValidationError and the state holds the sanitized but unvalidated values,
// so the caller can still search with them.
func (n *Normalizer) Normalize(f FilterState) (FilterState, error) {
	clean := Sanitize(f)

	var fields []*FieldError
	if clean.Category != CategoryAll && !profile.IsCategory(clean.Category) {
		fields = append(fields, &FieldError{
			Field: "category",
			Err:   fmt.Errorf("unknown category %q", clean.Category),
		})
	}
	if _, err := validate.SearchTerm(clean.SearchTerm, n.limits.MaxSearchTermLength); err != nil {
		fields = append(fields, &FieldError{Field: "search_term", Err: err})
	}
	if err := validate.Selection(clean.Languages, n.limits.MaxLanguages); err != nil {
		fields = append(fields, &FieldError{Field: "languages", Err: err})
	}
	if err := validate.Selection(clean.AreasOfExpertise, n.limits.MaxExpertise); err != nil {
		fields = append(fields, &FieldError{Field: "areas_of_expertise", Err: err})
	}
	if err := validate.Selection(clean.Memberships, n.limits.MaxMemberships); err != nil {
		fields = append(fields, &FieldError{Field: "memberships", Err: err})
	}

	if len(fields) > 0 {
		return clean, &ValidationError{Fields: fields}
	}
	return clean, nil
}
