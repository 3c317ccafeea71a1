package directory

import (
	"slices"
	"time"

	"github.com/onnwee/talentdir/internal/profile"
)

// FacetCatalog lists the selectable values for each facet, drawn from the
// approved profile population.
type FacetCatalog struct {
	Languages        []string  `json:"languages"`
	AreasOfExpertise []string  `json:"areas_of_expertise"`
	Memberships      []string  `json:"memberships"`
	BuiltAt          time.Time `json:"built_at"`
}

// EmptyFacetCatalog returns a catalog with empty, non-nil lists.
func EmptyFacetCatalog() FacetCatalog {
	return FacetCatalog{
		Languages:        []string{},
		AreasOfExpertise: []string{},
		Memberships:      []string{},
	}
}

// Clone returns a copy sharing no slices with c.
func (c FacetCatalog) Clone() FacetCatalog {
	c.Languages = cloneNonNil(c.Languages)
	c.AreasOfExpertise = cloneNonNil(c.AreasOfExpertise)
	c.Memberships = cloneNonNil(c.Memberships)
	return c
}

// Values returns the catalog list for a facet field.
func (c FacetCatalog) Values(field profile.FacetField) []string {
	switch field {
	case profile.FacetLanguages:
		return c.Languages
	case profile.FacetAreasOfExpertise:
		return c.AreasOfExpertise
	case profile.FacetMemberships:
		return c.Memberships
	default:
		return nil
	}
}

// BuildFacetCatalog collects the distinct values of each facet across rows.
// Deduplication is by exact string equality; lists are sorted lexically.
// Nil arrays contribute nothing.
func BuildFacetCatalog(rows []profile.FacetProjection) FacetCatalog {
	var languages, expertise, memberships []string
	for _, row := range rows {
		languages = append(languages, row.Languages...)
		expertise = append(expertise, row.AreasOfExpertise...)
		memberships = append(memberships, row.Memberships...)
	}
	return FacetCatalog{
		Languages:        sortedDistinct(languages),
		AreasOfExpertise: sortedDistinct(expertise),
		Memberships:      sortedDistinct(memberships),
	}
}

func sortedDistinct(values []string) []string {
	out := cloneNonNil(values)
	slices.Sort(out)
	return slices.Compact(out)
}

func cloneNonNil(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}
