package directory

import (
	"strings"

	"github.com/onnwee/talentdir/internal/profile"
)

// TextMatcher is a case-insensitive substring predicate across a profile's
// text fields and the elements of its keyword, expertise and membership arrays.
type TextMatcher struct {
	term string
}

// NewTextMatcher creates a matcher for term. The term is trimmed and
// lowercased; an empty term matches everything.
func NewTextMatcher(term string) *TextMatcher {
	return &TextMatcher{term: strings.ToLower(strings.TrimSpace(term))}
}

// Term returns the normalized search term.
func (m *TextMatcher) Term() string {
	return m.term
}

// Empty reports whether the matcher accepts every profile.
func (m *TextMatcher) Empty() bool {
	return m.term == ""
}

// Match reports whether p passes the matcher. A nil profile never matches.
func (m *TextMatcher) Match(p *profile.Profile) bool {
	if p == nil {
		return false
	}
	if m.term == "" {
		return true
	}

	for _, field := range []*string{p.Name, p.JobTitle, p.CompanyName, p.ShortBio, p.LongBio} {
		if m.contains(field) {
			return true
		}
	}
	for _, values := range [][]string{p.Keywords, p.AreasOfExpertise, p.Memberships} {
		for _, v := range values {
			if strings.Contains(strings.ToLower(v), m.term) {
				return true
			}
		}
	}
	return false
}

func (m *TextMatcher) contains(field *string) bool {
	return field != nil && strings.Contains(strings.ToLower(*field), m.term)
}

// Filter returns the profiles that match, preserving order. Nil entries are
// dropped. The result is never nil.
func (m *TextMatcher) Filter(profiles []*profile.Profile) []*profile.Profile {
	out := make([]*profile.Profile, 0, len(profiles))
	for _, p := range profiles {
		if m.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
