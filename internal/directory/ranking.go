package directory

import (
	"cmp"
	"slices"
	"strings"

	"github.com/onnwee/talentdir/internal/profile"
)

// CompletenessScore counts the populated profile-strength fields of p:
// name, job title, company name, nationality, short bio, long bio, profile
// picture, areas of expertise, languages, keywords and memberships.
//
// Strings count when non-blank after trimming; arrays when non-empty.
// All fields weigh the same.
func CompletenessScore(p *profile.Profile) int {
	if p == nil {
		return 0
	}

	score := 0
	for _, s := range []*string{
		p.Name,
		p.JobTitle,
		p.CompanyName,
		p.Nationality,
		p.ShortBio,
		p.LongBio,
		p.ProfilePicture,
	} {
		if s != nil && strings.TrimSpace(*s) != "" {
			score++
		}
	}
	for _, values := range [][]string{
		p.AreasOfExpertise,
		p.Languages,
		p.Keywords,
		p.Memberships,
	} {
		if len(values) > 0 {
			score++
		}
	}
	return score
}

// MaxCompletenessScore is the score of a fully populated profile.
const MaxCompletenessScore = 11

// RankByCompleteness returns a copy of profiles sorted by descending
// completeness. Equal scores keep their input order.
func RankByCompleteness(profiles []*profile.Profile) []*profile.Profile {
	type scored struct {
		p     *profile.Profile
		score int
	}

	items := make([]scored, len(profiles))
	for i, p := range profiles {
		items[i] = scored{p: p, score: CompletenessScore(p)}
	}

	slices.SortStableFunc(items, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	out := make([]*profile.Profile, len(items))
	for i, it := range items {
		out[i] = it.p
	}
	return out
}
