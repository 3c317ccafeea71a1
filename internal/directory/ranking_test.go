package directory

import (
	"testing"

	"github.com/onnwee/talentdir/internal/profile"
)

func TestCompletenessScore(t *testing.T) {
	s := profile.String

	tests := []struct {
		name    string
		profile *profile.Profile
		want    int
	}{
		{"nil profile", nil, 0},
		{"empty profile", &profile.Profile{}, 0},
		{
			name: "blank strings and empty arrays do not count",
			profile: &profile.Profile{
				Name:      s("   "),
				JobTitle:  s(""),
				Languages: []string{},
			},
			want: 0,
		},
		{
			name: "fully populated",
			profile: &profile.Profile{
				Name:             s("Ada"),
				JobTitle:         s("Engineer"),
				CompanyName:      s("Analytical Engines"),
				Nationality:      s("British"),
				ShortBio:         s("short"),
				LongBio:          s("long"),
				ProfilePicture:   s("profile-pictures/ada.jpg"),
				AreasOfExpertise: []string{"Math"},
				Languages:        []string{"English"},
				Keywords:         []string{"poetry"},
				Memberships:      []string{"RS"},
			},
			want: MaxCompletenessScore,
		},
		{
			name: "untracked fields are ignored",
			profile: &profile.Profile{
				Email:        s("a@example.com"),
				Phone:        s("+1"),
				SocialLinks:  map[string]string{"x": "y"},
				InterestedIn: []string{profile.CategorySpeaker},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompletenessScore(tt.profile); got != tt.want {
				t.Errorf("CompletenessScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func withScore(id string, n int) *profile.Profile {
	p := &profile.Profile{ID: id}
	fields := []**string{&p.Name, &p.JobTitle, &p.CompanyName, &p.Nationality, &p.ShortBio, &p.LongBio, &p.ProfilePicture}
	for i := 0; i < n && i < len(fields); i++ {
		*fields[i] = profile.String("x")
	}
	if n > 7 {
		p.Languages = []string{"English"}
	}
	return p
}

func TestRankByCompleteness(t *testing.T) {
	t.Run("more complete first regardless of input order", func(t *testing.T) {
		a := withScore("a", 8)
		b := withScore("b", 3)

		got := RankByCompleteness([]*profile.Profile{b, a})
		if got[0].ID != "a" || got[1].ID != "b" {
			t.Errorf("expected [a b], got [%s %s]", got[0].ID, got[1].ID)
		}
		if CompletenessScore(a) != 8 || CompletenessScore(b) != 3 {
			t.Fatalf("fixture scores wrong: %d, %d", CompletenessScore(a), CompletenessScore(b))
		}
	})

	t.Run("equal scores keep input order", func(t *testing.T) {
		in := []*profile.Profile{
			withScore("low", 1),
			withScore("tie1", 5),
			withScore("tie2", 5),
			withScore("high", 7),
			withScore("tie3", 5),
		}
		got := RankByCompleteness(in)
		want := []string{"high", "tie1", "tie2", "tie3", "low"}
		for i, id := range want {
			if got[i].ID != id {
				t.Fatalf("position %d = %s, want %s", i, got[i].ID, id)
			}
		}
	})

	t.Run("input slice untouched", func(t *testing.T) {
		in := []*profile.Profile{withScore("b", 1), withScore("a", 2)}
		_ = RankByCompleteness(in)
		if in[0].ID != "b" {
			t.Error("input slice was reordered in place")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		got := RankByCompleteness(nil)
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", got)
		}
	})
}
