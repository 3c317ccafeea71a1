package directory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/onnwee/talentdir/internal/profile"
)

// failingStore fails every operation with err.
type failingStore struct {
	err error
}

func (s failingStore) Query(context.Context, profile.Query) ([]*profile.Profile, error) {
	return nil, s.err
}

func (s failingStore) FacetProjection(context.Context) ([]profile.FacetProjection, error) {
	return nil, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRepo(t *testing.T, profiles ...*profile.Profile) *profile.InMemoryRepository {
	t.Helper()
	repo := profile.NewInMemoryRepository()
	for _, p := range profiles {
		if p.Status == "" {
			p.Status = profile.StatusApproved
		}
		if err := repo.Insert(context.Background(), p); err != nil {
			t.Fatalf("Insert(%s) failed: %v", p.ID, err)
		}
	}
	return repo
}

func newTestEngine(store ProfileSource) (*Engine, *Metrics) {
	m := NewMetrics()
	return NewEngine(store, EngineConfig{Logger: discardLogger(), Metrics: m}), m
}

func resultIDs(r Result) []string {
	ids := make([]string, len(r.Results))
	for i, p := range r.Results {
		ids[i] = p.ID
	}
	return ids
}

func sameIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[string]int)
	for _, id := range got {
		seen[id]++
	}
	for _, id := range want {
		seen[id]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}

func TestEngine_FacetOverlapWithinAndAcross(t *testing.T) {
	repo := newTestRepo(t,
		&profile.Profile{ID: "r1", Languages: []string{"English"}, AreasOfExpertise: []string{"AI"}},
		&profile.Profile{ID: "r2", Languages: []string{"Spanish"}, AreasOfExpertise: []string{"Law"}},
		&profile.Profile{ID: "r3", Languages: []string{"French"}, AreasOfExpertise: []string{"AI"}},
	)
	engine, _ := newTestEngine(repo)
	ctx := context.Background()

	res := engine.Search(ctx, FilterState{Languages: []string{"English", "Spanish"}}, Viewer{})
	if !sameIDs(resultIDs(res), []string{"r1", "r2"}) {
		t.Errorf("OR within facet: got %v, want {r1 r2}", resultIDs(res))
	}

	res = engine.Search(ctx, FilterState{
		Languages:        []string{"English", "Spanish"},
		AreasOfExpertise: []string{"AI"},
	}, Viewer{})
	if !sameIDs(resultIDs(res), []string{"r1"}) {
		t.Errorf("AND across facets: got %v, want {r1}", resultIDs(res))
	}
}

func TestEngine_EmptyFacetIsNoRestriction(t *testing.T) {
	repo := newTestRepo(t,
		&profile.Profile{ID: "r1", Languages: []string{"English"}},
		&profile.Profile{ID: "r2", Languages: nil},
		&profile.Profile{ID: "r3", Languages: []string{}},
	)
	engine, _ := newTestEngine(repo)

	res := engine.Search(context.Background(), FilterState{Languages: []string{}}, Viewer{})
	if !sameIDs(resultIDs(res), []string{"r1", "r2", "r3"}) {
		t.Errorf("got %v, want all three", resultIDs(res))
	}
}

func TestEngine_TextSearchCaseInsensitive(t *testing.T) {
	repo := newTestRepo(t,
		&profile.Profile{ID: "ds", ShortBio: profile.String("Loves Data Science")},
		&profile.Profile{ID: "other", ShortBio: profile.String("Gardening")},
	)
	engine, _ := newTestEngine(repo)

	for _, term := range []string{"data science", "DATA"} {
		res := engine.Search(context.Background(), FilterState{SearchTerm: term}, Viewer{})
		if !sameIDs(resultIDs(res), []string{"ds"}) {
			t.Errorf("term %q: got %v, want [ds]", term, resultIDs(res))
		}
	}
}

func TestEngine_RanksByCompleteness(t *testing.T) {
	repo := newTestRepo(t,
		withScore("sparse", 3),
		withScore("tie-a", 5),
		withScore("rich", 8),
		withScore("tie-b", 5),
	)
	engine, _ := newTestEngine(repo)

	res := engine.Search(context.Background(), DefaultFilterState(), Viewer{})
	want := []string{"rich", "tie-a", "tie-b", "sparse"}
	got := resultIDs(res)
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestEngine_StatusInvariant(t *testing.T) {
	repo := newTestRepo(t,
		&profile.Profile{ID: "approved", Languages: []string{"English"}, Name: profile.String("Match")},
		&profile.Profile{ID: "pending", Status: profile.StatusPending, Languages: []string{"English"}, Name: profile.String("Match")},
		&profile.Profile{ID: "rejected", Status: profile.StatusRejected, Languages: []string{"English"}, Name: profile.String("Match")},
	)
	engine, _ := newTestEngine(repo)

	filters := []FilterState{
		DefaultFilterState(),
		{Languages: []string{"English"}},
		{SearchTerm: "match"},
		{SearchTerm: strings.Repeat("m", 150)},
	}
	for _, f := range filters {
		res := engine.Search(context.Background(), f, Viewer{})
		for _, p := range res.Results {
			if p.Status != profile.StatusApproved {
				t.Errorf("filter %+v returned %s profile %s", f, p.Status, p.ID)
			}
		}
	}
}

func TestEngine_ValidationFallback(t *testing.T) {
	long := strings.Repeat("a", 101)
	repo := newTestRepo(t,
		&profile.Profile{ID: "hit", LongBio: profile.String("<" + long + ">")},
		&profile.Profile{ID: "miss", LongBio: profile.String("short")},
	)
	engine, m := newTestEngine(repo)

	res := engine.Search(context.Background(), FilterState{SearchTerm: "<" + long + ">"}, Viewer{})

	if res.Error {
		t.Fatal("validation failure must not set the error flag")
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "search_term") {
		t.Errorf("expected a search_term warning, got %v", res.Warnings)
	}
	if res.Filter.SearchTerm != long {
		t.Errorf("fallback should use the sanitized raw term, got %d chars", len(res.Filter.SearchTerm))
	}
	if !sameIDs(resultIDs(res), []string{"hit"}) {
		t.Errorf("got %v, want [hit]", resultIDs(res))
	}
	if got := testutil.ToFloat64(m.validationFailures.WithLabelValues("search_term")); got != 1 {
		t.Errorf("validation failure counter = %f, want 1", got)
	}
}

func TestEngine_EmptyPopulation(t *testing.T) {
	engine, _ := newTestEngine(profile.NewInMemoryRepository())

	res := engine.Search(context.Background(), DefaultFilterState(), Viewer{})
	if res.Results == nil || len(res.Results) != 0 {
		t.Errorf("expected empty non-nil results, got %#v", res.Results)
	}
	if res.Loading || res.Error {
		t.Errorf("expected loading=false error=false, got %+v", res)
	}
}

func TestEngine_StoreFailure(t *testing.T) {
	engine, m := newTestEngine(failingStore{err: errors.New("connection refused")})

	res := engine.Search(context.Background(), FilterState{Languages: []string{"English"}}, Viewer{})
	if !res.Error {
		t.Error("expected error flag on store failure")
	}
	if res.Results == nil || len(res.Results) != 0 {
		t.Errorf("expected empty non-nil results, got %#v", res.Results)
	}
	if got := testutil.ToFloat64(m.storeErrors.WithLabelValues(OperationQuery)); got != 1 {
		t.Errorf("store error counter = %f, want 1", got)
	}
}

func TestEngine_ExcludeSelf(t *testing.T) {
	repo := newTestRepo(t,
		&profile.Profile{ID: "mine", UserID: "u1"},
		&profile.Profile{ID: "theirs", UserID: "u2"},
	)
	engine, _ := newTestEngine(repo)
	ctx := context.Background()

	res := engine.Search(ctx, DefaultFilterState(), Viewer{UserID: "u1", ExcludeSelf: true})
	if !sameIDs(resultIDs(res), []string{"theirs"}) {
		t.Errorf("got %v, want [theirs]", resultIDs(res))
	}

	res = engine.Search(ctx, DefaultFilterState(), Viewer{UserID: "u1"})
	if !sameIDs(resultIDs(res), []string{"mine", "theirs"}) {
		t.Errorf("got %v, want both", resultIDs(res))
	}
}

func TestEngine_CategoryContainment(t *testing.T) {
	repo := newTestRepo(t,
		&profile.Profile{ID: "speaker", InterestedIn: []string{profile.CategorySpeaker}},
		&profile.Profile{ID: "both", InterestedIn: []string{profile.CategorySpeaker, profile.CategoryBoardMember}},
		&profile.Profile{ID: "none"},
	)
	engine, _ := newTestEngine(repo)

	res := engine.Search(context.Background(), FilterState{Category: profile.CategoryBoardMember}, Viewer{})
	if !sameIDs(resultIDs(res), []string{"both"}) {
		t.Errorf("got %v, want [both]", resultIDs(res))
	}

	res = engine.Search(context.Background(), FilterState{Category: CategoryAll}, Viewer{})
	if len(res.Results) != 3 {
		t.Errorf("all categories: got %v", resultIDs(res))
	}
}
