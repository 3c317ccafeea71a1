package directory

import (
	"context"
	"sync"
)

// Searcher runs one search for a filter. *Engine implements it.
type Searcher interface {
	Search(ctx context.Context, f FilterState, viewer Viewer) Result
}

// CatalogProvider returns the current facet catalog. *CatalogService implements it.
type CatalogProvider interface {
	Get(ctx context.Context) (FacetCatalog, error)
}

// Session holds one caller's filter state and displayed results.
//
// Every Search is tagged with a monotonically increasing sequence number. A
// response whose number is not the latest issued is discarded, so the
// displayed result always belongs to the most recently requested filter.
type Session struct {
	searcher Searcher
	catalog  CatalogProvider
	viewer   Viewer
	metrics  *Metrics

	mu        sync.Mutex
	filter    FilterState
	issued    uint64
	completed uint64
	current   Result
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionViewer sets the identity searches run as.
func WithSessionViewer(v Viewer) SessionOption {
	return func(s *Session) { s.viewer = v }
}

// WithSessionMetrics counts discarded stale responses.
func WithSessionMetrics(m *Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// NewSession creates a session starting from DefaultFilterState.
func NewSession(searcher Searcher, catalog CatalogProvider, opts ...SessionOption) *Session {
	s := &Session{
		searcher: searcher,
		catalog:  catalog,
		filter:   DefaultFilterState(),
		current:  emptyResult(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFilter merges p into the current filter and returns the new state.
// Call Search afterwards to recompute results.
func (s *Session) SetFilter(p FilterPatch) FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = p.Apply(s.filter)
	return s.filter.Clone()
}

// Filter returns the current filter state.
func (s *Session) Filter() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Clone()
}

// Search runs the pipeline for the current filter. If another Search was
// issued while this one ran, the result is returned with Superseded set and
// the displayed result is left alone.
func (s *Session) Search(ctx context.Context) Result {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	filter := s.filter.Clone()
	viewer := s.viewer
	s.mu.Unlock()

	res := s.searcher.Search(ctx, filter, viewer)
	res.Loading = false

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued {
		s.metrics.IncSuperseded()
		res.Superseded = true
		return res
	}
	s.completed = seq
	s.current = res
	return res
}

// Current returns the displayed result. Loading is true while the latest
// issued search has not completed.
func (s *Session) Current() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.current
	res.Loading = s.completed != s.issued
	return res
}

// FacetCatalog returns the selectable facet values. On failure the lists are
// empty and the error is returned for display.
func (s *Session) FacetCatalog(ctx context.Context) (FacetCatalog, error) {
	if s.catalog == nil {
		return EmptyFacetCatalog(), nil
	}
	c, err := s.catalog.Get(ctx)
	if err != nil {
		return EmptyFacetCatalog(), err
	}
	return c, nil
}
