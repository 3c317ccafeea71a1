package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/talentdir/internal/profile"
	"github.com/onnwee/talentdir/internal/tracing"
)

// DefaultCatalogSyncInterval is how long an instance serves its in-memory
// catalog before checking the shared cache again.
const DefaultCatalogSyncInterval = 30 * time.Second

// FacetSource is the read side of the record store used to build catalogs.
type FacetSource interface {
	FacetProjection(ctx context.Context) ([]profile.FacetProjection, error)
}

// CatalogServiceConfig configures a CatalogService.
type CatalogServiceConfig struct {
	Logger  *slog.Logger
	Metrics *Metrics

	// Cache is optional. When set, builds are shared through it and the
	// cached copy wins over the local one.
	Cache CatalogCache
	// SyncInterval bounds how stale the local copy may get relative to Cache.
	SyncInterval time.Duration
}

// CatalogService builds the facet catalog and keeps the latest copy.
type CatalogService struct {
	source    FacetSource
	logger    *slog.Logger
	metrics   *Metrics
	cache     CatalogCache
	syncEvery time.Duration
	timeNow   func() time.Time

	mu       sync.RWMutex
	current  *FacetCatalog
	syncedAt time.Time
}

// NewCatalogService creates a CatalogService reading from source.
func NewCatalogService(source FacetSource, cfg CatalogServiceConfig) *CatalogService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultCatalogSyncInterval
	}
	return &CatalogService{
		source:    source,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		cache:     cfg.Cache,
		syncEvery: cfg.SyncInterval,
		timeNow:   time.Now,
	}
}

// Get returns the current catalog, building it on first use.
//
// With a shared cache, the local copy is served for at most the sync
// interval. After that the cached build replaces it, and a cache miss
// (another instance invalidated it) triggers a rebuild from the store.
// On a failed first build it returns an empty catalog and the error.
func (s *CatalogService) Get(ctx context.Context) (FacetCatalog, error) {
	s.mu.RLock()
	current, syncedAt := s.current, s.syncedAt
	s.mu.RUnlock()
	if current != nil && (s.cache == nil || s.timeNow().Sub(syncedAt) < s.syncEvery) {
		return current.Clone(), nil
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		switch {
		case err == nil:
			s.store(cached)
			return cached.Clone(), nil
		case errors.Is(err, ErrCacheMiss):
		default:
			s.logger.Warn("facet catalog cache read failed", slog.String("error", err.Error()))
			if current != nil {
				s.store(*current)
				return current.Clone(), nil
			}
		}
	}

	catalog, err := s.Refresh(ctx)
	if err != nil && current != nil {
		// Keep serving the old copy and wait a full interval before retrying.
		s.store(*current)
		return current.Clone(), nil
	}
	return catalog, err
}

// Refresh rebuilds the catalog from the store. The previous catalog is kept
// when the rebuild fails.
func (s *CatalogService) Refresh(ctx context.Context) (_ FacetCatalog, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "directory.facet_catalog.refresh")
	defer func() { endSpan(err) }()

	rows, err := s.source.FacetProjection(ctx)
	if err != nil {
		s.metrics.IncStoreErrors(OperationFacetProjection)
		s.logger.Error("facet projection query failed", slog.String("error", err.Error()))
		return EmptyFacetCatalog(), fmt.Errorf("failed to build facet catalog: %w", err)
	}

	catalog := BuildFacetCatalog(rows)
	catalog.BuiltAt = s.timeNow().UTC()
	s.store(catalog)

	if s.cache != nil {
		if err := s.cache.Set(ctx, catalog); err != nil {
			s.logger.Warn("facet catalog cache write failed", slog.String("error", err.Error()))
		}
	}

	s.logger.Debug("facet catalog rebuilt",
		slog.Int("profiles", len(rows)),
		slog.Int("languages", len(catalog.Languages)),
		slog.Int("areas_of_expertise", len(catalog.AreasOfExpertise)),
		slog.Int("memberships", len(catalog.Memberships)))
	return catalog.Clone(), nil
}

// Invalidate drops the in-memory and cached catalog so the next Get rebuilds.
func (s *CatalogService) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if s.cache != nil {
		return s.cache.Invalidate(ctx)
	}
	return nil
}

func (s *CatalogService) store(c FacetCatalog) {
	c = c.Clone()
	s.mu.Lock()
	s.current = &c
	s.syncedAt = s.timeNow()
	s.mu.Unlock()
}
