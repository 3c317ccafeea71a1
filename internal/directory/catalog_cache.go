package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCatalogCacheKey is the Redis key the facet catalog is stored under.
const DefaultCatalogCacheKey = "talentdir:facet_catalog"

// DefaultCatalogCacheTTL bounds how long a cached catalog is served.
const DefaultCatalogCacheTTL = 5 * time.Minute

// ErrCacheMiss is returned by a CatalogCache holding no catalog.
var ErrCacheMiss = errors.New("facet catalog not cached")

// CatalogCache shares a built catalog between API instances.
type CatalogCache interface {
	Get(ctx context.Context) (FacetCatalog, error)
	Set(ctx context.Context, c FacetCatalog) error
	Invalidate(ctx context.Context) error
}

// RedisCatalogCache stores the facet catalog as JSON in Redis.
type RedisCatalogCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCatalogCache creates a Redis-backed catalog cache.
// An empty key or zero ttl take their defaults.
func NewRedisCatalogCache(client *redis.Client, key string, ttl time.Duration) *RedisCatalogCache {
	if key == "" {
		key = DefaultCatalogCacheKey
	}
	if ttl <= 0 {
		ttl = DefaultCatalogCacheTTL
	}
	return &RedisCatalogCache{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

// Get returns the cached catalog or ErrCacheMiss.
func (c *RedisCatalogCache) Get(ctx context.Context) (FacetCatalog, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return FacetCatalog{}, ErrCacheMiss
	}
	if err != nil {
		return FacetCatalog{}, fmt.Errorf("failed to read facet catalog: %w", err)
	}

	var catalog FacetCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return FacetCatalog{}, fmt.Errorf("failed to decode facet catalog: %w", err)
	}
	return EmptyFacetCatalog().merge(catalog), nil
}

// Set stores c with the cache TTL.
func (c *RedisCatalogCache) Set(ctx context.Context, catalog FacetCatalog) error {
	data, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("failed to encode facet catalog: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write facet catalog: %w", err)
	}
	return nil
}

// Invalidate removes the cached catalog.
func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate facet catalog: %w", err)
	}
	return nil
}

// merge overlays src onto c, keeping c's empty lists where src has nil.
func (c FacetCatalog) merge(src FacetCatalog) FacetCatalog {
	if src.Languages != nil {
		c.Languages = src.Languages
	}
	if src.AreasOfExpertise != nil {
		c.AreasOfExpertise = src.AreasOfExpertise
	}
	if src.Memberships != nil {
		c.Memberships = src.Memberships
	}
	c.BuiltAt = src.BuiltAt
	return c
}
