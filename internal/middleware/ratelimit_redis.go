package middleware

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces rate limit counters in a shared Redis.
const redisKeyPrefix = "talentdir:ratelimit:"

// RedisRateLimitStore implements RateLimitStore with a fixed window counter
// kept in Redis, so limits hold across API replicas.
//
// Any Redis error fails open: the request is allowed with a full quota and
// the error is counted.
type RedisRateLimitStore struct {
	client  *redis.Client
	metrics *Metrics
	logger  *slog.Logger
}

// RedisStoreOption configures a RedisRateLimitStore.
type RedisStoreOption func(*RedisRateLimitStore)

// WithRedisMetrics records fail-open events on m.
func WithRedisMetrics(m *Metrics) RedisStoreOption {
	return func(s *RedisRateLimitStore) {
		s.metrics = m
	}
}

// WithRedisLogger sets the logger used for fail-open warnings.
func WithRedisLogger(l *slog.Logger) RedisStoreOption {
	return func(s *RedisRateLimitStore) {
		s.logger = l
	}
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client, opts ...RedisStoreOption) *RedisRateLimitStore {
	s := &RedisRateLimitStore{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow increments the window counter for key and reports whether the request fits.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int, int) {
	redisKey := redisKeyPrefix + key

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return s.failOpen(err, config)
	}

	count := int(incr.Val())
	remainingTTL := ttl.Val()

	// A fresh key, or one whose expiry was lost, starts a new window.
	if count == 1 || remainingTTL < 0 {
		if err := s.client.PExpire(ctx, redisKey, config.WindowDuration).Err(); err != nil {
			return s.failOpen(err, config)
		}
		remainingTTL = config.WindowDuration
	}

	if count > config.RequestsPerWindow {
		return false, 0, retryAfterSeconds(remainingTTL)
	}
	return true, config.RequestsPerWindow - count, 0
}

func (s *RedisRateLimitStore) failOpen(err error, config RateLimitConfig) (bool, int, int) {
	if s.metrics != nil {
		s.metrics.IncRateLimitRedisErrors()
	}
	s.logger.Warn("rate limit store unavailable, allowing request",
		slog.String("error", err.Error()))
	return true, config.RequestsPerWindow, 0
}
