package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisChecker checks the Redis instance backing the facet catalog cache
// and the shared rate limiter.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{
		client: client,
	}
}

// Name identifies the dependency in readiness responses.
func (r *RedisChecker) Name() string {
	return "redis"
}

// HealthCheck sends a PING.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
