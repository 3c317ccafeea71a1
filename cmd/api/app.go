package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/talentdir/internal/api"
	"github.com/onnwee/talentdir/internal/auth"
	"github.com/onnwee/talentdir/internal/blob"
	"github.com/onnwee/talentdir/internal/config"
	"github.com/onnwee/talentdir/internal/directory"
	"github.com/onnwee/talentdir/internal/health"
	"github.com/onnwee/talentdir/internal/jobs"
	"github.com/onnwee/talentdir/internal/middleware"
	"github.com/onnwee/talentdir/internal/profile"
)

// connectTimeout bounds the startup ping of each backing service.
const connectTimeout = 5 * time.Second

// rateLimitCleanupInterval is how often expired in-memory buckets are dropped.
const rateLimitCleanupInterval = time.Minute

// corsMaxAge is how long browsers may cache a preflight, in seconds.
const corsMaxAge = 600

// profileStore is what the server needs from the record store.
type profileStore interface {
	directory.ProfileSource
	directory.FacetSource
}

// app holds the wired server components.
type app struct {
	logger     *slog.Logger
	handler    http.Handler
	refreshJob *directory.RefreshJob
	memLimits  *middleware.InMemoryRateLimitStore
	closers    []func() error
	stopTasks  context.CancelFunc
}

// newApp connects backing services and builds the HTTP handler.
// Postgres and Redis are optional; without them the server runs on an
// in-memory store and per-process rate limits.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	directoryMetrics := directory.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	httpMetrics := middleware.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		directoryMetrics.Register,
		jobMetrics.Register,
		httpMetrics.Register,
	} {
		if err := register(reg); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	var checkers []api.HealthChecker

	store, dbChecker, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if dbChecker != nil {
		checkers = append(checkers, dbChecker)
	}

	catalogConfig := directory.CatalogServiceConfig{
		Logger:  logger,
		Metrics: directoryMetrics,
	}
	var limitStore middleware.RateLimitStore
	if cfg.RedisURL != "" {
		client, err := a.openRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		checkers = append(checkers, health.NewRedisChecker(client))
		catalogConfig.Cache = directory.NewRedisCatalogCache(client, directory.DefaultCatalogCacheKey, cfg.CatalogCacheTTL)
		limitStore = middleware.NewRedisRateLimitStore(client,
			middleware.WithRedisMetrics(httpMetrics),
			middleware.WithRedisLogger(logger))
	} else {
		a.memLimits = middleware.NewInMemoryRateLimitStore()
		limitStore = a.memLimits
	}

	var signer api.PictureSigner
	if cfg.R2Configured() {
		svc, err := blob.NewService(blob.ServiceConfig{
			BucketName:      cfg.R2BucketName,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Endpoint:        cfg.R2Endpoint,
			URLExpiry:       cfg.R2URLExpiry,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
		}
		signer = svc
	} else {
		logger.Info("R2 not configured, profile picture keys will not be resolved")
	}

	engine := directory.NewEngine(store, directory.EngineConfig{
		Limits: directory.Limits{
			MaxSearchTermLength: cfg.MaxSearchTermLength,
			MaxLanguages:        cfg.MaxLanguages,
			MaxExpertise:        cfg.MaxExpertise,
			MaxMemberships:      cfg.MaxMemberships,
		},
		Logger:  logger,
		Metrics: directoryMetrics,
	})
	catalog := directory.NewCatalogService(store, catalogConfig)
	a.refreshJob = directory.NewRefreshJob(directory.RefreshJobConfig{
		Interval:   cfg.FacetRefreshInterval,
		Logger:     logger,
		JobMetrics: jobMetrics,
	}, catalog)

	jwtService := auth.NewJWTService(auth.Config{
		Secret:         cfg.JWTSecret,
		PreviousSecret: cfg.JWTPreviousSecret,
		Leeway:         cfg.JWTLeeway,
	})

	searchLimit := middleware.DefaultSearchLimit()
	searchLimit.RequestsPerWindow = cfg.SearchRateLimit
	searchLimit.WindowDuration = cfg.SearchRateWindow
	mux := api.NewRouter(api.RouterConfig{
		Search:        api.NewSearchHandlers(engine, signer, logger),
		Facets:        api.NewFacetHandlers(catalog, logger),
		Health:        api.NewHealthHandlers(api.HealthHandlersConfig{Checkers: checkers}),
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		GlobalLimiter: middleware.RateLimiter(limitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc(), httpMetrics),
		SearchLimiter: middleware.RateLimiter(limitStore, searchLimit, middleware.UserKeyFunc(), httpMetrics),
		AdminLimiter:  middleware.RateLimiter(limitStore, middleware.DefaultAdminLimit(), middleware.UserKeyFunc(), httpMetrics),
	})

	// RequestID -> Tracing -> Logging -> HTTPMetrics -> CORS -> OptionalAuth -> routes
	var handler http.Handler = mux
	handler = middleware.OptionalAuth(jwtService, logger)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxAge:         corsMaxAge,
	})(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	handler = middleware.RequestID(handler)
	a.handler = handler

	return a, nil
}

func (a *app) openStore(ctx context.Context, cfg *config.Config) (profileStore, *health.DBChecker, error) {
	if cfg.DatabaseURL == "" {
		a.logger.Warn("DATABASE_URL not set, using an empty in-memory profile store")
		return profile.NewInMemoryRepository(), nil, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.logger.Info("connected to database")

	return profile.NewPostgresRepository(db, a.logger), health.NewDBChecker(db), nil
}

func (a *app) openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	a.closers = append(a.closers, client.Close)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.logger.Info("connected to redis", "addr", opts.Addr)
	return client, nil
}

// Handler returns the root HTTP handler.
func (a *app) Handler() http.Handler {
	return a.handler
}

// Start launches background tasks: the facet catalog refresh and, without
// Redis, the in-memory rate limit cleanup.
func (a *app) Start(ctx context.Context) {
	ctx, a.stopTasks = context.WithCancel(ctx)
	a.refreshJob.Start(ctx)

	if a.memLimits != nil {
		go func() {
			ticker := time.NewTicker(rateLimitCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					a.memLimits.Cleanup()
				}
			}
		}()
	}
}

// Stop halts background tasks.
func (a *app) Stop() {
	if a.stopTasks != nil {
		a.stopTasks()
	}
	a.refreshJob.Stop()
}

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close connection", "error", err)
		}
	}
	a.closers = nil
}
