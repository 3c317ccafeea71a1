// Package main is the entry point for the demo profile seeder.
//
// It inserts a fixed set of demo profiles into the configured Postgres store,
// drops the shared facet catalog cache so running servers rebuild with the new
// values on their next catalog sync, and optionally runs a sample directory
// search to show the result.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/talentdir/internal/config"
	"github.com/onnwee/talentdir/internal/directory"
	"github.com/onnwee/talentdir/internal/jobs"
	"github.com/onnwee/talentdir/internal/middleware"
	"github.com/onnwee/talentdir/internal/profile"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "optional YAML config file; environment variables take precedence")
	metricsFile := flag.String("metrics-file", "", "write job metrics in Prometheus text format to this file (textfile collector)")
	verify := flag.Bool("verify", false, "run a sample search after seeding and print the results")
	flag.Parse()

	if *help {
		fmt.Println("Talent Directory Seeder")
		fmt.Println()
		fmt.Println("Usage: seeder [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if cfg == nil {
		fmt.Fprintln(os.Stderr, errors.Join(errs...))
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	// The seeder never signs tokens, so a missing JWT secret is not fatal here.
	for _, err := range errs {
		if errors.Is(err, config.ErrMissingJWTSecret) || errors.Is(err, config.ErrJWTSecretTooShort) {
			continue
		}
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := jobs.NewMetrics()
	err := run(ctx, cfg, logger, metrics, *verify)

	if *metricsFile != "" {
		reg := prometheus.NewRegistry()
		if regErr := metrics.Register(reg); regErr != nil {
			logger.Error("failed to register metrics", "error", regErr)
		} else if writeErr := prometheus.WriteToTextfile(*metricsFile, reg); writeErr != nil {
			logger.Error("failed to write metrics file", "path", *metricsFile, "error", writeErr)
		}
	}

	if err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *jobs.Metrics, verify bool) error {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := profile.NewPostgresRepository(db, logger)

	profiles, err := demoProfiles()
	if err != nil {
		return err
	}

	start := time.Now()
	inserted, skipped, err := seed(ctx, repo, profiles, logger)
	metrics.RecordRun(jobs.JobTypeProfileSeed, start, errorType(err, jobs.ErrorTypeStore))
	if err != nil {
		return err
	}
	logger.Info("demo profiles seeded", "inserted", inserted, "skipped", skipped)

	catalogConfig := directory.CatalogServiceConfig{Logger: logger}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		catalogConfig.Cache = directory.NewRedisCatalogCache(client, directory.DefaultCatalogCacheKey, cfg.CatalogCacheTTL)
	}
	catalog := directory.NewCatalogService(repo, catalogConfig)

	if inserted > 0 {
		start = time.Now()
		err := catalog.Invalidate(ctx)
		metrics.RecordRun(jobs.JobTypeCacheInvalidate, start, errorType(err, jobs.ErrorTypeCache))
		if err != nil {
			// Servers still converge on their next scheduled refresh.
			logger.Warn("failed to invalidate facet catalog cache", "error", err)
		}
	}

	if !verify {
		return nil
	}

	engine := directory.NewEngine(repo, directory.EngineConfig{Logger: logger})
	return printSample(ctx, directory.NewSession(engine, catalog), os.Stdout)
}

// profileInserter is the write side of the record store.
type profileInserter interface {
	Insert(ctx context.Context, p *profile.Profile) error
}

// seed inserts profiles, skipping ones that already exist.
func seed(ctx context.Context, store profileInserter, profiles []*profile.Profile, logger *slog.Logger) (inserted, skipped int, err error) {
	for _, p := range profiles {
		err := store.Insert(ctx, p)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, profile.ErrDuplicateID):
			skipped++
			logger.Debug("profile already present", "profile_id", p.ID)
		default:
			return inserted, skipped, fmt.Errorf("failed to insert profile %s: %w", p.ID, err)
		}
	}
	return inserted, skipped, nil
}

// printSample lists the facet catalog, then searches for speakers.
func printSample(ctx context.Context, session *directory.Session, out io.Writer) error {
	catalog, err := session.FacetCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to load facet catalog: %w", err)
	}
	fmt.Fprintf(out, "languages: %v\n", catalog.Languages)
	fmt.Fprintf(out, "areas of expertise: %v\n", catalog.AreasOfExpertise)
	fmt.Fprintf(out, "memberships: %v\n", catalog.Memberships)

	category := profile.CategorySpeaker
	filter := session.SetFilter(directory.FilterPatch{Category: &category})
	result := session.Search(ctx)
	if result.Error {
		return errors.New(directory.MessageSearchFailed)
	}

	fmt.Fprintf(out, "\n%d result(s) for category=%s:\n", len(result.Results), filter.Category)
	for _, p := range result.Results {
		fmt.Fprintf(out, "  %-24s completeness=%d\n", profile.StringValue(p.Name), directory.CompletenessScore(p))
	}
	return nil
}

func errorType(err error, kind string) string {
	if err == nil {
		return ""
	}
	return kind
}
