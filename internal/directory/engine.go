package directory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/talentdir/internal/profile"
	"github.com/onnwee/talentdir/internal/tracing"
)

// MessageSearchFailed is the user-facing text for a failed store query.
const MessageSearchFailed = "Search failed. Please try again."

// ProfileSource is the query side of the record store.
type ProfileSource interface {
	Query(ctx context.Context, q profile.Query) ([]*profile.Profile, error)
}

// Viewer identifies who is searching.
type Viewer struct {
	UserID string

	// ExcludeSelf drops the viewer's own profile from results.
	ExcludeSelf bool
}

// Result is the observable outcome of one search.
type Result struct {
	Results []*profile.Profile
	Loading bool
	Error   bool

	// Filter is the sanitized filter the search actually ran with.
	Filter FilterState

	// Warnings describes recovered validation failures.
	Warnings []string

	// Superseded is set when a newer search was issued before this one
	// completed; the result was not displayed.
	Superseded bool
}

// emptyResult is the result before any search has completed.
func emptyResult() Result {
	return Result{
		Results: []*profile.Profile{},
		Filter:  DefaultFilterState(),
	}
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	Limits  Limits
	Logger  *slog.Logger
	Metrics *Metrics
}

// Engine runs the search pipeline: normalize, compile, query the store,
// apply the free-text residual, then rank by completeness.
type Engine struct {
	store      ProfileSource
	normalizer *Normalizer
	logger     *slog.Logger
	metrics    *Metrics
	timeNow    func() time.Time
}

// NewEngine creates an Engine over store.
func NewEngine(store ProfileSource, cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		store:      store,
		normalizer: NewNormalizer(cfg.Limits),
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		timeNow:    time.Now,
	}
}

// Search runs the pipeline for f. It never returns an error: a store failure
// yields empty results with Error set, and a validation failure is logged and
// the search proceeds with the sanitized input.
func (e *Engine) Search(ctx context.Context, f FilterState, viewer Viewer) Result {
	start := e.timeNow()

	filter, verr := e.normalizer.Normalize(f)
	q, residual := Compile(filter)
	q = WithViewer(q, viewer)

	ctx, endSpan := tracing.StartSpan(ctx, "directory.search",
		attribute.Bool("category_filter", q.Category != ""),
		attribute.Int("facet_filters", len(q.Overlaps)),
		attribute.Bool("text_filter", !residual.Empty()),
	)

	result := Result{
		Results: []*profile.Profile{},
		Filter:  filter,
	}

	if verr != nil {
		result.Warnings = e.recordValidationFailure(ctx, verr)
	}

	candidates, err := e.store.Query(ctx, q)
	if err != nil {
		endSpan(err)
		e.metrics.IncStoreErrors(OperationQuery)
		e.metrics.ObserveSearch(OutcomeStoreError, e.timeNow().Sub(start).Seconds(), 0)
		e.logger.ErrorContext(ctx, "profile query failed",
			slog.String("error", err.Error()),
			slog.String("category", q.Category),
			slog.Int("languages", len(filter.Languages)),
			slog.Int("areas_of_expertise", len(filter.AreasOfExpertise)),
			slog.Int("memberships", len(filter.Memberships)),
			slog.Bool("exclude_self", q.ExcludeUserID != ""))
		result.Error = true
		return result
	}

	matched := residual.Filter(candidates)
	result.Results = RankByCompleteness(matched)

	tracing.SetAttributes(ctx,
		attribute.Int("candidates", len(candidates)),
		attribute.Int("results", len(result.Results)))
	endSpan(nil)

	e.metrics.ObserveSearch(OutcomeOK, e.timeNow().Sub(start).Seconds(), len(result.Results))
	return result
}

func (e *Engine) recordValidationFailure(ctx context.Context, err error) []string {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		e.logger.WarnContext(ctx, "filter validation failed, searching with sanitized input",
			slog.String("error", err.Error()))
		return []string{err.Error()}
	}

	warnings := make([]string, len(verr.Fields))
	for i, f := range verr.Fields {
		e.metrics.IncValidationFailure(f.Field)
		warnings[i] = f.Error()
	}
	tracing.AddEvent(ctx, "filter.validation_failed",
		attribute.StringSlice("fields", verr.FieldNames()))
	e.logger.WarnContext(ctx, "filter validation failed, searching with sanitized input",
		slog.Any("fields", verr.FieldNames()))
	return warnings
}
