package directory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/talentdir/internal/jobs"
)

// DefaultRefreshInterval is the default interval between catalog rebuilds.
const DefaultRefreshInterval = 10 * time.Minute

// DefaultRefreshTimeout bounds a single catalog rebuild.
const DefaultRefreshTimeout = 30 * time.Second

// CatalogRefresher rebuilds the facet catalog. *CatalogService implements it.
type CatalogRefresher interface {
	Refresh(ctx context.Context) (FacetCatalog, error)
}

// JobMetrics reports job runs to the shared background job metrics.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// RefreshJobConfig configures the facet catalog refresh job.
type RefreshJobConfig struct {
	// Interval is the duration between rebuilds.
	Interval time.Duration
	// Timeout bounds each rebuild.
	Timeout time.Duration
	Logger  *slog.Logger
	// JobMetrics is optional.
	JobMetrics JobMetrics
}

// RefreshJob periodically rebuilds the facet catalog so newly approved
// profiles show up as selectable options.
type RefreshJob struct {
	config    RefreshJobConfig
	refresher CatalogRefresher

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefreshJob creates a refresh job for refresher.
func NewRefreshJob(config RefreshJobConfig, refresher CatalogRefresher) *RefreshJob {
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRefreshTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &RefreshJob{
		config:    config,
		refresher: refresher,
	}
}

// Start begins the periodic refresh in a background goroutine.
// Calling Start on a running job is a no-op.
func (j *RefreshJob) Start(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	stopCh, doneCh := j.stopCh, j.doneCh
	j.mu.Unlock()

	go j.run(ctx, stopCh, doneCh)
}

// Stop signals the job to stop and waits for it to finish.
func (j *RefreshJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh := j.stopCh
	doneCh := j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// IsRunning returns whether the job is running.
func (j *RefreshJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// run clears running before signalling done, whichever way it exits, so the
// job can be started again after its context is cancelled.
func (j *RefreshJob) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer func() {
		j.mu.Lock()
		if j.doneCh == doneCh {
			j.running = false
		}
		j.mu.Unlock()
		close(doneCh)
	}()

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("facet refresh job stopping due to context cancellation")
			return
		case <-stopCh:
			j.config.Logger.Info("facet refresh job stopping due to stop signal")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce rebuilds the catalog immediately and reports the outcome.
func (j *RefreshJob) RunOnce(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, j.config.Timeout)
	defer cancel()

	start := time.Now()
	catalog, err := j.refresher.Refresh(ctx)
	duration := time.Since(start)

	if j.config.JobMetrics != nil {
		j.config.JobMetrics.ObserveJobDuration(jobs.JobTypeFacetRefresh, duration.Seconds())
	}

	if err != nil {
		errorType := jobs.ErrorTypeStore
		if errors.Is(err, context.DeadlineExceeded) {
			errorType = jobs.ErrorTypeTimeout
		}
		if j.config.JobMetrics != nil {
			j.config.JobMetrics.IncJobsTotal(jobs.JobTypeFacetRefresh, jobs.StatusFailure)
			j.config.JobMetrics.IncJobErrors(jobs.JobTypeFacetRefresh, errorType)
		}
		j.config.Logger.Error("facet catalog refresh failed",
			"error", err,
			"error_type", errorType,
			"duration_ms", duration.Milliseconds())
		return err
	}

	if j.config.JobMetrics != nil {
		j.config.JobMetrics.IncJobsTotal(jobs.JobTypeFacetRefresh, jobs.StatusSuccess)
	}
	j.config.Logger.Info("facet catalog refreshed",
		"languages", len(catalog.Languages),
		"areas_of_expertise", len(catalog.AreasOfExpertise),
		"memberships", len(catalog.Memberships),
		"duration_ms", duration.Milliseconds())
	return nil
}
