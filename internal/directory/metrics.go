package directory

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricFilterValidationFailures = "directory_filter_validation_failures_total"
	MetricSearchDuration           = "directory_search_duration_seconds"
	MetricSearchResults            = "directory_search_results"
	MetricStoreErrors              = "directory_store_errors_total"
	MetricSearchesSuperseded       = "directory_searches_superseded_total"
)

// Search outcome label values.
const (
	OutcomeOK         = "ok"
	OutcomeStoreError = "store_error"
)

// Store operation label values.
const (
	OperationQuery           = "query"
	OperationFacetProjection = "facet_projection"
)

// Metrics contains Prometheus metrics for the search pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	validationFailures *prometheus.CounterVec
	searchDuration     *prometheus.HistogramVec
	searchResults      prometheus.Histogram
	storeErrors        *prometheus.CounterVec
	superseded         prometheus.Counter
}

// NewMetrics creates the directory collectors. They are not registered;
// call Register to add them to a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		validationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFilterValidationFailures,
				Help: "Total number of filter validation failures by field; the search still runs",
			},
			[]string{"field"},
		),
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricSearchDuration,
				Help:    "Directory search pipeline duration in seconds by outcome",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"outcome"},
		),
		searchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricSearchResults,
				Help:    "Number of profiles returned per directory search",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
		),
		storeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricStoreErrors,
				Help: "Total number of record store failures by operation",
			},
			[]string{"operation"},
		),
		superseded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricSearchesSuperseded,
				Help: "Total number of search responses discarded because a newer search was issued",
			},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncValidationFailure counts one failing filter field.
func (m *Metrics) IncValidationFailure(field string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(field).Inc()
}

// ObserveSearch records a completed search.
func (m *Metrics) ObserveSearch(outcome string, seconds float64, results int) {
	if m == nil {
		return
	}
	m.searchDuration.WithLabelValues(outcome).Observe(seconds)
	m.searchResults.Observe(float64(results))
}

// IncStoreErrors counts one failed store operation.
func (m *Metrics) IncStoreErrors(operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation).Inc()
}

// IncSuperseded counts one discarded stale response.
func (m *Metrics) IncSuperseded() {
	if m == nil {
		return
	}
	m.superseded.Inc()
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.validationFailures,
		m.searchDuration,
		m.searchResults,
		m.storeErrors,
		m.superseded,
	}
}
