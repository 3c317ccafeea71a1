package directory

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	m.IncValidationFailure("search_term")
	m.ObserveSearch(OutcomeOK, 0.01, 3)
	m.IncStoreErrors(OperationQuery)
	m.IncSuperseded()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() returned error: %v", err)
	}
	expected := map[string]bool{
		MetricFilterValidationFailures: false,
		MetricSearchDuration:           false,
		MetricSearchResults:            false,
		MetricStoreErrors:              false,
		MetricSearchesSuperseded:       false,
	}
	for _, f := range families {
		if _, ok := expected[f.GetName()]; ok {
			expected[f.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("metric %s not gathered", name)
		}
	}

	if err := NewMetrics().Register(reg); err == nil {
		t.Error("duplicate registration should fail")
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.IncValidationFailure("languages")
	m.ObserveSearch(OutcomeStoreError, 1, 0)
	m.IncStoreErrors(OperationFacetProjection)
	m.IncSuperseded()
}

func TestMetrics_Counts(t *testing.T) {
	m := NewMetrics()
	m.IncStoreErrors(OperationQuery)
	m.IncStoreErrors(OperationQuery)
	m.IncStoreErrors(OperationFacetProjection)

	if got := testutil.ToFloat64(m.storeErrors.WithLabelValues(OperationQuery)); got != 2 {
		t.Errorf("query errors = %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.storeErrors.WithLabelValues(OperationFacetProjection)); got != 1 {
		t.Errorf("projection errors = %f, want 1", got)
	}
}
