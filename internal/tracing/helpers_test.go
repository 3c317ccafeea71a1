package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder
}

func TestStartDBSpan(t *testing.T) {
	tests := []struct {
		name      string
		table     string
		operation DBOperation
		wantName  string
	}{
		{"query profiles", "profiles", DBOperationQuery, "query profiles"},
		{"insert profiles", "profiles", DBOperationInsert, "insert profiles"},
		{"update without table", "", DBOperationUpdate, "update"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := newRecorder(t)

			_, endSpan := StartDBSpan(context.Background(), tt.table, tt.operation)
			endSpan(nil)

			spans := recorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			span := spans[0]
			if span.Name() != tt.wantName {
				t.Errorf("expected span name %q, got %q", tt.wantName, span.Name())
			}

			var hasTable bool
			for _, attr := range span.Attributes() {
				switch attr.Key {
				case "db.system":
					if attr.Value.AsString() != "postgresql" {
						t.Errorf("expected db.system=postgresql, got %s", attr.Value.AsString())
					}
				case "db.operation":
					if attr.Value.AsString() != string(tt.operation) {
						t.Errorf("expected db.operation=%s, got %s", tt.operation, attr.Value.AsString())
					}
				case "db.sql.table":
					hasTable = true
				}
			}
			if hasTable != (tt.table != "") {
				t.Errorf("db.sql.table present=%v, want %v", hasTable, tt.table != "")
			}
		})
	}
}

func TestStartSpan_RecordsError(t *testing.T) {
	recorder := newRecorder(t)

	_, endSpan := StartSpan(context.Background(), "directory.search", attribute.Int("facets", 2))
	endSpan(errors.New("store unavailable"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status().Code)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
}

func TestAddEventAndAttributes(t *testing.T) {
	recorder := newRecorder(t)

	ctx, endSpan := StartSpan(context.Background(), "directory.rank")
	AddEvent(ctx, "ranked", attribute.Int("count", 3))
	SetAttributes(ctx, attribute.String("stage", "rank"))
	endSpan(nil)

	span := recorder.Ended()[0]
	if len(span.Events()) != 1 || span.Events()[0].Name != "ranked" {
		t.Errorf("expected one 'ranked' event, got %v", span.Events())
	}
	found := false
	for _, attr := range span.Attributes() {
		if attr.Key == "stage" && attr.Value.AsString() == "rank" {
			found = true
		}
	}
	if !found {
		t.Error("expected stage attribute on span")
	}
}
