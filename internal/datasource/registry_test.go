package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

func TestRegistry_ListActive(t *testing.T) {
	r := NewRegistry()
	r.Register(Source{DataSource: dataSourceFixture("a", true), Probe: okProbe})
	r.Register(Source{DataSource: dataSourceFixture("b", false), Probe: okProbe})

	active := r.ListActive()
	if len(active) != 1 || active[0].ID != "a" {
		t.Fatalf("expected only source a active, got %v", active)
	}
}

// GOOD: a successful probe reports the source healthy and counts one
// attempt.
func TestRegistry_Probe_Success(t *testing.T) {
	r := NewRegistry()
	r.Register(Source{DataSource: dataSourceFixture("a", true), Probe: okProbe})

	result := r.Probe(context.Background(), "a")
	if !result.IsHealthy {
		t.Fatalf("expected healthy probe")
	}

	metrics := r.ConnectionMetrics()
	if metrics["a"].Attempts != 1 {
		t.Fatalf("expected 1 attempt recorded")
	}
}

// EDGE CASE: consecutive failures accumulate until a success resets them.
func TestRegistry_Probe_ConsecutiveFailures(t *testing.T) {
	r := NewRegistry()
	r.Register(Source{DataSource: dataSourceFixture("a", true), Probe: failProbe})

	r.Probe(context.Background(), "a")
	r.Probe(context.Background(), "a")
	metrics := r.ConnectionMetrics()
	if metrics["a"].ConsecutiveFailures != 2 {
		t.Fatalf("expected 2 consecutive failures, got %d", metrics["a"].ConsecutiveFailures)
	}

	r.sources["a"] = Source{DataSource: dataSourceFixture("a", true), Probe: okProbe}
	r.Probe(context.Background(), "a")
	metrics = r.ConnectionMetrics()
	if metrics["a"].ConsecutiveFailures != 0 {
		t.Fatalf("expected failures reset after success, got %d", metrics["a"].ConsecutiveFailures)
	}
}

// EDGE CASE: probing an unregistered source reports unhealthy without
// panicking.
func TestRegistry_Probe_UnknownSource(t *testing.T) {
	r := NewRegistry()
	result := r.Probe(context.Background(), "missing")
	if result.IsHealthy {
		t.Fatalf("expected unhealthy for unknown source")
	}
}

// GOOD: probeAll runs every active source's probe and collects results.
func TestRegistry_ProbeAll(t *testing.T) {
	r := NewRegistry()
	r.Register(Source{DataSource: dataSourceFixture("a", true), Probe: okProbe})
	r.Register(Source{DataSource: dataSourceFixture("b", true), Probe: failProbe})

	results := r.ProbeAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results["a"].IsHealthy || results["b"].IsHealthy {
		t.Fatalf("expected a healthy, b unhealthy: %+v", results)
	}
}

func okProbe(ctx context.Context) error   { return nil }
func failProbe(ctx context.Context) error { return errors.New("connection refused") }

func dataSourceFixture(id string, active bool) models.DataSource {
	return models.DataSource{ID: id, Name: id, Active: active}
}
