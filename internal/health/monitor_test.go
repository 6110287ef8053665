package health

import (
	"testing"
	"time"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

func TestMonitor_Performance(t *testing.T) {
	m := NewMonitor(time.Hour, Thresholds{})
	m.Record(models.QueryRecord{ResponseMs: 100, Success: true, Cached: true, Confidence: 0.8})
	m.Record(models.QueryRecord{ResponseMs: 200, Success: true, Confidence: 0.6})
	m.Record(models.QueryRecord{ResponseMs: 300, Success: false, Confidence: 0.0})

	perf := m.Performance()
	if perf.TotalQueries != 3 {
		t.Fatalf("expected 3 total queries, got %d", perf.TotalQueries)
	}
	if perf.ErrorRate != float64(1)/3 {
		t.Fatalf("expected error rate 1/3, got %v", perf.ErrorRate)
	}
	if perf.CacheHitRate != float64(1)/3 {
		t.Fatalf("expected cache hit rate 1/3, got %v", perf.CacheHitRate)
	}
}

// EDGE CASE: an empty window reports zeroed metrics without dividing
// by zero.
func TestMonitor_Performance_Empty(t *testing.T) {
	m := NewMonitor(time.Hour, Thresholds{})
	perf := m.Performance()
	if perf.TotalQueries != 0 || perf.ErrorRate != 0 {
		t.Fatalf("expected zeroed metrics, got %+v", perf)
	}
}

// GOOD: percentiles are computed from sorted response times.
func TestPercentiles_Ordering(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1)
	}
	p := percentiles(values)
	if !(p.P50 <= p.P90 && p.P90 <= p.P95 && p.P95 <= p.P99) {
		t.Fatalf("expected non-decreasing percentiles, got %+v", p)
	}
}

// GOOD: records older than the retention window are pruned.
func TestMonitor_Prune(t *testing.T) {
	m := NewMonitor(time.Millisecond, Thresholds{})
	m.Record(models.QueryRecord{ResponseMs: 10, Success: true, RecordedAt: time.Now().Add(-time.Hour)})
	m.Record(models.QueryRecord{ResponseMs: 10, Success: true})

	time.Sleep(2 * time.Millisecond)
	m.Record(models.QueryRecord{ResponseMs: 10, Success: true})

	perf := m.Performance()
	if perf.TotalQueries > 2 {
		t.Fatalf("expected stale records pruned, got %d total", perf.TotalQueries)
	}
}

// GOOD: trends flags a degrading response time when the newer half is
// meaningfully slower than the older half.
func TestMonitor_Trends_DegradingResponseTime(t *testing.T) {
	m := NewMonitor(time.Hour, Thresholds{})
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		m.Record(models.QueryRecord{ResponseMs: 100, Success: true, RecordedAt: base.Add(time.Duration(i) * time.Second)})
	}
	for i := 0; i < 5; i++ {
		m.Record(models.QueryRecord{ResponseMs: 200, Success: true, RecordedAt: base.Add(time.Duration(10+i) * time.Second)})
	}

	trends := m.Trends()
	if !trends.DegradingResponseTime {
		t.Fatalf("expected degrading response time, got %+v", trends)
	}
}

// GOOD: consecutive-failure alerts fire once per crossing edge, not
// once per call above the threshold.
func TestMonitor_RecordProbeFailure_FiresOncePerEdge(t *testing.T) {
	m := NewMonitor(time.Hour, Thresholds{ConsecutiveFailures: 3})
	m.RecordProbeFailure("src-a", 1)
	m.RecordProbeFailure("src-a", 2)
	if len(m.Alerts()) != 0 {
		t.Fatalf("expected no alert below threshold")
	}

	m.RecordProbeFailure("src-a", 3)
	m.RecordProbeFailure("src-a", 4)
	if len(m.Alerts()) != 1 {
		t.Fatalf("expected exactly 1 alert across repeated crossings, got %d", len(m.Alerts()))
	}

	m.RecordProbeFailure("src-a", 0)
	m.RecordProbeFailure("src-a", 3)
	if len(m.Alerts()) != 2 {
		t.Fatalf("expected a second alert after reset+recross, got %d", len(m.Alerts()))
	}
}

// EDGE CASE: critical severity when consecutive failures reach 5.
func TestMonitor_RecordProbeFailure_Critical(t *testing.T) {
	m := NewMonitor(time.Hour, Thresholds{ConsecutiveFailures: 3})
	m.RecordProbeFailure("src-b", 5)
	alerts := m.Alerts()
	if len(alerts) != 1 || alerts[0].Severity != models.AlertCritical {
		t.Fatalf("expected 1 critical alert, got %+v", alerts)
	}
}

// GOOD: a slow-response alert fires once per crossing edge rather than
// once per slow query in a row, and can fire again after recovering.
func TestMonitor_SlowResponse_FiresOncePerEdge(t *testing.T) {
	m := NewMonitor(time.Hour, Thresholds{SlowResponseMs: 500})
	m.Record(models.QueryRecord{ResponseMs: 600, Success: true})
	m.Record(models.QueryRecord{ResponseMs: 700, Success: true})
	if len(m.Alerts()) != 1 {
		t.Fatalf("expected exactly 1 alert across repeated crossings, got %d", len(m.Alerts()))
	}

	m.Record(models.QueryRecord{ResponseMs: 100, Success: true})
	m.Record(models.QueryRecord{ResponseMs: 600, Success: true})
	if len(m.Alerts()) != 2 {
		t.Fatalf("expected a second alert after recovery+recross, got %d", len(m.Alerts()))
	}
}

// GOOD: an error-rate alert fires once per crossing edge, escalating to
// critical once the rate reaches twice the threshold.
func TestMonitor_ErrorRate_FiresOncePerEdge(t *testing.T) {
	m := NewMonitor(time.Hour, Thresholds{ErrorRateThreshold: 0.5})
	m.Record(models.QueryRecord{ResponseMs: 10, Success: false, ErrorCode: "SEARCH_ERROR"})
	m.Record(models.QueryRecord{ResponseMs: 10, Success: false, ErrorCode: "SEARCH_ERROR"})
	alerts := m.Alerts()
	if len(alerts) != 1 || alerts[0].Severity != models.AlertCritical {
		t.Fatalf("expected 1 critical alert at 100%% error rate, got %+v", alerts)
	}
}
