package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

// meter is the package's OpenTelemetry meter. It resolves against
// whatever MeterProvider the host process has configured; with none
// configured it's the no-op provider, so instrumentation never costs
// more than a few atomic stores.
var meter = otel.Meter("github.com/NaggiDev/practical-rag-sub000/internal/health")

// Monitor owns the rolling window of per-query records plus periodic
// system snapshots, percentile computation, trend analysis and
// threshold-crossing alerts.
type Monitor struct {
	mu sync.RWMutex

	retention time.Duration
	records   []models.QueryRecord
	snapshots []models.SystemHealth

	thresholds Thresholds
	alerts     []models.Alert

	// edge-tracking so alerts fire once per threshold-crossing, not
	// once per sampling tick.
	consecutiveFailureAlerted map[string]bool
	errorRateAlerted          bool
	slowResponseAlerted       bool

	responseHistogram metric.Float64Histogram
	queryCounter      metric.Int64Counter
}

// Thresholds configures when Monitor raises alerts.
type Thresholds struct {
	ConsecutiveFailures int64
	SlowResponseMs      int64
	ErrorRateThreshold  float64
	CacheHitRateMin     float64
	MemoryUsageMax      float64
}

// NewMonitor builds a Monitor retaining records/snapshots for the
// given duration (the spec's 24h default).
func NewMonitor(retention time.Duration, thresholds Thresholds) *Monitor {
	histogram, _ := meter.Float64Histogram(
		"query_response_time_ms",
		metric.WithDescription("query pipeline response time in milliseconds"),
		metric.WithUnit("ms"),
	)
	counter, _ := meter.Int64Counter(
		"query_total",
		metric.WithDescription("total queries processed, labeled by success"),
	)
	return &Monitor{
		retention:                 retention,
		thresholds:                thresholds,
		consecutiveFailureAlerted: make(map[string]bool),
		responseHistogram:         histogram,
		queryCounter:              counter,
	}
}

// Record appends a completed query's metrics to the rolling window,
// pruning anything older than the retention period.
func (m *Monitor) Record(rec models.QueryRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	m.records = append(m.records, rec)
	m.prune()

	m.checkErrorRateLocked()
	m.checkSlowResponseLocked(rec)

	m.recordInstruments(rec)
}

func successAttr(success bool) attribute.KeyValue { return attribute.Bool("success", success) }
func cachedAttr(cached bool) attribute.KeyValue   { return attribute.Bool("cached", cached) }

func (m *Monitor) recordInstruments(rec models.QueryRecord) {
	ctx := context.Background()
	if m.responseHistogram != nil {
		m.responseHistogram.Record(ctx, float64(rec.ResponseMs),
			metric.WithAttributes(successAttr(rec.Success), cachedAttr(rec.Cached)))
	}
	if m.queryCounter != nil {
		m.queryCounter.Add(ctx, 1, metric.WithAttributes(successAttr(rec.Success)))
	}
}

func (m *Monitor) prune() {
	if m.retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-m.retention)
	kept := m.records[:0]
	for _, r := range m.records {
		if r.RecordedAt.After(cutoff) {
			kept = append(kept, r)
		}
	}
	m.records = kept

	keptSnaps := m.snapshots[:0]
	for _, s := range m.snapshots {
		if s.Timestamp.After(cutoff) {
			keptSnaps = append(keptSnaps, s)
		}
	}
	m.snapshots = keptSnaps
}

// Snapshot stores a SystemHealth reading, called on the HealthService's
// snapshot interval (the spec's 30s default).
func (m *Monitor) Snapshot(h models.SystemHealth) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, h)
	m.prune()
}

func (m *Monitor) hasSnapshot() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots) > 0
}

// Performance computes PerformanceMetrics over the full retained
// window: throughput, error/cache-hit rates and latency percentiles.
func (m *Monitor) Performance() models.PerformanceMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.performanceLocked(m.records)
}

func (m *Monitor) performanceLocked(records []models.QueryRecord) models.PerformanceMetrics {
	metrics := models.PerformanceMetrics{TotalQueries: int64(len(records))}
	if len(records) == 0 {
		return metrics
	}

	var cacheHits int64
	var confidenceSum float64
	durations := make([]float64, len(records))
	for i, r := range records {
		durations[i] = float64(r.ResponseMs)
		if r.Success {
			metrics.SuccessCount++
		} else {
			metrics.ErrorCount++
		}
		if r.Cached {
			cacheHits++
		}
		confidenceSum += r.Confidence
	}

	metrics.ErrorRate = float64(metrics.ErrorCount) / float64(len(records))
	metrics.CacheHitRate = float64(cacheHits) / float64(len(records))
	metrics.AvgConfidence = confidenceSum / float64(len(records))
	metrics.Percentiles = percentiles(durations)
	return metrics
}

// percentiles computes P50/P90/P95/P99 from sorted response times,
// taking the value at index floor(p*(n-1)) without interpolation.
func percentiles(values []float64) models.Percentiles {
	if len(values) == 0 {
		return models.Percentiles{}
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)

	pick := func(p float64) float64 {
		idx := int(p * float64(len(sorted)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}

	return models.Percentiles{
		P50: pick(0.50),
		P90: pick(0.90),
		P95: pick(0.95),
		P99: pick(0.99),
	}
}

// Trends orders the retained records by time and splits them at the
// middle record into an older and a newer half of equal count; the
// split is not at the midpoint of the time span. It flags degradation
// when the newer half's average response time or error rate is
// meaningfully higher.
func (m *Monitor) Trends() models.TrendsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.records) < 2 {
		return models.TrendsSnapshot{}
	}

	sorted := append([]models.QueryRecord{}, m.records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RecordedAt.Before(sorted[j].RecordedAt) })

	mid := len(sorted) / 2
	older := sorted[:mid]
	newer := sorted[mid:]

	olderAvg, olderErr := avgResponseAndErrorRate(older)
	newerAvg, newerErr := avgResponseAndErrorRate(newer)

	snapshot := models.TrendsSnapshot{
		OlderAvgResponseMs: olderAvg,
		NewerAvgResponseMs: newerAvg,
		OlderErrorRate:     olderErr,
		NewerErrorRate:     newerErr,
	}
	if olderAvg > 0 && newerAvg >= olderAvg*1.2 {
		snapshot.DegradingResponseTime = true
	}
	if olderErr > 0 && newerErr >= olderErr*1.5 {
		snapshot.IncreasingErrorRate = true
	}
	return snapshot
}

func avgResponseAndErrorRate(records []models.QueryRecord) (avgResponse, errorRate float64) {
	if len(records) == 0 {
		return 0, 0
	}
	var sum float64
	var errs int64
	for _, r := range records {
		sum += float64(r.ResponseMs)
		if !r.Success {
			errs++
		}
	}
	return sum / float64(len(records)), float64(errs) / float64(len(records))
}

// checkErrorRateLocked raises an alert when the rolling error rate
// crosses the configured threshold, and clears the edge once the rate
// recovers so a later crossing can alert again. Called with m.mu held.
func (m *Monitor) checkErrorRateLocked() {
	if m.thresholds.ErrorRateThreshold <= 0 {
		return
	}
	perf := m.performanceLocked(m.records)
	if perf.ErrorRate < m.thresholds.ErrorRateThreshold {
		m.errorRateAlerted = false
		return
	}
	if m.errorRateAlerted {
		return
	}
	severity := models.AlertHigh
	if perf.ErrorRate >= m.thresholds.ErrorRateThreshold*2 {
		severity = models.AlertCritical
	}
	m.raiseLocked(severity, "monitoring", "error rate exceeded threshold")
	m.errorRateAlerted = true
}

// checkSlowResponseLocked raises a medium alert the first time a query's
// response time crosses the slow-response threshold, clearing the edge
// as soon as a query comes in under it. Called with m.mu held.
func (m *Monitor) checkSlowResponseLocked(rec models.QueryRecord) {
	if m.thresholds.SlowResponseMs <= 0 {
		return
	}
	if rec.ResponseMs < m.thresholds.SlowResponseMs {
		m.slowResponseAlerted = false
		return
	}
	if m.slowResponseAlerted {
		return
	}
	m.raiseLocked(models.AlertMedium, "performance", "query response time exceeded threshold")
	m.slowResponseAlerted = true
}

// RecordProbeFailure tracks a data-source's consecutive-failure streak
// and raises/clears the associated alert on the crossing edges.
func (m *Monitor) RecordProbeFailure(sourceID string, consecutiveFailures int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.thresholds.ConsecutiveFailures <= 0 {
		return
	}
	if consecutiveFailures >= m.thresholds.ConsecutiveFailures {
		if !m.consecutiveFailureAlerted[sourceID] {
			severity := models.AlertHigh
			if consecutiveFailures >= 5 {
				severity = models.AlertCritical
			}
			m.raiseLocked(severity, "data_sources", "source "+sourceID+" crossed consecutive-failure threshold")
			m.consecutiveFailureAlerted[sourceID] = true
		}
	} else {
		m.consecutiveFailureAlerted[sourceID] = false
	}
}

func (m *Monitor) raiseLocked(severity models.AlertSeverity, component, message string) {
	m.alerts = append(m.alerts, models.Alert{
		Severity:  severity,
		Component: component,
		Message:   message,
		RaisedAt:  time.Now(),
	})
}

// Alerts returns every alert raised so far.
func (m *Monitor) Alerts() []models.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Alert{}, m.alerts...)
}
