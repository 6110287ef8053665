package models

import "time"

// ComponentHealth is one probe result, reported by HealthService for
// each of api/cache/data_sources/embedding_service/vector_search/
// monitoring.
type ComponentHealth struct {
	Name           string            `json:"name"`
	Status         HealthStatus      `json:"status"`
	ResponseTimeMs int64             `json:"responseTimeMs"`
	Details        map[string]string `json:"details,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// SystemHealth is the rolled-up snapshot HealthService publishes on
// each tick.
type SystemHealth struct {
	Status     HealthStatus      `json:"status"`
	Components []ComponentHealth `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

// QueryRecord is one completed query's metrics, fed into the Monitor's
// rolling window.
type QueryRecord struct {
	QueryID     string    `json:"queryId"`
	StartMs     int64     `json:"startMs"`
	EndMs       int64     `json:"endMs"`
	ResponseMs  int64     `json:"responseMs"`
	Success     bool      `json:"success"`
	Cached      bool      `json:"cached"`
	SourceCount int       `json:"sourceCount"`
	Confidence  float64   `json:"confidence"`
	UserID      string    `json:"userId,omitempty"`
	ErrorCode   string    `json:"errorCode,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// Percentiles reports response-time percentiles computed from a
// rolling window's sorted durations.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// PerformanceMetrics summarizes the rolling window: throughput,
// failure rate, cache effectiveness and latency percentiles.
type PerformanceMetrics struct {
	TotalQueries  int64       `json:"totalQueries"`
	SuccessCount  int64       `json:"successCount"`
	ErrorCount    int64       `json:"errorCount"`
	ErrorRate     float64     `json:"errorRate"`
	CacheHitRate  float64     `json:"cacheHitRate"`
	Percentiles   Percentiles `json:"percentiles"`
	AvgConfidence float64     `json:"avgConfidence"`
}

// TrendsSnapshot is the result of splitting the retained window in
// half and comparing older vs. newer halves.
type TrendsSnapshot struct {
	DegradingResponseTime bool    `json:"degradingResponseTime"`
	IncreasingErrorRate   bool    `json:"increasingErrorRate"`
	OlderAvgResponseMs    float64 `json:"olderAvgResponseMs"`
	NewerAvgResponseMs    float64 `json:"newerAvgResponseMs"`
	OlderErrorRate        float64 `json:"olderErrorRate"`
	NewerErrorRate        float64 `json:"newerErrorRate"`
}

// AlertSeverity classifies how urgently an Alert needs attention.
type AlertSeverity string

const (
	AlertLow      AlertSeverity = "low"
	AlertMedium   AlertSeverity = "medium"
	AlertHigh     AlertSeverity = "high"
	AlertCritical AlertSeverity = "critical"
)

// Alert is emitted once per threshold-crossing edge (not once per
// sampling tick) when a monitored condition degrades.
type Alert struct {
	ID        string        `json:"id"`
	Severity  AlertSeverity `json:"severity"`
	Component string        `json:"component"`
	Message   string        `json:"message"`
	RaisedAt  time.Time     `json:"raisedAt"`
}
