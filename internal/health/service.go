package health

import (
	"context"
	"sync"
	"time"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

// Service is the HealthService collaborator: on a schedule it probes
// every component, rolls the results up into a SystemHealth snapshot,
// and feeds the Monitor.
type Service struct {
	deps              Deps
	monitor           *Monitor
	snapshotInterval  time.Duration
	failurePercentage float64

	mu     sync.RWMutex
	latest models.SystemHealth

	ticker *time.Ticker
	stopCh chan struct{}
}

// NewService builds a HealthService over its read-only collaborators.
func NewService(deps Deps, monitor *Monitor, snapshotInterval time.Duration, dataSourceFailurePercentage float64) *Service {
	if snapshotInterval <= 0 {
		snapshotInterval = 30 * time.Second
	}
	if dataSourceFailurePercentage <= 0 {
		dataSourceFailurePercentage = 0.5
	}
	return &Service{deps: deps, monitor: monitor, snapshotInterval: snapshotInterval, failurePercentage: dataSourceFailurePercentage}
}

// Tick runs one probe cycle across every component, rolls up the
// result, stores the snapshot, and records any crossing alerts for
// per-source consecutive failures.
func (s *Service) Tick(ctx context.Context) models.SystemHealth {
	components := []models.ComponentHealth{
		probeAPI(),
		probeCache(ctx, s.deps.Cache),
		probeDataSources(ctx, s.deps.Sources, s.failurePercentage),
		probeEmbedding(ctx, s.deps.Embedder),
		probeVectorSearch(ctx, s.deps.Embedder, s.deps.Store),
		probeMonitoring(s.deps.Metrics),
	}

	health := models.SystemHealth{
		Status:     rollup(components),
		Components: components,
		Timestamp:  time.Now(),
	}

	s.mu.Lock()
	s.latest = health
	s.mu.Unlock()

	if s.monitor != nil {
		s.monitor.Snapshot(health)
		for id, metric := range s.deps.Sources.ConnectionMetrics() {
			s.monitor.RecordProbeFailure(id, metric.ConsecutiveFailures)
		}
	}

	return health
}

// Health returns the most recently computed SystemHealth.
func (s *Service) Health() models.SystemHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Components returns the component list from the latest snapshot.
func (s *Service) Components() []models.ComponentHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ComponentHealth{}, s.latest.Components...)
}

// Trends delegates to the Monitor's trend analysis.
func (s *Service) Trends() models.TrendsSnapshot {
	if s.monitor == nil {
		return models.TrendsSnapshot{}
	}
	return s.monitor.Trends()
}

// Start begins ticking on the snapshot interval until Stop is called.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		return
	}
	s.ticker = time.NewTicker(s.snapshotInterval)
	s.stopCh = make(chan struct{})
	ticker := s.ticker
	stop := s.stopCh
	s.mu.Unlock()

	s.Tick(ctx)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Tick(ctx)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the ticking loop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stopCh)
	s.ticker = nil
}
