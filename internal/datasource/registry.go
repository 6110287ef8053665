// Package datasource implements the DataSourceRegistry collaborator:
// the query core's only view onto external content sources is their
// listing and health probe, mirroring the way internal/embedding keeps
// its provider registry decoupled from any concrete backend.
package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

// Source is a registered data source: its static description plus the
// probe function the registry calls to check liveness.
type Source struct {
	models.DataSource
	Probe func(ctx context.Context) error
}

// Registry is the DataSourceRegistry collaborator: listActive/probe,
// plus the per-source connection metrics the health service consumes.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
	metrics map[string]*models.ConnectionMetric
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]Source),
		metrics: make(map[string]*models.ConnectionMetric),
	}
}

// Register adds or replaces a source definition.
func (r *Registry) Register(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[src.ID] = src
	if _, ok := r.metrics[src.ID]; !ok {
		r.metrics[src.ID] = &models.ConnectionMetric{SourceID: src.ID}
	}
}

// Deregister removes a source and its connection metrics entirely.
func (r *Registry) Deregister(sourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, sourceID)
	delete(r.metrics, sourceID)
}

// ListActive returns every registered source whose Active flag is set.
func (r *Registry) ListActive() []models.DataSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.DataSource, 0, len(r.sources))
	for _, s := range r.sources {
		if s.Active {
			out = append(out, s.DataSource)
		}
	}
	return out
}

// Probe runs a source's health check, recording timing and updating
// its connection metric (consecutive-failure count resets on success).
func (r *Registry) Probe(ctx context.Context, sourceID string) models.SourceProbe {
	r.mu.RLock()
	src, ok := r.sources[sourceID]
	r.mu.RUnlock()
	if !ok {
		return models.SourceProbe{SourceID: sourceID, IsHealthy: false, LastError: fmt.Sprintf("unknown source %q", sourceID)}
	}

	start := time.Now()
	var err error
	if src.Probe != nil {
		err = src.Probe(ctx)
	}
	elapsed := time.Since(start)

	result := models.SourceProbe{
		SourceID:       sourceID,
		IsHealthy:      err == nil,
		ResponseTimeMs: elapsed.Milliseconds(),
	}

	r.mu.Lock()
	metric := r.metrics[sourceID]
	if metric == nil {
		metric = &models.ConnectionMetric{SourceID: sourceID}
		r.metrics[sourceID] = metric
	}
	metric.Attempts++
	if err != nil {
		metric.ConsecutiveFailures++
		result.LastError = err.Error()
		result.ErrorCount = metric.ConsecutiveFailures
	} else {
		metric.ConsecutiveFailures = 0
		metric.LastSuccess = time.Now()
	}
	r.mu.Unlock()

	return result
}

// ProbeAll probes every active source concurrently and returns their
// results, keyed by source id. Per-source probe failures never abort
// the others.
func (r *Registry) ProbeAll(ctx context.Context) map[string]models.SourceProbe {
	active := r.ListActive()
	results := make(map[string]models.SourceProbe, len(active))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, src := range active {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			probe := r.Probe(ctx, id)
			mu.Lock()
			results[id] = probe
			mu.Unlock()
		}(src.ID)
	}
	wg.Wait()

	return results
}

// ConnectionMetrics returns a snapshot of every source's connection
// metric, for the health service's per-source reporting.
func (r *Registry) ConnectionMetrics() map[string]models.ConnectionMetric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]models.ConnectionMetric, len(r.metrics))
	for id, m := range r.metrics {
		out[id] = *m
	}
	return out
}
