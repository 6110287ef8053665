// Package health implements HealthService & Monitor: scheduled
// component probes rolled up into a SystemHealth snapshot, plus a
// rolling metrics window feeding percentiles, trend analysis and
// threshold-crossing alerts, in the style of the host's self-check
// handler generalized into a standalone, tickable service.
package health

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/NaggiDev/practical-rag-sub000/internal/cache"
	"github.com/NaggiDev/practical-rag-sub000/internal/datasource"
	"github.com/NaggiDev/practical-rag-sub000/internal/embedding"
	"github.com/NaggiDev/practical-rag-sub000/internal/models"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore"
)

const probeText = "health probe: the quick brown fox jumps over the lazy dog"

// Deps bundles the read-only collaborators HealthService probes.
type Deps struct {
	Cache      *cache.Store
	Sources    *datasource.Registry
	Embedder   embedding.Provider
	Store      vectorstore.Store
	Metrics    *Monitor
}

func probeAPI() models.ComponentHealth {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := models.HealthHealthy
	if mem.HeapSys > 0 && float64(mem.HeapInuse)/float64(mem.HeapSys) > 0.9 {
		status = models.HealthDegraded
	}

	return models.ComponentHealth{
		Name:   "api",
		Status: status,
		Details: map[string]string{
			"goroutines": fmt.Sprintf("%d", runtime.NumGoroutine()),
			"heapInUse":  fmt.Sprintf("%d", mem.HeapInuse),
			"heapSys":    fmt.Sprintf("%d", mem.HeapSys),
		},
	}
}

func probeCache(ctx context.Context, store *cache.Store) models.ComponentHealth {
	start := time.Now()
	status := store.Health(ctx)
	elapsed := time.Since(start)

	comp := models.ComponentHealth{Name: "cache", Status: status, ResponseTimeMs: elapsed.Milliseconds()}
	if status == models.HealthHealthy {
		stats := store.Stats(ctx)
		if stats.HitRate < 0.3 && stats.Hits+stats.Misses > 0 {
			comp.Status = models.HealthDegraded
		}
	}
	return comp
}

func probeDataSources(ctx context.Context, registry *datasource.Registry, failurePercentage float64) models.ComponentHealth {
	results := registry.ProbeAll(ctx)
	if len(results) == 0 {
		return models.ComponentHealth{Name: "data_sources", Status: models.HealthDegraded, Details: map[string]string{"sources": "0"}}
	}

	unhealthy := 0
	for _, r := range results {
		if !r.IsHealthy {
			unhealthy++
		}
	}

	status := models.HealthHealthy
	switch {
	case unhealthy == len(results):
		status = models.HealthUnhealthy
	case unhealthy > 0 && float64(unhealthy)/float64(len(results)) >= failurePercentage:
		status = models.HealthUnhealthy
	case unhealthy > 0:
		status = models.HealthDegraded
	}

	return models.ComponentHealth{
		Name:   "data_sources",
		Status: status,
		Details: map[string]string{
			"total":     fmt.Sprintf("%d", len(results)),
			"unhealthy": fmt.Sprintf("%d", unhealthy),
		},
	}
}

func probeEmbedding(ctx context.Context, provider embedding.Provider) models.ComponentHealth {
	start := time.Now()
	vec, err := provider.Embed(ctx, probeText)
	elapsed := time.Since(start)

	if err != nil || len(vec) == 0 {
		errMsg := "empty vector returned"
		if err != nil {
			errMsg = err.Error()
		}
		return models.ComponentHealth{Name: "embedding_service", Status: models.HealthUnhealthy, ResponseTimeMs: elapsed.Milliseconds(), Error: errMsg}
	}
	return models.ComponentHealth{Name: "embedding_service", Status: models.HealthHealthy, ResponseTimeMs: elapsed.Milliseconds()}
}

func probeVectorSearch(ctx context.Context, provider embedding.Provider, store vectorstore.Store) models.ComponentHealth {
	start := time.Now()
	vec, err := provider.Embed(ctx, probeText)
	if err != nil {
		return models.ComponentHealth{Name: "vector_search", Status: models.HealthUnhealthy, Error: err.Error()}
	}

	_, err = store.Search(ctx, vec, 1, nil)
	elapsed := time.Since(start)
	if err != nil {
		return models.ComponentHealth{Name: "vector_search", Status: models.HealthUnhealthy, ResponseTimeMs: elapsed.Milliseconds(), Error: err.Error()}
	}
	return models.ComponentHealth{Name: "vector_search", Status: models.HealthHealthy, ResponseTimeMs: elapsed.Milliseconds()}
}

func probeMonitoring(m *Monitor) models.ComponentHealth {
	if m == nil || !m.hasSnapshot() {
		return models.ComponentHealth{Name: "monitoring", Status: models.HealthDegraded, Error: "no metrics snapshot available"}
	}
	return models.ComponentHealth{Name: "monitoring", Status: models.HealthHealthy}
}

// rollup computes the overall SystemHealth status per the spec's
// rollup rule: {api, cache} unhealthy dominates everything else.
func rollup(components []models.ComponentHealth) models.HealthStatus {
	byName := make(map[string]models.HealthStatus, len(components))
	anyUnhealthy := false
	anyDegraded := false
	for _, c := range components {
		byName[c.Name] = c.Status
		if c.Status == models.HealthUnhealthy {
			anyUnhealthy = true
		}
		if c.Status == models.HealthDegraded {
			anyDegraded = true
		}
	}

	if byName["api"] == models.HealthUnhealthy || byName["cache"] == models.HealthUnhealthy {
		return models.HealthUnhealthy
	}
	if anyUnhealthy {
		return models.HealthDegraded
	}
	if anyDegraded {
		return models.HealthDegraded
	}
	return models.HealthHealthy
}
