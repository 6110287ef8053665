package health

import (
	"context"
	"testing"

	"github.com/NaggiDev/practical-rag-sub000/internal/cache"
	"github.com/NaggiDev/practical-rag-sub000/internal/datasource"
	"github.com/NaggiDev/practical-rag-sub000/internal/embedding"
	"github.com/NaggiDev/practical-rag-sub000/internal/models"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore/memory"
)

func TestProbeCache_Healthy(t *testing.T) {
	store := cache.New(cache.NewMemoryBackend())
	comp := probeCache(context.Background(), store)
	if comp.Status != models.HealthHealthy {
		t.Fatalf("expected healthy cache probe, got %s", comp.Status)
	}
}

func TestProbeDataSources_Rollup(t *testing.T) {
	ctx := context.Background()

	t.Run("all healthy", func(t *testing.T) {
		reg := datasource.NewRegistry()
		reg.Register(datasource.Source{DataSource: models.DataSource{ID: "a", Active: true}, Probe: func(context.Context) error { return nil }})
		comp := probeDataSources(ctx, reg, 0.5)
		if comp.Status != models.HealthHealthy {
			t.Fatalf("expected healthy, got %s", comp.Status)
		}
	})

	t.Run("no sources", func(t *testing.T) {
		reg := datasource.NewRegistry()
		comp := probeDataSources(ctx, reg, 0.5)
		if comp.Status != models.HealthDegraded {
			t.Fatalf("expected degraded with no sources, got %s", comp.Status)
		}
	})
}

func TestProbeEmbedding_Healthy(t *testing.T) {
	provider := embedding.NewMemoryProvider(8)
	comp := probeEmbedding(context.Background(), provider)
	if comp.Status != models.HealthHealthy {
		t.Fatalf("expected healthy embedding probe, got %s", comp.Status)
	}
}

func TestProbeVectorSearch_Healthy(t *testing.T) {
	provider := embedding.NewMemoryProvider(8)
	store := memory.New()
	comp := probeVectorSearch(context.Background(), provider, store)
	if comp.Status != models.HealthHealthy {
		t.Fatalf("expected healthy vector_search probe, got %s", comp.Status)
	}
}

// GOOD: an unhealthy api component makes the rollup unhealthy even
// when the other components are healthy.
func TestRollup_APIOrCacheUnhealthyDominates(t *testing.T) {
	components := []models.ComponentHealth{
		{Name: "api", Status: models.HealthUnhealthy},
		{Name: "cache", Status: models.HealthHealthy},
		{Name: "embedding_service", Status: models.HealthHealthy},
	}
	if rollup(components) != models.HealthUnhealthy {
		t.Fatalf("expected unhealthy rollup")
	}
}

// EDGE CASE: a non-api/cache unhealthy component degrades rather than
// fails the whole system.
func TestRollup_OtherUnhealthyDegrades(t *testing.T) {
	components := []models.ComponentHealth{
		{Name: "api", Status: models.HealthHealthy},
		{Name: "cache", Status: models.HealthHealthy},
		{Name: "data_sources", Status: models.HealthUnhealthy},
	}
	if rollup(components) != models.HealthDegraded {
		t.Fatalf("expected degraded rollup, got different status")
	}
}

func TestRollup_AllHealthy(t *testing.T) {
	components := []models.ComponentHealth{
		{Name: "api", Status: models.HealthHealthy},
		{Name: "cache", Status: models.HealthHealthy},
	}
	if rollup(components) != models.HealthHealthy {
		t.Fatalf("expected healthy rollup")
	}
}
