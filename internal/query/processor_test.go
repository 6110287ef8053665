package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaggiDev/practical-rag-sub000/internal/cache"
	"github.com/NaggiDev/practical-rag-sub000/internal/datasource"
	"github.com/NaggiDev/practical-rag-sub000/internal/embedding"
	"github.com/NaggiDev/practical-rag-sub000/internal/models"
	"github.com/NaggiDev/practical-rag-sub000/internal/search"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore/memory"
)

func testConfig() Config {
	return Config{
		MaxConcurrentQueries:   4,
		DefaultTimeoutMs:       2000,
		EnableParallelSearch:   true,
		CacheEnabled:           true,
		MinConfidenceThreshold: 0,
		MaxResultsPerSource:    10,
		QueryCacheTTLSec:       60,
	}
}

func newTestProcessor(t *testing.T) (*Processor, *cache.Store, *datasource.Registry) {
	t.Helper()
	cacheStore := cache.New(cache.NewMemoryBackend())
	embedder := embedding.NewMemoryProvider(16)
	store := memory.New()
	engine := search.NewEngine(embedder, store)
	registry := datasource.NewRegistry()

	p := NewProcessor(Deps{
		Cache:    cacheStore,
		Engine:   engine,
		Embedder: embedder,
		Sources:  registry,
	}, testConfig())
	return p, cacheStore, registry
}

// ===== GOOD CASES =====

func TestProcessor_CacheHit(t *testing.T) {
	p, cacheStore, _ := newTestProcessor(t)
	ctx := context.Background()

	q := models.Query{Text: "machine learning"}
	preloaded := models.QueryResult{QueryID: "preset", Response: "cached answer", Confidence: 0.9, Sources: []models.SourceRef{}}
	require.NoError(t, cacheStore.SetQueryResult(ctx, q.Fingerprint(), preloaded, 60))

	start := time.Now()
	result, err := p.Process(ctx, "machine learning", nil)
	require.NoError(t, err)

	assert.True(t, result.CacheHit)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestProcessor_NoActiveSources_ReturnsApologyLikeResult(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	result, err := p.Process(context.Background(), "what is AI", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, len(result.Sources))
	assert.Zero(t, result.Confidence)
	assert.NotEmpty(t, result.Response)
}

func TestProcessor_Idempotence(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	ctx := context.Background()

	first, err := p.Process(ctx, "idempotent query", nil)
	require.NoError(t, err)

	second, err := p.Process(ctx, "idempotent query", nil)
	require.NoError(t, err)

	assert.Equal(t, first.Response, second.Response)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
}

func TestProcessor_FanOutSearchesActiveSourcesOnly(t *testing.T) {
	p, _, registry := newTestProcessor(t)
	ctx := context.Background()

	var probed []string
	var mu sync.Mutex
	registry.Register(datasource.Source{
		DataSource: models.DataSource{ID: "docs", Name: "Docs", Active: true},
		Probe: func(ctx context.Context) error {
			mu.Lock()
			probed = append(probed, "docs")
			mu.Unlock()
			return nil
		},
	})
	registry.Register(datasource.Source{
		DataSource: models.DataSource{ID: "archived", Name: "Archived", Active: false},
	})

	_, err := p.Process(ctx, "hello world", nil)
	require.NoError(t, err)

	active := registry.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, "docs", active[0].ID)
}

// ===== EDGE CASES =====

func TestProcessor_ValidationRejectsEmptyQuery(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	_, err := p.Process(context.Background(), "   ", nil)
	require.Error(t, err)
	qErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrValidation, qErr.Code)
}

func TestProcessor_CapacityExceeded(t *testing.T) {
	cacheStore := cache.New(cache.NewMemoryBackend())
	embedder := embedding.NewMemoryProvider(16)
	store := memory.New()
	engine := search.NewEngine(embedder, store)
	registry := datasource.NewRegistry()

	p := NewProcessor(Deps{
		Cache:    cacheStore,
		Engine:   engine,
		Embedder: embedder,
		Sources:  registry,
	}, Config{MaxConcurrentQueries: 1, DefaultTimeoutMs: 2000, CacheEnabled: false, MaxResultsPerSource: 10})

	// occupy the single slot directly, bypassing Process, so we can
	// assert the gate rejects without ever running the pipeline.
	require.NoError(t, p.acquire("occupying", nil, p.cfg.load()))
	defer p.release("occupying")

	_, err := p.Process(context.Background(), "second query", nil)
	require.Error(t, err)
	qErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrCapacityExceeded, qErr.Code)
	assert.Equal(t, 1, p.ActiveCount())
}

func TestProcessor_CancelRemovesActiveQuery(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	require.NoError(t, p.acquire("q-1", nil, p.cfg.load()))
	assert.Equal(t, 1, p.ActiveCount())

	assert.True(t, p.Cancel("q-1"))
	assert.Equal(t, 0, p.ActiveCount())
	assert.False(t, p.Cancel("q-1"))
}

func TestProcessor_Materialize_UnknownFingerprintErrors(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	err := p.Materialize(context.Background(), "no-such-fingerprint")
	assert.Error(t, err)
}

func TestProcessor_Materialize_RerunsRememberedQuery(t *testing.T) {
	p, cacheStore, _ := newTestProcessor(t)
	ctx := context.Background()

	_, err := p.Process(ctx, "remembered query", nil)
	require.NoError(t, err)

	fp := models.Query{Text: "remembered query"}.Fingerprint()
	require.NoError(t, cacheStore.Invalidate(ctx, "query", fp))

	require.NoError(t, p.Materialize(ctx, fp))

	_, ok := cacheStore.GetQueryResult(ctx, fp)
	assert.True(t, ok)
}

func TestMergeAndFilter_DedupKeepsHigherScore(t *testing.T) {
	hits := []models.SearchHit{
		{ID: "a1", ContentID: "c1", FinalScore: 0.4},
		{ID: "a2", ContentID: "c1", FinalScore: 0.8},
		{ID: "b1", ContentID: "c2", FinalScore: 0.6},
	}
	merged := mergeAndFilter(hits, models.QueryOptimization{}, nil, 0)
	require.Len(t, merged, 2)
	assert.Equal(t, "c1", merged[0].ContentID)
	assert.Equal(t, 0.8, merged[0].FinalScore)
}

func TestMergeAndFilter_DropsBelowConfidenceFloor(t *testing.T) {
	hits := []models.SearchHit{
		{ID: "a1", ContentID: "c1", FinalScore: 0.1},
		{ID: "b1", ContentID: "c2", FinalScore: 0.6},
	}
	merged := mergeAndFilter(hits, models.QueryOptimization{}, nil, 0.2)
	require.Len(t, merged, 1)
	assert.Equal(t, "c2", merged[0].ContentID)
}

func TestOverallConfidence_WeightedMeanOfTop5(t *testing.T) {
	hits := []models.SearchHit{
		{FinalScore: 1.0}, {FinalScore: 0.8}, {FinalScore: 0.6}, {FinalScore: 0.4}, {FinalScore: 0.2}, {FinalScore: 0.0},
	}
	got := overallConfidence(hits)
	assert.Greater(t, got, 0.6)
	assert.Less(t, got, 1.0)
}

func TestOverallConfidence_Empty(t *testing.T) {
	assert.Zero(t, overallConfidence(nil))
}
