package cache

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

func newTestStore() *Store {
	return New(NewMemoryBackend())
}

func TestStore_QueryResultRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	// ===== GOOD CASES =====
	result := models.QueryResult{QueryID: "q-1", Confidence: 0.8, Sources: []models.SourceRef{}}
	require.NoError(t, s.SetQueryResult(ctx, "fp-1", result, 300))

	got, ok := s.GetQueryResult(ctx, "fp-1")
	require.True(t, ok)
	assert.Equal(t, "q-1", got.QueryID)

	// ===== EDGE CASES =====
	_, ok = s.GetQueryResult(ctx, "missing-fp")
	assert.False(t, ok)
}

func TestStore_MetaTrackedOnRead(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.SetQueryResult(ctx, "fp-2", models.QueryResult{QueryID: "q-2"}, 0))
	_, _ = s.GetQueryResult(ctx, "fp-2")
	_, _ = s.GetQueryResult(ctx, "fp-2")

	raw, ok, err := s.backend.Get(ctx, queryMetaKey("fp-2"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, raw)

	var meta models.CacheMeta
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.EqualValues(t, 2, meta.AccessCount)
}

func TestStore_ContentHashIdempotence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, ok := s.GetContentHash(ctx, "c-1")
	assert.False(t, ok)

	require.NoError(t, s.SetContentHash(ctx, "c-1", 12345))
	h, ok := s.GetContentHash(ctx, "c-1")
	require.True(t, ok)
	assert.Equal(t, uint32(12345), h)
}

func TestStore_BatchEmbeddings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	vectors := map[string][]float32{
		"h1": {0.1, 0.2},
		"h2": {0.3, 0.4},
	}
	require.NoError(t, s.BatchSetEmbeddings(ctx, vectors, 60))

	got, err := s.BatchGetEmbeddings(ctx, []string{"h1", "h2", "h3"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []float32{0.1, 0.2}, got["h1"])
	_, missing := got["h3"]
	assert.False(t, missing)
}

func TestStore_InvalidateNamespace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.SetQueryResult(ctx, "fp-a", models.QueryResult{QueryID: "a"}, 0))
	require.NoError(t, s.SetQueryResult(ctx, "fp-b", models.QueryResult{QueryID: "b"}, 0))

	require.NoError(t, s.Invalidate(ctx, "query", ""))

	_, ok := s.GetQueryResult(ctx, "fp-a")
	assert.False(t, ok)
	_, ok = s.GetQueryResult(ctx, "fp-b")
	assert.False(t, ok)
}

func TestStore_StatsHitRate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.SetQueryResult(ctx, "fp-x", models.QueryResult{QueryID: "x"}, 0))
	_, _ = s.GetQueryResult(ctx, "fp-x")  // hit
	_, _ = s.GetQueryResult(ctx, "fp-y")  // miss

	stats := s.Stats(ctx)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestStore_Health(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	assert.Equal(t, "healthy", string(s.Health(ctx)))
}

func TestStore_RecordContentChange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	err := s.RecordContentChange(ctx, "c-2", "updated", time.Now())
	require.NoError(t, err)
}
