package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore"
)

func TestStore_UpsertSearchDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	// ===== GOOD CASES =====
	require.NoError(t, s.Upsert(ctx, []vectorstore.Document{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]string{"source": "s1"}},
		{ID: "b", Vector: []float32{0, 1}, Metadata: map[string]string{"source": "s2"}},
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalVectors)

	// ===== EDGE CASES =====
	require.NoError(t, s.Delete(ctx, []string{"a"}))
	results, err = s.Search(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)

	empty, err := s.Search(ctx, []float32{1, 0}, 10, map[string]string{"source": "nope"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
