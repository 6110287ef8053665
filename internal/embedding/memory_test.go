package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProvider_Deterministic(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(32)

	// ===== GOOD CASES =====
	a, err := p.Embed(ctx, "hello world")
	require.NoError(t, err)
	b, err := p.Embed(ctx, "hello world")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := p.Embed(ctx, "something else")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	// ===== EDGE CASES =====
	z, err := p.Embed(ctx, "")
	require.NoError(t, err)
	for _, v := range z {
		assert.Zero(t, v)
	}

	assert.Equal(t, 32, p.Dimensions())
}

func TestMemoryProvider_EmbedBatch(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(16)

	results, err := p.EmbedBatch(ctx, []string{"a", "b", "a"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, results[0], results[2])
	assert.NotEqual(t, results[0], results[1])
}

func TestTruncate(t *testing.T) {
	// ===== GOOD CASES =====
	assert.Equal(t, "abcd", truncate("abcdefgh", 1))

	// ===== EDGE CASES =====
	assert.Equal(t, "short", truncate("short", 100))
	assert.Equal(t, "anything", truncate("anything", 0))
}
