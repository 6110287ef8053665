package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindow_Chunk(t *testing.T) {
	// ===== GOOD CASES =====
	t.Run("exact boundary example", func(t *testing.T) {
		text := strings.Repeat("a", 2048)
		opts := Options{ChunkSize: 1000, Overlap: 200, MinChunkSize: 100}

		chunks := SlidingWindow{}.Chunk(text, opts)

		assert.Len(t, chunks, 3)
		assert.Equal(t, 0, chunks[0].Start)
		assert.Equal(t, 1000, chunks[0].End)
		assert.Equal(t, 800, chunks[1].Start)
		assert.Equal(t, 1800, chunks[1].End)
		assert.Equal(t, 1600, chunks[2].Start)
		assert.Equal(t, 2048, chunks[2].End)
	})

	t.Run("positions are contiguous", func(t *testing.T) {
		text := strings.Repeat("b", 5000)
		opts := Options{ChunkSize: 1000, Overlap: 200, MinChunkSize: 100}
		chunks := SlidingWindow{}.Chunk(text, opts)
		for i := 1; i < len(chunks); i++ {
			assert.LessOrEqual(t, chunks[i].Start, chunks[i-1].End)
		}
	})

	// ===== EDGE CASES =====
	t.Run("empty text yields no chunks", func(t *testing.T) {
		assert.Empty(t, SlidingWindow{}.Chunk("", DefaultOptions()))
	})

	t.Run("text shorter than minChunkSize yields no chunks", func(t *testing.T) {
		opts := Options{ChunkSize: 1000, Overlap: 200, MinChunkSize: 100}
		assert.Empty(t, SlidingWindow{}.Chunk("short", opts))
	})

	t.Run("trailing remainder below minChunkSize is dropped", func(t *testing.T) {
		text := strings.Repeat("c", 1650)
		opts := Options{ChunkSize: 1000, Overlap: 200, MinChunkSize: 100}
		chunks := SlidingWindow{}.Chunk(text, opts)
		last := chunks[len(chunks)-1]
		assert.GreaterOrEqual(t, last.End-last.Start, opts.MinChunkSize)
	})
}

func TestAvailable(t *testing.T) {
	names := Available()
	assert.Contains(t, names, "sliding-window")
	assert.Contains(t, names, "sentence-based")
}
