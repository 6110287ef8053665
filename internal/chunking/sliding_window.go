package chunking

// SlidingWindow emits fixed-size, overlapping windows over the input
// text. The step between window starts is chunkSize-overlap; a window
// is only emitted if it is at least minChunkSize long, and positions
// are contiguous starting from 0.
type SlidingWindow struct{}

func (SlidingWindow) Name() string { return "sliding-window" }

func (SlidingWindow) Chunk(text string, opts Options) []Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	step := opts.ChunkSize - opts.Overlap
	if step <= 0 {
		step = opts.ChunkSize
	}
	if step <= 0 {
		step = n
	}

	var chunks []Chunk
	index := 0
	for start := 0; start < n; start += step {
		end := start + opts.ChunkSize
		if end > n {
			end = n
		}
		if end-start >= opts.MinChunkSize {
			chunks = append(chunks, Chunk{
				Index: index,
				Start: start,
				End:   end,
				Text:  string(runes[start:end]),
			})
			index++
		}
		if end == n {
			break
		}
	}
	return chunks
}
