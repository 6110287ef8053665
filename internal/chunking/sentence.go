package chunking

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/sentences"
)

// SentenceBased buffers whole sentences until the buffer would exceed
// chunkSize, then flushes it as one chunk if it has reached
// minChunkSize. Sentence boundaries come from a real Unicode segmenter
// rather than a naive split on '.', '!', '?', so abbreviations and
// decimal numbers inside a sentence don't fracture it.
type SentenceBased struct{}

func (SentenceBased) Name() string { return "sentence-based" }

func (SentenceBased) Chunk(text string, opts Options) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	type span struct {
		start, end int
		text       string
	}
	var spans []span

	seg := sentences.NewSegmenter([]byte(text))
	pos := 0
	for seg.Next() {
		s := string(seg.Bytes())
		start := strings.Index(text[pos:], s)
		if start < 0 {
			// Segmenter and source fell out of sync (shouldn't happen);
			// fall back to appending at the current cursor.
			start = 0
		}
		absStart := pos + start
		absEnd := absStart + len(s)
		spans = append(spans, span{start: absStart, end: absEnd, text: s})
		pos = absEnd
	}

	var chunks []Chunk
	index := 0
	bufStart := -1
	bufEnd := -1
	var buf strings.Builder

	flush := func() {
		if bufStart < 0 {
			return
		}
		if buf.Len() >= opts.MinChunkSize {
			chunks = append(chunks, Chunk{
				Index: index,
				Start: bufStart,
				End:   bufEnd,
				Text:  buf.String(),
			})
			index++
		}
		buf.Reset()
		bufStart = -1
		bufEnd = -1
	}

	for _, sp := range spans {
		if buf.Len() > 0 && buf.Len()+len(sp.text) > opts.ChunkSize && buf.Len() >= opts.MinChunkSize {
			flush()
		}
		if bufStart < 0 {
			bufStart = sp.start
		}
		buf.WriteString(sp.text)
		bufEnd = sp.end
	}
	flush()

	return chunks
}
