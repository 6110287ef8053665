// Package chunking splits Content text into overlapping or
// sentence-bounded windows for embedding, using one of the indexer's
// registered strategies.
package chunking

import "fmt"

// Options configures a chunking strategy run.
type Options struct {
	ChunkSize    int
	Overlap      int
	MinChunkSize int
}

// DefaultOptions returns the tuned defaults used when the indexer isn't
// given an explicit Options value.
func DefaultOptions() Options {
	return Options{ChunkSize: 1000, Overlap: 200, MinChunkSize: 100}
}

// Chunk is one contiguous slice of a Content's text, positioned relative
// to the start of the original text. Positions are contiguous: Chunks[i
// +1].Start <= Chunks[i].End for every adjacent pair produced by a
// strategy.
type Chunk struct {
	Index int
	Start int
	End   int
	Text  string
}

// Strategy is a named, pluggable chunking algorithm.
type Strategy interface {
	Name() string
	Chunk(text string, opts Options) []Chunk
}

// registry mirrors the host embedding package's init()-registered
// provider pattern, generalized from model providers to chunking
// strategies.
var registry = map[string]Strategy{}

// Register adds a Strategy under its Name(). Intended to be called from
// package init() the way the host's embedding providers register
// themselves.
func Register(s Strategy) {
	registry[s.Name()] = s
}

// Get looks up a registered strategy by name.
func Get(name string) (Strategy, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("chunking: unknown strategy %q", name)
	}
	return s, nil
}

// Available lists every registered strategy name, backing the
// Indexer.availableStrategies() operation.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

func init() {
	Register(SlidingWindow{})
	Register(SentenceBased{})
}
