// Package search implements SearchEngine: semantic and hybrid retrieval
// over a VectorStore, with keyword fusion, metadata/recency boosting and
// diversity re-ranking.
package search

import (
	"github.com/NaggiDev/practical-rag-sub000/internal/config"
	"github.com/NaggiDev/practical-rag-sub000/internal/embedding"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore"
)

// Options configures a single search call.
type Options struct {
	// Filter is passed through to the VectorStore as-is.
	Filter map[string]string
	// KeywordBoost maps a keyword token to a score multiplier applied
	// in the keyword path.
	KeywordBoost map[string]float64

	TopK          int
	VectorWeight  float64
	KeywordWeight float64
	RerankResults bool
}

// DefaultOptions returns Options seeded from the global configuration.
func DefaultOptions() Options {
	cfg := config.Get()
	return Options{
		TopK:          cfg.MaxResultsPerSource,
		VectorWeight:  cfg.VectorWeight,
		KeywordWeight: cfg.KeywordWeight,
		RerankResults: cfg.RerankResults,
	}
}

// Engine is the SearchEngine: it turns a query into a ranked list of
// models.SearchHit by collaborating with an EmbeddingProvider and a
// VectorStore.
type Engine struct {
	embedder embedding.Provider
	store    vectorstore.Store
}

// NewEngine builds an Engine over the given EmbeddingProvider and
// VectorStore.
func NewEngine(embedder embedding.Provider, store vectorstore.Store) *Engine {
	return &Engine{embedder: embedder, store: store}
}
