// Package vectorstore defines the VectorStore collaborator interface
// and its adapters (pgvector, an embedded sqlite backend, and an
// in-memory backend for tests).
package vectorstore

import (
	"context"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

// Document is a single embedded unit handed to Upsert: a chunk or whole
// Content item plus whatever metadata the caller wants echoed back on
// Search.
type Document struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Match is one Search result. Score is always "higher is more similar"
// regardless of backend — distance-based backends map
// score = 1/(1+distance) before returning.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// Stats reports coarse size/health information about the store.
type Stats struct {
	TotalVectors int64
	Dimensions   int
}

// Store is the VectorStore collaborator interface from spec.md §6.
type Store interface {
	Upsert(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query []float32, limit int, filter map[string]string) ([]Match, error)
	Delete(ctx context.Context, ids []string) error
	Stats(ctx context.Context) (Stats, error)
	Health(ctx context.Context) models.HealthStatus
}

// DistanceToSimilarity maps a distance-backend's raw distance (0 =
// identical, growing with dissimilarity) onto the store's
// higher-is-more-similar score convention.
func DistanceToSimilarity(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}
