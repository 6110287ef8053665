// Package memory provides a dependency-free, in-process vectorstore.Store
// for unit tests of packages that collaborate with a VectorStore.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore"
)

// Store is a map-backed vectorstore.Store. Search does a brute-force
// cosine-similarity scan, fine at the sizes unit tests exercise.
type Store struct {
	mu   sync.RWMutex
	docs map[string]vectorstore.Document
}

// New builds an empty Store.
func New() *Store {
	return &Store{docs: make(map[string]vectorstore.Document)}
}

func (s *Store) Upsert(ctx context.Context, docs []vectorstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.docs, id)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query []float32, limit int, filter map[string]string) ([]vectorstore.Match, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []vectorstore.Match
	for _, d := range s.docs {
		if !matchesFilter(d.Metadata, filter) {
			continue
		}
		matches = append(matches, vectorstore.Match{
			ID:       d.ID,
			Score:    cosineSimilarity(query, d.Vector),
			Metadata: d.Metadata,
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *Store) Stats(ctx context.Context) (vectorstore.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vectorstore.Stats{TotalVectors: int64(len(s.docs))}, nil
}

func (s *Store) Health(ctx context.Context) models.HealthStatus {
	return models.HealthHealthy
}

func matchesFilter(meta map[string]string, filter map[string]string) bool {
	for k, v := range filter {
		if meta[k] != v {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ vectorstore.Store = (*Store)(nil)
