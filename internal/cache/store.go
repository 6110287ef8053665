package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

// Store is the CacheStore: typed namespaces over a Backend, with a
// best-effort sibling ":meta" record maintained per key. A meta-update
// failure never fails or blocks the read it rides along with.
type Store struct {
	backend Backend

	hits   atomic.Int64
	misses atomic.Int64
}

// New builds a Store over the given Backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Namespace key builders, unexported helpers shared by Store's methods.
// Callers outside the package invalidate through Invalidate(namespace,
// pattern).
func queryKey(fp string) string        { return "query:" + fp }
func queryMetaKey(fp string) string     { return "query:" + fp + ":meta" }
func embeddingKey(h string) string      { return "embedding:" + h }
func embeddingMetaKey(h string) string  { return "embedding:" + h + ":meta" }
func contentKey(id string) string       { return "content:" + id }
func contentMetaKey(id string) string   { return "content:" + id + ":meta" }
func contentHashKey(id string) string   { return "content_hash:" + id }
func contentChangeKey(id string, ts int64) string {
	return fmt.Sprintf("content_change:%s:%d", id, ts)
}
func indexedContentKey(id string) string { return "indexed_content:" + id }

func (s *Store) get(ctx context.Context, key, metaKey string, out any) (bool, error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: get failed")
		s.misses.Add(1)
		return false, nil // cache errors are never fatal
	}
	if !ok {
		s.misses.Add(1)
		return false, nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: corrupt value, treating as miss")
		s.misses.Add(1)
		return false, nil
	}

	s.hits.Add(1)
	s.touchMeta(ctx, metaKey)
	return true, nil
}

// touchMeta updates accessCount/lastAccessedMs on a best-effort basis.
// Failures are logged, never propagated.
func (s *Store) touchMeta(ctx context.Context, metaKey string) {
	raw, ok, err := s.backend.Get(ctx, metaKey)
	if err != nil {
		return
	}
	var meta models.CacheMeta
	if ok {
		if err := json.Unmarshal(raw, &meta); err != nil {
			meta = models.CacheMeta{}
		}
	}
	meta.AccessCount++
	meta.LastAccessedMs = time.Now().UnixMilli()

	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := s.backend.SetEx(ctx, metaKey, data, 0); err != nil {
		log.Debug().Err(err).Str("key", metaKey).Msg("cache: meta touch failed")
	}
}

func (s *Store) set(ctx context.Context, key, metaKey string, value any, ttlSec int) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal value for %q: %w", key, err)
	}
	if err := s.backend.SetEx(ctx, key, data, ttlSec); err != nil {
		return fmt.Errorf("cache: set %q: %w", key, err)
	}

	meta := models.CacheMeta{
		TimestampMs: time.Now().UnixMilli(),
		TTLSec:      ttlSec,
	}
	metaData, err := json.Marshal(meta)
	if err == nil {
		if err := s.backend.SetEx(ctx, metaKey, metaData, ttlSec); err != nil {
			log.Debug().Err(err).Str("key", metaKey).Msg("cache: meta write failed")
		}
	}
	return nil
}

// GetQueryResult looks up a cached QueryResult by query fingerprint.
func (s *Store) GetQueryResult(ctx context.Context, fingerprint string) (models.QueryResult, bool) {
	var result models.QueryResult
	ok, _ := s.get(ctx, queryKey(fingerprint), queryMetaKey(fingerprint), &result)
	return result, ok
}

// SetQueryResult stores a QueryResult under its query fingerprint.
func (s *Store) SetQueryResult(ctx context.Context, fingerprint string, result models.QueryResult, ttlSec int) error {
	return s.set(ctx, queryKey(fingerprint), queryMetaKey(fingerprint), result, ttlSec)
}

// GetEmbedding looks up a cached embedding vector by text hash.
func (s *Store) GetEmbedding(ctx context.Context, textHash string) ([]float32, bool) {
	var vec []float32
	ok, _ := s.get(ctx, embeddingKey(textHash), embeddingMetaKey(textHash), &vec)
	return vec, ok
}

// SetEmbedding stores an embedding vector under its text hash.
func (s *Store) SetEmbedding(ctx context.Context, textHash string, vec []float32, ttlSec int) error {
	return s.set(ctx, embeddingKey(textHash), embeddingMetaKey(textHash), vec, ttlSec)
}

// BatchGetEmbeddings fetches multiple embeddings in one backend round
// trip, returning only the hashes that were present.
func (s *Store) BatchGetEmbeddings(ctx context.Context, textHashes []string) (map[string][]float32, error) {
	keys := make([]string, len(textHashes))
	keyToHash := make(map[string]string, len(textHashes))
	for i, h := range textHashes {
		k := embeddingKey(h)
		keys[i] = k
		keyToHash[k] = h
	}

	raw, err := s.backend.MGet(ctx, keys)
	if err != nil {
		log.Warn().Err(err).Msg("cache: batch get failed")
		return map[string][]float32{}, nil
	}

	result := make(map[string][]float32, len(raw))
	for k, data := range raw {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err != nil {
			continue
		}
		result[keyToHash[k]] = vec
		s.touchMeta(ctx, embeddingMetaKey(keyToHash[k]))
	}
	s.hits.Add(int64(len(result)))
	s.misses.Add(int64(len(textHashes) - len(result)))
	return result, nil
}

// BatchSetEmbeddings stores multiple embeddings sharing one TTL.
func (s *Store) BatchSetEmbeddings(ctx context.Context, vectors map[string][]float32, ttlSec int) error {
	items := make(map[string][]byte, len(vectors))
	for hash, vec := range vectors {
		data, err := json.Marshal(vec)
		if err != nil {
			continue
		}
		items[embeddingKey(hash)] = data
	}
	if err := s.backend.BatchSetEx(ctx, items, ttlSec); err != nil {
		return fmt.Errorf("cache: batch set embeddings: %w", err)
	}
	return nil
}

// GetContent looks up a raw, un-indexed Content item by id.
func (s *Store) GetContent(ctx context.Context, contentID string) (models.Content, bool) {
	var c models.Content
	ok, _ := s.get(ctx, contentKey(contentID), contentMetaKey(contentID), &c)
	return c, ok
}

// SetContent caches a raw Content item by id.
func (s *Store) SetContent(ctx context.Context, contentID string, content models.Content, ttlSec int) error {
	return s.set(ctx, contentKey(contentID), contentMetaKey(contentID), content, ttlSec)
}

// GetProcessedContent looks up a content item's stored indexing result
// by content id.
func (s *Store) GetProcessedContent(ctx context.Context, contentID string) (models.IndexingResult, bool) {
	var result models.IndexingResult
	ok, _ := s.get(ctx, indexedContentKey(contentID), contentMetaKey(contentID), &result)
	return result, ok
}

// SetProcessedContent stores a content item's indexing result.
func (s *Store) SetProcessedContent(ctx context.Context, contentID string, result models.IndexingResult, ttlSec int) error {
	return s.set(ctx, indexedContentKey(contentID), contentMetaKey(contentID), result, ttlSec)
}

// GetContentHash returns the stored 32-bit polynomial hash for a
// content item's text, used by the indexer to detect unchanged content.
func (s *Store) GetContentHash(ctx context.Context, contentID string) (uint32, bool) {
	raw, ok, err := s.backend.Get(ctx, contentHashKey(contentID))
	if err != nil || !ok {
		return 0, false
	}
	var h uint32
	if err := json.Unmarshal(raw, &h); err != nil {
		return 0, false
	}
	return h, true
}

// SetContentHash stores the content hash with no expiry: idempotence
// checks must survive cache TTL churn.
func (s *Store) SetContentHash(ctx context.Context, contentID string, hash uint32) error {
	data, err := json.Marshal(hash)
	if err != nil {
		return err
	}
	return s.backend.SetEx(ctx, contentHashKey(contentID), data, 0)
}

// RecordContentChange writes a change marker for updateIndex, keyed by
// content id and timestamp so multiple changes to the same content
// don't collide.
func (s *Store) RecordContentChange(ctx context.Context, contentID string, kind models.ContentChangeKind, ts time.Time) error {
	data, err := json.Marshal(kind)
	if err != nil {
		return err
	}
	return s.backend.SetEx(ctx, contentChangeKey(contentID, ts.UnixMilli()), data, 0)
}

// Invalidate deletes every key in a namespace, optionally narrowed to a
// glob pattern (e.g. a specific contentId or sourceId prefix).
func (s *Store) Invalidate(ctx context.Context, namespace string, pattern string) error {
	glob := namespace + ":"
	if pattern != "" {
		glob += pattern
	}
	glob += "*"

	keys, err := s.backend.Keys(ctx, glob)
	if err != nil {
		return fmt.Errorf("cache: invalidate scan %q: %w", glob, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.backend.Del(ctx, keys...); err != nil {
		return fmt.Errorf("cache: invalidate delete: %w", err)
	}
	return nil
}

// ClearAll wipes every key the store knows about.
func (s *Store) ClearAll(ctx context.Context) error {
	keys, err := s.backend.Keys(ctx, "*")
	if err != nil {
		return fmt.Errorf("cache: clearAll scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.backend.Del(ctx, keys...); err != nil {
		return fmt.Errorf("cache: clearAll delete: %w", err)
	}
	s.hits.Store(0)
	s.misses.Store(0)
	return nil
}

// Stats reports hit/miss counters plus whatever the backend reports
// about its own key count and memory usage.
func (s *Store) Stats(ctx context.Context) models.CacheStats {
	hits := s.hits.Load()
	misses := s.misses.Load()

	stats := models.CacheStats{Hits: hits, Misses: misses}
	if hits+misses > 0 {
		stats.HitRate = float64(hits) / float64(hits+misses)
	}

	if n, err := s.backend.DBSize(ctx); err == nil {
		stats.TotalKeys = n
	}
	if info, err := s.backend.Info(ctx); err == nil {
		stats.MemoryUsageBytes = parseIntField(info["used_memory"])
		stats.Evictions = parseIntField(info["evicted_keys"])
	}
	return stats
}

func parseIntField(s string) int64 {
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int64(c-'0')
	}
	return n
}

// Health pings the backend.
func (s *Store) Health(ctx context.Context) models.HealthStatus {
	if err := s.backend.Ping(ctx); err != nil {
		return models.HealthUnhealthy
	}
	return models.HealthHealthy
}
