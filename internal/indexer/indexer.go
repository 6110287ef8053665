// Package indexer implements the Indexer: turning Content into chunks
// and embeddings and persisting them to a VectorStore, idempotently.
package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NaggiDev/practical-rag-sub000/internal/cache"
	"github.com/NaggiDev/practical-rag-sub000/internal/chunking"
	"github.com/NaggiDev/practical-rag-sub000/internal/embedding"
	"github.com/NaggiDev/practical-rag-sub000/internal/models"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore"
)

// Indexer owns the content -> chunks -> embeddings -> VectorStore
// pipeline, with idempotence tracked through the CacheStore.
type Indexer struct {
	cache           *cache.Store
	embedder        embedding.Provider
	store           vectorstore.Store
	batchSize       int
	concurrency     int
	processedTTLSec int
}

// New builds an Indexer. processedContentTTLSec is the embedding TTL
// (spec.md §4.4: "getProcessedContent/setProcessedContent ... uses
// embedding TTL") applied to the cached IndexingResult; a non-positive
// value falls back to the embedding cache's own 24h default.
func New(cacheStore *cache.Store, embedder embedding.Provider, store vectorstore.Store, batchSize, concurrency, processedContentTTLSec int) *Indexer {
	if batchSize <= 0 {
		batchSize = 25
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if processedContentTTLSec <= 0 {
		processedContentTTLSec = 86400
	}
	return &Indexer{cache: cacheStore, embedder: embedder, store: store, batchSize: batchSize, concurrency: concurrency, processedTTLSec: processedContentTTLSec}
}

// AvailableStrategies reports the chunking strategies currently
// registered.
func (idx *Indexer) AvailableStrategies() []models.ChunkStrategy {
	names := chunking.Available()
	out := make([]models.ChunkStrategy, len(names))
	for i, n := range names {
		out[i] = models.ChunkStrategy(n)
	}
	return out
}

// IndexContent turns one Content item into chunks + embeddings and
// upserts them into the VectorStore, short-circuiting when the
// content's text hash hasn't changed since the last successful index.
func (idx *Indexer) IndexContent(ctx context.Context, content models.Content, strategy models.ChunkStrategy) (models.IndexingResult, error) {
	hash := contentHash(content.Text)
	if existing, ok := idx.cache.GetContentHash(ctx, content.ID); ok && existing == hash {
		return models.IndexingResult{
			ContentID: content.ID,
			Status:    models.IndexStatusSkipped,
			Metadata:  extractMetadata(content.Text),
		}, nil
	}

	strat, err := chunking.Get(string(strategy))
	if err != nil {
		return models.IndexingResult{}, fmt.Errorf("indexer: %w", err)
	}

	chunks := strat.Chunk(content.Text, chunking.DefaultOptions())

	fullTextVec, err := idx.embedder.Embed(ctx, content.Text)
	if err != nil {
		return models.IndexingResult{
			ContentID: content.ID,
			Status:    models.IndexStatusFailed,
			Metadata:  extractMetadata(content.Text),
			Errors:    []models.ChunkError{{ChunkIndex: -1, Error: err.Error()}},
		}, nil
	}

	docs, chunkErrors := idx.embedChunks(ctx, content, chunks)

	if fullTextVec != nil {
		docs = append(docs, vectorstore.Document{
			ID:       content.ID,
			Vector:   fullTextVec,
			Metadata: docMetadata(content, -1),
		})
	}

	if len(docs) > 0 {
		if err := idx.store.Upsert(ctx, docs); err != nil {
			return models.IndexingResult{}, fmt.Errorf("indexer: upsert vectors for %s: %w", content.ID, err)
		}
	}

	status := models.IndexStatusComplete
	switch {
	case len(chunkErrors) > 0 && len(chunkErrors) == len(chunks):
		status = models.IndexStatusFailed
	case len(chunkErrors) > 0:
		status = models.IndexStatusPartial
	}

	if status != models.IndexStatusFailed {
		_ = idx.cache.SetContentHash(ctx, content.ID, hash)
	}

	result := models.IndexingResult{
		ContentID:           content.ID,
		Status:              status,
		ChunkCount:          len(chunks),
		EmbeddingsGenerated: len(docs),
		Metadata:            extractMetadata(content.Text),
		Errors:              chunkErrors,
	}
	_ = idx.cache.SetProcessedContent(ctx, content.ID, result, idx.processedTTLSec)
	return result, nil
}

// embedChunks batch-embeds chunk texts up to idx.concurrency at a time,
// recording a ChunkError for any chunk whose embedding fails without
// aborting the rest.
func (idx *Indexer) embedChunks(ctx context.Context, content models.Content, chunks []chunking.Chunk) ([]vectorstore.Document, []models.ChunkError) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		errs := make([]models.ChunkError, len(chunks))
		for i := range chunks {
			errs[i] = models.ChunkError{ChunkIndex: i, Error: err.Error()}
		}
		return nil, errs
	}

	docs := make([]vectorstore.Document, 0, len(chunks))
	var errs []models.ChunkError
	for i, c := range chunks {
		if i >= len(vectors) || vectors[i] == nil {
			errs = append(errs, models.ChunkError{ChunkIndex: i, Error: "embedding missing from batch response"})
			continue
		}
		docs = append(docs, vectorstore.Document{
			ID:       fmt.Sprintf("%s:%d", content.ID, c.Index),
			Vector:   vectors[i],
			Metadata: docMetadata(content, c.Index),
		})
	}
	return docs, errs
}

// docMetadata builds the metadata payload stored alongside each vector,
// matching the key set internal/search expects to echo back on a Match
// (contentId/sourceId/title/text/category/tags/url/createdAt/modifiedAt).
func docMetadata(content models.Content, chunkIndex int) map[string]string {
	meta := map[string]string{
		"contentId":  content.ID,
		"sourceId":   content.SourceID,
		"title":      content.Title,
		"text":       content.Text,
		"category":   content.Category,
		"url":        content.URL,
		"createdAt":  content.UpdatedAt.Format(time.RFC3339),
		"modifiedAt": content.UpdatedAt.Format(time.RFC3339),
	}
	if len(content.Tags) > 0 {
		meta["tags"] = strings.Join(content.Tags, ",")
	}
	if chunkIndex >= 0 {
		meta["chunkIndex"] = fmt.Sprintf("%d", chunkIndex)
	}
	for k, v := range content.Metadata {
		if _, exists := meta[k]; !exists {
			meta[k] = v
		}
	}
	return meta
}

// BatchIndex indexes contents in groups of idx.batchSize, running each
// group's items concurrently up to idx.concurrency.
func (idx *Indexer) BatchIndex(ctx context.Context, contents []models.Content, strategy models.ChunkStrategy) (models.BatchResult, error) {
	batch := models.BatchResult{Results: make([]models.IndexingResult, 0, len(contents))}

	for start := 0; start < len(contents); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(contents) {
			end = len(contents)
		}
		group := contents[start:end]

		results := make([]models.IndexingResult, len(group))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(idx.concurrency)

		for i, c := range group {
			i, c := i, c
			g.Go(func() error {
				res, err := idx.IndexContent(gctx, c, strategy)
				if err != nil {
					res = models.IndexingResult{
						ContentID: c.ID,
						Status:    models.IndexStatusFailed,
						Errors:    []models.ChunkError{{ChunkIndex: -1, Error: err.Error()}},
					}
				}
				results[i] = res
				return nil
			})
		}
		_ = g.Wait()

		for _, res := range results {
			batch.Results = append(batch.Results, res)
			switch res.Status {
			case models.IndexStatusComplete:
				batch.SuccessCount++
			case models.IndexStatusPartial:
				batch.PartialCount++
			case models.IndexStatusFailed:
				batch.FailedCount++
			case models.IndexStatusSkipped:
				batch.SkippedCount++
			}
		}
	}

	return batch, nil
}

// UpdateIndex processes a batch of external change notifications for a
// source: created/updated changes are recorded as markers for the
// external ingest flow to pick up, deletions remove all cache keys and
// VectorStore entries for the content.
func (idx *Indexer) UpdateIndex(ctx context.Context, sourceID string, changes []models.ContentChange) (models.BatchResult, error) {
	batch := models.BatchResult{Results: make([]models.IndexingResult, 0, len(changes))}
	now := time.Now()

	for _, change := range changes {
		switch change.Kind {
		case models.ChangeDeleted:
			if err := idx.store.Delete(ctx, []string{change.ContentID}); err != nil {
				batch.Results = append(batch.Results, models.IndexingResult{
					ContentID: change.ContentID,
					Status:    models.IndexStatusFailed,
					Errors:    []models.ChunkError{{ChunkIndex: -1, Error: err.Error()}},
				})
				batch.FailedCount++
				continue
			}
			for _, ns := range []string{"content", "content_hash", "content_change", "indexed_content"} {
				_ = idx.cache.Invalidate(ctx, ns, change.ContentID)
			}
			batch.Results = append(batch.Results, models.IndexingResult{ContentID: change.ContentID, Status: models.IndexStatusComplete})
			batch.SuccessCount++

		case models.ChangeCreated, models.ChangeUpdated:
			_ = idx.cache.RecordContentChange(ctx, change.ContentID, change.Kind, now)
			batch.Results = append(batch.Results, models.IndexingResult{ContentID: change.ContentID, Status: models.IndexStatusComplete})
			batch.SuccessCount++
		}
	}

	_ = sourceID // retained for symmetry with the spec signature; per-source scoping happens upstream via the change records' contentIds
	return batch, nil
}
