// Package sqlitevec provides an embedded, cgo-free vector store backed
// by modernc.org/sqlite. Embeddings are stored as blobs and similarity
// is computed in-process by brute-force cosine distance, which is
// adequate for the single-node / development deployments this backend
// targets.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore"
)

// Client implements vectorstore.Store over a local SQLite file (or
// ":memory:") with embeddings stored as raw little-endian float32
// blobs and matched via in-process cosine similarity.
type Client struct {
	db *sql.DB
}

// Open creates/opens the SQLite database at path (":memory:" for an
// ephemeral in-process store) and ensures the schema exists.
func Open(path string) (*Client, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS vector_chunks (
			doc_id    TEXT PRIMARY KEY,
			embedding BLOB NOT NULL,
			metadata  TEXT NOT NULL DEFAULT '{}'
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitevec: create schema: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close() error { return c.db.Close() }

func (c *Client) Upsert(ctx context.Context, docs []vectorstore.Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitevec: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vector_chunks (doc_id, embedding, metadata)
		VALUES (?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET embedding = excluded.embedding, metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("sqlitevec: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		if len(doc.Vector) == 0 {
			continue
		}
		metaJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("sqlitevec: marshal metadata for %s: %w", doc.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, doc.ID, encodeVector(doc.Vector), string(metaJSON)); err != nil {
			return fmt.Errorf("sqlitevec: upsert %s: %w", doc.ID, err)
		}
	}

	return tx.Commit()
}

func (c *Client) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitevec: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM vector_chunks WHERE doc_id = ?`)
	if err != nil {
		return fmt.Errorf("sqlitevec: prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("sqlitevec: delete %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (c *Client) Search(ctx context.Context, query []float32, limit int, filter map[string]string) ([]vectorstore.Match, error) {
	if limit <= 0 {
		limit = 10
	}
	if len(query) == 0 {
		return nil, nil
	}

	rows, err := c.db.QueryContext(ctx, `SELECT doc_id, embedding, metadata FROM vector_chunks`)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: scan all: %w", err)
	}
	defer rows.Close()

	var candidates []vectorstore.Match
	for rows.Next() {
		var (
			docID    string
			embBlob  []byte
			metaJSON string
		)
		if err := rows.Scan(&docID, &embBlob, &metaJSON); err != nil {
			return nil, fmt.Errorf("sqlitevec: scan row: %w", err)
		}

		meta := decodeMetadata(metaJSON)
		if !matchesFilter(meta, filter) {
			continue
		}

		vec := decodeVector(embBlob)
		candidates = append(candidates, vectorstore.Match{
			ID:       docID,
			Score:    cosineSimilarity(query, vec),
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (c *Client) Stats(ctx context.Context) (vectorstore.Stats, error) {
	var count int64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_chunks`).Scan(&count); err != nil {
		return vectorstore.Stats{}, fmt.Errorf("sqlitevec: count: %w", err)
	}
	return vectorstore.Stats{TotalVectors: count}, nil
}

func (c *Client) Health(ctx context.Context) models.HealthStatus {
	if err := c.db.PingContext(ctx); err != nil {
		return models.HealthUnhealthy
	}
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

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

func decodeMetadata(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

var _ vectorstore.Store = (*Client)(nil)
