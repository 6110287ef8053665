// Package pgvector provides PostgreSQL+pgvector based vector storage,
// the production VectorStore backend.
package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	pgvec "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore"
)

// chunkRecord is the GORM model for the vector_chunks table, created by
// the migrations in this package.
type chunkRecord struct {
	DocID     string       `gorm:"primaryKey;column:doc_id"`
	Embedding pgvec.Vector `gorm:"column:embedding"`
	Metadata  string       `gorm:"column:metadata"` // JSON-encoded map[string]string
}

func (chunkRecord) TableName() string { return "vector_chunks" }

// Config holds the dependencies a Client needs.
type Config struct {
	DB *gorm.DB
}

// Client implements vectorstore.Store over PostgreSQL + pgvector.
type Client struct {
	db    *gorm.DB
	sqlDB *sql.DB
}

// NewClient builds a Client from an already-migrated *gorm.DB.
func NewClient(cfg Config) (*Client, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("pgvector: DB is required")
	}
	sqlDB, err := cfg.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("pgvector: get sql.DB: %w", err)
	}
	return &Client{db: cfg.DB, sqlDB: sqlDB}, nil
}

func (c *Client) Upsert(ctx context.Context, docs []vectorstore.Document) error {
	if len(docs) == 0 {
		return nil
	}

	records := make([]chunkRecord, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Vector) == 0 {
			continue
		}
		records = append(records, chunkRecord{
			DocID:     doc.ID,
			Embedding: pgvec.NewVector(doc.Vector),
			Metadata:  encodeMetadata(doc.Metadata),
		})
	}
	if len(records) == 0 {
		return nil
	}

	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doc_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding", "metadata"}),
		}).
		Create(&records).Error
}

func (c *Client) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).Where("doc_id IN ?", ids).Delete(&chunkRecord{}).Error
}

func (c *Client) Search(ctx context.Context, query []float32, limit int, filter map[string]string) ([]vectorstore.Match, error) {
	if limit <= 0 {
		limit = 10
	}
	if len(query) == 0 {
		return nil, nil
	}

	queryVec := pgvec.NewVector(query)

	args := []any{queryVec}
	argIdx := 2
	var whereClauses []string
	for k, v := range filter {
		whereClauses = append(whereClauses, fmt.Sprintf("metadata LIKE $%d", argIdx))
		args = append(args, "%\""+k+"\":\""+v+"\"%")
		argIdx++
	}
	args = append(args, limit)

	sqlStr := fmt.Sprintf(`
		SELECT doc_id, metadata, embedding <=> $1 AS distance
		FROM vector_chunks
		%s
		ORDER BY distance
		LIMIT $%d`,
		buildWhereClause(whereClauses), argIdx,
	)

	rows, err := c.sqlDB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()

	var results []vectorstore.Match
	for rows.Next() {
		var (
			docID    string
			metaJSON string
			distance float64
		)
		if err := rows.Scan(&docID, &metaJSON, &distance); err != nil {
			return nil, fmt.Errorf("pgvector: scan row: %w", err)
		}
		results = append(results, vectorstore.Match{
			ID:       docID,
			Score:    vectorstore.DistanceToSimilarity(distance),
			Metadata: decodeMetadata(metaJSON),
		})
	}
	return results, rows.Err()
}

func (c *Client) Stats(ctx context.Context) (vectorstore.Stats, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&chunkRecord{}).Count(&count).Error; err != nil {
		return vectorstore.Stats{}, fmt.Errorf("pgvector: count: %w", err)
	}
	return vectorstore.Stats{TotalVectors: count}, nil
}

func (c *Client) Health(ctx context.Context) models.HealthStatus {
	if err := c.sqlDB.PingContext(ctx); err != nil {
		return models.HealthUnhealthy
	}
	return models.HealthHealthy
}

func buildWhereClause(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(clauses, " AND ")
}

var _ vectorstore.Store = (*Client)(nil)
