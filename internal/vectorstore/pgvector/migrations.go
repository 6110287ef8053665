package pgvector

import (
	"database/sql"
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Dimensions is the embedding width the vector_chunks table is created
// with. Changing it requires a new migration and a reindex.
const Dimensions = 1536

// Migrate enables the pgvector extension and brings the vector_chunks
// table up to date. Safe to call on every process start.
func Migrate(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("pgvector: get sql.DB: %w", err)
	}
	return runMigrations(db, sqlDB)
}

func runMigrations(db *gorm.DB, sqlDB *sql.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector extension: %w", err)
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "001_vector_chunks",
			Migrate: func(tx *gorm.DB) error {
				sqls := []string{
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vector_chunks (
						doc_id    TEXT PRIMARY KEY,
						embedding vector(%d) NOT NULL,
						metadata  TEXT NOT NULL DEFAULT '{}'
					)`, Dimensions),
					`CREATE INDEX IF NOT EXISTS idx_vector_chunks_embedding_hnsw
					 ON vector_chunks USING hnsw (embedding vector_cosine_ops)
					 WITH (m = 16, ef_construction = 64)`,
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP TABLE IF EXISTS vector_chunks").Error
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("run pgvector migrations: %w", err)
	}
	return nil
}
