package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema statements executed in order at startup. The embeddings table
// depends on the pgvector extension for the cosine distance operator.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,

	`CREATE TABLE IF NOT EXISTS correlations (
		id TEXT PRIMARY KEY,
		domain1 TEXT NOT NULL,
		domain2 TEXT NOT NULL,
		variable1 TEXT NOT NULL,
		variable2 TEXT NOT NULL,
		coefficient DOUBLE PRECISION NOT NULL,
		p_value DOUBLE PRECISION NOT NULL,
		method TEXT NOT NULL,
		sample_size INTEGER NOT NULL,
		is_significant BOOLEAN NOT NULL,
		strength TEXT NOT NULL,
		direction TEXT NOT NULL,
		business_relevance TEXT NOT NULL,
		dropped_records INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_correlations_domains
		ON correlations (domain1, domain2)`,

	`CREATE INDEX IF NOT EXISTS idx_correlations_significant
		ON correlations (is_significant) WHERE is_significant`,

	`CREATE TABLE IF NOT EXISTS embeddings (
		entity_id TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		source_text TEXT NOT NULL,
		vector vector(1536) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_embeddings_domain
		ON embeddings (domain)`,
}

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
