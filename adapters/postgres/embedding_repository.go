package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"datalens/domain/core"
	"datalens/domain/rag"
	"datalens/domain/record"
	"datalens/ports"
)

// EmbeddingRepository persists embedding records in a pgvector column and
// answers nearest-neighbor queries with the cosine distance operator.
type EmbeddingRepository struct {
	db *sqlx.DB
}

var _ ports.VectorStore = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new embedding repository.
func NewEmbeddingRepository(db *sqlx.DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// Upsert stores the record, replacing any prior record for the entity.
func (r *EmbeddingRepository) Upsert(ctx context.Context, rec rag.EmbeddingRecord) error {
	query := `
		INSERT INTO embeddings (entity_id, domain, entity_type, source_text, vector, created_at)
		VALUES ($1, $2, $3, $4, $5::vector, $6)
		ON CONFLICT (entity_id) DO UPDATE SET
			domain = EXCLUDED.domain,
			entity_type = EXCLUDED.entity_type,
			source_text = EXCLUDED.source_text,
			vector = EXCLUDED.vector,
			created_at = EXCLUDED.created_at`

	createdAt := rec.CreatedAt.Time()
	if rec.CreatedAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		rec.EntityID.String(),
		string(rec.Domain),
		rec.EntityType,
		rec.SourceText,
		vectorLiteral(rec.Vector),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// Nearest returns the k closest records by cosine distance (the <=>
// operator). Ties break by created_at then entity_id for stable output.
func (r *EmbeddingRepository) Nearest(ctx context.Context, vector []float64, k int, domain *record.Domain) ([]rag.EntityMatch, error) {
	if k <= 0 {
		return nil, nil
	}

	var (
		query string
		args  []interface{}
	)
	if domain != nil {
		query = `
			SELECT entity_id, domain, entity_type, source_text,
			       vector <=> $1::vector AS distance, created_at
			FROM embeddings
			WHERE domain = $2
			ORDER BY distance ASC, created_at ASC, entity_id ASC
			LIMIT $3`
		args = []interface{}{vectorLiteral(vector), string(*domain), k}
	} else {
		query = `
			SELECT entity_id, domain, entity_type, source_text,
			       vector <=> $1::vector AS distance, created_at
			FROM embeddings
			ORDER BY distance ASC, created_at ASC, entity_id ASC
			LIMIT $2`
		args = []interface{}{vectorLiteral(vector), k}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: vector query: %v", core.ErrRetrievalStore, err)
	}
	defer rows.Close()

	var matches []rag.EntityMatch
	for rows.Next() {
		var (
			m                   rag.EntityMatch
			entityID, dom, typ  string
			sourceText          string
			createdAt           time.Time
		)
		if err := rows.Scan(&entityID, &dom, &typ, &sourceText, &m.Distance, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		m.Record = rag.EmbeddingRecord{
			EntityID:   core.EntityID(entityID),
			Domain:     record.Domain(dom),
			EntityType: typ,
			SourceText: sourceText,
			CreatedAt:  core.NewTimestamp(createdAt),
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Count reports how many embedding records exist.
func (r *EmbeddingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

// vectorLiteral renders a float slice in pgvector's input format:
// '[0.1,0.2,...]'.
func vectorLiteral(v []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
