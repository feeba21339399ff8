package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"datalens/domain/core"
	"datalens/domain/correlation"
	"datalens/domain/record"
	"datalens/ports"
)

// CorrelationRepository persists correlation results in Postgres.
// History is append-only: rows are inserted, never updated.
type CorrelationRepository struct {
	db *sqlx.DB
}

var _ ports.CorrelationStore = (*CorrelationRepository)(nil)

// NewCorrelationRepository creates a new correlation repository.
func NewCorrelationRepository(db *sqlx.DB) *CorrelationRepository {
	return &CorrelationRepository{db: db}
}

// Save appends a computed result.
func (r *CorrelationRepository) Save(ctx context.Context, result *correlation.Result) error {
	query := `
		INSERT INTO correlations (
			id, domain1, domain2, variable1, variable2,
			coefficient, p_value, method, sample_size, is_significant,
			strength, direction, business_relevance, dropped_records, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.ExecContext(ctx, query,
		result.ID.String(),
		string(result.Domain1),
		string(result.Domain2),
		result.Variable1.String(),
		result.Variable2.String(),
		result.Coefficient,
		result.PValue,
		string(result.Method),
		result.SampleSize,
		result.IsSignificant,
		string(result.Interpretation.Strength),
		string(result.Interpretation.Direction),
		string(result.Interpretation.BusinessRelevance),
		result.DroppedRecords,
		result.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert correlation: %w", err)
	}
	return nil
}

// TouchingDomains returns correlations where either domain is in the
// set, ranked by |coefficient| descending then p-value ascending.
func (r *CorrelationRepository) TouchingDomains(ctx context.Context, domains []record.Domain, limit int) ([]correlation.Result, error) {
	if len(domains) == 0 {
		return nil, nil
	}
	names := make([]string, len(domains))
	for i, d := range domains {
		names[i] = string(d)
	}

	query := `
		SELECT id, domain1, domain2, variable1, variable2,
		       coefficient, p_value, method, sample_size, is_significant,
		       strength, direction, business_relevance, dropped_records, created_at
		FROM correlations
		WHERE domain1 = ANY($1) OR domain2 = ANY($1)
		ORDER BY ABS(coefficient) DESC, p_value ASC
		LIMIT $2`

	return r.queryResults(ctx, query, pq.Array(names), limit)
}

// GloballySignificant returns significant correlations across all
// domains with the same ranking.
func (r *CorrelationRepository) GloballySignificant(ctx context.Context, limit int) ([]correlation.Result, error) {
	query := `
		SELECT id, domain1, domain2, variable1, variable2,
		       coefficient, p_value, method, sample_size, is_significant,
		       strength, direction, business_relevance, dropped_records, created_at
		FROM correlations
		WHERE is_significant
		ORDER BY ABS(coefficient) DESC, p_value ASC
		LIMIT $1`

	return r.queryResults(ctx, query, limit)
}

func (r *CorrelationRepository) queryResults(ctx context.Context, query string, args ...interface{}) ([]correlation.Result, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: correlation query: %v", core.ErrRetrievalStore, err)
	}
	defer rows.Close()

	var results []correlation.Result
	for rows.Next() {
		var (
			res                             correlation.Result
			id, d1, d2, v1, v2, method      string
			strength, direction, relevance  string
			createdAt                       time.Time
		)
		err := rows.Scan(
			&id, &d1, &d2, &v1, &v2,
			&res.Coefficient, &res.PValue, &method, &res.SampleSize, &res.IsSignificant,
			&strength, &direction, &relevance, &res.DroppedRecords, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan correlation row: %w", err)
		}
		res.ID = core.ID(id)
		res.Domain1 = record.Domain(d1)
		res.Domain2 = record.Domain(d2)
		res.Variable1 = core.VariableKey(v1)
		res.Variable2 = core.VariableKey(v2)
		res.Method = correlation.Method(method)
		res.Interpretation = correlation.Interpretation{
			Strength:          correlation.Strength(strength),
			Direction:         correlation.Direction(direction),
			Significance:      significanceLabel(res.IsSignificant),
			BusinessRelevance: correlation.Relevance(relevance),
		}
		res.CreatedAt = core.NewTimestamp(createdAt)
		results = append(results, res)
	}
	return results, rows.Err()
}

func significanceLabel(significant bool) string {
	if significant {
		return "significant"
	}
	return "not significant"
}
