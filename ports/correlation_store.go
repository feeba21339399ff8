package ports

import (
	"context"

	"datalens/domain/correlation"
	"datalens/domain/record"
)

// CorrelationStore is the narrow read/write boundary to the externally
// owned, append-only correlation history.
type CorrelationStore interface {
	// Save appends a computed result. Results are never updated in place.
	Save(ctx context.Context, result *correlation.Result) error

	// TouchingDomains returns correlations where either side is in the
	// domain set, ordered by |coefficient| descending then p-value
	// ascending, capped at limit.
	TouchingDomains(ctx context.Context, domains []record.Domain, limit int) ([]correlation.Result, error)

	// GloballySignificant returns significant correlations across all
	// domains with the same ordering, capped at limit.
	GloballySignificant(ctx context.Context, limit int) ([]correlation.Result, error)
}
