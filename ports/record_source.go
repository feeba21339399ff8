package ports

import (
	"context"

	"datalens/domain/record"
)

// RecordSource supplies named per-domain record collections. Only the
// offline correlation-computation path consumes it; the query-serving
// path never touches raw records.
type RecordSource interface {
	// Domains lists the domains the source can produce.
	Domains(ctx context.Context) ([]record.Domain, error)

	// Collection loads all records for one domain.
	Collection(ctx context.Context, domain record.Domain) (record.Collection, error)
}
