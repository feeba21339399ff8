package ports

import (
	"context"

	"datalens/domain/rag"
	"datalens/domain/record"
)

// VectorStore persists embedding records and answers nearest-neighbor
// queries by cosine distance. Smaller distance means more similar; ties
// break by insertion order.
type VectorStore interface {
	// Upsert stores the record, replacing any prior record for the same
	// entity ID.
	Upsert(ctx context.Context, rec rag.EmbeddingRecord) error

	// Nearest returns the k records closest to the query vector by
	// ascending cosine distance. A nil domain searches all domains.
	Nearest(ctx context.Context, vector []float64, k int, domain *record.Domain) ([]rag.EntityMatch, error)

	// Count reports how many records the store holds.
	Count(ctx context.Context) (int, error)
}
