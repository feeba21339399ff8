package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"datalens/domain/core"
	"datalens/domain/rag"
	"datalens/domain/record"
	"datalens/ports"
)

// VectorIndex is an in-memory vector store for tests and dependency-free
// development runs. Distance is cosine distance; ties break by insertion
// order (stable).
type VectorIndex struct {
	mu      sync.RWMutex
	records []rag.EmbeddingRecord
	byID    map[core.EntityID]int // entity ID -> position in records
}

var _ ports.VectorStore = (*VectorIndex)(nil)

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		byID: make(map[core.EntityID]int),
	}
}

// Upsert stores the record, overwriting in place when the entity already
// exists so insertion order stays stable.
func (idx *VectorIndex) Upsert(ctx context.Context, rec rag.EmbeddingRecord) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if pos, ok := idx.byID[rec.EntityID]; ok {
		idx.records[pos] = rec
		return nil
	}
	idx.byID[rec.EntityID] = len(idx.records)
	idx.records = append(idx.records, rec)
	return nil
}

// Nearest returns up to k matches by ascending cosine distance.
func (idx *VectorIndex) Nearest(ctx context.Context, vector []float64, k int, domain *record.Domain) ([]rag.EntityMatch, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if k <= 0 {
		return nil, nil
	}

	type scored struct {
		match rag.EntityMatch
		order int
	}
	var candidates []scored
	for i, rec := range idx.records {
		if domain != nil && rec.Domain != *domain {
			continue
		}
		candidates = append(candidates, scored{
			match: rag.EntityMatch{Record: rec, Distance: CosineDistance(vector, rec.Vector)},
			order: i,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].match.Distance != candidates[j].match.Distance {
			return candidates[i].match.Distance < candidates[j].match.Distance
		}
		return candidates[i].order < candidates[j].order
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]rag.EntityMatch, len(candidates))
	for i, c := range candidates {
		out[i] = c.match
	}
	return out, nil
}

// Count reports the number of stored records.
func (idx *VectorIndex) Count(ctx context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records), nil
}

// CosineDistance computes 1 - cosine similarity. Zero vectors are treated
// as maximally distant.
func CosineDistance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
