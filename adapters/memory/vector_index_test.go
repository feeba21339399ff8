package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalens/domain/core"
	"datalens/domain/rag"
	"datalens/domain/record"
)

func rec(id string, domain record.Domain, vector []float64) rag.EmbeddingRecord {
	return rag.EmbeddingRecord{
		EntityID:   core.EntityID(id),
		Domain:     domain,
		EntityType: "track",
		SourceText: "entity " + id,
		Vector:     vector,
	}
}

func TestVectorIndex_NearestOrdering(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex()

	require.NoError(t, idx.Upsert(ctx, rec("a", record.DomainMusic, []float64{1, 0, 0})))
	require.NoError(t, idx.Upsert(ctx, rec("b", record.DomainMusic, []float64{0.9, 0.1, 0})))
	require.NoError(t, idx.Upsert(ctx, rec("c", record.DomainWeather, []float64{0, 1, 0})))

	matches, err := idx.Nearest(ctx, []float64{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "a", matches[0].Record.EntityID.String())
	assert.Equal(t, "b", matches[1].Record.EntityID.String())
	assert.Equal(t, "c", matches[2].Record.EntityID.String())

	// Ascending distance
	assert.LessOrEqual(t, matches[0].Distance, matches[1].Distance)
	assert.LessOrEqual(t, matches[1].Distance, matches[2].Distance)
}

func TestVectorIndex_KCappedAtIndexSize(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, idx.Upsert(ctx, rec(id, record.DomainGaming, []float64{1, 1, 0})))
	}

	matches, err := idx.Nearest(ctx, []float64{1, 1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 3, "cannot return more matches than stored records")
}

func TestVectorIndex_DomainFilter(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex()

	require.NoError(t, idx.Upsert(ctx, rec("m1", record.DomainMusic, []float64{1, 0, 0})))
	require.NoError(t, idx.Upsert(ctx, rec("w1", record.DomainWeather, []float64{1, 0, 0})))

	domain := record.DomainWeather
	matches, err := idx.Nearest(ctx, []float64{1, 0, 0}, 5, &domain)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, record.DomainWeather, matches[0].Record.Domain)
}

func TestVectorIndex_TieBreakByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex()

	// Identical vectors: equal distance, insertion order decides
	require.NoError(t, idx.Upsert(ctx, rec("first", record.DomainMusic, []float64{0, 0, 1})))
	require.NoError(t, idx.Upsert(ctx, rec("second", record.DomainMusic, []float64{0, 0, 1})))

	matches, err := idx.Nearest(ctx, []float64{0, 0, 1}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].Record.EntityID.String())
	assert.Equal(t, "second", matches[1].Record.EntityID.String())
}

func TestVectorIndex_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex()

	require.NoError(t, idx.Upsert(ctx, rec("a", record.DomainMusic, []float64{1, 0, 0})))
	require.NoError(t, idx.Upsert(ctx, rec("a", record.DomainMusic, []float64{0, 1, 0})))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "second upsert for same entity should overwrite, not duplicate")

	matches, err := idx.Nearest(ctx, []float64{0, 1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 0.0, matches[0].Distance, 1e-9)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, CosineDistance([]float64{1, 0}, []float64{1, 0}), 1e-9)
	assert.InDelta(t, 1.0, CosineDistance([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, 2.0, CosineDistance([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Equal(t, 1.0, CosineDistance([]float64{0, 0}, []float64{1, 0}), "zero vector is maximally distant")
	assert.Equal(t, 1.0, CosineDistance([]float64{1}, []float64{1, 0}), "dimension mismatch is maximally distant")
}
