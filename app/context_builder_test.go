package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalens/domain/correlation"
	"datalens/domain/rag"
	"datalens/domain/record"
)

func retrievalWith(t *testing.T, results ...*correlation.Result) rag.RetrievalResult {
	t.Helper()
	out := rag.RetrievalResult{Query: "test"}
	for _, r := range results {
		out.Correlations = append(out.Correlations, *r)
	}
	return out
}

func TestBuild_SummaryAggregates(t *testing.T) {
	retrieval := retrievalWith(t,
		storedResult(t, record.DomainWeather, record.DomainMusic, "precipitation_mm", "plays", 0.80, 0.001),
		storedResult(t, record.DomainGaming, record.DomainMusic, "sessions", "plays", -0.40, 0.03),
		storedResult(t, record.DomainWeather, record.DomainGaming, "temp_c", "sessions", 0.10, 0.60),
	)

	qc := NewContextBuilder().Build(retrieval)

	assert.Equal(t, 3, qc.Summary.TotalCorrelations)
	assert.Equal(t, 2, qc.Summary.SignificantCorrelations)
	assert.InDelta(t, (0.80+0.40+0.10)/3.0, qc.Summary.AvgCorrelationStrength, 1e-9)
	assert.InDelta(t, 0.80, qc.Summary.MaxCorrelation, 1e-9)
	assert.InDelta(t, 0.001, qc.Summary.MinPValue, 1e-9)
	assert.Equal(t,
		[]record.Domain{record.DomainWeather, record.DomainMusic, record.DomainGaming},
		qc.Summary.DomainsInvolved)
}

func TestBuild_EmptyRetrieval(t *testing.T) {
	qc := NewContextBuilder().Build(rag.RetrievalResult{Query: "nothing"})

	assert.Zero(t, qc.Summary.TotalCorrelations)
	assert.Equal(t, 1.0, qc.Summary.MinPValue)
	assert.Zero(t, qc.Summary.AvgCorrelationStrength)
	assert.Empty(t, qc.Insights)
}

func TestBuild_InsightsFollowStrengthBuckets(t *testing.T) {
	retrieval := retrievalWith(t,
		storedResult(t, record.DomainGaming, record.DomainProductivity, "sessions", "tasks_done", 0.75, 0.001),
		storedResult(t, record.DomainRepositories, record.DomainProductivity, "commits", "tasks_done", 0.55, 0.01),
		// Strong but not significant: no insight.
		storedResult(t, record.DomainGaming, record.DomainRepositories, "sessions", "commits", 0.90, 0.20),
	)

	qc := NewContextBuilder().Build(retrieval)

	require.Len(t, qc.Insights, 2)
	assert.Contains(t, qc.Insights[0], "Strong correlation")
	assert.Contains(t, qc.Insights[1], "Moderate correlation")
}

func TestBuild_DomainPairInsights(t *testing.T) {
	retrieval := retrievalWith(t,
		storedResult(t, record.DomainMusic, record.DomainWeather, "plays", "precipitation_mm", 0.72, 0.001),
		storedResult(t, record.DomainEntertainment, record.DomainMusic, "releases", "plays", 0.60, 0.01),
	)

	qc := NewContextBuilder().Build(retrieval)

	joined := ""
	for _, s := range qc.Insights {
		joined += s + "\n"
	}
	assert.Contains(t, joined, "Weather conditions")
	assert.Contains(t, joined, "Entertainment releases")
}

func TestBuild_InsightsDeduplicated(t *testing.T) {
	a := storedResult(t, record.DomainWeather, record.DomainMusic, "precipitation_mm", "plays", 0.72, 0.001)
	b := storedResult(t, record.DomainWeather, record.DomainMusic, "humidity", "plays", 0.71, 0.002)
	qc := NewContextBuilder().Build(retrievalWith(t, a, b))

	n := 0
	for _, s := range qc.Insights {
		if s == "Weather conditions track music listening behavior; scheduling around the forecast may pay off." {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestBuild_FormattedTextSections(t *testing.T) {
	retrieval := retrievalWith(t,
		storedResult(t, record.DomainWeather, record.DomainMusic, "precipitation_mm", "plays", 0.72, 0.001),
	)
	retrieval.Entities = []rag.EntityMatch{
		{Record: rag.EmbeddingRecord{EntityID: "e-1", Domain: record.DomainMusic, EntityType: "track", SourceText: "rainy day jazz"}, Distance: 0.1},
	}

	qc := NewContextBuilder().Build(retrieval)

	assert.Contains(t, qc.FormattedText, "Statistical Summary:")
	assert.Contains(t, qc.FormattedText, "Top Correlations:")
	assert.Contains(t, qc.FormattedText, "Key Observations:")
	assert.Contains(t, qc.FormattedText, "Related Entities:")
	assert.Contains(t, qc.FormattedText, "[track] rainy day jazz (music, similarity 0.90)")
}

func TestBuild_FormattedTextCapsLists(t *testing.T) {
	var results []*correlation.Result
	vars := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, v := range vars {
		results = append(results, storedResult(t, record.DomainWeather, record.DomainMusic, v, "plays", 0.5, 0.01))
	}
	qc := NewContextBuilder().Build(retrievalWith(t, results...))

	assert.Contains(t, qc.FormattedText, "5. ")
	assert.NotContains(t, qc.FormattedText, "6. ")
}

func TestConfidence_ZeroOnlyOnTotalMiss(t *testing.T) {
	empty := NewContextBuilder().Build(rag.RetrievalResult{})
	assert.Equal(t, 0.0, Confidence(empty))

	weak := NewContextBuilder().Build(retrievalWith(t,
		storedResult(t, record.DomainWeather, record.DomainMusic, "x", "y", 0.02, 0.95)))
	assert.GreaterOrEqual(t, Confidence(weak), 0.1, "any evidence floors at 0.1")
}

func TestConfidence_StrongEvidenceIsCapped(t *testing.T) {
	retrieval := retrievalWith(t,
		storedResult(t, record.DomainWeather, record.DomainMusic, "x", "y", 0.99, 0.00001))
	retrieval.Entities = []rag.EntityMatch{
		{Record: rag.EmbeddingRecord{EntityID: "e-1"}, Distance: 0.0},
	}
	qc := NewContextBuilder().Build(retrieval)

	c := Confidence(qc)
	assert.LessOrEqual(t, c, 0.95)
	assert.Greater(t, c, 0.9)
}

func TestConfidence_WeightedComposition(t *testing.T) {
	// One significant of two, avg |r| = 0.5, min p = 0.01, no entities:
	// 0.4*0.5 + 0.3*0.5 + 0.2*0.99 = 0.548
	qc := NewContextBuilder().Build(retrievalWith(t,
		storedResult(t, record.DomainWeather, record.DomainMusic, "x", "y", 0.70, 0.01),
		storedResult(t, record.DomainGaming, record.DomainMusic, "z", "y", 0.30, 0.30),
	))
	assert.InDelta(t, 0.548, Confidence(qc), 1e-9)
}

func TestConfidence_EntitiesOnly(t *testing.T) {
	qc := NewContextBuilder().Build(rag.RetrievalResult{
		Entities: []rag.EntityMatch{
			{Record: rag.EmbeddingRecord{EntityID: "e-1"}, Distance: 0.2},
		},
	})
	// 0.1 * 0.8 = 0.08, floored to 0.1.
	assert.InDelta(t, 0.1, Confidence(qc), 1e-9)
}
