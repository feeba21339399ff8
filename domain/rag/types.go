package rag

import (
	"datalens/domain/core"
	"datalens/domain/correlation"
	"datalens/domain/record"
)

// QueryType selects the system prompt used for answer generation.
type QueryType string

const (
	QueryCorrelation QueryType = "correlation"
	QuerySearch      QueryType = "search"
	QueryInsights    QueryType = "insights"
)

// Valid reports whether q is a recognised query type.
func (q QueryType) Valid() bool {
	switch q {
	case QueryCorrelation, QuerySearch, QueryInsights:
		return true
	}
	return false
}

// EmbeddingRecord holds one entity's text description and its vector.
// Owned exclusively by the embedding index; re-created whenever the
// entity's source text changes.
type EmbeddingRecord struct {
	EntityID   core.EntityID  `json:"entity_id"`
	Domain     record.Domain  `json:"domain"`
	EntityType string         `json:"entity_type"`
	SourceText string         `json:"source_text"`
	Vector     []float64      `json:"vector"`
	CreatedAt  core.Timestamp `json:"created_at"`
}

// EntityMatch is one nearest-neighbor hit. Distance is cosine distance:
// smaller means more similar. Similarity() is the inverted view exposed
// to callers, where larger means better.
type EntityMatch struct {
	Record   EmbeddingRecord `json:"record"`
	Distance float64         `json:"distance"`
}

// Similarity converts cosine distance to a similarity score in [0, 1]
// for normalized vectors. Larger is better.
func (m EntityMatch) Similarity() float64 {
	s := 1.0 - m.Distance
	if s < 0 {
		return 0
	}
	return s
}

// RetrievalResult is the per-query evidence pool: ranked entity matches
// and ranked correlations. Ephemeral, never persisted.
type RetrievalResult struct {
	Query        string               `json:"query"`
	Entities     []EntityMatch        `json:"entities"`
	Correlations []correlation.Result `json:"correlations"`
}

// Domains returns the set of domains present in the entity matches, in
// first-seen order.
func (r RetrievalResult) Domains() []record.Domain {
	seen := make(map[record.Domain]bool)
	var domains []record.Domain
	for _, m := range r.Entities {
		if !seen[m.Record.Domain] {
			seen[m.Record.Domain] = true
			domains = append(domains, m.Record.Domain)
		}
	}
	return domains
}

// Empty reports a total retrieval miss.
func (r RetrievalResult) Empty() bool {
	return len(r.Entities) == 0 && len(r.Correlations) == 0
}

// StatisticalSummary aggregates the retrieved correlations.
type StatisticalSummary struct {
	TotalCorrelations       int             `json:"total_correlations"`
	SignificantCorrelations int             `json:"significant_correlations"`
	AvgCorrelationStrength  float64         `json:"avg_correlation_strength"` // mean |coefficient|, 0 if none
	MaxCorrelation          float64         `json:"max_correlation"`          // max |coefficient|, 0 if none
	MinPValue               float64         `json:"min_p_value"`              // 1.0 if none
	DomainsInvolved         []record.Domain `json:"domains_involved"`
}

// QueryContext is the aggregate handed to the answer generator.
// Lifetime = one query.
type QueryContext struct {
	Retrieval     RetrievalResult    `json:"retrieval"`
	Summary       StatisticalSummary `json:"statistical_summary"`
	Insights      []string           `json:"insights"`
	FormattedText string             `json:"formatted_text"`
}

// Response is the final answer object returned to the caller. Confidence
// is 0.0 on a total miss or a generation failure, otherwise clamped to
// [0.1, 0.95].
type Response struct {
	Query              string               `json:"query"`
	Answer             string               `json:"answer"`
	SourceCorrelations []correlation.Result `json:"source_correlations"`
	SourceEntities     []EntityMatch        `json:"source_entities"`
	Confidence         float64              `json:"confidence"`
	Metadata           map[string]string    `json:"metadata,omitempty"`
}
