package app

import (
	"context"
	"fmt"
	"math"

	"datalens/domain/rag"
	"datalens/internal"
	"datalens/ports"
)

const (
	answerTemperature = 0.2
	answerMaxTokens   = 700

	// Confidence bounds whenever any evidence was retrieved.
	confidenceFloor   = 0.10
	confidenceCeiling = 0.95
)

const correlationSystemPrompt = `You are a data analyst explaining statistical relationships found across
heterogeneous datasets. Ground every claim in the correlations provided in
the context: cite coefficients and p-values, name the domains involved, and
distinguish correlation from causation. If the evidence is weak or
non-significant, say so plainly. Do not invent relationships that are not
in the context.`

const searchSystemPrompt = `You are a data analyst answering a lookup question over an indexed catalog
of entities spanning several datasets. Answer from the related entities and
correlations in the context. Mention which dataset each entity comes from.
If the context does not contain what was asked for, say so rather than
guessing.`

const insightsSystemPrompt = `You are a data analyst summarizing cross-dataset patterns for a
non-technical reader. Work only from the statistical summary, observations
and correlations in the context. Lead with the most actionable patterns,
note effect sizes in plain language, and flag any relationship that may be
coincidental.`

// AnswerGenerator turns a query context into a natural-language answer
// with an evidence-derived confidence score.
type AnswerGenerator struct {
	provider ports.GenerationProvider
	logger   *internal.Logger
}

// NewAnswerGenerator creates an answer generator.
func NewAnswerGenerator(provider ports.GenerationProvider, logger *internal.Logger) *AnswerGenerator {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &AnswerGenerator{provider: provider, logger: logger}
}

// Generate produces the final response for a query. It never returns an
// error: a total retrieval miss short-circuits the provider call, and a
// provider failure degrades to an apologetic answer with zero confidence.
func (g *AnswerGenerator) Generate(ctx context.Context, queryText string, queryType rag.QueryType, qc rag.QueryContext) rag.Response {
	resp := rag.Response{
		Query:              queryText,
		SourceCorrelations: qc.Retrieval.Correlations,
		SourceEntities:     qc.Retrieval.Entities,
		Metadata: map[string]string{
			"query_type": string(queryType),
		},
	}

	if qc.Retrieval.Empty() {
		resp.Answer = "I could not find any correlations or indexed entities relevant to this question. Try rephrasing it, or broaden it to one of the analyzed datasets."
		resp.Confidence = 0.0
		return resp
	}

	user := fmt.Sprintf("Question: %s\n\nContext:\n%s", queryText, qc.FormattedText)
	answer, err := g.provider.Generate(ctx, systemPromptFor(queryType), user, answerTemperature, answerMaxTokens)
	if err != nil {
		g.logger.Error("answer generation failed: %v", err)
		resp.Answer = "I found relevant evidence but was unable to generate an answer right now. Please try again."
		resp.Confidence = 0.0
		return resp
	}

	resp.Answer = answer
	resp.Confidence = Confidence(qc)
	return resp
}

func systemPromptFor(t rag.QueryType) string {
	switch t {
	case rag.QuerySearch:
		return searchSystemPrompt
	case rag.QueryInsights:
		return insightsSystemPrompt
	default:
		return correlationSystemPrompt
	}
}

// Confidence scores a query context from its evidence alone. Zero means a
// total retrieval miss; anything else lands in [0.10, 0.95]. The weights
// favor significance, then effect size, then p-value, with a small bonus
// for close entity matches.
func Confidence(qc rag.QueryContext) float64 {
	if qc.Retrieval.Empty() {
		return 0.0
	}

	var score float64
	if qc.Summary.TotalCorrelations > 0 {
		sigRatio := float64(qc.Summary.SignificantCorrelations) / float64(qc.Summary.TotalCorrelations)
		score += 0.4 * sigRatio
		score += 0.3 * qc.Summary.AvgCorrelationStrength
		score += 0.2 * (1.0 - qc.Summary.MinPValue)
	}
	if n := len(qc.Retrieval.Entities); n > 0 {
		var simSum float64
		for _, m := range qc.Retrieval.Entities {
			simSum += m.Similarity()
		}
		score += 0.1 * (simSum / float64(n))
	}

	return math.Min(confidenceCeiling, math.Max(confidenceFloor, score))
}
