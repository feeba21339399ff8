package app

import (
	"fmt"
	"math"
	"strings"

	"github.com/montanaflynn/stats"

	"datalens/domain/correlation"
	"datalens/domain/rag"
	"datalens/domain/record"
)

const (
	maxContextCorrelations = 5
	maxContextEntities     = 3
)

// ContextBuilder aggregates a retrieval result into the statistical
// summary, heuristic observations and formatted text block handed to the
// answer generator. Pure and synchronous.
type ContextBuilder struct{}

// NewContextBuilder creates a context builder.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{}
}

// Build derives the query context from retrieved evidence.
func (b *ContextBuilder) Build(retrieval rag.RetrievalResult) rag.QueryContext {
	summary := b.summarize(retrieval.Correlations)
	insights := b.insights(retrieval.Correlations)
	return rag.QueryContext{
		Retrieval:     retrieval,
		Summary:       summary,
		Insights:      insights,
		FormattedText: b.format(retrieval, summary, insights),
	}
}

func (b *ContextBuilder) summarize(results []correlation.Result) rag.StatisticalSummary {
	summary := rag.StatisticalSummary{
		TotalCorrelations: len(results),
		MinPValue:         1.0,
	}
	if len(results) == 0 {
		return summary
	}

	absCoefs := make([]float64, len(results))
	domainSeen := make(map[record.Domain]bool)
	for i, r := range results {
		absCoefs[i] = math.Abs(r.Coefficient)
		if r.IsSignificant {
			summary.SignificantCorrelations++
		}
		if r.PValue < summary.MinPValue {
			summary.MinPValue = r.PValue
		}
		for _, d := range []record.Domain{r.Domain1, r.Domain2} {
			if !domainSeen[d] {
				domainSeen[d] = true
				summary.DomainsInvolved = append(summary.DomainsInvolved, d)
			}
		}
	}

	mean, err := stats.Mean(absCoefs)
	if err == nil {
		summary.AvgCorrelationStrength = mean
	}
	max, err := stats.Max(absCoefs)
	if err == nil {
		summary.MaxCorrelation = max
	}
	return summary
}

// insights emits one templated observation per significant correlation,
// keyed off the strength bucket, plus domain-pair specials. The list is
// de-duplicated; thresholds are the contract, wording is illustrative.
func (b *ContextBuilder) insights(results []correlation.Result) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, r := range results {
		if !r.IsSignificant {
			continue
		}
		abs := math.Abs(r.Coefficient)
		switch {
		case abs >= 0.7:
			add(fmt.Sprintf("Strong correlation between %s (%s) and %s (%s): suitable for integrated planning and predictive modeling.",
				r.Variable1, r.Domain1, r.Variable2, r.Domain2))
		case abs >= 0.5:
			add(fmt.Sprintf("Moderate correlation between %s (%s) and %s (%s): worth investigating for causal relationships.",
				r.Variable1, r.Domain1, r.Variable2, r.Domain2))
		}

		if pairs(r, record.DomainWeather, record.DomainMusic) {
			add("Weather conditions track music listening behavior; scheduling around the forecast may pay off.")
		}
		if pairs(r, record.DomainEntertainment, record.DomainMusic) {
			add("Entertainment releases and music activity move together; cross-catalog promotion may compound reach.")
		}
	}
	return out
}

func pairs(r correlation.Result, a, b record.Domain) bool {
	return (r.Domain1 == a && r.Domain2 == b) || (r.Domain1 == b && r.Domain2 == a)
}

// format renders the single textual block for prompt consumption.
func (b *ContextBuilder) format(retrieval rag.RetrievalResult, summary rag.StatisticalSummary, insights []string) string {
	var sb strings.Builder

	sb.WriteString("Statistical Summary:\n")
	fmt.Fprintf(&sb, "- Correlations retrieved: %d (%d significant)\n", summary.TotalCorrelations, summary.SignificantCorrelations)
	fmt.Fprintf(&sb, "- Average strength: %.3f, maximum: %.3f, minimum p-value: %.4f\n",
		summary.AvgCorrelationStrength, summary.MaxCorrelation, summary.MinPValue)
	if len(summary.DomainsInvolved) > 0 {
		names := make([]string, len(summary.DomainsInvolved))
		for i, d := range summary.DomainsInvolved {
			names[i] = d.String()
		}
		fmt.Fprintf(&sb, "- Domains involved: %s\n", strings.Join(names, ", "))
	}

	if len(retrieval.Correlations) > 0 {
		sb.WriteString("\nTop Correlations:\n")
		for i, r := range retrieval.Correlations {
			if i >= maxContextCorrelations {
				break
			}
			fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Describe())
		}
	}

	if len(insights) > 0 {
		sb.WriteString("\nKey Observations:\n")
		for _, insight := range insights {
			fmt.Fprintf(&sb, "- %s\n", insight)
		}
	}

	if len(retrieval.Entities) > 0 {
		sb.WriteString("\nRelated Entities:\n")
		for i, m := range retrieval.Entities {
			if i >= maxContextEntities {
				break
			}
			fmt.Fprintf(&sb, "- [%s] %s (%s, similarity %.2f)\n",
				m.Record.EntityType, m.Record.SourceText, m.Record.Domain, m.Similarity())
		}
	}

	return sb.String()
}
