package app

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"datalens/domain/correlation"
	"datalens/domain/rag"
	"datalens/internal"
	"datalens/ports"
)

// retrievalTimeout bounds the whole read fan-out; a hung store read is a
// failure, not a silently empty result.
const retrievalTimeout = 15 * time.Second

// RetrievalService assembles the per-query evidence pool: semantically
// similar entities plus the correlations relevant to their domains.
// Purely read-oriented; it tolerates partial store failures by logging
// them and proceeding with whatever succeeded.
type RetrievalService struct {
	index        *EmbeddingIndex
	correlations ports.CorrelationStore
	logger       *internal.Logger
}

// NewRetrievalService creates the retrieval orchestrator.
func NewRetrievalService(index *EmbeddingIndex, correlations ports.CorrelationStore, logger *internal.Logger) *RetrievalService {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &RetrievalService{
		index:        index,
		correlations: correlations,
		logger:       logger,
	}
}

// Retrieve runs the two read branches concurrently: the entity branch
// (semantic search, then correlations touching the implied domains) and
// the global-significance branch. The pools are merged, de-duplicated by
// full-field equality, re-ranked by |coefficient| and truncated to k.
func (s *RetrievalService) Retrieve(ctx context.Context, queryText string, k int) rag.RetrievalResult {
	if k <= 0 {
		k = DefaultRetrievalK
	}
	ctx, cancel := context.WithTimeout(ctx, retrievalTimeout)
	defer cancel()

	var (
		entities   []rag.EntityMatch
		domainPool []correlation.Result
		globalPool []correlation.Result
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hits, err := s.index.Search(gctx, queryText, nil, k)
		if err != nil {
			s.logger.Warn("entity search failed, continuing without entities: %v", err)
			return nil
		}
		entities = hits

		domains := (rag.RetrievalResult{Entities: hits}).Domains()
		if len(domains) == 0 {
			return nil
		}
		pool, err := s.correlations.TouchingDomains(gctx, domains, 2*k)
		if err != nil {
			s.logger.Warn("domain correlation lookup failed, continuing: %v", err)
			return nil
		}
		domainPool = pool
		return nil
	})

	g.Go(func() error {
		pool, err := s.correlations.GloballySignificant(gctx, k)
		if err != nil {
			s.logger.Warn("global correlation lookup failed, continuing: %v", err)
			return nil
		}
		globalPool = pool
		return nil
	})

	// Branch errors are absorbed above; Wait only joins.
	_ = g.Wait()

	merged := mergeCorrelations(domainPool, globalPool, k)
	return rag.RetrievalResult{
		Query:        queryText,
		Entities:     entities,
		Correlations: merged,
	}
}

// mergeCorrelations de-duplicates the global pool against the domain
// pool, sorts by |coefficient| descending and truncates to k.
func mergeCorrelations(domainPool, globalPool []correlation.Result, k int) []correlation.Result {
	merged := make([]correlation.Result, 0, len(domainPool)+len(globalPool))
	merged = append(merged, domainPool...)

	for _, g := range globalPool {
		duplicate := false
		for _, d := range domainPool {
			if g.SameFinding(d) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			merged = append(merged, g)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return math.Abs(merged[i].Coefficient) > math.Abs(merged[j].Coefficient)
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged
}
