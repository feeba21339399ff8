package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"datalens/domain/correlation"
	"datalens/domain/record"
	"datalens/ports"
)

// CorrelationStore is an in-memory, append-only correlation history.
type CorrelationStore struct {
	mu      sync.RWMutex
	results []correlation.Result
}

var _ ports.CorrelationStore = (*CorrelationStore)(nil)

// NewCorrelationStore creates an empty store.
func NewCorrelationStore() *CorrelationStore {
	return &CorrelationStore{}
}

// Save appends a result. Results are copied in; the store never mutates
// what it holds.
func (s *CorrelationStore) Save(ctx context.Context, result *correlation.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, *result)
	return nil
}

// TouchingDomains returns correlations where either side is in the
// domain set, ranked by |coefficient| desc then p-value asc.
func (s *CorrelationStore) TouchingDomains(ctx context.Context, domains []record.Domain, limit int) ([]correlation.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[record.Domain]bool, len(domains))
	for _, d := range domains {
		wanted[d] = true
	}

	var out []correlation.Result
	for _, r := range s.results {
		if wanted[r.Domain1] || wanted[r.Domain2] {
			out = append(out, r)
		}
	}
	rankResults(out)
	return truncate(out, limit), nil
}

// GloballySignificant returns significant correlations across all
// domains with the same ranking.
func (s *CorrelationStore) GloballySignificant(ctx context.Context, limit int) ([]correlation.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []correlation.Result
	for _, r := range s.results {
		if r.IsSignificant {
			out = append(out, r)
		}
	}
	rankResults(out)
	return truncate(out, limit), nil
}

func rankResults(results []correlation.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		ai, aj := math.Abs(results[i].Coefficient), math.Abs(results[j].Coefficient)
		if ai != aj {
			return ai > aj
		}
		return results[i].PValue < results[j].PValue
	})
}

func truncate(results []correlation.Result, limit int) []correlation.Result {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
