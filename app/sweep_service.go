package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"datalens/adapters/stats"
	"datalens/domain/core"
	"datalens/domain/correlation"
	"datalens/domain/record"
	"datalens/internal"
	"datalens/ports"
)

// minNumericShare is the fraction of records that must carry a numeric
// value for a field to count as a sweep variable.
const minNumericShare = 0.8

// SweepReport summarizes one offline correlation sweep.
type SweepReport struct {
	PairsTried  int
	Saved       int
	Significant int
	Skipped     int // pairs rejected for data-quality reasons
}

// SweepService runs the offline computation path: loads every domain
// from the record source, correlates every cross-domain variable pair
// and persists the valid results.
type SweepService struct {
	source ports.RecordSource
	engine *stats.Engine
	store  ports.CorrelationStore
	logger *internal.Logger
}

// NewSweepService creates a sweep service.
func NewSweepService(source ports.RecordSource, engine *stats.Engine, store ports.CorrelationStore, logger *internal.Logger) *SweepService {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &SweepService{source: source, engine: engine, store: store, logger: logger}
}

// Run sweeps all cross-domain variable pairs with the given method.
// Same-domain pairs are never computed. Data-quality rejections are
// counted and skipped; store failures abort the sweep.
func (s *SweepService) Run(ctx context.Context, method correlation.Method) (*SweepReport, error) {
	domains, err := s.source.Domains(ctx)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i] < domains[j] })

	collections := make(map[record.Domain]record.Collection, len(domains))
	for _, d := range domains {
		coll, err := s.source.Collection(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", d, err)
		}
		collections[d] = coll
	}

	report := &SweepReport{}
	for i := 0; i < len(domains); i++ {
		for j := i + 1; j < len(domains); j++ {
			a, b := collections[domains[i]], collections[domains[j]]
			if err := s.sweepPair(ctx, a, b, method, report); err != nil {
				return report, err
			}
		}
	}

	s.logger.Info("sweep complete: %d pairs tried, %d saved (%d significant), %d skipped",
		report.PairsTried, report.Saved, report.Significant, report.Skipped)
	return report, nil
}

func (s *SweepService) sweepPair(ctx context.Context, a, b record.Collection, method correlation.Method, report *SweepReport) error {
	for _, varA := range numericVariables(a) {
		for _, varB := range numericVariables(b) {
			report.PairsTried++

			result, err := s.engine.CorrelateAligned(a, b, varA, varB, method)
			if err != nil {
				if core.IsDataQualityError(err) {
					s.logger.Debug("skip %s.%s vs %s.%s: %v", a.Domain, varA, b.Domain, varB, err)
					report.Skipped++
					continue
				}
				return fmt.Errorf("correlate %s.%s vs %s.%s: %w", a.Domain, varA, b.Domain, varB, err)
			}

			if err := s.store.Save(ctx, result); err != nil {
				return fmt.Errorf("%w: save result: %v", core.ErrRetrievalStore, err)
			}
			report.Saved++
			if result.IsSignificant {
				report.Significant++
			}
		}
	}
	return nil
}

// numericVariables returns the fields that are numeric for most records,
// in sorted order so sweeps are deterministic.
func numericVariables(c record.Collection) []core.VariableKey {
	if len(c.Records) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, rec := range c.Records {
		for name := range rec.Fields {
			if _, ok := rec.NumericField(name); ok {
				counts[name]++
			}
		}
	}

	threshold := int(minNumericShare * float64(len(c.Records)))
	var names []string
	for name, n := range counts {
		if n >= threshold {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	vars := make([]core.VariableKey, len(names))
	for i, name := range names {
		vars[i] = core.VariableKey(name)
	}
	return vars
}

var errNoDomains = errors.New("record source has no known domains")

// RunChecked behaves like Run but treats an empty source as an error so
// batch jobs fail loudly instead of reporting a silent zero-pair sweep.
func (s *SweepService) RunChecked(ctx context.Context, method correlation.Method) (*SweepReport, error) {
	domains, err := s.source.Domains(ctx)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	if len(domains) == 0 {
		return nil, errNoDomains
	}
	return s.Run(ctx, method)
}
