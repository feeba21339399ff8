package stats

import (
	"sort"

	"datalens/domain/core"
	"datalens/domain/correlation"
	"datalens/domain/record"
)

// AlignedPair holds two series extracted from different domains after an
// inner join on the shared record key. Records without a counterpart in
// the other domain are dropped; the counts are kept for auditability.
type AlignedPair struct {
	Keys     []string
	SeriesA  []float64
	SeriesB  []float64
	DroppedA int // records in A with no counterpart in B (or non-numeric field)
	DroppedB int
}

// Length is the number of joined samples.
func (p AlignedPair) Length() int {
	return len(p.Keys)
}

// AlignCollections joins two domain collections on record key and
// extracts one numeric variable from each side. Join order is the sorted
// shared-key order, so repeated runs are deterministic.
func AlignCollections(a, b record.Collection, varA, varB core.VariableKey) AlignedPair {
	seriesA := a.Series(varA)
	seriesB := b.Series(varB)

	shared := make([]string, 0, len(seriesA))
	for key := range seriesA {
		if _, ok := seriesB[key]; ok {
			shared = append(shared, key)
		}
	}
	sort.Strings(shared)

	pair := AlignedPair{
		Keys:     shared,
		SeriesA:  make([]float64, len(shared)),
		SeriesB:  make([]float64, len(shared)),
		DroppedA: len(a.Records) - len(shared),
		DroppedB: len(b.Records) - len(shared),
	}
	for i, key := range shared {
		pair.SeriesA[i] = seriesA[key]
		pair.SeriesB[i] = seriesB[key]
	}
	return pair
}

// CorrelateAligned aligns two collections and computes the correlation
// over the joined series, recording the dropped-record count on the
// result.
func (e *Engine) CorrelateAligned(a, b record.Collection, varA, varB core.VariableKey, method correlation.Method) (*correlation.Result, error) {
	pair := AlignCollections(a, b, varA, varB)
	result, err := e.Correlate(a.Domain, b.Domain, varA, varB, pair.SeriesA, pair.SeriesB, method)
	if err != nil {
		return nil, err
	}
	result.DroppedRecords = pair.DroppedA + pair.DroppedB
	return result, nil
}
