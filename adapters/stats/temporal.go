package stats

import (
	"sort"
	"time"

	"datalens/domain/core"
	"datalens/domain/correlation"
	"datalens/domain/record"
)

// ResolutionInterval defines the heartbeat of a time series.
type ResolutionInterval string

const (
	IntervalHour ResolutionInterval = "hour"
	IntervalDay  ResolutionInterval = "day"
	IntervalWeek ResolutionInterval = "week"
)

// Truncate snaps a timestamp to the interval grid.
func (r ResolutionInterval) Truncate(t time.Time) time.Time {
	switch r {
	case IntervalHour:
		return t.Truncate(time.Hour)
	case IntervalWeek:
		// Snap to the Monday of the ISO week
		day := t.Truncate(24 * time.Hour)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	default:
		return t.Truncate(24 * time.Hour)
	}
}

// Observation is a single timestamped numeric value.
type Observation struct {
	Timestamp time.Time
	Value     float64
}

// AlignTemporal joins two observation streams on a shared time axis at
// the given granularity. Multiple observations falling into the same
// bucket are averaged. Only buckets present in both streams survive;
// no further filtering is needed beyond the timestamp match.
func AlignTemporal(a, b []Observation, interval ResolutionInterval) AlignedPair {
	bucketsA := bucketize(a, interval)
	bucketsB := bucketize(b, interval)

	shared := make([]time.Time, 0, len(bucketsA))
	for ts := range bucketsA {
		if _, ok := bucketsB[ts]; ok {
			shared = append(shared, ts)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i].Before(shared[j]) })

	pair := AlignedPair{
		Keys:     make([]string, len(shared)),
		SeriesA:  make([]float64, len(shared)),
		SeriesB:  make([]float64, len(shared)),
		DroppedA: len(bucketsA) - len(shared),
		DroppedB: len(bucketsB) - len(shared),
	}
	for i, ts := range shared {
		pair.Keys[i] = ts.Format(time.RFC3339)
		pair.SeriesA[i] = bucketsA[ts]
		pair.SeriesB[i] = bucketsB[ts]
	}
	return pair
}

// CorrelateTemporal computes the correlation of two time-indexed series
// on a shared time grid.
func (e *Engine) CorrelateTemporal(d1, d2 record.Domain, v1, v2 core.VariableKey, a, b []Observation, interval ResolutionInterval, method correlation.Method) (*correlation.Result, error) {
	pair := AlignTemporal(a, b, interval)
	result, err := e.Correlate(d1, d2, v1, v2, pair.SeriesA, pair.SeriesB, method)
	if err != nil {
		return nil, err
	}
	result.DroppedRecords = pair.DroppedA + pair.DroppedB
	return result, nil
}

func bucketize(obs []Observation, interval ResolutionInterval) map[time.Time]float64 {
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, o := range obs {
		ts := interval.Truncate(o.Timestamp)
		sums[ts] += o.Value
		counts[ts]++
	}
	for ts := range sums {
		sums[ts] /= float64(counts[ts])
	}
	return sums
}
