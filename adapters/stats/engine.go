package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"datalens/domain/core"
	"datalens/domain/correlation"
	"datalens/domain/record"
)

// Engine computes pairwise statistical correlations between numeric
// series. All computation is pure and deterministic: identical inputs
// produce bit-identical coefficients and p-values.
type Engine struct {
	significanceLevel float64
}

// NewEngine creates an engine at the default 0.05 significance level.
func NewEngine() *Engine {
	return NewEngineAtLevel(correlation.DefaultSignificanceLevel)
}

// NewEngineAtLevel creates an engine with an explicit significance level.
func NewEngineAtLevel(level float64) *Engine {
	if level <= 0 || level >= 1 {
		level = correlation.DefaultSignificanceLevel
	}
	return &Engine{significanceLevel: level}
}

// SignificanceLevel returns the p-value threshold in use.
func (e *Engine) SignificanceLevel() float64 {
	return e.significanceLevel
}

// Compute runs the chosen test over two equal-length series and returns
// the coefficient and two-tailed p-value.
func (e *Engine) Compute(x, y []float64, method correlation.Method) (float64, float64, error) {
	if len(x) != len(y) {
		return 0, 0, core.NewDimensionMismatchError(len(x), len(y))
	}
	if len(x) < 2 {
		return 0, 0, core.NewInsufficientDataError(len(x))
	}
	if isConstant(x) {
		return 0, 0, core.NewDegenerateSeriesError("series A")
	}
	if isConstant(y) {
		return 0, 0, core.NewDegenerateSeriesError("series B")
	}

	switch method {
	case correlation.MethodSpearman:
		rho := pearsonCoefficient(ranks(x), ranks(y))
		return rho, twoTailedPValue(rho, len(x)), nil
	default:
		r := pearsonCoefficient(x, y)
		return r, twoTailedPValue(r, len(x)), nil
	}
}

// Correlate computes a full cross-domain result: coefficient, p-value,
// significance judgment and interpretation.
func (e *Engine) Correlate(d1, d2 record.Domain, v1, v2 core.VariableKey, x, y []float64, method correlation.Method) (*correlation.Result, error) {
	coef, pValue, err := e.Compute(x, y, method)
	if err != nil {
		return nil, err
	}
	return correlation.NewResultAtLevel(d1, d2, v1, v2, coef, pValue, method, len(x), e.significanceLevel)
}

// pearsonCoefficient calculates Pearson's r via the computational formula.
func pearsonCoefficient(x, y []float64) float64 {
	n := float64(len(x))
	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}

	numerator := n*sumXY - sumX*sumY
	denominator := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))
	if denominator == 0 {
		return 0
	}

	r := numerator / denominator
	// Clamp against floating point drift
	if r > 1.0 {
		r = 1.0
	} else if r < -1.0 {
		r = -1.0
	}
	return r
}

// twoTailedPValue derives the p-value for a correlation coefficient from
// the t-distribution with n-2 degrees of freedom.
func twoTailedPValue(r float64, n int) float64 {
	df := float64(n - 2)
	if df <= 0 {
		// Two points always correlate perfectly; no test possible.
		return 1.0
	}
	if 1-r*r <= 0 {
		// Perfect correlation: t is unbounded.
		return 0.0
	}

	t := r * math.Sqrt(df/(1-r*r))
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * (1 - tDist.CDF(math.Abs(t)))
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	return p
}

// ranks converts values to ranks, averaging ties.
func ranks(data []float64) []float64 {
	n := len(data)
	type pair struct {
		value float64
		index int
	}
	pairs := make([]pair, n)
	for i, v := range data {
		pairs[i] = pair{value: v, index: i}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].value < pairs[j].value
	})

	out := make([]float64, n)
	i := 0
	for i < n {
		j := i + 1
		for j < n && pairs[j].value == pairs[i].value {
			j++
		}
		// Average rank across the tie group
		avgRank := float64(i+1) + float64(j-i-1)/2.0
		for k := i; k < j; k++ {
			out[pairs[k].index] = avgRank
		}
		i = j
	}
	return out
}

func isConstant(data []float64) bool {
	for i := 1; i < len(data); i++ {
		if data[i] != data[0] {
			return false
		}
	}
	return true
}
