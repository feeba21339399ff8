package stats

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"datalens/domain/core"
	"datalens/domain/correlation"
	"datalens/domain/record"
)

func TestPearson_PerfectLinearRelationship(t *testing.T) {
	engine := NewEngine()

	// y = 2x + 1 over 50 points
	n := 50
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		y[i] = 2*x[i] + 1
	}

	result, err := engine.Correlate(record.DomainWeather, record.DomainMusic, "temperature", "play_count", x, y, correlation.MethodPearson)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}

	if math.Abs(result.Coefficient-1.0) > 1e-9 {
		t.Errorf("Expected coefficient ~1.0, got %f", result.Coefficient)
	}
	if result.PValue > 1e-9 {
		t.Errorf("Expected p-value ~0, got %f", result.PValue)
	}
	if !result.IsSignificant {
		t.Error("Perfect linear relationship should be significant")
	}
	if result.Interpretation.Strength != correlation.StrengthStrong {
		t.Errorf("Expected strong, got %s", result.Interpretation.Strength)
	}
	if result.SampleSize != n {
		t.Errorf("Expected sample size %d, got %d", n, result.SampleSize)
	}
}

func TestPearson_IndependentSeries(t *testing.T) {
	engine := NewEngine()
	rng := rand.New(rand.NewSource(42))

	// Repeated trials: independent noise should mostly be non-significant
	trials := 20
	nonSignificant := 0
	for trial := 0; trial < trials; trial++ {
		n := 10
		x := make([]float64, n)
		y := make([]float64, n)
		for i := 0; i < n; i++ {
			x[i] = rng.NormFloat64()
			y[i] = rng.NormFloat64()
		}

		_, p, err := engine.Compute(x, y, correlation.MethodPearson)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}
		if p >= 0.05 {
			nonSignificant++
		}
	}

	if nonSignificant < trials/2 {
		t.Errorf("Expected majority of independent trials non-significant, got %d/%d", nonSignificant, trials)
	}
}

func TestCompute_BoundsHold(t *testing.T) {
	engine := NewEngine()
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		n := 5 + rng.Intn(40)
		x := make([]float64, n)
		y := make([]float64, n)
		for i := 0; i < n; i++ {
			x[i] = rng.NormFloat64() * 10
			y[i] = rng.NormFloat64()*5 + x[i]*rng.Float64()
		}

		for _, method := range []correlation.Method{correlation.MethodPearson, correlation.MethodSpearman} {
			r, p, err := engine.Compute(x, y, method)
			if err != nil {
				t.Fatalf("Compute(%s) failed: %v", method, err)
			}
			if r < -1.0 || r > 1.0 {
				t.Errorf("%s coefficient out of [-1,1]: %f", method, r)
			}
			if p < 0.0 || p > 1.0 {
				t.Errorf("%s p-value out of [0,1]: %f", method, p)
			}
		}
	}
}

func TestCompute_Symmetry(t *testing.T) {
	engine := NewEngine()
	x := []float64{3.1, 5.2, 1.0, 8.8, 4.4, 6.6, 2.2, 7.7}
	y := []float64{1.2, 4.5, 0.9, 9.1, 3.3, 5.8, 2.5, 6.0}

	r1, p1, err := engine.Compute(x, y, correlation.MethodPearson)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	r2, p2, err := engine.Compute(y, x, correlation.MethodPearson)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if math.Abs(r1) != math.Abs(r2) {
		t.Errorf("|coefficient| not symmetric: %f vs %f", r1, r2)
	}
	if p1 != p2 {
		t.Errorf("p-value not symmetric: %f vs %f", p1, p2)
	}
}

func TestCompute_Determinism(t *testing.T) {
	engine := NewEngine()
	rng := rand.New(rand.NewSource(99))

	n := 30
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.Float64() * 100
		y[i] = rng.Float64() * 100
	}

	r1, p1, _ := engine.Compute(x, y, correlation.MethodSpearman)
	r2, p2, _ := engine.Compute(x, y, correlation.MethodSpearman)

	if r1 != r2 || p1 != p2 {
		t.Errorf("Expected bit-identical results, got (%v,%v) vs (%v,%v)", r1, p1, r2, p2)
	}
}

func TestCompute_ErrorTaxonomy(t *testing.T) {
	engine := NewEngine()

	_, _, err := engine.Compute([]float64{1}, []float64{2}, correlation.MethodPearson)
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}

	_, _, err = engine.Compute([]float64{1, 2, 3}, []float64{2, 3}, correlation.MethodPearson)
	if !errors.Is(err, core.ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch, got %v", err)
	}

	_, _, err = engine.Compute([]float64{5, 5, 5, 5}, []float64{1, 2, 3, 4}, correlation.MethodPearson)
	if !errors.Is(err, core.ErrDegenerateSeries) {
		t.Errorf("Expected ErrDegenerateSeries, got %v", err)
	}
}

func TestSpearman_MonotonicNonLinear(t *testing.T) {
	engine := NewEngine()

	// Cubic growth is monotone but not linear: Spearman should report a
	// perfect rank correlation.
	n := 25
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i + 1)
		y[i] = x[i] * x[i] * x[i]
	}

	rho, p, err := engine.Compute(x, y, correlation.MethodSpearman)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if math.Abs(rho-1.0) > 1e-9 {
		t.Errorf("Expected rho ~1.0 for monotone data, got %f", rho)
	}
	if p > 1e-6 {
		t.Errorf("Expected near-zero p-value, got %f", p)
	}
}

func TestSpearman_TieHandling(t *testing.T) {
	got := ranks([]float64{10, 20, 20, 30})
	want := []float64{1, 2.5, 2.5, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank[%d]: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestStrengthBuckets_ThresholdExact(t *testing.T) {
	cases := []struct {
		coefficient float64
		want        correlation.Strength
	}{
		{0.75, correlation.StrengthStrong},
		{0.70, correlation.StrengthStrong},
		{0.35, correlation.StrengthModerate},
		{0.30, correlation.StrengthModerate},
		{0.15, correlation.StrengthWeak},
		{0.10, correlation.StrengthWeak},
		{0.05, correlation.StrengthVeryWeak},
		{-0.75, correlation.StrengthStrong},
		{-0.15, correlation.StrengthWeak},
	}
	for _, tc := range cases {
		if got := correlation.ClassifyStrength(tc.coefficient); got != tc.want {
			t.Errorf("ClassifyStrength(%v): expected %s, got %s", tc.coefficient, tc.want, got)
		}
	}
}

func TestInterpretation_DirectionAndRelevance(t *testing.T) {
	interp := correlation.Interpret(0.65, 0.001, correlation.DefaultSignificanceLevel)
	if interp.Direction != correlation.DirectionPositive {
		t.Errorf("Expected positive direction, got %s", interp.Direction)
	}
	if interp.BusinessRelevance != correlation.RelevanceHigh {
		t.Errorf("Expected high relevance, got %s", interp.BusinessRelevance)
	}

	interp = correlation.Interpret(-0.35, 0.02, correlation.DefaultSignificanceLevel)
	if interp.Direction != correlation.DirectionNegative {
		t.Errorf("Expected negative direction, got %s", interp.Direction)
	}
	if interp.BusinessRelevance != correlation.RelevanceMedium {
		t.Errorf("Expected medium relevance, got %s", interp.BusinessRelevance)
	}

	// Strong effect without significance stays low relevance
	interp = correlation.Interpret(0.8, 0.2, correlation.DefaultSignificanceLevel)
	if interp.BusinessRelevance != correlation.RelevanceLow {
		t.Errorf("Expected low relevance for non-significant result, got %s", interp.BusinessRelevance)
	}
}

func TestSignificance_MatchesLevel(t *testing.T) {
	engine := NewEngine()
	rng := rand.New(rand.NewSource(3))

	for trial := 0; trial < 30; trial++ {
		n := 8 + rng.Intn(30)
		x := make([]float64, n)
		y := make([]float64, n)
		for i := 0; i < n; i++ {
			x[i] = rng.NormFloat64()
			y[i] = x[i]*rng.Float64() + rng.NormFloat64()
		}

		result, err := engine.Correlate("music", "gaming", "tempo", "sessions", x, y, correlation.MethodPearson)
		if err != nil {
			t.Fatalf("Correlate failed: %v", err)
		}
		if result.IsSignificant != (result.PValue < 0.05) {
			t.Errorf("is_significant=%v inconsistent with p=%f", result.IsSignificant, result.PValue)
		}
	}
}
