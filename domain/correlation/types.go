package correlation

import (
	"fmt"
	"math"

	"datalens/domain/core"
	"datalens/domain/record"
)

// DefaultSignificanceLevel is the p-value threshold below which a
// correlation is labeled significant.
const DefaultSignificanceLevel = 0.05

// Method defines the statistical test performed
type Method string

const (
	MethodPearson  Method = "pearson"  // linear correlation
	MethodSpearman Method = "spearman" // rank correlation
)

// Strength is a monotone bucketing of |coefficient|
type Strength string

const (
	StrengthStrong   Strength = "strong"    // |r| >= 0.7
	StrengthModerate Strength = "moderate"  // |r| >= 0.3
	StrengthWeak     Strength = "weak"      // |r| >= 0.1
	StrengthVeryWeak Strength = "very_weak" // below 0.1
)

// Direction of the association
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
)

// Relevance grades how actionable a correlation is
type Relevance string

const (
	RelevanceHigh   Relevance = "high"   // significant and |r| >= 0.5
	RelevanceMedium Relevance = "medium" // significant and |r| >= 0.3
	RelevanceLow    Relevance = "low"
)

// Interpretation is the deterministic classification of a result.
type Interpretation struct {
	Strength          Strength  `json:"strength"`
	Direction         Direction `json:"direction"`
	Significance      string    `json:"significance"`
	BusinessRelevance Relevance `json:"business_relevance"`
}

// Result is one computed pairwise correlation between a variable in one
// domain and a variable in another (or the same domain across time).
// Results are append-only: never mutated after creation.
type Result struct {
	ID             core.ID          `json:"id"`
	Domain1        record.Domain    `json:"domain1"`
	Domain2        record.Domain    `json:"domain2"`
	Variable1      core.VariableKey `json:"variable1"`
	Variable2      core.VariableKey `json:"variable2"`
	Coefficient    float64          `json:"coefficient"`
	PValue         float64          `json:"p_value"`
	Method         Method           `json:"method"`
	SampleSize     int              `json:"sample_size"`
	IsSignificant  bool             `json:"is_significant"`
	Interpretation Interpretation   `json:"interpretation"`
	DroppedRecords int              `json:"dropped_records,omitempty"` // inner-join casualties during alignment
	CreatedAt      core.Timestamp   `json:"created_at"`
}

// ClassifyStrength buckets |coefficient| at the {0.7, 0.3, 0.1} thresholds.
func ClassifyStrength(coefficient float64) Strength {
	abs := math.Abs(coefficient)
	switch {
	case abs >= 0.7:
		return StrengthStrong
	case abs >= 0.3:
		return StrengthModerate
	case abs >= 0.1:
		return StrengthWeak
	default:
		return StrengthVeryWeak
	}
}

// ClassifyDirection is positive iff coefficient >= 0.
func ClassifyDirection(coefficient float64) Direction {
	if coefficient >= 0 {
		return DirectionPositive
	}
	return DirectionNegative
}

// ClassifyRelevance grades business relevance from significance and effect size.
func ClassifyRelevance(coefficient float64, significant bool) Relevance {
	abs := math.Abs(coefficient)
	switch {
	case significant && abs >= 0.5:
		return RelevanceHigh
	case significant && abs >= 0.3:
		return RelevanceMedium
	default:
		return RelevanceLow
	}
}

// Interpret produces the full deterministic interpretation for a
// coefficient/p-value pair at the given significance level.
func Interpret(coefficient, pValue, significanceLevel float64) Interpretation {
	significant := pValue < significanceLevel
	significance := "not significant"
	if significant {
		significance = "significant"
	}
	return Interpretation{
		Strength:          ClassifyStrength(coefficient),
		Direction:         ClassifyDirection(coefficient),
		Significance:      significance,
		BusinessRelevance: ClassifyRelevance(coefficient, significant),
	}
}

// NewResult constructs a validated Result with its interpretation attached,
// using the default significance level.
func NewResult(d1, d2 record.Domain, v1, v2 core.VariableKey, coefficient, pValue float64, method Method, sampleSize int) (*Result, error) {
	return NewResultAtLevel(d1, d2, v1, v2, coefficient, pValue, method, sampleSize, DefaultSignificanceLevel)
}

// NewResultAtLevel constructs a validated Result judged against an
// explicit significance level.
func NewResultAtLevel(d1, d2 record.Domain, v1, v2 core.VariableKey, coefficient, pValue float64, method Method, sampleSize int, significanceLevel float64) (*Result, error) {
	if err := validate(coefficient, pValue, sampleSize); err != nil {
		return nil, err
	}
	significant := pValue < significanceLevel
	return &Result{
		ID:             core.NewID(),
		Domain1:        d1,
		Domain2:        d2,
		Variable1:      v1,
		Variable2:      v2,
		Coefficient:    coefficient,
		PValue:         pValue,
		Method:         method,
		SampleSize:     sampleSize,
		IsSignificant:  significant,
		Interpretation: Interpret(coefficient, pValue, significanceLevel),
		CreatedAt:      core.Now(),
	}, nil
}

func validate(coefficient, pValue float64, sampleSize int) error {
	if sampleSize < 2 {
		return fmt.Errorf("sample size must be >= 2, got %d", sampleSize)
	}
	if coefficient < -1.0 || coefficient > 1.0 {
		return fmt.Errorf("coefficient must be in [-1, 1], got %f", coefficient)
	}
	if pValue < 0.0 || pValue > 1.0 {
		return fmt.Errorf("p-value must be in [0, 1], got %f", pValue)
	}
	return nil
}

// SameFinding reports full-field equality of the statistical content,
// ignoring identity and creation time. Used to de-duplicate retrieval
// pools that were fetched through different store queries.
func (r Result) SameFinding(other Result) bool {
	return r.Domain1 == other.Domain1 &&
		r.Domain2 == other.Domain2 &&
		r.Variable1 == other.Variable1 &&
		r.Variable2 == other.Variable2 &&
		r.Coefficient == other.Coefficient &&
		r.PValue == other.PValue &&
		r.Method == other.Method &&
		r.SampleSize == other.SampleSize
}

// Describe renders the result for prompt context consumption.
func (r Result) Describe() string {
	sig := "not significant"
	if r.IsSignificant {
		sig = "significant"
	}
	return fmt.Sprintf("%s ↔ %s: %s vs %s (r=%.3f, p=%.4f, %s)",
		r.Domain1, r.Domain2, r.Variable1, r.Variable2, r.Coefficient, r.PValue, sig)
}
