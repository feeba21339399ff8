package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalens/domain/correlation"
	"datalens/domain/record"
)

func seedResult(t *testing.T, s *CorrelationStore, d1, d2 record.Domain, coef, p float64) correlation.Result {
	t.Helper()
	result, err := correlation.NewResult(d1, d2, "var_a", "var_b", coef, p, correlation.MethodPearson, 40)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), result))
	return *result
}

func TestCorrelationStore_TouchingDomainsRanking(t *testing.T) {
	s := NewCorrelationStore()

	seedResult(t, s, record.DomainWeather, record.DomainMusic, 0.4, 0.01)
	seedResult(t, s, record.DomainMusic, record.DomainGaming, -0.8, 0.001)
	seedResult(t, s, record.DomainGaming, record.DomainProductivity, 0.9, 0.0001)
	seedResult(t, s, record.DomainWeather, record.DomainEntertainment, 0.2, 0.3)

	results, err := s.TouchingDomains(context.Background(), []record.Domain{record.DomainMusic}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// |coefficient| descending
	assert.Equal(t, -0.8, results[0].Coefficient)
	assert.Equal(t, 0.4, results[1].Coefficient)
}

func TestCorrelationStore_TouchingDomainsLimit(t *testing.T) {
	s := NewCorrelationStore()
	for i := 0; i < 5; i++ {
		seedResult(t, s, record.DomainWeather, record.DomainMusic, 0.3+float64(i)*0.1, 0.01)
	}

	results, err := s.TouchingDomains(context.Background(), []record.Domain{record.DomainWeather}, 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestCorrelationStore_GloballySignificant(t *testing.T) {
	s := NewCorrelationStore()

	seedResult(t, s, record.DomainWeather, record.DomainMusic, 0.65, 0.001)
	seedResult(t, s, record.DomainGaming, record.DomainMusic, 0.2, 0.5) // not significant

	results, err := s.GloballySignificant(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].IsSignificant)
	assert.Equal(t, 0.65, results[0].Coefficient)
}

func TestCorrelationStore_EqualStrengthOrdersByPValue(t *testing.T) {
	s := NewCorrelationStore()

	seedResult(t, s, record.DomainWeather, record.DomainMusic, 0.5, 0.04)
	seedResult(t, s, record.DomainGaming, record.DomainMusic, -0.5, 0.001)

	results, err := s.TouchingDomains(context.Background(), []record.Domain{record.DomainMusic}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0.001, results[0].PValue)
}
