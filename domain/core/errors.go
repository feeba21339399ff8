package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Data-quality errors raised by the correlation engine. These are not
	// retried: they indicate a problem with the upstream records, not a
	// transient fault.
	ErrInsufficientData  = errors.New("insufficient data for correlation")
	ErrDimensionMismatch = errors.New("series length mismatch")
	ErrDegenerateSeries  = errors.New("constant series has no defined correlation")

	// Provider/store errors on the query-serving path
	ErrEmbeddingProvider  = errors.New("embedding provider failure")
	ErrGenerationProvider = errors.New("generation provider failure")
	ErrRetrievalStore     = errors.New("retrieval store failure")

	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrEntityNotFound = fmt.Errorf("%w: entity", ErrNotFound)
	ErrDomainNotFound = fmt.Errorf("%w: domain", ErrNotFound)
)

// Error constructors with context

func NewInsufficientDataError(n int) error {
	return fmt.Errorf("%w: need at least 2 samples, got %d", ErrInsufficientData, n)
}

func NewDimensionMismatchError(lenX, lenY int) error {
	return fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, lenX, lenY)
}

func NewDegenerateSeriesError(variable string) error {
	return fmt.Errorf("%w: %s has zero variance", ErrDegenerateSeries, variable)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers

// IsDataQualityError reports whether err comes from the correlation
// engine's input validation rather than an external service.
func IsDataQualityError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrDegenerateSeries)
}

func IsProviderError(err error) bool {
	return errors.Is(err, ErrEmbeddingProvider) ||
		errors.Is(err, ErrGenerationProvider)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
