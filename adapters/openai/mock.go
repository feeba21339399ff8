package openai

import (
	"context"
	"math"
)

// MockEmbeddingClient is a deterministic embedding provider for testing.
// Vectors are derived from text content so equal texts embed equally and
// similar prefixes land near each other.
type MockEmbeddingClient struct {
	Dim       int
	Error     error // set to simulate provider failure
	CallCount int
	Batches   [][]string // record of batch sizes received
}

func (m *MockEmbeddingClient) Dimensions() int {
	if m.Dim == 0 {
		return 8
	}
	return m.Dim
}

func (m *MockEmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	m.CallCount++
	m.Batches = append(m.Batches, texts)
	if m.Error != nil {
		return nil, m.Error
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = m.vectorFor(text)
	}
	return out, nil
}

// vectorFor hashes character windows into a normalized vector.
func (m *MockEmbeddingClient) vectorFor(text string) []float64 {
	dim := m.Dimensions()
	v := make([]float64, dim)
	for i, r := range text {
		v[i%dim] += float64(r%97) / 97.0
	}
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}

// MockChatClient is a canned generation provider for testing.
type MockChatClient struct {
	Response string
	Error    error

	LastSystemPrompt string
	LastUserPrompt   string
	LastTemperature  float64
	LastMaxTokens    int
}

func (m *MockChatClient) Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	m.LastSystemPrompt = systemPrompt
	m.LastUserPrompt = userPrompt
	m.LastTemperature = temperature
	m.LastMaxTokens = maxTokens
	if m.Error != nil {
		return "", m.Error
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return "Based on the retrieved correlations, the two variables move together.", nil
}
