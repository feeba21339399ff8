package ports

import "context"

// EmbeddingProvider converts texts to fixed-length vectors. The returned
// slice preserves input order with one vector per input text.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the provider's fixed vector size (e.g. 1536).
	Dimensions() int
}

// GenerationProvider produces answer text from a system and user prompt.
type GenerationProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error)
}
