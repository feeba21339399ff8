package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"datalens/domain/core"
	"datalens/ports"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultTimeout        = 60 * time.Second
)

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// EmbeddingConfig holds settings for the embedding client.
type EmbeddingConfig struct {
	APIKey  string
	BaseURL string // overridable for compatible APIs
	Model   string
	Timeout time.Duration
}

// EmbeddingClient implements ports.EmbeddingProvider against the OpenAI
// embeddings endpoint.
type EmbeddingClient struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

var _ ports.EmbeddingProvider = (*EmbeddingClient)(nil)

// NewEmbeddingClient creates an embedding client from config.
func NewEmbeddingClient(cfg EmbeddingConfig) (*EmbeddingClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultEmbeddingModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	dims, ok := modelDimensions[model]
	if !ok {
		dims = 1536
	}

	return &EmbeddingClient{
		client:     &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      model,
		dimensions: dims,
	}, nil
}

// Dimensions returns the fixed vector size of the configured model.
func (c *EmbeddingClient) Dimensions() int {
	return c.dimensions
}

// Embed converts texts to vectors, preserving input order one-to-one.
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	type reqBody struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}
	raw, err := json.Marshal(reqBody{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrEmbeddingProvider, err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d: %s", core.ErrEmbeddingProvider, resp.StatusCode, string(respRaw))
	}

	type respBody struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	var decoded respBody
	if err := json.Unmarshal(respRaw, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(decoded.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", core.ErrEmbeddingProvider, len(texts), len(decoded.Data))
	}

	// The API documents order-preservation but also carries an index
	// field; honor the index so a reordered response cannot misalign
	// vectors with texts.
	vectors := make([][]float64, len(texts))
	for _, item := range decoded.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", core.ErrEmbeddingProvider, item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: missing embedding for input %d", core.ErrEmbeddingProvider, i)
		}
	}
	return vectors, nil
}
