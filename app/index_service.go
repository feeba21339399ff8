package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"datalens/domain/core"
	"datalens/domain/rag"
	"datalens/domain/record"
	"datalens/internal"
	"datalens/ports"
)

const (
	// DefaultBatchSize respects provider throughput/token limits.
	DefaultBatchSize = 100

	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
)

// UpsertItem is one entity description queued for embedding.
type UpsertItem struct {
	EntityID   core.EntityID
	Domain     record.Domain
	EntityType string
	SourceText string
}

// FailedItem records an item that could not be embedded after retries.
// Failed items are excluded from the index entirely; a placeholder vector
// would corrupt every subsequent similarity ranking.
type FailedItem struct {
	Item   UpsertItem
	Reason string
}

// UpsertReport summarizes one batch ingestion run.
type UpsertReport struct {
	Indexed []rag.EmbeddingRecord
	Failed  []FailedItem
}

// IndexConfig tunes the embedding index service.
type IndexConfig struct {
	BatchSize       int
	MaxAttempts     int
	BackoffBase     time.Duration
	InterBatchDelay time.Duration // courtesy pacing between provider calls
}

// EmbeddingIndex converts entity descriptions to vectors and serves
// nearest-neighbor search over them. All outbound provider calls pass
// through a single-permit semaphore so upserts and searches never race a
// provider-side global rate limit.
type EmbeddingIndex struct {
	provider ports.EmbeddingProvider
	store    ports.VectorStore
	outbound *semaphore.Weighted
	limiter  *rate.Limiter
	cfg      IndexConfig
	logger   *internal.Logger
}

// NewEmbeddingIndex creates the index service.
func NewEmbeddingIndex(provider ports.EmbeddingProvider, store ports.VectorStore, cfg IndexConfig, logger *internal.Logger) *EmbeddingIndex {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.InterBatchDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.InterBatchDelay), 1)
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &EmbeddingIndex{
		provider: provider,
		store:    store,
		outbound: semaphore.NewWeighted(1),
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger,
	}
}

// Upsert embeds the items in fixed-size batches and stores the resulting
// records. A batch that keeps failing after retries marks all its items
// failed; alignment between texts and vectors is never guessed at.
func (idx *EmbeddingIndex) Upsert(ctx context.Context, items []UpsertItem) (*UpsertReport, error) {
	report := &UpsertReport{}

	for start := 0; start < len(items); start += idx.cfg.BatchSize {
		end := start + idx.cfg.BatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		if err := idx.limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("inter-batch wait: %w", err)
		}

		vectors, err := idx.embedWithRetry(ctx, textsOf(batch))
		if err != nil {
			idx.logger.Warn("embedding batch of %d failed after %d attempts: %v", len(batch), idx.cfg.MaxAttempts, err)
			for _, item := range batch {
				report.Failed = append(report.Failed, FailedItem{Item: item, Reason: err.Error()})
			}
			continue
		}

		for i, item := range batch {
			rec := rag.EmbeddingRecord{
				EntityID:   item.EntityID,
				Domain:     item.Domain,
				EntityType: item.EntityType,
				SourceText: item.SourceText,
				Vector:     vectors[i],
				CreatedAt:  core.Now(),
			}
			if err := idx.store.Upsert(ctx, rec); err != nil {
				idx.logger.Warn("store upsert for %s failed: %v", item.EntityID, err)
				report.Failed = append(report.Failed, FailedItem{Item: item, Reason: err.Error()})
				continue
			}
			report.Indexed = append(report.Indexed, rec)
		}
	}

	idx.logger.Info("embedding upsert: %d indexed, %d failed", len(report.Indexed), len(report.Failed))
	return report, nil
}

// Search embeds the query text once and returns the k closest records by
// ascending cosine distance, optionally scoped to one domain.
func (idx *EmbeddingIndex) Search(ctx context.Context, queryText string, domain *record.Domain, k int) ([]rag.EntityMatch, error) {
	vectors, err := idx.embedWithRetry(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := idx.store.Nearest(ctx, vectors[0], k, domain)
	if err != nil {
		return nil, fmt.Errorf("%w: nearest lookup: %v", core.ErrRetrievalStore, err)
	}
	return matches, nil
}

// Stats reports how many entities the index currently holds.
func (idx *EmbeddingIndex) Stats(ctx context.Context) (int, error) {
	return idx.store.Count(ctx)
}

// embedWithRetry calls the provider under the outbound semaphore,
// retrying with bounded exponential backoff.
func (idx *EmbeddingIndex) embedWithRetry(ctx context.Context, texts []string) ([][]float64, error) {
	var lastErr error
	for attempt := 0; attempt < idx.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := idx.cfg.BackoffBase * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := idx.outbound.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		vectors, err := idx.provider.Embed(ctx, texts)
		idx.outbound.Release(1)

		if err == nil {
			if len(vectors) != len(texts) {
				return nil, fmt.Errorf("%w: got %d vectors for %d texts", core.ErrEmbeddingProvider, len(vectors), len(texts))
			}
			return vectors, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: %v", core.ErrEmbeddingProvider, lastErr)
}

func textsOf(items []UpsertItem) []string {
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.SourceText
	}
	return texts
}
