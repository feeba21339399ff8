package app

import (
	"context"

	"datalens/domain/rag"
	"datalens/internal"
)

// DefaultRetrievalK is the evidence pool size when the caller passes k <= 0.
const DefaultRetrievalK = 5

// QueryService is the top-level pipeline: retrieve, build context,
// generate. It absorbs every downstream failure into a degraded response
// so callers never see an error.
type QueryService struct {
	retrieval *RetrievalService
	builder   *ContextBuilder
	generator *AnswerGenerator
	logger    *internal.Logger
}

// NewQueryService wires the full answering pipeline.
func NewQueryService(retrieval *RetrievalService, builder *ContextBuilder, generator *AnswerGenerator, logger *internal.Logger) *QueryService {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &QueryService{
		retrieval: retrieval,
		builder:   builder,
		generator: generator,
		logger:    logger,
	}
}

// QueryCorrelations answers a natural-language question over the indexed
// correlations and entities. Unknown query types fall back to the
// correlation prompt; k <= 0 falls back to DefaultRetrievalK.
func (s *QueryService) QueryCorrelations(ctx context.Context, queryText string, queryType rag.QueryType, k int) rag.Response {
	if !queryType.Valid() {
		queryType = rag.QueryCorrelation
	}
	if k <= 0 {
		k = DefaultRetrievalK
	}

	retrieval := s.retrieval.Retrieve(ctx, queryText, k)
	s.logger.Debug("retrieved %d correlations, %d entities for %q",
		len(retrieval.Correlations), len(retrieval.Entities), queryText)

	qc := s.builder.Build(retrieval)
	return s.generator.Generate(ctx, queryText, queryType, qc)
}
