// Package search implements the retrieval pipeline: embed the query,
// narrow candidates through the metadata index, score, rank, truncate.
package search

import (
	"context"
	"fmt"

	"github.com/roamlabs/tripdex/internal/domain"
	"github.com/roamlabs/tripdex/internal/domain/metadata"
	"github.com/roamlabs/tripdex/internal/domain/search/mode"
	"github.com/roamlabs/tripdex/internal/domain/search/request"
	"github.com/roamlabs/tripdex/internal/domain/search/result"
)

// Service coordinates retrieval. Each call is a read-only pipeline
// over the store; it never mutates documents or the index.
type Service struct {
	docs  CandidateSource
	embed Embedder
}

// New creates a search service.
func New(docs CandidateSource, embed Embedder) *Service {
	return &Service{docs: docs, embed: embed}
}

// Search embeds the query text, scores the candidate set in the
// requested mode, and returns ranked results with stats. The call
// either returns a complete result set or fails outright; there is no
// partially scored outcome.
func (s *Service) Search(ctx context.Context, req *request.Request) (result.Set, error) {
	if err := s.validateFilters(req.Filters()); err != nil {
		return result.Set{}, err
	}

	embResult, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return result.Set{}, fmt.Errorf("vectorize query: %w", err)
	}
	if len(embResult.Embedding) == 0 {
		// Scoring against a garbage vector would rank everything at 0.
		return result.Set{}, domain.ErrEmbeddingUnavailable
	}

	results, err := rank(embResult.Embedding, s.docs.Candidates(req.Filters()), rankParams{
		scoreMode:      req.Mode(),
		queryText:      req.Query(),
		topK:           req.TopK(),
		threshold:      req.Threshold(),
		boosts:         req.Boosts(),
		featureWeights: req.FeatureWeights(),
		normalize:      req.Normalize(),
		includeVectors: req.IncludeVectors(),
	})
	if err != nil {
		return result.Set{}, err
	}
	return result.NewSet(results), nil
}

// Similar ranks the store against an existing document's vector,
// excluding the document itself.
func (s *Service) Similar(ctx context.Context, id string, req *request.SimilarRequest) (result.Set, error) {
	if err := s.validateFilters(req.Filters()); err != nil {
		return result.Set{}, err
	}

	doc, err := s.docs.Get(id)
	if err != nil {
		return result.Set{}, fmt.Errorf("get reference document: %w", err)
	}
	if !doc.HasVector() {
		return result.Set{}, fmt.Errorf("%w: document %q has no vector", domain.ErrInvalidArgument, id)
	}

	results, err := rank(doc.Vector(), s.docs.Candidates(req.Filters()), rankParams{
		scoreMode:      mode.Similarity,
		topK:           req.TopK(),
		threshold:      req.Threshold(),
		includeVectors: req.IncludeVectors(),
		excludeID:      id,
	})
	if err != nil {
		return result.Set{}, err
	}
	return result.NewSet(results), nil
}

// validateFilters rejects filters on fields the index does not cover,
// before any embedding work is spent.
func (s *Service) validateFilters(filters metadata.Filters) error {
	for field := range filters {
		if !s.docs.Filterable(field) {
			return fmt.Errorf("%w: field %q is not filterable", domain.ErrInvalidArgument, field)
		}
	}
	return nil
}
