package request

import (
	"fmt"

	"github.com/roamlabs/tripdex/internal/domain"
	"github.com/roamlabs/tripdex/internal/domain/metadata"
)

// SimilarRequest is a validated "find similar documents" query. There
// is no query text: the reference document's stored vector is the query.
type SimilarRequest struct {
	filters        metadata.Filters
	topK           int
	threshold      float64
	includeVectors bool
}

// NewSimilar validates and creates a SimilarRequest.
func NewSimilar(
	filters metadata.Filters, topK int, threshold float64, includeVectors bool,
) (SimilarRequest, error) {
	if topK <= 0 {
		return SimilarRequest{}, fmt.Errorf("%w: topK must be positive, got %d", domain.ErrInvalidArgument, topK)
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if threshold < 0 || threshold > 1 {
		return SimilarRequest{}, fmt.Errorf("%w: threshold must be between 0 and 1", domain.ErrInvalidArgument)
	}
	for field := range filters {
		if field == "" {
			return SimilarRequest{}, fmt.Errorf("%w: empty filter field name", domain.ErrInvalidArgument)
		}
	}

	return SimilarRequest{
		filters:        filters,
		topK:           topK,
		threshold:      threshold,
		includeVectors: includeVectors,
	}, nil
}

// Filters returns the candidate pre-filter.
func (r *SimilarRequest) Filters() metadata.Filters { return r.filters }

// TopK returns the maximum number of results.
func (r *SimilarRequest) TopK() int { return r.topK }

// Threshold returns the inclusive minimum similarity.
func (r *SimilarRequest) Threshold() float64 { return r.threshold }

// IncludeVectors reports whether vectors should be included in results.
func (r *SimilarRequest) IncludeVectors() bool { return r.includeVectors }
