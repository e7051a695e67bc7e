package request

import (
	"fmt"

	"github.com/roamlabs/tripdex/internal/domain"
	"github.com/roamlabs/tripdex/internal/domain/document"
	"github.com/roamlabs/tripdex/internal/domain/metadata"
	"github.com/roamlabs/tripdex/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	MaxTopK        = 500
)

// Request is a validated search query. The engine takes topK and
// threshold as explicit parameters; defaulting belongs to the boundary
// layer, never to this package.
type Request struct {
	query          string
	searchMode     mode.Mode
	filters        metadata.Filters
	topK           int
	threshold      float64
	boosts         map[string]float64
	featureWeights map[string]float64
	normalize      bool
	includeVectors bool
}

// New validates and creates a search Request.
// query must be non-empty, topK must be positive (clamped to MaxTopK),
// threshold must be in [0,1] for thresholded modes.
func New(
	query string,
	m mode.Mode,
	filters metadata.Filters,
	topK int,
	threshold float64,
	boosts map[string]float64,
	featureWeights map[string]float64,
	normalize bool,
	includeVectors bool,
) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidArgument)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidArgument, MaxQueryLength)
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid search mode %q", domain.ErrInvalidArgument, m)
	}
	if topK <= 0 {
		return Request{}, fmt.Errorf("%w: topK must be positive, got %d", domain.ErrInvalidArgument, topK)
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if m.Thresholded() && (threshold < 0 || threshold > 1) {
		return Request{}, fmt.Errorf("%w: threshold must be between 0 and 1", domain.ErrInvalidArgument)
	}
	for field := range filters {
		if field == "" {
			return Request{}, fmt.Errorf("%w: empty filter field name", domain.ErrInvalidArgument)
		}
	}
	if m == mode.Weighted && len(featureWeights) == 0 {
		return Request{}, fmt.Errorf("%w: weighted mode requires feature weights", domain.ErrInvalidArgument)
	}
	for feature := range featureWeights {
		if !document.IsFeature(feature) {
			return Request{}, fmt.Errorf("%w: unknown weighted feature %q", domain.ErrInvalidArgument, feature)
		}
	}

	return Request{
		query:          query,
		searchMode:     m,
		filters:        filters,
		topK:           topK,
		threshold:      threshold,
		boosts:         boosts,
		featureWeights: featureWeights,
		normalize:      normalize,
		includeVectors: includeVectors,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Mode returns the scoring strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Filters returns the candidate pre-filter.
func (r *Request) Filters() metadata.Filters { return r.filters }

// TopK returns the maximum number of results.
func (r *Request) TopK() int { return r.topK }

// Threshold returns the inclusive minimum score for thresholded modes.
func (r *Request) Threshold() float64 { return r.threshold }

// Boosts returns the hybrid per-field lexical boost weights.
func (r *Request) Boosts() map[string]float64 { return r.boosts }

// FeatureWeights returns the weighted-mode feature weights.
func (r *Request) FeatureWeights() map[string]float64 { return r.featureWeights }

// Normalize reports whether dot mode should normalize both operands.
func (r *Request) Normalize() bool { return r.normalize }

// IncludeVectors reports whether vectors should be included in results.
func (r *Request) IncludeVectors() bool { return r.includeVectors }
