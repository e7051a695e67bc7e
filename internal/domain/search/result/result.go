package result

import "github.com/roamlabs/tripdex/internal/domain/metadata"

// Result is a single search hit: a read-only projection of a document.
type Result struct {
	id     string
	score  float64
	meta   metadata.Map
	vector []float32
}

// New creates a search result.
func New(id string, score float64, meta metadata.Map, vector []float32) Result {
	return Result{id: id, score: score, meta: meta, vector: vector}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// Metadata returns the document metadata.
func (r *Result) Metadata() metadata.Map { return r.meta }

// Vector returns the document embedding (nil unless requested).
func (r *Result) Vector() []float32 { return r.vector }

// Stats summarizes a returned result list.
type Stats struct {
	Retrieved    int
	AverageScore float64
}

// Set is a ranked, truncated result list with summary stats.
type Set struct {
	results []Result
	stats   Stats
}

// NewSet computes stats over the post-truncation results. An empty
// list reports an average of 0, never NaN.
func NewSet(results []Result) Set {
	stats := Stats{Retrieved: len(results)}
	if len(results) > 0 {
		var sum float64
		for i := range results {
			sum += results[i].Score()
		}
		stats.AverageScore = sum / float64(len(results))
	}
	return Set{results: results, stats: stats}
}

// Results returns the ranked hits.
func (s *Set) Results() []Result { return s.results }

// Stats returns the summary statistics.
func (s *Set) Stats() Stats { return s.stats }
