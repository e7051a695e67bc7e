package search

import (
	"fmt"
	"iter"
	"sort"

	"github.com/roamlabs/tripdex/internal/domain/document"
	"github.com/roamlabs/tripdex/internal/domain/search/mode"
	"github.com/roamlabs/tripdex/internal/domain/search/result"
	"github.com/roamlabs/tripdex/internal/domain/vector"
)

// rankParams carries one ranking pass's inputs. Both Search and
// Similar funnel into rank with the appropriate parameters.
type rankParams struct {
	scoreMode      mode.Mode
	queryText      string
	topK           int
	threshold      float64
	boosts         map[string]float64
	featureWeights map[string]float64
	normalize      bool
	includeVectors bool
	excludeID      string
}

// rank scores every candidate, applies the threshold where the mode
// calls for one, and returns the topK results sorted by descending
// score. The sort is stable: ties keep candidate (insertion) order, so
// identical inputs always produce identical output.
//
// A dimension mismatch from the math layer fails the whole call,
// never skips the document.
func rank(queryVec []float32, candidates iter.Seq[document.Document], p rankParams) ([]result.Result, error) {
	q := queryVec
	if p.scoreMode == mode.Dot && p.normalize {
		q = vector.Normalize(q)
	}

	var scored []result.Result
	for doc := range candidates {
		if doc.ID() == p.excludeID {
			continue
		}
		if !doc.HasVector() && p.scoreMode != mode.Weighted {
			// A document without a vector cannot participate in scoring.
			continue
		}

		score, err := scoreDocument(q, &doc, p)
		if err != nil {
			return nil, fmt.Errorf("score document %s: %w", doc.ID(), err)
		}

		// Threshold is an inclusive lower bound: score == threshold stays in.
		if p.scoreMode.Thresholded() && score < p.threshold {
			continue
		}

		var vec []float32
		if p.includeVectors {
			vec = doc.Vector()
		}
		scored = append(scored, result.New(doc.ID(), score, doc.Metadata(), vec))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score() > scored[j].Score()
	})

	if len(scored) > p.topK {
		scored = scored[:p.topK]
	}
	return scored, nil
}

func scoreDocument(q []float32, doc *document.Document, p rankParams) (float64, error) {
	switch p.scoreMode {
	case mode.Similarity, mode.Filtered:
		return vector.Cosine(q, doc.Vector())

	case mode.Dot:
		v := doc.Vector()
		if p.normalize {
			v = vector.Normalize(v)
		}
		return vector.Dot(q, v)

	case mode.Hybrid:
		return scoreHybrid(q, doc, p.queryText, p.boosts)

	case mode.Weighted:
		return scoreWeighted(q, doc, p.featureWeights)

	default:
		return 0, fmt.Errorf("unsupported scoring mode: %s", p.scoreMode)
	}
}

// scoreHybrid layers lexical metadata boosts on top of cosine
// similarity: a field's weight is added when its value contains the
// raw query string case-insensitively. The match runs against the
// untokenized query string, so multi-word queries rarely boost.
func scoreHybrid(q []float32, doc *document.Document, queryText string, boosts map[string]float64) (float64, error) {
	score, err := vector.Cosine(q, doc.Vector())
	if err != nil {
		return 0, err
	}
	for field, weight := range boosts {
		if value, ok := doc.Metadata()[field]; ok && value.ContainsFold(queryText) {
			score += weight
		}
	}
	return score, nil
}

// scoreWeighted blends cosine similarities against separately embedded
// feature vectors. A feature the document lacks contributes 0. Weights
// are not required to sum to 1.
func scoreWeighted(q []float32, doc *document.Document, weights map[string]float64) (float64, error) {
	var score float64
	for feature, weight := range weights {
		fv, ok := doc.FeatureVector(feature)
		if !ok {
			continue
		}
		sim, err := vector.Cosine(q, fv)
		if err != nil {
			return 0, err
		}
		score += weight * sim
	}
	return score, nil
}
