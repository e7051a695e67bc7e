// Package vector holds the arithmetic substrate for every scoring mode:
// dot product, Euclidean norm, normalization, and cosine similarity.
// Higher layers call these functions and never reimplement the loops.
package vector

import (
	"math"

	"github.com/roamlabs/tripdex/internal/domain"
)

// Dot computes the dot product of two equal-length vectors.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.NewDimensionError(len(a), len(b))
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum, nil
}

// Norm computes the Euclidean norm of a vector.
func Norm(a []float32) float64 {
	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of the vector.
// A zero vector is returned as-is: dividing by a zero norm would
// propagate NaN into every downstream score.
func Normalize(a []float32) []float32 {
	n := Norm(a)
	if n == 0 {
		return a
	}
	out := make([]float32, len(a))
	for i, v := range a {
		out[i] = float32(float64(v) / n)
	}
	return out
}

// Cosine computes the cosine similarity of two equal-length vectors.
// If either vector has zero norm the similarity is 0, never NaN: an
// all-zero embedding must simply score lowest, not poison the ranking.
func Cosine(a, b []float32) (float64, error) {
	dot, err := Dot(a, b)
	if err != nil {
		return 0, err
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (na * nb), nil
}
