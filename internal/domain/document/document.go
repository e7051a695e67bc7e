package document

import (
	"fmt"
	"regexp"
	"time"

	"github.com/roamlabs/tripdex/internal/domain/metadata"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Feature names that may carry separately embedded vectors for
// weighted multi-field scoring.
const (
	FeatureTitle    = "title"
	FeatureContent  = "content"
	FeatureTags     = "tags"
	FeatureCategory = "category"
)

// IsFeature reports whether name is a known weighted-search feature.
func IsFeature(name string) bool {
	switch name {
	case FeatureTitle, FeatureContent, FeatureTags, FeatureCategory:
		return true
	default:
		return false
	}
}

// Document is the document aggregate (immutable value object).
// The primary vector may be absent when embedding is deferred; such a
// document cannot participate in similarity scoring.
type Document struct {
	id             string
	vector         []float32
	featureVectors map[string][]float32
	meta           metadata.Map
	createdAt      time.Time
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. The vector may be nil.
func New(id string, vector []float32, meta metadata.Map) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}

	return Document{
		id:     id,
		vector: vector,
		meta:   meta.Clone(),
	}, nil
}

// Reconstruct creates a Document without validation (test fixtures, hydration).
func Reconstruct(
	id string, vector []float32, featureVectors map[string][]float32,
	meta metadata.Map, createdAt time.Time,
) Document {
	return Document{
		id: id, vector: vector, featureVectors: featureVectors,
		meta: meta, createdAt: createdAt,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Vector returns the primary embedding vector.
func (d *Document) Vector() []float32 { return d.vector }

// HasVector reports whether the document can participate in scoring.
func (d *Document) HasVector() bool { return len(d.vector) > 0 }

// FeatureVector returns the separately embedded vector for a feature.
func (d *Document) FeatureVector(name string) ([]float32, bool) {
	v, ok := d.featureVectors[name]
	return v, ok
}

// FeatureVectors returns all feature vectors.
func (d *Document) FeatureVectors() map[string][]float32 { return d.featureVectors }

// Metadata returns the metadata map.
func (d *Document) Metadata() metadata.Map { return d.meta }

// CreatedAt returns the insertion timestamp (zero before insertion).
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// WithVector returns a copy with the primary vector set.
func (d Document) WithVector(v []float32) Document {
	d.vector = v
	return d
}

// WithFeatureVector returns a copy with one feature vector set.
func (d Document) WithFeatureVector(name string, v []float32) Document {
	fv := make(map[string][]float32, len(d.featureVectors)+1)
	for k, val := range d.featureVectors {
		fv[k] = val
	}
	fv[name] = v
	d.featureVectors = fv
	return d
}

// WithCreatedAt returns a copy stamped with the insertion time.
func (d Document) WithCreatedAt(t time.Time) Document {
	d.createdAt = t
	return d
}
