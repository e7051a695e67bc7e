package search

import (
	"context"
	"iter"

	"github.com/roamlabs/tripdex/internal/domain"
	"github.com/roamlabs/tripdex/internal/domain/document"
	"github.com/roamlabs/tripdex/internal/domain/metadata"
)

// CandidateSource supplies scoring candidates from the document store.
type CandidateSource interface {
	// Candidates returns a finite, restartable snapshot of documents
	// matching the filters, in insertion order.
	Candidates(filters metadata.Filters) iter.Seq[document.Document]

	// Filterable reports whether a field is covered by the metadata index.
	Filterable(field string) bool

	// Get returns a document by id (for find-similar).
	Get(id string) (document.Document, error)
}

// Embedder vectorizes query text into an embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
