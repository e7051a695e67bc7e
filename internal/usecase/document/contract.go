package document

import (
	"context"

	"github.com/roamlabs/tripdex/internal/domain"
	dombatch "github.com/roamlabs/tripdex/internal/domain/batch"
	domdoc "github.com/roamlabs/tripdex/internal/domain/document"
)

// Store is the storage contract for document operations.
type Store interface {
	Insert(doc domdoc.Document) error
	InsertBatch(docs []domdoc.Document) []dombatch.Result
	Get(id string) (domdoc.Document, error)
	Remove(id string)
	Clear()
	Size() int
}

// Embedder vectorizes document text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
