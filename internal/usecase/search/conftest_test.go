package search

import (
	"context"
	"iter"
	"testing"

	"github.com/roamlabs/tripdex/internal/domain"
	"github.com/roamlabs/tripdex/internal/domain/document"
	"github.com/roamlabs/tripdex/internal/domain/metadata"
	"github.com/roamlabs/tripdex/internal/domain/search/mode"
	"github.com/roamlabs/tripdex/internal/domain/search/request"
	"github.com/roamlabs/tripdex/internal/repository/memory"
)

// mockEmbedder returns a canned vector or error.
type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func docSeq(docs ...document.Document) iter.Seq[document.Document] {
	return func(yield func(document.Document) bool) {
		for _, d := range docs {
			if !yield(d) {
				return
			}
		}
	}
}

func mustDoc(t *testing.T, id string, vec []float32, meta metadata.Map) document.Document {
	t.Helper()
	doc, err := document.New(id, vec, meta)
	if err != nil {
		t.Fatalf("document.New(%q): %v", id, err)
	}
	return doc
}

// newTestService builds a Service over a real in-memory store seeded
// with the given documents.
func newTestService(t *testing.T, emb *mockEmbedder, docs ...document.Document) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	for _, d := range docs {
		if err := store.Insert(d); err != nil {
			t.Fatalf("seed insert %q: %v", d.ID(), err)
		}
	}
	return New(store, emb), store
}

func mustRequest(
	t *testing.T, query string, m mode.Mode, filters metadata.Filters,
	topK int, threshold float64,
) *request.Request {
	t.Helper()
	r, err := request.New(query, m, filters, topK, threshold, nil, nil, false, false)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}
