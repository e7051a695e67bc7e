package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/roamlabs/tripdex/internal/domain"
	"github.com/roamlabs/tripdex/internal/domain/metadata"
	"github.com/roamlabs/tripdex/internal/domain/search/mode"
	"github.com/roamlabs/tripdex/internal/domain/search/request"
)

func TestSearch_EndToEnd(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc, _ := newTestService(t, emb,
		mustDoc(t, "1", []float32{1, 0}, metadata.Map{"category": metadata.String("beach")}),
		mustDoc(t, "2", []float32{0, 1}, metadata.Map{"category": metadata.String("mountain")}),
	)

	set, err := svc.Search(context.Background(),
		mustRequest(t, "sunny coastline", mode.Similarity, nil, 5, 0.5))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	results := set.Results()
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ID() != "1" || math.Abs(results[0].Score()-1) > 1e-9 {
		t.Errorf("result = %s (%v)", results[0].ID(), results[0].Score())
	}
	if set.Stats().Retrieved != 1 || math.Abs(set.Stats().AverageScore-1) > 1e-9 {
		t.Errorf("stats = %+v", set.Stats())
	}
}

func TestSearch_FilteredCandidates(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc, _ := newTestService(t, emb,
		mustDoc(t, "1", []float32{1, 0}, metadata.Map{"category": metadata.String("beach")}),
		mustDoc(t, "2", []float32{0, 1}, metadata.Map{"category": metadata.String("mountain")}),
	)

	// Candidate set narrows to {"2"}; its score against [1,0] is 0.
	set, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Filtered, metadata.Filters{"category": {"mountain"}}, 5, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	results := set.Results()
	if len(results) != 1 || results[0].ID() != "2" || results[0].Score() != 0 {
		t.Fatalf("results = %v", results)
	}

	// With a positive threshold the same candidate is excluded.
	set, err = svc.Search(context.Background(),
		mustRequest(t, "q", mode.Filtered, metadata.Filters{"category": {"mountain"}}, 5, 0.1))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(set.Results()) != 0 {
		t.Fatalf("results = %v, want empty", set.Results())
	}
	if set.Stats().AverageScore != 0 {
		t.Errorf("empty-set average = %v", set.Stats().AverageScore)
	}
}

func TestSearch_FilterCorrectness(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc, _ := newTestService(t, emb,
		mustDoc(t, "b1", []float32{1, 0}, metadata.Map{"category": metadata.String("beach")}),
		mustDoc(t, "b2", []float32{1, 1}, metadata.Map{"category": metadata.String("beach")}),
		mustDoc(t, "m1", []float32{1, 0}, metadata.Map{"category": metadata.String("mountain")}),
		mustDoc(t, "none", []float32{1, 0}, nil),
	)

	set, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Filtered, metadata.Filters{"category": {"beach"}}, 10, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range set.Results() {
		if r.Metadata()["category"].Str() != "beach" {
			t.Errorf("result %s leaked through filter", r.ID())
		}
	}
	for _, r := range set.Results() {
		if r.ID() == "none" {
			t.Error("document without the constrained field was returned")
		}
	}
}

func TestSearch_EmptyStore(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc, _ := newTestService(t, emb)

	set, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Similarity, nil, 5, 0.1))
	if err != nil {
		t.Fatalf("Search on empty store: %v", err)
	}
	if len(set.Results()) != 0 || set.Stats().Retrieved != 0 || set.Stats().AverageScore != 0 {
		t.Errorf("set = %+v", set)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 1}}
	svc, _ := newTestService(t, emb,
		mustDoc(t, "a", []float32{1, 0}, nil),
		mustDoc(t, "b", []float32{0, 1}, nil),
		mustDoc(t, "c", []float32{1, 1}, nil),
	)
	req := mustRequest(t, "q", mode.Similarity, nil, 5, 0)

	first, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	second, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(first.Results()) != len(second.Results()) {
		t.Fatalf("result counts differ: %d vs %d", len(first.Results()), len(second.Results()))
	}
	for i := range first.Results() {
		f, s := first.Results()[i], second.Results()[i]
		if f.ID() != s.ID() || f.Score() != s.Score() {
			t.Errorf("position %d differs: %s/%v vs %s/%v", i, f.ID(), f.Score(), s.ID(), s.Score())
		}
	}
}

func TestSearch_EmbeddingUnavailable(t *testing.T) {
	emb := &mockEmbedder{vec: nil}
	svc, _ := newTestService(t, emb,
		mustDoc(t, "a", []float32{1, 0}, nil),
	)

	_, err := svc.Search(context.Background(), mustRequest(t, "q", mode.Similarity, nil, 5, 0))
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("Search: %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestSearch_EmbedderError(t *testing.T) {
	emb := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	svc, _ := newTestService(t, emb)

	_, err := svc.Search(context.Background(), mustRequest(t, "q", mode.Similarity, nil, 5, 0))
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("Search: %v, want wrapped provider error", err)
	}
}

func TestSearch_UnknownFilterField(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc, _ := newTestService(t, emb)

	_, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Filtered, metadata.Filters{"rating": {"5"}}, 5, 0))
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("Search: %v, want ErrInvalidArgument", err)
	}
	if emb.called {
		t.Error("embedder called despite invalid filters")
	}
}

func TestSearch_DoesNotMutateStore(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc, store := newTestService(t, emb,
		mustDoc(t, "a", []float32{1, 0}, metadata.Map{"category": metadata.String("beach")}),
	)

	if _, err := svc.Search(context.Background(),
		mustRequest(t, "q", mode.Similarity, nil, 5, 0)); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if store.Size() != 1 {
		t.Errorf("store size changed: %d", store.Size())
	}
	if ids := store.IDsMatching("category", "beach"); len(ids) != 1 {
		t.Errorf("index changed: %v", ids)
	}
}

func TestSimilar(t *testing.T) {
	emb := &mockEmbedder{}
	svc, _ := newTestService(t, emb,
		mustDoc(t, "ref", []float32{1, 0}, nil),
		mustDoc(t, "close", []float32{2, 0}, nil),
		mustDoc(t, "far", []float32{0, 1}, nil),
	)

	req, err := request.NewSimilar(nil, 5, 0.5, false)
	if err != nil {
		t.Fatalf("NewSimilar: %v", err)
	}

	set, err := svc.Similar(context.Background(), "ref", &req)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	results := set.Results()
	if len(results) != 1 || results[0].ID() != "close" {
		t.Fatalf("results = %v", results)
	}
	if emb.called {
		t.Error("Similar must not call the embedder")
	}
}

func TestSimilar_NotFound(t *testing.T) {
	svc, _ := newTestService(t, &mockEmbedder{})
	req, _ := request.NewSimilar(nil, 5, 0, false)

	_, err := svc.Similar(context.Background(), "missing", &req)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Similar: %v, want ErrNotFound", err)
	}
}

func TestSimilar_VectorlessReference(t *testing.T) {
	svc, _ := newTestService(t, &mockEmbedder{},
		mustDoc(t, "pending", nil, nil),
	)
	req, _ := request.NewSimilar(nil, 5, 0, false)

	_, err := svc.Similar(context.Background(), "pending", &req)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("Similar: %v, want ErrInvalidArgument", err)
	}
}
