package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/roamlabs/tripdex/internal/domain"
	domdoc "github.com/roamlabs/tripdex/internal/domain/document"
	"github.com/roamlabs/tripdex/internal/domain/metadata"
	"github.com/roamlabs/tripdex/internal/metrics"
	"github.com/roamlabs/tripdex/internal/repository/memory"
	documentuc "github.com/roamlabs/tripdex/internal/usecase/document"
	searchuc "github.com/roamlabs/tripdex/internal/usecase/search"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

// stubEmbedder returns a fixed vector for every text.
type stubEmbedder struct {
	vec []float32
	err error
}

func (e *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: e.vec, TotalTokens: 1}, nil
}

type testEnv struct {
	store   *memory.Store
	embed   *stubEmbedder
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.New()
	embed := &stubEmbedder{vec: []float32{1, 0}}
	searchSvc := searchuc.New(store, embed)
	docSvc := documentuc.New(store, embed)

	server := NewServer(searchSvc, docSvc, nil, Defaults{}, zap.NewNop())
	r := chi.NewRouter()
	server.Routes(r)

	return &testEnv{store: store, embed: embed, handler: r}
}

func (e *testEnv) seed(t *testing.T, id string, vec []float32, meta metadata.Map) {
	t.Helper()
	doc, err := domdoc.New(id, vec, meta)
	if err != nil {
		t.Fatalf("build document %s: %v", id, err)
	}
	if err := e.store.Insert(doc); err != nil {
		t.Fatalf("seed document %s: %v", id, err)
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestSearchDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "beach-1", []float32{1, 0}, metadata.Map{"category": metadata.String("beach")})
	env.seed(t, "mountain-1", []float32{0, 1}, metadata.Map{"category": metadata.String("mountain")})

	rr := env.do(t, "POST", "/api/v1/search", searchRequestBody{
		Query: "warm beach",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeJSON[searchResponse](t, rr)
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result above default threshold, got %d", len(resp.Results))
	}
	if resp.Results[0].ID != "beach-1" {
		t.Errorf("top result = %s, want beach-1", resp.Results[0].ID)
	}
	if resp.Results[0].Score != 1.0 {
		t.Errorf("score = %f, want 1.0", resp.Results[0].Score)
	}
	if resp.Stats.Retrieved != 1 {
		t.Errorf("retrieved = %d, want 1", resp.Stats.Retrieved)
	}
	if resp.Results[0].Vector != nil {
		t.Error("vector should be omitted by default")
	}
}

func TestSearchDocuments_ExplicitThresholdOverridesDefault(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "beach-1", []float32{1, 0}, nil)
	env.seed(t, "mountain-1", []float32{0, 1}, nil)

	zero := 0.0
	rr := env.do(t, "POST", "/api/v1/search", searchRequestBody{
		Query:     "anything",
		Threshold: &zero,
	})

	resp := decodeJSON[searchResponse](t, rr)
	if len(resp.Results) != 2 {
		t.Fatalf("threshold 0 should include orthogonal docs, got %d results", len(resp.Results))
	}
}

func TestSearchDocuments_InvalidMode(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/v1/search", searchRequestBody{
		Query: "q",
		Mode:  "euclidean",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	resp := decodeJSON[errorResponse](t, rr)
	if resp.Code != codeValidationFailed {
		t.Errorf("code = %s, want %s", resp.Code, codeValidationFailed)
	}
}

func TestSearchDocuments_EmptyQuery(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/v1/search", searchRequestBody{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSearchDocuments_EmbedderDown(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "beach-1", []float32{1, 0}, nil)
	env.embed.err = domain.ErrEmbeddingProviderError

	rr := env.do(t, "POST", "/api/v1/search", searchRequestBody{Query: "q"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadGateway)
	}
	resp := decodeJSON[errorResponse](t, rr)
	if resp.Code != codeEmbeddingProviderError {
		t.Errorf("code = %s, want %s", resp.Code, codeEmbeddingProviderError)
	}
}

func TestIndexDocument(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/v1/documents", indexRequestBody{
		ID:      "trip-1",
		Content: "a quiet beach town",
		Metadata: map[string]any{
			"category": "beach",
			"price":    120.0,
			"season":   []any{"summer", "spring"},
		},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/api/v1/documents/trip-1" {
		t.Errorf("Location = %q", loc)
	}

	resp := decodeJSON[documentResponse](t, rr)
	if resp.ID != "trip-1" {
		t.Errorf("id = %s, want trip-1", resp.ID)
	}
	if resp.Metadata["category"] != "beach" {
		t.Errorf("category = %v, want beach", resp.Metadata["category"])
	}
	if env.store.Size() != 1 {
		t.Errorf("store size = %d, want 1", env.store.Size())
	}
}

func TestIndexDocument_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "trip-1", []float32{1, 0}, nil)

	rr := env.do(t, "POST", "/api/v1/documents", indexRequestBody{
		ID:      "trip-1",
		Content: "duplicate",
	})

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusConflict)
	}
	resp := decodeJSON[errorResponse](t, rr)
	if resp.Code != codeAlreadyExists {
		t.Errorf("code = %s, want %s", resp.Code, codeAlreadyExists)
	}
}

func TestIndexDocument_BadMetadata(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/v1/documents", map[string]any{
		"id":       "trip-1",
		"content":  "text",
		"metadata": map[string]any{"price": true},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestBatchIndex(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "dup", []float32{1, 0}, nil)

	rr := env.do(t, "POST", "/api/v1/documents/batch", batchIndexRequestBody{
		Documents: []indexRequestBody{
			{ID: "a", Content: "first"},
			{ID: "dup", Content: "already there"},
			{ID: "b", Content: "second"},
		},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeJSON[batchIndexResponse](t, rr)
	if resp.Succeeded != 2 || resp.Failed != 1 {
		t.Fatalf("succeeded/failed = %d/%d, want 2/1", resp.Succeeded, resp.Failed)
	}
	if resp.Items[1].Error == nil || resp.Items[1].Error.Code != codeAlreadyExists {
		t.Errorf("dup item error = %+v, want %s", resp.Items[1].Error, codeAlreadyExists)
	}
	if env.store.Size() != 3 {
		t.Errorf("store size = %d, want 3", env.store.Size())
	}
}

func TestBatchIndex_Empty(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/v1/documents/batch", batchIndexRequestBody{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetDocument(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "trip-1", []float32{1, 0}, metadata.Map{"category": metadata.String("beach")})

	rr := env.do(t, "GET", "/api/v1/documents/trip-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeJSON[documentResponse](t, rr)
	if resp.ID != "trip-1" {
		t.Errorf("id = %s", resp.ID)
	}
	if resp.Vector != nil {
		t.Error("vector should be omitted without include_vector")
	}

	rr = env.do(t, "GET", "/api/v1/documents/trip-1?include_vector=true", nil)
	resp = decodeJSON[documentResponse](t, rr)
	if len(resp.Vector) != 2 {
		t.Errorf("vector length = %d, want 2", len(resp.Vector))
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/v1/documents/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	resp := decodeJSON[errorResponse](t, rr)
	if resp.Code != codeNotFound {
		t.Errorf("code = %s, want %s", resp.Code, codeNotFound)
	}
}

func TestDeleteDocument_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "trip-1", []float32{1, 0}, nil)

	rr := env.do(t, "DELETE", "/api/v1/documents/trip-1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}

	rr = env.do(t, "DELETE", "/api/v1/documents/trip-1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("repeat delete status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if env.store.Size() != 0 {
		t.Errorf("store size = %d, want 0", env.store.Size())
	}
}

func TestClearDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "a", []float32{1, 0}, nil)
	env.seed(t, "b", []float32{0, 1}, nil)

	rr := env.do(t, "DELETE", "/api/v1/documents", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if env.store.Size() != 0 {
		t.Errorf("store size = %d, want 0", env.store.Size())
	}
}

func TestSimilarDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "ref", []float32{1, 0}, nil)
	env.seed(t, "close", []float32{1, 0.1}, nil)
	env.seed(t, "far", []float32{0, 1}, nil)

	rr := env.do(t, "GET", "/api/v1/documents/ref/similar?threshold=0.5", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeJSON[searchResponse](t, rr)
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 similar doc, got %d", len(resp.Results))
	}
	if resp.Results[0].ID != "close" {
		t.Errorf("similar = %s, want close (reference must be excluded)", resp.Results[0].ID)
	}
}

func TestSimilarDocuments_FilterQueryParam(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "ref", []float32{1, 0}, nil)
	env.seed(t, "beach", []float32{1, 0.1}, metadata.Map{"category": metadata.String("beach")})
	env.seed(t, "mountain", []float32{1, 0.2}, metadata.Map{"category": metadata.String("mountain")})

	rr := env.do(t, "GET", "/api/v1/documents/ref/similar?threshold=0&filter=category:beach", nil)
	resp := decodeJSON[searchResponse](t, rr)
	if len(resp.Results) != 1 || resp.Results[0].ID != "beach" {
		t.Fatalf("filtered similar = %+v, want only beach", resp.Results)
	}
}

func TestSimilarDocuments_BadFilter(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/v1/documents/ref/similar?filter=nocolon", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "a", []float32{1, 0}, nil)

	rr := env.do(t, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeJSON[healthResponse](t, rr)
	if resp.Status != "healthy" {
		t.Errorf("status = %s, want healthy", resp.Status)
	}
	if resp.Documents != 1 {
		t.Errorf("documents = %d, want 1", resp.Documents)
	}
}
