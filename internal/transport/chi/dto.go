package chi

import (
	"fmt"
	"time"

	dombatch "github.com/roamlabs/tripdex/internal/domain/batch"
	domdoc "github.com/roamlabs/tripdex/internal/domain/document"
	"github.com/roamlabs/tripdex/internal/domain/metadata"
	"github.com/roamlabs/tripdex/internal/domain/search/result"
	documentuc "github.com/roamlabs/tripdex/internal/usecase/document"
)

// Error codes returned in error responses.
const (
	codeBadRequest             = "bad_request"
	codeValidationFailed       = "validation_failed"
	codeNotFound               = "not_found"
	codeAlreadyExists          = "already_exists"
	codeDimensionMismatch      = "dimension_mismatch"
	codeEmbeddingUnavailable   = "embedding_unavailable"
	codeEmbeddingProviderError = "embedding_provider_error"
	codeInternalError          = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// searchRequestBody is the POST /search payload. Pointer fields
// distinguish "absent" from zero so server defaults can apply.
type searchRequestBody struct {
	Query          string              `json:"query"`
	Mode           string              `json:"mode,omitempty"`
	Filters        map[string][]string `json:"filters,omitempty"`
	TopK           *int                `json:"top_k,omitempty"`
	Threshold      *float64            `json:"threshold,omitempty"`
	Boosts         map[string]float64  `json:"boosts,omitempty"`
	FeatureWeights map[string]float64  `json:"feature_weights,omitempty"`
	Normalize      bool                `json:"normalize,omitempty"`
	IncludeVectors bool                `json:"include_vectors,omitempty"`
}

type searchResultItem struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Vector   []float32      `json:"vector,omitempty"`
}

type searchStats struct {
	Retrieved    int     `json:"retrieved"`
	AverageScore float64 `json:"average_score"`
}

type searchResponse struct {
	Results []searchResultItem `json:"results"`
	Stats   searchStats        `json:"stats"`
}

// indexRequestBody is the POST /documents payload.
type indexRequestBody struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Features map[string]string `json:"features,omitempty"`
	Metadata map[string]any    `json:"metadata,omitempty"`
}

type batchIndexRequestBody struct {
	Documents []indexRequestBody `json:"documents"`
}

type batchResultItem struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Error  *errorResponse `json:"error,omitempty"`
}

type batchIndexResponse struct {
	Items     []batchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

type documentResponse struct {
	ID        string         `json:"id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Vector    []float32      `json:"vector,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type healthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Documents int               `json:"documents"`
}

func indexRequestFromBody(b indexRequestBody) (documentuc.IndexRequest, error) {
	meta, err := metadataFromJSON(b.Metadata)
	if err != nil {
		return documentuc.IndexRequest{}, err
	}
	return documentuc.IndexRequest{
		ID:       b.ID,
		Content:  b.Content,
		Features: b.Features,
		Metadata: meta,
	}, nil
}

// metadataFromJSON maps decoded JSON values onto typed metadata:
// strings, numbers, and arrays of strings.
func metadataFromJSON(raw map[string]any) (metadata.Map, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	m := make(metadata.Map, len(raw))
	for field, v := range raw {
		switch val := v.(type) {
		case string:
			m[field] = metadata.String(val)
		case float64:
			m[field] = metadata.Number(val)
		case []any:
			members := make([]string, len(val))
			for i, item := range val {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("metadata field %q: array members must be strings", field)
				}
				members[i] = s
			}
			m[field] = metadata.StringSet(members...)
		default:
			return nil, fmt.Errorf("metadata field %q: must be string, number, or string array", field)
		}
	}
	return m, nil
}

func metadataToJSON(m metadata.Map) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for field, v := range m {
		switch v.Kind() {
		case metadata.KindString:
			out[field] = v.Str()
		case metadata.KindNumber:
			out[field] = v.Num()
		case metadata.KindStringSet:
			out[field] = v.Set()
		}
	}
	return out
}

func searchResultsToItems(results []result.Result) []searchResultItem {
	items := make([]searchResultItem, len(results))
	for i := range results {
		r := &results[i]
		items[i] = searchResultItem{
			ID:       r.ID(),
			Score:    r.Score(),
			Metadata: metadataToJSON(r.Metadata()),
			Vector:   r.Vector(),
		}
	}
	return items
}

func documentToResponse(doc *domdoc.Document, includeVector bool) documentResponse {
	resp := documentResponse{
		ID:        doc.ID(),
		Metadata:  metadataToJSON(doc.Metadata()),
		CreatedAt: doc.CreatedAt(),
	}
	if includeVector {
		resp.Vector = doc.Vector()
	}
	return resp
}

func batchResultsToResponse(results []dombatch.Result) batchIndexResponse {
	resp := batchIndexResponse{
		Items: make([]batchResultItem, len(results)),
	}
	for i, res := range results {
		item := batchResultItem{
			ID:     res.ID(),
			Status: string(res.Status()),
		}
		if res.Err() != nil {
			item.Error = &errorResponse{
				Code:    batchErrorCode(res.Err()),
				Message: safeDomainMessage(res.Err()),
			}
			resp.Failed++
		} else {
			resp.Succeeded++
		}
		resp.Items[i] = item
	}
	return resp
}
