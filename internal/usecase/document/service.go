// Package document turns raw text into embedded, indexed documents.
package document

import (
	"context"
	"fmt"
	"sort"

	"github.com/roamlabs/tripdex/internal/domain"
	dombatch "github.com/roamlabs/tripdex/internal/domain/batch"
	domdoc "github.com/roamlabs/tripdex/internal/domain/document"
	"github.com/roamlabs/tripdex/internal/domain/metadata"
)

// MaxBatchSize is the default maximum number of items per batch request.
const MaxBatchSize = 100

// IndexRequest describes one document to embed and insert. Features
// are optional texts embedded separately for weighted multi-field
// search (title, content, tags, category).
type IndexRequest struct {
	ID       string
	Content  string
	Features map[string]string
	Metadata metadata.Map
}

// Service handles document indexing and lifecycle.
type Service struct {
	store        Store
	embed        Embedder
	maxBatchSize int
}

// New creates a document service.
func New(store Store, embed Embedder) *Service {
	return &Service{store: store, embed: embed, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Index embeds the content (and each feature text) and inserts the
// resulting document.
func (s *Service) Index(ctx context.Context, req IndexRequest) (domdoc.Document, error) {
	doc, err := s.buildDocument(ctx, req)
	if err != nil {
		return domdoc.Document{}, err
	}
	if err := s.store.Insert(doc); err != nil {
		return domdoc.Document{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// IndexBatch embeds and inserts each item independently, reporting a
// per-item outcome. Earlier successes stand when a later item fails.
func (s *Service) IndexBatch(ctx context.Context, reqs []IndexRequest) []dombatch.Result {
	results := make([]dombatch.Result, len(reqs))

	if len(reqs) > s.maxBatchSize {
		for i := range reqs {
			results[i] = dombatch.NewError(
				reqs[i].ID,
				fmt.Errorf("%w: batch size exceeds %d", domain.ErrInvalidArgument, s.maxBatchSize),
			)
		}
		return results
	}

	for i := range reqs {
		if _, err := s.Index(ctx, reqs[i]); err != nil {
			results[i] = dombatch.NewError(reqs[i].ID, err)
			continue
		}
		results[i] = dombatch.NewOK(reqs[i].ID)
	}
	return results
}

// Get returns a document by id.
func (s *Service) Get(_ context.Context, id string) (domdoc.Document, error) {
	doc, err := s.store.Get(id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// Remove deletes a document; absent ids are a no-op.
func (s *Service) Remove(_ context.Context, id string) {
	s.store.Remove(id)
}

// Clear empties the store and its index.
func (s *Service) Clear(_ context.Context) {
	s.store.Clear()
}

// Count returns the number of stored documents.
func (s *Service) Count(_ context.Context) int {
	return s.store.Size()
}

func (s *Service) buildDocument(ctx context.Context, req IndexRequest) (domdoc.Document, error) {
	if req.Content == "" {
		return domdoc.Document{}, fmt.Errorf("%w: content is required", domain.ErrInvalidArgument)
	}
	for feature := range req.Features {
		if !domdoc.IsFeature(feature) {
			return domdoc.Document{}, fmt.Errorf("%w: unknown feature %q", domain.ErrInvalidArgument, feature)
		}
	}

	doc, err := domdoc.New(req.ID, nil, req.Metadata)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, err)
	}

	vec, err := s.embedText(ctx, req.Content)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("embed content: %w", err)
	}
	doc = doc.WithVector(vec)

	// Sorted iteration keeps embed call order deterministic.
	features := make([]string, 0, len(req.Features))
	for f := range req.Features {
		features = append(features, f)
	}
	sort.Strings(features)

	for _, feature := range features {
		fv, err := s.embedText(ctx, req.Features[feature])
		if err != nil {
			return domdoc.Document{}, fmt.Errorf("embed feature %s: %w", feature, err)
		}
		doc = doc.WithFeatureVector(feature, fv)
	}
	return doc, nil
}

func (s *Service) embedText(ctx context.Context, text string) ([]float32, error) {
	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(res.Embedding) == 0 {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return res.Embedding, nil
}
