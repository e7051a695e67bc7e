// Package memory implements the in-memory document store and its
// metadata index. The store owns the canonical document set; the index
// is derived from it and updated in the same critical section, so
// callers never observe one without the other.
package memory

import (
	"iter"
	"sync"
	"time"

	"github.com/roamlabs/tripdex/internal/domain"
	dombatch "github.com/roamlabs/tripdex/internal/domain/batch"
	"github.com/roamlabs/tripdex/internal/domain/document"
	"github.com/roamlabs/tripdex/internal/domain/metadata"
)

// Store holds documents and their metadata index behind one RWMutex.
// Mutations take the write lock for their full duration; reads take
// the read lock only while building a snapshot, so scoring runs
// lock-free over immutable documents.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]document.Document
	order []string
	index *MetadataIndex
	dim   int
	now   func() time.Time
}

// New creates an empty store indexing the given filterable fields
// (DefaultFilterable when none are given).
func New(filterable ...string) *Store {
	if len(filterable) == 0 {
		filterable = DefaultFilterable
	}
	return &Store{
		docs:  make(map[string]document.Document),
		index: NewMetadataIndex(filterable...),
		now:   time.Now,
	}
}

// WithClock overrides the insertion timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Insert adds a document and indexes its metadata. The first vectored
// insert establishes the store dimension; later inserts with a
// different vector length are rejected with ErrDimensionMismatch.
// Inserting an existing id is ErrAlreadyExists: documents are
// immutable, update is modeled as remove plus reinsert.
func (s *Store) Insert(doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[doc.ID()]; exists {
		return domain.ErrAlreadyExists
	}
	dim, err := s.checkDimensions(&doc)
	if err != nil {
		return err
	}

	if doc.CreatedAt().IsZero() {
		doc = doc.WithCreatedAt(s.now())
	}
	if s.dim == 0 {
		s.dim = dim
	}

	s.docs[doc.ID()] = doc
	s.order = append(s.order, doc.ID())
	s.index.add(&doc)
	return nil
}

// InsertBatch inserts each document independently and reports a
// per-item outcome. A failed item never rolls back earlier successes.
func (s *Store) InsertBatch(docs []document.Document) []dombatch.Result {
	results := make([]dombatch.Result, len(docs))
	for i := range docs {
		if err := s.Insert(docs[i]); err != nil {
			results[i] = dombatch.NewError(docs[i].ID(), err)
			continue
		}
		results[i] = dombatch.NewOK(docs[i].ID())
	}
	return results
}

// Get returns a document by id.
func (s *Store) Get(id string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return document.Document{}, domain.ErrNotFound
	}
	return doc, nil
}

// Remove deletes a document and its index entries. Absent ids are a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return
	}
	delete(s.docs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.index.remove(&doc)
}

// Clear empties the store and the index atomically and resets the
// established dimension: an emptied store behaves like a new one.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = make(map[string]document.Document)
	s.order = nil
	s.index.clear()
	s.dim = 0
}

// Size returns the number of stored documents.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Dim returns the established vector dimension (0 before the first
// vectored insert).
func (s *Store) Dim() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// Filterable reports whether the field is covered by the metadata index.
func (s *Store) Filterable(field string) bool {
	return s.index.Filterable(field)
}

// IDsMatching returns document ids whose field has the given term.
func (s *Store) IDsMatching(field, term string) map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.IDs(field, term)
}

// All returns a snapshot iterator over the documents in insertion
// order. The snapshot is taken under the read lock; the sequence is
// finite and restartable. Mutating the store while iterating affects
// only subsequent snapshots, never a sequence already obtained.
func (s *Store) All() iter.Seq[document.Document] {
	return s.Candidates(nil)
}

// Candidates returns a snapshot iterator over the documents matching
// the filters, in insertion order. Empty filters impose no constraint.
// Insertion order drives the stable tie-break during ranking.
func (s *Store) Candidates(filters metadata.Filters) iter.Seq[document.Document] {
	s.mu.RLock()
	var snapshot []document.Document
	if filters.IsEmpty() {
		snapshot = make([]document.Document, 0, len(s.order))
		for _, id := range s.order {
			snapshot = append(snapshot, s.docs[id])
		}
	} else {
		ids := s.index.MatchingFilters(filters)
		snapshot = make([]document.Document, 0, len(ids))
		for _, id := range s.order {
			if _, ok := ids[id]; ok {
				snapshot = append(snapshot, s.docs[id])
			}
		}
	}
	s.mu.RUnlock()

	return func(yield func(document.Document) bool) {
		for _, doc := range snapshot {
			if !yield(doc) {
				return
			}
		}
	}
}

// checkDimensions rejects any vector whose length disagrees with the
// established dimension and returns the dimension the insert would
// establish. Feature vectors must match the primary dimension too.
func (s *Store) checkDimensions(doc *document.Document) (int, error) {
	dim := s.dim
	if dim == 0 {
		dim = len(doc.Vector())
	}
	if doc.HasVector() && len(doc.Vector()) != dim {
		return 0, domain.NewDimensionError(dim, len(doc.Vector()))
	}
	for _, fv := range doc.FeatureVectors() {
		if dim == 0 {
			dim = len(fv)
		}
		if len(fv) != dim {
			return 0, domain.NewDimensionError(dim, len(fv))
		}
	}
	return dim, nil
}
