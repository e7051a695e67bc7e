package memory

import (
	"github.com/roamlabs/tripdex/internal/domain/document"
	"github.com/roamlabs/tripdex/internal/domain/metadata"
)

// DefaultFilterable lists the metadata fields indexed when a store is
// created without an explicit field list.
var DefaultFilterable = []string{"category", "location", "type", "price", "season"}

// MetadataIndex is an inverted index from field value to document ids,
// used to narrow candidate sets before scoring. It is derived state:
// the owning Store mutates it inside the same critical section as the
// document map, so the two can never drift.
type MetadataIndex struct {
	fields  map[string]bool
	entries map[string]map[string]map[string]struct{}
}

// NewMetadataIndex creates an index over the given filterable fields.
func NewMetadataIndex(fields ...string) *MetadataIndex {
	fieldSet := make(map[string]bool, len(fields))
	for _, f := range fields {
		fieldSet[f] = true
	}
	return &MetadataIndex{
		fields:  fieldSet,
		entries: make(map[string]map[string]map[string]struct{}),
	}
}

// Filterable reports whether the field is indexed.
func (x *MetadataIndex) Filterable(field string) bool { return x.fields[field] }

// add records every term of the document's indexable fields.
// Mutators are unexported: only the Store may call them, under its lock.
func (x *MetadataIndex) add(doc *document.Document) {
	for field, value := range doc.Metadata() {
		if !x.fields[field] {
			continue
		}
		terms := x.entries[field]
		if terms == nil {
			terms = make(map[string]map[string]struct{})
			x.entries[field] = terms
		}
		for _, term := range value.Terms() {
			ids := terms[term]
			if ids == nil {
				ids = make(map[string]struct{})
				terms[term] = ids
			}
			ids[doc.ID()] = struct{}{}
		}
	}
}

// remove drops the document from every posting list it appears in.
func (x *MetadataIndex) remove(doc *document.Document) {
	for field, value := range doc.Metadata() {
		terms := x.entries[field]
		if terms == nil {
			continue
		}
		for _, term := range value.Terms() {
			ids := terms[term]
			if ids == nil {
				continue
			}
			delete(ids, doc.ID())
			if len(ids) == 0 {
				delete(terms, term)
			}
		}
		if len(terms) == 0 {
			delete(x.entries, field)
		}
	}
}

// clear empties the index.
func (x *MetadataIndex) clear() {
	x.entries = make(map[string]map[string]map[string]struct{})
}

// IDs returns the ids whose field has the given term. Unknown fields
// and terms yield an empty set.
func (x *MetadataIndex) IDs(field, term string) map[string]struct{} {
	ids := x.entries[field][term]
	out := make(map[string]struct{}, len(ids))
	for id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// MatchingFilters returns the ids matching every constrained field
// (AND across fields, OR within a field's term list). A document
// missing a constrained field is excluded.
func (x *MetadataIndex) MatchingFilters(filters metadata.Filters) map[string]struct{} {
	var matched map[string]struct{}
	for field, terms := range filters {
		fieldIDs := make(map[string]struct{})
		for _, term := range terms {
			for id := range x.entries[field][term] {
				fieldIDs[id] = struct{}{}
			}
		}
		if matched == nil {
			matched = fieldIDs
			continue
		}
		for id := range matched {
			if _, ok := fieldIDs[id]; !ok {
				delete(matched, id)
			}
		}
	}
	if matched == nil {
		return map[string]struct{}{}
	}
	return matched
}
