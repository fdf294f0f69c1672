package domain

import (
	"encoding/json"
	"iter"
)

// BibliographyItem is a single record as returned by the remote source.
// The body is kept verbatim; no schema is imposed on it.
type BibliographyItem struct {
	// Key is the source's stable unique identifier for the item.
	// It is used as the search document ID.
	Key string

	// Raw is the item's JSON object, byte for byte as received.
	Raw json.RawMessage
}

// Document returns the item as an indexable document.
func (i BibliographyItem) Document() Document {
	return Document{ID: i.Key, Body: i.Raw}
}

// LocaleEntry holds the field-label translations for one locale.
type LocaleEntry struct {
	// Code is the locale code, e.g. "en-US".
	Code string

	// Raw is the translation mapping as received.
	Raw json.RawMessage
}

// Document returns the locale as an indexable document keyed by its code.
func (l LocaleEntry) Document() Document {
	return Document{ID: l.Code, Body: l.Raw}
}

// Locales is the full locale set of one run, ordered by code.
type Locales []LocaleEntry

// Documents yields one document per locale.
func (ls Locales) Documents() iter.Seq[Document] {
	return func(yield func(Document) bool) {
		for _, l := range ls {
			if !yield(l.Document()) {
				return
			}
		}
	}
}

// WorkingSet is the ordered set of items fetched during one run.
// Items are appended in arrival order and only read afterwards.
type WorkingSet struct {
	items []BibliographyItem
}

// NewWorkingSet creates an empty working set with room for n items.
func NewWorkingSet(n int) *WorkingSet {
	if n < 0 {
		n = 0
	}
	return &WorkingSet{items: make([]BibliographyItem, 0, n)}
}

// Append adds items in the given order.
func (w *WorkingSet) Append(items ...BibliographyItem) {
	w.items = append(w.items, items...)
}

// Len returns the number of items held.
func (w *WorkingSet) Len() int {
	return len(w.items)
}

// Items returns the held items in arrival order.
// The returned slice must not be modified.
func (w *WorkingSet) Items() []BibliographyItem {
	return w.items
}

// Documents yields one document per item, in arrival order.
func (w *WorkingSet) Documents() iter.Seq[Document] {
	return func(yield func(Document) bool) {
		for _, item := range w.items {
			if !yield(item.Document()) {
				return
			}
		}
	}
}

// Document is one entry of a search index.
type Document struct {
	// ID is the search engine document ID.
	ID string

	// Body is the serialised document.
	Body json.RawMessage
}

// IndexDescriptor names a target index and supplies its documents.
// It is a pure configuration value.
type IndexDescriptor struct {
	// Name is the target index name.
	Name string

	// BatchSize is the number of documents per bulk write.
	// Zero or less writes all documents in a single bulk call.
	BatchSize int

	// Total is the number of documents Documents yields.
	// It is used for progress reporting only.
	Total int

	// Documents supplies the documents to load.
	Documents iter.Seq[Document]
}

// Batched reports whether documents are flushed in fixed-size batches.
func (d IndexDescriptor) Batched() bool {
	return d.BatchSize > 0
}
