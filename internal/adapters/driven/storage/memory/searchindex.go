package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/slub/lisztbib/internal/core/domain"
	"github.com/slub/lisztbib/internal/core/ports/driven"
)

// Ensure SearchIndex implements the interface.
var _ driven.SearchIndex = (*SearchIndex)(nil)

// SearchIndex is an in-memory implementation of driven.SearchIndex.
// It follows Elasticsearch semantics where they matter to a sync run:
// deleting a missing index or creating an existing one fails, a bulk
// write creates missing target indices, and indexing an existing ID
// replaces the document.
type SearchIndex struct {
	mu      sync.RWMutex
	indices map[string]map[string][]byte
}

// NewSearchIndex creates a new empty in-memory search index.
func NewSearchIndex() *SearchIndex {
	return &SearchIndex{
		indices: make(map[string]map[string][]byte),
	}
}

// IndexExists reports whether the named index exists.
func (s *SearchIndex) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indices[name]
	return ok, nil
}

// DeleteIndex removes the named index.
func (s *SearchIndex) DeleteIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indices[name]; !ok {
		return fmt.Errorf("%w: no such index [%s]", domain.ErrIndexOperationFailed, name)
	}
	delete(s.indices, name)
	return nil
}

// CreateIndex creates the named index, empty.
func (s *SearchIndex) CreateIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indices[name]; ok {
		return fmt.Errorf("%w: index [%s] already exists", domain.ErrIndexOperationFailed, name)
	}
	s.indices[name] = make(map[string][]byte)
	return nil
}

// BulkWrite applies all actions or none: the batch is validated first.
func (s *SearchIndex) BulkWrite(_ context.Context, actions []driven.BulkAction) error {
	for i, a := range actions {
		if a.Index == "" || a.ID == "" {
			return fmt.Errorf("%w: bulk action %d lacks index or id", domain.ErrIndexOperationFailed, i)
		}
		if !json.Valid(a.Body) {
			return fmt.Errorf("%w: bulk action %d (%s/%s) has an invalid document body",
				domain.ErrIndexOperationFailed, i, a.Index, a.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range actions {
		docs, ok := s.indices[a.Index]
		if !ok {
			docs = make(map[string][]byte)
			s.indices[a.Index] = docs
		}
		body := make([]byte, len(a.Body))
		copy(body, a.Body)
		docs[a.ID] = body
	}
	return nil
}

// Count returns the number of documents in the named index.
func (s *SearchIndex) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.indices[name])
}

// IDs returns the document IDs of the named index in sorted order.
func (s *SearchIndex) IDs(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.indices[name]))
	for id := range s.indices[name] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get returns a copy of a stored document.
func (s *SearchIndex) Get(name, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs, ok := s.indices[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	body, ok := docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

// Indices returns the names of all indices in sorted order.
func (s *SearchIndex) Indices() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.indices))
	for name := range s.indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
