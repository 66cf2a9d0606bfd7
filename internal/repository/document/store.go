// Package document keeps ingested documents in process memory.
package document

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/docqa/internal/domain"
	domdoc "github.com/kailas-cloud/docqa/internal/domain/document"
)

// Store is an insertion-ordered in-memory document store.
type Store struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]domdoc.Document
}

// New creates an empty store.
func New() *Store {
	return &Store{docs: make(map[string]domdoc.Document)}
}

// Add stores a document. IDs must be unique.
func (s *Store) Add(_ context.Context, doc domdoc.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.ID()]; ok {
		return fmt.Errorf("add document %s: duplicate id", doc.ID())
	}
	s.docs[doc.ID()] = doc
	s.order = append(s.order, doc.ID())
	return nil
}

// Get returns a document by ID.
func (s *Store) Get(_ context.Context, id string) (domdoc.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return domdoc.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return doc, nil
}

// List returns all documents in upload order.
func (s *Store) List(_ context.Context) ([]domdoc.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domdoc.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id])
	}
	return out, nil
}

// Count returns the number of stored documents.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

// Clear removes every document.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.docs = make(map[string]domdoc.Document)
	return nil
}
