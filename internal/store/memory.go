package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used in tests and as the default when
// no database path is configured. Each instance is fully isolated: nothing
// here is ambient or shared between runs.
type MemoryStore struct {
	mu        sync.RWMutex
	threads   map[string]*Thread
	documents map[string]*Document
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads:   make(map[string]*Thread),
		documents: make(map[string]*Document),
	}
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// GetThread returns a copy of the thread, or ErrNotFound.
func (s *MemoryStore) GetThread(_ context.Context, id string) (*Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	copied.Messages = append(copied.Messages[:0:0], t.Messages...)
	return &copied, nil
}

// UpsertThread creates or replaces a thread.
func (s *MemoryStore) UpsertThread(_ context.Context, t *Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *t
	copied.Messages = append(copied.Messages[:0:0], t.Messages...)
	if copied.UpdatedAt.IsZero() {
		copied.UpdatedAt = time.Now()
	}
	s.threads[copied.ID] = &copied
	return nil
}

// ListThreads returns all threads, newest first.
func (s *MemoryStore) ListThreads(_ context.Context) ([]*Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Thread, 0, len(s.threads))
	for _, t := range s.threads {
		copied := *t
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// DeleteThread removes a thread by id.
func (s *MemoryStore) DeleteThread(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, id)
	return nil
}

// GetDocument returns a copy of the document, or ErrNotFound.
func (s *MemoryStore) GetDocument(_ context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *d
	copied.Data = append(copied.Data[:0:0], d.Data...)
	return &copied, nil
}

// UpsertDocument creates or replaces a document.
func (s *MemoryStore) UpsertDocument(_ context.Context, d *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *d
	copied.Data = append(copied.Data[:0:0], d.Data...)
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	if existing, ok := s.documents[copied.ID]; ok {
		copied.CreatedAt = existing.CreatedAt
	}
	s.documents[copied.ID] = &copied
	return nil
}

// ListDocuments returns documents, optionally filtered by kind.
func (s *MemoryStore) ListDocuments(_ context.Context, kind string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0, len(s.documents))
	for _, d := range s.documents {
		if kind != "" && d.Kind != kind {
			continue
		}
		copied := *d
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// DeleteDocument removes a document by id.
func (s *MemoryStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	return nil
}
