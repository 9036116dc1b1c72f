// Package store persists conversation threads and generated documents.
// Persistence is best effort from the engine's point of view: callers log
// and swallow store errors rather than failing chat or department runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sgranger-dev/boardroom/pkg/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Thread is one persisted conversation.
type Thread struct {
	// ID is the thread identifier.
	ID string `json:"id"`
	// Messages is the full ordered message list.
	Messages []models.Message `json:"messages"`
	// UpdatedAt is the last write time.
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is one persisted generated document (deck, report).
type Document struct {
	// ID is the document identifier.
	ID string `json:"id"`
	// Kind classifies the document, e.g. "slide_deck", "financial_report".
	Kind string `json:"kind"`
	// Title is a human-readable label.
	Title string `json:"title"`
	// Data is the document body.
	Data []byte `json:"data"`
	// CreatedAt is when the document was first written.
	CreatedAt time.Time `json:"created_at"`
}

// Store is the thread/document persistence collaborator. Implementations
// must be safe for concurrent use.
type Store interface {
	// GetThread returns a thread by id, or ErrNotFound.
	GetThread(ctx context.Context, id string) (*Thread, error)
	// UpsertThread creates or replaces a thread.
	UpsertThread(ctx context.Context, t *Thread) error
	// ListThreads returns all threads, newest first.
	ListThreads(ctx context.Context) ([]*Thread, error)
	// DeleteThread removes a thread; deleting a missing thread is not an error.
	DeleteThread(ctx context.Context, id string) error

	// GetDocument returns a document by id, or ErrNotFound.
	GetDocument(ctx context.Context, id string) (*Document, error)
	// UpsertDocument creates or replaces a document.
	UpsertDocument(ctx context.Context, d *Document) error
	// ListDocuments returns documents, optionally filtered by kind.
	ListDocuments(ctx context.Context, kind string) ([]*Document, error)
	// DeleteDocument removes a document; missing ids are not an error.
	DeleteDocument(ctx context.Context, id string) error

	// Close releases underlying resources.
	Close() error
}

// DocumentSink adapts a Store to the department.DocumentWriter collaborator.
type DocumentSink struct {
	Store Store
}

// WriteDocument persists a generated document.
func (s DocumentSink) WriteDocument(ctx context.Context, id, kind, title string, data []byte) error {
	return s.Store.UpsertDocument(ctx, &Document{
		ID:        id,
		Kind:      kind,
		Title:     title,
		Data:      data,
		CreatedAt: time.Now(),
	})
}
