package store

import (
	"context"

	"respec/internal/document"
	"respec/internal/loop"
)

// Repository persists loops and documents. Implementations must be safe for
// concurrent use and must never hand out values they keep internally; the
// Store layers per-key locking on top.
type Repository interface {
	// InsertLoop fails with apperr.ErrConflict when the id exists.
	InsertLoop(ctx context.Context, s *loop.State) error
	GetLoop(ctx context.Context, id string) (*loop.State, error)
	// SaveLoop replaces an existing loop; apperr.ErrNotFound otherwise.
	SaveLoop(ctx context.Context, s *loop.State) error
	DeleteLoop(ctx context.Context, id string) error
	// ListLoops returns every loop ordered by creation time.
	ListLoops(ctx context.Context) ([]*loop.State, error)

	// PutDocument inserts or replaces the record under ref.
	PutDocument(ctx context.Context, ref document.Ref, doc document.Document) error
	GetDocument(ctx context.Context, ref document.Ref) (document.Document, error)
	DeleteDocument(ctx context.Context, ref document.Ref) error
	// ListDocuments returns the sorted names stored under kind and container.
	ListDocuments(ctx context.Context, kind document.Kind, container string) ([]string, error)
}
