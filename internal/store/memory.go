package store

import (
	"context"
	"sort"
	"sync"

	"respec/internal/apperr"
	"respec/internal/document"
	"respec/internal/loop"
)

// MemoryRepository keeps everything in process memory.
type MemoryRepository struct {
	mu        sync.RWMutex
	loops     map[string]*loop.State
	documents map[document.Ref]document.Document
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		loops:     make(map[string]*loop.State),
		documents: make(map[document.Ref]document.Document),
	}
}

func (r *MemoryRepository) InsertLoop(_ context.Context, s *loop.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loops[s.ID]; ok {
		return apperr.Conflict("store.InsertLoop", s.ID)
	}
	r.loops[s.ID] = s.Clone()
	return nil
}

func (r *MemoryRepository) GetLoop(_ context.Context, id string) (*loop.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.loops[id]
	if !ok {
		return nil, apperr.NotFound("store.GetLoop", id)
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) SaveLoop(_ context.Context, s *loop.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loops[s.ID]; !ok {
		return apperr.NotFound("store.SaveLoop", s.ID)
	}
	r.loops[s.ID] = s.Clone()
	return nil
}

func (r *MemoryRepository) DeleteLoop(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loops[id]; !ok {
		return apperr.NotFound("store.DeleteLoop", id)
	}
	delete(r.loops, id)
	return nil
}

func (r *MemoryRepository) ListLoops(_ context.Context) ([]*loop.State, error) {
	r.mu.RLock()
	out := make([]*loop.State, 0, len(r.loops))
	for _, s := range r.loops {
		out = append(out, s.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) PutDocument(_ context.Context, ref document.Ref, doc document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents[ref] = document.Clone(doc)
	return nil
}

func (r *MemoryRepository) GetDocument(_ context.Context, ref document.Ref) (document.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.documents[ref]
	if !ok {
		return nil, apperr.NotFound("store.GetDocument", ref.String())
	}
	return document.Clone(d), nil
}

func (r *MemoryRepository) DeleteDocument(_ context.Context, ref document.Ref) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.documents[ref]; !ok {
		return apperr.NotFound("store.DeleteDocument", ref.String())
	}
	delete(r.documents, ref)
	return nil
}

func (r *MemoryRepository) ListDocuments(_ context.Context, kind document.Kind, container string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := []string{}
	for ref := range r.documents {
		if ref.Kind == kind && ref.Container == container {
			names = append(names, ref.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}
