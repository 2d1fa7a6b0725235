package store

import (
	"context"
	"time"

	"respec/internal/apperr"
	"respec/internal/document"
)

// StoreDocument parses text as ref.Kind and replaces whatever was stored
// under ref.
func (s *Store) StoreDocument(ctx context.Context, ref document.Ref, text string) (doc document.Document, err error) {
	defer s.observe("store_document", time.Now(), &err)

	if err := validRef("store.StoreDocument", ref); err != nil {
		return nil, err
	}
	doc, err = document.Parse(ref.Kind, text)
	if err != nil {
		return nil, err
	}
	return doc, s.put(ctx, ref, doc)
}

// StoreRecord stores an already built record under ref.
func (s *Store) StoreRecord(ctx context.Context, ref document.Ref, doc document.Document) (err error) {
	defer s.observe("store_document", time.Now(), &err)

	if err := validRef("store.StoreRecord", ref); err != nil {
		return err
	}
	if doc == nil || doc.Kind() != ref.Kind {
		return apperr.Validation("store.StoreRecord", "record does not match kind %q", ref.Kind)
	}
	return s.put(ctx, ref, doc)
}

// CreatePlaceholder stores a fully defaulted record named after ref.
func (s *Store) CreatePlaceholder(ctx context.Context, ref document.Ref) (document.Document, error) {
	if err := validRef("store.CreatePlaceholder", ref); err != nil {
		return nil, err
	}
	doc, err := document.NewPlaceholder(ref.Kind, ref.Name)
	if err != nil {
		return nil, err
	}
	if err := s.StoreRecord(ctx, ref, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) put(ctx context.Context, ref document.Ref, doc document.Document) error {
	unlock := s.locks.Lock(docKey(ref))
	defer unlock()

	if err := s.repo.PutDocument(ctx, ref, doc); err != nil {
		return err
	}
	s.logger.Info("document stored", "kind", ref.Kind, "container", ref.Container, "name", ref.Name)
	return nil
}

// GetDocument returns the canonical text of the stored record.
func (s *Store) GetDocument(ctx context.Context, ref document.Ref) (string, error) {
	doc, err := s.GetRecord(ctx, ref)
	if err != nil {
		return "", err
	}
	return document.Build(doc), nil
}

// GetRecord returns a copy of the stored record.
func (s *Store) GetRecord(ctx context.Context, ref document.Ref) (doc document.Document, err error) {
	defer s.observe("get_document", time.Now(), &err)

	unlock := s.locks.Lock(docKey(ref))
	defer unlock()
	return s.repo.GetDocument(ctx, ref)
}

// ListDocuments returns the sorted names stored under kind and container.
func (s *Store) ListDocuments(ctx context.Context, kind document.Kind, container string) (names []string, err error) {
	defer s.observe("list_documents", time.Now(), &err)

	if !kind.Valid() {
		return nil, apperr.Validation("store.ListDocuments", "unknown document kind %q", kind)
	}
	return s.repo.ListDocuments(ctx, kind, container)
}

// DeleteDocument removes the record under ref.
func (s *Store) DeleteDocument(ctx context.Context, ref document.Ref) (err error) {
	defer s.observe("delete_document", time.Now(), &err)

	unlock := s.locks.Lock(docKey(ref))
	defer unlock()
	if err := s.repo.DeleteDocument(ctx, ref); err != nil {
		return err
	}
	s.logger.Info("document deleted", "kind", ref.Kind, "container", ref.Container, "name", ref.Name)
	return nil
}

// LinkLoopToDocument records which document a loop is refining. The
// document does not have to exist yet.
func (s *Store) LinkLoopToDocument(ctx context.Context, loopID string, ref document.Ref) (err error) {
	defer s.observe("link_loop", time.Now(), &err)

	if err := validRef("store.LinkLoopToDocument", ref); err != nil {
		return err
	}
	return s.updateLink(ctx, loopID, &ref)
}

// UnlinkLoop clears the loop's document link.
func (s *Store) UnlinkLoop(ctx context.Context, loopID string) (err error) {
	defer s.observe("unlink_loop", time.Now(), &err)
	return s.updateLink(ctx, loopID, nil)
}

func (s *Store) updateLink(ctx context.Context, loopID string, ref *document.Ref) error {
	unlock := s.locks.Lock(loopKey(loopID))
	defer unlock()

	st, err := s.repo.GetLoop(ctx, loopID)
	if err != nil {
		return err
	}
	st.Document = ref
	st.UpdatedAt = s.now()
	if err := s.repo.SaveLoop(ctx, st); err != nil {
		return err
	}
	if ref != nil {
		s.logger.Debug("loop linked", "loop_id", loopID, "document", ref.String())
	} else {
		s.logger.Debug("loop unlinked", "loop_id", loopID)
	}
	return nil
}

// LoopDocumentRef returns the loop's linked ref.
func (s *Store) LoopDocumentRef(ctx context.Context, loopID string) (document.Ref, error) {
	st, err := s.GetLoop(ctx, loopID)
	if err != nil {
		return document.Ref{}, err
	}
	if st.Document == nil {
		return document.Ref{}, apperr.NotFound("store.LoopDocumentRef", loopID)
	}
	return *st.Document, nil
}

// GetLoopDocument returns the text of the document linked to the loop.
func (s *Store) GetLoopDocument(ctx context.Context, loopID string) (string, error) {
	ref, err := s.LoopDocumentRef(ctx, loopID)
	if err != nil {
		return "", err
	}
	return s.GetDocument(ctx, ref)
}

// AddRoadmapSpec stores spec under the project container and embeds it in
// the project's roadmap. The roadmap's spec count is left alone.
func (s *Store) AddRoadmapSpec(ctx context.Context, project string, spec *document.Specification) (err error) {
	defer s.observe("add_roadmap_spec", time.Now(), &err)

	if spec == nil || spec.Name() == "" {
		return apperr.Validation("store.AddRoadmapSpec", "specification needs a name")
	}
	roadmapRef := document.Ref{Kind: document.KindRoadmap, Name: project}
	unlock := s.locks.Lock(docKey(roadmapRef))
	defer unlock()

	doc, err := s.repo.GetDocument(ctx, roadmapRef)
	if err != nil {
		return err
	}
	specRef := document.Ref{Kind: document.KindSpecification, Container: project, Name: spec.Name()}
	if err := s.StoreRecord(ctx, specRef, spec); err != nil {
		return err
	}
	roadmap := doc.(*document.Roadmap)
	roadmap.Specs = append(roadmap.Specs, document.Clone(spec).(*document.Specification))
	if err := s.repo.PutDocument(ctx, roadmapRef, roadmap); err != nil {
		return err
	}
	s.logger.Info("roadmap spec added", "project", project, "spec", spec.Name(), "embedded", len(roadmap.Specs))
	return nil
}
