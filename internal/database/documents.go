package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"respec/internal/apperr"
	"respec/internal/document"
)

// PutDocument upserts the canonical text of doc under ref. Roadmap specs are
// stored next to the text since they are not part of it.
func (r *Repository) PutDocument(ctx context.Context, ref document.Ref, doc document.Document) error {
	var specs sql.NullString
	if roadmap, ok := doc.(*document.Roadmap); ok && len(roadmap.Specs) > 0 {
		data, err := json.Marshal(roadmap.Specs)
		if err != nil {
			return fmt.Errorf("failed to marshal specs of %s: %w", ref, err)
		}
		specs = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (kind, container, name, body, specs_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, container, name)
		DO UPDATE SET body = excluded.body, specs_json = excluded.specs_json, updated_at = excluded.updated_at
	`, string(ref.Kind), ref.Container, ref.Name, document.Build(doc), specs, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to store document %s: %w", ref, err)
	}
	r.forget(ref)
	return nil
}

// GetDocument returns the parsed record under ref. Concurrent misses on the
// same key share one load.
func (r *Repository) GetDocument(ctx context.Context, ref document.Ref) (document.Document, error) {
	if doc, ok := r.cache.Get(ref); ok {
		return document.Clone(doc), nil
	}
	v, err, _ := r.flight.Do(ref.Key(), func() (any, error) {
		doc, err := r.loadDocument(ctx, ref)
		if err != nil {
			return nil, err
		}
		r.cache.Add(ref, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return document.Clone(v.(document.Document)), nil
}

func (r *Repository) loadDocument(ctx context.Context, ref document.Ref) (document.Document, error) {
	var body string
	var specs sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT body, specs_json FROM documents
		WHERE kind = ? AND container = ? AND name = ?
	`, string(ref.Kind), ref.Container, ref.Name).Scan(&body, &specs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("database.GetDocument", ref.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", ref, err)
	}

	doc, err := document.Parse(ref.Kind, body)
	if err != nil {
		return nil, fmt.Errorf("stored document %s is unreadable: %w", ref, err)
	}
	if roadmap, ok := doc.(*document.Roadmap); ok && specs.Valid {
		if err := json.Unmarshal([]byte(specs.String), &roadmap.Specs); err != nil {
			return nil, fmt.Errorf("failed to decode specs of %s: %w", ref, err)
		}
	}
	return doc, nil
}

// DeleteDocument removes the record under ref.
func (r *Repository) DeleteDocument(ctx context.Context, ref document.Ref) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM documents WHERE kind = ? AND container = ? AND name = ?
	`, string(ref.Kind), ref.Container, ref.Name)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", ref, err)
	}
	r.forget(ref)
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("database.DeleteDocument", ref.String())
	}
	return nil
}

// ListDocuments returns the sorted names under kind and container.
func (r *Repository) ListDocuments(ctx context.Context, kind document.Kind, container string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name FROM documents
		WHERE kind = ? AND container = ?
		ORDER BY name ASC
	`, string(kind), container)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s documents: %w", kind, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *Repository) forget(ref document.Ref) {
	r.flight.Forget(ref.Key())
	r.cache.Remove(ref)
}

// CacheLen reports how many parsed records are cached.
func (r *Repository) CacheLen() int {
	return r.cache.Len()
}
