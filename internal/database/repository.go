package database

import (
	"context"
	"database/sql"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"respec/internal/document"
	"respec/internal/store"
)

// DefaultCacheSize bounds the parsed-document cache.
const DefaultCacheSize = 256

// Repository implements store.Repository on SQLite. Documents are kept as
// canonical text; parsed records are cached by key.
type Repository struct {
	db     *sql.DB
	cache  *lru.Cache[document.Ref, document.Document]
	flight singleflight.Group
}

var _ store.Repository = (*Repository)(nil)

// NewRepository wraps an open, migrated database.
func NewRepository(db *sql.DB, cacheSize int) (*Repository, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[document.Ref, document.Document](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}
	return &Repository{db: db, cache: cache}, nil
}

// OpenRepository opens path, applies the schema and returns a repository
// that owns the connection.
func OpenRepository(ctx context.Context, path string, cacheSize int) (*Repository, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	repo, err := NewRepository(db, cacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// DB exposes the connection for helpers sharing the file.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
