package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"respec/internal/apperr"
	"respec/internal/loop"
)

// InsertLoop stores a new loop.
func (r *Repository) InsertLoop(ctx context.Context, s *loop.State) error {
	state, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal loop %s: %w", s.ID, err)
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO loops (id, loop_type, iteration, status, state_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, s.ID, string(s.Type), s.Iteration, string(s.Status), string(state),
			s.CreatedAt.UnixNano(), s.UpdatedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to insert loop %s: %w", s.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.Conflict("database.InsertLoop", s.ID)
		}
		return recordEvent(ctx, tx, s, EventCreated, nil)
	})
}

// GetLoop loads a loop by id.
func (r *Repository) GetLoop(ctx context.Context, id string) (*loop.State, error) {
	var state string
	err := r.db.QueryRowContext(ctx, `SELECT state_json FROM loops WHERE id = ?`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("database.GetLoop", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loop %s: %w", id, err)
	}
	return decodeLoop(state)
}

// SaveLoop replaces a loop and appends an event describing the change.
func (r *Repository) SaveLoop(ctx context.Context, s *loop.State) error {
	state, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal loop %s: %w", s.ID, err)
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		var prev string
		err := tx.QueryRowContext(ctx, `SELECT state_json FROM loops WHERE id = ?`, s.ID).Scan(&prev)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("database.SaveLoop", s.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to read loop %s: %w", s.ID, err)
		}
		old, err := decodeLoop(prev)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE loops
			SET iteration = ?, status = ?, state_json = ?, updated_at = ?
			WHERE id = ?
		`, s.Iteration, string(s.Status), string(state), s.UpdatedAt.UnixNano(), s.ID)
		if err != nil {
			return fmt.Errorf("failed to update loop %s: %w", s.ID, err)
		}

		eventType, score := classify(old, s)
		return recordEvent(ctx, tx, s, eventType, score)
	})
}

// DeleteLoop removes a loop and its events.
func (r *Repository) DeleteLoop(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM loops WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete loop %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("database.DeleteLoop", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM loop_events WHERE loop_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete events of loop %s: %w", id, err)
		}
		return nil
	})
}

// ListLoops returns every loop ordered by creation time.
func (r *Repository) ListLoops(ctx context.Context) ([]*loop.State, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT state_json FROM loops ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list loops: %w", err)
	}
	defer rows.Close()

	out := []*loop.State{}
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, err
		}
		s, err := decodeLoop(state)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func decodeLoop(state string) (*loop.State, error) {
	var s loop.State
	if err := json.Unmarshal([]byte(state), &s); err != nil {
		return nil, fmt.Errorf("failed to decode loop state: %w", err)
	}
	return &s, nil
}
