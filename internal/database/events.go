package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"respec/internal/loop"
)

// Event types written to loop_events.
const (
	EventCreated   = "created"
	EventFeedback  = "feedback"
	EventIteration = "iteration"
	EventLinked    = "linked"
	EventUpdated   = "updated"
)

// Event is one row of a loop's audit trail.
type Event struct {
	ID         int64       `json:"id"`
	LoopID     string      `json:"loop_id"`
	Type       string      `json:"event_type"`
	Iteration  int         `json:"iteration"`
	Status     loop.Status `json:"status"`
	Score      *int        `json:"score,omitempty"`
	RecordedAt time.Time   `json:"recorded_at"`
}

// classify describes what changed between two versions of a loop.
func classify(old, s *loop.State) (string, *int) {
	switch {
	case len(s.Scores) > len(old.Scores):
		score := s.Scores[len(s.Scores)-1]
		return EventFeedback, &score
	case s.Iteration != old.Iteration:
		return EventIteration, nil
	case (s.Document == nil) != (old.Document == nil) ||
		(s.Document != nil && *s.Document != *old.Document):
		return EventLinked, nil
	default:
		return EventUpdated, nil
	}
}

func recordEvent(ctx context.Context, tx *sql.Tx, s *loop.State, eventType string, score *int) error {
	var scoreArg sql.NullInt64
	if score != nil {
		scoreArg = sql.NullInt64{Int64: int64(*score), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO loop_events (loop_id, event_type, iteration, status, score, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ID, eventType, s.Iteration, string(s.Status), scoreArg, s.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record %s event for loop %s: %w", eventType, s.ID, err)
	}
	return nil
}

// Events returns the audit trail of a loop, oldest first.
func (r *Repository) Events(ctx context.Context, loopID string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, loop_id, event_type, iteration, status, score, recorded_at
		FROM loop_events
		WHERE loop_id = ?
		ORDER BY id ASC
	`, loopID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events of loop %s: %w", loopID, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var status string
		var score sql.NullInt64
		var recorded int64
		if err := rows.Scan(&e.ID, &e.LoopID, &e.Type, &e.Iteration, &status, &score, &recorded); err != nil {
			return nil, err
		}
		e.Status = loop.Status(status)
		if score.Valid {
			v := int(score.Int64)
			e.Score = &v
		}
		e.RecordedAt = time.Unix(0, recorded).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}
