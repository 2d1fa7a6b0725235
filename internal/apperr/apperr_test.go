package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		msg  string
	}{
		{"not found", NotFound("store.GetLoop", "abc"), ErrNotFound, "store.GetLoop abc: not found"},
		{"conflict", Conflict("database.InsertLoop", "abc"), ErrConflict, "database.InsertLoop abc: conflict"},
		{"validation", Validation("feedback.Score", "score %d out of range", 101), ErrValidation, "feedback.Score: validation error: score 101 out of range"},
		{"format", InvalidFormat("document.Parse", "missing title"), ErrInvalidFormat, "document.Parse: invalid format: missing title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.EqualError(t, tt.err, tt.msg)

			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)

			var e *Error
			assert.True(t, errors.As(wrapped, &e))
		})
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	assert.NotErrorIs(t, NotFound("op", "k"), ErrConflict)
	assert.NotErrorIs(t, Validation("op", "bad"), ErrInvalidFormat)
}
