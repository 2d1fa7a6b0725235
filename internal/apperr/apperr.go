// Package apperr defines the error taxonomy shared by the codec, the
// aggregator and the store. Callers match on the sentinels with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat means a document is missing its required title line.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrNotFound means an unknown loop id or document key.
	ErrNotFound = errors.New("not found")
	// ErrValidation means a value is outside its declared range or set.
	ErrValidation = errors.New("validation error")
	// ErrConflict is returned by strict-create operations on an existing key.
	ErrConflict = errors.New("conflict")
)

// Error carries the failing operation and key alongside one of the sentinels.
type Error struct {
	Op   string
	Key  string
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg = msg + ": " + e.Msg
	}
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Key, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap exposes the sentinel so errors.Is works across wrapping layers.
func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFound builds an ErrNotFound for op on key.
func NotFound(op, key string) error {
	return &Error{Op: op, Key: key, Kind: ErrNotFound}
}

// Validation builds an ErrValidation with a formatted message.
func Validation(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// InvalidFormat builds an ErrInvalidFormat with a formatted message.
func InvalidFormat(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrInvalidFormat, Msg: fmt.Sprintf(format, args...)}
}

// Conflict builds an ErrConflict for op on key.
func Conflict(op, key string) error {
	return &Error{Op: op, Key: key, Kind: ErrConflict}
}
