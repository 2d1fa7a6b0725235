package store

import (
	"log/slog"
	"time"

	"respec/internal/loop"
	"respec/internal/metrics"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEngine replaces the loop thresholds and stagnation rule.
func WithEngine(cfg loop.Config) Option {
	return func(s *Store) { s.cfg = cfg }
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRecorder sets the telemetry sink.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.rec = r
		}
	}
}

// WithIDGenerator overrides uuid-based loop ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}
