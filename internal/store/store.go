// Package store is the single entry point for loops and documents. Every
// mutation of one loop id or one document key is serialized; unrelated keys
// proceed in parallel.
package store

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"respec/internal/apperr"
	"respec/internal/document"
	"respec/internal/feedback"
	"respec/internal/loop"
	"respec/internal/metrics"
)

// Store coordinates the repository, the feedback aggregator and the loop
// engine.
type Store struct {
	repo   Repository
	cfg    loop.Config
	logger *slog.Logger
	rec    metrics.Recorder
	now    func() time.Time
	newID  func() string
	locks  *keyedMutex
}

// New creates a store over repo.
func New(repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		cfg:    loop.DefaultConfig(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		rec:    metrics.Nop{},
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
		locks:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the engine configuration in use.
func (s *Store) Config() loop.Config {
	return s.cfg
}

func loopKey(id string) string {
	return "loop/" + id
}

func docKey(ref document.Ref) string {
	return "doc/" + ref.Key()
}

func (s *Store) observe(op string, start time.Time, err *error) {
	s.rec.ObserveOp(op, time.Since(start), *err)
}

// CreateLoop starts a new loop at iteration 1.
func (s *Store) CreateLoop(ctx context.Context, loopType string) (st *loop.State, err error) {
	defer s.observe("create_loop", time.Now(), &err)

	t, err := loop.ParseType(loopType)
	if err != nil {
		return nil, err
	}
	if _, err := s.cfg.Limits(t); err != nil {
		return nil, err
	}

	st = loop.NewState(s.newID(), t, s.now())
	unlock := s.locks.Lock(loopKey(st.ID))
	defer unlock()

	if err := s.repo.InsertLoop(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Info("loop created", "loop_id", st.ID, "loop_type", st.Type)
	return st, nil
}

// GetLoop returns a snapshot of the loop.
func (s *Store) GetLoop(ctx context.Context, id string) (st *loop.State, err error) {
	defer s.observe("get_loop", time.Now(), &err)

	unlock := s.locks.Lock(loopKey(id))
	defer unlock()
	return s.repo.GetLoop(ctx, id)
}

// AddFeedback scores fb, appends it and its score to the loop history and
// refreshes the loop status. The caller's fb is not modified.
func (s *Store) AddFeedback(ctx context.Context, id string, fb *document.CriticFeedback) (st *loop.State, err error) {
	defer s.observe("add_feedback", time.Now(), &err)

	unlock := s.locks.Lock(loopKey(id))
	defer unlock()

	st, err = s.repo.GetLoop(ctx, id)
	if err != nil {
		return nil, err
	}
	score, err := feedback.Normalize(fb)
	if err != nil {
		return nil, err
	}

	entry := fb.Clone()
	entry.LoopID = id
	entry.Iteration = st.Iteration
	entry.OverallScore = score
	entry.Criteria = document.NormalizeCriteria(entry.Criteria)
	if entry.CreatedAt == "" {
		entry.CreatedAt = s.now().Format("2006-01-02")
	}

	st.Scores = append(st.Scores, score)
	st.Feedback = append(st.Feedback, entry)
	st.Status = loop.DeriveStatus(st.Scores, st.Iteration, st.Type, s.cfg)
	st.UpdatedAt = s.now()

	if err := s.repo.SaveLoop(ctx, st); err != nil {
		return nil, err
	}

	outcome := loop.Decide(st.Scores, st.Iteration, st.Type, s.cfg)
	s.rec.ObserveDecision(string(st.Type), string(outcome), score)
	s.logger.Info("feedback recorded",
		"loop_id", id, "loop_type", st.Type, "iteration", st.Iteration,
		"score", score, "status", st.Status)
	return st, nil
}

// AddFeedbackText parses critic feedback markdown and records it.
func (s *Store) AddFeedbackText(ctx context.Context, id, text string) (*loop.State, error) {
	doc, err := document.Parse(document.KindCriticFeedback, text)
	if err != nil {
		return nil, err
	}
	return s.AddFeedback(ctx, id, doc.(*document.CriticFeedback))
}

// RecordScore records a bare 0-100 score.
func (s *Store) RecordScore(ctx context.Context, id string, score int) (*loop.State, error) {
	fb, err := feedback.New(id, "", 0, score)
	if err != nil {
		return nil, err
	}
	return s.AddFeedback(ctx, id, fb)
}

// RecordCriteria records named 0-10 sub-scores.
func (s *Store) RecordCriteria(ctx context.Context, id string, criteria map[string]int) (*loop.State, error) {
	fb, err := feedback.NewFromCriteria(id, "", 0, criteria)
	if err != nil {
		return nil, err
	}
	return s.AddFeedback(ctx, id, fb)
}

// IncrementIteration advances the loop by one iteration.
func (s *Store) IncrementIteration(ctx context.Context, id string) (st *loop.State, err error) {
	defer s.observe("increment_iteration", time.Now(), &err)

	unlock := s.locks.Lock(loopKey(id))
	defer unlock()

	st, err = s.repo.GetLoop(ctx, id)
	if err != nil {
		return nil, err
	}
	st.Iteration++
	st.Status = loop.DeriveStatus(st.Scores, st.Iteration, st.Type, s.cfg)
	st.UpdatedAt = s.now()
	if err := s.repo.SaveLoop(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Debug("iteration advanced", "loop_id", id, "iteration", st.Iteration, "status", st.Status)
	return st, nil
}

// Decide asks the engine what to do next with the loop.
func (s *Store) Decide(ctx context.Context, id string) (loop.Decision, error) {
	st, err := s.GetLoop(ctx, id)
	if err != nil {
		return loop.Decision{}, err
	}
	d := loop.Evaluate(st, s.cfg)
	s.logger.Debug("loop decision", "loop_id", id, "outcome", d.Outcome, "score", d.Score)
	return d, nil
}

// GetRecentFeedback returns up to count of the newest feedback entries,
// oldest first.
func (s *Store) GetRecentFeedback(ctx context.Context, id string, count int) ([]*document.CriticFeedback, error) {
	st, err := s.GetLoop(ctx, id)
	if err != nil {
		return nil, err
	}
	return feedback.Recent(st.Feedback, count), nil
}

// GetFeedback returns the feedback recorded during one iteration.
func (s *Store) GetFeedback(ctx context.Context, id string, iteration int) ([]*document.CriticFeedback, error) {
	st, err := s.GetLoop(ctx, id)
	if err != nil {
		return nil, err
	}
	out := []*document.CriticFeedback{}
	for _, fb := range st.Feedback {
		if fb.Iteration == iteration {
			out = append(out, fb)
		}
	}
	return out, nil
}

// ListActiveLoops returns loops that have not completed or run out of
// iterations, oldest first.
func (s *Store) ListActiveLoops(ctx context.Context) (out []*loop.State, err error) {
	defer s.observe("list_active_loops", time.Now(), &err)

	all, err := s.repo.ListLoops(ctx)
	if err != nil {
		return nil, err
	}
	out = []*loop.State{}
	for _, st := range all {
		if !st.Status.Terminal() {
			out = append(out, st)
		}
	}
	return out, nil
}

// ListLoops returns every loop, oldest first.
func (s *Store) ListLoops(ctx context.Context) ([]*loop.State, error) {
	return s.repo.ListLoops(ctx)
}

// DeleteLoop removes the loop.
func (s *Store) DeleteLoop(ctx context.Context, id string) (err error) {
	defer s.observe("delete_loop", time.Now(), &err)

	unlock := s.locks.Lock(loopKey(id))
	defer unlock()
	if err := s.repo.DeleteLoop(ctx, id); err != nil {
		return err
	}
	s.logger.Info("loop deleted", "loop_id", id)
	return nil
}

func validRef(op string, ref document.Ref) error {
	if !ref.Kind.Valid() {
		return apperr.Validation(op, "unknown document kind %q", ref.Kind)
	}
	if ref.Name == "" {
		return apperr.Validation(op, "document name is empty")
	}
	return nil
}
