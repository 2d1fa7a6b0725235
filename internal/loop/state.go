package loop

import (
	"time"

	"respec/internal/document"
)

// State is one refinement session. Scores and Feedback grow together and are
// only appended to by the store.
type State struct {
	ID        string                     `json:"id"`
	Type      LoopType                   `json:"loop_type"`
	Iteration int                        `json:"iteration"`
	Scores    []int                      `json:"score_history"`
	Feedback  []*document.CriticFeedback `json:"feedback_history"`
	Status    Status                     `json:"status"`
	Document  *document.Ref              `json:"document,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// NewState returns a fresh loop at iteration 1.
func NewState(id string, t LoopType, now time.Time) *State {
	return &State{
		ID:        id,
		Type:      t,
		Iteration: 1,
		Scores:    []int{},
		Feedback:  []*document.CriticFeedback{},
		Status:    StatusInitialized,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LastScore returns the most recent score and whether one exists.
func (s *State) LastScore() (int, bool) {
	if len(s.Scores) == 0 {
		return 0, false
	}
	return s.Scores[len(s.Scores)-1], true
}

// Clone deep-copies the state so callers cannot reach stored history.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Scores = append([]int{}, s.Scores...)
	c.Feedback = make([]*document.CriticFeedback, len(s.Feedback))
	for i, fb := range s.Feedback {
		c.Feedback[i] = fb.Clone()
	}
	if s.Document != nil {
		ref := *s.Document
		c.Document = &ref
	}
	return &c
}
