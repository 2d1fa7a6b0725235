package loop

import "fmt"

// Outcome is what the orchestrator should do next.
type Outcome string

const (
	OutcomeRefine        Outcome = "REFINE"
	OutcomeComplete      Outcome = "COMPLETE"
	OutcomeUserInput     Outcome = "USER_INPUT"
	OutcomeMaxIterations Outcome = "MAX_ITERATIONS"
)

// Status is the cached lifecycle state of a loop.
type Status string

const (
	StatusInitialized   Status = "initialized"
	StatusInProgress    Status = "in_progress"
	StatusRefine        Status = "refine"
	StatusCompleted     Status = "completed"
	StatusUserInput     Status = "user_input"
	StatusMaxIterations Status = "max_iterations"
)

// Terminal reports whether no further refinement is expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusMaxIterations
}

// Status maps an outcome to the loop status it produces.
func (o Outcome) Status() Status {
	switch o {
	case OutcomeComplete:
		return StatusCompleted
	case OutcomeUserInput:
		return StatusUserInput
	case OutcomeMaxIterations:
		return StatusMaxIterations
	default:
		return StatusRefine
	}
}

// Decide maps a score history and iteration to an outcome. It is pure: the
// same inputs always give the same answer and scores is never modified.
// An unknown loop type falls back to the TypeSpec limits.
func Decide(scores []int, iteration int, t LoopType, cfg Config) Outcome {
	limits, err := cfg.Limits(t)
	if err != nil {
		limits = DefaultConfig().Types[TypeSpec]
	}

	if iteration >= limits.MaxIterations {
		return OutcomeMaxIterations
	}
	if len(scores) == 0 {
		return OutcomeRefine
	}

	last := len(scores) - 1
	if scores[last] >= limits.Threshold {
		return OutcomeComplete
	}
	if Stagnating(scores, cfg.StagnationWindow, cfg.StagnationDelta) {
		return OutcomeUserInput
	}
	return OutcomeRefine
}

// Stagnating reports whether the last score improved on the score window
// entries earlier by less than delta.
func Stagnating(scores []int, window, delta int) bool {
	if window < 1 || len(scores) <= window {
		return false
	}
	last := len(scores) - 1
	return scores[last]-scores[last-window] < delta
}

// DeriveStatus recomputes the cached status of a loop from its history.
func DeriveStatus(scores []int, iteration int, t LoopType, cfg Config) Status {
	outcome := Decide(scores, iteration, t, cfg)
	if len(scores) == 0 && outcome != OutcomeMaxIterations {
		if iteration <= 1 {
			return StatusInitialized
		}
		return StatusInProgress
	}
	return outcome.Status()
}

// Decision is the engine's answer together with a message for the caller.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Status  Status  `json:"status"`
	Score   int     `json:"score"`
	Message string  `json:"message"`
}

// Evaluate runs Decide against a loop and explains the result.
func Evaluate(s *State, cfg Config) Decision {
	outcome := Decide(s.Scores, s.Iteration, s.Type, cfg)
	d := Decision{Outcome: outcome, Status: outcome.Status()}
	if len(s.Scores) > 0 {
		d.Score = s.Scores[len(s.Scores)-1]
	}

	limits, err := cfg.Limits(s.Type)
	if err != nil {
		limits = DefaultConfig().Types[TypeSpec]
	}
	switch outcome {
	case OutcomeComplete:
		d.Message = fmt.Sprintf("score %d meets the %s threshold of %d", d.Score, s.Type, limits.Threshold)
	case OutcomeMaxIterations:
		d.Message = fmt.Sprintf("iteration %d reached the limit of %d", s.Iteration, limits.MaxIterations)
	case OutcomeUserInput:
		d.Message = fmt.Sprintf("score %d improved by less than %d over the last %d rounds; user input needed",
			d.Score, cfg.StagnationDelta, cfg.StagnationWindow)
	default:
		if len(s.Scores) == 0 {
			d.Message = "no feedback recorded yet"
		} else {
			d.Message = fmt.Sprintf("score %d is below the %s threshold of %d; refine and resubmit", d.Score, s.Type, limits.Threshold)
		}
	}
	return d
}
