package metrics

import "time"

// Recorder receives store telemetry. Implementations must be safe for
// concurrent use and must not block callers on failure.
type Recorder interface {
	ObserveOp(op string, d time.Duration, err error)
	ObserveDecision(loopType, outcome string, score int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveOp(string, time.Duration, error) {}
func (Nop) ObserveDecision(string, string, int)    {}

type multi []Recorder

// Multi fans out to every non-nil recorder.
func Multi(recorders ...Recorder) Recorder {
	var m multi
	for _, r := range recorders {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

func (m multi) ObserveOp(op string, d time.Duration, err error) {
	for _, r := range m {
		r.ObserveOp(op, d, err)
	}
}

func (m multi) ObserveDecision(loopType, outcome string, score int) {
	for _, r := range m {
		r.ObserveDecision(loopType, outcome, score)
	}
}

// Result labels an operation outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
