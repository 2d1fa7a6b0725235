// Package feedback turns critic feedback into a single 0-100 score and
// slices bounded windows of feedback history.
package feedback

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"respec/internal/apperr"
	"respec/internal/document"
)

// DefaultRecentCount is the window used when callers do not pass one.
const DefaultRecentCount = 5

// Criteria that count twice in the weighted mean.
var doubleWeighted = map[string]bool{
	"completeness":       true,
	"technical_accuracy": true,
	"feasibility":        true,
}

var validate = validator.New()

type scoreInput struct {
	Score int `validate:"gte=0,lte=100"`
}

type criteriaInput struct {
	Criteria map[string]int `validate:"dive,gte=0,lte=10"`
}

// Score validates an externally supplied overall score and returns it unchanged.
func Score(score int) (int, error) {
	if err := validate.Struct(scoreInput{Score: score}); err != nil {
		return 0, validationError("feedback.Score", err)
	}
	return score, nil
}

// ScoreCriteria computes the weighted mean of 0-10 sub-scores scaled to
// 0-100. An empty map scores 0.
func ScoreCriteria(criteria map[string]int) (int, error) {
	if len(criteria) == 0 {
		return 0, nil
	}
	if err := validate.Struct(criteriaInput{Criteria: criteria}); err != nil {
		return 0, validationError("feedback.ScoreCriteria", err)
	}

	var total, weights float64
	for name, v := range criteria {
		w := Weight(name)
		total += w * float64(v)
		weights += w
	}
	return int(math.Round(total / weights * 10)), nil
}

// Weight returns the weight of a named criterion.
func Weight(name string) float64 {
	if doubleWeighted[document.CriterionName(name)] {
		return 2
	}
	return 1
}

// Normalize returns the score a feedback record contributes to its loop:
// the criteria mean when criteria are present, the overall score otherwise.
func Normalize(fb *document.CriticFeedback) (int, error) {
	if err := Validate(fb); err != nil {
		return 0, err
	}
	if len(fb.Criteria) > 0 {
		return ScoreCriteria(fb.Criteria)
	}
	return Score(fb.OverallScore)
}

// Validate checks the ranges declared on a feedback record.
func Validate(fb *document.CriticFeedback) error {
	if fb == nil {
		return apperr.Validation("feedback.Validate", "feedback is nil")
	}
	if err := validate.Struct(fb); err != nil {
		return validationError("feedback.Validate", err)
	}
	return nil
}

// New builds feedback carrying a single overall score.
func New(loopID string, agent document.CriticAgent, iteration, score int) (*document.CriticFeedback, error) {
	if _, err := Score(score); err != nil {
		return nil, err
	}
	return &document.CriticFeedback{
		LoopID:       loopID,
		Agent:        agent,
		Iteration:    iteration,
		OverallScore: score,
		CreatedAt:    time.Now().UTC().Format("2006-01-02"),
	}, nil
}

// NewFromCriteria builds feedback from named sub-scores; OverallScore is set
// to their normalized value.
func NewFromCriteria(loopID string, agent document.CriticAgent, iteration int, criteria map[string]int) (*document.CriticFeedback, error) {
	score, err := ScoreCriteria(criteria)
	if err != nil {
		return nil, err
	}
	normalized := document.NormalizeCriteria(criteria)
	fb, err := New(loopID, agent, iteration, score)
	if err != nil {
		return nil, err
	}
	fb.Criteria = normalized
	return fb, nil
}

// Recent returns at most count of the most recent entries of history, oldest
// first. The result never aliases history.
func Recent[T any](history []T, count int) []T {
	if count <= 0 || len(history) == 0 {
		return []T{}
	}
	start := len(history) - count
	if start < 0 {
		start = 0
	}
	out := make([]T, len(history)-start)
	copy(out, history[start:])
	return out
}

func validationError(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(op, "%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s=%v violates %s=%s", fe.Namespace(), fe.Value(), fe.Tag(), fe.Param()))
	}
	return apperr.Validation(op, "%s", strings.Join(msgs, "; "))
}
