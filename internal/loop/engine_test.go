package loop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"respec/internal/apperr"
	"respec/internal/document"
)

func TestDecide(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name      string
		scores    []int
		iteration int
		loopType  LoopType
		want      Outcome
	}{
		{"empty history refines", nil, 1, TypeSpec, OutcomeRefine},
		{"threshold met", []int{85}, 1, TypeSpec, OutcomeComplete},
		{"just below threshold", []int{84}, 1, TypeSpec, OutcomeRefine},
		{"stagnation", []int{60, 62, 63}, 3, TypePlan, OutcomeUserInput},
		{"improving enough", []int{60, 62, 65}, 3, TypePlan, OutcomeRefine},
		{"window not filled", []int{60, 61}, 2, TypePlan, OutcomeRefine},
		{"max iterations wins over threshold", []int{99}, 5, TypeSpec, OutcomeMaxIterations},
		{"max iterations with empty history", nil, 5, TypePlan, OutcomeMaxIterations},
		{"threshold wins over stagnation", []int{79, 80, 80}, 3, TypePlan, OutcomeComplete},
		{"build code strict", []int{94}, 2, TypeBuildCode, OutcomeRefine},
		{"build code passes", []int{95}, 2, TypeBuildCode, OutcomeComplete},
		{"regression stagnates", []int{70, 75, 65}, 3, TypeRoadmap, OutcomeUserInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.scores, tt.iteration, tt.loopType, cfg))
		})
	}
}

func TestDecideIsPure(t *testing.T) {
	cfg := DefaultConfig()
	scores := []int{60, 62, 63}
	first := Decide(scores, 3, TypePlan, cfg)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Decide(scores, 3, TypePlan, cfg))
	}
	assert.Equal(t, []int{60, 62, 63}, scores)
}

func TestDecideCustomStagnation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StagnationWindow = 1
	cfg.StagnationDelta = 1

	assert.Equal(t, OutcomeUserInput, Decide([]int{50, 50}, 2, TypePlan, cfg))
	assert.Equal(t, OutcomeRefine, Decide([]int{50, 51}, 2, TypePlan, cfg))
}

func TestDeriveStatus(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, StatusInitialized, DeriveStatus(nil, 1, TypeSpec, cfg))
	assert.Equal(t, StatusInProgress, DeriveStatus(nil, 2, TypeSpec, cfg))
	assert.Equal(t, StatusMaxIterations, DeriveStatus(nil, 5, TypeSpec, cfg))
	assert.Equal(t, StatusRefine, DeriveStatus([]int{40}, 1, TypeSpec, cfg))
	assert.Equal(t, StatusCompleted, DeriveStatus([]int{90}, 1, TypeSpec, cfg))
	assert.Equal(t, StatusUserInput, DeriveStatus([]int{60, 62, 63}, 3, TypePlan, cfg))
	assert.Equal(t, StatusMaxIterations, DeriveStatus([]int{40}, 5, TypeSpec, cfg))
}

func TestOutcomeStatus(t *testing.T) {
	assert.Equal(t, StatusRefine, OutcomeRefine.Status())
	assert.Equal(t, StatusCompleted, OutcomeComplete.Status())
	assert.Equal(t, StatusUserInput, OutcomeUserInput.Status())
	assert.Equal(t, StatusMaxIterations, OutcomeMaxIterations.Status())

	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusMaxIterations.Terminal())
	assert.False(t, StatusUserInput.Terminal())
	assert.False(t, StatusRefine.Terminal())
}

func TestParseType(t *testing.T) {
	for raw, want := range map[string]LoopType{
		"plan":       TypePlan,
		"build-plan": TypeBuildPlan,
		"build_code": TypeBuildCode,
		" Spec ":     TypeSpec,
	} {
		got, err := ParseType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	_, err := ParseType("review")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Types[TypeSpec] = Limits{Threshold: 101, MaxIterations: 5}
	assert.ErrorIs(t, cfg.Validate(), apperr.ErrValidation)

	cfg = DefaultConfig()
	cfg.Types[TypePlan] = Limits{Threshold: 80, MaxIterations: 0}
	assert.ErrorIs(t, cfg.Validate(), apperr.ErrValidation)

	cfg = DefaultConfig()
	cfg.StagnationWindow = 0
	assert.ErrorIs(t, cfg.Validate(), apperr.ErrValidation)
}

func TestEvaluate(t *testing.T) {
	cfg := DefaultConfig()
	s := NewState("id", TypeSpec, time.Now())

	d := Evaluate(s, cfg)
	assert.Equal(t, OutcomeRefine, d.Outcome)
	assert.Equal(t, 0, d.Score)
	assert.NotEmpty(t, d.Message)

	s.Scores = []int{88}
	d = Evaluate(s, cfg)
	assert.Equal(t, OutcomeComplete, d.Outcome)
	assert.Equal(t, StatusCompleted, d.Status)
	assert.Equal(t, 88, d.Score)
	assert.Contains(t, d.Message, "85")
}

func TestStateClone(t *testing.T) {
	s := NewState("id", TypePlan, time.Now())
	s.Scores = append(s.Scores, 50)
	s.Feedback = append(s.Feedback, &document.CriticFeedback{LoopID: "id", OverallScore: 50, Criteria: map[string]int{"clarity": 5}})
	s.Document = &document.Ref{Kind: document.KindProjectPlan, Name: "p"}

	c := s.Clone()
	c.Scores[0] = 1
	c.Feedback[0].Criteria["clarity"] = 1
	c.Document.Name = "other"

	assert.Equal(t, 50, s.Scores[0])
	assert.Equal(t, 5, s.Feedback[0].Criteria["clarity"])
	assert.Equal(t, "p", s.Document.Name)

	last, ok := s.LastScore()
	assert.True(t, ok)
	assert.Equal(t, 50, last)
}
