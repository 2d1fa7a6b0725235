package loop

import (
	"sort"
	"strings"

	"respec/internal/apperr"
)

// LoopType identifies which document a refinement loop is producing.
type LoopType string

const (
	TypePlan      LoopType = "plan"
	TypeAnalyst   LoopType = "analyst"
	TypeRoadmap   LoopType = "roadmap"
	TypeSpec      LoopType = "spec"
	TypeBuildPlan LoopType = "build_plan"
	TypeBuildCode LoopType = "build_code"
)

// Types returns every loop type in declaration order.
func Types() []LoopType {
	return []LoopType{TypePlan, TypeAnalyst, TypeRoadmap, TypeSpec, TypeBuildPlan, TypeBuildCode}
}

// ParseType accepts both underscore and hyphen spellings.
func ParseType(raw string) (LoopType, error) {
	t := LoopType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_"))
	for _, known := range Types() {
		if t == known {
			return t, nil
		}
	}
	return "", apperr.Validation("loop.ParseType", "unknown loop type %q", raw)
}

// Limits are the per-type completion rules.
type Limits struct {
	Threshold     int `yaml:"threshold" json:"threshold"`
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`
}

// Config drives Decide. It is read-only once handed to a Store.
type Config struct {
	Types            map[LoopType]Limits
	StagnationWindow int
	StagnationDelta  int
}

const (
	DefaultMaxIterations    = 5
	DefaultStagnationWindow = 2
	DefaultStagnationDelta  = 5
)

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Types: map[LoopType]Limits{
			TypePlan:      {Threshold: 80, MaxIterations: DefaultMaxIterations},
			TypeAnalyst:   {Threshold: 90, MaxIterations: DefaultMaxIterations},
			TypeRoadmap:   {Threshold: 90, MaxIterations: DefaultMaxIterations},
			TypeSpec:      {Threshold: 85, MaxIterations: DefaultMaxIterations},
			TypeBuildPlan: {Threshold: 80, MaxIterations: DefaultMaxIterations},
			TypeBuildCode: {Threshold: 95, MaxIterations: DefaultMaxIterations},
		},
		StagnationWindow: DefaultStagnationWindow,
		StagnationDelta:  DefaultStagnationDelta,
	}
}

// Limits returns the rules for t.
func (c Config) Limits(t LoopType) (Limits, error) {
	l, ok := c.Types[t]
	if !ok {
		return Limits{}, apperr.Validation("loop.Config", "no limits configured for loop type %q", t)
	}
	return l, nil
}

// Validate checks every configured type and the stagnation window.
func (c Config) Validate() error {
	types := make([]string, 0, len(c.Types))
	for t := range c.Types {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, name := range types {
		l := c.Types[LoopType(name)]
		if l.Threshold < 0 || l.Threshold > 100 {
			return apperr.Validation("loop.Config", "%s threshold %d outside [0,100]", name, l.Threshold)
		}
		if l.MaxIterations < 1 {
			return apperr.Validation("loop.Config", "%s max_iterations must be at least 1", name)
		}
	}
	if c.StagnationWindow < 1 {
		return apperr.Validation("loop.Config", "stagnation window must be at least 1")
	}
	if c.StagnationDelta < 0 {
		return apperr.Validation("loop.Config", "stagnation delta must not be negative")
	}
	return nil
}
