package document

import (
	"maps"
	"slices"
	"strings"

	"respec/internal/apperr"
)

// Kind identifies one of the six document shapes.
type Kind string

const (
	KindProjectPlan         Kind = "plan"
	KindRoadmap             Kind = "roadmap"
	KindSpecification       Kind = "spec"
	KindBuildPlan           Kind = "build_plan"
	KindFeatureRequirements Kind = "requirements"
	KindCriticFeedback      Kind = "feedback"
)

var kindTitles = map[Kind]string{
	KindProjectPlan:         "Project Plan",
	KindRoadmap:             "Project Roadmap",
	KindSpecification:       "Technical Specification",
	KindBuildPlan:           "Build Plan",
	KindFeatureRequirements: "Feature Requirements",
	KindCriticFeedback:      "Critic Feedback",
}

// Kinds returns every kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindProjectPlan,
		KindRoadmap,
		KindSpecification,
		KindBuildPlan,
		KindFeatureRequirements,
		KindCriticFeedback,
	}
}

func (k Kind) String() string { return string(k) }

// Title is the text that precedes the document name on the title line.
func (k Kind) Title() string { return kindTitles[k] }

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindTitles[k]
	return ok
}

// KindFromString accepts a short id ("spec"), a title ("Technical
// Specification") or a hyphenated id ("build-plan").
func KindFromString(s string) (Kind, error) {
	norm := normalizeLabel(s)
	for _, k := range Kinds() {
		if norm == string(k) || norm == normalizeLabel(k.Title()) {
			return k, nil
		}
	}
	switch norm {
	case "specification", "technical_spec":
		return KindSpecification, nil
	case "project_plan":
		return KindProjectPlan, nil
	case "feature_requirements":
		return KindFeatureRequirements, nil
	case "critic_feedback":
		return KindCriticFeedback, nil
	}
	return "", apperr.Validation("document.KindFromString", "unknown document kind %q", s)
}

// CriterionName is the canonical spelling of a criterion name: lowercase,
// with runs of spaces, dashes and underscores folded to one underscore.
// Build and Parse both apply it, so a criteria map round-trips exactly when
// its names are already canonical.
func CriterionName(name string) string {
	return normalizeLabel(name)
}

// NormalizeCriteria re-keys criteria by CriterionName. When two names fold to
// the same key, the one sorting last wins.
func NormalizeCriteria(criteria map[string]int) map[string]int {
	if criteria == nil {
		return nil
	}
	out := make(map[string]int, len(criteria))
	for _, name := range slices.Sorted(maps.Keys(criteria)) {
		out[CriterionName(name)] = criteria[name]
	}
	return out
}

// normalizeLabel lowercases and maps spaces and dashes to underscores, after
// stripping markdown emphasis, code ticks and a trailing colon.
func normalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*`_ ")
	s = strings.TrimSuffix(s, ":")
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if r == ' ' || r == '-' || r == '_' || r == '\t' {
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			lastUnderscore = true
			continue
		}
		b.WriteRune(r)
		lastUnderscore = false
	}
	return strings.TrimSuffix(b.String(), "_")
}
