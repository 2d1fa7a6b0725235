package document

import (
	"regexp"
	"strings"
)

type fieldType int

const (
	textField fieldType = iota
	intField
	enumField
	dateField
)

type field struct {
	key    string
	label  string
	typ    fieldType
	defInt int
}

// section is one level-2 heading. A section holds either labelled fields,
// a plain bullet list (listKey) or a criteria map (criteriaKey).
type section struct {
	title       string
	fields      []field
	listKey     string
	criteriaKey string
}

type schema struct {
	kind      Kind
	nameLabel string
	sections  []section
	enumKey   string
	aliases   map[string]string
	byKey     map[string]field
	legacy    map[string][]*regexp.Regexp
}

func text(label string) field { return field{key: normalizeLabel(label), label: label, typ: textField} }

func integer(label string, def int) field {
	return field{key: normalizeLabel(label), label: label, typ: intField, defInt: def}
}

func status() field  { return field{key: "status", label: "Status", typ: enumField} }
func created() field { return field{key: "creation_date", label: "Created", typ: dateField} }
func owner() field   { return text("Owner") }
func updated() field { return text("Last Updated") }

func metadata(fields ...field) section {
	return section{title: "Metadata", fields: fields}
}

func fields(title string, labels ...string) section {
	s := section{title: title}
	for _, l := range labels {
		s.fields = append(s.fields, text(l))
	}
	return s
}

var schemas = map[Kind]*schema{}

func register(s *schema) {
	s.byKey = make(map[string]field)
	for _, sec := range s.sections {
		for _, f := range sec.fields {
			s.byKey[f.key] = f
		}
	}
	if s.enumKey == "" {
		s.enumKey = "status"
	}
	s.aliases = map[string]string{
		"status":                   s.enumKey,
		string(s.kind) + "_status": s.enumKey,
		"created":                  "creation_date",
		"created_at":               "creation_date",
		"creation_date":            "creation_date",
		"owner":                    "owner",
		"updated":                  "last_updated",
	}
	s.legacy = make(map[string][]*regexp.Regexp)
	for key, f := range s.byKey {
		labels := []string{f.label}
		for alias, target := range s.aliases {
			if target == key && alias != normalizeLabel(f.label) {
				labels = append(labels, alias)
			}
		}
		for _, l := range labels {
			s.legacy[key] = append(s.legacy[key], legacyPatterns(l)...)
		}
	}
	schemas[s.kind] = s
}

// legacyPatterns matches one field in the older layouts, most specific first:
// a backtick-quoted bold line, a bare bold line, a heading plus paragraph.
func legacyPatterns(label string) []*regexp.Regexp {
	words := strings.FieldsFunc(label, func(r rune) bool { return r == ' ' || r == '_' || r == '-' })
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	lp := strings.Join(words, `[ _-]+`)
	return []*regexp.Regexp{
		regexp.MustCompile(`(?im)^[ \t]*(?:[-*][ \t]+)?\*\*` + lp + `\*\*[ \t]*:[ \t]*` + "`([^`\n]*)`"),
		regexp.MustCompile(`(?im)^[ \t]*(?:[-*][ \t]+)?\*\*` + lp + `\*\*[ \t]*:[ \t]*(.+)$`),
		regexp.MustCompile(`(?ims)^#{2,6}[ \t]+` + lp + `[ \t]*\n+(.+?)(?:\n[ \t]*\n|\n#|\z)`),
	}
}

func schemaFor(kind Kind) *schema {
	return schemas[kind]
}

// resolve maps a list-item label to a field key of this schema.
func (s *schema) resolve(label string) (field, bool) {
	key := normalizeLabel(label)
	if alias, ok := s.aliases[key]; ok {
		key = alias
	}
	f, ok := s.byKey[key]
	return f, ok
}

func (s *schema) section(title string) (*section, bool) {
	norm := normalizeLabel(title)
	for i := range s.sections {
		if normalizeLabel(s.sections[i].title) == norm {
			return &s.sections[i], true
		}
	}
	return nil, false
}

func init() {
	register(&schema{
		kind:      KindProjectPlan,
		nameLabel: "Project Name",
		sections: []section{
			fields("Executive Summary", "Vision", "Mission", "Timeline", "Budget"),
			fields("Business Objectives", "Primary Objectives", "Success Metrics", "Key Performance Indicators"),
			fields("Plan Scope", "Included Features", "Excluded Features", "Assumptions", "Constraints"),
			fields("Stakeholders", "Project Sponsor", "Key Stakeholders", "End Users"),
			fields("Project Structure", "Work Breakdown", "Phases Overview", "Project Dependencies"),
			fields("Resource Requirements", "Team Structure", "Technology Requirements", "Infrastructure Needs"),
			fields("Risk Management", "Identified Risks", "Mitigation Strategies", "Contingency Plans"),
			fields("Quality Assurance", "Quality Standards", "Testing Strategy", "Acceptance Criteria"),
			metadata(status(), owner(), created(), updated()),
		},
	})

	register(&schema{
		kind:      KindRoadmap,
		nameLabel: "Project Name",
		sections: []section{
			fields("Project Details", "Project Goal", "Total Duration", "Team Size", "Budget"),
			fields("Phases", "Phase Overview"),
			fields("Risk Assessment", "Critical Path Analysis", "Key Risks", "Mitigation Plans", "Buffer Time"),
			fields("Resource Planning", "Development Resources", "Infrastructure Requirements",
				"External Dependencies", "Quality Assurance Plan"),
			fields("Success Metrics", "Technical Milestones", "Business Milestones", "Quality Gates",
				"Performance Targets"),
			metadata(status(), integer("Spec Count", 0), created(), updated()),
		},
	})

	register(&schema{
		kind:      KindSpecification,
		nameLabel: "Phase Name",
		sections: []section{
			fields("Overview", "Objectives", "Scope", "Dependencies", "Deliverables"),
			fields("System Design", "Architecture", "Technology Stack"),
			fields("Implementation", "Functional Requirements", "Non-Functional Requirements",
				"Development Plan", "Testing Strategy"),
			fields("Additional Details", "Research Requirements", "Success Criteria", "Integration Context"),
			metadata(integer("Iteration", 1), integer("Version", 1), status(), owner(), created(), updated()),
		},
	})

	register(&schema{
		kind:      KindBuildPlan,
		nameLabel: "Project Name",
		sections: []section{
			fields("Project Overview", "Project Goal", "Total Duration", "Team Size"),
			fields("Technology Stack", "Primary Language", "Framework", "Database", "Testing Framework"),
			fields("Architecture", "Directory Structure", "Module Organization", "Design Patterns"),
			fields("Implementation Plan", "Development Phases", "Task Breakdown", "Milestones"),
			fields("Quality Gates", "Test Coverage Target", "Code Review Process", "Success Criteria"),
			metadata(status(), owner(), created(), updated()),
		},
	})

	register(&schema{
		kind:      KindFeatureRequirements,
		nameLabel: "Project Name",
		sections: []section{
			fields("Overview", "Feature Description", "Problem Statement", "Target Users", "Business Value"),
			fields("Requirements", "User Stories", "Acceptance Criteria", "Functional Requirements",
				"Non-Functional Requirements"),
			fields("Constraints", "Technical Constraints", "Business Constraints", "Assumptions"),
			fields("Prioritization", "Must Have", "Should Have", "Could Have", "Out of Scope"),
			metadata(status(), owner(), created(), updated()),
		},
	})

	register(&schema{
		kind:      KindCriticFeedback,
		nameLabel: "Loop ID",
		enumKey:   "critic_agent",
		sections: []section{
			{
				title: "Assessment Summary",
				fields: []field{
					{key: "critic_agent", label: "Critic Agent", typ: enumField},
					integer("Iteration", 0),
					integer("Overall Score", 0),
					text("Summary"),
				},
			},
			{title: "Criteria Scores", criteriaKey: "criteria_scores"},
			{title: "Key Issues", listKey: "key_issues"},
			{title: "Recommendations", listKey: "recommendations"},
			metadata(created()),
		},
	})
}
