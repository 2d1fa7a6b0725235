package document

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"respec/internal/apperr"
)

// sampleRecord fills every field of a kind with a distinct non-default value.
func sampleRecord(t *testing.T, kind Kind) Document {
	t.Helper()
	doc := newRecord(kind)
	require.NotNil(t, doc)
	s := schemaFor(kind)
	rf := recordFields(doc)
	rf["name"].SetString("Sample " + kind.Title())
	for _, sec := range s.sections {
		switch {
		case sec.listKey != "":
			rf[sec.listKey].Set(reflect.ValueOf([]string{
				"First " + sec.listKey + " item",
				"Security: tokens are logged in plain text",
			}))
		case sec.criteriaKey != "":
			rf[sec.criteriaKey].Set(reflect.ValueOf(map[string]int{
				"completeness":       8,
				"clarity":            6,
				"technical_accuracy": 9,
			}))
		default:
			for _, f := range sec.fields {
				switch f.typ {
				case textField:
					rf[f.key].SetString(fmt.Sprintf("%s value", f.label))
				case intField:
					rf[f.key].SetInt(3)
				case enumField:
					rf[f.key].SetString(enumTokens[kind][1])
				case dateField:
					rf[f.key].SetString("2026-01-02")
				}
			}
		}
	}
	return doc
}

func TestSchemaMatchesRecords(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			s := schemaFor(kind)
			require.NotNil(t, s)
			rf := recordFields(newRecord(kind))

			keys := map[string]bool{"name": true}
			for _, sec := range s.sections {
				switch {
				case sec.listKey != "":
					keys[sec.listKey] = true
					assert.Equal(t, reflect.Slice, rf[sec.listKey].Kind(), sec.listKey)
				case sec.criteriaKey != "":
					keys[sec.criteriaKey] = true
					assert.Equal(t, reflect.Map, rf[sec.criteriaKey].Kind(), sec.criteriaKey)
				default:
					for _, f := range sec.fields {
						keys[f.key] = true
						v, ok := rf[f.key]
						require.True(t, ok, "no struct field tagged %q", f.key)
						if f.typ == intField {
							assert.Equal(t, reflect.Int, v.Kind(), f.key)
						} else {
							assert.Equal(t, reflect.String, v.Kind(), f.key)
						}
					}
				}
			}
			for tag := range rf {
				assert.True(t, keys[tag], "struct tag %q has no schema entry", tag)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			original := sampleRecord(t, kind)
			text := Build(original)

			parsed, err := Parse(kind, text)
			require.NoError(t, err)
			assert.Equal(t, original, parsed)
			assert.Equal(t, text, Build(parsed))
		})
	}
}

func TestRoundTripPlaceholder(t *testing.T) {
	for _, kind := range Kinds() {
		doc, err := NewPlaceholder(kind, "placeholder")
		require.NoError(t, err)

		parsed, err := Parse(kind, Build(doc))
		require.NoError(t, err)
		assert.Equal(t, doc, parsed, kind.String())
	}
}

func TestRoundTripMultilineValue(t *testing.T) {
	spec := sampleRecord(t, KindSpecification).(*Specification)
	spec.Objectives = "First line\nsecond line\n\nthird paragraph"
	spec.Architecture = "Layers:\n- api\n- storage"

	parsed, err := Parse(KindSpecification, Build(spec))
	require.NoError(t, err)
	got := parsed.(*Specification)
	assert.Equal(t, spec.Objectives, got.Objectives)
	assert.Equal(t, spec.Architecture, got.Architecture)
	assert.Equal(t, spec.Scope, got.Scope)
}

func TestRoundTripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"trailing fence", "Schema:\n```sql\nCREATE TABLE t (id INT);\n```"},
		{"fence first", "```go\nfunc main() {}\n```"},
		{"fence then text", "Run:\n```sh\nmake test\n```\nthen deploy."},
		{"fence without info", "Output:\n```\nok\n```"},
		{"fence with list lines", "Config:\n```yaml\n- a\n- b\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := sampleRecord(t, KindSpecification).(*Specification)
			spec.Architecture = tt.value
			text := Build(spec)

			parsed, err := Parse(KindSpecification, text)
			require.NoError(t, err)
			assert.Equal(t, spec, parsed)
			assert.Equal(t, text, Build(parsed))
		})
	}
}

func TestRoundTripCodeFenceListItem(t *testing.T) {
	fb := sampleRecord(t, KindCriticFeedback).(*CriticFeedback)
	fb.KeyIssues = []string{"```go\npanic(err)\n```", "plain issue"}

	parsed, err := Parse(KindCriticFeedback, Build(fb))
	require.NoError(t, err)
	assert.Equal(t, fb.KeyIssues, parsed.(*CriticFeedback).KeyIssues)
}

func TestRoundTripInlineCodeValue(t *testing.T) {
	spec := sampleRecord(t, KindSpecification).(*Specification)
	spec.TechnologyStack = "`go`"

	parsed, err := Parse(KindSpecification, Build(spec))
	require.NoError(t, err)
	assert.Equal(t, "`go`", parsed.(*Specification).TechnologyStack)
}

func TestCriteriaNamesAreCanonical(t *testing.T) {
	fb := sampleRecord(t, KindCriticFeedback).(*CriticFeedback)
	fb.Criteria = map[string]int{"Technical Accuracy": 8, "clarity": 6}

	text := Build(fb)
	assert.Contains(t, text, "- **technical_accuracy**: 8")

	parsed, err := Parse(KindCriticFeedback, text)
	require.NoError(t, err)
	assert.Equal(t, NormalizeCriteria(fb.Criteria), parsed.(*CriticFeedback).Criteria)
	assert.Equal(t, text, Build(parsed))
}

func TestNormalizeCriteria(t *testing.T) {
	assert.Nil(t, NormalizeCriteria(nil))
	assert.Equal(t,
		map[string]int{"technical_accuracy": 7, "feasibility": 5},
		NormalizeCriteria(map[string]int{"Technical-Accuracy": 7, "feasibility": 5}))
	assert.Equal(t, "technical_accuracy", CriterionName("  Technical  Accuracy "))
}

func TestBuildEmitsEveryField(t *testing.T) {
	spec := &Specification{PhaseName: "Empty"}
	text := Build(spec)

	assert.Contains(t, text, "# Technical Specification: Empty\n")
	assert.Contains(t, text, "- **Objectives**:\n")
	assert.Contains(t, text, "- **Non-Functional Requirements**:\n")
	assert.Contains(t, text, "- **Iteration**: 0\n")
	assert.Contains(t, text, "## Additional Details\n")
}

func TestBuildSectionOrder(t *testing.T) {
	text := Build(sampleRecord(t, KindRoadmap))
	order := []string{"## Project Details", "## Phases", "## Risk Assessment", "## Resource Planning", "## Success Metrics", "## Metadata"}
	last := -1
	for _, h := range order {
		idx := strings.Index(text, h)
		require.GreaterOrEqual(t, idx, 0, h)
		assert.Greater(t, idx, last, h)
		last = idx
	}
}

func TestParseMissingFieldsDefault(t *testing.T) {
	restore := today
	today = func() string { return "2026-10-17" }
	defer func() { today = restore }()

	text := "# Technical Specification: Phase 1\n\n## Overview\n\n- **Objectives**: Ship the MVP\n"
	doc, err := Parse(KindSpecification, text)
	require.NoError(t, err)

	spec := doc.(*Specification)
	assert.Equal(t, "Phase 1", spec.PhaseName)
	assert.Equal(t, "Ship the MVP", spec.Objectives)
	assert.Equal(t, "Scope not specified", spec.Scope)
	assert.Equal(t, "Non-Functional Requirements not specified", spec.NonFunctionalRequirements)
	assert.Equal(t, "Integration Context not specified", spec.IntegrationContext)
	assert.Equal(t, "Owner not specified", spec.Owner)
	assert.Equal(t, SpecDraft, spec.Status)
	assert.Equal(t, 1, spec.Iteration)
	assert.Equal(t, 1, spec.Version)
	assert.Equal(t, "2026-10-17", spec.CreatedAt)
}

func TestParseRejectsMissingTitle(t *testing.T) {
	valid := Build(sampleRecord(t, KindSpecification))

	cases := map[string]string{
		"empty":       "",
		"wrong title": "# Tech Spec: foo\n\n## Overview\n\n- **Objectives**: x\n",
		"other kind":  Build(sampleRecord(t, KindBuildPlan)),
		"no colon":    "# Technical Specification foo\n",
		"body only":   valid[len("# Technical Specification: Sample Technical Specification\n"):],
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(KindSpecification, text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrInvalidFormat), err.Error())
		})
	}
}

func TestParseUnknownEnumFallsBack(t *testing.T) {
	text := "# Build Plan: api\n\n## Metadata\n\n- **Status**: frozen\n- **Owner**: platform team\n"
	doc, err := Parse(KindBuildPlan, text)
	require.NoError(t, err)

	plan := doc.(*BuildPlan)
	assert.Equal(t, BuildDraft, plan.Status)
	assert.Equal(t, "platform team", plan.Owner)
}

func TestParseAliases(t *testing.T) {
	text := "# Feature Requirements: search\n\n## Metadata\n\n" +
		"- **Requirements Status**: In Review\n" +
		"- Created: 2025-03-04\n" +
		"- **Owner:** search squad\n"
	doc, err := Parse(KindFeatureRequirements, text)
	require.NoError(t, err)

	req := doc.(*FeatureRequirements)
	assert.Equal(t, RequirementsInReview, req.Status)
	assert.Equal(t, "2025-03-04", req.CreatedAt)
	assert.Equal(t, "search squad", req.Owner)
}

func TestParseLegacySpecification(t *testing.T) {
	text := `# Technical Specification: Legacy Phase

## Overview

### Objectives
Build the ingestion pipeline.

### Scope
Only batch mode.

## Metadata

**Status**: ` + "`in_review`" + `
**Iteration**: ` + "`2`" + `
**Owner**: ` + "`data team`" + `
`
	doc, err := Parse(KindSpecification, text)
	require.NoError(t, err)

	spec := doc.(*Specification)
	assert.Equal(t, "Legacy Phase", spec.PhaseName)
	assert.Equal(t, "Build the ingestion pipeline.", spec.Objectives)
	assert.Equal(t, "Only batch mode.", spec.Scope)
	assert.Equal(t, SpecInReview, spec.Status)
	assert.Equal(t, 2, spec.Iteration)
	assert.Equal(t, "data team", spec.Owner)
	assert.Equal(t, "Dependencies not specified", spec.Dependencies)
}

func TestParseKeepsInlineCodeInListItems(t *testing.T) {
	text := "# Technical Specification: P\n\n## System Design\n\n- **Architecture**: `hexagonal`\n"
	doc, err := Parse(KindSpecification, text)
	require.NoError(t, err)
	assert.Equal(t, "`hexagonal`", doc.(*Specification).Architecture)
}

func TestParseIgnoresItemsUnderUnknownHeadings(t *testing.T) {
	text := "# Build Plan: api\n\n## Notes\n\n- **Framework**: ignored\n\n## Technology Stack\n\n- **Database**: sqlite\n"
	doc, err := Parse(KindBuildPlan, text)
	require.NoError(t, err)

	plan := doc.(*BuildPlan)
	assert.Equal(t, "Framework not specified", plan.Framework)
	assert.Equal(t, "sqlite", plan.Database)
}

func TestParseCriticFeedback(t *testing.T) {
	text := `# Critic Feedback: loop-42

## Assessment Summary

- **Critic Agent**: spec-critic
- **Iteration**: 2
- **Overall Score**: 74/100
- **Summary**: Solid but thin on testing.

## Criteria Scores

- **Completeness**: 7
- **Technical Accuracy**: 8

## Key Issues

- No load tests
- Error taxonomy incomplete

## Recommendations

- Add a benchmark suite
`
	doc, err := Parse(KindCriticFeedback, text)
	require.NoError(t, err)

	fb := doc.(*CriticFeedback)
	assert.Equal(t, "loop-42", fb.LoopID)
	assert.Equal(t, CriticSpec, fb.Agent)
	assert.Equal(t, 2, fb.Iteration)
	assert.Equal(t, 74, fb.OverallScore)
	assert.Equal(t, map[string]int{"completeness": 7, "technical_accuracy": 8}, fb.Criteria)
	assert.Equal(t, []string{"No load tests", "Error taxonomy incomplete"}, fb.KeyIssues)
	assert.Equal(t, []string{"Add a benchmark suite"}, fb.Recommendations)
}

func TestRoadmapSpecsAreNotRendered(t *testing.T) {
	rm := sampleRecord(t, KindRoadmap).(*Roadmap)
	rm.SpecCount = 4
	rm.Specs = []*Specification{{PhaseName: "Phase A"}}

	parsed, err := Parse(KindRoadmap, Build(rm))
	require.NoError(t, err)

	got := parsed.(*Roadmap)
	assert.Equal(t, 4, got.SpecCount)
	assert.Nil(t, got.Specs)
}

func TestParseAny(t *testing.T) {
	fb := sampleRecord(t, KindCriticFeedback)
	doc, err := ParseAny(Build(fb))
	require.NoError(t, err)
	assert.Equal(t, KindCriticFeedback, doc.Kind())

	_, err = ParseAny("# Shopping List: milk\n")
	assert.ErrorIs(t, err, apperr.ErrInvalidFormat)
}

func TestKindFromString(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"spec", KindSpecification},
		{"Technical Specification", KindSpecification},
		{"build-plan", KindBuildPlan},
		{"BUILD_PLAN", KindBuildPlan},
		{"Project Roadmap", KindRoadmap},
		{"feature-requirements", KindFeatureRequirements},
		{"feedback", KindCriticFeedback},
	}
	for _, tt := range tests {
		got, err := KindFromString(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := KindFromString("memo")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCloneDoesNotAlias(t *testing.T) {
	rm := &Roadmap{ProjectName: "p", Specs: []*Specification{{PhaseName: "a"}}}
	c := Clone(rm).(*Roadmap)
	c.Specs[0].PhaseName = "changed"
	assert.Equal(t, "a", rm.Specs[0].PhaseName)

	fb := &CriticFeedback{LoopID: "l", Criteria: map[string]int{"clarity": 5}, KeyIssues: []string{"x"}}
	fc := Clone(fb).(*CriticFeedback)
	fc.Criteria["clarity"] = 9
	fc.KeyIssues[0] = "y"
	assert.Equal(t, 5, fb.Criteria["clarity"])
	assert.Equal(t, "x", fb.KeyIssues[0])
}

func TestRefKey(t *testing.T) {
	ref := Ref{Kind: KindSpecification, Container: "acme", Name: "phase-1"}
	assert.Equal(t, "spec/acme/phase-1", ref.Key())
	assert.Equal(t, "spec:acme/phase-1", ref.String())
	assert.Equal(t, "plan:acme", Ref{Kind: KindProjectPlan, Name: "acme"}.String())
}

func TestRefKeyEscapesSlashes(t *testing.T) {
	a := Ref{Kind: KindSpecification, Container: "acme", Name: "auth/v2"}
	b := Ref{Kind: KindSpecification, Container: "acme/auth", Name: "v2"}
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, "spec/acme/auth%2Fv2", a.Key())
}
