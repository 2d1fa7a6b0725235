package document

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
)

// Document is the closed set of record shapes the codec understands. Only
// the types in this package implement it.
type Document interface {
	Kind() Kind
	Name() string
	isDocument()
}

// Ref addresses a stored document. Container groups documents that belong
// to a parent, e.g. the specifications of one project.
type Ref struct {
	Kind      Kind   `json:"kind"`
	Container string `json:"container,omitempty"`
	Name      string `json:"name"`
}

// Key is the store key for the reference. Components are path-escaped so a
// slash inside a container or name cannot make two refs share a key.
func (r Ref) Key() string {
	return url.PathEscape(string(r.Kind)) + "/" + url.PathEscape(r.Container) + "/" + url.PathEscape(r.Name)
}

func (r Ref) String() string {
	if r.Container == "" {
		return fmt.Sprintf("%s:%s", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s:%s/%s", r.Kind, r.Container, r.Name)
}

// ProjectPlan is the top-level business plan for a project.
type ProjectPlan struct {
	ProjectName              string        `md:"name"`
	Vision                   string        `md:"vision"`
	Mission                  string        `md:"mission"`
	Timeline                 string        `md:"timeline"`
	Budget                   string        `md:"budget"`
	PrimaryObjectives        string        `md:"primary_objectives"`
	SuccessMetrics           string        `md:"success_metrics"`
	KeyPerformanceIndicators string        `md:"key_performance_indicators"`
	IncludedFeatures         string        `md:"included_features"`
	ExcludedFeatures         string        `md:"excluded_features"`
	Assumptions              string        `md:"assumptions"`
	Constraints              string        `md:"constraints"`
	ProjectSponsor           string        `md:"project_sponsor"`
	KeyStakeholders          string        `md:"key_stakeholders"`
	EndUsers                 string        `md:"end_users"`
	WorkBreakdown            string        `md:"work_breakdown"`
	PhasesOverview           string        `md:"phases_overview"`
	ProjectDependencies      string        `md:"project_dependencies"`
	TeamStructure            string        `md:"team_structure"`
	TechnologyRequirements   string        `md:"technology_requirements"`
	InfrastructureNeeds      string        `md:"infrastructure_needs"`
	IdentifiedRisks          string        `md:"identified_risks"`
	MitigationStrategies     string        `md:"mitigation_strategies"`
	ContingencyPlans         string        `md:"contingency_plans"`
	QualityStandards         string        `md:"quality_standards"`
	TestingStrategy          string        `md:"testing_strategy"`
	AcceptanceCriteria       string        `md:"acceptance_criteria"`
	Status                   ProjectStatus `md:"status"`
	Owner                    string        `md:"owner"`
	CreatedAt                string        `md:"creation_date"`
	UpdatedAt                string        `md:"last_updated"`
}

func (*ProjectPlan) Kind() Kind { return KindProjectPlan }
func (p *ProjectPlan) Name() string { return p.ProjectName }
func (*ProjectPlan) isDocument() {}

// Roadmap breaks a project into phases. Specs holds sparse specifications
// attached to the roadmap; they are not part of its text and SpecCount is
// maintained by whoever authors the roadmap.
type Roadmap struct {
	ProjectName                string           `md:"name" json:"project_name"`
	ProjectGoal                string           `md:"project_goal" json:"project_goal"`
	TotalDuration              string           `md:"total_duration" json:"total_duration"`
	TeamSize                   string           `md:"team_size" json:"team_size"`
	Budget                     string           `md:"budget" json:"budget"`
	PhaseOverview              string           `md:"phase_overview" json:"phase_overview"`
	CriticalPathAnalysis       string           `md:"critical_path_analysis" json:"critical_path_analysis"`
	KeyRisks                   string           `md:"key_risks" json:"key_risks"`
	MitigationPlans            string           `md:"mitigation_plans" json:"mitigation_plans"`
	BufferTime                 string           `md:"buffer_time" json:"buffer_time"`
	DevelopmentResources       string           `md:"development_resources" json:"development_resources"`
	InfrastructureRequirements string           `md:"infrastructure_requirements" json:"infrastructure_requirements"`
	ExternalDependencies       string           `md:"external_dependencies" json:"external_dependencies"`
	QualityAssurancePlan       string           `md:"quality_assurance_plan" json:"quality_assurance_plan"`
	TechnicalMilestones        string           `md:"technical_milestones" json:"technical_milestones"`
	BusinessMilestones         string           `md:"business_milestones" json:"business_milestones"`
	QualityGates               string           `md:"quality_gates" json:"quality_gates"`
	PerformanceTargets         string           `md:"performance_targets" json:"performance_targets"`
	Status                     RoadmapStatus    `md:"status" json:"status"`
	SpecCount                  int              `md:"spec_count" json:"spec_count"`
	CreatedAt                  string           `md:"creation_date" json:"created_at"`
	UpdatedAt                  string           `md:"last_updated" json:"updated_at"`
	Specs                      []*Specification `json:"specs,omitempty"`
}

func (*Roadmap) Kind() Kind { return KindRoadmap }
func (r *Roadmap) Name() string { return r.ProjectName }
func (*Roadmap) isDocument() {}

// Specification is the technical specification of one roadmap phase.
type Specification struct {
	PhaseName                 string     `md:"name" json:"phase_name"`
	Objectives                string     `md:"objectives" json:"objectives"`
	Scope                     string     `md:"scope" json:"scope"`
	Dependencies              string     `md:"dependencies" json:"dependencies"`
	Deliverables              string     `md:"deliverables" json:"deliverables"`
	Architecture              string     `md:"architecture" json:"architecture"`
	TechnologyStack           string     `md:"technology_stack" json:"technology_stack"`
	FunctionalRequirements    string     `md:"functional_requirements" json:"functional_requirements"`
	NonFunctionalRequirements string     `md:"non_functional_requirements" json:"non_functional_requirements"`
	DevelopmentPlan           string     `md:"development_plan" json:"development_plan"`
	TestingStrategy           string     `md:"testing_strategy" json:"testing_strategy"`
	ResearchRequirements      string     `md:"research_requirements" json:"research_requirements"`
	SuccessCriteria           string     `md:"success_criteria" json:"success_criteria"`
	IntegrationContext        string     `md:"integration_context" json:"integration_context"`
	Iteration                 int        `md:"iteration" json:"iteration"`
	Version                   int        `md:"version" json:"version"`
	Status                    SpecStatus `md:"status" json:"status"`
	Owner                     string     `md:"owner" json:"owner"`
	CreatedAt                 string     `md:"creation_date" json:"created_at"`
	UpdatedAt                 string     `md:"last_updated" json:"updated_at"`
}

func (*Specification) Kind() Kind { return KindSpecification }
func (s *Specification) Name() string { return s.PhaseName }
func (*Specification) isDocument() {}

// BuildPlan describes how a specification is turned into code.
type BuildPlan struct {
	ProjectName        string      `md:"name"`
	ProjectGoal        string      `md:"project_goal"`
	TotalDuration      string      `md:"total_duration"`
	TeamSize           string      `md:"team_size"`
	PrimaryLanguage    string      `md:"primary_language"`
	Framework          string      `md:"framework"`
	Database           string      `md:"database"`
	TestingFramework   string      `md:"testing_framework"`
	DirectoryStructure string      `md:"directory_structure"`
	ModuleOrganization string      `md:"module_organization"`
	DesignPatterns     string      `md:"design_patterns"`
	DevelopmentPhases  string      `md:"development_phases"`
	TaskBreakdown      string      `md:"task_breakdown"`
	Milestones         string      `md:"milestones"`
	TestCoverageTarget string      `md:"test_coverage_target"`
	CodeReviewProcess  string      `md:"code_review_process"`
	SuccessCriteria    string      `md:"success_criteria"`
	Status             BuildStatus `md:"status"`
	Owner              string      `md:"owner"`
	CreatedAt          string      `md:"creation_date"`
	UpdatedAt          string      `md:"last_updated"`
}

func (*BuildPlan) Kind() Kind { return KindBuildPlan }
func (b *BuildPlan) Name() string { return b.ProjectName }
func (*BuildPlan) isDocument() {}

// FeatureRequirements captures what a feature must do before it is planned.
type FeatureRequirements struct {
	ProjectName               string             `md:"name"`
	FeatureDescription        string             `md:"feature_description"`
	ProblemStatement          string             `md:"problem_statement"`
	TargetUsers               string             `md:"target_users"`
	BusinessValue             string             `md:"business_value"`
	UserStories               string             `md:"user_stories"`
	AcceptanceCriteria        string             `md:"acceptance_criteria"`
	FunctionalRequirements    string             `md:"functional_requirements"`
	NonFunctionalRequirements string             `md:"non_functional_requirements"`
	TechnicalConstraints      string             `md:"technical_constraints"`
	BusinessConstraints       string             `md:"business_constraints"`
	Assumptions               string             `md:"assumptions"`
	MustHave                  string             `md:"must_have"`
	ShouldHave                string             `md:"should_have"`
	CouldHave                 string             `md:"could_have"`
	OutOfScope                string             `md:"out_of_scope"`
	Status                    RequirementsStatus `md:"status"`
	Owner                     string             `md:"owner"`
	CreatedAt                 string             `md:"creation_date"`
	UpdatedAt                 string             `md:"last_updated"`
}

func (*FeatureRequirements) Kind() Kind { return KindFeatureRequirements }
func (f *FeatureRequirements) Name() string { return f.ProjectName }
func (*FeatureRequirements) isDocument() {}

// CriticFeedback is one critic's assessment of one loop iteration. It
// carries either OverallScore (0-100) or Criteria sub-scores (0-10 each).
type CriticFeedback struct {
	LoopID          string         `md:"name" json:"loop_id"`
	Agent           CriticAgent    `md:"critic_agent" json:"critic_agent"`
	Iteration       int            `md:"iteration" json:"iteration" validate:"gte=0"`
	OverallScore    int            `md:"overall_score" json:"overall_score" validate:"gte=0,lte=100"`
	Summary         string         `md:"summary" json:"summary"`
	Criteria        map[string]int `md:"criteria_scores" json:"criteria,omitempty" validate:"dive,gte=0,lte=10"`
	KeyIssues       []string       `md:"key_issues" json:"key_issues,omitempty"`
	Recommendations []string       `md:"recommendations" json:"recommendations,omitempty"`
	CreatedAt       string         `md:"creation_date" json:"created_at"`
}

func (*CriticFeedback) Kind() Kind { return KindCriticFeedback }
func (c *CriticFeedback) Name() string { return c.LoopID }
func (*CriticFeedback) isDocument() {}

// Clone returns a deep copy of doc so stored values are never aliased.
func Clone(doc Document) Document {
	switch d := doc.(type) {
	case *ProjectPlan:
		c := *d
		return &c
	case *Roadmap:
		c := *d
		if d.Specs != nil {
			c.Specs = make([]*Specification, len(d.Specs))
			for i, s := range d.Specs {
				sc := *s
				c.Specs[i] = &sc
			}
		}
		return &c
	case *Specification:
		c := *d
		return &c
	case *BuildPlan:
		c := *d
		return &c
	case *FeatureRequirements:
		c := *d
		return &c
	case *CriticFeedback:
		return d.Clone()
	}
	return nil
}

// Clone returns a deep copy of the feedback.
func (c *CriticFeedback) Clone() *CriticFeedback {
	if c == nil {
		return nil
	}
	out := *c
	out.Criteria = maps.Clone(c.Criteria)
	out.KeyIssues = slices.Clone(c.KeyIssues)
	out.Recommendations = slices.Clone(c.Recommendations)
	return &out
}

// newRecord returns an empty record of the given kind.
func newRecord(kind Kind) Document {
	switch kind {
	case KindProjectPlan:
		return &ProjectPlan{}
	case KindRoadmap:
		return &Roadmap{}
	case KindSpecification:
		return &Specification{}
	case KindBuildPlan:
		return &BuildPlan{}
	case KindFeatureRequirements:
		return &FeatureRequirements{}
	case KindCriticFeedback:
		return &CriticFeedback{}
	}
	return nil
}
