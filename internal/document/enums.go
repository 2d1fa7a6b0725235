package document

// ProjectStatus is the lifecycle stage of a ProjectPlan.
type ProjectStatus string

const (
	ProjectDraft     ProjectStatus = "draft"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// RoadmapStatus is the lifecycle stage of a Roadmap.
type RoadmapStatus string

const (
	RoadmapDraft      RoadmapStatus = "draft"
	RoadmapInReview   RoadmapStatus = "in_review"
	RoadmapApproved   RoadmapStatus = "approved"
	RoadmapInProgress RoadmapStatus = "in_progress"
	RoadmapCompleted  RoadmapStatus = "completed"
)

// SpecStatus is the lifecycle stage of a Specification.
type SpecStatus string

const (
	SpecDraft               SpecStatus = "draft"
	SpecInReview            SpecStatus = "in_review"
	SpecApproved            SpecStatus = "approved"
	SpecImplementationReady SpecStatus = "implementation_ready"
	SpecImplemented         SpecStatus = "implemented"
)

// BuildStatus is the lifecycle stage of a BuildPlan.
type BuildStatus string

const (
	BuildDraft      BuildStatus = "draft"
	BuildInReview   BuildStatus = "in_review"
	BuildApproved   BuildStatus = "approved"
	BuildInProgress BuildStatus = "in_progress"
	BuildCompleted  BuildStatus = "completed"
)

// RequirementsStatus is the lifecycle stage of FeatureRequirements.
type RequirementsStatus string

const (
	RequirementsDraft    RequirementsStatus = "draft"
	RequirementsInReview RequirementsStatus = "in_review"
	RequirementsApproved RequirementsStatus = "approved"
)

// CriticAgent names the critic that produced a CriticFeedback.
type CriticAgent string

const (
	CriticPlan      CriticAgent = "plan-critic"
	CriticAnalyst   CriticAgent = "analyst-critic"
	CriticRoadmap   CriticAgent = "roadmap-critic"
	CriticSpec      CriticAgent = "spec-critic"
	CriticBuildPlan CriticAgent = "build-plan-critic"
	CriticBuildCode CriticAgent = "build-code-critic"
)

// enumTokens lists the allowed tokens for each kind's enumerated field,
// lowest lifecycle stage first.
var enumTokens = map[Kind][]string{
	KindProjectPlan: {
		string(ProjectDraft), string(ProjectActive), string(ProjectCompleted), string(ProjectArchived),
	},
	KindRoadmap: {
		string(RoadmapDraft), string(RoadmapInReview), string(RoadmapApproved),
		string(RoadmapInProgress), string(RoadmapCompleted),
	},
	KindSpecification: {
		string(SpecDraft), string(SpecInReview), string(SpecApproved),
		string(SpecImplementationReady), string(SpecImplemented),
	},
	KindBuildPlan: {
		string(BuildDraft), string(BuildInReview), string(BuildApproved),
		string(BuildInProgress), string(BuildCompleted),
	},
	KindFeatureRequirements: {
		string(RequirementsDraft), string(RequirementsInReview), string(RequirementsApproved),
	},
	KindCriticFeedback: {
		string(CriticPlan), string(CriticAnalyst), string(CriticRoadmap),
		string(CriticSpec), string(CriticBuildPlan), string(CriticBuildCode),
	},
}

// matchEnum returns the canonical token for raw, or false when raw is not
// one of the kind's tokens.
func matchEnum(kind Kind, raw string) (string, bool) {
	norm := normalizeLabel(raw)
	for _, tok := range enumTokens[kind] {
		if normalizeLabel(tok) == norm {
			return tok, true
		}
	}
	return "", false
}
