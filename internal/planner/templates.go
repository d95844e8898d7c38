package planner

import (
	"strings"

	"github.com/dimasergei/agentiq/internal/domain"
)

type Family string

const (
	FamilyAnalysis Family = "analysis"
	FamilyCreation Family = "creation"
	FamilyGeneric  Family = "generic"
)

// Classify maps a free-text task description to a template family. Matching
// is substring-based on the lowercased task and the rules fire in strict
// priority order: analysis beats creation beats generic.
func Classify(task string) Family {
	t := strings.ToLower(task)
	switch {
	case strings.Contains(t, "analyze") || strings.Contains(t, "data"):
		return FamilyAnalysis
	case strings.Contains(t, "create") || strings.Contains(t, "build"):
		return FamilyCreation
	default:
		return FamilyGeneric
	}
}

type stepTemplate struct {
	action        string
	estimatedTime string
	confidence    float64

	// When role equals sentinelRole the sentinel phrasing is used, any other
	// role falls back to the generic phrasing.
	sentinelRole string
	sentinelDesc string
	genericDesc  string
}

func (t stepTemplate) describe(role string) string {
	if t.sentinelRole != "" && role == t.sentinelRole {
		return t.sentinelDesc
	}
	return t.genericDesc
}

type familyTemplate struct {
	family    Family
	steps     []stepTemplate
	totalTime string
}

var familyTemplates = map[Family]familyTemplate{
	FamilyAnalysis: {
		family:    FamilyAnalysis,
		totalTime: "6-10 minutes",
		steps: []stepTemplate{
			{
				action:        "Data Collection",
				estimatedTime: "2-3 minutes",
				confidence:    0.92,
				sentinelRole:  "analyst",
				sentinelDesc:  "Pull structured datasets from connected sources and verify sampling coverage",
				genericDesc:   "Gather relevant inputs from all connected sources",
			},
			{
				action:        "Pattern Recognition",
				estimatedTime: "3-5 minutes",
				confidence:    0.88,
				genericDesc:   "Identify recurring trends, correlations and outliers in the collected data",
			},
			{
				action:        "Insight Generation",
				estimatedTime: "1-2 minutes",
				confidence:    0.90,
				sentinelRole:  "strategist",
				sentinelDesc:  "Translate detected patterns into prioritized strategic recommendations",
				genericDesc:   "Summarize findings into actionable insights",
			},
		},
	},
	FamilyCreation: {
		family:    FamilyCreation,
		totalTime: "4-7 minutes",
		steps: []stepTemplate{
			{
				action:        "Requirement Analysis",
				estimatedTime: "1-2 minutes",
				confidence:    0.90,
				sentinelRole:  "developer",
				sentinelDesc:  "Decompose the request into technical requirements and interface contracts",
				genericDesc:   "Break down the request into concrete requirements",
			},
			{
				action:        "Implementation Planning",
				estimatedTime: "2-3 minutes",
				confidence:    0.85,
				sentinelRole:  "developer",
				sentinelDesc:  "Sequence build steps with dependency ordering and validation checkpoints",
				genericDesc:   "Outline the build sequence and checkpoints",
			},
			{
				action:        "Resource Allocation",
				estimatedTime: "1-2 minutes",
				confidence:    0.87,
				genericDesc:   "Assign capabilities and budget to each planned step",
			},
		},
	},
	FamilyGeneric: {
		family:    FamilyGeneric,
		totalTime: "6-10 minutes",
		steps: []stepTemplate{
			{
				action:        "Task Decomposition",
				estimatedTime: "2-4 minutes",
				confidence:    0.88,
				genericDesc:   "Split the task into independently executable units",
			},
			{
				action:        "Strategy Formulation",
				estimatedTime: "2-3 minutes",
				confidence:    0.84,
				sentinelRole:  "strategist",
				sentinelDesc:  "Select the execution strategy with highest expected value across units",
				genericDesc:   "Choose an execution approach for the decomposed units",
			},
			{
				action:        "Execution & Monitoring",
				estimatedTime: "2-3 minutes",
				confidence:    0.86,
				sentinelRole:  "monitor",
				sentinelDesc:  "Track unit progress continuously and flag deviations in real time",
				genericDesc:   "Carry out the plan and watch for deviations",
			},
		},
	},
}

func buildSteps(family Family, role string) []domain.PlanStep {
	tpl := familyTemplates[family]
	steps := make([]domain.PlanStep, 0, len(tpl.steps))
	for i, st := range tpl.steps {
		steps = append(steps, domain.PlanStep{
			Step:          i + 1,
			Action:        st.action,
			Description:   st.describe(role),
			EstimatedTime: st.estimatedTime,
			Confidence:    st.confidence,
		})
	}
	return steps
}
