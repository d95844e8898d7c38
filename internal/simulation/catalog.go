package simulation

import (
	"github.com/dimasergei/agentiq/internal/domain"
)

// seedCatalog is the static demo catalog. Engines work on deep copies so the
// seed itself is never mutated and reset always restores this exact state.
var seedCatalog = []domain.DemoTask{
	{
		ID:             "task-1",
		Title:          "Market Intelligence Sweep",
		Description:    "Analyze competitor pricing and positioning across three regions",
		Complexity:     domain.ComplexityHigh,
		AssignedAgents: []string{"Atlas", "Vega"},
		Status:         domain.TaskStatusPending,
		Subtasks: []domain.DemoSubtask{
			{ID: "task-1-1", Title: "Collect regional pricing data", AssignedAgent: "Atlas", Status: domain.SubtaskStatusPending},
			{ID: "task-1-2", Title: "Normalize currency and tiers", AssignedAgent: "Atlas", Status: domain.SubtaskStatusPending},
			{ID: "task-1-3", Title: "Cluster competitor segments", AssignedAgent: "Vega", Status: domain.SubtaskStatusPending},
			{ID: "task-1-4", Title: "Draft positioning summary", AssignedAgent: "Vega", Status: domain.SubtaskStatusPending},
		},
	},
	{
		ID:             "task-2",
		Title:          "Customer Onboarding Flow",
		Description:    "Build a guided onboarding sequence with progress checkpoints",
		Complexity:     domain.ComplexityMedium,
		AssignedAgents: []string{"Nova", "Orion"},
		Status:         domain.TaskStatusPending,
		Subtasks: []domain.DemoSubtask{
			{ID: "task-2-1", Title: "Map activation milestones", AssignedAgent: "Nova", Status: domain.SubtaskStatusPending},
			{ID: "task-2-2", Title: "Assemble checkpoint templates", AssignedAgent: "Orion", Status: domain.SubtaskStatusPending},
			{ID: "task-2-3", Title: "Wire completion notifications", AssignedAgent: "Orion", Status: domain.SubtaskStatusPending},
		},
	},
	{
		ID:             "task-3",
		Title:          "Quarterly Risk Review",
		Description:    "Cross-check exposure models against the latest portfolio snapshot",
		Complexity:     domain.ComplexityCritical,
		AssignedAgents: []string{"Vega", "Lyra", "Atlas"},
		Status:         domain.TaskStatusPending,
		Subtasks: []domain.DemoSubtask{
			{ID: "task-3-1", Title: "Refresh portfolio snapshot", AssignedAgent: "Lyra", Status: domain.SubtaskStatusPending},
			{ID: "task-3-2", Title: "Recompute exposure models", AssignedAgent: "Vega", Status: domain.SubtaskStatusPending},
			{ID: "task-3-3", Title: "Stress-test outlier scenarios", AssignedAgent: "Vega", Status: domain.SubtaskStatusPending},
			{ID: "task-3-4", Title: "Reconcile audit findings", AssignedAgent: "Atlas", Status: domain.SubtaskStatusPending},
			{ID: "task-3-5", Title: "Publish review digest", AssignedAgent: "Lyra", Status: domain.SubtaskStatusPending},
		},
	},
	{
		ID:             "task-4",
		Title:          "Support Ticket Triage",
		Description:    "Route the weekend backlog to the right resolution queues",
		Complexity:     domain.ComplexityLow,
		AssignedAgents: []string{"Nova"},
		Status:         domain.TaskStatusPending,
		Subtasks: []domain.DemoSubtask{
			{ID: "task-4-1", Title: "Classify backlog tickets", AssignedAgent: "Nova", Status: domain.SubtaskStatusPending},
			{ID: "task-4-2", Title: "Escalate priority incidents", AssignedAgent: "Nova", Status: domain.SubtaskStatusPending},
		},
	},
}

// SeedCatalog returns a deep copy of the static demo catalog.
func SeedCatalog() []domain.DemoTask {
	return copyCatalog(seedCatalog)
}

func copyCatalog(src []domain.DemoTask) []domain.DemoTask {
	out := make([]domain.DemoTask, len(src))
	for i, task := range src {
		out[i] = copyTask(task)
	}
	return out
}

func copyTask(task domain.DemoTask) domain.DemoTask {
	cp := task
	cp.AssignedAgents = append([]string(nil), task.AssignedAgents...)
	cp.Insights = append([]string(nil), task.Insights...)
	cp.Subtasks = make([]domain.DemoSubtask, len(task.Subtasks))
	for i, st := range task.Subtasks {
		sub := st
		if st.Result != nil {
			r := *st.Result
			sub.Result = &r
		}
		cp.Subtasks[i] = sub
	}
	if task.StartTime != nil {
		v := *task.StartTime
		cp.StartTime = &v
	}
	if task.CompletionTime != nil {
		v := *task.CompletionTime
		cp.CompletionTime = &v
	}
	return cp
}
