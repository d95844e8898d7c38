package domain

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusCompleted  TaskStatus = "completed"
)

type SubtaskStatus string

const (
	SubtaskStatusPending    SubtaskStatus = "pending"
	SubtaskStatusInProgress SubtaskStatus = "in-progress"
	SubtaskStatusCompleted  SubtaskStatus = "completed"
)

type Complexity string

const (
	ComplexityLow      Complexity = "low"
	ComplexityMedium   Complexity = "medium"
	ComplexityHigh     Complexity = "high"
	ComplexityCritical Complexity = "critical"
)

// ResultKind tags the shape of a fabricated subtask result so consumers can
// branch on it without parsing free text.
type ResultKind string

const (
	ResultKindCompletion   ResultKind = "completion"
	ResultKindOptimization ResultKind = "optimization"
	ResultKindValidation   ResultKind = "validation"
	ResultKindDelivery     ResultKind = "delivery"
)

type PlanStep struct {
	Step          int     `json:"step"`
	Action        string  `json:"action"`
	Description   string  `json:"description"`
	EstimatedTime string  `json:"estimatedTime"`
	Confidence    float64 `json:"confidence"`
}

type ExecutionPlan struct {
	Steps              []PlanStep `json:"steps"`
	Summary            string     `json:"summary"`
	TotalEstimatedTime string     `json:"totalEstimatedTime"`
	SuccessProbability float64    `json:"successProbability"`
}

type SubtaskResult struct {
	Kind ResultKind `json:"kind"`
	Text string     `json:"text"`
}

type DemoSubtask struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	AssignedAgent string         `json:"assigned_agent"`
	Status        SubtaskStatus  `json:"status"`
	Result        *SubtaskResult `json:"result,omitempty"`
}

type DemoTask struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Complexity     Complexity    `json:"complexity"`
	AssignedAgents []string      `json:"assigned_agents"`
	Status         TaskStatus    `json:"status"`
	Progress       int           `json:"progress"`
	Subtasks       []DemoSubtask `json:"subtasks"`
	Insights       []string      `json:"insights"`
	StartTime      *time.Time    `json:"start_time,omitempty"`
	CompletionTime *time.Time    `json:"completion_time,omitempty"`
}

type EventKind string

const (
	EventTaskStatusChanged EventKind = "task_status_changed"
	EventSubtaskStarted    EventKind = "subtask_started"
	EventSubtaskCompleted  EventKind = "subtask_completed"
	EventInsightAdded      EventKind = "insight_added"
	EventCatalogReset      EventKind = "catalog_reset"
)

// SimulationEvent is published on the in-process bus whenever the progress
// simulator mutates catalog state.
type SimulationEvent struct {
	Kind      EventKind  `json:"kind"`
	TaskID    string     `json:"task_id,omitempty"`
	SubtaskID string     `json:"subtask_id,omitempty"`
	Detail    string     `json:"detail,omitempty"`
	TaskState TaskStatus `json:"task_state,omitempty"`
	At        time.Time  `json:"at"`
}

type QueryStep struct {
	Task      string `json:"task"`
	Agent     string `json:"agent"`
	DependsOn []int  `json:"depends_on,omitempty"`
}

type AgentResult struct {
	Agent    string   `json:"agent"`
	Output   string   `json:"output"`
	Insights []string `json:"insights,omitempty"`
}

type CostBreakdown struct {
	TotalCost  float64            `json:"total_cost"`
	AgentCosts map[string]float64 `json:"agent_costs"`
	Currency   string             `json:"currency"`
}

type QueryResult struct {
	QueryID             string              `json:"query_id"`
	Answer              string              `json:"answer"`
	Steps               []QueryStep         `json:"steps"`
	IntermediateResults map[int]AgentResult `json:"intermediate_results"`
	CostBreakdown       CostBreakdown       `json:"cost_breakdown"`
	ExecutionTime       float64             `json:"execution_time"`
	AgentsUsed          int                 `json:"agents_used"`
}

type UsageRecord struct {
	ID           int64     `json:"id"`
	QueryID      string    `json:"query_id"`
	AgentName    string    `json:"agent_name"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Cost         float64   `json:"cost"`
	Day          string    `json:"day"`
	CreatedAt    time.Time `json:"created_at"`
}

// UsageTotals are the raw per-day accumulators kept by the store.
type UsageTotals struct {
	Day              string  `json:"day"`
	TotalCost        float64 `json:"total_cost"`
	TotalTokens      int     `json:"total_tokens"`
	QueriesProcessed int     `json:"queries_processed"`
}

type DailyUsage struct {
	Day                string  `json:"date"`
	TotalCost          float64 `json:"total_cost"`
	TotalTokens        int     `json:"total_tokens"`
	QueriesProcessed   int     `json:"queries_processed"`
	BudgetUsagePercent float64 `json:"budget_usage_percent"`
	DailyBudget        float64 `json:"daily_budget"`
	RemainingBudget    float64 `json:"remaining_budget"`
}

type QueryLogEntry struct {
	ID          int64     `json:"id"`
	QueryID     string    `json:"query_id"`
	Query       string    `json:"query"`
	Answer      string    `json:"answer"`
	AgentsUsed  int       `json:"agents_used"`
	Cost        float64   `json:"cost"`
	ExecutionMS int64     `json:"execution_ms"`
	Succeeded   bool      `json:"succeeded"`
	CreatedAt   time.Time `json:"created_at"`
}
