// Package orchestrator coordinates the demo agent roster to answer a query:
// it plans the steps, executes them in dependency order under budget and
// admission guardrails, and synthesizes a final answer.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dimasergei/agentiq/internal/agent"
	"github.com/dimasergei/agentiq/internal/budget"
	"github.com/dimasergei/agentiq/internal/domain"
	"github.com/dimasergei/agentiq/internal/planner"
)

type Budget interface {
	PreFlightCheck(ctx context.Context, inputTokens, outputTokensEstimate int) (budget.Check, error)
	RecordUsage(ctx context.Context, queryID, agentName string, inputTokens, outputTokens int) (domain.UsageRecord, error)
	DailyUsage(ctx context.Context) (domain.DailyUsage, error)
}

type Policy interface {
	CanExecuteQuery(query string) (bool, string)
	CanUseAgents(count int) (bool, string)
}

type Metrics interface {
	RecordQueryStart() time.Time
	RecordQueryEnd(start time.Time, success bool)
	RecordAgentExecution(d time.Duration)
	RecordTokenUsage(model string, inputTokens, outputTokens int)
	RecordCost(cost float64, service string)
	SetBudgetUsage(percent float64)
	RecordAgentsUsed(count int)
}

type QueryLog interface {
	LogQuery(ctx context.Context, entry domain.QueryLogEntry) error
}

// AdmissionError reports a query rejected before any agent ran.
type AdmissionError struct {
	Reason string
}

func (e AdmissionError) Error() string {
	return "query rejected: " + e.Reason
}

// ExecutionError wraps any failure after admission so callers see a single
// "execution failed" surface.
type ExecutionError struct {
	QueryID string
	Err     error
}

func (e ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e ExecutionError) Unwrap() error { return e.Err }

type Config struct {
	Model string
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "demo-llm"
	}
	return c
}

type Service struct {
	agents  agent.Registry
	budget  Budget
	policy  Policy
	metrics Metrics
	queries QueryLog
	cfg     Config
	logger  *log.Logger
}

func New(agents agent.Registry, budget Budget, policy Policy, metrics Metrics, queries QueryLog, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		agents:  agents,
		budget:  budget,
		policy:  policy,
		metrics: metrics,
		queries: queries,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

// PlanSteps derives the agent steps for a query from its keyword family.
// Every query starts with research; analysis queries add a data pass,
// creation queries add a sandboxed prototype run.
func PlanSteps(query string) []domain.QueryStep {
	steps := []domain.QueryStep{
		{Task: fmt.Sprintf("Search the web for background on: %s", query), Agent: agent.NameWebSearch},
	}
	switch planner.Classify(query) {
	case planner.FamilyAnalysis:
		steps = append(steps, domain.QueryStep{
			Task:      fmt.Sprintf("Analyze gathered data for: %s", query),
			Agent:     agent.NameDataAnalysis,
			DependsOn: []int{0},
		})
	case planner.FamilyCreation:
		steps = append(steps, domain.QueryStep{
			Task:      fmt.Sprintf("Prototype an implementation for: %s", query),
			Agent:     agent.NameCodeExecution,
			DependsOn: []int{0},
		})
	}
	return steps
}

// outputTokenEstimates sizes the pre-flight budget check per agent type.
var outputTokenEstimates = map[string]int{
	agent.NameWebSearch:     500,
	agent.NameDataAnalysis:  800,
	agent.NameCodeExecution: 600,
	agent.NameSynthesis:     1000,
}

func estimateOutputTokens(agentName string) int {
	if n, ok := outputTokenEstimates[agentName]; ok {
		return n
	}
	return 500
}

// ExecuteQuery runs the full multi-agent workflow for one query.
func (s *Service) ExecuteQuery(ctx context.Context, query string) (domain.QueryResult, error) {
	if ok, reason := s.policy.CanExecuteQuery(query); !ok {
		return domain.QueryResult{}, AdmissionError{Reason: reason}
	}

	start := s.metrics.RecordQueryStart()
	queryID := uuid.NewString()
	s.logger.Printf("query started id=%s query=%q", queryID, truncate(query, 100))

	result, err := s.execute(ctx, queryID, query, start)
	if err != nil {
		s.metrics.RecordQueryEnd(start, false)
		s.logQuery(ctx, domain.QueryLogEntry{
			QueryID:     queryID,
			Query:       query,
			ExecutionMS: time.Since(start).Milliseconds(),
			Succeeded:   false,
		})
		s.logger.Printf("query failed id=%s err=%v", queryID, err)
		var admission AdmissionError
		if errors.As(err, &admission) {
			return domain.QueryResult{}, err
		}
		return domain.QueryResult{}, ExecutionError{QueryID: queryID, Err: err}
	}

	s.metrics.RecordQueryEnd(start, true)
	s.logQuery(ctx, domain.QueryLogEntry{
		QueryID:     queryID,
		Query:       query,
		Answer:      result.Answer,
		AgentsUsed:  result.AgentsUsed,
		Cost:        result.CostBreakdown.TotalCost,
		ExecutionMS: time.Since(start).Milliseconds(),
		Succeeded:   true,
	})
	s.logger.Printf("query completed id=%s cost=$%.4f agents=%d", queryID, result.CostBreakdown.TotalCost, result.AgentsUsed)
	return result, nil
}

func (s *Service) execute(ctx context.Context, queryID, query string, start time.Time) (domain.QueryResult, error) {
	steps := PlanSteps(query)
	if ok, reason := s.policy.CanUseAgents(len(steps)); !ok {
		return domain.QueryResult{}, AdmissionError{Reason: reason}
	}

	results := make(map[int]domain.AgentResult, len(steps))
	agentCosts := make(map[string]float64)
	totalCost := 0.0

	for i, step := range steps {
		deps := make(map[int]domain.AgentResult, len(step.DependsOn))
		for _, d := range step.DependsOn {
			if r, ok := results[d]; ok {
				deps[d] = r
			}
		}

		res, cost, err := s.runStep(ctx, queryID, step.Agent, step.Task, deps)
		if err != nil {
			return domain.QueryResult{}, fmt.Errorf("agent %s: %w", step.Agent, err)
		}
		results[i] = res
		agentCosts[step.Agent] += cost
		totalCost += cost
	}

	answer, cost, err := s.runStep(ctx, queryID, agent.NameSynthesis, query, results)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("agent %s: %w", agent.NameSynthesis, err)
	}
	agentCosts[agent.NameSynthesis] += cost
	totalCost += cost

	s.metrics.RecordAgentsUsed(len(steps))
	if usage, err := s.budget.DailyUsage(ctx); err == nil {
		s.metrics.SetBudgetUsage(usage.BudgetUsagePercent)
	}

	return domain.QueryResult{
		QueryID:             queryID,
		Answer:              answer.Output,
		Steps:               steps,
		IntermediateResults: results,
		CostBreakdown: domain.CostBreakdown{
			TotalCost:  totalCost,
			AgentCosts: agentCosts,
			Currency:   "USD",
		},
		ExecutionTime: time.Since(start).Seconds(),
		AgentsUsed:    len(steps),
	}, nil
}

func (s *Service) runStep(ctx context.Context, queryID, agentName, task string, deps map[int]domain.AgentResult) (domain.AgentResult, float64, error) {
	a, err := s.agents.Lookup(agentName)
	if err != nil {
		return domain.AgentResult{}, 0, err
	}

	inputTokens := budget.EstimateTokens(renderInput(task, deps))
	if _, err := s.budget.PreFlightCheck(ctx, inputTokens, estimateOutputTokens(agentName)); err != nil {
		return domain.AgentResult{}, 0, fmt.Errorf("pre-flight check: %w", err)
	}

	execStart := time.Now()
	res, err := a.Execute(ctx, task, deps)
	s.metrics.RecordAgentExecution(time.Since(execStart))
	if err != nil {
		return domain.AgentResult{}, 0, err
	}

	outputTokens := budget.EstimateTokens(res.Output)
	rec, err := s.budget.RecordUsage(ctx, queryID, agentName, inputTokens, outputTokens)
	if err != nil {
		// Usage bookkeeping must not fail a query that already produced
		// its result.
		s.logger.Printf("usage recording failed id=%s agent=%s err=%v", queryID, agentName, err)
		return res, 0, nil
	}
	s.metrics.RecordTokenUsage(s.cfg.Model, inputTokens, outputTokens)
	s.metrics.RecordCost(rec.Cost, "llm")
	return res, rec.Cost, nil
}

func renderInput(task string, deps map[int]domain.AgentResult) string {
	if len(deps) == 0 {
		return task
	}
	var b strings.Builder
	b.WriteString(task)
	b.WriteString("\n\nContext:")
	for _, r := range deps {
		b.WriteString("\n")
		b.WriteString(r.Output)
	}
	return b.String()
}

func (s *Service) logQuery(ctx context.Context, entry domain.QueryLogEntry) {
	if s.queries == nil {
		return
	}
	if err := s.queries.LogQuery(ctx, entry); err != nil {
		s.logger.Printf("query log write failed id=%s err=%v", entry.QueryID, err)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

type nopMetrics struct{}

func (nopMetrics) RecordQueryStart() time.Time        { return time.Now() }
func (nopMetrics) RecordQueryEnd(time.Time, bool)     {}
func (nopMetrics) RecordAgentExecution(time.Duration) {}
func (nopMetrics) RecordTokenUsage(string, int, int)  {}
func (nopMetrics) RecordCost(float64, string)         {}
func (nopMetrics) SetBudgetUsage(float64)             {}
func (nopMetrics) RecordAgentsUsed(int)               {}
