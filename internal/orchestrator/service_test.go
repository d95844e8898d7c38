package orchestrator

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/dimasergei/agentiq/internal/agent"
	"github.com/dimasergei/agentiq/internal/budget"
	"github.com/dimasergei/agentiq/internal/domain"
	"github.com/dimasergei/agentiq/internal/policy"
)

func newTestService(b Budget, queries QueryLog) *Service {
	agents := agent.DefaultRegistry(agent.Config{
		Delay:  -1,
		Logger: log.New(io.Discard, "", 0),
	})
	return New(agents, b, policy.New(policy.Limits{}), nil, queries, Config{}, log.New(io.Discard, "", 0))
}

func TestPlanStepsByFamily(t *testing.T) {
	tests := []struct {
		query     string
		wantAgent string
		wantSteps int
	}{
		{"analyze churn data from Q3", agent.NameDataAnalysis, 2},
		{"build a rate limiter", agent.NameCodeExecution, 2},
		{"summarize the meeting notes", agent.NameWebSearch, 1},
	}
	for _, tc := range tests {
		steps := PlanSteps(tc.query)
		if len(steps) != tc.wantSteps {
			t.Fatalf("%q: steps=%d want=%d", tc.query, len(steps), tc.wantSteps)
		}
		if steps[0].Agent != agent.NameWebSearch {
			t.Fatalf("%q: first agent=%s want=%s", tc.query, steps[0].Agent, agent.NameWebSearch)
		}
		last := steps[len(steps)-1]
		if last.Agent != tc.wantAgent {
			t.Fatalf("%q: last agent=%s want=%s", tc.query, last.Agent, tc.wantAgent)
		}
		if tc.wantSteps == 2 && (len(last.DependsOn) != 1 || last.DependsOn[0] != 0) {
			t.Fatalf("%q: second step must depend on the first", tc.query)
		}
	}
}

func TestExecuteQuerySuccess(t *testing.T) {
	b := newFakeBudget()
	queries := &fakeQueryLog{}
	svc := newTestService(b, queries)

	res, err := svc.ExecuteQuery(context.Background(), "analyze the signup data")
	if err != nil {
		t.Fatalf("execute query: %v", err)
	}
	if res.QueryID == "" {
		t.Fatalf("missing query id")
	}
	if !strings.Contains(res.Answer, "Synthesized from 2 sources") {
		t.Fatalf("answer=%q", res.Answer)
	}
	if res.AgentsUsed != 2 {
		t.Fatalf("agents used=%d want=2", res.AgentsUsed)
	}
	if res.CostBreakdown.Currency != "USD" {
		t.Fatalf("currency=%q", res.CostBreakdown.Currency)
	}
	var sum float64
	for _, c := range res.CostBreakdown.AgentCosts {
		sum += c
	}
	if diff := sum - res.CostBreakdown.TotalCost; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("agent costs %.6f do not sum to total %.6f", sum, res.CostBreakdown.TotalCost)
	}
	// web_search, data_analysis and synthesis each record usage once.
	if len(b.recorded) != 3 {
		t.Fatalf("usage records=%d want=3", len(b.recorded))
	}
	if len(queries.entries) != 1 || !queries.entries[0].Succeeded {
		t.Fatalf("query log entries=%+v", queries.entries)
	}
}

func TestExecuteQueryRejectsEmptyQuery(t *testing.T) {
	svc := newTestService(newFakeBudget(), nil)
	_, err := svc.ExecuteQuery(context.Background(), "   ")
	var admission AdmissionError
	if !errors.As(err, &admission) {
		t.Fatalf("err=%v want admission error", err)
	}
}

func TestExecuteQueryBudgetExceeded(t *testing.T) {
	b := newFakeBudget()
	b.checkErr = budget.ExceededError{Scope: "daily", Estimated: 1, Remaining: 0}
	queries := &fakeQueryLog{}
	svc := newTestService(b, queries)

	_, err := svc.ExecuteQuery(context.Background(), "analyze the signup data")
	var execErr ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("err=%v want execution error", err)
	}
	if !budget.IsExceeded(err) {
		t.Fatalf("budget cause not preserved: %v", err)
	}
	if len(queries.entries) != 1 || queries.entries[0].Succeeded {
		t.Fatalf("expected failed query log entry, got %+v", queries.entries)
	}
}

func TestExecuteQueryUnknownAgentFails(t *testing.T) {
	b := newFakeBudget()
	svc := newTestService(b, nil)
	// Remove synthesis so the final step cannot resolve.
	delete(svc.agents, agent.NameSynthesis)

	_, err := svc.ExecuteQuery(context.Background(), "summarize the meeting notes")
	var execErr ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("err=%v want execution error", err)
	}
}

type fakeBudget struct {
	checkErr error
	recorded []domain.UsageRecord
}

func newFakeBudget() *fakeBudget {
	return &fakeBudget{}
}

func (f *fakeBudget) PreFlightCheck(_ context.Context, inputTokens, outputTokens int) (budget.Check, error) {
	if f.checkErr != nil {
		return budget.Check{}, f.checkErr
	}
	return budget.Check{Approved: true}, nil
}

func (f *fakeBudget) RecordUsage(_ context.Context, queryID, agentName string, inputTokens, outputTokens int) (domain.UsageRecord, error) {
	rec := domain.UsageRecord{
		QueryID:      queryID,
		AgentName:    agentName,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         0.01,
	}
	f.recorded = append(f.recorded, rec)
	return rec, nil
}

func (f *fakeBudget) DailyUsage(context.Context) (domain.DailyUsage, error) {
	return domain.DailyUsage{BudgetUsagePercent: float64(len(f.recorded))}, nil
}

type fakeQueryLog struct {
	entries []domain.QueryLogEntry
}

func (f *fakeQueryLog) LogQuery(_ context.Context, entry domain.QueryLogEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}
