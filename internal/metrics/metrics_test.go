package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSuccessRateTracking(t *testing.T) {
	c := New()
	start := c.RecordQueryStart()
	c.RecordQueryEnd(start, true)
	c.RecordQueryEnd(start, true)
	c.RecordQueryEnd(start, false)

	s := c.Summary()
	if s.TotalQueries != 3 {
		t.Fatalf("total=%d want=3", s.TotalQueries)
	}
	if s.QueriesFailed != 1 {
		t.Fatalf("failed=%d want=1", s.QueriesFailed)
	}
	want := 2.0 / 3.0
	if diff := s.SuccessRate - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("success rate=%f want=%f", s.SuccessRate, want)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	c := New()
	c.RecordQueryEnd(c.RecordQueryStart(), true)
	c.RecordTokenUsage("demo-llm", 120, 40)
	c.RecordCost(0.25, "llm")
	c.SetBudgetUsage(150) // capped at 100
	c.RecordAgentsUsed(3)
	c.RecordAgentExecution(50 * time.Millisecond)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()

	for _, metric := range []string{
		"agentiq_queries_total 1",
		`agentiq_tokens_total{model="demo-llm",type="input"} 120`,
		`agentiq_cost_total{service="llm"} 0.25`,
		"agentiq_budget_usage_percent 100",
		"agentiq_agents_used 3",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("missing %q in metrics output:\n%s", metric, body)
		}
	}
}

func TestIndependentRegistries(t *testing.T) {
	// Two collectors must not panic on duplicate registration.
	a := New()
	b := New()
	a.RecordQueryEnd(a.RecordQueryStart(), true)
	if b.Summary().TotalQueries != 0 {
		t.Fatalf("collectors share state")
	}
}
