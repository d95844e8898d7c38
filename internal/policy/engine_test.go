package policy

import (
	"strings"
	"testing"
)

func TestCanExecuteQuery(t *testing.T) {
	engine := New(Limits{MaxQueryLength: 20, MaxAgentsPerQuery: 3})

	tests := []struct {
		name    string
		query   string
		allowed bool
	}{
		{name: "ok", query: "analyze churn", allowed: true},
		{name: "empty", query: "", allowed: false},
		{name: "whitespace", query: "   ", allowed: false},
		{name: "too long", query: strings.Repeat("x", 21), allowed: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			allowed, reason := engine.CanExecuteQuery(tc.query)
			if allowed != tc.allowed {
				t.Fatalf("allowed=%t want=%t reason=%q", allowed, tc.allowed, reason)
			}
			if !allowed && reason == "" {
				t.Fatalf("denial carries no reason")
			}
		})
	}
}

func TestCanUseAgents(t *testing.T) {
	engine := New(Limits{MaxAgentsPerQuery: 3})
	if ok, _ := engine.CanUseAgents(3); !ok {
		t.Fatalf("expected 3 agents to be allowed")
	}
	if ok, _ := engine.CanUseAgents(4); ok {
		t.Fatalf("expected 4 agents to be denied")
	}
}
