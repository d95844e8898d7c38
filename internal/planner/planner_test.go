package planner

import (
	"context"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		task string
		want Family
	}{
		{name: "analyze keyword", task: "Analyze quarterly sales", want: FamilyAnalysis},
		{name: "data keyword", task: "crunch the DATA now", want: FamilyAnalysis},
		{name: "create keyword", task: "create a landing page", want: FamilyCreation},
		{name: "build keyword", task: "Build me a dashboard", want: FamilyCreation},
		{name: "no keyword", task: "summarize the meeting", want: FamilyGeneric},
		{name: "empty task", task: "", want: FamilyGeneric},
		{name: "whitespace only", task: "   ", want: FamilyGeneric},
		{name: "analysis beats creation", task: "analyze and build a model", want: FamilyAnalysis},
		{name: "data beats create", task: "create data pipeline", want: FamilyAnalysis},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.task)
			if got != tc.want {
				t.Fatalf("Classify(%q)=%s want=%s", tc.task, got, tc.want)
			}
		})
	}
}

func TestGenerateFamilies(t *testing.T) {
	gen := newTestGenerator(0.5)
	ctx := context.Background()

	tests := []struct {
		name        string
		task        string
		wantActions []string
		wantTotal   string
	}{
		{
			name:        "analysis family",
			task:        "analyze the churn data",
			wantActions: []string{"Data Collection", "Pattern Recognition", "Insight Generation"},
			wantTotal:   "6-10 minutes",
		},
		{
			name:        "creation family",
			task:        "build a scraper",
			wantActions: []string{"Requirement Analysis", "Implementation Planning", "Resource Allocation"},
			wantTotal:   "4-7 minutes",
		},
		{
			name:        "generic family",
			task:        "organize the team offsite",
			wantActions: []string{"Task Decomposition", "Strategy Formulation", "Execution & Monitoring"},
			wantTotal:   "6-10 minutes",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := gen.Generate(ctx, tc.task, "")
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if len(plan.Steps) != len(tc.wantActions) {
				t.Fatalf("steps=%d want=%d", len(plan.Steps), len(tc.wantActions))
			}
			for i, want := range tc.wantActions {
				if plan.Steps[i].Action != want {
					t.Fatalf("step %d action=%q want=%q", i+1, plan.Steps[i].Action, want)
				}
				if plan.Steps[i].Step != i+1 {
					t.Fatalf("step %d numbered %d", i+1, plan.Steps[i].Step)
				}
				if plan.Steps[i].Confidence <= 0 || plan.Steps[i].Confidence > 1 {
					t.Fatalf("step %d confidence=%f out of range", i+1, plan.Steps[i].Confidence)
				}
				if plan.Steps[i].EstimatedTime == "" {
					t.Fatalf("step %d has empty estimated time", i+1)
				}
			}
			if plan.TotalEstimatedTime != tc.wantTotal {
				t.Fatalf("total=%q want=%q", plan.TotalEstimatedTime, tc.wantTotal)
			}
		})
	}
}

func TestGenerateSuccessProbabilityRange(t *testing.T) {
	ctx := context.Background()
	for _, v := range []float64{0, 0.25, 0.5, 0.999999} {
		plan, err := newTestGenerator(v).Generate(ctx, "analyze", "analyst")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if plan.SuccessProbability < 0.85 || plan.SuccessProbability >= 0.95 {
			t.Fatalf("successProbability=%f outside [0.85, 0.95)", plan.SuccessProbability)
		}
	}

	plan, err := newTestGenerator(0.4).Generate(ctx, "analyze", "analyst")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := 0.85 + 0.4*0.10
	if diff := plan.SuccessProbability - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("successProbability=%f want=%f", plan.SuccessProbability, want)
	}
}

func TestGenerateRolePhrasing(t *testing.T) {
	gen := newTestGenerator(0.5)
	ctx := context.Background()

	asAnalyst, err := gen.Generate(ctx, "analyze this", "analyst")
	if err != nil {
		t.Fatalf("Generate analyst: %v", err)
	}
	asOther, err := gen.Generate(ctx, "analyze this", "researcher")
	if err != nil {
		t.Fatalf("Generate researcher: %v", err)
	}
	if asAnalyst.Steps[0].Description == asOther.Steps[0].Description {
		t.Fatalf("expected sentinel role to change first step phrasing")
	}
	// Non-sentinel steps keep the generic phrasing for everyone.
	if asAnalyst.Steps[1].Description != asOther.Steps[1].Description {
		t.Fatalf("expected identical phrasing for non-sentinel step")
	}
}

func TestGenerateDefaultsRole(t *testing.T) {
	gen := newTestGenerator(0.5)
	plan, err := gen.Generate(context.Background(), "whatever", "  ")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(plan.Summary, DefaultRole) {
		t.Fatalf("summary %q does not mention default role %q", plan.Summary, DefaultRole)
	}
	if !strings.Contains(plan.Summary, string(FamilyGeneric)) {
		t.Fatalf("summary %q does not mention family", plan.Summary)
	}
}

func TestGenerateContextCanceled(t *testing.T) {
	gen := NewGenerator(Config{Rand: func() float64 { return 0.5 }})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gen.Generate(ctx, "analyze", "analyst"); err == nil {
		t.Fatalf("expected error from canceled context")
	}
}

func newTestGenerator(randValue float64) *Generator {
	return NewGenerator(Config{
		Delay: -1,
		Rand:  func() float64 { return randValue },
	})
}
