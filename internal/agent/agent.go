package agent

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/dimasergei/agentiq/internal/domain"
)

// Well-known agent names used by the query planner.
const (
	NameWebSearch     = "web_search"
	NameDataAnalysis  = "data_analysis"
	NameCodeExecution = "code_execution"
	NameSynthesis     = "synthesis"
)

// Agent executes one query step. Dependency results from earlier steps are
// passed in keyed by step index.
type Agent interface {
	Name() string
	Execute(ctx context.Context, task string, deps map[int]domain.AgentResult) (domain.AgentResult, error)
}

type Config struct {
	// Delay is the simulated per-call latency. Zero means the 300ms
	// default; negative disables the delay entirely.
	Delay  time.Duration
	Logger *log.Logger
}

func (c Config) withDefaults() Config {
	if c.Delay == 0 {
		c.Delay = 300 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

// Registry maps agent names to their implementations.
type Registry map[string]Agent

func (r Registry) Lookup(name string) (Agent, error) {
	a, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q", name)
	}
	return a, nil
}

// DefaultRegistry returns the demo agent roster: fabricated research,
// analysis, code execution and synthesis agents.
func DefaultRegistry(cfg Config) Registry {
	cfg = cfg.withDefaults()
	return Registry{
		NameWebSearch:     &webSearchAgent{cfg: cfg},
		NameDataAnalysis:  &dataAnalysisAgent{cfg: cfg},
		NameCodeExecution: &codeExecutionAgent{cfg: cfg},
		NameSynthesis:     &synthesisAgent{cfg: cfg},
	}
}

func simulateLatency(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type webSearchAgent struct {
	cfg Config
}

func (a *webSearchAgent) Name() string { return NameWebSearch }

func (a *webSearchAgent) Execute(ctx context.Context, task string, _ map[int]domain.AgentResult) (domain.AgentResult, error) {
	if err := simulateLatency(ctx, a.cfg.Delay); err != nil {
		return domain.AgentResult{}, err
	}
	a.cfg.Logger.Printf("web_search executing: %s", truncate(task, 80))
	return domain.AgentResult{
		Agent:  a.Name(),
		Output: fmt.Sprintf("Top sources gathered for: %s", task),
		Insights: []string{
			"3 primary sources identified with high relevance scores",
			"Coverage spans the last 12 months of published material",
		},
	}, nil
}

type dataAnalysisAgent struct {
	cfg Config
}

func (a *dataAnalysisAgent) Name() string { return NameDataAnalysis }

func (a *dataAnalysisAgent) Execute(ctx context.Context, task string, deps map[int]domain.AgentResult) (domain.AgentResult, error) {
	if err := simulateLatency(ctx, a.cfg.Delay); err != nil {
		return domain.AgentResult{}, err
	}
	a.cfg.Logger.Printf("data_analysis executing: %s", truncate(task, 80))
	return domain.AgentResult{
		Agent:  a.Name(),
		Output: fmt.Sprintf("Analyzed data for: %s [%d upstream inputs]", task, len(deps)),
		Insights: []string{
			"Dominant trend confirmed across all segments",
			"Two statistical outliers flagged for review",
		},
	}, nil
}

type codeExecutionAgent struct {
	cfg Config
}

var supportedLanguages = []string{"bash", "javascript", "python", "typescript"}

func (a *codeExecutionAgent) Name() string { return NameCodeExecution }

func (a *codeExecutionAgent) Execute(ctx context.Context, task string, _ map[int]domain.AgentResult) (domain.AgentResult, error) {
	if err := simulateLatency(ctx, a.cfg.Delay); err != nil {
		return domain.AgentResult{}, err
	}
	lang := detectLanguage(task)
	a.cfg.Logger.Printf("code_execution executing (%s): %s", lang, truncate(task, 80))
	return domain.AgentResult{
		Agent:  a.Name(),
		Output: fmt.Sprintf("Sandboxed %s run completed for: %s (exit code 0)", lang, task),
		Insights: []string{
			fmt.Sprintf("Execution finished cleanly under the %s runtime", lang),
		},
	}, nil
}

func detectLanguage(task string) string {
	lower := strings.ToLower(task)
	for _, lang := range supportedLanguages {
		if strings.Contains(lower, lang) {
			return lang
		}
	}
	return "python"
}

type synthesisAgent struct {
	cfg Config
}

func (a *synthesisAgent) Name() string { return NameSynthesis }

func (a *synthesisAgent) Execute(ctx context.Context, task string, deps map[int]domain.AgentResult) (domain.AgentResult, error) {
	if err := simulateLatency(ctx, a.cfg.Delay); err != nil {
		return domain.AgentResult{}, err
	}
	a.cfg.Logger.Printf("synthesis executing: %s", truncate(task, 80))

	indexes := make([]int, 0, len(deps))
	for i := range deps {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	var b strings.Builder
	fmt.Fprintf(&b, "Based on the research, here's what I found about %s.", task)
	for _, i := range indexes {
		fmt.Fprintf(&b, "\n- %s", deps[i].Output)
	}
	fmt.Fprintf(&b, "\n[Synthesized from %d sources]", len(deps))

	return domain.AgentResult{
		Agent:  a.Name(),
		Output: b.String(),
	}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
