package planner

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/dimasergei/agentiq/internal/domain"
)

const (
	// DefaultRole is assumed when a plan request carries no role label.
	DefaultRole = "assistant"

	defaultDelay = 1200 * time.Millisecond
)

type Config struct {
	// Delay is the artificial latency applied before a plan is returned. It
	// paces the demo only and carries no correctness obligation. Negative
	// disables it, zero selects the default.
	Delay  time.Duration
	Rand   func() float64
	Logger *log.Logger
}

// Generator produces fabricated execution plans from fixed template families.
// The only run-to-run variation is the success probability and the role text.
type Generator struct {
	delay  time.Duration
	rand   func() float64
	logger *log.Logger
}

func NewGenerator(cfg Config) *Generator {
	delay := cfg.Delay
	if delay == 0 {
		delay = defaultDelay
	}
	if delay < 0 {
		delay = 0
	}
	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.Float64
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{
		delay:  delay,
		rand:   rnd,
		logger: logger,
	}
}

// Generate classifies task into a template family and returns the family's
// plan with role-sensitive phrasing. There are no failing inputs: an empty or
// unmatched task yields the generic family, an empty role falls back to
// DefaultRole. The context cancels the artificial delay.
func (g *Generator) Generate(ctx context.Context, task, role string) (domain.ExecutionPlan, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		role = DefaultRole
	}

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.ExecutionPlan{}, ctx.Err()
		case <-timer.C:
		}
	}

	family := Classify(task)
	plan := domain.ExecutionPlan{
		Steps:              buildSteps(family, role),
		Summary:            fmt.Sprintf("Execution plan prepared by %s agent using the %s workflow", role, family),
		TotalEstimatedTime: familyTemplates[family].totalTime,
		SuccessProbability: 0.85 + g.rand()*0.10,
	}
	g.logger.Printf("plan generated family=%s role=%s steps=%d", family, role, len(plan.Steps))
	return plan, nil
}
