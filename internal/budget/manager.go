package budget

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dimasergei/agentiq/internal/domain"
)

const (
	defaultDailyBudget        = 100.0
	defaultPerQueryBudget     = 5.0
	defaultCostPerInputToken  = 15.0 // USD per 1M tokens
	defaultCostPerOutputToken = 75.0 // USD per 1M tokens
)

// ExceededError reports which budget scope rejected the operation.
type ExceededError struct {
	Scope     string
	Estimated float64
	Remaining float64
}

func (e ExceededError) Error() string {
	return fmt.Sprintf("%s budget exceeded: estimated=$%.4f remaining=$%.4f", e.Scope, e.Estimated, e.Remaining)
}

func IsExceeded(err error) bool {
	var exceeded ExceededError
	return errors.As(err, &exceeded)
}

type Store interface {
	CreateUsageRecord(ctx context.Context, rec domain.UsageRecord) error
	BumpDailyTotals(ctx context.Context, day string, cost float64, tokens int) error
	GetDailyTotals(ctx context.Context, day string) (domain.UsageTotals, error)
}

type Config struct {
	DailyBudget        float64
	PerQueryBudget     float64
	CostPerInputToken  float64 // USD per 1M input tokens
	CostPerOutputToken float64 // USD per 1M output tokens
	Model              string
	Logger             *log.Logger
}

func (c Config) withDefaults() Config {
	if c.DailyBudget <= 0 {
		c.DailyBudget = defaultDailyBudget
	}
	if c.PerQueryBudget <= 0 {
		c.PerQueryBudget = defaultPerQueryBudget
	}
	if c.CostPerInputToken <= 0 {
		c.CostPerInputToken = defaultCostPerInputToken
	}
	if c.CostPerOutputToken <= 0 {
		c.CostPerOutputToken = defaultCostPerOutputToken
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

// Manager enforces daily and per-query USD budgets over estimated token
// costs. Budget excess fails closed; store errors fail open so a broken
// ledger never takes the service down.
type Manager struct {
	store Store
	cfg   Config
	now   func() time.Time
}

func New(store Store, cfg Config) *Manager {
	return &Manager{
		store: store,
		cfg:   cfg.withDefaults(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// EstimateCost converts a token count pair into USD.
func (m *Manager) EstimateCost(inputTokens, outputTokens int) float64 {
	input := float64(inputTokens) * m.cfg.CostPerInputToken / 1_000_000
	output := float64(outputTokens) * m.cfg.CostPerOutputToken / 1_000_000
	return input + output
}

// EstimateTokens is the rough four-characters-per-token heuristic used for
// pre-flight sizing.
func EstimateTokens(text string) int {
	return len(text) / 4
}

type Check struct {
	Approved           bool    `json:"approved"`
	EstimatedCost      float64 `json:"estimated_cost"`
	CurrentDailyUsage  float64 `json:"current_daily_usage"`
	RemainingBudget    float64 `json:"remaining_daily_budget"`
	BudgetUsagePercent float64 `json:"budget_usage_percent"`
}

// PreFlightCheck validates an operation's estimated cost against both budget
// scopes before execution.
func (m *Manager) PreFlightCheck(ctx context.Context, inputTokens, outputTokensEstimate int) (Check, error) {
	estimated := m.EstimateCost(inputTokens, outputTokensEstimate)
	if estimated > m.cfg.PerQueryBudget {
		return Check{EstimatedCost: estimated}, ExceededError{
			Scope:     "per-query",
			Estimated: estimated,
			Remaining: m.cfg.PerQueryBudget,
		}
	}

	totals, err := m.store.GetDailyTotals(ctx, m.today())
	if err != nil {
		m.cfg.Logger.Printf("daily budget check failed, allowing request: %v", err)
		return Check{Approved: true, EstimatedCost: estimated}, nil
	}

	remaining := m.cfg.DailyBudget - totals.TotalCost
	if estimated > remaining {
		return Check{
			EstimatedCost:     estimated,
			CurrentDailyUsage: totals.TotalCost,
			RemainingBudget:   remaining,
		}, ExceededError{Scope: "daily", Estimated: estimated, Remaining: remaining}
	}

	return Check{
		Approved:           true,
		EstimatedCost:      estimated,
		CurrentDailyUsage:  totals.TotalCost,
		RemainingBudget:    remaining,
		BudgetUsagePercent: clampPercent(totals.TotalCost / m.cfg.DailyBudget * 100),
	}, nil
}

// RecordUsage persists the actual token spend of one agent call and bumps
// the day's totals.
func (m *Manager) RecordUsage(ctx context.Context, queryID, agentName string, inputTokens, outputTokens int) (domain.UsageRecord, error) {
	cost := m.EstimateCost(inputTokens, outputTokens)
	rec := domain.UsageRecord{
		QueryID:      queryID,
		AgentName:    agentName,
		Model:        m.cfg.Model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		Day:          m.today(),
		CreatedAt:    m.now(),
	}
	if err := m.store.CreateUsageRecord(ctx, rec); err != nil {
		return domain.UsageRecord{}, fmt.Errorf("record usage: %w", err)
	}
	if err := m.store.BumpDailyTotals(ctx, rec.Day, cost, inputTokens+outputTokens); err != nil {
		return domain.UsageRecord{}, fmt.Errorf("update daily totals: %w", err)
	}
	return rec, nil
}

func (m *Manager) DailyUsage(ctx context.Context) (domain.DailyUsage, error) {
	totals, err := m.store.GetDailyTotals(ctx, m.today())
	if err != nil {
		return domain.DailyUsage{}, fmt.Errorf("daily usage: %w", err)
	}
	return m.usageFromTotals(totals), nil
}

// UsageHistory returns per-day usage for the past days, newest last. Days
// with no usage appear as zero rows.
func (m *Manager) UsageHistory(ctx context.Context, days int) ([]domain.DailyUsage, error) {
	if days <= 0 {
		days = 7
	}
	history := make([]domain.DailyUsage, 0, days)
	today := m.now()
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format(time.DateOnly)
		totals, err := m.store.GetDailyTotals(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("usage history for %s: %w", day, err)
		}
		history = append(history, m.usageFromTotals(totals))
	}
	return history, nil
}

func (m *Manager) usageFromTotals(totals domain.UsageTotals) domain.DailyUsage {
	return domain.DailyUsage{
		Day:                totals.Day,
		TotalCost:          totals.TotalCost,
		TotalTokens:        totals.TotalTokens,
		QueriesProcessed:   totals.QueriesProcessed,
		BudgetUsagePercent: clampPercent(totals.TotalCost / m.cfg.DailyBudget * 100),
		DailyBudget:        m.cfg.DailyBudget,
		RemainingBudget:    m.cfg.DailyBudget - totals.TotalCost,
	}
}

func (m *Manager) today() string {
	return m.now().Format(time.DateOnly)
}

func clampPercent(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
