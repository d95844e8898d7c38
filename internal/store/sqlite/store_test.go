package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dimasergei/agentiq/internal/domain"
)

func TestDailyTotalsAccumulate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	day := "2026-08-29"
	totals, err := store.GetDailyTotals(ctx, day)
	if err != nil {
		t.Fatalf("get empty totals: %v", err)
	}
	if totals.TotalCost != 0 || totals.QueriesProcessed != 0 {
		t.Fatalf("expected zero totals for fresh day, got %+v", totals)
	}

	if err := store.BumpDailyTotals(ctx, day, 1.5, 1200); err != nil {
		t.Fatalf("first bump: %v", err)
	}
	if err := store.BumpDailyTotals(ctx, day, 0.5, 300); err != nil {
		t.Fatalf("second bump: %v", err)
	}

	totals, err = store.GetDailyTotals(ctx, day)
	if err != nil {
		t.Fatalf("get totals: %v", err)
	}
	if totals.TotalCost != 2.0 {
		t.Fatalf("total_cost=%f want=2.0", totals.TotalCost)
	}
	if totals.TotalTokens != 1500 {
		t.Fatalf("total_tokens=%d want=1500", totals.TotalTokens)
	}
	if totals.QueriesProcessed != 2 {
		t.Fatalf("queries_processed=%d want=2", totals.QueriesProcessed)
	}

	if err := store.ResetDailyTotals(ctx, day); err != nil {
		t.Fatalf("reset totals: %v", err)
	}
	totals, err = store.GetDailyTotals(ctx, day)
	if err != nil {
		t.Fatalf("get totals after reset: %v", err)
	}
	if totals.TotalCost != 0 || totals.QueriesProcessed != 0 {
		t.Fatalf("expected zero totals after reset, got %+v", totals)
	}
}

func TestUsageRecordsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	queryID := uuid.NewString()
	rec := domain.UsageRecord{
		QueryID:      queryID,
		AgentName:    "web_search",
		Model:        "demo-llm",
		InputTokens:  400,
		OutputTokens: 500,
		Cost:         0.04,
		Day:          "2026-08-29",
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.CreateUsageRecord(ctx, rec); err != nil {
		t.Fatalf("create usage record: %v", err)
	}

	records, err := store.ListUsageRecords(ctx, "2026-08-29", 10)
	if err != nil {
		t.Fatalf("list usage records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records=%d want=1", len(records))
	}
	if records[0].QueryID != queryID {
		t.Fatalf("query_id=%s want=%s", records[0].QueryID, queryID)
	}
	if records[0].InputTokens != 400 || records[0].OutputTokens != 500 {
		t.Fatalf("tokens=%d/%d want=400/500", records[0].InputTokens, records[0].OutputTokens)
	}
}

func TestQueryLog(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	if err := store.LogQuery(ctx, domain.QueryLogEntry{
		QueryID:     uuid.NewString(),
		Query:       "analyze churn",
		Answer:      "done",
		AgentsUsed:  3,
		Cost:        0.12,
		ExecutionMS: 812,
		Succeeded:   true,
	}); err != nil {
		t.Fatalf("log query: %v", err)
	}
	if err := store.LogQuery(ctx, domain.QueryLogEntry{
		QueryID:   uuid.NewString(),
		Query:     "broken",
		Succeeded: false,
		CreatedAt: time.Now().UTC().Add(time.Second),
	}); err != nil {
		t.Fatalf("log failed query: %v", err)
	}

	entries, err := store.ListQueryLog(ctx, 10)
	if err != nil {
		t.Fatalf("list query log: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries=%d want=2", len(entries))
	}
	if entries[0].Query != "broken" || entries[0].Succeeded {
		t.Fatalf("newest entry=%+v want failed 'broken'", entries[0])
	}
	if entries[1].AgentsUsed != 3 {
		t.Fatalf("agents_used=%d want=3", entries[1].AgentsUsed)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		t.Fatalf("migrate store: %v", err)
	}
	return store
}
