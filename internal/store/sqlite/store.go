package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dimasergei/agentiq/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query_id TEXT NOT NULL,
	agent_name TEXT NOT NULL,
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cost REAL NOT NULL DEFAULT 0,
	day TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_records_day ON usage_records(day, created_at);
CREATE INDEX IF NOT EXISTS idx_usage_records_query ON usage_records(query_id);

CREATE TABLE IF NOT EXISTS daily_usage (
	day TEXT PRIMARY KEY,
	total_cost REAL NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	queries_processed INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS query_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query_id TEXT NOT NULL,
	query TEXT NOT NULL,
	answer TEXT NOT NULL DEFAULT '',
	agents_used INTEGER NOT NULL DEFAULT 0,
	cost REAL NOT NULL DEFAULT 0,
	execution_ms INTEGER NOT NULL DEFAULT 0,
	succeeded INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_log_created ON query_log(created_at);
`

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *Store) CreateUsageRecord(ctx context.Context, rec domain.UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Day == "" {
		rec.Day = rec.CreatedAt.Format(time.DateOnly)
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO usage_records(query_id, agent_name, model, input_tokens, output_tokens, cost, day, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.QueryID, rec.AgentName, rec.Model, rec.InputTokens, rec.OutputTokens, rec.Cost,
		rec.Day, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create usage record: %w", err)
	}
	return nil
}

// BumpDailyTotals adds one processed query's cost and token count to the
// running totals for day, creating the row on first use.
func (s *Store) BumpDailyTotals(ctx context.Context, day string, cost float64, tokens int) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO daily_usage(day, total_cost, total_tokens, queries_processed, updated_at)
		VALUES(?, ?, ?, 1, ?)
		ON CONFLICT(day) DO UPDATE SET
			total_cost = total_cost + excluded.total_cost,
			total_tokens = total_tokens + excluded.total_tokens,
			queries_processed = queries_processed + 1,
			updated_at = excluded.updated_at`,
		day, cost, tokens, time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("bump daily totals: %w", err)
	}
	return nil
}

// GetDailyTotals returns zero totals for a day with no recorded usage.
func (s *Store) GetDailyTotals(ctx context.Context, day string) (domain.UsageTotals, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT day, total_cost, total_tokens, queries_processed FROM daily_usage WHERE day = ?`,
		day,
	)
	var t domain.UsageTotals
	if err := row.Scan(&t.Day, &t.TotalCost, &t.TotalTokens, &t.QueriesProcessed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UsageTotals{Day: day}, nil
		}
		return domain.UsageTotals{}, fmt.Errorf("get daily totals: %w", err)
	}
	return t, nil
}

func (s *Store) ResetDailyTotals(ctx context.Context, day string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM daily_usage WHERE day = ?`, day); err != nil {
		return fmt.Errorf("reset daily totals: %w", err)
	}
	return nil
}

func (s *Store) ListUsageRecords(ctx context.Context, day string, limit int) ([]domain.UsageRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, query_id, agent_name, model, input_tokens, output_tokens, cost, day, created_at
		FROM usage_records WHERE day = ? ORDER BY created_at DESC LIMIT ?`,
		day, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list usage records: %w", err)
	}
	defer rows.Close()

	result := make([]domain.UsageRecord, 0)
	for rows.Next() {
		var rec domain.UsageRecord
		var created int64
		if err := rows.Scan(
			&rec.ID, &rec.QueryID, &rec.AgentName, &rec.Model,
			&rec.InputTokens, &rec.OutputTokens, &rec.Cost, &rec.Day, &created,
		); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		rec.CreatedAt = time.Unix(created, 0).UTC()
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage records: %w", err)
	}
	return result, nil
}

func (s *Store) LogQuery(ctx context.Context, entry domain.QueryLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO query_log(query_id, query, answer, agents_used, cost, execution_ms, succeeded, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.QueryID, entry.Query, entry.Answer, entry.AgentsUsed, entry.Cost,
		entry.ExecutionMS, boolToInt(entry.Succeeded), entry.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("log query: %w", err)
	}
	return nil
}

func (s *Store) ListQueryLog(ctx context.Context, limit int) ([]domain.QueryLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, query_id, query, answer, agents_used, cost, execution_ms, succeeded, created_at
		FROM query_log ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list query log: %w", err)
	}
	defer rows.Close()

	result := make([]domain.QueryLogEntry, 0)
	for rows.Next() {
		var entry domain.QueryLogEntry
		var succeeded int
		var created int64
		if err := rows.Scan(
			&entry.ID, &entry.QueryID, &entry.Query, &entry.Answer,
			&entry.AgentsUsed, &entry.Cost, &entry.ExecutionMS, &succeeded, &created,
		); err != nil {
			return nil, fmt.Errorf("scan query log entry: %w", err)
		}
		entry.Succeeded = succeeded != 0
		entry.CreatedAt = time.Unix(created, 0).UTC()
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query log: %w", err)
	}
	return result, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
