package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesAllSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
db_path = "/tmp/agentiq.db"

[server]
addr = "127.0.0.1:9000"
allowed_origins = ["http://localhost:3000"]

[planner]
delay_ms = 500
model = "demo-llm"

[simulation]
tick_interval_ms = 1000
subtask_min_ms = 2000
subtask_max_ms = 4000
review_delay_ms = 2000

[budget]
daily_usd = 50.0
per_query_usd = 2.5

[limits]
max_query_length = 800
max_agents_per_query = 5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/agentiq.db" {
		t.Fatalf("db_path=%q", cfg.DBPath)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("addr=%q", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Fatalf("allowed_origins=%v", cfg.Server.AllowedOrigins)
	}
	if cfg.Planner.DelayMS != 500 || cfg.Planner.Model != "demo-llm" {
		t.Fatalf("planner=%+v", cfg.Planner)
	}
	if cfg.Simulation.SubtaskMaxMS != 4000 {
		t.Fatalf("simulation=%+v", cfg.Simulation)
	}
	if cfg.Budget.DailyUSD != 50.0 || cfg.Budget.PerQueryUSD != 2.5 {
		t.Fatalf("budget=%+v", cfg.Budget)
	}
	if cfg.Limits.MaxAgentsPerQuery != 5 {
		t.Fatalf("limits=%+v", cfg.Limits)
	}
	if cfg.Path != path {
		t.Fatalf("path=%q want=%q", cfg.Path, path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\naddr ="), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected decode error")
	}
}
