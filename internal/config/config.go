package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Planner    PlannerConfig    `toml:"planner"`
	Simulation SimulationConfig `toml:"simulation"`
	Budget     BudgetConfig     `toml:"budget"`
	Limits     LimitsConfig     `toml:"limits"`
	DBPath     string           `toml:"db_path"`
	Path       string           `toml:"-"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type PlannerConfig struct {
	DelayMS        int    `toml:"delay_ms"`
	RemoteEndpoint string `toml:"remote_endpoint"`
	Model          string `toml:"model"`
}

type SimulationConfig struct {
	TickIntervalMS int `toml:"tick_interval_ms"`
	SubtaskMinMS   int `toml:"subtask_min_ms"`
	SubtaskMaxMS   int `toml:"subtask_max_ms"`
	ReviewDelayMS  int `toml:"review_delay_ms"`
}

type BudgetConfig struct {
	DailyUSD           float64 `toml:"daily_usd"`
	PerQueryUSD        float64 `toml:"per_query_usd"`
	CostPerInputToken  float64 `toml:"cost_per_input_token"`
	CostPerOutputToken float64 `toml:"cost_per_output_token"`
}

type LimitsConfig struct {
	MaxQueryLength    int `toml:"max_query_length"`
	MaxAgentsPerQuery int `toml:"max_agents_per_query"`
}

func Load(path string) (Config, error) {
	resolved := path
	if resolved == "" {
		resolved = defaultConfigPath()
	}
	if strings.HasPrefix(resolved, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed := strings.TrimPrefix(resolved, "~")
		trimmed = strings.TrimPrefix(trimmed, "/")
		resolved = filepath.Join(home, trimmed)
	}
	resolved = filepath.Clean(resolved)

	bytes, err := os.ReadFile(resolved)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", resolved, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(bytes), &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file: %w", err)
	}
	cfg.Path = resolved
	return cfg, nil
}

// LoadOptional behaves like Load but treats a missing file at the default
// path as an empty config rather than an error.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil && path == "" && errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	return cfg, err
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentiq/config.toml"
	}
	return filepath.Join(home, ".agentiq", "config.toml")
}
