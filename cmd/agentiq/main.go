package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dimasergei/agentiq/internal/agent"
	"github.com/dimasergei/agentiq/internal/budget"
	"github.com/dimasergei/agentiq/internal/config"
	"github.com/dimasergei/agentiq/internal/domain"
	"github.com/dimasergei/agentiq/internal/messaging/inproc"
	"github.com/dimasergei/agentiq/internal/metrics"
	"github.com/dimasergei/agentiq/internal/orchestrator"
	"github.com/dimasergei/agentiq/internal/planner"
	"github.com/dimasergei/agentiq/internal/policy"
	"github.com/dimasergei/agentiq/internal/simulation"
	sqlitestore "github.com/dimasergei/agentiq/internal/store/sqlite"
)

type planGenerator interface {
	Generate(ctx context.Context, task, role string) (domain.ExecutionPlan, error)
}

type app struct {
	// runCtx outlives individual requests; simulation restarts started from
	// a handler must not die with the request.
	runCtx       context.Context
	cfg          config.Config
	planner      planGenerator
	orchestrator *orchestrator.Service
	engine       *simulation.Engine
	runner       *simulation.Runner
	bus          *inproc.Bus
	budget       *budget.Manager
	store        *sqlitestore.Store
	collector    *metrics.Collector
	started      time.Time
}

func main() {
	configPath := flag.String("config", "", "path to config.toml (default: ~/.agentiq/config.toml)")
	addrFlag := flag.String("addr", "", "http listen address override")
	dbPathFlag := flag.String("db", "", "sqlite database path override")
	noSim := flag.Bool("no-sim", false, "do not start the progress simulation on boot")
	flag.Parse()

	cfg, err := config.LoadOptional(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	addr := firstNonEmpty(*addrFlag, cfg.Server.Addr, ":8090")
	dbPath := firstNonEmpty(*dbPathFlag, cfg.DBPath, "data/agentiq.db")
	dbPath = filepath.Clean(dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		log.Fatalf("create db directory: %v", err)
	}

	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		log.Fatalf("open sqlite store: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate sqlite: %v", err)
	}

	bus := inproc.New(256)
	collector := metrics.New()

	engine := simulation.NewEngine(simulation.Config{
		SubtaskMinDelay: durationMS(cfg.Simulation.SubtaskMinMS, 0),
		SubtaskMaxDelay: durationMS(cfg.Simulation.SubtaskMaxMS, 0),
		ReviewDelay:     durationMS(cfg.Simulation.ReviewDelayMS, 0),
		Events:          bus,
		Logger:          log.Default(),
	})
	runner := simulation.NewRunner(engine, durationMS(cfg.Simulation.TickIntervalMS, 3*time.Second), log.Default())
	if !*noSim {
		runner.Start(ctx)
	}

	var plan planGenerator
	if cfg.Planner.RemoteEndpoint != "" {
		remote, err := planner.NewRemotePlanner(planner.RemoteConfig{
			Endpoint: cfg.Planner.RemoteEndpoint,
			Logger:   log.Default(),
		})
		if err != nil {
			log.Fatalf("create remote planner: %v", err)
		}
		plan = remote
	} else {
		plan = planner.NewGenerator(planner.Config{
			Delay:  durationMS(cfg.Planner.DelayMS, 0),
			Logger: log.Default(),
		})
	}

	budgetMgr := budget.New(store, budget.Config{
		DailyBudget:        cfg.Budget.DailyUSD,
		PerQueryBudget:     cfg.Budget.PerQueryUSD,
		CostPerInputToken:  cfg.Budget.CostPerInputToken,
		CostPerOutputToken: cfg.Budget.CostPerOutputToken,
		Model:              cfg.Planner.Model,
		Logger:             log.Default(),
	})

	policyEngine := policy.New(policy.Limits{
		MaxQueryLength:    cfg.Limits.MaxQueryLength,
		MaxAgentsPerQuery: cfg.Limits.MaxAgentsPerQuery,
	})

	agents := agent.DefaultRegistry(agent.Config{Logger: log.Default()})
	orch := orchestrator.New(agents, budgetMgr, policyEngine, collector, store, orchestrator.Config{
		Model: cfg.Planner.Model,
	}, log.Default())

	a := &app{
		runCtx:       ctx,
		cfg:          cfg,
		planner:      plan,
		orchestrator: orch,
		engine:       engine,
		runner:       runner,
		bus:          bus,
		budget:       budgetMgr,
		store:        store,
		collector:    collector,
		started:      time.Now().UTC(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/config", a.handleConfig)
	mux.HandleFunc("/api/agents/execute", a.handleExecutePlan)
	mux.HandleFunc("/query", a.handleQuery)
	mux.HandleFunc("/usage", a.handleUsage)
	mux.HandleFunc("/usage/history", a.handleUsageHistory)
	mux.HandleFunc("/queries", a.handleQueryLog)
	mux.HandleFunc("/simulation/tasks", a.handleSimulationTasks)
	mux.HandleFunc("/simulation/stats", a.handleSimulationStats)
	mux.HandleFunc("/simulation/events", a.handleSimulationEvents)
	mux.HandleFunc("/simulation/start", a.handleSimulationStart)
	mux.HandleFunc("/simulation/stop", a.handleSimulationStop)
	mux.HandleFunc("/simulation/reset", a.handleSimulationReset)
	mux.Handle("/metrics", collector.Handler())

	handler := loggingMiddleware(corsMiddleware(cfg.Server.AllowedOrigins, mux))
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		runner.Stop()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("agentiq started addr=%s db=%s simulation=%v", addr, dbPath, runner.Running())

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server failed: %v", err)
	}
}

func (a *app) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": "1.0.0",
		"uptime":  time.Since(a.started).Round(time.Second).String(),
	})
}

func (a *app) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"path":   a.cfg.Path,
		"server": a.cfg.Server,
		"limits": a.cfg.Limits,
		"budget": a.cfg.Budget,
	})
}

func (a *app) handleExecutePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Task      string `json:"task"`
		AgentRole string `json:"agentRole"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("task is required"))
		return
	}

	plan, err := a.planner.Generate(r.Context(), req.Task, req.AgentRole)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (a *app) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}

	result, err := a.orchestrator.ExecuteQuery(r.Context(), req.Query)
	if err != nil {
		var admission orchestrator.AdmissionError
		switch {
		case errors.As(err, &admission):
			writeError(w, http.StatusBadRequest, err)
		case budget.IsExceeded(err):
			writeError(w, http.StatusPaymentRequired, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *app) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	usage, err := a.budget.DailyUsage(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (a *app) handleUsageHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	days := queryInt(r, "days", 7)
	history, err := a.budget.UsageHistory(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (a *app) handleQueryLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := queryInt(r, "limit", 50)
	entries, err := a.store.ListQueryLog(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *app) handleSimulationTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, a.engine.Snapshot())
}

func (a *app) handleSimulationStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tasks := a.engine.Snapshot()
	active := 0
	for _, t := range tasks {
		if t.Status == domain.TaskStatusInProgress || t.Status == domain.TaskStatusReview {
			active++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"running":         a.runner.Running(),
		"total_tasks":     len(tasks),
		"active_tasks":    active,
		"completed_tasks": a.engine.CompletedTasks(),
		"idle":            a.engine.Idle(),
		"queries":         a.collector.Summary(),
	})
}

// handleSimulationEvents streams engine events over server-sent events until
// the client disconnects.
func (a *app) handleSimulationEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	id := uuid.NewString()
	events := a.bus.Subscribe(id)
	defer a.bus.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			raw, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", raw)
			flusher.Flush()
		}
	}
}

func (a *app) handleSimulationStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	started := a.runner.Start(a.runCtx)
	writeJSON(w, http.StatusOK, map[string]any{"running": true, "started": started})
}

func (a *app) handleSimulationStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stopped := a.runner.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": false, "stopped": stopped})
}

func (a *app) handleSimulationReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	a.engine.Reset()
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func corsMiddleware(allowedOrigins []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(allowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func durationMS(v int, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return time.Duration(v) * time.Millisecond
}

func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
