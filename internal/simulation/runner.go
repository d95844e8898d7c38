package simulation

import (
	"context"
	"log"
	"sync"
	"time"
)

const defaultTickInterval = 3 * time.Second

// Runner drives an Engine on a real clock. The simulation is off until Start
// and stops issuing ticks after Stop; effects already scheduled stay in the
// engine and fire on the next tick of a later run.
type Runner struct {
	engine   *Engine
	interval time.Duration
	logger   *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(engine *Engine, interval time.Duration, logger *log.Logger) *Runner {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		engine:   engine,
		interval: interval,
		logger:   logger,
	}
}

// Start begins ticking until Stop or the parent context ends. It reports
// false when the runner is already active.
func (r *Runner) Start(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return false
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	go func() {
		defer close(done)
		r.loop(runCtx)
	}()
	r.logger.Printf("simulation started interval=%s", r.interval)
	return true
}

// Stop halts ticking. It reports false when the runner was not active.
func (r *Runner) Stop() bool {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	<-done
	r.logger.Printf("simulation stopped")
	return true
}

func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *Runner) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.engine.Tick(time.Now().UTC())
		}
	}
}
