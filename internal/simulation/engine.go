package simulation

import (
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/dimasergei/agentiq/internal/domain"
)

// EventSink receives simulation events. The in-process bus satisfies it.
type EventSink interface {
	Publish(evt domain.SimulationEvent) error
}

type Config struct {
	// SubtaskMinDelay/SubtaskMaxDelay bound the randomized wait between a
	// subtask going in-progress and its completion.
	SubtaskMinDelay time.Duration
	SubtaskMaxDelay time.Duration
	// ReviewDelay is the fixed wait between review and completed.
	ReviewDelay time.Duration
	Rand        func() float64
	Logger      *log.Logger
	Events      EventSink
}

func (c Config) withDefaults() Config {
	if c.SubtaskMinDelay <= 0 {
		c.SubtaskMinDelay = 2 * time.Second
	}
	if c.SubtaskMaxDelay < c.SubtaskMinDelay {
		c.SubtaskMaxDelay = c.SubtaskMinDelay + 2*time.Second
	}
	if c.ReviewDelay <= 0 {
		c.ReviewDelay = 2 * time.Second
	}
	if c.Rand == nil {
		c.Rand = rand.Float64
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

type effectKind int

const (
	effectSubtaskComplete effectKind = iota
	effectTaskComplete
)

// scheduledEffect is a deferred state change (subtask completion or the
// review-to-completed transition). Effects carry the generation they were
// scheduled under so firings that straddle a reset are dropped instead of
// resurrecting stale entries.
type scheduledEffect struct {
	kind       effectKind
	generation uint64
	due        time.Time
	taskID     string
	subtaskID  string
	pick       int
}

// Engine advances a deep-copied demo catalog through the task lifecycle
// pending -> in-progress -> review -> completed. All mutation happens inside
// Tick and Reset; an external driver (Runner, or a test) supplies the clock.
type Engine struct {
	mu             sync.Mutex
	cfg            Config
	tasks          []domain.DemoTask
	effects        []scheduledEffect
	generation     uint64
	completedTasks int
}

func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:   cfg.withDefaults(),
		tasks: SeedCatalog(),
	}
}

// Tick applies all effects due at now, then advances the first task in
// catalog order that is not yet completed. When every task is completed the
// call is a no-op and the simulation idles.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.applyDueEffects(now)

	task := e.firstUnfinished()
	if task == nil {
		return
	}

	switch task.Status {
	case domain.TaskStatusPending:
		task.Status = domain.TaskStatusInProgress
		start := now
		task.StartTime = &start
		e.publish(domain.SimulationEvent{
			Kind:      domain.EventTaskStatusChanged,
			TaskID:    task.ID,
			TaskState: task.Status,
			At:        now,
		})
	case domain.TaskStatusInProgress:
		e.startNextSubtask(task, now)
	case domain.TaskStatusReview:
		// Waiting on the scheduled review-delay effect.
	}
}

// Reset restores the catalog to the seed, zeroes the completed-task counter
// and invalidates every scheduled effect.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	e.effects = nil
	e.tasks = SeedCatalog()
	e.completedTasks = 0
	e.publish(domain.SimulationEvent{
		Kind: domain.EventCatalogReset,
		At:   time.Now().UTC(),
	})
	e.cfg.Logger.Printf("simulation reset generation=%d", e.generation)
}

// Snapshot returns a deep copy of the current catalog.
func (e *Engine) Snapshot() []domain.DemoTask {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyCatalog(e.tasks)
}

// CompletedTasks reports how many tasks reached completed since the last
// reset.
func (e *Engine) CompletedTasks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completedTasks
}

// Idle reports whether every task in the catalog is completed and no effects
// remain scheduled.
func (e *Engine) Idle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.effects) > 0 {
		return false
	}
	for i := range e.tasks {
		if e.tasks[i].Status != domain.TaskStatusCompleted {
			return false
		}
	}
	return true
}

func (e *Engine) firstUnfinished() *domain.DemoTask {
	for i := range e.tasks {
		if e.tasks[i].Status != domain.TaskStatusCompleted {
			return &e.tasks[i]
		}
	}
	return nil
}

func (e *Engine) startNextSubtask(task *domain.DemoTask, now time.Time) {
	for i := range task.Subtasks {
		st := &task.Subtasks[i]
		if st.Status != domain.SubtaskStatusPending {
			continue
		}
		st.Status = domain.SubtaskStatusInProgress
		delay := e.subtaskDelay()
		e.effects = append(e.effects, scheduledEffect{
			kind:       effectSubtaskComplete,
			generation: e.generation,
			due:        now.Add(delay),
			taskID:     task.ID,
			subtaskID:  st.ID,
			pick:       e.pickIndex(),
		})
		e.publish(domain.SimulationEvent{
			Kind:      domain.EventSubtaskStarted,
			TaskID:    task.ID,
			SubtaskID: st.ID,
			At:        now,
		})
		return
	}
}

func (e *Engine) applyDueEffects(now time.Time) {
	// Applying a due effect can schedule a follow-up (subtask completion at
	// 100% queues the review-delay transition), so e.effects must not be
	// rebuilt in place while iterating. Drain it first and let handlers
	// append follow-ups to the fresh slice.
	pending := e.effects
	e.effects = nil
	var remaining []scheduledEffect
	for _, eff := range pending {
		if eff.generation != e.generation {
			continue
		}
		if eff.due.After(now) {
			remaining = append(remaining, eff)
			continue
		}
		switch eff.kind {
		case effectSubtaskComplete:
			e.completeSubtask(eff, now)
		case effectTaskComplete:
			e.completeTask(eff.taskID, now)
		}
	}
	e.effects = append(e.effects, remaining...)
}

func (e *Engine) completeSubtask(eff scheduledEffect, now time.Time) {
	task := e.findTask(eff.taskID)
	if task == nil {
		return
	}
	var subtask *domain.DemoSubtask
	for i := range task.Subtasks {
		if task.Subtasks[i].ID == eff.subtaskID {
			subtask = &task.Subtasks[i]
			break
		}
	}
	if subtask == nil || subtask.Status != domain.SubtaskStatusInProgress {
		return
	}

	subtask.Status = domain.SubtaskStatusCompleted
	result := fabricateResult(eff.pick, subtask.Title)
	subtask.Result = &result
	e.publish(domain.SimulationEvent{
		Kind:      domain.EventSubtaskCompleted,
		TaskID:    task.ID,
		SubtaskID: subtask.ID,
		Detail:    result.Text,
		At:        now,
	})

	insight := fabricateInsight(e.pickIndex(), task.Title, subtask.AssignedAgent)
	if appendInsight(task, insight) {
		e.publish(domain.SimulationEvent{
			Kind:   domain.EventInsightAdded,
			TaskID: task.ID,
			Detail: insight,
			At:     now,
		})
	}

	task.Progress = progressOf(task)
	if task.Progress == 100 && task.Status == domain.TaskStatusInProgress {
		task.Status = domain.TaskStatusReview
		e.effects = append(e.effects, scheduledEffect{
			kind:       effectTaskComplete,
			generation: e.generation,
			due:        now.Add(e.cfg.ReviewDelay),
			taskID:     task.ID,
		})
		e.publish(domain.SimulationEvent{
			Kind:      domain.EventTaskStatusChanged,
			TaskID:    task.ID,
			TaskState: task.Status,
			At:        now,
		})
	}
}

func (e *Engine) completeTask(taskID string, now time.Time) {
	task := e.findTask(taskID)
	if task == nil || task.Status != domain.TaskStatusReview {
		return
	}
	task.Status = domain.TaskStatusCompleted
	done := now
	task.CompletionTime = &done
	e.completedTasks++
	e.publish(domain.SimulationEvent{
		Kind:      domain.EventTaskStatusChanged,
		TaskID:    task.ID,
		TaskState: task.Status,
		At:        now,
	})
	e.cfg.Logger.Printf("demo task completed id=%s total=%d", task.ID, e.completedTasks)
}

func (e *Engine) findTask(taskID string) *domain.DemoTask {
	for i := range e.tasks {
		if e.tasks[i].ID == taskID {
			return &e.tasks[i]
		}
	}
	return nil
}

func (e *Engine) subtaskDelay() time.Duration {
	spread := e.cfg.SubtaskMaxDelay - e.cfg.SubtaskMinDelay
	return e.cfg.SubtaskMinDelay + time.Duration(e.cfg.Rand()*float64(spread))
}

func (e *Engine) pickIndex() int {
	idx := int(e.cfg.Rand() * float64(len(resultTemplates)))
	if idx >= len(resultTemplates) {
		idx = len(resultTemplates) - 1
	}
	return idx
}

func (e *Engine) publish(evt domain.SimulationEvent) {
	if e.cfg.Events == nil {
		return
	}
	if err := e.cfg.Events.Publish(evt); err != nil {
		e.cfg.Logger.Printf("simulation event dropped kind=%s task=%s: %v", evt.Kind, evt.TaskID, err)
	}
}

func appendInsight(task *domain.DemoTask, insight string) bool {
	for _, existing := range task.Insights {
		if existing == insight {
			return false
		}
	}
	task.Insights = append(task.Insights, insight)
	return true
}

func progressOf(task *domain.DemoTask) int {
	if len(task.Subtasks) == 0 {
		return 0
	}
	done := 0
	for _, st := range task.Subtasks {
		if st.Status == domain.SubtaskStatusCompleted {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(task.Subtasks))))
}
