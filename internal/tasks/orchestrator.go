// Package tasks runs background document work through an asynchronous
// orchestrator. Tasks move pending → processing → completed/failed, with
// cancellation possible at any point before a terminal state is persisted.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperdock/hokan/internal/docs"
	"github.com/hyperdock/hokan/internal/generate"
	"github.com/hyperdock/hokan/internal/models"
	"github.com/hyperdock/hokan/internal/storage"
)

// DefaultGraceWindow is how long a terminal task's handle stays resident so
// late Cancel calls can still observe it.
const DefaultGraceWindow = 5 * time.Minute

// ErrTaskTerminal is returned by Cancel when the task already finished.
var ErrTaskTerminal = errors.New("task already in a terminal state")

// handle tracks one in-flight task. cancelled flips exactly once, under the
// orchestrator mutex, and blocks any later terminal overwrite by the runner.
type handle struct {
	cancel    context.CancelFunc
	cancelled bool
}

// Orchestrator accepts task submissions, runs each in its own goroutine, and
// persists every state transition. All handle-map access and all task row
// writes happen under mu, so each task has a single effective writer.
type Orchestrator struct {
	store     storage.TaskStore
	documents *docs.Service
	generator generate.Generator
	logger    *zap.Logger
	grace     time.Duration

	mu      sync.Mutex
	handles map[string]*handle
	wg      sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for task lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithGraceWindow overrides how long terminal task handles stay resident.
func WithGraceWindow(d time.Duration) Option {
	return func(o *Orchestrator) { o.grace = d }
}

// NewOrchestrator creates an orchestrator that runs tasks against the given
// document service and generator.
func NewOrchestrator(store storage.TaskStore, documents *docs.Service, generator generate.Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		documents: documents,
		generator: generator,
		logger:    zap.NewNop(),
		grace:     DefaultGraceWindow,
		handles:   make(map[string]*handle),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit persists a new pending task and starts it in the background. The
// returned task reflects the pending state; callers poll GetStatus for
// progress. The passed context covers submission only, not execution.
func (o *Orchestrator) Submit(ctx context.Context, ownerID string, kind models.TaskKind, params map[string]interface{}) (*models.Task, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("missing owner")
	}
	now := time.Now().UTC()
	task := &models.Task{
		ID:        uuid.New().String(),
		Kind:      kind,
		OwnerID:   ownerID,
		Status:    models.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("persist task: %w", err)
	}

	// Execution outlives the submission request.
	runCtx, cancel := context.WithCancel(context.Background())

	o.mu.Lock()
	o.handles[task.ID] = &handle{cancel: cancel}
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(runCtx, task.Clone(), params)

	o.logger.Info("task submitted",
		zap.String("task_id", task.ID),
		zap.String("task_type", string(kind)),
		zap.String("user_id", ownerID))
	return task, nil
}

// run drives one task to a terminal state.
func (o *Orchestrator) run(ctx context.Context, task *models.Task, params map[string]interface{}) {
	defer o.wg.Done()

	if !o.transition(task, models.TaskProcessing, nil, "") {
		return
	}

	result, err := o.execute(ctx, task, params)

	switch {
	case err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil):
		// Cancel already persisted the cancelled state; just let go.
		o.finishCancelled(task.ID)
	case err != nil:
		o.transition(task, models.TaskFailed, nil, err.Error())
	default:
		o.transition(task, models.TaskCompleted, result, "")
	}
}

// transition persists a state change unless the task was cancelled in the
// meantime. Returns false when the cancelled handle won the race. Handle
// eviction is scheduled either way: on a terminal transition, or immediately
// when the cancelled handle blocks one, since the runner makes no further
// transitions after a false return.
func (o *Orchestrator) transition(task *models.Task, state models.TaskState, result map[string]interface{}, errMsg string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if h, ok := o.handles[task.ID]; ok && h.cancelled {
		o.evictAfterGrace(task.ID)
		return false
	}

	task.Status = state
	task.Result = result
	task.Error = errMsg
	task.UpdatedAt = time.Now().UTC()
	switch state {
	case models.TaskProcessing:
		task.Progress = 10.0
	case models.TaskCompleted:
		task.Progress = 100.0
	}

	if err := o.store.UpdateTask(context.Background(), task); err != nil {
		o.logger.Error("persist task transition failed",
			zap.String("task_id", task.ID),
			zap.String("status", string(state)),
			zap.Error(err))
	}
	if state.Terminal() {
		o.evictAfterGrace(task.ID)
		o.logger.Info("task finished",
			zap.String("task_id", task.ID),
			zap.String("status", string(state)))
	}
	return true
}

// finishCancelled schedules eviction for a task whose runner observed the
// cancellation that Cancel already persisted.
func (o *Orchestrator) finishCancelled(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.evictAfterGrace(id)
}

// evictAfterGrace drops the handle once the grace window elapses. Caller
// holds mu.
func (o *Orchestrator) evictAfterGrace(id string) {
	time.AfterFunc(o.grace, func() {
		o.mu.Lock()
		delete(o.handles, id)
		o.mu.Unlock()
	})
}

// Cancel stops a non-terminal task. It persists the cancelled state
// immediately and signals the runner, which may still be mid-operation.
// Returns ErrTaskTerminal when the task already finished and
// storage.ErrNotFound when no such task exists for the owner.
func (o *Orchestrator) Cancel(ctx context.Context, id, ownerID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	task, err := o.store.GetTask(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if task.Status.Terminal() {
		return ErrTaskTerminal
	}

	h, ok := o.handles[id]
	if !ok {
		// Non-terminal but no live handle: a restart orphan not yet
		// reconciled. Persisting cancelled is still the right outcome.
		task.Status = models.TaskCancelled
		task.UpdatedAt = time.Now().UTC()
		return o.store.UpdateTask(ctx, task)
	}
	if h.cancelled {
		return ErrTaskTerminal
	}
	h.cancelled = true
	h.cancel()

	task.Status = models.TaskCancelled
	task.Result = nil
	task.Error = ""
	task.UpdatedAt = time.Now().UTC()
	if err := o.store.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("persist cancellation: %w", err)
	}
	o.logger.Info("task cancelled", zap.String("task_id", id))
	return nil
}

// GetStatus returns the current persisted state of the task.
func (o *Orchestrator) GetStatus(ctx context.Context, id, ownerID string) (*models.Task, error) {
	return o.store.GetTask(ctx, id, ownerID)
}

// ListByOwner returns the owner's tasks, newest first.
func (o *Orchestrator) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Task, error) {
	return o.store.ListTasks(ctx, ownerID, limit)
}

// Stats summarizes the owner's tasks: totals, per-status and per-kind
// counts, and completion rate as a percentage of all tasks.
func (o *Orchestrator) Stats(ctx context.Context, ownerID string) (map[string]interface{}, error) {
	byStatus, err := o.store.CountTasksByStatus(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}
	byKind, err := o.store.CountTasksByKind(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count tasks by type: %w", err)
	}

	var total int64
	for _, n := range byStatus {
		total += n
	}
	completionRate := 0.0
	if total > 0 {
		completionRate = float64(byStatus[string(models.TaskCompleted)]) / float64(total) * 100
	}
	return map[string]interface{}{
		"total_tasks":     total,
		"status_counts":   byStatus,
		"type_counts":     byKind,
		"completion_rate": completionRate,
	}, nil
}

// CleanupOlderThan deletes terminal tasks whose last update is older than
// the retention period. Returns the number of rows removed.
func (o *Orchestrator) CleanupOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	removed, err := o.store.DeleteTerminalTasksBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old tasks: %w", err)
	}
	if removed > 0 {
		o.logger.Info("old tasks removed", zap.Int64("count", removed))
	}
	return removed, nil
}

// ReconcileOrphans fails any pending or processing task that has no live
// handle. Called once at startup: such rows belonged to a previous process
// and their goroutines are gone.
func (o *Orchestrator) ReconcileOrphans(ctx context.Context) (int, error) {
	orphans := 0
	for _, status := range []models.TaskState{models.TaskPending, models.TaskProcessing} {
		stale, err := o.store.ListTasksByStatus(ctx, status)
		if err != nil {
			return orphans, fmt.Errorf("list %s tasks: %w", status, err)
		}
		for _, task := range stale {
			o.mu.Lock()
			_, live := o.handles[task.ID]
			o.mu.Unlock()
			if live {
				continue
			}
			task.Status = models.TaskFailed
			task.Error = "orphaned on restart"
			task.UpdatedAt = time.Now().UTC()
			if err := o.store.UpdateTask(ctx, task); err != nil {
				o.logger.Error("reconcile orphan failed",
					zap.String("task_id", task.ID), zap.Error(err))
				continue
			}
			orphans++
		}
	}
	if orphans > 0 {
		o.logger.Warn("orphaned tasks failed on startup", zap.Int("count", orphans))
	}
	return orphans, nil
}

// Wait blocks until all in-flight task goroutines return. Used in shutdown
// and tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
