package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RunnerConfig holds configuration for the background task runner.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can sit in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	StuckTaskCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// Runner manages background task processing. Tasks are persisted before
// they are queued, so a crash between submit and execution loses nothing:
// Start recovers pending and interrupted tasks from the store.
type Runner struct {
	store    TaskStore
	queue    chan Task
	cfg      RunnerConfig
	logger   *slog.Logger
	resolver func(Task) Task

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a Runner backed by the given task store. The resolver,
// if non-nil, rebinds a recovered task row to its executable implementation
// (rows loaded from the database carry payload and type but no behavior).
func NewRunner(store TaskStore, cfg RunnerConfig, resolver func(Task) Task, logger *slog.Logger) *Runner {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.StuckTaskCheckInterval <= 0 {
		cfg.StuckTaskCheckInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		store:    store,
		queue:    make(chan Task, cfg.QueueSize),
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "task_runner")),
		resolver: resolver,
	}
}

// Submit persists a task and places it on the in-memory queue.
// Returns an error if the task cannot be saved or the queue is full.
func (r *Runner) Submit(ctx context.Context, t Task) error {
	if err := r.store.SaveTask(ctx, t); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	select {
	case r.queue <- t:
		return nil
	default:
		return fmt.Errorf("task queue is full, try again later")
	}
}

// Start recovers unfinished tasks and launches the worker pool plus the
// stuck-task monitor. Call Stop to shut down.
func (r *Runner) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	if err := r.recover(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < r.cfg.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}

	r.wg.Add(1)
	go r.monitorStuck(ctx)

	return nil
}

// Stop cancels the workers and waits for in-flight tasks to finish.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// recover requeues tasks left pending or processing by a previous run.
// Processing tasks are reset to pending first; they were interrupted
// mid-flight and must run again.
func (r *Runner) recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	interrupted, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"interrupted_count", len(interrupted))

	for _, t := range interrupted {
		if err := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusPending, "reset after recovery"); err != nil {
			r.logger.Error("failed to reset interrupted task",
				"task_id", t.ID(), "error", err)
			continue
		}
		pending = append(pending, t)
	}

	for _, t := range pending {
		r.enqueue(t)
	}

	return nil
}

func (r *Runner) enqueue(t Task) {
	if r.resolver != nil {
		t = r.resolver(t)
	}

	select {
	case r.queue <- t:
	default:
		r.logger.Error("failed to requeue task, queue is full",
			"task_id", t.ID(), "task_type", t.Type())
	}
}

func (r *Runner) worker(ctx context.Context, id int) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.queue:
			r.run(ctx, t, id)
		}
	}
}

// run executes one task, recording its status transitions in the store.
func (r *Runner) run(ctx context.Context, t Task, workerID int) {
	log := r.logger.With(
		"task_id", t.ID(),
		"task_type", t.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusProcessing, ""); err != nil {
		log.Error("failed to mark task processing", "error", err)
		return
	}

	log.Info("processing task")

	if err := t.Execute(ctx); err != nil {
		log.Error("task execution failed", "error", err)
		if uerr := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusFailed, err.Error()); uerr != nil {
			log.Error("failed to mark task failed", "error", uerr)
		}
		return
	}

	log.Info("task completed")
	if err := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusCompleted, ""); err != nil {
		log.Error("failed to mark task completed", "error", err)
	}
}

// monitorStuck periodically resets tasks that have been processing longer
// than StuckTaskAge and requeues them.
func (r *Runner) monitorStuck(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stuck, err := r.store.GetProcessingTasks(ctx, r.cfg.StuckTaskAge)
			if err != nil {
				r.logger.Error("failed to check for stuck tasks", "error", err)
				continue
			}

			for _, t := range stuck {
				if err := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusPending,
					"reset after being stuck in processing state"); err != nil {
					r.logger.Error("failed to reset stuck task",
						"task_id", t.ID(), "error", err)
					continue
				}
				r.logger.Info("requeued stuck task", "task_id", t.ID(), "task_type", t.Type())
				r.enqueue(t)
			}
		}
	}
}
