package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNilRefresher = errors.New("cohort refresher cannot be nil")
	ErrEmptyPathID  = errors.New("path ID cannot be empty")
)

// CohortRefresher recomputes cohort-wide dashboard aggregates for a path.
type CohortRefresher interface {
	// RefreshCohort rebuilds the dashboard snapshot of every cohort
	// member for the given path.
	RefreshCohort(ctx context.Context, pathID uuid.UUID) error
}

// cohortRefreshPayload represents the serialized data stored in the task row.
type cohortRefreshPayload struct {
	PathID uuid.UUID `json:"path_id"`
}

// CohortRefreshTask implements the Task interface for recomputing cohort
// aggregates in the background.
type CohortRefreshTask struct {
	id        uuid.UUID
	pathID    uuid.UUID
	refresher CohortRefresher
	logger    *slog.Logger
	status    TaskStatus
}

var _ Task = (*CohortRefreshTask)(nil)

// NewCohortRefreshTask creates a cohort refresh task for the given path.
func NewCohortRefreshTask(
	pathID uuid.UUID,
	refresher CohortRefresher,
	logger *slog.Logger,
) (*CohortRefreshTask, error) {
	if refresher == nil {
		return nil, ErrNilRefresher
	}
	if pathID == uuid.Nil {
		return nil, ErrEmptyPathID
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CohortRefreshTask{
		id:        uuid.New(),
		pathID:    pathID,
		refresher: refresher,
		logger:    logger.With("component", "cohort_refresh_task"),
		status:    TaskStatusPending,
	}, nil
}

// ID implements Task.ID
func (t *CohortRefreshTask) ID() uuid.UUID {
	return t.id
}

// Type implements Task.Type
func (t *CohortRefreshTask) Type() string {
	return TaskTypeCohortRefresh
}

// Payload implements Task.Payload
func (t *CohortRefreshTask) Payload() []byte {
	data, err := json.Marshal(cohortRefreshPayload{PathID: t.pathID})
	if err != nil {
		// Marshaling a struct of plain value fields cannot fail.
		t.logger.Error("failed to marshal payload", "error", err, "path_id", t.pathID)
		return nil
	}
	return data
}

// Status implements Task.Status
func (t *CohortRefreshTask) Status() TaskStatus {
	return t.status
}

// Execute implements Task.Execute
func (t *CohortRefreshTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("refreshing cohort aggregates", "task_id", t.id, "path_id", t.pathID)

	if err := t.refresher.RefreshCohort(ctx, t.pathID); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("cohort refresh failed for path %s: %w", t.pathID, err)
	}

	t.status = TaskStatusCompleted
	return nil
}

// CohortRefreshTaskFactory creates CohortRefreshTask instances.
type CohortRefreshTaskFactory struct {
	refresher CohortRefresher
	logger    *slog.Logger
}

// NewCohortRefreshTaskFactory creates a factory for cohort refresh tasks.
func NewCohortRefreshTaskFactory(refresher CohortRefresher, logger *slog.Logger) *CohortRefreshTaskFactory {
	return &CohortRefreshTaskFactory{
		refresher: refresher,
		logger:    logger.With("component", "cohort_refresh_task_factory"),
	}
}

// CreateTask creates a new CohortRefreshTask for the specified path.
func (f *CohortRefreshTaskFactory) CreateTask(pathID uuid.UUID) (Task, error) {
	return NewCohortRefreshTask(pathID, f.refresher, f.logger)
}

// ResolveTask rebinds a task row loaded from the database to an executable
// implementation. Rows with unknown types are returned unchanged; the
// runner will record their execution failure.
func (f *CohortRefreshTaskFactory) ResolveTask(t Task) Task {
	if t.Type() != TaskTypeCohortRefresh {
		return t
	}

	var payload cohortRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		f.logger.Error("failed to unmarshal recovered task payload",
			"error", err, "task_id", t.ID())
		return t
	}

	return &CohortRefreshTask{
		id:        t.ID(),
		pathID:    payload.PathID,
		refresher: f.refresher,
		logger:    f.logger,
		status:    t.Status(),
	}
}
