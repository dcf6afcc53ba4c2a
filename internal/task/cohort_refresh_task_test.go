package task

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recoveredRow mimics a task row loaded from the database: payload and
// type without behavior.
type recoveredRow struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	status   TaskStatus
}

func (r *recoveredRow) ID() uuid.UUID      { return r.id }
func (r *recoveredRow) Type() string       { return r.taskType }
func (r *recoveredRow) Payload() []byte    { return r.payload }
func (r *recoveredRow) Status() TaskStatus { return r.status }
func (r *recoveredRow) Execute(context.Context) error {
	return errors.New("row has no executor")
}

// mockRefresher records RefreshCohort calls and returns a configured error.
type mockRefresher struct {
	refreshFn func(ctx context.Context, pathID uuid.UUID) error
	calls     []uuid.UUID
}

func (m *mockRefresher) RefreshCohort(ctx context.Context, pathID uuid.UUID) error {
	m.calls = append(m.calls, pathID)
	if m.refreshFn != nil {
		return m.refreshFn(ctx, pathID)
	}
	return nil
}

func TestNewCohortRefreshTask(t *testing.T) {
	t.Run("creates a valid task", func(t *testing.T) {
		pathID := uuid.New()
		task, err := NewCohortRefreshTask(pathID, &mockRefresher{}, testLogger())
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, task.ID())
		assert.Equal(t, TaskTypeCohortRefresh, task.Type())
		assert.Equal(t, TaskStatusPending, task.Status())

		var payload struct {
			PathID uuid.UUID `json:"path_id"`
		}
		require.NoError(t, json.Unmarshal(task.Payload(), &payload))
		assert.Equal(t, pathID, payload.PathID)
	})

	t.Run("rejects nil refresher", func(t *testing.T) {
		_, err := NewCohortRefreshTask(uuid.New(), nil, testLogger())
		assert.ErrorIs(t, err, ErrNilRefresher)
	})

	t.Run("rejects empty path ID", func(t *testing.T) {
		_, err := NewCohortRefreshTask(uuid.Nil, &mockRefresher{}, testLogger())
		assert.ErrorIs(t, err, ErrEmptyPathID)
	})
}

func TestCohortRefreshTaskExecute(t *testing.T) {
	t.Run("successful refresh", func(t *testing.T) {
		pathID := uuid.New()
		refresher := &mockRefresher{}

		task, err := NewCohortRefreshTask(pathID, refresher, testLogger())
		require.NoError(t, err)

		require.NoError(t, task.Execute(context.Background()))
		assert.Equal(t, TaskStatusCompleted, task.Status())
		assert.Equal(t, []uuid.UUID{pathID}, refresher.calls)
	})

	t.Run("failed refresh", func(t *testing.T) {
		refreshErr := errors.New("cohort query failed")
		refresher := &mockRefresher{
			refreshFn: func(context.Context, uuid.UUID) error { return refreshErr },
		}

		task, err := NewCohortRefreshTask(uuid.New(), refresher, testLogger())
		require.NoError(t, err)

		err = task.Execute(context.Background())
		assert.ErrorIs(t, err, refreshErr)
		assert.Equal(t, TaskStatusFailed, task.Status())
	})
}

func TestCohortRefreshTaskFactory(t *testing.T) {
	t.Run("creates tasks bound to the refresher", func(t *testing.T) {
		refresher := &mockRefresher{}
		factory := NewCohortRefreshTaskFactory(refresher, testLogger())

		task, err := factory.CreateTask(uuid.New())
		require.NoError(t, err)
		assert.Equal(t, TaskTypeCohortRefresh, task.Type())
	})

	t.Run("resolves a recovered row to an executable task", func(t *testing.T) {
		pathID := uuid.New()
		refresher := &mockRefresher{}
		factory := NewCohortRefreshTaskFactory(refresher, testLogger())

		payload, err := json.Marshal(cohortRefreshPayload{PathID: pathID})
		require.NoError(t, err)

		row := &recoveredRow{
			id:       uuid.New(),
			taskType: TaskTypeCohortRefresh,
			payload:  payload,
			status:   TaskStatusPending,
		}

		resolved := factory.ResolveTask(row)
		require.IsType(t, &CohortRefreshTask{}, resolved)
		assert.Equal(t, row.ID(), resolved.ID())

		require.NoError(t, resolved.Execute(context.Background()))
		assert.Equal(t, []uuid.UUID{pathID}, refresher.calls)
	})

	t.Run("leaves unknown task types unchanged", func(t *testing.T) {
		factory := NewCohortRefreshTaskFactory(&mockRefresher{}, testLogger())

		row := &recoveredRow{
			id:       uuid.New(),
			taskType: "unknown_type",
			status:   TaskStatusPending,
		}

		resolved := factory.ResolveTask(row)
		assert.Same(t, row, resolved)
	})
}
