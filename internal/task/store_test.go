package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialgenius/browserauth/internal/model"
)

func TestCreateAndGet(t *testing.T) {
	s := NewStore(time.Hour)
	created := s.Create()
	require.NotEmpty(t, created.ID)
	assert.Equal(t, model.TaskPending, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	got, ok := s.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, created.ID, got.ID)
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.Result)

	_, ok = s.Get("no-such-task")
	assert.False(t, ok)
}

func TestCompleteSetsTerminalFieldsOnce(t *testing.T) {
	s := NewStore(time.Hour)
	created := s.Create()

	result := &model.TaskResult{Success: true, Message: "ok"}
	require.NoError(t, s.Complete(created.ID, model.TaskCompleted, result, "done"))

	got, ok := s.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, model.TaskCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, result, got.Result)
	assert.Equal(t, "done", got.Message)

	// A second completion is rejected and the record is untouched.
	err := s.Complete(created.ID, model.TaskFailed, &model.TaskResult{Success: false}, "late")
	require.ErrorIs(t, err, ErrTaskFinished)

	again, _ := s.Get(created.ID)
	assert.Equal(t, got.Status, again.Status)
	assert.Equal(t, got.CompletedAt, again.CompletedAt)
	assert.Equal(t, got.Result, again.Result)
	assert.Equal(t, got.Message, again.Message)
}

func TestCompleteRejectsUnknownAndNonTerminal(t *testing.T) {
	s := NewStore(time.Hour)
	err := s.Complete("missing", model.TaskFailed, nil, "")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	created := s.Create()
	err = s.Complete(created.ID, model.TaskPending, nil, "")
	assert.Error(t, err)
	got, _ := s.Get(created.ID)
	assert.Equal(t, model.TaskPending, got.Status)
}

func TestSweepRetentionBoundary(t *testing.T) {
	s := NewStore(time.Hour)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	old := s.Create()
	fresh := s.Create()
	pending := s.Create()
	require.NoError(t, s.Complete(old.ID, model.TaskFailed, nil, ""))

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	require.NoError(t, s.Complete(fresh.ID, model.TaskCompleted, nil, ""))

	// 61 minutes after the first completion, 59 after the second.
	s.now = func() time.Time { return base.Add(61 * time.Minute) }
	s.Sweep()

	_, ok := s.Get(old.ID)
	assert.False(t, ok, "task finished 61m ago should be swept")
	_, ok = s.Get(fresh.ID)
	assert.True(t, ok, "task finished 59m ago should be retained")
	_, ok = s.Get(pending.ID)
	assert.True(t, ok, "pending tasks are never swept")
}

func TestGetSweepsOpportunistically(t *testing.T) {
	s := NewStore(time.Hour)
	base := time.Now()
	s.now = func() time.Time { return base }

	finished := s.Create()
	require.NoError(t, s.Complete(finished.ID, model.TaskCompleted, nil, ""))

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, ok := s.Get(finished.ID)
	assert.False(t, ok)
}
