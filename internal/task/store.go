package task

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/socialgenius/browserauth/internal/model"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskFinished = errors.New("task already finished")
)

// Store owns all task records. It is constructed once at startup and
// injected into the executor and handlers; finished records leave the store
// only through Sweep.
type Store struct {
	mu        sync.Mutex
	tasks     map[string]*model.Task
	retention time.Duration
	now       func() time.Time
}

func NewStore(retention time.Duration) *Store {
	return &Store{
		tasks:     make(map[string]*model.Task),
		retention: retention,
		now:       time.Now,
	}
}

// Create registers a new pending task and returns a snapshot of it.
func (s *Store) Create() model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &model.Task{
		ID:        uuid.New().String(),
		Status:    model.TaskPending,
		CreatedAt: s.now(),
	}
	s.tasks[t.ID] = t
	return *t
}

// Get returns a snapshot of the task. Finished tasks past the retention
// window are swept before the lookup.
func (s *Store) Get(id string) (model.Task, bool) {
	s.Sweep()
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return *t, true
}

// Complete moves a task into a terminal state exactly once. A second attempt
// is rejected with ErrTaskFinished so a late result from an abandoned or
// terminated run cannot clobber the recorded outcome.
func (s *Store) Complete(id string, status model.TaskStatus, result *model.TaskResult, message string) error {
	if !status.Terminal() {
		return errors.Errorf("status %q is not terminal", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if t.Status.Terminal() {
		return ErrTaskFinished
	}
	now := s.now()
	t.Status = status
	t.CompletedAt = &now
	t.Result = result
	if message != "" {
		t.Message = message
	}
	return nil
}

// Sweep drops finished tasks whose completion time is older than the
// retention window. Pending tasks are never touched.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.retention)
	for id, t := range s.tasks {
		if t.Status.Terminal() && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			delete(s.tasks, id)
			log.Debugf("swept finished task %s", id)
		}
	}
}
