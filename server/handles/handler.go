package handles

import (
	"time"

	"github.com/socialgenius/browserauth/internal/conf"
	"github.com/socialgenius/browserauth/internal/executor"
	"github.com/socialgenius/browserauth/internal/session"
	"github.com/socialgenius/browserauth/internal/task"
)

// Handler carries the injected stores and executor for all endpoints.
type Handler struct {
	cfg      *conf.Config
	tasks    *task.Store
	sessions *session.Store
	exec     *executor.Executor
	started  time.Time
}

func New(cfg *conf.Config, tasks *task.Store, sessions *session.Store, exec *executor.Executor) *Handler {
	return &Handler{
		cfg:      cfg,
		tasks:    tasks,
		sessions: sessions,
		exec:     exec,
		started:  time.Now(),
	}
}
