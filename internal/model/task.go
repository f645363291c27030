package model

import "time"

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// TaskResult is the structured outcome written exactly once when a task
// reaches a terminal state. A classified login failure still produces a
// "completed" task; Success distinguishes the two.
type TaskResult struct {
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	ErrorCode      string `json:"error_code,omitempty"`
	Message        string `json:"message,omitempty"`
	Screenshot     string `json:"screenshot,omitempty"`
	ScreenshotsDir string `json:"screenshots_dir,omitempty"`
	SessionSaved   bool   `json:"session_saved,omitempty"`
	CookiesCount   int    `json:"cookies_count,omitempty"`
	Details        string `json:"details,omitempty"`
}

// Task is one submitted automation job. Status moves monotonically from
// pending into exactly one terminal state; CompletedAt and Result are set on
// that transition and never mutated afterwards.
type Task struct {
	ID          string      `json:"task_id"`
	Status      TaskStatus  `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Result      *TaskResult `json:"result,omitempty"`
	Message     string      `json:"message,omitempty"`
}
