package handles

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/socialgenius/browserauth/internal/model"
	"github.com/socialgenius/browserauth/internal/task"
	"github.com/socialgenius/browserauth/server/common"
)

// TaskStatusResponse is the poll body for one task.
type TaskStatusResponse struct {
	TaskID      string            `json:"task_id"`
	Status      model.TaskStatus  `json:"status"`
	Result      *model.TaskResult `json:"result,omitempty"`
	Message     string            `json:"message,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// TaskStatus returns the current state of a task; unknown ids are a distinct
// 404, not an empty pending record.
func (h *Handler) TaskStatus(c *gin.Context) {
	t, ok := h.tasks.Get(c.Param("id"))
	if !ok {
		common.ErrorStrResp(c, "Task not found", http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, TaskStatusResponse{
		TaskID:      t.ID,
		Status:      t.Status,
		Result:      t.Result,
		Message:     t.Message,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	})
}

// Terminate marks a still-pending task as terminated; a task that already
// reached a terminal state is reported unchanged.
func (h *Handler) Terminate(c *gin.Context) {
	t, terminated, err := h.exec.Terminate(c.Param("id"))
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			common.ErrorStrResp(c, "Task not found", http.StatusNotFound)
			return
		}
		common.ErrorResp(c, err, http.StatusInternalServerError)
		return
	}
	if terminated {
		c.JSON(http.StatusOK, gin.H{"message": "Task terminated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Task is already %s", t.Status)})
}
