package handles

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/socialgenius/browserauth/internal/db"
	"github.com/socialgenius/browserauth/server/common"
)

type queryRequest struct {
	Task string `json:"task"`
}

// Query runs one ad-hoc automation instruction synchronously.
func (h *Handler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Task == "" {
		common.ErrorStrResp(c, "Task cannot be empty", http.StatusBadRequest)
		return
	}
	result, err := h.exec.RunQuery(c.Request.Context(), req.Task)
	if err != nil {
		common.ErrorResp(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// Health is the liveness probe. Kept minimal; its access logs are sampled.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// BrowserStatus reports service uptime and the number of stored sessions.
func (h *Handler) BrowserStatus(c *gin.Context) {
	count, err := db.CountSessionRecords()
	if err != nil {
		log.Warnf("failed to count sessions: %+v", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":                "active",
		"active_sessions_count": count,
		"uptime_seconds":        int64(time.Since(h.started).Seconds()),
	})
}
