package handles

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/socialgenius/browserauth/internal/executor"
	"github.com/socialgenius/browserauth/server/common"
)

const defaultLoginURL = "https://accounts.google.com/ServiceLogin"

// GoogleAuthRequest is the submission body for a login job. Timeout is in
// milliseconds, matching the callers of the original deployment.
type GoogleAuthRequest struct {
	Email           string         `json:"email" binding:"required"`
	Password        string         `json:"password" binding:"required"`
	URL             string         `json:"url"`
	BusinessID      string         `json:"businessId" binding:"required"`
	Timeout         int            `json:"timeout"`
	AdvancedOptions map[string]any `json:"advanced_options"`
	ReuseSession    *bool          `json:"reuseSession"`
}

// GoogleAuth accepts a login job and returns immediately; clients poll the
// task endpoint for the outcome.
func (h *Handler) GoogleAuth(c *gin.Context) {
	var req GoogleAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorStrResp(c, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		req.URL = defaultLoginURL
	}

	var timeout time.Duration
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout) * time.Millisecond
	}

	opts := executor.DefaultOptions()
	if req.ReuseSession != nil {
		opts.ReuseSession = *req.ReuseSession
	}
	applyAdvancedOptions(&opts, req.AdvancedOptions)

	id := h.exec.Submit(executor.AuthRequest{
		Email:      req.Email,
		Password:   req.Password,
		URL:        req.URL,
		AccountKey: req.BusinessID,
		Timeout:    timeout,
		Options:    opts,
	})
	c.JSON(http.StatusOK, gin.H{"task_id": id, "status": "pending"})
}

// applyAdvancedOptions overlays the open options mapping onto the defaults.
// Unknown keys are ignored; the payload is collaborator input.
func applyAdvancedOptions(opts *executor.Options, raw map[string]any) {
	if raw == nil {
		return
	}
	if v, ok := raw["reuse_session"].(bool); ok {
		opts.ReuseSession = v
	}
	if v, ok := raw["persist_session"].(bool); ok {
		opts.PersistSession = v
	}
	if v, ok := raw["human_delay_min"].(float64); ok {
		opts.HumanDelayMin = int(v)
	}
	if v, ok := raw["human_delay_max"].(float64); ok {
		opts.HumanDelayMax = int(v)
	}
	if v, ok := raw["max_captcha_attempts"].(float64); ok {
		opts.MaxCaptchaAttempts = int(v)
	}
}
