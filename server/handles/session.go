package handles

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SessionCheck reports whether a stored session exists for the account and
// whether it is past the staleness window. Staleness is advisory; the
// record is reported, not purged.
func (h *Handler) SessionCheck(c *gin.Context) {
	account := c.Param("account")
	rec, err := h.sessions.Load(account)
	if err != nil {
		log.Errorf("error checking session for account %s: %+v", account, err)
		c.JSON(http.StatusOK, gin.H{
			"has_session": false,
			"error":       err.Error(),
			"message":     "Error checking session",
		})
		return
	}
	if !rec.Valid() {
		c.JSON(http.StatusOK, gin.H{
			"has_session": false,
			"message":     "No session found for this account",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"has_session":   true,
		"cookies_count": len(rec.Cookies),
		"last_updated":  rec.LastUpdated,
		"is_expired":    h.sessions.Stale(rec),
		"message":       "Session exists",
	})
}

// SessionValidate synchronously re-runs a lightweight check job against the
// stored session. An external session id may arrive via the X-Session-ID
// header or a session cookie; it is attached to the refreshed record.
func (h *Handler) SessionValidate(c *gin.Context) {
	account := c.Param("account")
	sessionID := c.GetHeader("X-Session-ID")
	if sessionID == "" {
		if v, err := c.Cookie("session"); err == nil {
			sessionID = v
		} else if v, err := c.Cookie("sessionId"); err == nil {
			sessionID = v
		}
	}
	if sessionID != "" {
		log.Infof("session validation for account %s includes session id %s...", account, head(sessionID, 8))
	}
	c.JSON(http.StatusOK, h.exec.ValidateSession(c.Request.Context(), account, sessionID))
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
