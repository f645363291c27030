package server

import (
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/socialgenius/browserauth/internal/conf"
	"github.com/socialgenius/browserauth/server/handles"
)

// Init wires middleware and routes onto the engine.
func Init(r *gin.Engine, cfg *conf.Config, h *handles.Handler) {
	r.Use(accessLogger(cfg.HealthLogInterval), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Session-ID"},
		AllowCredentials: true,
	}))

	r.GET("/health", h.Health)

	v1 := r.Group("/v1")
	v1.POST("/query", h.Query)
	v1.POST("/google-auth", h.GoogleAuth)
	v1.GET("/task/:id", h.TaskStatus)
	v1.GET("/terminate/:id", h.Terminate)
	v1.GET("/session/:account", h.SessionCheck)
	v1.GET("/session/:account/validate", h.SessionValidate)
	v1.GET("/screenshot/:account/:task", h.ListScreenshots)
	v1.GET("/screenshot/:account/:task/:name", h.GetScreenshot)
	v1.GET("/browser/status", h.BrowserStatus)
}

// accessLogger logs requests through logrus, sampling /health hits so the
// liveness probe does not flood the log: at most one line per interval, with
// a count of suppressed hits since the last report.
func accessLogger(healthInterval time.Duration) gin.HandlerFunc {
	var mu sync.Mutex
	var suppressed int
	var lastHealthLog time.Time
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if path == "/health" {
			mu.Lock()
			suppressed++
			if !lastHealthLog.IsZero() && time.Since(lastHealthLog) < healthInterval {
				mu.Unlock()
				return
			}
			n := suppressed - 1
			suppressed = 0
			lastHealthLog = time.Now()
			mu.Unlock()
			log.Infof("health check OK (suppressed %d logs since last report)", n)
			return
		}
		log.Infof("%s %s %d %s", c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
