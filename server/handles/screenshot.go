package handles

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/socialgenius/browserauth/pkg/utils"
	"github.com/socialgenius/browserauth/server/common"
)

// ListScreenshots lists the captured artifacts for one task.
func (h *Handler) ListScreenshots(c *gin.Context) {
	account := c.Param("account")
	taskID := c.Param("task")
	dir := filepath.Join(h.cfg.ScreenshotDir, filepath.Base(account), filepath.Base(taskID))

	entries, err := utils.ListDir(dir)
	if err != nil {
		common.ErrorStrResp(c, "No screenshots found for this task", http.StatusNotFound)
		return
	}
	var shots, htmlFiles []string
	for _, name := range entries {
		switch filepath.Ext(name) {
		case ".png":
			shots = append(shots, name)
		case ".html":
			htmlFiles = append(htmlFiles, name)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"business_id": account,
		"task_id":     taskID,
		"screenshots": shots,
		"html_files":  htmlFiles,
		"directory":   dir,
	})
}

// GetScreenshot serves one captured PNG.
func (h *Handler) GetScreenshot(c *gin.Context) {
	account := filepath.Base(c.Param("account"))
	taskID := filepath.Base(c.Param("task"))
	name := filepath.Base(c.Param("name"))
	path := filepath.Join(h.cfg.ScreenshotDir, account, taskID, name)
	if !utils.Exists(path) {
		common.ErrorStrResp(c, "Screenshot not found", http.StatusNotFound)
		return
	}
	c.FileAttachment(path, fmt.Sprintf("%s_%s", taskID, name))
}
