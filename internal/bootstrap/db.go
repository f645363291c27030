package bootstrap

import (
	"path/filepath"

	"github.com/socialgenius/browserauth/internal/conf"
	"github.com/socialgenius/browserauth/internal/db"
	"github.com/socialgenius/browserauth/pkg/utils"
)

// InitDB prepares the data directories and opens the session database.
func InitDB(cfg *conf.Config) error {
	if err := utils.CreateNestedDirectory(cfg.DataDir); err != nil {
		return err
	}
	if err := utils.CreateNestedDirectory(cfg.ScreenshotDir); err != nil {
		return err
	}
	return db.Init(filepath.Join(cfg.DataDir, "browserauth.db"))
}
