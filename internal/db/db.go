package db

import (
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/socialgenius/browserauth/internal/model"
)

var db *gorm.DB

// Init opens the sqlite database at path and migrates the session table.
func Init(path string) error {
	d, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to open database at %s", path)
	}
	if err := d.AutoMigrate(&model.SessionRow{}); err != nil {
		return errors.Wrap(err, "failed to migrate session records")
	}
	db = d
	return nil
}
