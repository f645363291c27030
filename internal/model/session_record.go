package model

import "time"

// SessionRow is the persisted form of a SessionRecord, one row per account
// key. JSON-valued columns keep the schema stable while cookie attributes
// evolve.
type SessionRow struct {
	AccountKey     string    `gorm:"column:account_key;primaryKey;size:255" json:"account_key"`
	Cookies        string    `gorm:"column:cookies;type:text" json:"cookies"`
	LocalStorage   string    `gorm:"column:local_storage;type:text" json:"local_storage"`
	SessionStorage string    `gorm:"column:session_storage;type:text" json:"session_storage"`
	Metadata       string    `gorm:"column:metadata;type:text" json:"metadata"`
	LastUpdated    time.Time `gorm:"column:last_updated;index:idx_session_last_updated" json:"last_updated"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
}

func (SessionRow) TableName() string {
	return "session_records"
}
