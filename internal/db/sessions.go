package db

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/socialgenius/browserauth/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GetSessionRecord loads the persisted session for an account key. A missing
// row returns (nil, nil).
func GetSessionRecord(accountKey string) (*model.SessionRecord, error) {
	var row model.SessionRow
	if err := db.Where(&model.SessionRow{AccountKey: accountKey}).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to find session for %s", accountKey)
	}
	return rowToRecord(&row)
}

// UpsertSessionRecord writes the session row, last write wins per account.
func UpsertSessionRecord(rec *model.SessionRecord) error {
	row, err := recordToRow(rec)
	if err != nil {
		return err
	}
	return errors.WithStack(db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"cookies", "local_storage", "session_storage", "metadata", "last_updated", "updated_at"}),
	}).Create(row).Error)
}

// DeleteSessionRecord removes the persisted session for an account key.
func DeleteSessionRecord(accountKey string) error {
	return errors.WithStack(db.Where("account_key = ?", accountKey).Delete(&model.SessionRow{}).Error)
}

// CountSessionRecords returns the number of persisted sessions.
func CountSessionRecords() (int64, error) {
	var total int64
	if err := db.Model(&model.SessionRow{}).Count(&total).Error; err != nil {
		return 0, errors.WithStack(err)
	}
	return total, nil
}

func recordToRow(rec *model.SessionRecord) (*model.SessionRow, error) {
	cookies, err := json.MarshalToString(rec.Cookies)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal cookies")
	}
	local, err := json.MarshalToString(rec.LocalStorage)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal local storage")
	}
	session, err := json.MarshalToString(rec.SessionStorage)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal session storage")
	}
	meta, err := json.MarshalToString(rec.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal metadata")
	}
	return &model.SessionRow{
		AccountKey:     rec.AccountKey,
		Cookies:        cookies,
		LocalStorage:   local,
		SessionStorage: session,
		Metadata:       meta,
		LastUpdated:    rec.LastUpdated,
	}, nil
}

func rowToRecord(row *model.SessionRow) (*model.SessionRecord, error) {
	rec := &model.SessionRecord{
		AccountKey:  row.AccountKey,
		LastUpdated: row.LastUpdated,
	}
	if err := json.UnmarshalFromString(row.Cookies, &rec.Cookies); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal cookies for %s", row.AccountKey)
	}
	if err := json.UnmarshalFromString(row.LocalStorage, &rec.LocalStorage); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal local storage for %s", row.AccountKey)
	}
	if err := json.UnmarshalFromString(row.SessionStorage, &rec.SessionStorage); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal session storage for %s", row.AccountKey)
	}
	if row.Metadata != "" {
		if err := json.UnmarshalFromString(row.Metadata, &rec.Metadata); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal metadata for %s", row.AccountKey)
		}
	}
	return rec, nil
}
