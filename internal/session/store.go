// Package session caches per-account browser authentication artifacts so
// repeat jobs for the same account can skip re-authentication.
package session

import (
	"context"
	"time"

	"github.com/OpenListTeam/go-cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/socialgenius/browserauth/internal/agent"
	"github.com/socialgenius/browserauth/internal/db"
	"github.com/socialgenius/browserauth/internal/model"
)

// ErrEmptySession marks a record with no cookies; such a record is invalid
// and is never stored or applied.
var ErrEmptySession = errors.New("session has no cookies")

// Store is the two-tier session cache: an in-memory index over the durable
// table. The memory tier is authoritative when populated; the database is
// the source of truth across restarts.
type Store struct {
	mem    cache.ICache[*model.SessionRecord]
	maxAge time.Duration
}

func NewStore(maxAge time.Duration) *Store {
	return &Store{
		mem:    cache.NewMemCache(cache.WithShards[*model.SessionRecord](8)),
		maxAge: maxAge,
	}
}

// Save writes both tiers synchronously before reporting success, durable
// tier first so a crash in between leaves the source of truth intact.
func (s *Store) Save(rec *model.SessionRecord) error {
	if !rec.Valid() {
		return ErrEmptySession
	}
	if rec.LastUpdated.IsZero() {
		rec.LastUpdated = time.Now()
	}
	if err := db.UpsertSessionRecord(rec); err != nil {
		return errors.Wrapf(err, "failed to persist session for %s", rec.AccountKey)
	}
	s.mem.Set(rec.AccountKey, rec)
	storageItems := len(rec.LocalStorage) + len(rec.SessionStorage)
	log.Infof("saved browser session for account %s with %d cookies, %d storage items",
		rec.AccountKey, len(rec.Cookies), storageItems)
	return nil
}

// Load returns the cached session, falling back to the database and
// repopulating the memory tier on a disk hit. A missing session is
// (nil, nil).
func (s *Store) Load(accountKey string) (*model.SessionRecord, error) {
	if rec, ok := s.mem.Get(accountKey); ok {
		log.Debugf("loaded browser session from memory for account %s", accountKey)
		return rec, nil
	}
	rec, err := db.GetSessionRecord(accountKey)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		log.Debugf("no saved browser session found for account %s", accountKey)
		return nil, nil
	}
	s.mem.Set(accountKey, rec)
	log.Infof("loaded browser session from disk for account %s", accountKey)
	return rec, nil
}

// Stale reports whether the record is past the retention window. Staleness
// is advisory: stale records are reported to callers, not purged.
func (s *Store) Stale(rec *model.SessionRecord) bool {
	return rec != nil && time.Since(rec.LastUpdated) > s.maxAge
}

// Forget drops the memory tier entry for an account; the durable tier is
// untouched.
func (s *Store) Forget(accountKey string) {
	s.mem.Del(accountKey)
}

// Apply pushes the record's cookies and storage into the browsing context.
// Each item is best-effort: an item-level failure is logged and skipped.
func (s *Store) Apply(ctx context.Context, rec *model.SessionRecord, bc agent.BrowsingContext) error {
	if !rec.Valid() {
		return ErrEmptySession
	}
	for _, c := range rec.Cookies {
		if err := bc.AddCookie(ctx, c); err != nil {
			log.Warnf("error setting cookie %s: %v", c.Name, err)
		}
	}
	for k, v := range rec.LocalStorage {
		if err := bc.SetLocalStorageItem(ctx, k, v); err != nil {
			log.Warnf("error setting localStorage item %s: %v", k, err)
		}
	}
	for k, v := range rec.SessionStorage {
		if err := bc.SetSessionStorageItem(ctx, k, v); err != nil {
			log.Warnf("error setting sessionStorage item %s: %v", k, err)
		}
	}
	log.Infof("applied browser session with %d cookies", len(rec.Cookies))
	return nil
}

// Extract captures the current session state from the browsing context.
// Storage extraction degrades to empty maps; a cookie failure propagates
// since cookies are the record's validity signal.
func (s *Store) Extract(ctx context.Context, bc agent.BrowsingContext) (*model.SessionRecord, error) {
	cookies, err := bc.Cookies(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract cookies")
	}
	local, err := bc.LocalStorage(ctx)
	if err != nil {
		log.Warnf("error getting localStorage: %v", err)
		local = map[string]string{}
	}
	sessionStorage, err := bc.SessionStorage(ctx)
	if err != nil {
		log.Warnf("error getting sessionStorage: %v", err)
		sessionStorage = map[string]string{}
	}
	return &model.SessionRecord{
		Cookies:        cookies,
		LocalStorage:   local,
		SessionStorage: sessionStorage,
		LastUpdated:    time.Now(),
	}, nil
}
