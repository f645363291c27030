package model

import "time"

// Cookie mirrors a browser cookie as reported by the automation sidecar.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// SessionRecord is the per-account authentication state captured after a
// successful login. Cookies are the validity signal: a record with none is
// treated as absent.
type SessionRecord struct {
	AccountKey     string            `json:"account_key"`
	Cookies        []Cookie          `json:"cookies"`
	LocalStorage   map[string]string `json:"local_storage"`
	SessionStorage map[string]string `json:"session_storage"`
	LastUpdated    time.Time         `json:"last_updated"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

func (r *SessionRecord) Valid() bool {
	return r != nil && len(r.Cookies) > 0
}
