// Package agent abstracts the browser-driving automation collaborator. The
// service treats it as a capability that runs one instruction to completion;
// its reasoning and anti-detection behavior live behind this boundary.
package agent

import (
	"context"

	"github.com/socialgenius/browserauth/internal/model"
)

// Result is the terminal output of one agent run.
type Result struct {
	FinalText string `json:"final_result"`
}

// Agent runs one automation instruction against the shared browser and
// blocks until the underlying automation finishes or ctx is cancelled.
type Agent interface {
	Run(ctx context.Context, instruction string) (Result, error)
}

// MessageStream is an optional capability: agents that emit intermediate
// output expose a subscription. Callers that find the capability absent run
// without progress telemetry; that is not an error.
type MessageStream interface {
	// Subscribe returns a channel of intermediate messages and a stop
	// function that closes it.
	Subscribe() (<-chan string, func())
}

// BrowsingContext is the session-relevant surface of the shared browser.
type BrowsingContext interface {
	Cookies(ctx context.Context) ([]model.Cookie, error)
	AddCookie(ctx context.Context, c model.Cookie) error
	LocalStorage(ctx context.Context) (map[string]string, error)
	SetLocalStorageItem(ctx context.Context, key, value string) error
	SessionStorage(ctx context.Context) (map[string]string, error)
	SetSessionStorageItem(ctx context.Context, key, value string) error
	Screenshot(ctx context.Context, path string) error
	PageHTML(ctx context.Context) (string, error)
}
