package agent

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/socialgenius/browserauth/internal/model"
)

const controlAttempts = 3

// Remote drives an automation sidecar over HTTP. A run is invoked exactly
// once per call; only the idempotent browsing-context control calls are
// retried on transport errors.
type Remote struct {
	client *resty.Client
}

var (
	_ Agent           = (*Remote)(nil)
	_ BrowsingContext = (*Remote)(nil)
)

func NewRemote(baseURL string) *Remote {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	return &Remote{client: client}
}

type runRequest struct {
	Instruction string `json:"instruction"`
}

func (r *Remote) Run(ctx context.Context, instruction string) (Result, error) {
	var out Result
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(runRequest{Instruction: instruction}).
		SetResult(&out).
		Post("/v1/run")
	if err != nil {
		return Result{}, errors.Wrap(err, "agent run request failed")
	}
	if resp.IsError() {
		return Result{}, errors.Errorf("agent run returned %s: %s", resp.Status(), resp.String())
	}
	return out, nil
}

// control performs one idempotent sidecar call with retries on transport
// errors. HTTP-level errors are not retried; the sidecar state will not
// change by asking again.
func (r *Remote) control(ctx context.Context, call func() (*resty.Response, error)) error {
	return retry.Do(
		func() error {
			resp, err := call()
			if err != nil {
				if ctx.Err() != nil {
					return retry.Unrecoverable(err)
				}
				return err
			}
			if resp.IsError() {
				return retry.Unrecoverable(errors.Errorf("sidecar returned %s: %s", resp.Status(), resp.String()))
			}
			return nil
		},
		retry.Attempts(controlAttempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

func (r *Remote) Cookies(ctx context.Context) ([]model.Cookie, error) {
	var cookies []model.Cookie
	err := r.control(ctx, func() (*resty.Response, error) {
		return r.client.R().SetContext(ctx).SetResult(&cookies).Get("/v1/cookies")
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch cookies")
	}
	return cookies, nil
}

func (r *Remote) AddCookie(ctx context.Context, c model.Cookie) error {
	err := r.control(ctx, func() (*resty.Response, error) {
		return r.client.R().SetContext(ctx).SetBody([]model.Cookie{c}).Post("/v1/cookies")
	})
	return errors.Wrapf(err, "failed to add cookie %s", c.Name)
}

func (r *Remote) LocalStorage(ctx context.Context) (map[string]string, error) {
	return r.storage(ctx, "local")
}

func (r *Remote) SessionStorage(ctx context.Context) (map[string]string, error) {
	return r.storage(ctx, "session")
}

func (r *Remote) storage(ctx context.Context, kind string) (map[string]string, error) {
	items := map[string]string{}
	err := r.control(ctx, func() (*resty.Response, error) {
		return r.client.R().SetContext(ctx).SetResult(&items).Get("/v1/storage/" + kind)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s storage", kind)
	}
	return items, nil
}

type storageItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (r *Remote) SetLocalStorageItem(ctx context.Context, key, value string) error {
	return r.setStorageItem(ctx, "local", key, value)
}

func (r *Remote) SetSessionStorageItem(ctx context.Context, key, value string) error {
	return r.setStorageItem(ctx, "session", key, value)
}

func (r *Remote) setStorageItem(ctx context.Context, kind, key, value string) error {
	err := r.control(ctx, func() (*resty.Response, error) {
		return r.client.R().SetContext(ctx).SetBody(storageItem{Key: key, Value: value}).Post("/v1/storage/" + kind)
	})
	return errors.Wrapf(err, "failed to set %s storage item %s", kind, key)
}

// Screenshot fetches the current page as PNG and writes it to path.
func (r *Remote) Screenshot(ctx context.Context, path string) error {
	var body []byte
	err := r.control(ctx, func() (*resty.Response, error) {
		resp, err := r.client.R().SetContext(ctx).Get("/v1/screenshot")
		if err == nil {
			body = resp.Body()
		}
		return resp, err
	})
	if err != nil {
		return errors.Wrap(err, "failed to capture screenshot")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrapf(os.WriteFile(path, body, 0o644), "failed to write screenshot %s", path)
}

type pageResponse struct {
	HTML string `json:"html"`
}

func (r *Remote) PageHTML(ctx context.Context) (string, error) {
	var page pageResponse
	err := r.control(ctx, func() (*resty.Response, error) {
		return r.client.R().SetContext(ctx).SetResult(&page).Get("/v1/page")
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch page html")
	}
	return page.HTML, nil
}
