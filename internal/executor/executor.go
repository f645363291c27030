// Package executor runs submitted automation jobs to completion against the
// agent capability, under a hard wall-clock deadline, and owns every task's
// terminal transition.
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/socialgenius/browserauth/internal/agent"
	"github.com/socialgenius/browserauth/internal/classify"
	"github.com/socialgenius/browserauth/internal/conf"
	"github.com/socialgenius/browserauth/internal/model"
	"github.com/socialgenius/browserauth/internal/progress"
	"github.com/socialgenius/browserauth/internal/session"
	"github.com/socialgenius/browserauth/internal/task"
)

const maxResultDetails = 500

// loggedInIndicators mark a still-authenticated account page during session
// revalidation.
var loggedInIndicators = []string{
	"logged in",
	"google account",
	"personal info",
	"you're signed in",
	"welcome to your account",
}

// Executor runs one job at a time against the shared browsing context.
type Executor struct {
	cfg      *conf.Config
	tasks    *task.Store
	sessions *session.Store
	agent    agent.Agent
	browser  agent.BrowsingContext

	// browserMu serializes every use of the shared browsing context.
	// Concurrent jobs would otherwise race on the same underlying browser.
	browserMu sync.Mutex
}

func New(cfg *conf.Config, tasks *task.Store, sessions *session.Store, ag agent.Agent, bc agent.BrowsingContext) *Executor {
	return &Executor{
		cfg:      cfg,
		tasks:    tasks,
		sessions: sessions,
		agent:    ag,
		browser:  bc,
	}
}

// Submit registers a pending task and schedules the run detached from the
// caller. It never blocks on execution.
func (e *Executor) Submit(req AuthRequest) string {
	t := e.tasks.Create()
	log.Infof("starting Google authentication task %s for account %s", t.ID, req.AccountKey)
	go e.run(t.ID, req)
	return t.ID
}

func (e *Executor) run(taskID string, req AuthRequest) {
	traceID := fmt.Sprintf("auth-%d-%s", time.Now().Unix(), strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("%v", r)
			log.Errorf("[TRACE:%s] authentication task %s failed with panic: %s", traceID, taskID, msg)
			e.fail(taskID, classify.CodeAuthError,
				fmt.Sprintf("Authentication task failed: %s", msg),
				fmt.Sprintf("Error during authentication: %s", msg))
		}
	}()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}
	log.Infof("[TRACE:%s] authentication parameters: url=%s timeout=%s reuse_session=%t",
		traceID, req.URL, timeout, req.Options.ReuseSession)

	tracker := progress.NewTracker(traceID)
	instruction := BuildAuthInstruction(req)

	shotsDir := filepath.Join(e.cfg.ScreenshotDir, req.AccountKey, taskID)
	if err := os.MkdirAll(shotsDir, 0o755); err != nil {
		log.Warnf("[TRACE:%s] failed to create screenshots directory: %v", traceID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// The periodic progress logger is tied to ctx, so the deferred cancel
	// stops it on every exit path.
	go e.logPeriodicProgress(ctx, traceID)

	e.browserMu.Lock()
	defer e.browserMu.Unlock()

	if req.Options.ReuseSession {
		if rec, err := e.sessions.Load(req.AccountKey); err != nil {
			log.Warnf("[TRACE:%s] failed to load stored session: %v", traceID, err)
		} else if rec.Valid() {
			if e.sessions.Stale(rec) {
				log.Infof("[TRACE:%s] stored session for %s is stale, applying anyway", traceID, req.AccountKey)
			}
			_ = e.sessions.Apply(ctx, rec, e.browser)
		}
	}

	if ms, ok := e.agent.(agent.MessageStream); ok {
		ch, stop := ms.Subscribe()
		defer stop()
		go func() {
			for m := range ch {
				tracker.OnMessage(m)
			}
		}()
		log.Infof("[TRACE:%s] subscribed to agent message stream", traceID)
	} else {
		log.Warnf("[TRACE:%s] agent does not stream messages - progress tracking limited", traceID)
	}

	e.capture(ctx, tracker, shotsDir, "initial")

	type runOutcome struct {
		res agent.Result
		err error
	}
	done := make(chan runOutcome, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- runOutcome{err: errors.Errorf("agent panicked: %v", r)}
			}
		}()
		res, err := e.agent.Run(ctx, instruction)
		done <- runOutcome{res, err}
	}()

	var res agent.Result
	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) {
				log.Warnf("[TRACE:%s] authentication task %s timed out after %s", traceID, taskID, timeout)
				e.fail(taskID, classify.CodeTimeout, "Authentication task timed out", "Authentication task timed out")
				return
			}
			tracker.SetExecutionError(out.err.Error())
			log.Errorf("[TRACE:%s] authentication task execution error: %v", traceID, out.err)
			e.capture(ctx, tracker, shotsDir, "error_state")
			e.fail(taskID, classify.CodeAuthError,
				fmt.Sprintf("Authentication task failed: %s", out.err.Error()),
				fmt.Sprintf("Error during authentication: %s", out.err.Error()))
			return
		}
		res = out.res
	case <-ctx.Done():
		// The in-flight run is abandoned; if it ever lands, the store
		// rejects its write because the task is already terminal.
		log.Warnf("[TRACE:%s] authentication task %s timed out after %s", traceID, taskID, timeout)
		e.fail(taskID, classify.CodeTimeout, "Authentication task timed out", "Authentication task timed out")
		return
	}
	log.Infof("[TRACE:%s] authentication task completed in %.2f seconds", traceID, time.Since(start).Seconds())

	e.capture(ctx, tracker, shotsDir, "completed")
	e.capturePageHTML(ctx, shotsDir)

	finalShot := filepath.Join(shotsDir, "final_state.png")
	if err := e.browser.Screenshot(ctx, finalShot); err != nil {
		log.Warnf("[TRACE:%s] failed to capture final screenshot: %v", traceID, err)
		finalShot = ""
	}

	outcome := classify.Classify(res.FinalText)
	if outcome.Success {
		log.Infof("[TRACE:%s] authentication successful for task %s, account %s", traceID, taskID, req.AccountKey)
		result := &model.TaskResult{
			Success:        true,
			Message:        "Successfully authenticated with Google",
			Screenshot:     finalShot,
			ScreenshotsDir: shotsDir,
		}
		if req.Options.PersistSession {
			e.persistSession(ctx, traceID, req.AccountKey, result)
		} else {
			log.Infof("[TRACE:%s] session persistence disabled for account %s", traceID, req.AccountKey)
		}
		e.complete(taskID, result, "")
		return
	}

	details := res.FinalText
	if len(details) > maxResultDetails {
		details = details[:maxResultDetails]
	}
	log.Infof("[TRACE:%s] authentication task %s failed with code %s", traceID, taskID, outcome.Code)
	e.complete(taskID, &model.TaskResult{
		Success:        false,
		Error:          outcome.Message,
		ErrorCode:      outcome.Code,
		Message:        outcome.Message,
		Screenshot:     finalShot,
		ScreenshotsDir: shotsDir,
		Details:        details,
	}, "")
}

// persistSession extracts and saves session artifacts after a classified
// success. Failures degrade gracefully; the session simply isn't refreshed.
func (e *Executor) persistSession(ctx context.Context, traceID, accountKey string, result *model.TaskResult) {
	rec, err := e.sessions.Extract(ctx, e.browser)
	if err != nil {
		log.Errorf("[TRACE:%s] error extracting session for account %s: %v", traceID, accountKey, err)
		return
	}
	if !rec.Valid() {
		log.Warnf("[TRACE:%s] extracted session for account %s has no cookies, not saving", traceID, accountKey)
		return
	}
	rec.AccountKey = accountKey
	if err := e.sessions.Save(rec); err != nil {
		log.Errorf("[TRACE:%s] error saving session for account %s: %v", traceID, accountKey, err)
		return
	}
	result.SessionSaved = true
	result.CookiesCount = len(rec.Cookies)
}

// complete writes the terminal record, discarding a late result if the task
// already reached a terminal state (terminate raced the run).
func (e *Executor) complete(taskID string, result *model.TaskResult, message string) {
	if err := e.tasks.Complete(taskID, model.TaskCompleted, result, message); err != nil {
		log.Debugf("discarding late result for task %s: %v", taskID, err)
	}
}

func (e *Executor) fail(taskID, code, errMsg, message string) {
	result := &model.TaskResult{Success: false, Error: errMsg, ErrorCode: code}
	if err := e.tasks.Complete(taskID, model.TaskFailed, result, message); err != nil {
		log.Debugf("discarding late failure for task %s: %v", taskID, err)
	}
}

// logPeriodicProgress emits a heartbeat while a job runs. It stops when ctx
// is cancelled, which the run guarantees on every exit path.
func (e *Executor) logPeriodicProgress(ctx context.Context, traceID string) {
	ticker := time.NewTicker(e.cfg.ProgressLogInterval)
	defer ticker.Stop()
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			log.Infof("[TRACE:%s] periodic progress logging stopped", traceID)
			return
		case <-ticker.C:
			ticks++
			log.Infof("[TRACE:%s] authentication in progress - %s elapsed",
				traceID, time.Duration(ticks)*e.cfg.ProgressLogInterval)
		}
	}
}

// capture takes a best-effort screenshot at a named point in the flow.
func (e *Executor) capture(ctx context.Context, tracker *progress.Tracker, dir, point string) {
	tracker.MarkPoint(point)
	path := filepath.Join(dir, point+".png")
	if err := e.browser.Screenshot(ctx, path); err != nil {
		log.Warnf("failed to capture screenshot at %q: %v", point, err)
		return
	}
	log.Debugf("captured screenshot at %q", point)
}

// capturePageHTML saves the final DOM alongside the screenshots for
// debugging. Best-effort.
func (e *Executor) capturePageHTML(ctx context.Context, dir string) {
	html, err := e.browser.PageHTML(ctx)
	if err != nil {
		log.Warnf("failed to capture page HTML: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(dir, "page_structure.html"), []byte(html), 0o644); err != nil {
		log.Warnf("failed to write page HTML: %v", err)
	}
}

// Terminate flips a still-pending task to failed/TERMINATED. It does not
// interrupt an in-flight run; the run's eventual completion is rejected by
// the store once the task is terminal. The returned bool reports whether
// this call performed the termination.
func (e *Executor) Terminate(id string) (model.Task, bool, error) {
	t, ok := e.tasks.Get(id)
	if !ok {
		return model.Task{}, false, task.ErrTaskNotFound
	}
	if t.Status.Terminal() {
		return t, false, nil
	}
	result := &model.TaskResult{
		Success:   false,
		Error:     "Task terminated by user",
		ErrorCode: classify.CodeTerminated,
	}
	if err := e.tasks.Complete(id, model.TaskFailed, result, "Task terminated by user"); err != nil {
		// lost the race with the run finishing
		t, _ = e.tasks.Get(id)
		return t, false, nil
	}
	log.Infof("task %s terminated by user request", id)
	t, _ = e.tasks.Get(id)
	return t, true, nil
}

// RunQuery executes one ad-hoc instruction synchronously against the shared
// browser.
func (e *Executor) RunQuery(ctx context.Context, instruction string) (string, error) {
	e.browserMu.Lock()
	defer e.browserMu.Unlock()
	res, err := e.agent.Run(ctx, instruction)
	if err != nil {
		return "", err
	}
	return res.FinalText, nil
}

// ValidationResult is the outcome of a synchronous session revalidation.
type ValidationResult struct {
	Valid      bool   `json:"valid"`
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
}

// ValidateSession re-runs a lightweight check job against the stored session
// for an account. On success the refreshed session is captured and saved,
// tagged with the caller's session id when one was supplied.
func (e *Executor) ValidateSession(ctx context.Context, accountKey, sessionID string) ValidationResult {
	rec, err := e.sessions.Load(accountKey)
	if err != nil {
		log.Errorf("error validating session for account %s: %v", accountKey, err)
		return ValidationResult{Valid: false, Error: err.Error(), Message: "Error validating session"}
	}
	if !rec.Valid() {
		return ValidationResult{Valid: false, Message: "No session found for this account"}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ValidateTimeout)
	defer cancel()

	e.browserMu.Lock()
	defer e.browserMu.Unlock()

	if err := e.sessions.Apply(ctx, rec, e.browser); err != nil {
		return ValidationResult{Valid: false, Message: "Failed to apply session to browser"}
	}

	res, err := e.agent.Run(ctx, validateInstruction)
	if err != nil {
		log.Errorf("error validating session for account %s: %v", accountKey, err)
		return ValidationResult{Valid: false, Error: err.Error(), Message: "Error validating session"}
	}

	shot := filepath.Join(e.cfg.ScreenshotDir, "session_validation",
		fmt.Sprintf("%s_%s.png", accountKey, time.Now().Format("20060102_150405")))
	if err := e.browser.Screenshot(ctx, shot); err != nil {
		log.Warnf("failed to capture validation screenshot: %v", err)
		shot = ""
	}

	final := strings.ToLower(res.FinalText)
	loggedIn := false
	for _, indicator := range loggedInIndicators {
		if strings.Contains(final, indicator) {
			loggedIn = true
			break
		}
	}
	if !loggedIn {
		return ValidationResult{Valid: false, Message: "Session is not valid (not logged in)", Screenshot: shot}
	}

	if updated, err := e.sessions.Extract(ctx, e.browser); err != nil {
		log.Warnf("failed to refresh session for account %s: %v", accountKey, err)
	} else if updated.Valid() {
		updated.AccountKey = accountKey
		if sessionID != "" {
			updated.Metadata = map[string]string{"associated_session_id": sessionID}
			log.Infof("associated session id %s... with account %s", truncate(sessionID, 8), accountKey)
		}
		if err := e.sessions.Save(updated); err != nil {
			log.Errorf("error saving refreshed session for account %s: %v", accountKey, err)
		}
	}
	return ValidationResult{Valid: true, Message: "Session is valid and working", Screenshot: shot}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
