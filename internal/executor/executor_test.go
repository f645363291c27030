package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialgenius/browserauth/internal/agent"
	"github.com/socialgenius/browserauth/internal/classify"
	"github.com/socialgenius/browserauth/internal/conf"
	"github.com/socialgenius/browserauth/internal/db"
	"github.com/socialgenius/browserauth/internal/model"
	"github.com/socialgenius/browserauth/internal/session"
	"github.com/socialgenius/browserauth/internal/task"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "executor-test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)
	if err := db.Init(filepath.Join(dir, "test.db")); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeAgent ignores ctx on purpose: the executor must enforce the deadline
// itself and abandon calls that outlive it.
type fakeAgent struct {
	mu     sync.Mutex
	result string
	err    error
	delay  time.Duration
	runs   int
}

func (a *fakeAgent) Run(_ context.Context, _ string) (agent.Result, error) {
	a.mu.Lock()
	a.runs++
	a.mu.Unlock()
	return a.finish()
}

func (a *fakeAgent) finish() (agent.Result, error) {
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	if a.err != nil {
		return agent.Result{}, a.err
	}
	return agent.Result{FinalText: a.result}, nil
}

func (a *fakeAgent) runCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runs
}

type panicAgent struct{}

func (panicAgent) Run(context.Context, string) (agent.Result, error) {
	panic("browser crashed")
}

// streamingAgent adds the optional message-stream capability.
type streamingAgent struct {
	fakeAgent
	messages []string
}

func (a *streamingAgent) Subscribe() (<-chan string, func()) {
	ch := make(chan string, len(a.messages))
	for _, m := range a.messages {
		ch <- m
	}
	return ch, func() { close(ch) }
}

type fakeBrowser struct {
	mu        sync.Mutex
	cookies   []model.Cookie
	local     map[string]string
	session   map[string]string
	cookieErr error
	html      string
}

func newFakeBrowser(cookies ...model.Cookie) *fakeBrowser {
	return &fakeBrowser{
		cookies: cookies,
		local:   map[string]string{},
		session: map[string]string{},
		html:    "<html></html>",
	}
}

func (f *fakeBrowser) Cookies(context.Context) ([]model.Cookie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cookieErr != nil {
		return nil, f.cookieErr
	}
	return append([]model.Cookie(nil), f.cookies...), nil
}

func (f *fakeBrowser) AddCookie(_ context.Context, c model.Cookie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cookies = append(f.cookies, c)
	return nil
}

func (f *fakeBrowser) LocalStorage(context.Context) (map[string]string, error) {
	return f.local, nil
}

func (f *fakeBrowser) SetLocalStorageItem(_ context.Context, k, v string) error {
	f.local[k] = v
	return nil
}

func (f *fakeBrowser) SessionStorage(context.Context) (map[string]string, error) {
	return f.session, nil
}

func (f *fakeBrowser) SetSessionStorageItem(_ context.Context, k, v string) error {
	f.session[k] = v
	return nil
}

func (f *fakeBrowser) Screenshot(_ context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("png"), 0o644)
}

func (f *fakeBrowser) PageHTML(context.Context) (string, error) { return f.html, nil }

func testConfig(t *testing.T) *conf.Config {
	t.Helper()
	return &conf.Config{
		ScreenshotDir:       t.TempDir(),
		TaskRetention:       time.Hour,
		SessionMaxAge:       7 * 24 * time.Hour,
		ProgressLogInterval: 5 * time.Millisecond,
		DefaultTimeout:      2 * time.Second,
		ValidateTimeout:     2 * time.Second,
	}
}

func newTestExecutor(t *testing.T, ag agent.Agent, bc agent.BrowsingContext) (*Executor, *task.Store, *session.Store) {
	t.Helper()
	cfg := testConfig(t)
	tasks := task.NewStore(cfg.TaskRetention)
	sessions := session.NewStore(cfg.SessionMaxAge)
	return New(cfg, tasks, sessions, ag, bc), tasks, sessions
}

func waitForTerminal(t *testing.T, tasks *task.Store, id string) model.Task {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got, ok := tasks.Get(id)
		require.True(t, ok)
		if got.Status.Terminal() {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("task never reached a terminal state")
	return model.Task{}
}

func authRequest(accountKey string) AuthRequest {
	return AuthRequest{
		Email:      "user@example.com",
		Password:   "hunter2",
		URL:        "https://accounts.google.com/ServiceLogin",
		AccountKey: accountKey,
		Options:    DefaultOptions(),
	}
}

func TestRunClassifiedSuccessPersistsSession(t *testing.T) {
	ag := &fakeAgent{result: "PROGRESS: Step 11 completed\nSuccessfully logged in to the account"}
	bc := newFakeBrowser(
		model.Cookie{Name: "SID", Value: "a", Domain: ".google.com"},
		model.Cookie{Name: "HSID", Value: "b", Domain: ".google.com"},
	)
	exec, tasks, sessions := newTestExecutor(t, ag, bc)

	req := authRequest("biz-success")
	req.Options.ReuseSession = false
	id := exec.Submit(req)

	got := waitForTerminal(t, tasks, id)
	assert.Equal(t, model.TaskCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.True(t, got.Result.Success)
	assert.True(t, got.Result.SessionSaved)
	assert.Equal(t, 2, got.Result.CookiesCount)
	assert.NotEmpty(t, got.Result.Screenshot)

	rec, err := sessions.Load("biz-success")
	require.NoError(t, err)
	require.True(t, rec.Valid())
	assert.Len(t, rec.Cookies, 2)
}

func TestRunClassifiedFailureIsCompleted(t *testing.T) {
	ag := &fakeAgent{result: "Google reported: your password was incorrect"}
	exec, tasks, _ := newTestExecutor(t, ag, newFakeBrowser())

	req := authRequest("biz-wrongpw")
	req.Options.ReuseSession = false
	id := exec.Submit(req)

	got := waitForTerminal(t, tasks, id)
	// A recognized login failure is still a completed job.
	assert.Equal(t, model.TaskCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.False(t, got.Result.Success)
	assert.Equal(t, classify.CodeWrongPassword, got.Result.ErrorCode)
	assert.NotEmpty(t, got.Result.Details)
}

func TestRunAgentErrorFailsWithAuthError(t *testing.T) {
	ag := &fakeAgent{err: errors.New("browser process exited")}
	exec, tasks, _ := newTestExecutor(t, ag, newFakeBrowser())

	req := authRequest("biz-err")
	req.Options.ReuseSession = false
	id := exec.Submit(req)

	got := waitForTerminal(t, tasks, id)
	assert.Equal(t, model.TaskFailed, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, classify.CodeAuthError, got.Result.ErrorCode)
	assert.Contains(t, got.Result.Error, "browser process exited")
}

func TestRunPanicIsContained(t *testing.T) {
	exec, tasks, _ := newTestExecutor(t, panicAgent{}, newFakeBrowser())

	req := authRequest("biz-panic")
	req.Options.ReuseSession = false
	id := exec.Submit(req)

	got := waitForTerminal(t, tasks, id)
	assert.Equal(t, model.TaskFailed, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, classify.CodeAuthError, got.Result.ErrorCode)
}

func TestRunTimeoutStopsProgressLogging(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	ag := &fakeAgent{result: "Successfully logged in", delay: 150 * time.Millisecond}
	exec, tasks, _ := newTestExecutor(t, ag, newFakeBrowser())

	req := authRequest("biz-timeout")
	req.Options.ReuseSession = false
	req.Timeout = 30 * time.Millisecond
	id := exec.Submit(req)

	got := waitForTerminal(t, tasks, id)
	assert.Equal(t, model.TaskFailed, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, classify.CodeTimeout, got.Result.ErrorCode)

	// The heartbeat ticker must be cancelled with the deadline. Let any
	// straggler fire, then verify the count stays put.
	time.Sleep(30 * time.Millisecond)
	count := heartbeatCount(hook)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, heartbeatCount(hook))

	// The abandoned agent call eventually lands and its result is
	// discarded: the task stays failed/TIMEOUT.
	time.Sleep(150 * time.Millisecond)
	got, ok := tasks.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.TaskFailed, got.Status)
	assert.Equal(t, classify.CodeTimeout, got.Result.ErrorCode)
}

func heartbeatCount(hook *logtest.Hook) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if strings.Contains(e.Message, "authentication in progress") {
			n++
		}
	}
	return n
}

func TestTerminatePendingTask(t *testing.T) {
	ag := &fakeAgent{result: "Successfully logged in", delay: 100 * time.Millisecond}
	exec, tasks, _ := newTestExecutor(t, ag, newFakeBrowser())

	req := authRequest("biz-term")
	req.Options.ReuseSession = false
	id := exec.Submit(req)

	got, terminated, err := exec.Terminate(id)
	require.NoError(t, err)
	require.True(t, terminated)
	assert.Equal(t, model.TaskFailed, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, classify.CodeTerminated, got.Result.ErrorCode)
	assert.Equal(t, "Task terminated by user", got.Message)

	// The in-flight run keeps going; its late write must be rejected.
	time.Sleep(150 * time.Millisecond)
	after, ok := tasks.Get(id)
	require.True(t, ok)
	assert.Equal(t, classify.CodeTerminated, after.Result.ErrorCode)
	assert.Equal(t, got.CompletedAt.UnixNano(), after.CompletedAt.UnixNano())
}

func TestTerminateFinishedTaskIsNoop(t *testing.T) {
	ag := &fakeAgent{result: "Successfully logged in"}
	exec, tasks, _ := newTestExecutor(t, ag, newFakeBrowser(model.Cookie{Name: "SID", Value: "a", Domain: ".google.com"}))

	req := authRequest("biz-term-done")
	req.Options.ReuseSession = false
	id := exec.Submit(req)
	waitForTerminal(t, tasks, id)

	got, terminated, err := exec.Terminate(id)
	require.NoError(t, err)
	assert.False(t, terminated)
	assert.Equal(t, model.TaskCompleted, got.Status)
	assert.True(t, got.Result.Success)
}

func TestTerminateUnknownTask(t *testing.T) {
	exec, _, _ := newTestExecutor(t, &fakeAgent{}, newFakeBrowser())
	_, _, err := exec.Terminate("no-such-id")
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestRunForwardsMessageStreamToTracker(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	ag := &streamingAgent{
		fakeAgent: fakeAgent{result: "Successfully logged in"},
		messages: []string{
			"PROGRESS: Step 3 completed - typed email",
			"PROGRESS: Step 7 completed - clicked next",
		},
	}
	exec, tasks, _ := newTestExecutor(t, ag, newFakeBrowser(model.Cookie{Name: "SID", Value: "a", Domain: ".google.com"}))

	req := authRequest("biz-stream")
	req.Options.ReuseSession = false
	id := exec.Submit(req)
	waitForTerminal(t, tasks, id)

	found := false
	for _, e := range hook.AllEntries() {
		if strings.Contains(e.Message, "Step 7 completed") {
			found = true
		}
	}
	assert.True(t, found, "streamed progress messages should be tracked")
}

func TestRunReusesStoredSession(t *testing.T) {
	ag := &fakeAgent{result: "Successfully logged in"}
	bc := newFakeBrowser(model.Cookie{Name: "SID", Value: "new", Domain: ".google.com"})
	exec, tasks, sessions := newTestExecutor(t, ag, bc)

	require.NoError(t, sessions.Save(&model.SessionRecord{
		AccountKey:  "biz-reuse",
		Cookies:     []model.Cookie{{Name: "OLD", Value: "prev", Domain: ".google.com"}},
		LastUpdated: time.Now(),
	}))

	id := exec.Submit(authRequest("biz-reuse"))
	waitForTerminal(t, tasks, id)

	// The stored cookie was applied to the browsing context before the run.
	names := map[string]bool{}
	cookies, err := bc.Cookies(context.Background())
	require.NoError(t, err)
	for _, c := range cookies {
		names[c.Name] = true
	}
	assert.True(t, names["OLD"])
}

func TestValidateSessionSuccessRefreshesRecord(t *testing.T) {
	ag := &fakeAgent{result: "You're signed in and viewing Personal info"}
	bc := newFakeBrowser(model.Cookie{Name: "SID", Value: "fresh", Domain: ".google.com"})
	exec, _, sessions := newTestExecutor(t, ag, bc)

	require.NoError(t, sessions.Save(&model.SessionRecord{
		AccountKey:  "biz-validate",
		Cookies:     []model.Cookie{{Name: "SID", Value: "old", Domain: ".google.com"}},
		LastUpdated: time.Now(),
	}))

	res := exec.ValidateSession(context.Background(), "biz-validate", "ext-session-12345678")
	assert.True(t, res.Valid)
	assert.Equal(t, "Session is valid and working", res.Message)
	assert.NotEmpty(t, res.Screenshot)

	rec, err := sessions.Load("biz-validate")
	require.NoError(t, err)
	assert.Equal(t, "ext-session-12345678", rec.Metadata["associated_session_id"])
}

func TestValidateSessionNotLoggedIn(t *testing.T) {
	ag := &fakeAgent{result: "A sign-in page is shown asking for credentials"}
	exec, _, sessions := newTestExecutor(t, ag, newFakeBrowser())

	require.NoError(t, sessions.Save(&model.SessionRecord{
		AccountKey:  "biz-validate-bad",
		Cookies:     []model.Cookie{{Name: "SID", Value: "old", Domain: ".google.com"}},
		LastUpdated: time.Now(),
	}))

	res := exec.ValidateSession(context.Background(), "biz-validate-bad", "")
	assert.False(t, res.Valid)
	assert.Equal(t, "Session is not valid (not logged in)", res.Message)
}

func TestValidateSessionMissing(t *testing.T) {
	exec, _, _ := newTestExecutor(t, &fakeAgent{}, newFakeBrowser())
	res := exec.ValidateSession(context.Background(), "nobody", "")
	assert.False(t, res.Valid)
	assert.Equal(t, "No session found for this account", res.Message)
}

func TestRunSerializesBrowserAccess(t *testing.T) {
	ag := &fakeAgent{result: "Successfully logged in", delay: 20 * time.Millisecond}
	exec, tasks, _ := newTestExecutor(t, ag, newFakeBrowser(model.Cookie{Name: "SID", Value: "a", Domain: ".google.com"}))

	req1 := authRequest("biz-serial-1")
	req1.Options.ReuseSession = false
	req2 := authRequest("biz-serial-2")
	req2.Options.ReuseSession = false

	id1 := exec.Submit(req1)
	id2 := exec.Submit(req2)

	t1 := waitForTerminal(t, tasks, id1)
	t2 := waitForTerminal(t, tasks, id2)
	assert.Equal(t, model.TaskCompleted, t1.Status)
	assert.Equal(t, model.TaskCompleted, t2.Status)
	assert.Equal(t, 2, ag.runCount())
}
