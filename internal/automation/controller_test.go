package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwizi/taskify/internal/apiclient"
	"github.com/dwizi/taskify/internal/clienterr"
	"github.com/dwizi/taskify/internal/flow"
)

type fakeSessionAPI struct {
	mu sync.Mutex

	status    apiclient.BrowserStatus
	statusErr error
	start     apiclient.StartBrowserResponse
	startErr  error
	run       apiclient.RunAutomationResponse
	runErr    error
	closeResp apiclient.CloseBrowserResponse
	closeErr  error
	logoutErr error

	runCalls    int
	startCalls  int
	logoutCalls int
}

func (f *fakeSessionAPI) CheckBrowserStatus(context.Context) (apiclient.BrowserStatus, error) {
	return f.status, f.statusErr
}

func (f *fakeSessionAPI) StartBrowser(context.Context) (apiclient.StartBrowserResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return f.start, f.startErr
}

func (f *fakeSessionAPI) RunAutomation(context.Context) (apiclient.RunAutomationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runCalls++
	return f.run, f.runErr
}

func (f *fakeSessionAPI) CloseBrowser(context.Context) (apiclient.CloseBrowserResponse, error) {
	return f.closeResp, f.closeErr
}

func (f *fakeSessionAPI) Logout(context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

type countingAlerter struct {
	count int
}

func (a *countingAlerter) Alert() { a.count++ }

type fakeBridge struct {
	reloads int
	confirm bool
}

func (b *fakeBridge) Reload() { b.reloads++ }
func (b *fakeBridge) Quit()   {}
func (b *fakeBridge) RequestLogoutConfirmation(onConfirm func()) {
	if b.confirm {
		onConfirm()
	}
}

func intPtr(v int) *int { return &v }

func newController(api *fakeSessionAPI) (*Controller, *countingAlerter, *clockwork.FakeClock) {
	alerter := &countingAlerter{}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	return NewController(api, Options{Alerter: alerter, Clock: clock}), alerter, clock
}

func mount(t *testing.T, c *Controller) flow.Notice {
	t.Helper()
	task := c.Mount()
	require.NotNil(t, task)
	return c.ApplyStatus(task(context.Background()))
}

func readyController(t *testing.T, api *fakeSessionAPI) (*Controller, *countingAlerter, *clockwork.FakeClock) {
	t.Helper()
	api.status = apiclient.BrowserStatus{Success: true, BrowserOpen: true, LoggedIn: true}
	c, alerter, clock := newController(api)
	mount(t, c)
	require.Equal(t, PhaseReadyNotRun, c.Phase())
	return c, alerter, clock
}

func TestMountWithOpenLoggedInSessionIsReady(t *testing.T) {
	api := &fakeSessionAPI{status: apiclient.BrowserStatus{Success: true, BrowserOpen: true, LoggedIn: true, CurrentURL: "https://portal.example/dashboard"}}
	c, _, _ := newController(api)
	assert.Equal(t, PhaseCheckingStatus, c.Phase())

	mount(t, c)
	assert.Equal(t, PhaseReadyNotRun, c.Phase())
	assert.Equal(t, SessionOpen, c.Session().State)
	assert.True(t, c.Session().LoggedIn)
	assert.Equal(t, "https://portal.example/dashboard", c.Session().CurrentURL)
	assert.Nil(t, c.Mount(), "status is queried once")
}

func TestMountWithoutLoginIsIdle(t *testing.T) {
	for _, status := range []apiclient.BrowserStatus{
		{Success: true, BrowserOpen: false},
		{Success: true, BrowserOpen: true, LoggedIn: false},
	} {
		c, _, _ := newController(&fakeSessionAPI{status: status})
		mount(t, c)
		assert.Equal(t, PhaseIdleNotStarted, c.Phase())
		assert.True(t, c.CanStart())
		assert.False(t, c.CanRun())
	}
}

func TestMountFailureIsIdle(t *testing.T) {
	c, _, _ := newController(&fakeSessionAPI{statusErr: clienterr.Transport("check browser status", errors.New("refused"))})
	notice := mount(t, c)
	assert.Equal(t, flow.LevelError, notice.Level)
	assert.Equal(t, PhaseIdleNotStarted, c.Phase())
}

func TestStartFreshAndReusedBothReachReady(t *testing.T) {
	cases := []struct {
		name     string
		reused   bool
		expected string
	}{
		{name: "fresh", reused: false, expected: freshSessionText},
		{name: "reused", reused: true, expected: reusedSessionText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeSessionAPI{start: apiclient.StartBrowserResponse{Success: true, ReusedSession: tc.reused}}
			c, _, _ := newController(api)
			mount(t, c)

			task, ok := c.Start()
			require.True(t, ok)
			assert.Equal(t, PhaseStarting, c.Phase())
			assert.Equal(t, SessionStarting, c.Session().State)
			_, again := c.Start()
			assert.False(t, again)

			c.ApplyStart(task(context.Background()))
			assert.Equal(t, PhaseReadyNotRun, c.Phase())
			assert.Equal(t, SessionOpen, c.Session().State)
			assert.Equal(t, tc.reused, c.Session().ReusedExisting)
			assert.Equal(t, tc.expected, c.Message())
			assert.Equal(t, 1, api.startCalls)
		})
	}
}

func TestStartFailureReturnsToIdle(t *testing.T) {
	api := &fakeSessionAPI{start: apiclient.StartBrowserResponse{Success: false, Message: "Login timeout - please try again"}}
	c, _, _ := newController(api)
	mount(t, c)

	task, ok := c.Start()
	require.True(t, ok)
	notice := c.ApplyStart(task(context.Background()))
	assert.Equal(t, flow.LevelError, notice.Level)
	assert.Equal(t, "Login timeout - please try again", c.Message())
	assert.Equal(t, PhaseIdleNotStarted, c.Phase())
	assert.True(t, c.CanStart())
}

func TestRunSuccessRecordsCountWithoutAlert(t *testing.T) {
	api := &fakeSessionAPI{run: apiclient.RunAutomationResponse{Success: true, ProcessedCount: intPtr(7), Status: "completed"}}
	c, alerter, clock := readyController(t, api)

	task, ok := c.Run()
	require.True(t, ok)
	clock.Advance(90 * time.Second)
	notice := c.ApplyRun(task(context.Background()))

	assert.Equal(t, flow.LevelSuccess, notice.Level)
	assert.Equal(t, PhaseRunSucceeded, c.Phase())
	run := c.LastRun()
	assert.Equal(t, RunSucceeded, run.State)
	require.NotNil(t, run.ProcessedCount)
	assert.Equal(t, 7, *run.ProcessedCount)
	require.NotNil(t, run.StatusLabel)
	assert.Equal(t, "completed", *run.StatusLabel)
	assert.Equal(t, runSucceededText, run.Message)
	assert.Equal(t, 90*time.Second, run.Elapsed())
	assert.Zero(t, alerter.count)
	assert.False(t, c.ShowRecovery())
}

func TestRunSuccessWithoutCount(t *testing.T) {
	api := &fakeSessionAPI{run: apiclient.RunAutomationResponse{Success: true}}
	c, _, _ := readyController(t, api)
	task, _ := c.Run()
	c.ApplyRun(task(context.Background()))
	assert.Nil(t, c.LastRun().ProcessedCount)
}

func TestRunFailureAlertsOnceAndShowsRecovery(t *testing.T) {
	api := &fakeSessionAPI{run: apiclient.RunAutomationResponse{Success: false, Message: "Dashboard button not found", Error: "timeout waiting for selector", Status: "error"}}
	c, alerter, _ := readyController(t, api)

	task, ok := c.Run()
	require.True(t, ok)
	notice := c.ApplyRun(task(context.Background()))

	assert.Equal(t, flow.LevelError, notice.Level)
	assert.Equal(t, PhaseRunFailed, c.Phase())
	assert.Equal(t, 1, alerter.count)
	assert.True(t, c.ShowRecovery())
	run := c.LastRun()
	assert.Equal(t, "Dashboard button not found", run.Message)
	require.NotNil(t, run.ErrorDetail)
	assert.Equal(t, "timeout waiting for selector", *run.ErrorDetail)
	require.NotNil(t, run.StatusLabel)
	assert.Equal(t, "error", *run.StatusLabel)
	assert.Len(t, RecoverySteps, 4)

	// A duplicate result is ignored and does not alert again.
	c.ApplyRun(task(context.Background()))
	assert.Equal(t, 1, alerter.count)
}

func TestRunTransportFailureAlerts(t *testing.T) {
	api := &fakeSessionAPI{runErr: clienterr.Transport("run automation", errors.New("connection reset"))}
	c, alerter, _ := readyController(t, api)
	task, _ := c.Run()
	c.ApplyRun(task(context.Background()))

	assert.Equal(t, PhaseRunFailed, c.Phase())
	assert.Equal(t, runFailedText, c.LastRun().Message)
	assert.NotNil(t, c.LastRun().ErrorDetail)
	assert.Equal(t, 1, alerter.count)
}

func TestRunIsNoOpWhileRunning(t *testing.T) {
	api := &fakeSessionAPI{run: apiclient.RunAutomationResponse{Success: true}}
	c, _, _ := readyController(t, api)

	task, ok := c.Run()
	require.True(t, ok)
	second, again := c.Run()
	assert.False(t, again)
	assert.Nil(t, second)

	task(context.Background())
	assert.Equal(t, 1, api.runCalls)
}

func TestRetryAfterEitherOutcome(t *testing.T) {
	api := &fakeSessionAPI{run: apiclient.RunAutomationResponse{Success: false}}
	c, alerter, _ := readyController(t, api)

	task, _ := c.Run()
	c.ApplyRun(task(context.Background()))
	require.Equal(t, PhaseRunFailed, c.Phase())

	api.run = apiclient.RunAutomationResponse{Success: true, ProcessedCount: intPtr(2)}
	task, ok := c.Run()
	require.True(t, ok, "retry allowed straight from failure")
	assert.Equal(t, RunRunning, c.LastRun().State)
	assert.Nil(t, c.LastRun().ErrorDetail, "previous run is discarded")
	c.ApplyRun(task(context.Background()))
	assert.Equal(t, PhaseRunSucceeded, c.Phase())
	assert.Equal(t, SessionOpen, c.Session().State)

	_, ok = c.Run()
	assert.True(t, ok, "rerun allowed from success")
	assert.Equal(t, 1, alerter.count)
}

func TestRunRequiresOpenSession(t *testing.T) {
	c, _, _ := newController(&fakeSessionAPI{status: apiclient.BrowserStatus{Success: true}})
	_, ok := c.Run()
	assert.False(t, ok, "not while checking status")
	mount(t, c)
	_, ok = c.Run()
	assert.False(t, ok, "not while idle")
}

func TestCloseSessionReturnsToIdle(t *testing.T) {
	api := &fakeSessionAPI{closeResp: apiclient.CloseBrowserResponse{Success: true}}
	c, _, _ := readyController(t, api)

	task, ok := c.CloseSession()
	require.True(t, ok)
	assert.False(t, c.CanRun(), "no runs while closing")
	c.ApplyClose(task(context.Background()))
	assert.Equal(t, PhaseIdleNotStarted, c.Phase())
	assert.Equal(t, SessionAbsent, c.Session().State)
	assert.Equal(t, closedSessionText, c.Message())
}

func TestCloseSessionFailureKeepsState(t *testing.T) {
	api := &fakeSessionAPI{closeResp: apiclient.CloseBrowserResponse{Success: false}}
	c, _, _ := readyController(t, api)
	task, _ := c.CloseSession()
	notice := c.ApplyClose(task(context.Background()))
	assert.Equal(t, flow.LevelError, notice.Level)
	assert.Equal(t, PhaseReadyNotRun, c.Phase())
	assert.True(t, c.CanRun())
}

func TestLogoutConfirmedReloads(t *testing.T) {
	api := &fakeSessionAPI{}
	bridge := &fakeBridge{confirm: true}
	c := NewController(api, Options{Bridge: bridge})

	var task flow.Task[LogoutResult]
	require.True(t, c.RequestLogout(func() {
		var ok bool
		task, ok = c.Logout()
		require.True(t, ok)
	}))
	require.NotNil(t, task)
	c.ApplyLogout(task(context.Background()))
	assert.Equal(t, 1, api.logoutCalls)
	assert.Equal(t, 1, bridge.reloads)
}

func TestLogoutDeclinedDoesNothing(t *testing.T) {
	api := &fakeSessionAPI{}
	bridge := &fakeBridge{confirm: false}
	c := NewController(api, Options{Bridge: bridge})
	called := false
	c.RequestLogout(func() { called = true })
	assert.False(t, called)
	assert.Zero(t, api.logoutCalls)
}

func TestLogoutFailureDoesNotReload(t *testing.T) {
	api := &fakeSessionAPI{logoutErr: clienterr.Server("logout", 500, "")}
	bridge := &fakeBridge{}
	c := NewController(api, Options{Bridge: bridge})
	task, ok := c.Logout()
	require.True(t, ok)
	notice := c.ApplyLogout(task(context.Background()))
	assert.Equal(t, flow.LevelError, notice.Level)
	assert.Zero(t, bridge.reloads)
}

func TestResultsAfterCloseAreDropped(t *testing.T) {
	api := &fakeSessionAPI{run: apiclient.RunAutomationResponse{Success: false}}
	c, alerter, _ := readyController(t, api)
	task, _ := c.Run()
	c.Close()

	c.ApplyRun(task(context.Background()))
	assert.Equal(t, PhaseRunning, c.Phase())
	assert.Zero(t, alerter.count)
	_, ok := c.Start()
	assert.False(t, ok)
}
