package automation

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/dwizi/taskify/internal/apiclient"
	"github.com/dwizi/taskify/internal/clienterr"
	"github.com/dwizi/taskify/internal/flow"
	"github.com/dwizi/taskify/internal/hostbridge"
)

const (
	reusedSessionText  = "Reusing your existing logged-in browser session."
	freshSessionText   = "Browser started and login acknowledged!"
	startFailedText    = "Failed to start browser"
	runSucceededText   = "Automation completed successfully!"
	runFailedText      = "Automation failed"
	closedSessionText  = "Browser closed successfully"
	closeFailedText    = "Failed to close browser"
	statusFailedText   = "Could not check the automation session."
	loggedOutText      = "Logged out successfully."
	logoutFailedText   = "Logout failed. Please try again."
	sessionMissingText = "Start the automation session to continue."
)

type StatusResult struct {
	epoch  uint64
	status apiclient.BrowserStatus
	err    error
}

type StartResult struct {
	epoch    uint64
	response apiclient.StartBrowserResponse
	err      error
}

type RunResult struct {
	epoch    uint64
	response apiclient.RunAutomationResponse
	err      error
}

type CloseResult struct {
	epoch    uint64
	response apiclient.CloseBrowserResponse
	err      error
}

type LogoutResult struct {
	epoch uint64
	err   error
}

// Controller drives the automation session and one-at-a-time runs. Start and
// run are guarded by the phase only; a second client could still start a
// concurrent run on the server.
type Controller struct {
	api     SessionAPI
	alerter Alerter
	bridge  hostbridge.Bridge
	clock   clockwork.Clock
	logger  *slog.Logger

	phase      Phase
	session    Session
	run        Run
	message    string
	closing    bool
	loggingOut bool
	mounted    bool
	epoch      flow.Epoch
}

type Options struct {
	Alerter Alerter
	Bridge  hostbridge.Bridge
	Clock   clockwork.Clock
	Logger  *slog.Logger
}

func NewController(api SessionAPI, opts Options) *Controller {
	c := &Controller{
		api:     api,
		alerter: opts.Alerter,
		bridge:  opts.Bridge,
		clock:   opts.Clock,
		logger:  opts.Logger,
		phase:   PhaseCheckingStatus,
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

func (c *Controller) Phase() Phase       { return c.phase }
func (c *Controller) Session() Session   { return c.session }
func (c *Controller) LastRun() Run       { return c.run }
func (c *Controller) Message() string    { return c.message }
func (c *Controller) Closing() bool      { return c.closing }
func (c *Controller) LoggingOut() bool   { return c.loggingOut }
func (c *Controller) ShowRecovery() bool { return c.phase == PhaseRunFailed }

func (c *Controller) CanStart() bool {
	return c.phase == PhaseIdleNotStarted && !c.epoch.Closed()
}

func (c *Controller) CanRun() bool {
	if c.epoch.Closed() || c.closing || c.session.State != SessionOpen {
		return false
	}
	switch c.phase {
	case PhaseReadyNotRun, PhaseRunSucceeded, PhaseRunFailed:
		return true
	default:
		return false
	}
}

func (c *Controller) CanClose() bool {
	return c.CanRun()
}

// Mount queries the session status once.
func (c *Controller) Mount() flow.Task[StatusResult] {
	if c.mounted || c.epoch.Closed() {
		return nil
	}
	c.mounted = true
	c.phase = PhaseCheckingStatus
	epoch := c.epoch.Current()
	api := c.api
	return func(ctx context.Context) StatusResult {
		status, err := api.CheckBrowserStatus(ctx)
		return StatusResult{epoch: epoch, status: status, err: err}
	}
}

func (c *Controller) ApplyStatus(result StatusResult) flow.Notice {
	if !c.epoch.Valid(result.epoch) || c.phase != PhaseCheckingStatus {
		return flow.Notice{}
	}
	if result.err != nil {
		c.logger.Warn("browser status check failed", "error", result.err)
		c.phase = PhaseIdleNotStarted
		c.session = Session{State: SessionAbsent}
		c.message = clienterr.Message(result.err, statusFailedText)
		return flow.Error(c.message)
	}

	status := result.status
	c.session = Session{
		State:      SessionAbsent,
		LoggedIn:   status.BrowserOpen && status.LoggedIn,
		Detail:     strings.TrimSpace(status.Message),
		CurrentURL: strings.TrimSpace(status.CurrentURL),
	}
	if status.BrowserOpen {
		c.session.State = SessionOpen
	}
	if status.Success && status.BrowserOpen && status.LoggedIn {
		c.phase = PhaseReadyNotRun
		c.session.ReusedExisting = true
		c.message = reusedSessionText
		c.logger.Info("existing automation session found", "current_url", c.session.CurrentURL)
		return flow.Notice{}
	}
	c.phase = PhaseIdleNotStarted
	c.message = sessionMissingText
	if !status.Success && c.session.Detail != "" {
		c.message = c.session.Detail
	}
	return flow.Notice{}
}

// Start opens or reuses the server-side session. Only valid from idle.
func (c *Controller) Start() (flow.Task[StartResult], bool) {
	if !c.CanStart() {
		return nil, false
	}
	c.phase = PhaseStarting
	c.session.State = SessionStarting
	epoch := c.epoch.Current()
	api := c.api
	return func(ctx context.Context) StartResult {
		response, err := api.StartBrowser(ctx)
		return StartResult{epoch: epoch, response: response, err: err}
	}, true
}

func (c *Controller) ApplyStart(result StartResult) flow.Notice {
	if !c.epoch.Valid(result.epoch) || c.phase != PhaseStarting {
		return flow.Notice{}
	}
	response := result.response
	if result.err != nil || !response.Success {
		c.phase = PhaseIdleNotStarted
		c.session = Session{State: SessionAbsent}
		if result.err != nil {
			c.logger.Warn("start browser failed", "error", result.err)
			c.message = clienterr.Message(result.err, startFailedText)
		} else {
			c.message = firstNonEmpty(response.Message, startFailedText)
		}
		return flow.Error(c.message)
	}

	c.phase = PhaseReadyNotRun
	c.session = Session{State: SessionOpen, LoggedIn: true, ReusedExisting: response.ReusedSession}
	fallback := freshSessionText
	if response.ReusedSession {
		fallback = reusedSessionText
	}
	c.message = firstNonEmpty(response.Message, fallback)
	c.logger.Info("automation session ready", "reused", response.ReusedSession)
	return flow.Success(c.message)
}

// Run triggers one automation batch. It is a no-op while a run is in flight
// or when no session is open.
func (c *Controller) Run() (flow.Task[RunResult], bool) {
	if !c.CanRun() {
		return nil, false
	}
	c.phase = PhaseRunning
	c.run = Run{State: RunRunning, StartedAt: c.clock.Now()}
	c.message = ""
	epoch := c.epoch.Current()
	api := c.api
	return func(ctx context.Context) RunResult {
		response, err := api.RunAutomation(ctx)
		return RunResult{epoch: epoch, response: response, err: err}
	}, true
}

func (c *Controller) ApplyRun(result RunResult) flow.Notice {
	if !c.epoch.Valid(result.epoch) || c.phase != PhaseRunning {
		return flow.Notice{}
	}
	response := result.response
	c.run.FinishedAt = c.clock.Now()

	if result.err == nil && response.Success {
		c.phase = PhaseRunSucceeded
		c.run.State = RunSucceeded
		c.run.ProcessedCount = response.ProcessedCount
		c.run.StatusLabel = optional(response.Status)
		c.run.Message = firstNonEmpty(response.Message, runSucceededText)
		c.message = c.run.Message
		c.logger.Info("automation run succeeded", "processed", derefInt(response.ProcessedCount), "elapsed_ms", c.run.Elapsed().Milliseconds())
		return flow.Success(c.run.Message)
	}

	c.phase = PhaseRunFailed
	c.run.State = RunFailed
	if result.err != nil {
		c.run.Message = clienterr.Message(result.err, runFailedText)
		c.run.ErrorDetail = optional(result.err.Error())
	} else {
		c.run.Message = firstNonEmpty(response.Message, runFailedText)
		c.run.ErrorDetail = optional(response.Error)
		c.run.StatusLabel = optional(response.Status)
		c.run.ProcessedCount = response.ProcessedCount
	}
	c.message = c.run.Message
	c.logger.Warn("automation run failed", "message", c.run.Message, "error", result.err)
	if c.alerter != nil {
		c.alerter.Alert()
	}
	return flow.Error(c.run.Message)
}

// CloseSession asks the server to close its browser. Allowed whenever a run
// could be started.
func (c *Controller) CloseSession() (flow.Task[CloseResult], bool) {
	if !c.CanClose() {
		return nil, false
	}
	c.closing = true
	epoch := c.epoch.Current()
	api := c.api
	return func(ctx context.Context) CloseResult {
		response, err := api.CloseBrowser(ctx)
		return CloseResult{epoch: epoch, response: response, err: err}
	}, true
}

func (c *Controller) ApplyClose(result CloseResult) flow.Notice {
	if !c.epoch.Valid(result.epoch) || !c.closing {
		return flow.Notice{}
	}
	c.closing = false
	if result.err != nil || !result.response.Success {
		if result.err != nil {
			c.logger.Warn("close browser failed", "error", result.err)
			c.message = clienterr.Message(result.err, closeFailedText)
		} else {
			c.message = firstNonEmpty(result.response.Message, closeFailedText)
		}
		return flow.Error(c.message)
	}
	c.phase = PhaseIdleNotStarted
	c.session = Session{State: SessionAbsent}
	c.run = Run{}
	c.message = firstNonEmpty(result.response.Message, closedSessionText)
	return flow.Info(c.message)
}

// RequestLogout asks the host to confirm. onConfirm runs only if the operator
// agrees; it is expected to schedule Logout on the owning loop.
func (c *Controller) RequestLogout(onConfirm func()) bool {
	if c.bridge == nil || c.loggingOut || c.phase == PhaseRunning || c.epoch.Closed() {
		return false
	}
	c.bridge.RequestLogoutConfirmation(onConfirm)
	return true
}

func (c *Controller) Logout() (flow.Task[LogoutResult], bool) {
	if c.loggingOut || c.phase == PhaseRunning || c.epoch.Closed() {
		return nil, false
	}
	c.loggingOut = true
	epoch := c.epoch.Current()
	api := c.api
	return func(ctx context.Context) LogoutResult {
		return LogoutResult{epoch: epoch, err: api.Logout(ctx)}
	}, true
}

// ApplyLogout reloads the application on success so the gate asks again.
func (c *Controller) ApplyLogout(result LogoutResult) flow.Notice {
	if !c.epoch.Valid(result.epoch) || !c.loggingOut {
		return flow.Notice{}
	}
	c.loggingOut = false
	if result.err != nil {
		c.logger.Warn("logout failed", "error", result.err)
		c.message = clienterr.Message(result.err, logoutFailedText)
		return flow.Error(c.message)
	}
	c.logger.Info("logged out, reloading")
	if c.bridge != nil {
		c.bridge.Reload()
	}
	return flow.Info(loggedOutText)
}

func (c *Controller) Close() {
	c.epoch.Close()
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefInt(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
