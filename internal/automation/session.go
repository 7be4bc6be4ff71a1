package automation

import (
	"context"
	"time"

	"github.com/dwizi/taskify/internal/apiclient"
)

type Phase int

const (
	PhaseCheckingStatus Phase = iota
	PhaseIdleNotStarted
	PhaseStarting
	PhaseReadyNotRun
	PhaseRunning
	PhaseRunSucceeded
	PhaseRunFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseCheckingStatus:
		return "checking-status"
	case PhaseIdleNotStarted:
		return "idle-not-started"
	case PhaseStarting:
		return "starting"
	case PhaseReadyNotRun:
		return "ready-not-run"
	case PhaseRunning:
		return "running"
	case PhaseRunSucceeded:
		return "run-complete-success"
	case PhaseRunFailed:
		return "run-complete-failure"
	default:
		return "unknown"
	}
}

type SessionState int

const (
	SessionAbsent SessionState = iota
	SessionStarting
	SessionOpen
)

func (s SessionState) String() string {
	switch s {
	case SessionStarting:
		return "starting"
	case SessionOpen:
		return "open"
	default:
		return "absent"
	}
}

// Session mirrors the server's automation session as of the last status or
// start call. The server owns the truth.
type Session struct {
	State          SessionState
	LoggedIn       bool
	ReusedExisting bool
	Detail         string
	CurrentURL     string
}

type RunState int

const (
	RunIdle RunState = iota
	RunRunning
	RunSucceeded
	RunFailed
)

func (s RunState) String() string {
	switch s {
	case RunRunning:
		return "running"
	case RunSucceeded:
		return "succeeded"
	case RunFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Run is the single live automation run. Starting a new run replaces it.
type Run struct {
	State          RunState
	ProcessedCount *int
	StatusLabel    *string
	Message        string
	ErrorDetail    *string
	StartedAt      time.Time
	FinishedAt     time.Time
}

func (r Run) Elapsed() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

type SessionAPI interface {
	CheckBrowserStatus(ctx context.Context) (apiclient.BrowserStatus, error)
	StartBrowser(ctx context.Context) (apiclient.StartBrowserResponse, error)
	RunAutomation(ctx context.Context) (apiclient.RunAutomationResponse, error)
	CloseBrowser(ctx context.Context) (apiclient.CloseBrowserResponse, error)
	Logout(ctx context.Context) error
}

// Alerter plays the failure tone sequence without blocking.
type Alerter interface {
	Alert()
}

// RecoverySteps is the checklist shown after a failed run.
var RecoverySteps = []string{
	"Check the automation browser window.",
	"Make sure it is on the expected starting page.",
	"Confirm you are still logged in.",
	"Run the automation again to retry.",
}
