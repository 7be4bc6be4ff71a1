package tui

import (
	"github.com/dwizi/taskify/internal/activation"
	"github.com/dwizi/taskify/internal/apiclient"
	"github.com/dwizi/taskify/internal/automation"
)

type gateResultMsg struct{ result activation.GateResult }

type monitorResultMsg struct{ result activation.MonitorResult }

type enrollLoadMsg struct{ result activation.LoadResult }

type enrollSubmitMsg struct{ result activation.SubmitResult }

type sessionStatusMsg struct{ result automation.StatusResult }

type sessionStartMsg struct{ result automation.StartResult }

type runResultMsg struct{ result automation.RunResult }

type sessionCloseMsg struct{ result automation.CloseResult }

type logoutResultMsg struct{ result automation.LogoutResult }

type healthMsg struct {
	health apiclient.Health
	err    error
}

type toastExpiredMsg struct{ seq int }

// Host bridge messages.
type (
	reloadMsg          struct{}
	quitMsg            struct{}
	logoutConfirmedMsg struct{}
	confirmPromptMsg   struct{ onConfirm func() }
)
