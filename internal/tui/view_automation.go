package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dwizi/taskify/internal/automation"
)

func (m model) renderAutomation(t theme, layout uiLayout) string {
	c := m.controller
	if c == nil {
		return ""
	}
	width := innerWidth(t.panelBox, layout.MainWidth)
	session := c.Session()

	lines := []string{t.panelTitle.Render("Automation"), ""}
	lines = append(lines, t.cardLabel.Render("session  ")+m.sessionChip(t, c))
	if session.State == automation.SessionOpen {
		lines = append(lines, t.cardLabel.Render("login    ")+t.cardValue.Render(yesNo(session.LoggedIn)))
	}
	if session.CurrentURL != "" {
		lines = append(lines, t.cardLabel.Render("page     ")+t.panelSubtle.Render(trimToWidth(session.CurrentURL, width-9)))
	}
	if msg := c.Message(); msg != "" {
		lines = append(lines, "", t.panelAccent.Render(trimToWidth(msg, width)))
	}

	run := c.LastRun()
	if run.State != automation.RunIdle {
		lines = append(lines, "", t.panelTitle.Render("Last run"))
		lines = append(lines, m.renderRun(t, run, width)...)
	}
	if c.ShowRecovery() {
		lines = append(lines, "", t.panelWarn.Render("Before retrying:"))
		for i, step := range automation.RecoverySteps {
			lines = append(lines, t.panelSubtle.Render(fmt.Sprintf("  %d. %s", i+1, step)))
		}
	}

	lines = append(lines, "", t.panelSubtle.Render(m.actionHint(c)))
	return strings.Join(lines, "\n")
}

func (m model) sessionChip(t theme, c *automation.Controller) string {
	switch c.Phase() {
	case automation.PhaseCheckingStatus:
		return t.chipInfo.Render(m.spinner.View() + " checking")
	case automation.PhaseIdleNotStarted:
		return t.chipWarn.Render("not started")
	case automation.PhaseStarting:
		return t.chipInfo.Render(m.spinner.View() + " starting (log in in the browser window)")
	case automation.PhaseRunning:
		return t.chipInfo.Render(m.spinner.View() + " running")
	default:
		if c.Session().ReusedExisting {
			return t.chipSuccess.Render("ready (reused)")
		}
		return t.chipSuccess.Render("ready")
	}
}

func (m model) renderRun(t theme, run automation.Run, width int) []string {
	var lines []string
	switch run.State {
	case automation.RunRunning:
		lines = append(lines, t.chipInfo.Render(m.spinner.View()+" running since "+run.StartedAt.Local().Format("15:04:05")))
		return lines
	case automation.RunSucceeded:
		lines = append(lines, t.chipSuccess.Render("succeeded")+t.panelSubtle.Render(" in "+run.Elapsed().Round(time.Second).String()))
	case automation.RunFailed:
		lines = append(lines, t.chipError.Render("failed")+t.panelSubtle.Render(" after "+run.Elapsed().Round(time.Second).String()))
	}
	if run.ProcessedCount != nil {
		lines = append(lines, t.cardLabel.Render("processed ")+t.cardValue.Render(fmt.Sprintf("%d", *run.ProcessedCount)))
	}
	if run.StatusLabel != nil {
		lines = append(lines, t.cardLabel.Render("status    ")+t.cardValue.Render(*run.StatusLabel))
	}
	if run.Message != "" {
		lines = append(lines, t.panelAccent.Render(trimToWidth(run.Message, width)))
	}
	if run.ErrorDetail != nil {
		lines = append(lines, t.panelError.Render(trimToWidth("error: "+*run.ErrorDetail, width)))
	}
	return lines
}

func (m model) actionHint(c *automation.Controller) string {
	var actions []string
	if c.CanStart() {
		actions = append(actions, "s: start session")
	}
	if c.CanRun() {
		label := "r: run automation"
		if c.Phase() == automation.PhaseRunFailed || c.Phase() == automation.PhaseRunSucceeded {
			label = "r: run again"
		}
		actions = append(actions, label, "c: close session")
	}
	if c.Phase() != automation.PhaseRunning {
		actions = append(actions, "l: log out")
	}
	return strings.Join(actions, "  ·  ")
}
