package tui

import (
	"strings"
)

func (m model) renderEnrollment(t theme, layout uiLayout) string {
	e := m.enrollment
	if e == nil {
		return ""
	}
	width := innerWidth(t.panelBox, layout.MainWidth)

	lines := []string{
		t.panelTitle.Render("Activate " + fallbackText(m.cfg.DisplayName, e.AppName())),
		"",
	}
	message := e.Message()
	if e.Loading() {
		message = m.spinner.View() + " loading system information..."
	}
	lines = append(lines, t.panelSubtle.Render(trimToWidth(fallbackText(message, m.gate.Message()), width)), "")

	lines = append(lines, t.cardLabel.Render("System ID"))
	lines = append(lines, t.cardValue.Render(fallbackText(e.SystemID(), "unavailable")), "")

	lines = append(lines, t.cardLabel.Render("Activation key"))
	lines = append(lines, t.inputFrame.Render(m.keyInput.View()))

	switch {
	case e.Submitting():
		lines = append(lines, t.panelWarn.Render(m.spinner.View()+" activating..."))
	case e.Enrolled():
		lines = append(lines, t.panelSuccess.Render("activated"))
	default:
		lines = append(lines, t.panelSubtle.Render("press enter to activate"))
	}
	return strings.Join(lines, "\n")
}
