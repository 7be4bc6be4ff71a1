package tui

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/dwizi/taskify/internal/activation"
	"github.com/dwizi/taskify/internal/flow"
)

func (m model) View() tea.View {
	v := tea.NewView(m.renderView())
	v.AltScreen = true
	v.MouseMode = tea.MouseModeAllMotion
	return v
}

func (m model) renderView() string {
	if m.quitting {
		return fallbackText(m.cfg.AppName, "taskify") + " closed\n"
	}

	t := newTheme(m.themes.Dark())
	popupOpen := m.monitor.Popup().IsOpen()
	layout := computeLayout(m.width, m.height, popupOpen)

	header := m.renderHeader(t, layout)
	main := m.renderMain(t, layout)
	body := main
	if popupOpen {
		body = lipgloss.JoinHorizontal(lipgloss.Top, main, " ", m.renderStatusPanel(t, layout))
	}
	footer := m.renderFooter(t, layout)

	ui := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	return t.appBG.Width(layout.Width).Height(layout.Height).Render(ui)
}

func (m model) renderHeader(t theme, layout uiLayout) string {
	style := sizedStyle(t.headerBox, layout.Width, headerHeight)
	contentWidth := innerWidth(t.headerBox, layout.Width)

	apiChip := t.chipSuccess.Render("API online")
	if m.healthErr {
		apiChip = t.chipError.Render("API offline")
	} else if m.health.Status == "" {
		apiChip = t.chipWarn.Render("API ?")
	}
	left := t.brand.Render(fallbackText(m.cfg.DisplayName, "Taskify")) + "  " + apiChip
	return style.Render(fillLine(left, m.renderTrigger(t), contentWidth))
}

// renderTrigger is the fixed-width status chip the popup hangs from.
func (m model) renderTrigger(t theme) string {
	label := "● activation: checking"
	if record, ok := m.monitor.Record(); ok {
		label = "● activation: " + string(record.Status)
	}
	if m.monitor.Busy() {
		label = m.spinner.View() + " activation: checking"
	}
	if m.monitor.Popup().IsOpen() {
		return t.triggerOpen.Render(trimToWidth(label+" ▾", triggerWidth))
	}
	return t.trigger.Render(trimToWidth(label, triggerWidth))
}

func (m model) renderStatusPanel(t theme, layout uiLayout) string {
	width := layout.Panel.Width
	lines := []string{t.panelTitle.Render("Activation status")}

	record, ok := m.monitor.Record()
	switch {
	case !ok && m.monitor.Busy():
		lines = append(lines, t.panelSubtle.Render("checking..."))
	case !ok:
		lines = append(lines, t.panelSubtle.Render("no status yet"))
	default:
		statusStyle := t.panelWarn
		if record.Active() {
			statusStyle = t.panelSuccess
		} else if record.Status == activation.StatusError {
			statusStyle = t.panelError
		}
		lines = append(lines,
			t.cardLabel.Render("status    ")+statusStyle.Render(string(record.Status)),
			t.cardLabel.Render("system id ")+t.cardValue.Render(fallbackText(record.SystemID, "unknown")),
			t.cardLabel.Render("key req.  ")+t.cardValue.Render(yesNo(record.RequiresKey)),
			t.panelSubtle.Render(trimToWidth(fallbackText(record.Message, "-"), width-4)),
		)
		if checked := m.monitor.CheckedAt(); !checked.IsZero() {
			lines = append(lines, t.panelSubtle.Render("checked "+checked.Local().Format("15:04:05")))
		}
	}

	// The re-check control sits on the panel's last content row.
	inner := layout.Panel.Height - 2
	for len(lines) < inner-1 {
		lines = append(lines, "")
	}
	lines = lines[:inner-1]
	control := t.popupButton.Render("[ re-check ]")
	if m.monitor.Busy() {
		control = t.panelSubtle.Render(m.spinner.View() + " checking")
	}
	lines = append(lines, control)

	return sizedStyle(t.popupBox, width, layout.Panel.Height).Render(strings.Join(lines, "\n"))
}

func (m model) renderMain(t theme, layout uiLayout) string {
	var content string
	switch m.gate.Subtree() {
	case activation.SubtreeEnrollment:
		content = m.renderEnrollment(t, layout)
	case activation.SubtreeAutomation:
		content = m.renderAutomation(t, layout)
	default:
		content = t.panelSubtle.Render(m.spinner.View() + " checking activation...")
	}
	if m.pendingConfirm != nil {
		prompt := t.panelWarn.Render("Log out and clear activation data on this device? ") +
			t.footerKey.Render("y") + t.panelSubtle.Render("/") + t.footerKey.Render("n")
		content = prompt + "\n\n" + content
	}
	return sizedStyle(t.panelBox, layout.MainWidth, layout.BodyHeight).Render(content)
}

func (m model) renderFooter(t theme, layout uiLayout) string {
	style := t.footerBox
	width := innerWidth(style, layout.Width)

	var helpLine string
	if m.typing() {
		helpLine = m.help.View(enrollmentKeys{m.keys})
	} else {
		helpLine = m.help.View(m.keys)
	}

	status := t.footerInfo.Render("theme: " + string(m.themes.Theme()))
	if !m.toast.Empty() {
		status = toastStyle(t, m.toast.Level).Render(m.toast.Text)
	}
	return sizedStyle(style, layout.Width, footerHeight).Render(t.footerInfo.Render(helpLine) + "\n" + trimToWidth(status, width))
}

func toastStyle(t theme, level flow.Level) lipgloss.Style {
	switch level {
	case flow.LevelError:
		return t.footerErr
	case flow.LevelWarn:
		return t.footerWarn
	case flow.LevelSuccess:
		return t.footerOK
	default:
		return t.footerKey
	}
}

func fillLine(left, right string, width int) string {
	if width <= 0 {
		return strings.TrimSpace(left + " " + right)
	}
	lw := lipgloss.Width(left)
	rw := lipgloss.Width(right)
	if lw+rw+1 > width {
		return right
	}
	return left + strings.Repeat(" ", width-lw-rw) + right
}

func trimToWidth(value string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= width {
		return string(runes)
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

func sizedStyle(style lipgloss.Style, width, height int) lipgloss.Style {
	contentWidth := maxInt(1, width-style.GetHorizontalFrameSize())
	contentHeight := maxInt(1, height-style.GetVerticalFrameSize())
	return style.Width(contentWidth).Height(contentHeight)
}

func innerWidth(style lipgloss.Style, width int) int {
	return maxInt(1, width-style.GetHorizontalFrameSize())
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
