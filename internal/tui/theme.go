package tui

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

type palette struct {
	border  color.Color
	text    color.Color
	strong  color.Color
	muted   color.Color
	subtle  color.Color
	accent  color.Color
	success color.Color
	warn    color.Color
	danger  color.Color
}

var (
	darkPalette = palette{
		border:  lipgloss.Color("238"),
		text:    lipgloss.Color("252"),
		strong:  lipgloss.Color("255"),
		muted:   lipgloss.Color("246"),
		subtle:  lipgloss.Color("243"),
		accent:  lipgloss.Color("111"),
		success: lipgloss.Color("78"),
		warn:    lipgloss.Color("214"),
		danger:  lipgloss.Color("203"),
	}
	lightPalette = palette{
		border:  lipgloss.Color("250"),
		text:    lipgloss.Color("236"),
		strong:  lipgloss.Color("232"),
		muted:   lipgloss.Color("242"),
		subtle:  lipgloss.Color("245"),
		accent:  lipgloss.Color("25"),
		success: lipgloss.Color("28"),
		warn:    lipgloss.Color("130"),
		danger:  lipgloss.Color("160"),
	}
)

type theme struct {
	appBG lipgloss.Style

	brand lipgloss.Style

	headerBox lipgloss.Style
	headerSub lipgloss.Style

	trigger     lipgloss.Style
	triggerOpen lipgloss.Style

	popupBox    lipgloss.Style
	popupButton lipgloss.Style

	panelBox     lipgloss.Style
	panelTitle   lipgloss.Style
	panelSubtle  lipgloss.Style
	panelAccent  lipgloss.Style
	panelWarn    lipgloss.Style
	panelError   lipgloss.Style
	panelSuccess lipgloss.Style

	footerBox  lipgloss.Style
	footerInfo lipgloss.Style
	footerErr  lipgloss.Style
	footerWarn lipgloss.Style
	footerOK   lipgloss.Style
	footerKey  lipgloss.Style

	chipInfo    lipgloss.Style
	chipWarn    lipgloss.Style
	chipError   lipgloss.Style
	chipSuccess lipgloss.Style

	cardValue lipgloss.Style
	cardLabel lipgloss.Style

	inputFrame lipgloss.Style

	spinner lipgloss.Style
}

func newTheme(dark bool) theme {
	p := lightPalette
	if dark {
		p = darkPalette
	}

	return theme{
		appBG: lipgloss.NewStyle().Foreground(p.text),
		brand: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent),

		headerBox: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(p.border).
			Padding(0, 1),
		headerSub: lipgloss.NewStyle().Foreground(p.muted),

		trigger: lipgloss.NewStyle().
			Width(triggerWidth).
			Align(lipgloss.Right).
			Foreground(p.muted),
		triggerOpen: lipgloss.NewStyle().
			Width(triggerWidth).
			Align(lipgloss.Right).
			Bold(true).
			Foreground(p.accent),

		popupBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.accent).
			Padding(0, 1),
		popupButton: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent).
			Underline(true),

		panelBox: lipgloss.NewStyle().
			Padding(0, 1),
		panelTitle:   lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		panelSubtle:  lipgloss.NewStyle().Foreground(p.muted),
		panelAccent:  lipgloss.NewStyle().Foreground(p.strong),
		panelWarn:    lipgloss.NewStyle().Foreground(p.warn),
		panelError:   lipgloss.NewStyle().Foreground(p.danger),
		panelSuccess: lipgloss.NewStyle().Foreground(p.success),

		footerBox: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(p.border).
			Padding(0, 1),
		footerInfo: lipgloss.NewStyle().Foreground(p.text),
		footerErr:  lipgloss.NewStyle().Bold(true).Foreground(p.danger),
		footerWarn: lipgloss.NewStyle().Bold(true).Foreground(p.warn),
		footerOK:   lipgloss.NewStyle().Bold(true).Foreground(p.success),
		footerKey:  lipgloss.NewStyle().Bold(true).Foreground(p.accent),

		chipInfo: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent),
		chipWarn: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.warn),
		chipError: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.danger),
		chipSuccess: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.success),

		cardValue: lipgloss.NewStyle().Bold(true).Foreground(p.strong),
		cardLabel: lipgloss.NewStyle().Foreground(p.muted),

		inputFrame: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(p.border).
			Padding(0, 1),

		spinner: lipgloss.NewStyle().Bold(true).Foreground(p.warn),
	}
}
