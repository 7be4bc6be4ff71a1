package tui

import (
	"charm.land/bubbles/v2/key"
)

type keyMap struct {
	Quit        key.Binding
	ToggleHelp  key.Binding
	ToggleTheme key.Binding

	StatusPopup   key.Binding
	StatusRefresh key.Binding

	Submit key.Binding

	StartSession key.Binding
	RunBatch     key.Binding
	CloseSession key.Binding
	Logout       key.Binding

	Confirm key.Binding
	Decline key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		ToggleHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		ToggleTheme: key.NewBinding(
			key.WithKeys("t", "ctrl+t"),
			key.WithHelp("t", "light/dark"),
		),
		StatusPopup: key.NewBinding(
			key.WithKeys("a", "f2"),
			key.WithHelp("a", "activation status"),
		),
		StatusRefresh: key.NewBinding(
			key.WithKeys("u", "f5"),
			key.WithHelp("u", "re-check activation"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "activate"),
		),
		StartSession: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start session"),
		),
		RunBatch: key.NewBinding(
			key.WithKeys("r", "enter"),
			key.WithHelp("r", "run automation"),
		),
		CloseSession: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "close session"),
		),
		Logout: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "log out"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yes"),
		),
		Decline: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "no"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.StartSession,
		k.RunBatch,
		k.StatusPopup,
		k.ToggleTheme,
		k.ToggleHelp,
		k.Quit,
	}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.StartSession, k.RunBatch, k.CloseSession, k.Logout},
		{k.StatusPopup, k.StatusRefresh, k.Submit},
		{k.ToggleTheme, k.ToggleHelp, k.Quit},
	}
}

// enrollmentKeys is shown while the key field owns the keyboard.
type enrollmentKeys struct {
	keyMap
}

func (k enrollmentKeys) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Submit,
		withHelp(k.StatusPopup, "f2"),
		withHelp(k.ToggleTheme, "ctrl+t"),
		withHelp(k.Quit, "ctrl+c"),
	}
}

func (k enrollmentKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func withHelp(binding key.Binding, keyLabel string) key.Binding {
	help := binding.Help()
	binding.SetHelp(keyLabel, help.Desc)
	return binding
}
