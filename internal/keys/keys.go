// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the workbench screen.
type KeyMap struct {
	// Focus
	NextPane key.Binding
	PrevPane key.Binding

	// Chat
	Send    key.Binding
	NewChat key.Binding

	// Sessions
	PrevSession key.Binding
	NextSession key.Binding

	// Editor
	Run  key.Binding
	Save key.Binding

	// Chart
	CycleChart key.Binding

	// General
	ToggleLog key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextPane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane"),
		),
		PrevPane: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous pane"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new chat"),
		),
		PrevSession: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "previous session"),
		),
		NextSession: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "next session"),
		),
		Run: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "run code"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save code"),
		),
		CycleChart: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "chart type"),
		),
		ToggleLog: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "debug log"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp returns keybindings for the status line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPane, k.Send, k.NewChat, k.Run, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextPane, k.PrevPane, k.Send, k.NewChat},
		{k.PrevSession, k.NextSession, k.Run, k.Save},
		{k.CycleChart, k.ToggleLog, k.Help, k.Quit},
	}
}

// PickerKeyMap defines the keybindings of the data-source picker.
type PickerKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	Widgets key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultPickerKeyMap returns the default picker keybindings.
func DefaultPickerKeyMap() PickerKeyMap {
	return PickerKeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up", "ctrl+p"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down", "ctrl+n"),
			key.WithHelp("j/↓", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "expand / toggle"),
		),
		Widgets: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "widgets"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "connect"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
