// Package toaster shows short-lived notices in the corner of the screen.
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/devdeck/internal/ui/overlay"
	"github.com/zjrosen/devdeck/internal/ui/styles"
)

// DefaultDuration is how long a toast stays up.
const DefaultDuration = 3 * time.Second

// Style determines the visual appearance of the toast.
type Style int

const (
	StyleSuccess Style = iota
	StyleError
	StyleInfo
	StyleWarn
)

// Model holds the toaster state.
type Model struct {
	message string
	style   Style
	visible bool
	seq     int
}

// New creates a new toaster model.
func New() Model {
	return Model{}
}

// Show displays message and returns the command that hides it again after
// DefaultDuration. A later Show supersedes the pending dismissal.
func (m Model) Show(message string, style Style) (Model, tea.Cmd) {
	m.message = message
	m.style = style
	m.visible = true
	m.seq++
	seq := m.seq
	return m, tea.Tick(DefaultDuration, func(time.Time) tea.Msg {
		return DismissMsg{seq: seq}
	})
}

// Update hides the toast when its own DismissMsg arrives.
func (m Model) Update(msg tea.Msg) Model {
	if d, ok := msg.(DismissMsg); ok && d.seq == m.seq {
		m.visible = false
		m.message = ""
	}
	return m
}

// Visible returns whether the toast is currently showing.
func (m Model) Visible() bool {
	return m.visible
}

// Message returns the text of the visible toast.
func (m Model) Message() string {
	return m.message
}

// View renders the toast box.
func (m Model) View() string {
	if !m.visible || m.message == "" {
		return ""
	}

	var color lipgloss.TerminalColor
	var icon string
	switch m.style {
	case StyleError:
		color, icon = styles.StatusErrorColor, "✗ "
	case StyleInfo:
		color, icon = styles.StatusInfoColor, "i "
	case StyleWarn:
		color, icon = styles.StatusWarningColor, "! "
	default:
		color, icon = styles.StatusSuccessColor, "✓ "
	}
	return lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Render(icon + m.message)
}

// Overlay renders the toast over bg in the top right corner.
func (m Model) Overlay(bg string, width, height int) string {
	if !m.visible || m.message == "" {
		return bg
	}
	return overlay.Place(overlay.Config{
		Width:    width,
		Height:   height,
		Position: overlay.TopRight,
		PadX:     1,
		PadY:     1,
	}, m.View(), bg)
}

// DismissMsg hides the toast that scheduled it.
type DismissMsg struct {
	seq int
}
