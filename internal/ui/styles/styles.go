// Package styles contains Lip Gloss style definitions.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Text hierarchy
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#1F2328", Dark: "#CCCCCC"}
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#8C959F", Dark: "#696969"}
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#57606A", Dark: "#999999"}

	// Borders
	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#D0D7DE", Dark: "#696969"}
	BorderFocusColor   = lipgloss.AdaptiveColor{Light: "#0969DA", Dark: "#54A0FF"}

	// Chat senders
	SenderUserColor      = lipgloss.AdaptiveColor{Light: "#0969DA", Dark: "#54A0FF"}
	SenderAssistantColor = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#73F59F"}
	SenderSystemColor    = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#FECA57"}

	// Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
	StatusInfoColor    = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"}

	// Overlays (picker, toasts)
	OverlayTitleColor  = lipgloss.AdaptiveColor{Light: "#1F2328", Dark: "#FFFFFF"}
	OverlayBorderColor = lipgloss.AdaptiveColor{Light: "#8C959F", Dark: "#8C959F"}

	// Selection indicator color (used for ">" prefix in lists)
	SelectionIndicatorColor = lipgloss.AdaptiveColor{Light: "#1F2328", Dark: "#FFFFFF"}

	SelectionIndicatorStyle = lipgloss.NewStyle().Bold(true).Foreground(SelectionIndicatorColor)
	MutedStyle              = lipgloss.NewStyle().Foreground(TextMutedColor)
	SecondaryStyle          = lipgloss.NewStyle().Foreground(TextSecondaryColor)
	ErrorStyle              = lipgloss.NewStyle().Foreground(StatusErrorColor)
	ShellPromptStyle        = lipgloss.NewStyle().Foreground(StatusSuccessColor).Bold(true)
	ActiveSessionStyle      = lipgloss.NewStyle().Bold(true).Foreground(BorderFocusColor)
	PendingStyle            = lipgloss.NewStyle().Foreground(StatusWarningColor)
)

// SenderStyle returns the label style for a chat sender.
func SenderStyle(sender string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch sender {
	case "user":
		return base.Foreground(SenderUserColor)
	case "assistant":
		return base.Foreground(SenderAssistantColor)
	default:
		return base.Foreground(SenderSystemColor)
	}
}
