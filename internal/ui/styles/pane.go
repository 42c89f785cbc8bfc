package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// Pane renders content in a rounded box with the title set into the top
// border: ╭─ Title ─────╮. Content is clipped to the box.
func Pane(content, title string, width, height int, focused bool) string {
	var borderColor lipgloss.TerminalColor = BorderDefaultColor
	if focused {
		borderColor = BorderFocusColor
	}
	border := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Foreground(TextPrimaryColor).Bold(focused)

	inner := max(width-2, 1)
	rows := max(height-2, 1)

	lines := strings.Split(lipgloss.NewStyle().Width(inner).Render(content), "\n")
	// Keep the tail so logs stay pinned to the newest line.
	if len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}

	var b strings.Builder
	b.WriteString(topBorder(title, inner, border, titleStyle))
	for i := range rows {
		line := ""
		if i < len(lines) {
			line = truncate.String(lines[i], uint(inner))
		}
		if w := lipgloss.Width(line); w < inner {
			line += strings.Repeat(" ", inner-w)
		}
		b.WriteString("\n")
		b.WriteString(border.Render(borderVertical) + line + border.Render(borderVertical))
	}
	b.WriteString("\n")
	b.WriteString(border.Render(borderBottomLeft + strings.Repeat(borderHorizontal, inner) + borderBottomRight))
	return b.String()
}

func topBorder(title string, inner int, border, titleStyle lipgloss.Style) string {
	// "─ " + title + " " needs at least four cells around the text.
	if title == "" || inner < 5 {
		return border.Render(borderTopLeft + strings.Repeat(borderHorizontal, inner) + borderTopRight)
	}
	title = truncate.StringWithTail(title, uint(inner-4), "…")
	rest := max(inner-3-lipgloss.Width(title), 0)
	return border.Render(borderTopLeft+borderHorizontal+" ") +
		titleStyle.Render(title) +
		border.Render(" "+strings.Repeat(borderHorizontal, rest)+borderTopRight)
}
