package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/sessions"
	"github.com/zjrosen/devdeck/internal/ui/styles"
)

const inputHeight = 3

type layout struct {
	bodyHeight   int
	chatWidth    int
	rightWidth   int
	editorHeight int
	shellHeight  int
	chartHeight  int
}

func (m Model) layout() layout {
	l := layout{bodyHeight: max(m.height-1, 6)}
	rest := max(m.width-sidebarWidth, 20)
	l.chatWidth = rest / 2
	l.rightWidth = rest - l.chatWidth
	l.editorHeight = l.bodyHeight * 2 / 5
	l.shellHeight = (l.bodyHeight - l.editorHeight) / 2
	l.chartHeight = l.bodyHeight - l.editorHeight - l.shellHeight
	return l
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	l := m.layout()

	sidebar := styles.Pane(m.sessionList(), "Sessions", sidebarWidth, l.bodyHeight, false)

	chat := zone.Mark(zoneChatPane, lipgloss.JoinVertical(lipgloss.Left,
		styles.Pane(m.chatLog(l.chatWidth-2), m.chatTitle(), l.chatWidth, l.bodyHeight-inputHeight, m.focus == paneChat),
		styles.Pane(m.input.View(), "", l.chatWidth, inputHeight, m.focus == paneChat),
	))

	right := lipgloss.JoinVertical(lipgloss.Left,
		zone.Mark(zoneEditorPane, styles.Pane(m.editor.View(), "Code · "+m.cfg.Editor.Language(), l.rightWidth, l.editorHeight, m.focus == paneEditor)),
		zone.Mark(zoneShellPane, styles.Pane(m.shellView(), "Shell", l.rightWidth, l.shellHeight, m.focus == paneShell)),
		m.bottomRight(l),
	)

	// Scan before overlaying: the overlay cuts background lines apart.
	view := zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, sidebar, chat, right),
		m.help.View(m.keys),
	))

	if m.picker != nil {
		view = zone.Scan(m.picker.Overlay(view))
	}
	if m.toaster.Visible() {
		view = m.toaster.Overlay(view, m.width, m.height)
	}
	return view
}

func (m Model) bottomRight(l layout) string {
	if m.showLog {
		return styles.Pane(strings.Join(m.logLines, "\n"), "Log", l.rightWidth, l.chartHeight, false)
	}
	title := "Chart · " + string(m.cfg.Chart.Kind())
	return styles.Pane(m.cfg.Chart.Render(l.rightWidth-2), title, l.rightWidth, l.chartHeight, false)
}

func (m Model) chatTitle() string {
	active, ok := m.snapshot.Active()
	if !ok {
		return "Chat"
	}
	if active.DataSource != nil {
		return fmt.Sprintf("%s · %s", active.Title, active.DataSource.Name)
	}
	return active.Title
}

func (m Model) sessionList() string {
	now := time.Now()
	var b strings.Builder
	for i, s := range m.snapshot.Sessions {
		if i > 0 {
			b.WriteString("\n")
		}
		var entry strings.Builder
		marker := "  "
		title := s.Title
		if s.Active {
			marker = styles.SelectionIndicatorStyle.Render("> ")
			title = styles.ActiveSessionStyle.Render(title)
		}
		entry.WriteString(marker + title)
		if s.Pending > 0 {
			entry.WriteString(styles.PendingStyle.Render(" …"))
		}
		entry.WriteString("\n  " + styles.MutedStyle.Render(sessions.FormatAge(s.CreatedAt, now)))
		if s.Preview != "" {
			entry.WriteString("\n  " + styles.SecondaryStyle.Render(s.Preview))
		}
		b.WriteString(zone.Mark(sessionZoneID(s.ID), entry.String()))
	}
	if m.snapshot.State == sessions.StateAwaitingDataSourceChoice {
		b.WriteString("\n\n" + styles.PendingStyle.Render("Choosing data source..."))
	}
	return b.String()
}

func (m Model) chatLog(width int) string {
	parts := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		parts = append(parts, m.renderMessage(msg, width))
	}
	if active, ok := m.snapshot.Active(); ok && active.Pending > 0 {
		parts = append(parts, styles.PendingStyle.Render("assistant is typing..."))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg message.Message, width int) string {
	header := styles.SenderStyle(msg.Sender.String()).Render(msg.Sender.String()) +
		" " + styles.MutedStyle.Render(msg.Timestamp.Format("15:04"))

	body := msg.Content
	if msg.Sender == message.SenderAssistant && m.md != nil {
		body = strings.TrimRight(m.md.Render(body), "\n")
	} else {
		body = lipgloss.NewStyle().Width(max(width, 1)).Render(body)
	}
	return header + "\n" + body
}

func (m Model) shellView() string {
	lines := m.cfg.Shell.Lines()
	out := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		if strings.HasPrefix(line, "$ ") {
			out = append(out, styles.ShellPromptStyle.Render("$ ")+line[2:])
			continue
		}
		out = append(out, line)
	}
	out = append(out, m.shellInput.View())
	return strings.Join(out, "\n")
}
