package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/devdeck/internal/bus"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/payload"
	"github.com/zjrosen/devdeck/internal/pubsub"
	"github.com/zjrosen/devdeck/internal/ui/markdown"
	"github.com/zjrosen/devdeck/internal/ui/picker"
	"github.com/zjrosen/devdeck/internal/ui/toaster"
	"github.com/zjrosen/devdeck/internal/widgets"
	"github.com/zjrosen/devdeck/internal/workbench"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.toaster = m.toaster.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case pubsub.Event[message.Message]:
		m.handleChat(msg)
		return m, m.chatListener.Listen()

	case pubsub.Event[any]:
		switch msg.Payload.(type) {
		case workbench.SessionsChanged, workbench.StateChanged, workbench.ReplyPending:
			return m, tea.Batch(m.eventListener.Listen(), snapshotCmd(m.ctx, m.cfg.Workbench))
		}
		return m, m.eventListener.Listen()

	case pubsub.Event[widgets.Change]:
		return m, m.handleWidgetChange(msg.Payload)

	case log.LogEvent:
		m.logLines = append(m.logLines, msg.Payload.String())
		if len(m.logLines) > maxLogLines {
			m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
		}
		return m, m.logListener.Listen()

	case snapshotMsg:
		if msg.err != nil {
			return m.toast(fmt.Sprintf("Refresh failed: %v", msg.err), toaster.StyleError)
		}
		m.applySnapshot(msg.snap)
		return m, nil

	case sentMsg:
		if msg.err != nil {
			return m.toast(fmt.Sprintf("Send failed: %v", msg.err), toaster.StyleError)
		}
		if msg.outcome.Failed > 0 {
			return m.toast(fmt.Sprintf("%d directive(s) could not be routed", msg.outcome.Failed), toaster.StyleWarn)
		}
		return m, nil

	case confirmedMsg:
		if msg.err != nil {
			return m.toast(fmt.Sprintf("New chat failed: %v", msg.err), toaster.StyleError)
		}
		return m.toast("Started "+msg.summary.Title, toaster.StyleSuccess)

	case opErrMsg:
		log.ErrorErr(log.CatUI, "workbench call failed", msg.err, "op", msg.op)
		return m.toast(fmt.Sprintf("%s failed: %v", msg.op, msg.err), toaster.StyleError)

	case prefSavedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatConfig, "saving preference failed", msg.err, "key", msg.key)
			return m.toast("Could not save "+msg.key, toaster.StyleWarn)
		}
		return m, nil

	case picker.ConfirmMsg:
		return m, confirmCmd(m.ctx, m.cfg.Workbench, msg.SourceID, msg.Widgets)

	case picker.CancelMsg:
		wb := m.cfg.Workbench
		return m, opCmd("Cancel", func() error { return wb.CancelNewChat(m.ctx) })

	case readyMsg:
		m.editor.SetValue(m.cfg.Editor.Content())
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.picker != nil {
		p, cmd := m.picker.Update(msg)
		m.picker = &p
		return m, cmd
	}

	wb := m.cfg.Workbench
	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.ToggleLog):
		if m.cfg.Debug {
			m.showLog = !m.showLog
		}
		return m, nil
	case key.Matches(msg, m.keys.NewChat):
		return m, opCmd("New chat", func() error { return wb.RequestNewChat(m.ctx) })
	case key.Matches(msg, m.keys.NextPane):
		m.setFocus((m.focus + 1) % paneCount)
		return m, nil
	case key.Matches(msg, m.keys.PrevPane):
		m.setFocus((m.focus + paneCount - 1) % paneCount)
		return m, nil
	case key.Matches(msg, m.keys.PrevSession):
		return m, m.selectNeighbor(-1)
	case key.Matches(msg, m.keys.NextSession):
		return m, m.selectNeighbor(1)
	case key.Matches(msg, m.keys.CycleChart):
		return m.cycleChart()
	}

	var cmd tea.Cmd
	switch m.focus {
	case paneChat:
		if key.Matches(msg, m.keys.Send) {
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			return m, sendCmd(m.ctx, wb, text)
		}
		m.input, cmd = m.input.Update(msg)
	case paneEditor:
		switch {
		case key.Matches(msg, m.keys.Run):
			return m, runEditorCmd(m.cfg.Editor, m.editor.Value())
		case key.Matches(msg, m.keys.Save):
			return m, saveEditorCmd(m.cfg.Editor, m.editor.Value())
		}
		m.editor, cmd = m.editor.Update(msg)
	case paneShell:
		if msg.Type == tea.KeyEnter {
			line := strings.TrimSpace(m.shellInput.Value())
			if line == "" {
				return m, nil
			}
			m.shellInput.Reset()
			return m, shellCmd(m.cfg.Shell, line)
		}
		m.shellInput, cmd = m.shellInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleChat(ev pubsub.Event[message.Message]) {
	switch ev.Type {
	case bus.LogCleared:
		m.messages = nil
	case bus.MessageAppended:
		if !m.hasMessage(ev.Payload.ID) {
			m.messages = append(m.messages, ev.Payload)
		}
	}
}

func (m Model) hasMessage(id string) bool {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].ID == id {
			return true
		}
	}
	return false
}

func (m *Model) handleWidgetChange(c widgets.Change) tea.Cmd {
	switch c.Widget {
	case payload.TargetEditor:
		if v := m.cfg.Editor.Content(); v != m.editor.Value() {
			m.editor.SetValue(v)
		}
		return m.editorListener.Listen()
	case payload.TargetShell:
		return m.shellListener.Listen()
	case payload.TargetVisualization:
		return m.chartListener.Listen()
	}
	return nil
}

func (m *Model) applySnapshot(snap workbench.Snapshot) {
	m.snapshot = snap
	m.messages = snap.Messages

	switch {
	case m.awaiting() && m.picker == nil:
		p := picker.New(m.cfg.Workbench.Catalog()).SetSize(m.width, m.height)
		m.picker = &p
	case !m.awaiting():
		m.picker = nil
	}
}

func (m *Model) setFocus(p pane) {
	m.focus = p
	m.input.Blur()
	m.shellInput.Blur()
	m.editor.Blur()
	switch p {
	case paneChat:
		m.input.Focus()
	case paneEditor:
		m.editor.Focus()
	case paneShell:
		m.shellInput.Focus()
	}
}

// handleMouse routes left clicks: the picker takes them while open,
// otherwise a session row switches sessions and a pane takes focus.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.picker != nil {
		p, cmd := m.picker.Update(msg)
		m.picker = &p
		return m, cmd
	}
	if msg.Button != tea.MouseButtonLeft || msg.Action != tea.MouseActionRelease {
		return m, nil
	}

	for _, s := range m.snapshot.Sessions {
		if z := zone.Get(sessionZoneID(s.ID)); z != nil && z.InBounds(msg) {
			if s.ID == m.snapshot.ActiveID {
				return m, nil
			}
			wb, id := m.cfg.Workbench, s.ID
			return m, opCmd("Switch session", func() error { return wb.SelectSession(m.ctx, id) })
		}
	}
	for p, id := range paneZones {
		if z := zone.Get(id); z != nil && z.InBounds(msg) {
			m.setFocus(pane(p))
			return m, nil
		}
	}
	return m, nil
}

func (m Model) selectNeighbor(delta int) tea.Cmd {
	list := m.snapshot.Sessions
	if len(list) < 2 {
		return nil
	}
	idx := 0
	for i, s := range list {
		if s.ID == m.snapshot.ActiveID {
			idx = i
			break
		}
	}
	next := list[(idx+delta+len(list))%len(list)].ID
	wb := m.cfg.Workbench
	return opCmd("Switch session", func() error { return wb.SelectSession(m.ctx, next) })
}

func (m Model) cycleChart() (tea.Model, tea.Cmd) {
	current := m.cfg.Chart.Kind()
	next := widgets.ChartKinds[0]
	for i, k := range widgets.ChartKinds {
		if k == current {
			next = widgets.ChartKinds[(i+1)%len(widgets.ChartKinds)]
			break
		}
	}
	m.cfg.Chart.SetKind(next)

	m2, toast := m.toast("Chart: "+string(next), toaster.StyleInfo)
	return m2, tea.Batch(toast, savePrefCmd(m.cfg.ConfigPath, "ui.chart_kind", string(next)))
}

func (m Model) toast(text string, style toaster.Style) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.toaster, cmd = m.toaster.Show(text, style)
	return m, cmd
}

func (m *Model) resize() {
	l := m.layout()
	m.input.Width = max(l.chatWidth-6, 10)
	m.shellInput.Width = max(l.rightWidth-6, 10)
	m.editor.SetWidth(max(l.rightWidth-2, 10))
	m.editor.SetHeight(max(l.editorHeight-2, 1))

	if m.picker != nil {
		p := m.picker.SetSize(m.width, m.height)
		m.picker = &p
	}

	mdWidth := max(l.chatWidth-4, 20)
	if m.md == nil || m.mdWidth != mdWidth {
		r, err := markdown.New(m.cfg.MarkdownStyle, mdWidth)
		if err != nil {
			log.ErrorErr(log.CatUI, "markdown renderer", err)
			return
		}
		m.md, m.mdWidth = r, mdWidth
	}
}
