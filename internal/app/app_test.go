package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/devdeck/internal/bus"
	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/pubsub"
	"github.com/zjrosen/devdeck/internal/responder"
	"github.com/zjrosen/devdeck/internal/sessions"
	"github.com/zjrosen/devdeck/internal/tasks"
	"github.com/zjrosen/devdeck/internal/ui/picker"
	"github.com/zjrosen/devdeck/internal/widgets"
	"github.com/zjrosen/devdeck/internal/workbench"
)

func newTestModel(t *testing.T, configPath string) Model {
	t.Helper()
	b := bus.New()
	wb := workbench.New(b, workbench.WithResponder(responder.Func(func(context.Context, string) (string, error) {
		return "ok", nil
	})))
	require.NoError(t, wb.Start())

	ctx := context.Background()
	group := tasks.New(ctx, 0)
	editor := widgets.NewEditor(ctx, b)
	shell := widgets.NewShell(ctx, b, group, widgets.WithConnectLatency(0))
	chart := widgets.NewChart(ctx, b)

	m := New(Config{
		Workbench:     wb,
		Editor:        editor,
		Shell:         shell,
		Chart:         chart,
		MarkdownStyle: "dark",
		ConfigPath:    configPath,
	})
	t.Cleanup(func() {
		m.Close()
		group.Close()
		editor.Close()
		shell.Close()
		chart.Close()
		wb.Close()
		b.Close()
	})
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// refresh feeds a fresh snapshot through Update.
func refresh(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, snapshotCmd(context.Background(), m.cfg.Workbench)())
	return m
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
	return m
}

func TestModel_SnapshotPopulatesView(t *testing.T) {
	m := refresh(t, sized(t, newTestModel(t, "")))

	require.Len(t, m.Snapshot().Sessions, 1)
	require.Equal(t, sessions.StateIdle, m.Snapshot().State)
	require.Len(t, m.Messages(), 1)
	require.False(t, m.Picking())

	view := m.View()
	require.Contains(t, view, "Sessions")
	require.Contains(t, view, sessions.DefaultTitle)
	require.Contains(t, view, "Shell")
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := newTestModel(t, "")
	require.Equal(t, "Loading...", m.View())
}

func TestModel_ChatEvents(t *testing.T) {
	m := refresh(t, newTestModel(t, ""))

	msg := message.User("hi")
	appended := pubsub.Event[message.Message]{Type: bus.MessageAppended, Payload: msg}
	m, _ = update(t, m, appended)
	m, _ = update(t, m, appended)
	require.Len(t, m.Messages(), 2, "duplicate appends are ignored")

	m, _ = update(t, m, pubsub.Event[message.Message]{Type: bus.MessagePosted, Payload: message.User("ignored")})
	require.Len(t, m.Messages(), 2)

	m, _ = update(t, m, pubsub.Event[message.Message]{Type: bus.LogCleared})
	require.Empty(t, m.Messages())
}

func TestModel_SendRoutesDirective(t *testing.T) {
	m := refresh(t, sized(t, newTestModel(t, "")))
	m.cfg.Shell.MarkReady()

	m.input.SetValue("  @shell ls  ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.Empty(t, m.input.Value())

	res, ok := cmd().(sentMsg)
	require.True(t, ok)
	require.NoError(t, res.err)
	require.Equal(t, 1, res.outcome.Routed)

	require.Eventually(t, func() bool {
		return slices.Contains(m.cfg.Shell.Lines(), "$ ls")
	}, time.Second, 10*time.Millisecond)
}

func TestModel_EmptyInputNotSent(t *testing.T) {
	m := newTestModel(t, "")
	m.input.SetValue("   ")
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
}

func TestModel_NewChatPickerCancel(t *testing.T) {
	m := refresh(t, sized(t, newTestModel(t, "")))

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Nil(t, cmd())
	m = refresh(t, m)
	require.True(t, m.Picking())
	require.Equal(t, sessions.StateAwaitingDataSourceChoice, m.Snapshot().State)
	require.Contains(t, m.View(), "Choosing data source")

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	m, cmd = update(t, m, cmd())
	require.Nil(t, cmd())

	m = refresh(t, m)
	require.False(t, m.Picking())
	require.Equal(t, sessions.StateIdle, m.Snapshot().State)
}

func TestModel_ConfirmCreatesSession(t *testing.T) {
	m := refresh(t, sized(t, newTestModel(t, "")))
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Nil(t, cmd())
	m = refresh(t, m)

	src := m.cfg.Workbench.Catalog().Sources()[0]
	m, cmd = update(t, m, picker.ConfirmMsg{SourceID: src.ID})
	res, ok := cmd().(confirmedMsg)
	require.True(t, ok)
	require.NoError(t, res.err)

	m, _ = update(t, m, res)
	require.True(t, m.toaster.Visible())
	require.Contains(t, m.toaster.Message(), res.summary.Title)

	m = refresh(t, m)
	require.False(t, m.Picking())
	require.Len(t, m.Snapshot().Sessions, 2)
	require.Equal(t, res.summary.ID, m.Snapshot().ActiveID)
}

func TestModel_ConfirmWithoutSourceShowsError(t *testing.T) {
	m := refresh(t, newTestModel(t, ""))
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Nil(t, cmd())

	m, cmd = update(t, m, picker.ConfirmMsg{})
	m, _ = update(t, m, cmd())
	require.True(t, m.toaster.Visible())
	require.Contains(t, m.toaster.Message(), "New chat failed")
}

func TestModel_SessionNavigation(t *testing.T) {
	m := refresh(t, newTestModel(t, ""))
	first := m.Snapshot().ActiveID

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	require.Nil(t, cmd, "a single session has no neighbour")

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Nil(t, cmd())
	src := m.cfg.Workbench.Catalog().Sources()[0]
	_, err := m.cfg.Workbench.ConfirmNewChat(context.Background(), src.ID, nil)
	require.NoError(t, err)
	m = refresh(t, m)
	require.NotEqual(t, first, m.Snapshot().ActiveID)

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	require.Nil(t, cmd())
	m = refresh(t, m)
	require.Equal(t, first, m.Snapshot().ActiveID)
}

func TestModel_FocusCycles(t *testing.T) {
	m := newTestModel(t, "")
	require.Equal(t, paneChat, m.focus)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, paneEditor, m.focus)
	require.True(t, m.editor.Focused())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, paneShell, m.focus)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, paneChat, m.focus)
	require.True(t, m.input.Focused())
}

func TestModel_ShellPaneExecutes(t *testing.T) {
	m := newTestModel(t, "")
	m.cfg.Shell.MarkReady()
	m.setFocus(paneShell)

	m.shellInput.SetValue("pwd")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Empty(t, m.shellInput.Value())
	cmd()

	require.Eventually(t, func() bool {
		return slices.Contains(m.cfg.Shell.Lines(), "$ pwd")
	}, time.Second, 10*time.Millisecond)
}

func TestModel_EditorFollowsWidget(t *testing.T) {
	m := newTestModel(t, "")
	m.cfg.Editor.MarkReady()
	m.cfg.Editor.SetContent("print('hi')")

	m, cmd := update(t, m, pubsub.Event[widgets.Change]{Payload: widgets.Change{Widget: "editor"}})
	require.NotNil(t, cmd)
	require.Equal(t, "print('hi')", m.editor.Value())
}

func TestModel_CycleChart(t *testing.T) {
	m := newTestModel(t, "")
	before := m.cfg.Chart.Kind()

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	require.NotNil(t, cmd)
	require.NotEqual(t, before, m.cfg.Chart.Kind())
	require.True(t, m.toaster.Visible())
	require.Contains(t, m.toaster.Message(), string(m.cfg.Chart.Kind()))
}

func TestSavePrefCmd(t *testing.T) {
	require.Nil(t, savePrefCmd("", "ui.chart_kind", "bar"))

	path := filepath.Join(t.TempDir(), "config.yaml")
	res, ok := savePrefCmd(path, "ui.chart_kind", "line")().(prefSavedMsg)
	require.True(t, ok)
	require.NoError(t, res.err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "chart_kind: line")
}

func TestModel_LogPaneOnlyInDebug(t *testing.T) {
	m := sized(t, newTestModel(t, ""))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	require.False(t, m.showLog)

	m.cfg.Debug = true
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	require.True(t, m.showLog)
	m.logLines = []string{"hello log"}
	require.Contains(t, m.View(), "hello log")
}

func TestApp_Teatest(t *testing.T) {
	m := newTestModel(t, "")
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(140, 40))

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte("Sessions")) && bytes.Contains(out, []byte(sessions.DefaultTitle))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final := tm.FinalModel(t).(Model)
	require.True(t, strings.Contains(final.View(), "Sessions"))
}
