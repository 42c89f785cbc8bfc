package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/devdeck/internal/config"
	"github.com/zjrosen/devdeck/internal/dispatch"
	"github.com/zjrosen/devdeck/internal/widgets"
	"github.com/zjrosen/devdeck/internal/workbench"
)

type snapshotMsg struct {
	snap workbench.Snapshot
	err  error
}

type sentMsg struct {
	outcome dispatch.Outcome
	err     error
}

type confirmedMsg struct {
	summary workbench.SessionSummary
	err     error
}

// opErrMsg reports a failed workbench call that has no result of its own.
type opErrMsg struct {
	op  string
	err error
}

type prefSavedMsg struct {
	key string
	err error
}

type readyMsg struct{}

func snapshotCmd(ctx context.Context, wb *workbench.Workbench) tea.Cmd {
	return func() tea.Msg {
		snap, err := wb.Snapshot(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func sendCmd(ctx context.Context, wb *workbench.Workbench, text string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := wb.Send(ctx, text)
		return sentMsg{outcome: outcome, err: err}
	}
}

func confirmCmd(ctx context.Context, wb *workbench.Workbench, sourceID string, ids []string) tea.Cmd {
	return func() tea.Msg {
		summary, err := wb.ConfirmNewChat(ctx, sourceID, ids)
		return confirmedMsg{summary: summary, err: err}
	}
}

// opCmd runs a workbench call that only reports an error.
func opCmd(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return opErrMsg{op: op, err: err}
		}
		return nil
	}
}

func markReadyCmd(cfg Config) tea.Cmd {
	return func() tea.Msg {
		cfg.Editor.MarkReady()
		cfg.Shell.MarkReady()
		cfg.Chart.MarkReady()
		return readyMsg{}
	}
}

func savePrefCmd(path, key string, value any) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		return prefSavedMsg{key: key, err: config.SaveValue(path, key, value)}
	}
}

func runEditorCmd(e *widgets.Editor, content string) tea.Cmd {
	return func() tea.Msg {
		e.SetContent(content)
		e.Run()
		return nil
	}
}

func saveEditorCmd(e *widgets.Editor, content string) tea.Cmd {
	return func() tea.Msg {
		e.SetContent(content)
		e.Save()
		return nil
	}
}

func shellCmd(s *widgets.Shell, line string) tea.Cmd {
	return func() tea.Msg {
		s.Execute(line)
		return nil
	}
}
