package app

import (
	"context"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	os.Exit(m.Run())
}

// clickOn renders m until the zone id is registered and returns a left
// click inside it.
func clickOn(t *testing.T, m Model, id string) tea.MouseMsg {
	t.Helper()
	var z *zone.ZoneInfo
	require.Eventually(t, func() bool {
		_ = m.View()
		z = zone.Get(id)
		return z != nil && !z.IsZero()
	}, time.Second, time.Millisecond, "zone %s never registered", id)
	return tea.MouseMsg{X: z.StartX + 1, Y: z.StartY, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease}
}

func withSecondSession(t *testing.T, m Model) (Model, string) {
	t.Helper()
	first := m.Snapshot().ActiveID
	wb := m.cfg.Workbench
	require.NoError(t, wb.RequestNewChat(context.Background()))
	_, err := wb.ConfirmNewChat(context.Background(), wb.Catalog().Sources()[0].ID, nil)
	require.NoError(t, err)
	m = refresh(t, m)
	require.NotEqual(t, first, m.Snapshot().ActiveID)
	return m, first
}

func TestModel_ClickSessionSelectsIt(t *testing.T) {
	m := refresh(t, sized(t, newTestModel(t, "")))
	m, first := withSecondSession(t, m)

	m, cmd := update(t, m, clickOn(t, m, sessionZoneID(first)))
	require.NotNil(t, cmd)
	require.Nil(t, cmd())

	m = refresh(t, m)
	require.Equal(t, first, m.Snapshot().ActiveID)

	_, cmd = update(t, m, clickOn(t, m, sessionZoneID(first)))
	require.Nil(t, cmd, "clicking the active session does nothing")
}

func TestModel_ClickPaneFocuses(t *testing.T) {
	m := sized(t, newTestModel(t, ""))

	m, _ = update(t, m, clickOn(t, m, zoneEditorPane))
	require.Equal(t, paneEditor, m.focus)
	require.True(t, m.editor.Focused())

	m, _ = update(t, m, clickOn(t, m, zoneShellPane))
	require.Equal(t, paneShell, m.focus)

	m, _ = update(t, m, clickOn(t, m, zoneChatPane))
	require.Equal(t, paneChat, m.focus)
}

func TestModel_PickerTakesClicksWhileOpen(t *testing.T) {
	m := refresh(t, sized(t, newTestModel(t, "")))
	m, first := withSecondSession(t, m)
	click := clickOn(t, m, sessionZoneID(first))

	require.NoError(t, m.cfg.Workbench.RequestNewChat(context.Background()))
	m = refresh(t, m)
	require.True(t, m.Picking())

	m, cmd := update(t, m, click)
	require.Nil(t, cmd, "clicks outside the picker rows are ignored")
	require.True(t, m.Picking())
	m = refresh(t, m)
	require.NotEqual(t, first, m.Snapshot().ActiveID)
}
