package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/devdeck/internal/catalog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestPrintCatalog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printCatalog(&buf, catalog.Default()))

	out := buf.String()
	for _, src := range catalog.Default().Sources() {
		require.Contains(t, out, src.Name)
		require.Contains(t, out, src.ID)
		require.Contains(t, out, src.DisplayLocation())
	}
	require.Contains(t, out, "Widgets")
	require.Contains(t, out, "required")
}

func TestCatalogCommand_JSON(t *testing.T) {
	path := writeConfig(t, "ui:\n  chart_kind: bar\n")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"catalog", "--json", "--config", path})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		catalogJSON = false
		cfgFile = ""
	})
	require.NoError(t, rootCmd.Execute())

	var got catalog.Catalog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, len(catalog.Default().Categories), len(got.Categories))
}

func TestCatalogCommand_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "ui:\n  chart_kind: donut\n")

	rootCmd.SetArgs([]string{"catalog", "--config", path})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		cfgFile = ""
	})
	require.Error(t, rootCmd.Execute())
}

func TestNewStack(t *testing.T) {
	path := writeConfig(t, "ui:\n  chart_kind: line\nflags:\n  demo-sessions: true\n")
	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })

	cfg, used, cleanup, err := setup()
	require.NoError(t, err)
	defer cleanup()
	require.Equal(t, path, used)

	st, err := newStack(t.Context(), cfg, true)
	require.NoError(t, err)
	defer st.Close()

	require.Equal(t, "line", string(st.chart.Kind()))
	snap, err := st.workbench.Snapshot(t.Context())
	require.NoError(t, err)
	require.Greater(t, len(snap.Sessions), 1, "demo sessions are seeded")
}

func TestNewStack_Headless(t *testing.T) {
	path := writeConfig(t, "flags:\n  demo-sessions: false\n")
	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })

	cfg, _, cleanup, err := setup()
	require.NoError(t, err)
	defer cleanup()

	st, err := newStack(t.Context(), cfg, false)
	require.NoError(t, err)
	defer st.Close()

	require.Nil(t, st.editor)
	snap, err := st.workbench.Snapshot(t.Context())
	require.NoError(t, err)
	require.Len(t, snap.Sessions, 1)
}

func TestNewStack_BadCatalog(t *testing.T) {
	cat := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(cat, []byte("categories: [\n"), 0o600))
	path := writeConfig(t, "catalog:\n  path: "+cat+"\n")
	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })

	cfg, _, cleanup, err := setup()
	require.NoError(t, err)
	defer cleanup()

	_, err = newStack(t.Context(), cfg, false)
	require.ErrorContains(t, err, "loading catalog")
}
