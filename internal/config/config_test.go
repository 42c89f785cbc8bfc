package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.Equal(t, time.Second, cfg.Responder.Latency)
	require.Equal(t, 5*time.Minute, cfg.Responder.CacheTTL)
	require.Equal(t, time.Second, cfg.Shell.Latency)
	require.False(t, cfg.Shell.EchoToChat)
	require.Empty(t, cfg.Catalog.Path)
	require.Equal(t, "127.0.0.1:8787", cfg.Gateway.Addr)
	require.False(t, cfg.Relay.Enabled)
	require.Equal(t, "devdeck", cfg.Relay.Prefix)
	require.Equal(t, "file", cfg.Tracing.Exporter)
	require.Equal(t, "dark", cfg.UI.MarkdownStyle)
	require.Equal(t, "pie", cfg.UI.ChartKind)
	require.NoError(t, cfg.Validate())
}

func TestValidateResponder(t *testing.T) {
	require.NoError(t, ValidateResponder(ResponderConfig{}))
	require.ErrorContains(t, ValidateResponder(ResponderConfig{Latency: -time.Second}), "responder.latency")
	require.ErrorContains(t, ValidateResponder(ResponderConfig{CacheTTL: -time.Second}), "responder.cache_ttl")
}

func TestValidateShell(t *testing.T) {
	require.NoError(t, ValidateShell(ShellConfig{Latency: 0}))
	require.ErrorContains(t, ValidateShell(ShellConfig{Latency: -1}), "shell.latency")
}

func TestValidateGateway(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		wantErr bool
	}{
		{name: "none", origins: nil},
		{name: "wildcard", origins: []string{"*"}},
		{name: "origin", origins: []string{"http://localhost:5173", "https://deck.example.com"}},
		{name: "bare host", origins: []string{"localhost:5173"}, wantErr: true},
		{name: "path only", origins: []string{"/app"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGateway(GatewayConfig{AllowedOrigins: tt.origins})
			if tt.wantErr {
				require.ErrorContains(t, err, "gateway.allowed_origins")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateRelay(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RelayConfig
		wantErr string
	}{
		{name: "disabled ignores url", cfg: RelayConfig{RedisURL: "nope"}},
		{name: "redis", cfg: RelayConfig{Enabled: true, RedisURL: "redis://localhost:6379/0"}},
		{name: "rediss", cfg: RelayConfig{Enabled: true, RedisURL: "rediss://cache:6380"}},
		{name: "missing url", cfg: RelayConfig{Enabled: true}, wantErr: "required"},
		{name: "wrong scheme", cfg: RelayConfig{Enabled: true, RedisURL: "http://localhost"}, wantErr: "redis://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelay(tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateTracing(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TracingConfig
		wantErr string
	}{
		{name: "zero", cfg: TracingConfig{}},
		{name: "sample rate high", cfg: TracingConfig{SampleRate: 1.5}, wantErr: "sample_rate"},
		{name: "sample rate negative", cfg: TracingConfig{SampleRate: -0.1}, wantErr: "sample_rate"},
		{name: "unknown exporter", cfg: TracingConfig{Exporter: "jaeger"}, wantErr: "tracing.exporter"},
		{name: "file without path when disabled", cfg: TracingConfig{Exporter: "file"}},
		{name: "file without path", cfg: TracingConfig{Enabled: true, Exporter: "file"}, wantErr: "file_path"},
		{name: "otlp without endpoint", cfg: TracingConfig{Enabled: true, Exporter: "otlp"}, wantErr: "otlp_endpoint"},
		{name: "stdout", cfg: TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTracing(tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateUI(t *testing.T) {
	require.NoError(t, ValidateUI(UIConfig{}))
	require.NoError(t, ValidateUI(UIConfig{MarkdownStyle: "light", ChartKind: "line"}))
	require.ErrorContains(t, ValidateUI(UIConfig{MarkdownStyle: "neon"}), "ui.markdown_style")
	require.ErrorContains(t, ValidateUI(UIConfig{ChartKind: "donut"}), "ui.chart_kind")
}

func TestValidate_JoinsSectionErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Shell.Latency = -time.Second
	cfg.UI.ChartKind = "donut"

	err := cfg.Validate()
	require.ErrorContains(t, err, "shell.latency")
	require.ErrorContains(t, err, "ui.chart_kind")
}

func TestDefaultConfigTemplate_Parses(t *testing.T) {
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(DefaultConfigTemplate()), &raw))

	for _, key := range []string{"responder", "shell", "gateway", "relay", "ui", "flags"} {
		require.Contains(t, raw, key)
	}
	flags, ok := raw["flags"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, flags["demo-sessions"])
	require.Equal(t, false, flags["reply-to-origin"])
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
responder:
  latency: 250ms
shell:
  echo_to_chat: true
ui:
  chart_kind: bar
flags:
  reply-to-origin: true
`), 0o600))

	cfg, used, err := Load(NewViper(), path)
	require.NoError(t, err)
	require.Equal(t, path, used)
	require.Equal(t, 250*time.Millisecond, cfg.Responder.Latency)
	require.Equal(t, 5*time.Minute, cfg.Responder.CacheTTL, "unset keys keep defaults")
	require.True(t, cfg.Shell.EchoToChat)
	require.Equal(t, "bar", cfg.UI.ChartKind)
	require.True(t, cfg.Flags["reply-to-origin"])
	require.NotEmpty(t, cfg.Tracing.FilePath)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shell:\n  latency: 1s\n"), 0o600))
	t.Setenv("DEVDECK_SHELL_LATENCY", "3s")

	cfg, _, err := Load(NewViper(), path)
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.Shell.Latency)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ui:\n  markdown_style: neon\n"), 0o600))

	_, _, err := Load(NewViper(), path)
	require.ErrorContains(t, err, "invalid configuration")
	require.ErrorContains(t, err, "ui.markdown_style")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, _, err := Load(NewViper(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "reading config")
}
