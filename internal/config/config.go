// Package config provides configuration types and defaults for devdeck.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/devdeck/internal/log"
)

// Config holds all configuration options for devdeck.
type Config struct {
	Responder ResponderConfig `mapstructure:"responder"`
	Shell     ShellConfig     `mapstructure:"shell"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	UI        UIConfig        `mapstructure:"ui"`
	Flags     map[string]bool `mapstructure:"flags"`
}

// ResponderConfig controls the scripted assistant.
type ResponderConfig struct {
	// Latency is the simulated time to produce a reply.
	// Default: 1s
	Latency time.Duration `mapstructure:"latency"`

	// CacheTTL memoises replies per normalised input. 0 disables the cache.
	// Default: 5m
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// ShellConfig controls the simulated shell widget.
type ShellConfig struct {
	Latency    time.Duration `mapstructure:"latency"`      // kafka/grpc connect time (default: 1s)
	EchoToChat bool          `mapstructure:"echo_to_chat"` // post "Command executed: <cmd>" to chat
}

// CatalogConfig points at an optional data-source catalog override.
type CatalogConfig struct {
	// Path to a YAML catalog. Empty uses the built-in catalog.
	Path string `mapstructure:"path"`

	// Watch reloads the catalog when Path changes on disk.
	Watch bool `mapstructure:"watch"`
}

// GatewayConfig holds the WebSocket gateway settings used by `devdeck serve`.
type GatewayConfig struct {
	// Addr is the listen address.
	// Default: "127.0.0.1:8787"
	Addr string `mapstructure:"addr"`

	// AllowedOrigins lists browser origins allowed to connect. Empty allows
	// same-origin requests only; "*" allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RelayConfig mirrors bus traffic onto Redis pub/sub.
type RelayConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	RedisURL string `mapstructure:"redis_url"` // e.g. redis://localhost:6379/0
	Prefix   string `mapstructure:"prefix"`    // channel name prefix (default: "devdeck")
}

// TracingConfig holds distributed tracing configuration for the command
// processor.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/devdeck/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// UIConfig holds user interface configuration options.
type UIConfig struct {
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark" (default) or "light"
	ChartKind     string `mapstructure:"chart_kind"`     // "pie" (default), "bar" or "line"
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/devdeck/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "devdeck", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Responder: ResponderConfig{
			Latency:  time.Second,
			CacheTTL: 5 * time.Minute,
		},
		Shell: ShellConfig{
			Latency: time.Second,
		},
		Gateway: GatewayConfig{
			Addr: "127.0.0.1:8787",
		},
		Relay: RelayConfig{
			RedisURL: "redis://localhost:6379/0",
			Prefix:   "devdeck",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from home dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		UI: UIConfig{
			MarkdownStyle: "dark",
			ChartKind:     "pie",
		},
	}
}

// Validate runs every section validator and joins their errors.
func (c Config) Validate() error {
	return errors.Join(
		ValidateResponder(c.Responder),
		ValidateShell(c.Shell),
		ValidateGateway(c.Gateway),
		ValidateRelay(c.Relay),
		ValidateTracing(c.Tracing),
		ValidateUI(c.UI),
	)
}

// ValidateResponder checks responder configuration for errors.
func ValidateResponder(r ResponderConfig) error {
	if r.Latency < 0 {
		return fmt.Errorf("responder.latency must not be negative, got %s", r.Latency)
	}
	if r.CacheTTL < 0 {
		return fmt.Errorf("responder.cache_ttl must not be negative, got %s", r.CacheTTL)
	}
	return nil
}

// ValidateShell checks shell configuration for errors.
func ValidateShell(s ShellConfig) error {
	if s.Latency < 0 {
		return fmt.Errorf("shell.latency must not be negative, got %s", s.Latency)
	}
	return nil
}

// ValidateGateway checks gateway configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateGateway(g GatewayConfig) error {
	for i, origin := range g.AllowedOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("gateway.allowed_origins[%d] must be a scheme://host origin or \"*\", got %q", i, origin)
		}
	}
	return nil
}

// ValidateRelay checks relay configuration for errors. The Redis URL is only
// checked when the relay is enabled.
func ValidateRelay(r RelayConfig) error {
	if !r.Enabled {
		return nil
	}
	if r.RedisURL == "" {
		return fmt.Errorf("relay.redis_url is required when relay is enabled")
	}
	u, err := url.Parse(r.RedisURL)
	if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
		return fmt.Errorf("relay.redis_url must be a redis:// or rediss:// URL, got %q", r.RedisURL)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// ValidateUI checks UI configuration for errors.
func ValidateUI(ui UIConfig) error {
	switch ui.MarkdownStyle {
	case "", "dark", "light":
	default:
		return fmt.Errorf("ui.markdown_style must be \"dark\" or \"light\", got %q", ui.MarkdownStyle)
	}
	switch ui.ChartKind {
	case "", "pie", "bar", "line":
	default:
		return fmt.Errorf("ui.chart_kind must be \"pie\", \"bar\" or \"line\", got %q", ui.ChartKind)
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# devdeck configuration

# Scripted assistant
responder:
  latency: 1s       # simulated reply time
  cache_ttl: 5m     # reuse replies for identical questions (0 disables)

# Simulated shell widget
shell:
  latency: 1s           # kafka / grpc connection time
  echo_to_chat: false   # post "Command executed: <cmd>" to chat

# Data-source catalog shown when starting a new chat
# catalog:
#   path: ~/.config/devdeck/catalog.yaml   # override the built-in catalog
#   watch: true                            # reload when the file changes

# WebSocket gateway for browser widgets (devdeck serve)
gateway:
  addr: 127.0.0.1:8787
  # allowed_origins:
  #   - http://localhost:5173

# Mirror bus traffic onto Redis pub/sub (devdeck serve)
relay:
  enabled: false
  redis_url: redis://localhost:6379/0
  prefix: devdeck

# UI settings
ui:
  markdown_style: dark   # "dark" or "light"
  chart_kind: pie        # "pie", "bar" or "line"

# Command tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/devdeck/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)

# Feature flags
flags:
  demo-sessions: true      # seed sample sessions with history
  reply-to-origin: false   # deliver late replies to the session that asked
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
