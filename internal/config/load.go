package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/zjrosen/devdeck/internal/log"
)

// LocalConfigPath is checked before the user config directory and is where a
// default config is written when none exists.
const LocalConfigPath = ".devdeck/config.yaml"

// UserConfigDir returns ~/.config/devdeck, or "" if home is unavailable.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "devdeck")
}

// NewViper returns a viper instance with every default registered and
// DEVDECK_* environment overrides enabled (DEVDECK_SHELL_LATENCY, ...).
func NewViper() *viper.Viper {
	v := viper.New()
	d := Defaults()

	v.SetDefault("responder.latency", d.Responder.Latency)
	v.SetDefault("responder.cache_ttl", d.Responder.CacheTTL)
	v.SetDefault("shell.latency", d.Shell.Latency)
	v.SetDefault("shell.echo_to_chat", d.Shell.EchoToChat)
	v.SetDefault("catalog.path", d.Catalog.Path)
	v.SetDefault("catalog.watch", d.Catalog.Watch)
	v.SetDefault("gateway.addr", d.Gateway.Addr)
	v.SetDefault("relay.enabled", d.Relay.Enabled)
	v.SetDefault("relay.redis_url", d.Relay.RedisURL)
	v.SetDefault("relay.prefix", d.Relay.Prefix)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("ui.markdown_style", d.UI.MarkdownStyle)
	v.SetDefault("ui.chart_kind", d.UI.ChartKind)

	v.SetEnvPrefix("devdeck")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration into a Config.
//
// Lookup order when explicit is empty:
//  1. .devdeck/config.yaml (current directory)
//  2. ~/.config/devdeck/config.yaml
//
// When neither exists a commented default is written to
// .devdeck/config.yaml. Load returns the path that was read, or "" when
// running on defaults alone.
func Load(v *viper.Viper, explicit string) (Config, string, error) {
	switch {
	case explicit != "":
		v.SetConfigFile(explicit)
	case fileExists(LocalConfigPath):
		v.SetConfigFile(LocalConfigPath)
	default:
		if dir := UserConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return Config{}, "", fmt.Errorf("reading config: %w", err)
		}
		if writeErr := WriteDefaultConfig(LocalConfigPath); writeErr == nil {
			v.SetConfigFile(LocalConfigPath)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, "", fmt.Errorf("reading default config: %w", err)
			}
		} else {
			log.Warn(log.CatConfig, "running without a config file", "error", writeErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Tracing.FilePath == "" {
		cfg.Tracing.FilePath = DefaultTracesFilePath()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", fmt.Errorf("invalid configuration: %w", err)
	}

	used := v.ConfigFileUsed()
	log.Debug(log.CatConfig, "config loaded", "path", used)
	return cfg, used, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
