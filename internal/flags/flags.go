// Package flags provides feature flags read from the flags: config section.
// Flags are read-only after initialization and unknown flags are off.
package flags

import (
	"maps"
	"slices"

	"github.com/zjrosen/devdeck/internal/log"
)

const (
	// FlagReplyToOrigin delivers an assistant reply to the session that asked
	// for it, even when another session is active by the time it arrives.
	FlagReplyToOrigin = "reply-to-origin"

	// FlagDemoSessions seeds sample sessions with history below the default one.
	FlagDemoSessions = "demo-sessions"
)

// Defaults returns the value of every known flag when config is silent.
func Defaults() map[string]bool {
	return map[string]bool{
		FlagReplyToOrigin: false,
		FlagDemoSessions:  true,
	}
}

// Known returns the names of all known flags, sorted.
func Known() []string {
	return slices.Sorted(maps.Keys(Defaults()))
}

// Registry holds feature flag state loaded from configuration.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map layered over Defaults.
// A nil map gives the defaults.
func New(overrides map[string]bool) *Registry {
	flags := Defaults()
	maps.Copy(flags, overrides)
	for name := range overrides {
		if !slices.Contains(Known(), name) {
			log.Warn(log.CatConfig, "unknown feature flag in config", "flag", name)
		}
	}
	r := &Registry{flags: flags}
	log.Debug(log.CatConfig, "feature flags initialized", "count", len(flags), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is on. Unknown flags and a nil
// registry report false.
func (r *Registry) Enabled(name string) bool {
	if r == nil || r.flags == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "unknown flag accessed", "flag", name, "result", false)
		return false
	}
	return value
}

// All returns a copy of all flags.
func (r *Registry) All() map[string]bool {
	if r == nil || r.flags == nil {
		return make(map[string]bool)
	}
	result := make(map[string]bool, len(r.flags))
	maps.Copy(result, r.flags)
	return result
}
