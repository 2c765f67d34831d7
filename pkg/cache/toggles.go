// Package cache holds the process-local state of the bot: per-guild feature
// toggles and short-lived lookup caches. Nothing here is authoritative.
package cache

import "github.com/puzpuzpuz/xsync/v3"

// GuildToggles is a concurrency-safe per-guild on/off switch. Guilds that were
// never set report the default.
type GuildToggles struct {
	values   *xsync.MapOf[string, bool]
	fallback bool
}

func NewGuildToggles(defaultValue bool) *GuildToggles {
	return &GuildToggles{values: xsync.NewMapOf[string, bool](), fallback: defaultValue}
}

// Enabled reports the toggle of a guild
func (t *GuildToggles) Enabled(guildID string) bool {
	if v, ok := t.values.Load(guildID); ok {
		return v
	}
	return t.fallback
}

func (t *GuildToggles) Set(guildID string, enabled bool) {
	t.values.Store(guildID, enabled)
}

// Toggle flips a guild and returns the new value
func (t *GuildToggles) Toggle(guildID string) bool {
	v, _ := t.values.Compute(guildID, func(old bool, loaded bool) (bool, bool) {
		if !loaded {
			old = t.fallback
		}
		return !old, false
	})
	return v
}

// Overrides returns the guilds whose toggle differs from the default
func (t *GuildToggles) Overrides() map[string]bool {
	out := make(map[string]bool)
	t.values.Range(func(k string, v bool) bool {
		if v != t.fallback {
			out[k] = v
		}
		return true
	})
	return out
}
