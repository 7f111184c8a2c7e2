package activity

import (
	"context"
	"slices"
	"strings"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "providers"

// Config controls activity emission defaults.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter normalizes provider events and hands them to its hooks.
type Emitter struct {
	hooks   Hooks
	channel string
}

// NewEmitter builds an emitter. It stays disabled when cfg.Enabled is false
// or no non-nil hook is given.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	live := slices.DeleteFunc(slices.Clone(hooks), func(hook ActivityHook) bool {
		return hook == nil
	})
	if !cfg.Enabled || len(live) == 0 {
		return &Emitter{}
	}
	return &Emitter{hooks: live, channel: strings.TrimSpace(cfg.Channel)}
}

// Enabled reports whether emissions reach any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && e.hooks.Enabled()
}

// Emit normalizes event against the emitter channel and notifies the hooks.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	return e.hooks.Notify(ctx, Normalize(event, e.channel))
}
