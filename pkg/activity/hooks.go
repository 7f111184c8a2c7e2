package activity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Event describes a provider lifecycle occurrence fanned out to hooks.
// IDs are strings so call sites are not coupled to a UUID type.
type Event struct {
	Verb       string
	ActorID    string
	TenantID   string
	ObjectType string
	ObjectID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Complete reports whether the event names a verb and an object.
func (e Event) Complete() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// ActivityHook receives activity events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []ActivityHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify delivers event to every hook, even after one fails. Failures are
// tagged with the hook position and joined. Incomplete events are dropped.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if !event.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	for i, hook := range h {
		if hook == nil {
			continue
		}
		if hookErr := hook.Notify(ctx, event); hookErr != nil {
			err = errors.Join(err, fmt.Errorf("activity: hook %d %s: %w", i, event.Verb, hookErr))
		}
	}
	return err
}
