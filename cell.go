package riverpod

import (
	"errors"
	"fmt"
	"slices"
)

// Cell is the observable value holder produced by materializing a provider.
// Listeners run synchronously, in insertion order, on every SetValue.
//
// Cells are not safe for concurrent use; the owning goroutine drives all
// reads, writes and disposal.
type Cell[T any] struct {
	provider    Handle
	value       T
	initialized bool
	disposed    bool
	listeners   []*listener[T]
	cleanups    []func() error
}

type listener[T any] struct {
	fn     func(T)
	active bool
}

func newCell[T any](provider Handle) *Cell[T] {
	return &Cell[T]{provider: provider}
}

// NewCell builds a standalone cell that is not owned by any scope.
func NewCell[T any](value T) *Cell[T] {
	c := newCell[T](nil)
	c.value = value
	c.initialized = true
	return c
}

// Provider returns the provider whose factory produced the cell, or nil for
// standalone cells.
func (c *Cell[T]) Provider() Handle {
	return c.provider
}

// Initialize stores the first value without notifying listeners.
func (c *Cell[T]) Initialize(value T) error {
	if c.disposed {
		return c.useAfterDispose()
	}
	if c.initialized {
		return fmt.Errorf("%w: %s", ErrDoubleInitialization, c.name())
	}
	c.value = value
	c.initialized = true
	return nil
}

// Value returns the current value.
func (c *Cell[T]) Value() (T, error) {
	var zero T
	if c.disposed {
		return zero, c.useAfterDispose()
	}
	if !c.initialized {
		return zero, fmt.Errorf("%w: %s", ErrNotInitialized, c.name())
	}
	return c.value, nil
}

// Initialized reports whether a value has been stored.
func (c *Cell[T]) Initialized() bool {
	return c.initialized
}

// Disposed reports whether Dispose has run.
func (c *Cell[T]) Disposed() bool {
	return c.disposed
}

// AddListener registers fn and returns a function that removes it. The
// returned function is idempotent and may be called at any time, including
// from inside a notification.
func (c *Cell[T]) AddListener(fn func(T)) (unsubscribe func()) {
	if fn == nil || c.disposed {
		return func() {}
	}
	l := &listener[T]{fn: fn, active: true}
	c.listeners = append(c.listeners, l)
	return func() {
		c.removeListener(l)
	}
}

// ListenerCount returns the number of attached listeners.
func (c *Cell[T]) ListenerCount() int {
	return len(c.listeners)
}

func (c *Cell[T]) removeListener(l *listener[T]) {
	if !l.active {
		return
	}
	l.active = false
	c.listeners = slices.DeleteFunc(c.listeners, func(candidate *listener[T]) bool {
		return candidate == l
	})
}

// SetValue replaces the current value and then notifies every listener with
// it. A listener removed during the pass is not called afterwards; the rest
// still are.
func (c *Cell[T]) SetValue(value T) error {
	if c.disposed {
		return c.useAfterDispose()
	}
	c.value = value
	c.initialized = true

	snapshot := slices.Clone(c.listeners)
	for _, l := range snapshot {
		if !l.active {
			continue
		}
		l.fn(value)
	}
	return nil
}

// Update applies fn to the current value and stores the result via SetValue.
func (c *Cell[T]) Update(fn func(T) T) error {
	current, err := c.Value()
	if err != nil {
		return err
	}
	return c.SetValue(fn(current))
}

// Dispose detaches every listener and runs cleanup callbacks in reverse
// registration order. Every callback runs even when earlier ones fail; their
// errors are joined. Disposing twice is a no-op.
func (c *Cell[T]) Dispose() error {
	if c.disposed {
		return nil
	}
	c.disposed = true
	for _, l := range c.listeners {
		l.active = false
	}
	c.listeners = nil

	cleanups := c.cleanups
	c.cleanups = nil
	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := runCleanup(cleanups[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Cell[T]) onDispose(fn func() error) {
	if fn == nil {
		return
	}
	c.cleanups = append(c.cleanups, fn)
}

func (c *Cell[T]) name() string {
	if isNilHandle(c.provider) {
		return "cell"
	}
	return c.provider.Name()
}

func (c *Cell[T]) useAfterDispose() error {
	return fmt.Errorf("%w: %s", ErrUseAfterDispose, c.name())
}

func runCleanup(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("riverpod: cleanup panicked: %v", r)
		}
	}()
	return fn()
}
