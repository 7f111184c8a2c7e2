package riverpod

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrMissingScope indicates resolution was attempted without an enclosing scope.
	ErrMissingScope = errors.New("riverpod: no enclosing scope")
	// ErrScopeDisposed indicates the scope was already torn down.
	ErrScopeDisposed = errors.New("riverpod: scope disposed")
	// ErrUnknownScope indicates a tree lookup for an unregistered scope ID.
	ErrUnknownScope = errors.New("riverpod: unknown scope")
	// ErrNilProvider indicates a nil provider was passed where one is required.
	ErrNilProvider = errors.New("riverpod: provider must not be nil")
	// ErrDoubleInitialization indicates a cell was initialized twice.
	ErrDoubleInitialization = errors.New("riverpod: cell already initialized")
	// ErrNotInitialized indicates a cell value was read before initialization.
	ErrNotInitialized = errors.New("riverpod: cell not initialized")
	// ErrUseAfterDispose indicates a disposed cell was used.
	ErrUseAfterDispose = errors.New("riverpod: cell used after dispose")
	// ErrCircularDependency indicates a provider transitively depends on itself.
	ErrCircularDependency = errors.New("riverpod: circular provider dependency")
	// ErrTypeMismatch indicates a provider value type does not match the
	// type requested or the type of the origin it overrides.
	ErrTypeMismatch = errors.New("riverpod: type mismatch")
	// ErrDuplicateOverride indicates one override list names the same origin twice.
	ErrDuplicateOverride = errors.New("riverpod: origin overridden more than once")
	// ErrSelfOverride indicates an origin was overridden with itself.
	ErrSelfOverride = errors.New("riverpod: provider overridden with itself")
)

// ProviderError captures the provider and scope involved in a failed
// materialization alongside the originating error.
type ProviderError struct {
	Provider string
	Scope    string
	Err      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("riverpod: create %s scope=%s: %v", e.Provider, e.Scope, e.Err)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CircularDependencyError lists the providers forming a dependency cycle,
// starting and ending with the provider that was re-entered.
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v: %s", ErrCircularDependency, strings.Join(e.Chain, " --> "))
}

func (e *CircularDependencyError) Unwrap() error {
	return ErrCircularDependency
}

func wrapProviderError(provider, scope string, err error) error {
	if err == nil {
		return nil
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return err
	}
	var cycleErr *CircularDependencyError
	if errors.As(err, &cycleErr) {
		return err
	}
	return &ProviderError{Provider: provider, Scope: scope, Err: err}
}

func typeMismatch(name string, want, got reflect.Type) error {
	return fmt.Errorf("%w: %s: want %s, got %s", ErrTypeMismatch, name, typeName(want), typeName(got))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
