package riverpod

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
)

var providerSeq atomic.Uint64

// Factory produces the initial value of a provider. The ReadContext is bound
// to the scope that owns the resulting cell, so any provider read through it
// resolves from that scope.
type Factory[T any] func(ctx ReadContext) (T, error)

// Handle is the type-erased view of a provider. Every *Provider[T] satisfies
// it; the interface is sealed so cells can only be built by this package.
type Handle interface {
	ID() uint64
	Name() string
	ValueType() reflect.Type

	newElement(owner *Scope, key uint64, binding Override) element
}

// Provider is an immutable provider identity. Providers compare by identity
// only: two providers built from the same factory are distinct.
type Provider[T any] struct {
	id      uint64
	name    string
	factory Factory[T]

	slotOnce sync.Once
	slot     *Provider[T]
}

// ProviderOption configures a provider at construction time.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	name string
}

// WithProviderName sets the diagnostic name used in errors, logs and events.
func WithProviderName(name string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.name = name
	}
}

// NewProvider builds a provider identity around factory. A nil factory
// produces the zero value of T.
func NewProvider[T any](factory Factory[T], opts ...ProviderOption) *Provider[T] {
	cfg := providerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	id := providerSeq.Add(1)
	name := strings.TrimSpace(cfg.name)
	if name == "" {
		name = fmt.Sprintf("provider#%d", id)
	}
	return &Provider[T]{
		id:      id,
		name:    name,
		factory: factory,
	}
}

// ID returns the opaque identifier assigned at construction.
func (p *Provider[T]) ID() uint64 {
	if p == nil {
		return 0
	}
	return p.id
}

// Name returns the diagnostic name.
func (p *Provider[T]) Name() string {
	if p == nil {
		return "<nil>"
	}
	return p.name
}

// ValueType reports the static type produced by the provider.
func (p *Provider[T]) ValueType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (p *Provider[T]) String() string {
	return p.Name()
}

// OverrideWith binds p to replacement. Within the subtree of the scope that
// declares the binding, resolving p uses replacement's factory; the cell is
// still keyed by p.
func (p *Provider[T]) OverrideWith(replacement *Provider[T]) Override {
	return Override{
		origin:      handleOf(p),
		replacement: handleOf(replacement),
	}
}

// OverrideWithValue binds p to a fixed value. Every value binding for p shares
// one replacement identity, so reconfiguring a scope with a new value keeps
// the existing cell and its listeners and pushes the value through SetValue.
func (p *Provider[T]) OverrideWithValue(value T) Override {
	return Override{
		origin:      handleOf(p),
		replacement: handleOf(p.valueSlot()),
		value:       value,
		hasValue:    true,
	}
}

func (p *Provider[T]) valueSlot() *Provider[T] {
	if p == nil {
		return nil
	}
	p.slotOnce.Do(func() {
		p.slot = NewProvider[T](nil, WithProviderName(p.name+".value"))
	})
	return p.slot
}

func (p *Provider[T]) newElement(owner *Scope, key uint64, binding Override) element {
	return &cellElement[T]{
		scope:    owner,
		originID: key,
		provider: p,
		binding:  binding,
		cell:     newCell[T](p),
	}
}

func handleOf[T any](p *Provider[T]) Handle {
	if p == nil {
		return nil
	}
	return p
}

func isNilHandle(h Handle) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
