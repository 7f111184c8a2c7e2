package riverpod

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
)

// ReadContext is handed to a provider factory. It resolves other providers
// from the scope that owns the cell being built and records the dependency,
// so the cell is torn down before anything it read.
type ReadContext interface {
	// Scope returns the scope that owns the cell under construction.
	Scope() *Scope
	// OnDispose registers fn to run when the cell is disposed.
	OnDispose(fn func() error)

	read(h Handle) (element, error)
}

type readContext struct {
	scope   *Scope
	element element
}

func (rc *readContext) Scope() *Scope {
	return rc.scope
}

func (rc *readContext) OnDispose(fn func() error) {
	rc.element.onDispose(fn)
}

func (rc *readContext) read(h Handle) (element, error) {
	dependency, err := rc.scope.resolve(h)
	if err != nil {
		return nil, err
	}
	linkDependency(rc.element, dependency)
	return dependency, nil
}

// Resolve finds or lazily creates the cell applicable to p when resolved from
// s. Repeated calls return the same cell until the configuration of the chain
// changes.
func Resolve[T any](s *Scope, p *Provider[T]) (*Cell[T], error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	if s == nil {
		return nil, fmt.Errorf("%w: resolving %s", ErrMissingScope, p.Name())
	}
	el, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	return cellOf[T](el, p)
}

// Lookup resolves a type-erased handle and returns its cell typed as T,
// failing with ErrTypeMismatch when the handle produces another type.
func Lookup[T any](s *Scope, h Handle) (*Cell[T], error) {
	if isNilHandle(h) {
		return nil, ErrNilProvider
	}
	if s == nil {
		return nil, fmt.Errorf("%w: resolving %s", ErrMissingScope, h.Name())
	}
	el, err := s.resolve(h)
	if err != nil {
		return nil, err
	}
	return cellOf[T](el, h)
}

// ResolveValue resolves h from s and returns the current value untyped.
func ResolveValue(s *Scope, h Handle) (any, error) {
	if isNilHandle(h) {
		return nil, ErrNilProvider
	}
	if s == nil {
		return nil, fmt.Errorf("%w: resolving %s", ErrMissingScope, h.Name())
	}
	el, err := s.resolve(h)
	if err != nil {
		return nil, err
	}
	return el.valueAny()
}

// Read resolves p from inside a factory and returns its current value.
func Read[T any](ctx ReadContext, p *Provider[T]) (T, error) {
	var zero T
	cell, err := ReadCell(ctx, p)
	if err != nil {
		return zero, err
	}
	return cell.Value()
}

// ReadCell resolves p from inside a factory and returns its cell, for
// factories that want to listen to the dependency.
func ReadCell[T any](ctx ReadContext, p *Provider[T]) (*Cell[T], error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	if ctx == nil {
		return nil, fmt.Errorf("%w: resolving %s", ErrMissingScope, p.Name())
	}
	el, err := ctx.read(p)
	if err != nil {
		return nil, err
	}
	return cellOf[T](el, p)
}

// ReadValue resolves a type-erased handle from inside a factory.
func ReadValue(ctx ReadContext, h Handle) (any, error) {
	if isNilHandle(h) {
		return nil, ErrNilProvider
	}
	if ctx == nil {
		return nil, fmt.Errorf("%w: resolving %s", ErrMissingScope, h.Name())
	}
	el, err := ctx.read(h)
	if err != nil {
		return nil, err
	}
	return el.valueAny()
}

func cellOf[T any](el element, h Handle) (*Cell[T], error) {
	cell, ok := el.cellAny().(*Cell[T])
	if !ok {
		return nil, typeMismatch(h.Name(), reflect.TypeOf((*T)(nil)).Elem(), el.source().ValueType())
	}
	return cell, nil
}

// resolve walks the chain: a cell already owned for the origin wins, then a
// declared override materializes its replacement here keyed by the origin,
// and at the root the origin's own factory is the fallback.
func (s *Scope) resolve(h Handle) (element, error) {
	key := h.ID()
	for node := s; node != nil; node = node.parent {
		if node.disposed {
			return nil, fmt.Errorf("%w: %s", ErrScopeDisposed, node.name)
		}
		if el, ok := node.elements[key]; ok {
			return el, nil
		}
		if ov, ok := node.byOrigin[key]; ok {
			return node.materialize(key, ov.replacement, ov)
		}
		if node.parent == nil {
			return node.materialize(key, h, Override{})
		}
	}
	return nil, fmt.Errorf("%w: resolving %s", ErrMissingScope, h.Name())
}

func (s *Scope) materialize(key uint64, source Handle, binding Override) (element, error) {
	pk := pendingKey{scope: s, key: key}
	if s.tracker.inProgress(pk) {
		return nil, s.tracker.cycle(pk, source.Name())
	}
	s.tracker.push(pk, source.Name())
	defer s.tracker.pop(pk)

	el := source.newElement(s, key, binding)
	rc := &readContext{scope: s, element: el}
	if err := el.materialize(rc); err != nil {
		unlinkDependencies(el)
		el.beginDispose()
		if cleanupErr := el.dispose(); cleanupErr != nil {
			err = errors.Join(err, cleanupErr)
		}
		return nil, wrapProviderError(el.originName(), s.name, err)
	}

	s.adopt(el)
	s.record(LifecycleCreated, el, nil)
	return el, nil
}

type pendingKey struct {
	scope *Scope
	key   uint64
}

// resolution tracks the cells under construction across one scope tree.
type resolution struct {
	pending map[pendingKey]int
	stack   []string
}

func newResolution() *resolution {
	return &resolution{pending: map[pendingKey]int{}}
}

func (r *resolution) inProgress(pk pendingKey) bool {
	_, ok := r.pending[pk]
	return ok
}

func (r *resolution) push(pk pendingKey, name string) {
	r.pending[pk] = len(r.stack)
	r.stack = append(r.stack, name)
}

func (r *resolution) pop(pk pendingKey) {
	idx, ok := r.pending[pk]
	if !ok {
		return
	}
	delete(r.pending, pk)
	r.stack = r.stack[:idx]
}

func (r *resolution) cycle(pk pendingKey, name string) error {
	idx := r.pending[pk]
	chain := append(slices.Clone(r.stack[idx:]), name)
	return &CircularDependencyError{Chain: chain}
}
