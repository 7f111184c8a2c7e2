package riverpod

import (
	"errors"
	"reflect"
	"slices"
)

// element is the type-erased state a scope owns for one origin.
type element interface {
	key() uint64
	owner() *Scope
	originName() string
	source() Handle
	cellAny() any
	valueAny() (any, error)

	materialize(rc *readContext) error
	update(binding Override) (bool, error)
	onDispose(fn func() error)
	beginDispose() bool
	dispose() error

	graph() *edges
}

// edges records which elements were read while building an element
// (dependencies) and which elements read it (dependents).
type edges struct {
	dependents   []element
	dependencies []element
}

func (g *edges) graph() *edges {
	return g
}

func linkDependency(dependent, dependency element) {
	if dependent == nil || dependency == nil || dependent == dependency {
		return
	}
	dg := dependency.graph()
	if slices.Contains(dg.dependents, dependent) {
		return
	}
	dg.dependents = append(dg.dependents, dependent)
	g := dependent.graph()
	g.dependencies = append(g.dependencies, dependency)
}

func unlinkDependencies(el element) {
	g := el.graph()
	for _, dependency := range g.dependencies {
		dg := dependency.graph()
		dg.dependents = slices.DeleteFunc(dg.dependents, func(candidate element) bool {
			return candidate == el
		})
	}
	g.dependencies = nil
}

// disposeElement tears down el after every element that read it, removes it
// from its owning scope and reports the cleanup errors of the whole cascade.
func disposeElement(el element) error {
	if !el.beginDispose() {
		return nil
	}

	var errs []error
	g := el.graph()
	dependents := g.dependents
	g.dependents = nil
	for i := len(dependents) - 1; i >= 0; i-- {
		if err := disposeElement(dependents[i]); err != nil {
			errs = append(errs, err)
		}
	}
	unlinkDependencies(el)

	scope := el.owner()
	scope.forget(el)
	err := el.dispose()
	scope.record(LifecycleDisposed, el, err)
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type cellElement[T any] struct {
	edges

	scope    *Scope
	originID uint64
	provider *Provider[T]
	binding  Override
	cell     *Cell[T]
	closing  bool
}

func (e *cellElement[T]) key() uint64 {
	return e.originID
}

func (e *cellElement[T]) owner() *Scope {
	return e.scope
}

func (e *cellElement[T]) originName() string {
	if !isNilHandle(e.binding.origin) {
		return e.binding.origin.Name()
	}
	return e.provider.Name()
}

func (e *cellElement[T]) source() Handle {
	return e.provider
}

func (e *cellElement[T]) cellAny() any {
	return e.cell
}

func (e *cellElement[T]) valueAny() (any, error) {
	return e.cell.Value()
}

func (e *cellElement[T]) materialize(rc *readContext) error {
	var value T
	switch {
	case e.binding.hasValue:
		if v, ok := e.binding.value.(T); ok {
			value = v
		}
	case e.provider.factory != nil:
		v, err := e.provider.factory(rc)
		if err != nil {
			return err
		}
		value = v
	}
	return e.cell.Initialize(value)
}

// update is the reconciliation hook for a binding whose replacement kept its
// identity. Value bindings push the new value when it differs.
func (e *cellElement[T]) update(binding Override) (bool, error) {
	e.binding = binding
	if !binding.hasValue {
		return false, nil
	}
	next, _ := binding.value.(T)
	if current, err := e.cell.Value(); err == nil && reflect.DeepEqual(current, next) {
		return false, nil
	}
	return true, e.cell.SetValue(next)
}

func (e *cellElement[T]) onDispose(fn func() error) {
	e.cell.onDispose(fn)
}

func (e *cellElement[T]) beginDispose() bool {
	if e.closing {
		return false
	}
	e.closing = true
	return true
}

func (e *cellElement[T]) dispose() error {
	return e.cell.Dispose()
}
