package riverpod

import (
	"errors"
	"fmt"
	"slices"
)

// reconcilePlan is the outcome of diffing two override sets against the
// origins a scope currently holds cells for.
type reconcilePlan struct {
	// updates keep the cell and hand it a binding carrying a new value.
	updates []Override
	// rebinds keep the cell and hand it the new binding reference; the
	// materialized state is unchanged.
	rebinds []Override
	// disposals lists origins whose cells must be torn down, in the order
	// they were materialized.
	disposals []uint64
	// added and removed list origins whose override appeared or vanished,
	// regardless of whether a cell exists.
	added   []uint64
	removed []uint64
}

func (p reconcilePlan) empty() bool {
	return len(p.updates) == 0 && len(p.disposals) == 0 && len(p.added) == 0 && len(p.removed) == 0
}

// planReconcile decides, for every live origin, whether its cell survives the
// change from prev to next. It does not touch any state.
//
//	prev     next     action
//	absent   absent   keep
//	absent   present  dispose (inherited fallback is superseded)
//	present  absent   dispose
//	R1       R1       rebind, or update when the binding carries a new value
//	R1       R2       dispose
func planReconcile(prev, next map[uint64]Override, live []uint64) reconcilePlan {
	plan := reconcilePlan{}
	for _, key := range live {
		before, had := prev[key]
		after, has := next[key]
		switch {
		case !had && !has:
		case !had || !has:
			plan.disposals = append(plan.disposals, key)
		case sameBinding(before, after):
			plan.rebinds = append(plan.rebinds, after)
		case sameReplacement(before, after):
			plan.updates = append(plan.updates, after)
		default:
			plan.disposals = append(plan.disposals, key)
		}
	}

	for key := range next {
		if _, ok := prev[key]; !ok {
			plan.added = append(plan.added, key)
		}
	}
	for key := range prev {
		if _, ok := next[key]; !ok {
			plan.removed = append(plan.removed, key)
		}
	}
	slices.Sort(plan.added)
	slices.Sort(plan.removed)
	return plan
}

// Reconfigure replaces the overrides declared by s and reconciles the cells
// it owns: cells whose binding kept its replacement survive with their
// listeners, everything else affected is disposed and re-created lazily on
// the next resolution. Disposal errors are joined; the new configuration is
// in effect either way.
func (s *Scope) Reconfigure(next []Override) error {
	if s == nil {
		return ErrMissingScope
	}
	if s.disposed {
		return fmt.Errorf("%w: %s", ErrScopeDisposed, s.name)
	}
	byOrigin, err := indexOverrides(next)
	if err != nil {
		return err
	}

	prev := s.byOrigin
	plan := planReconcile(prev, byOrigin, s.liveKeys())
	s.overrides = slices.Clone(next)
	s.byOrigin = byOrigin
	for _, binding := range plan.rebinds {
		if el, ok := s.elements[binding.origin.ID()]; ok {
			// An identical binding never changes the state.
			_, _ = el.update(binding)
		}
	}
	if plan.empty() {
		return nil
	}

	for _, key := range plan.removed {
		s.recordOverride(LifecycleOverrideRemoved, prev[key])
	}
	for _, key := range plan.added {
		s.recordOverride(LifecycleOverrideAdded, byOrigin[key])
	}

	var errs []error
	for _, binding := range plan.updates {
		el, ok := s.elements[binding.origin.ID()]
		if !ok {
			continue
		}
		changed, err := el.update(binding)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			s.record(LifecycleUpdated, el, nil)
		}
	}

	for i := len(plan.disposals) - 1; i >= 0; i-- {
		el, ok := s.elements[plan.disposals[i]]
		if !ok {
			continue
		}
		if err := disposeElement(el); err != nil {
			errs = append(errs, err)
		}
	}

	// Cells below s that read an ancestor's cell for a newly overridden
	// origin would keep the superseded value.
	for _, key := range plan.added {
		if err := s.invalidateInherited(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Scope) invalidateInherited(key uint64) error {
	inherited := s.parent.owned(key)
	if inherited == nil {
		return nil
	}
	var errs []error
	for _, dependent := range slices.Clone(inherited.graph().dependents) {
		if !s.contains(dependent.owner()) {
			continue
		}
		if err := disposeElement(dependent); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// owned returns the element s resolves for key without materializing one.
func (s *Scope) owned(key uint64) element {
	for node := s; node != nil; node = node.parent {
		if el, ok := node.elements[key]; ok {
			return el
		}
		if _, ok := node.byOrigin[key]; ok {
			return nil
		}
	}
	return nil
}

// contains reports whether other is s or one of its descendants.
func (s *Scope) contains(other *Scope) bool {
	for node := other; node != nil; node = node.parent {
		if node == s {
			return true
		}
	}
	return false
}

func (s *Scope) liveKeys() []uint64 {
	keys := make([]uint64, 0, len(s.order))
	for _, el := range s.order {
		keys = append(keys, el.key())
	}
	return keys
}
