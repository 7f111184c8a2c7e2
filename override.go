package riverpod

import (
	"fmt"
	"reflect"
)

// Override replaces one provider by another within the subtree of the scope
// that declares it. Overrides are plain values and may be rebuilt freely;
// reconciliation compares them by the identity of their providers.
type Override struct {
	origin      Handle
	replacement Handle
	value       any
	hasValue    bool
}

// Bind constructs an override from type-erased handles, failing with
// ErrTypeMismatch when the replacement produces a different type.
func Bind(origin, replacement Handle) (Override, error) {
	if isNilHandle(origin) || isNilHandle(replacement) {
		return Override{}, ErrNilProvider
	}
	if origin.ValueType() != replacement.ValueType() {
		return Override{}, typeMismatch(origin.Name(), origin.ValueType(), replacement.ValueType())
	}
	return Override{origin: origin, replacement: replacement}, nil
}

// Origin returns the provider being replaced.
func (o Override) Origin() Handle {
	return o.origin
}

// Replacement returns the provider whose factory is used instead.
func (o Override) Replacement() Handle {
	return o.replacement
}

// IsValue reports whether the override was built with OverrideWithValue.
func (o Override) IsValue() bool {
	return o.hasValue
}

func (o Override) String() string {
	if isNilHandle(o.origin) || isNilHandle(o.replacement) {
		return "override(<invalid>)"
	}
	if o.hasValue {
		return fmt.Sprintf("override(%s = %v)", o.origin.Name(), o.value)
	}
	return fmt.Sprintf("override(%s -> %s)", o.origin.Name(), o.replacement.Name())
}

// sameBinding reports whether a and b would materialize identical state.
func sameBinding(a, b Override) bool {
	if a.replacement.ID() != b.replacement.ID() || a.hasValue != b.hasValue {
		return false
	}
	if !a.hasValue {
		return true
	}
	return reflect.DeepEqual(a.value, b.value)
}

func sameReplacement(a, b Override) bool {
	return a.replacement.ID() == b.replacement.ID()
}

// indexOverrides validates overrides and keys them by origin.
func indexOverrides(overrides []Override) (map[uint64]Override, error) {
	index := make(map[uint64]Override, len(overrides))
	for _, ov := range overrides {
		if isNilHandle(ov.origin) || isNilHandle(ov.replacement) {
			return nil, fmt.Errorf("%w: %s", ErrNilProvider, ov)
		}
		if ov.origin.ID() == ov.replacement.ID() {
			return nil, fmt.Errorf("%w: %s", ErrSelfOverride, ov.origin.Name())
		}
		if ov.origin.ValueType() != ov.replacement.ValueType() {
			return nil, typeMismatch(ov.origin.Name(), ov.origin.ValueType(), ov.replacement.ValueType())
		}
		key := ov.origin.ID()
		if _, exists := index[key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOverride, ov.origin.Name())
		}
		index[key] = ov
	}
	return index, nil
}
