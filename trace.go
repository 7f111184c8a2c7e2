package riverpod

import (
	"encoding/json"
)

// Trace explains how a provider resolves from a scope: one entry per scope of
// the chain, from the starting scope up to the one that serves it.
type Trace struct {
	Provider string       `json:"provider"`
	Layers   []Provenance `json:"layers"`
}

// Provenance details what one scope of the chain contributes for a provider.
type Provenance struct {
	ScopeID      string `json:"scope_id"`
	Scope        string `json:"scope"`
	Label        string `json:"label,omitempty"`
	Overrides    bool   `json:"overrides"`
	Replacement  string `json:"replacement,omitempty"`
	Materialized bool   `json:"materialized"`
	Value        any    `json:"value,omitempty"`
	Serves       bool   `json:"serves"`
}

// Trace reports the resolution path of h from s without creating any cell.
// The last layer is the scope that serves h; it has Serves set.
func (s *Scope) Trace(h Handle) (Trace, error) {
	if isNilHandle(h) {
		return Trace{}, ErrNilProvider
	}
	if s == nil {
		return Trace{}, ErrMissingScope
	}
	trace := Trace{Provider: h.Name()}
	key := h.ID()
	for node := s; node != nil; node = node.parent {
		layer := Provenance{
			ScopeID: node.id,
			Scope:   node.name,
			Label:   node.label,
		}
		ov, overrides := node.byOrigin[key]
		if overrides {
			layer.Overrides = true
			layer.Replacement = ov.replacement.Name()
		}
		el, owned := node.elements[key]
		if owned {
			layer.Materialized = true
			if value, err := el.valueAny(); err == nil {
				layer.Value = value
			}
		}
		layer.Serves = owned || overrides || node.parent == nil
		trace.Layers = append(trace.Layers, layer)
		if layer.Serves {
			break
		}
	}
	return trace, nil
}

// Serving returns the layer that serves the provider.
func (t Trace) Serving() (Provenance, bool) {
	if len(t.Layers) == 0 {
		return Provenance{}, false
	}
	last := t.Layers[len(t.Layers)-1]
	return last, last.Serves
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
