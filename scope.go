package riverpod

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Safius-Sifat/riverpod/pkg/activity"
	"github.com/google/uuid"
)

// Scope is one node of the scope tree. It owns cells only for the origins it
// overrides (the root additionally owns the fallback cells of every
// provider nobody overrides) and delegates everything else to its parent.
//
// A scope tree is driven by a single goroutine; none of its methods are safe
// for concurrent use.
type Scope struct {
	id       string
	name     string
	label    string
	metadata map[string]any

	parent   *Scope
	children []*Scope

	overrides []Override
	byOrigin  map[uint64]Override
	elements  map[uint64]element
	order     []element

	tracker  *resolution
	logger   LifecycleLogger
	emitter  *activity.Emitter
	disposed bool
}

// Option configures a scope.
type Option func(*scopeConfig)

type scopeConfig struct {
	name        string
	label       string
	metadata    map[string]any
	overrides   []Override
	logger      LifecycleLogger
	hooks       activity.Hooks
	hooksSet    bool
	activity    activity.Config
	activitySet bool
}

// WithScopeName sets the scope name used in errors, logs and events.
func WithScopeName(name string) Option {
	return func(cfg *scopeConfig) {
		cfg.name = strings.TrimSpace(name)
	}
}

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) Option {
	return func(cfg *scopeConfig) {
		cfg.label = label
	}
}

// WithScopeMetadata attaches arbitrary metadata to the scope. The map is
// copied.
func WithScopeMetadata(metadata map[string]any) Option {
	return func(cfg *scopeConfig) {
		cfg.metadata = copyMetadata(metadata)
	}
}

// WithOverrides declares overrides for the scope's subtree.
func WithOverrides(overrides ...Override) Option {
	return func(cfg *scopeConfig) {
		cfg.overrides = append(cfg.overrides, overrides...)
	}
}

// WithLifecycleLogger attaches a lifecycle logger. Children inherit it.
func WithLifecycleLogger(logger LifecycleLogger) Option {
	return func(cfg *scopeConfig) {
		if logger == nil {
			cfg.logger = noopLifecycleLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithActivityHooks attaches activity hooks notified on cell creation,
// update and disposal. Nil hooks are dropped. Children inherit them.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := slices.DeleteFunc(slices.Clone(hooks), func(hook activity.ActivityHook) bool {
		return hook == nil
	})
	return func(cfg *scopeConfig) {
		cfg.hooks = normalized
		cfg.hooksSet = true
	}
}

// WithActivityConfig overrides the emitter configuration used with
// WithActivityHooks. Emission is enabled by default on the "providers"
// channel.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *scopeConfig) {
		cfg.activity = config
		cfg.activitySet = true
	}
}

// NewRoot creates the root of a scope tree.
func NewRoot(opts ...Option) (*Scope, error) {
	return newScope(nil, applyScopeOptions(opts))
}

// Child creates a scope below s declaring overrides for its subtree.
func (s *Scope) Child(overrides []Override, opts ...Option) (*Scope, error) {
	if s == nil {
		return nil, ErrMissingScope
	}
	if s.disposed {
		return nil, fmt.Errorf("%w: %s", ErrScopeDisposed, s.name)
	}
	cfg := applyScopeOptions(opts)
	cfg.overrides = append(cfg.overrides, overrides...)
	child, err := newScope(s, cfg)
	if err != nil {
		return nil, err
	}
	s.children = append(s.children, child)
	return child, nil
}

func applyScopeOptions(opts []Option) scopeConfig {
	cfg := scopeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func newScope(parent *Scope, cfg scopeConfig) (*Scope, error) {
	byOrigin, err := indexOverrides(cfg.overrides)
	if err != nil {
		return nil, err
	}

	s := &Scope{
		id:        uuid.NewString(),
		label:     cfg.label,
		metadata:  copyMetadata(cfg.metadata),
		parent:    parent,
		overrides: slices.Clone(cfg.overrides),
		byOrigin:  byOrigin,
		elements:  map[uint64]element{},
	}

	s.name = cfg.name
	if s.name == "" {
		if parent == nil {
			s.name = "root"
		} else {
			s.name = "scope-" + s.id[:8]
		}
	}

	switch {
	case cfg.logger != nil:
		s.logger = cfg.logger
	case parent != nil:
		s.logger = parent.logger
	default:
		s.logger = noopLifecycleLogger{}
	}

	switch {
	case cfg.hooksSet || cfg.activitySet:
		config := activity.Config{Enabled: true, Channel: activity.DefaultChannel}
		if cfg.activitySet {
			config = cfg.activity
		}
		s.emitter = activity.NewEmitter(cfg.hooks, config)
	case parent != nil:
		s.emitter = parent.emitter
	}

	if parent == nil {
		s.tracker = newResolution()
	} else {
		s.tracker = parent.tracker
	}
	return s, nil
}

// ID returns the unique scope identifier.
func (s *Scope) ID() string {
	return s.id
}

// Name returns the scope name.
func (s *Scope) Name() string {
	return s.name
}

// Label returns the human-friendly label, if any.
func (s *Scope) Label() string {
	return s.label
}

// Metadata returns a copy of the scope metadata.
func (s *Scope) Metadata() map[string]any {
	return copyMetadata(s.metadata)
}

// Parent returns the nearest ancestor scope, nil for the root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Root returns the first scope of the chain without a parent.
func (s *Scope) Root() *Scope {
	node := s
	for node != nil && node.parent != nil {
		node = node.parent
	}
	return node
}

// Children returns the live child scopes in creation order.
func (s *Scope) Children() []*Scope {
	return slices.Clone(s.children)
}

// Overrides returns the declared overrides in declaration order.
func (s *Scope) Overrides() []Override {
	return slices.Clone(s.overrides)
}

// Disposed reports whether the scope was torn down.
func (s *Scope) Disposed() bool {
	return s.disposed
}

// Owns reports whether s currently holds a materialized cell for origin.
func (s *Scope) Owns(origin Handle) bool {
	if s == nil || isNilHandle(origin) {
		return false
	}
	_, ok := s.elements[origin.ID()]
	return ok
}

// Dispose tears down child scopes and then every owned cell, dependents
// before the cells they read. Cleanup failures do not stop the teardown;
// they are joined into the returned error. Disposing twice is a no-op.
func (s *Scope) Dispose() error {
	if s == nil || s.disposed {
		return nil
	}
	s.disposed = true

	var errs []error
	for i := len(s.children) - 1; i >= 0; i-- {
		if err := s.children[i].Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	s.children = nil

	for len(s.order) > 0 {
		el := s.order[len(s.order)-1]
		if err := disposeElement(el); err != nil {
			errs = append(errs, err)
		}
		// disposeElement removes el from s.order unless it was already
		// being torn down by a cascade higher up the stack.
		if len(s.order) > 0 && s.order[len(s.order)-1] == el {
			s.forget(el)
		}
	}

	if s.parent != nil {
		s.parent.children = slices.DeleteFunc(s.parent.children, func(child *Scope) bool {
			return child == s
		})
	}
	return errors.Join(errs...)
}

func (s *Scope) adopt(el element) {
	s.elements[el.key()] = el
	s.order = append(s.order, el)
}

func (s *Scope) forget(el element) {
	if current, ok := s.elements[el.key()]; ok && current == el {
		delete(s.elements, el.key())
	}
	s.order = slices.DeleteFunc(s.order, func(candidate element) bool {
		return candidate == el
	})
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
