package eval

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrEmptyExpression indicates an empty expression was submitted.
var ErrEmptyExpression = errors.New("eval: expression must not be empty")

// Evaluator executes expressions against a Context.
type Evaluator interface {
	Engine() string
	Evaluate(ctx Context, expression string) (any, error)
	Compile(expression string) (Program, error)
}

// Program is a compiled, reusable expression.
type Program interface {
	Evaluate(ctx Context) (any, error)
}

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Option configures an evaluator.
type Option func(*config)

type config struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// WithProgramCache wires a ProgramCache into the evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.cache = cache
	}
}

// WithFunctions exposes the functions of registry to expressions. The
// registry is cloned.
func WithFunctions(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// MapCache is an in-memory ProgramCache.
type MapCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewMapCache constructs an empty MapCache.
func NewMapCache() *MapCache {
	return &MapCache{programs: map[string]any{}}
}

// Get implements ProgramCache.
func (c *MapCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.programs[key]
	return value, ok
}

// Set implements ProgramCache.
func (c *MapCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[key] = value
}

// Len returns the number of cached programs.
func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}

// Run evaluates expression with e, reports the attempt to logger and wraps
// failures in *Error.
func Run(e Evaluator, ctx Context, expression string, logger Logger) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("eval: evaluator not configured")
	}
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	if logger == nil {
		logger = nopLogger{}
	}
	ctx = ctx.withDefaults()
	start := time.Now()
	value, err := e.Evaluate(ctx, expression)
	err = wrapError(e.Engine(), expression, ctx.scopeLabel(), err)
	logger.LogEvaluation(LogEvent{
		Engine:   e.Engine(),
		Expr:     expression,
		Scope:    ctx.scopeLabel(),
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}
