package riverpod

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"

	"github.com/Safius-Sifat/riverpod/eval"
)

// ExprOption configures an expression provider.
type ExprOption func(*exprConfig)

type exprConfig struct {
	name      string
	evaluator eval.Evaluator
	registry  *eval.FunctionRegistry
	args      map[string]any
	logger    eval.Logger
}

// ExprWithEvaluator selects the engine. Defaults to eval.NewExpr.
func ExprWithEvaluator(evaluator eval.Evaluator) ExprOption {
	return func(cfg *exprConfig) {
		cfg.evaluator = evaluator
	}
}

// ExprWithName sets the diagnostic name of the provider.
func ExprWithName(name string) ExprOption {
	return func(cfg *exprConfig) {
		cfg.name = name
	}
}

// ExprWithFunctions exposes registry to the default evaluator. It is ignored
// when ExprWithEvaluator supplies an engine.
func ExprWithFunctions(registry *eval.FunctionRegistry) ExprOption {
	return func(cfg *exprConfig) {
		cfg.registry = registry
	}
}

// ExprWithArgs sets the static `args` map visible to the expression.
func ExprWithArgs(args map[string]any) ExprOption {
	return func(cfg *exprConfig) {
		cfg.args = maps.Clone(args)
	}
}

// ExprWithLogger reports each evaluation to logger.
func ExprWithLogger(logger eval.Logger) ExprOption {
	return func(cfg *exprConfig) {
		cfg.logger = logger
	}
}

// NewExprProvider builds a provider whose value is expression evaluated over
// the values of deps. Each key of deps becomes a variable of the expression;
// deps are read through the ReadContext, so overriding a dependency in a
// scope changes what the expression sees in that scope.
func NewExprProvider[T any](expression string, deps map[string]Handle, opts ...ExprOption) *Provider[T] {
	cfg := exprConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.evaluator == nil {
		var evalOpts []eval.Option
		if cfg.registry != nil {
			evalOpts = append(evalOpts, eval.WithFunctions(cfg.registry))
		}
		cfg.evaluator = eval.NewExpr(evalOpts...)
	}
	deps = maps.Clone(deps)
	names := slices.Sorted(maps.Keys(deps))

	var self *Provider[T]
	factory := func(ctx ReadContext) (T, error) {
		var zero T
		snapshot := make(map[string]any, len(names))
		for _, name := range names {
			value, err := ReadValue(ctx, deps[name])
			if err != nil {
				return zero, err
			}
			snapshot[name] = value
		}
		value, err := eval.Run(cfg.evaluator, eval.Context{
			Snapshot: snapshot,
			Args:     cfg.args,
			Scope:    ctx.Scope().Name(),
		}, expression, cfg.logger)
		if err != nil {
			return zero, err
		}
		return convertResult[T](self.Name(), value)
	}

	var providerOpts []ProviderOption
	if cfg.name != "" {
		providerOpts = append(providerOpts, WithProviderName(cfg.name))
	}
	self = NewProvider[T](factory, providerOpts...)
	return self
}

// convertResult narrows an evaluator result to T. Numeric results convert
// between kinds when the conversion is lossless.
func convertResult[T any](name string, value any) (T, error) {
	var zero T
	if typed, ok := value.(T); ok {
		return typed, nil
	}
	want := reflect.TypeOf((*T)(nil)).Elem()
	if value == nil {
		switch want.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			return zero, nil
		}
		return zero, typeMismatch(name, want, nil)
	}
	got := reflect.ValueOf(value)
	if isNumeric(got.Kind()) && isNumeric(want.Kind()) {
		if !fits(got, want) {
			return zero, fmt.Errorf("%w: %s: %v does not fit %s", ErrTypeMismatch, name, value, want)
		}
		return got.Convert(want).Interface().(T), nil
	}
	return zero, typeMismatch(name, want, got.Type())
}

// fits reports whether v converts to want without changing its value.
func fits(v reflect.Value, want reflect.Type) bool {
	target := reflect.New(want).Elem()
	switch {
	case isSigned(v.Kind()):
		n := v.Int()
		switch {
		case isSigned(want.Kind()):
			return !target.OverflowInt(n)
		case isUnsigned(want.Kind()):
			return n >= 0 && !target.OverflowUint(uint64(n))
		default:
			return int64(float64(n)) == n && !target.OverflowFloat(float64(n))
		}
	case isUnsigned(v.Kind()):
		n := v.Uint()
		switch {
		case isSigned(want.Kind()):
			return n <= math.MaxInt64 && !target.OverflowInt(int64(n))
		case isUnsigned(want.Kind()):
			return !target.OverflowUint(n)
		default:
			return uint64(float64(n)) == n && !target.OverflowFloat(float64(n))
		}
	default:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return want.Kind() == reflect.Float32 || want.Kind() == reflect.Float64
		}
		switch {
		case isSigned(want.Kind()):
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
				return false
			}
			return !target.OverflowInt(int64(f))
		case isUnsigned(want.Kind()):
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
				return false
			}
			return !target.OverflowUint(uint64(f))
		default:
			return !target.OverflowFloat(f)
		}
	}
}

func isSigned(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(kind reflect.Kind) bool {
	switch kind {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isNumeric(kind reflect.Kind) bool {
	return isSigned(kind) || isUnsigned(kind) || kind == reflect.Float32 || kind == reflect.Float64
}
