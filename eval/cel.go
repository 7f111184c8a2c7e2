package eval

import (
	"errors"
	"maps"
	"reflect"
	"slices"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// EngineCEL names the cel-go engine.
const EngineCEL = "cel"

var errCallName = errors.New("eval: call requires a function name")

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCEL constructs an Evaluator backed by cel-go. Snapshot entries are
// declared as dyn variables, so a compiled program is tied to the set of
// snapshot keys it was checked against.
func NewCEL(opts ...Option) Evaluator {
	cfg := applyOptions(opts)
	return &celEvaluator{cache: cfg.cache, registry: cfg.registry}
}

func (e *celEvaluator) Engine() string { return EngineCEL }

func (e *celEvaluator) Evaluate(ctx Context, expression string) (any, error) {
	program, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return program.Evaluate(ctx)
}

// Compile defers type checking until the snapshot keys are known.
func (e *celEvaluator) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, wrapError(EngineCEL, "", "", ErrEmptyExpression)
	}
	return &celProgram{evaluator: e, expression: expression}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, snapshot map[string]any) (celgo.Program, error) {
	names := slices.Sorted(maps.Keys(snapshot))
	key := cacheKey(EngineCEL, expression) + "|" + strings.Join(names, ",")
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(names)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(checked)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *celEvaluator) buildEnv(names []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("scope", celgo.StringType),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string_list",
				[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
				celgo.DynType,
				celgo.BinaryBinding(e.callBinding),
			),
		))
	}
	for _, name := range names {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) callBinding(lhs, rhs ref.Val) ref.Val {
	name, ok := lhs.Value().(string)
	if !ok {
		return types.NewErr("%v", errCallName)
	}
	native, err := rhs.ConvertToNative(reflect.TypeOf([]any{}))
	if err != nil {
		return types.NewErr("eval: call arguments: %v", err)
	}
	args, _ := native.([]any)
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%v", err)
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celProgram struct {
	evaluator  *celEvaluator
	expression string
}

func (p *celProgram) Evaluate(ctx Context) (any, error) {
	ctx = ctx.withDefaults()
	program, err := p.evaluator.loadOrCompile(p.expression, ctx.Snapshot)
	if err != nil {
		return nil, wrapError(EngineCEL, p.expression, ctx.scopeLabel(), err)
	}
	out, _, err := program.Eval(ctx.bindings())
	if err != nil {
		return nil, wrapError(EngineCEL, p.expression, ctx.scopeLabel(), err)
	}
	return out.Value(), nil
}
