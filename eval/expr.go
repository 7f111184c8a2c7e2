package eval

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// EngineExpr names the expr-lang engine.
const EngineExpr = "expr"

type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExpr constructs an Evaluator backed by expr-lang/expr.
func NewExpr(opts ...Option) Evaluator {
	cfg := applyOptions(opts)
	return &exprEvaluator{cache: cfg.cache, registry: cfg.registry}
}

func (e *exprEvaluator) Engine() string { return EngineExpr }

// Evaluate compiles expression (through the cache when present) and runs it.
func (e *exprEvaluator) Evaluate(ctx Context, expression string) (any, error) {
	program, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return program.Evaluate(ctx)
}

func (e *exprEvaluator) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, wrapError(EngineExpr, "", "", ErrEmptyExpression)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprProgram{program: program, expression: expression}, nil
}

func (e *exprEvaluator) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey(EngineExpr, expression)); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.registry != nil {
		options = append(options, exprlang.Function("call", func(params ...any) (any, error) {
			return callDynamic(e.registry, params)
		}))
		for _, name := range e.registry.Names() {
			options = append(options, exprlang.Function(name, e.registry.bind(name)))
		}
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapError(EngineExpr, expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(cacheKey(EngineExpr, expression), program)
	}
	return program, nil
}

type exprProgram struct {
	program    *exprvm.Program
	expression string
}

func (p *exprProgram) Evaluate(ctx Context) (any, error) {
	ctx = ctx.withDefaults()
	result, err := exprlang.Run(p.program, ctx.bindings())
	if err != nil {
		return nil, wrapError(EngineExpr, p.expression, ctx.scopeLabel(), err)
	}
	return result, nil
}

// callDynamic implements call(name, [args]) shared by the engines.
func callDynamic(registry *FunctionRegistry, params []any) (any, error) {
	if len(params) == 0 {
		return nil, errCallName
	}
	name, ok := params[0].(string)
	if !ok {
		return nil, errCallName
	}
	var args []any
	if len(params) > 1 {
		if list, ok := params[1].([]any); ok && len(params) == 2 {
			args = list
		} else {
			args = params[1:]
		}
	}
	return registry.Call(name, args...)
}

func cacheKey(engine, expression string) string {
	return engine + ":" + expression
}
