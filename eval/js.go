//go:build js_eval

package eval

import (
	"fmt"

	"github.com/dop251/goja"
)

// EngineJS names the goja engine.
const EngineJS = "js"

type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJS constructs an Evaluator backed by goja.
func NewJS(opts ...Option) Evaluator {
	cfg := applyOptions(opts)
	return &jsEvaluator{cache: cfg.cache, registry: cfg.registry}
}

// JSAvailable reports whether the binary was built with the js_eval tag.
func JSAvailable() bool { return true }

func (e *jsEvaluator) Engine() string { return EngineJS }

func (e *jsEvaluator) Evaluate(ctx Context, expression string) (any, error) {
	program, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return program.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, wrapError(EngineJS, "", "", ErrEmptyExpression)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsProgram{evaluator: e, expression: expression, program: program}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	key := cacheKey(EngineJS, expression)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
	if err != nil {
		return nil, wrapError(EngineJS, expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

type jsProgram struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (p *jsProgram) Evaluate(ctx Context) (any, error) {
	ctx = ctx.withDefaults()
	vm := goja.New()
	for key, value := range ctx.bindings() {
		if err := vm.Set(key, value); err != nil {
			return nil, wrapError(EngineJS, p.expression, ctx.scopeLabel(), err)
		}
	}
	if registry := p.evaluator.registry; registry != nil {
		_ = vm.Set("call", func(params ...any) (any, error) {
			return callDynamic(registry, params)
		})
		for _, name := range registry.Names() {
			_ = vm.Set(name, registry.bind(name))
		}
	}
	value, err := vm.RunProgram(p.program)
	if err != nil {
		return nil, wrapError(EngineJS, p.expression, ctx.scopeLabel(), err)
	}
	return value.Export(), nil
}
