// Package eval evaluates expressions over the values of resolved providers.
//
// Three engines are available behind the Evaluator interface:
//
//   - expr (github.com/expr-lang/expr), the default
//   - CEL (github.com/google/cel-go)
//   - JavaScript (github.com/dop251/goja), only when built with the js_eval tag
//
// Each engine sees the provider values of Context.Snapshot as top-level
// variables, plus `now`, `args`, `metadata` and `scope`. Functions registered
// in a FunctionRegistry are callable by name (expr, js) or through
// `call(name, [args])` (all engines).
package eval
