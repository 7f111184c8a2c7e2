package eval

import (
	"errors"
	"fmt"
)

// Error captures evaluator metadata alongside the originating error.
type Error struct {
	Engine string
	Expr   string
	Scope  string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	expr := "expr=<empty>"
	if e.Expr != "" {
		expr = fmt.Sprintf("expr=%q", e.Expr)
	}
	return fmt.Sprintf("eval: %s %s scope=%s: %v", e.Engine, expr, e.Scope, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapError attaches metadata to err, filling blanks on an existing *Error
// instead of nesting a second one.
func wrapError(engine, expr, scope string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *Error
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Scope == "" {
			evalErr.Scope = scope
		}
		return err
	}
	return &Error{Engine: engine, Expr: expr, Scope: scope, Err: err}
}
