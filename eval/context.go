package eval

import "time"

// Context carries the inputs of one evaluation.
type Context struct {
	Snapshot map[string]any
	Args     map[string]any
	Metadata map[string]any
	Scope    string
	Now      *time.Time
}

func (ctx Context) withDefaults() Context {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx Context) timestamp() time.Time {
	if ctx.Now == nil {
		return time.Now()
	}
	return *ctx.Now
}

func (ctx Context) scopeLabel() string {
	if ctx.Scope != "" {
		return ctx.Scope
	}
	return "unknown"
}

// bindings returns the variables shared by every engine.
func (ctx Context) bindings() map[string]any {
	env := make(map[string]any, len(ctx.Snapshot)+4)
	for key, value := range ctx.Snapshot {
		env[key] = value
	}
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	env["metadata"] = ctx.Metadata
	env["scope"] = ctx.scopeLabel()
	return env
}
