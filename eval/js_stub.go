//go:build !js_eval

package eval

// EngineJS names the goja engine.
const EngineJS = "js"

// NewJS returns nil unless the binary is built with the js_eval tag.
func NewJS(...Option) Evaluator { return nil }

// JSAvailable reports whether the binary was built with the js_eval tag.
func JSAvailable() bool { return false }
