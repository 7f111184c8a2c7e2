// Package logrsink routes registry and evaluator logs to a logr.Logger.
package logrsink

import (
	"github.com/go-logr/logr"

	"github.com/Safius-Sifat/riverpod"
	"github.com/Safius-Sifat/riverpod/eval"
)

// DebugLevel is the verbosity used for routine lifecycle and evaluation
// events. Failures are always logged through Error.
const DebugLevel = 1

// Lifecycle adapts logger to riverpod.LifecycleLogger.
func Lifecycle(logger logr.Logger) riverpod.LifecycleLogger {
	logger = logger.WithName("riverpod")
	return riverpod.LifecycleLoggerFunc(func(event riverpod.LifecycleEvent) {
		kv := []any{
			"kind", string(event.Kind),
			"provider", event.Provider,
			"providerID", event.ProviderID,
			"scope", event.Scope,
			"scopeID", event.ScopeID,
		}
		if event.Source != "" && event.Source != event.Provider {
			kv = append(kv, "source", event.Source)
		}
		if event.Err != nil {
			logger.Error(event.Err, "provider lifecycle failed", kv...)
			return
		}
		logger.V(DebugLevel).Info("provider lifecycle", kv...)
	})
}

// Evaluations adapts logger to eval.Logger.
func Evaluations(logger logr.Logger) eval.Logger {
	logger = logger.WithName("eval")
	return eval.LoggerFunc(func(event eval.LogEvent) {
		kv := []any{
			"engine", event.Engine,
			"expr", event.Expr,
			"scope", event.Scope,
			"duration", event.Duration,
		}
		if event.Err != nil {
			logger.Error(event.Err, "evaluation failed", kv...)
			return
		}
		logger.V(DebugLevel).Info("evaluated", kv...)
	})
}
