package logrsink

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-logr/logr/funcr"

	"github.com/Safius-Sifat/riverpod"
	"github.com/Safius-Sifat/riverpod/eval"
)

func captureLogger() (*[]string, func(prefix, args string)) {
	lines := &[]string{}
	return lines, func(prefix, args string) {
		*lines = append(*lines, prefix+" "+args)
	}
}

func TestLifecycleRoutesByOutcome(t *testing.T) {
	lines, sink := captureLogger()
	logger := Lifecycle(funcr.New(sink, funcr.Options{Verbosity: DebugLevel}))

	logger.LogLifecycle(riverpod.LifecycleEvent{
		Kind:     riverpod.LifecycleCreated,
		Provider: "greeting",
		Scope:    "root",
	})
	logger.LogLifecycle(riverpod.LifecycleEvent{
		Kind:     riverpod.LifecycleDisposed,
		Provider: "greeting",
		Scope:    "root",
		Err:      errors.New("cleanup failed"),
	})

	if len(*lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(*lines), *lines)
	}
	if !strings.Contains((*lines)[0], `"msg"="provider lifecycle"`) || !strings.Contains((*lines)[0], `"kind"="created"`) {
		t.Fatalf("unexpected info line: %s", (*lines)[0])
	}
	if !strings.Contains((*lines)[1], `"error"="cleanup failed"`) {
		t.Fatalf("unexpected error line: %s", (*lines)[1])
	}
	if !strings.HasPrefix((*lines)[0], "riverpod") {
		t.Fatalf("expected riverpod logger name, got %s", (*lines)[0])
	}
}

func TestLifecycleRespectsVerbosity(t *testing.T) {
	lines, sink := captureLogger()
	logger := Lifecycle(funcr.New(sink, funcr.Options{}))

	logger.LogLifecycle(riverpod.LifecycleEvent{Kind: riverpod.LifecycleCreated, Provider: "quiet"})
	if len(*lines) != 0 {
		t.Fatalf("debug events must be suppressed at verbosity 0, got %v", *lines)
	}
}

func TestLifecycleLoggerWiredIntoScope(t *testing.T) {
	lines, sink := captureLogger()
	root, err := riverpod.NewRoot(riverpod.WithLifecycleLogger(
		Lifecycle(funcr.New(sink, funcr.Options{Verbosity: DebugLevel})),
	))
	if err != nil {
		t.Fatalf("new root: %v", err)
	}
	greeting := riverpod.NewProvider(func(riverpod.ReadContext) (string, error) {
		return "Hello", nil
	}, riverpod.WithProviderName("greeting"))

	if _, err := riverpod.Resolve(root, greeting); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := root.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if len(*lines) != 2 {
		t.Fatalf("expected created and disposed lines, got %v", *lines)
	}
	if !strings.Contains((*lines)[1], `"kind"="disposed"`) {
		t.Fatalf("expected disposed line, got %s", (*lines)[1])
	}
}

func TestEvaluationsLogsFailures(t *testing.T) {
	lines, sink := captureLogger()
	logger := Evaluations(funcr.New(sink, funcr.Options{}))

	if _, err := eval.Run(eval.NewExpr(), eval.Context{Scope: "root"}, "1 +", logger); err == nil {
		t.Fatalf("expected syntax error")
	}
	if len(*lines) != 1 || !strings.Contains((*lines)[0], `"msg"="evaluation failed"`) {
		t.Fatalf("unexpected lines: %v", *lines)
	}
}
