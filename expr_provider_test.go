package riverpod

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Safius-Sifat/riverpod/eval"
)

func TestExprProviderReadsDependencies(t *testing.T) {
	greeting := constant("Hello", "greeting")
	name := constant("Ada", "name")
	message := NewExprProvider[string](`greeting + ", " + name`, map[string]Handle{
		"greeting": greeting,
		"name":     name,
	}, ExprWithName("message"))

	root := mustRoot(t)
	french := mustChild(t, root, greeting.OverrideWithValue("Bonjour"), message.OverrideWith(
		NewExprProvider[string](`greeting + ", " + name`, map[string]Handle{
			"greeting": greeting,
			"name":     name,
		}),
	))

	if got := mustValue(t, root, message); got != "Hello, Ada" {
		t.Fatalf("expected Hello, Ada, got %q", got)
	}
	if got := mustValue(t, french, message); got != "Bonjour, Ada" {
		t.Fatalf("expected Bonjour, Ada, got %q", got)
	}
	if message.Name() != "message" {
		t.Fatalf("expected provider name message, got %q", message.Name())
	}
}

func TestExprProviderWidensNumbers(t *testing.T) {
	price := constant(12, "price")
	quantity := constant(3, "quantity")
	deps := map[string]Handle{"price": price, "quantity": quantity}
	root := mustRoot(t)

	total := NewExprProvider[int64]("price * quantity", deps)
	if got := mustValue(t, root, total); got != 36 {
		t.Fatalf("expected 36, got %d", got)
	}
	count := NewExprProvider[uint8]("price - quantity", deps)
	if got := mustValue(t, root, count); got != 9 {
		t.Fatalf("expected 9, got %d", got)
	}
	whole := NewExprProvider[int]("price / 4", deps)
	if got := mustValue(t, root, whole); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestExprProviderRejectsLossyNumbers(t *testing.T) {
	cases := []struct {
		name string
		new  func() Handle
	}{
		{name: "fraction into int", new: func() Handle { return NewExprProvider[int]("12 / 5.0", nil) }},
		{name: "negative into uint64", new: func() Handle { return NewExprProvider[uint64]("0 - 1", nil) }},
		{name: "negative into uint8", new: func() Handle { return NewExprProvider[uint8]("-3", nil) }},
		{name: "overflow into int8", new: func() Handle { return NewExprProvider[int8]("200", nil) }},
		{name: "overflow into uint8", new: func() Handle { return NewExprProvider[uint8]("256", nil) }},
		{name: "negative float into uint", new: func() Handle { return NewExprProvider[uint]("-2.0", nil) }},
	}

	root := mustRoot(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolveValue(root, tc.new())
			if !errors.Is(err, ErrTypeMismatch) {
				t.Fatalf("expected ErrTypeMismatch, got %v", err)
			}
		})
	}
}

func TestConvertResultUnsignedIntoSigned(t *testing.T) {
	if _, err := convertResult[int64]("big", uint64(math.MaxUint64)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for uint64 overflow, got %v", err)
	}
	got, err := convertResult[int64]("small", uint64(42))
	if err != nil || got != 42 {
		t.Fatalf("expected 42, got %d (%v)", got, err)
	}
	if _, err := convertResult[float32]("huge", math.MaxFloat64); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for float32 overflow, got %v", err)
	}
}

func TestExprProviderTypeMismatch(t *testing.T) {
	flag := NewExprProvider[bool](`"yes"`, nil, ExprWithName("flag"))
	_, err := Resolve(mustRoot(t), flag)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "flag") {
		t.Fatalf("expected error to name the provider, got %v", err)
	}
}

func TestExprProviderWithCELAndFunctions(t *testing.T) {
	registry := eval.NewFunctionRegistry()
	if err := registry.Register("caps", func(args ...any) (any, error) {
		s, _ := args[0].(string)
		return strings.ToUpper(s), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	name := constant("ada", "name")

	var logged []eval.LogEvent
	shout := NewExprProvider[string](`call("caps", [name]) + args.suffix`, map[string]Handle{"name": name},
		ExprWithEvaluator(eval.NewCEL(eval.WithFunctions(registry))),
		ExprWithArgs(map[string]any{"suffix": "!"}),
		ExprWithLogger(eval.LoggerFunc(func(event eval.LogEvent) {
			logged = append(logged, event)
		})),
	)
	root := mustRoot(t)
	if got := mustValue(t, root, shout); got != "ADA!" {
		t.Fatalf("expected ADA!, got %q", got)
	}
	if len(logged) != 1 || logged[0].Engine != eval.EngineCEL || logged[0].Scope != "root" {
		t.Fatalf("unexpected log events: %+v", logged)
	}

	direct := NewExprProvider[string](`caps(name)`, map[string]Handle{"name": name}, ExprWithFunctions(registry))
	if got := mustValue(t, root, direct); got != "ADA" {
		t.Fatalf("expected ADA, got %q", got)
	}
}

func TestExprProviderEvaluationErrorIsWrapped(t *testing.T) {
	broken := NewExprProvider[int]("1 +", nil, ExprWithName("broken"))
	_, err := Resolve(mustRoot(t), broken)
	var evalErr *eval.Error
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected eval.Error, got %T %v", err, err)
	}
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) || providerErr.Provider != "broken" {
		t.Fatalf("expected ProviderError naming broken, got %v", err)
	}
}
