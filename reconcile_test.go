package riverpod

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPlanReconcile(t *testing.T) {
	origin := constant("origin", "origin")
	r1 := constant("r1", "r1")
	r2 := constant("r2", "r2")
	other := constant(1, "other")
	key := origin.ID()

	index := func(overrides ...Override) map[uint64]Override {
		t.Helper()
		out, err := indexOverrides(overrides)
		if err != nil {
			t.Fatalf("index overrides: %v", err)
		}
		return out
	}

	cases := []struct {
		name          string
		prev, next    map[uint64]Override
		live          []uint64
		wantDisposals []uint64
		wantUpdates   int
		wantRebinds   int
		wantAdded     []uint64
		wantRemoved   []uint64
	}{
		{
			name: "absent to absent keeps",
			live: []uint64{other.ID()},
		},
		{
			name:          "absent to present disposes inherited state",
			next:          index(origin.OverrideWith(r1)),
			live:          []uint64{key},
			wantDisposals: []uint64{key},
			wantAdded:     []uint64{key},
		},
		{
			name:          "present to absent disposes",
			prev:          index(origin.OverrideWith(r1)),
			live:          []uint64{key},
			wantDisposals: []uint64{key},
			wantRemoved:   []uint64{key},
		},
		{
			name:        "same replacement rebinds",
			prev:        index(origin.OverrideWith(r1)),
			next:        index(origin.OverrideWith(r1)),
			live:        []uint64{key},
			wantRebinds: 1,
		},
		{
			name:          "different replacement disposes",
			prev:          index(origin.OverrideWith(r1)),
			next:          index(origin.OverrideWith(r2)),
			live:          []uint64{key},
			wantDisposals: []uint64{key},
		},
		{
			name:        "new value updates in place",
			prev:        index(origin.OverrideWithValue("a")),
			next:        index(origin.OverrideWithValue("b")),
			live:        []uint64{key},
			wantUpdates: 1,
		},
		{
			name:        "equal value rebinds",
			prev:        index(origin.OverrideWithValue("a")),
			next:        index(origin.OverrideWithValue("a")),
			live:        []uint64{key},
			wantRebinds: 1,
		},
		{
			name:        "unmaterialized override only reports the change",
			prev:        index(origin.OverrideWith(r1)),
			wantRemoved: []uint64{key},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := planReconcile(tc.prev, tc.next, tc.live)
			if diff := cmp.Diff(tc.wantDisposals, plan.disposals); diff != "" {
				t.Fatalf("disposals mismatch (-want +got):\n%s", diff)
			}
			if len(plan.updates) != tc.wantUpdates {
				t.Fatalf("expected %d updates, got %d", tc.wantUpdates, len(plan.updates))
			}
			if len(plan.rebinds) != tc.wantRebinds {
				t.Fatalf("expected %d rebinds, got %d", tc.wantRebinds, len(plan.rebinds))
			}
			if tc.wantRebinds > 0 && !plan.empty() {
				t.Fatalf("a plan with only rebinds must report empty")
			}
			if diff := cmp.Diff(tc.wantAdded, plan.added); diff != "" {
				t.Fatalf("added mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantRemoved, plan.removed); diff != "" {
				t.Fatalf("removed mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReconfigureWithSameBindingsIsNoop(t *testing.T) {
	greeting := constant("Hello", "greeting")
	bonjour := constant("Bonjour", "bonjour")

	var events []LifecycleEvent
	root := mustRoot(t, WithLifecycleLogger(LifecycleLoggerFunc(func(event LifecycleEvent) {
		events = append(events, event)
	})))
	child := mustChild(t, root, greeting.OverrideWith(bonjour))
	before, err := Resolve(child, greeting)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	events = nil

	if err := child.Reconfigure([]Override{greeting.OverrideWith(bonjour)}); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	after, err := Resolve(child, greeting)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if before != after || before.Disposed() {
		t.Fatalf("expected the cell to survive an identical reconfiguration")
	}
	if len(events) != 0 {
		t.Fatalf("expected no lifecycle events, got %+v", events)
	}
}

func TestReconfigureToNewReplacementResetsState(t *testing.T) {
	greeting := constant("Hello", "greeting")
	r1 := constant("Bonjour", "r1")
	r2 := constant("Hola", "r2")

	root := mustRoot(t)
	child := mustChild(t, root, greeting.OverrideWith(r1))
	old, err := Resolve(child, greeting)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := old.SetValue("Salut"); err != nil {
		t.Fatalf("set value: %v", err)
	}

	if err := child.Reconfigure([]Override{greeting.OverrideWith(r2)}); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if !old.Disposed() {
		t.Fatalf("expected R1 state to be disposed")
	}
	if got := mustValue(t, child, greeting); got != "Hola" {
		t.Fatalf("expected fresh state from R2, got %q", got)
	}
}

func TestRemovingOverrideFallsBackToAncestor(t *testing.T) {
	greeting := constant("Hello", "greeting")
	bonjour := constant("Bonjour", "bonjour")

	root := mustRoot(t)
	child := mustChild(t, root, greeting.OverrideWith(bonjour))
	cell, err := Resolve(child, greeting)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var seen []string
	cell.AddListener(func(v string) { seen = append(seen, v) })

	if err := child.Reconfigure(nil); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if !cell.Disposed() || cell.ListenerCount() != 0 {
		t.Fatalf("expected Bonjour cell disposed with listeners detached")
	}
	if len(seen) != 0 {
		t.Fatalf("expected no further notifications, got %v", seen)
	}
	if got := mustValue(t, child, greeting); got != "Hello" {
		t.Fatalf("expected fallback to Hello, got %q", got)
	}
	if child.Owns(greeting) {
		t.Fatalf("child must not own state for a provider it no longer overrides")
	}
}

func TestAddingOverrideAtRootSupersedesFallback(t *testing.T) {
	greeting := constant("Hello", "greeting")
	root := mustRoot(t)
	fallback, err := Resolve(root, greeting)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := root.Reconfigure([]Override{greeting.OverrideWithValue("Hi")}); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if !fallback.Disposed() {
		t.Fatalf("expected fallback state to be disposed")
	}
	if got := mustValue(t, root, greeting); got != "Hi" {
		t.Fatalf("expected Hi, got %q", got)
	}
}

func TestAddingOverrideInvalidatesDescendantReaders(t *testing.T) {
	greeting := constant("Hello", "greeting")
	shout := constant("", "shout")
	loud := NewProvider(func(ctx ReadContext) (string, error) {
		value, err := Read(ctx, greeting)
		return value + "!", err
	}, WithProviderName("loud"))

	root := mustRoot(t)
	middle := mustChild(t, root)
	leaf := mustChild(t, middle, shout.OverrideWith(loud))
	stale, err := Resolve(leaf, shout)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v, _ := stale.Value(); v != "Hello!" {
		t.Fatalf("expected Hello!, got %q", v)
	}

	if err := middle.Reconfigure([]Override{greeting.OverrideWithValue("Bonjour")}); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if !stale.Disposed() {
		t.Fatalf("expected reader of the superseded cell to be disposed")
	}
	if got := mustValue(t, leaf, shout); got != "Bonjour!" {
		t.Fatalf("expected Bonjour!, got %q", got)
	}
	if got := mustValue(t, root, greeting); got != "Hello" {
		t.Fatalf("root state must survive, got %q", got)
	}
}

func TestValueOverrideUpdatesInPlace(t *testing.T) {
	theme := constant("light", "theme")
	root := mustRoot(t)
	child := mustChild(t, root, theme.OverrideWithValue("dark"))

	cell, err := Resolve(child, theme)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var seen []string
	cell.AddListener(func(v string) { seen = append(seen, v) })

	if err := child.Reconfigure([]Override{theme.OverrideWithValue("dark")}); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if err := child.Reconfigure([]Override{theme.OverrideWithValue("solarized")}); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}

	after, err := Resolve(child, theme)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if after != cell || cell.Disposed() {
		t.Fatalf("expected value reconfiguration to keep the cell")
	}
	if diff := cmp.Diff([]string{"solarized"}, seen); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestReconfigureDisposesDependentsFirst(t *testing.T) {
	var order []string
	base := NewProvider(func(ctx ReadContext) (int, error) {
		ctx.OnDispose(func() error { order = append(order, "base"); return nil })
		return 1, nil
	}, WithProviderName("base"))
	derived := NewProvider(func(ctx ReadContext) (int, error) {
		ctx.OnDispose(func() error { order = append(order, "derived"); return nil })
		v, err := Read(ctx, base)
		return v + 1, err
	}, WithProviderName("derived"))
	replacement := constant(10, "replacement")
	derivedLocal := NewProvider(func(ctx ReadContext) (int, error) {
		ctx.OnDispose(func() error { order = append(order, "derived"); return nil })
		v, err := Read(ctx, base)
		return v * 2, err
	}, WithProviderName("derived-local"))

	root := mustRoot(t)
	child := mustChild(t, root, base.OverrideWithValue(5), derived.OverrideWith(derivedLocal))
	if got := mustValue(t, child, derived); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}

	if err := child.Reconfigure([]Override{base.OverrideWith(replacement), derived.OverrideWith(derivedLocal)}); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if diff := cmp.Diff([]string{"derived"}, order); diff != "" {
		t.Fatalf("dispose order mismatch (-want +got):\n%s", diff)
	}
	if got := mustValue(t, child, derived); got != 20 {
		t.Fatalf("expected derived to rebuild from the new base, got %d", got)
	}
}

func TestReconfigureRejectsInvalidOverrides(t *testing.T) {
	greeting := constant("Hello", "greeting")
	root := mustRoot(t)
	child := mustChild(t, root, greeting.OverrideWithValue("Bonjour"))

	err := child.Reconfigure([]Override{greeting.OverrideWithValue("a"), greeting.OverrideWithValue("b")})
	if !errors.Is(err, ErrDuplicateOverride) {
		t.Fatalf("expected ErrDuplicateOverride, got %v", err)
	}
	if got := mustValue(t, child, greeting); got != "Bonjour" {
		t.Fatalf("rejected configuration must leave the scope untouched, got %q", got)
	}

	if err := child.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if err := child.Reconfigure(nil); !errors.Is(err, ErrScopeDisposed) {
		t.Fatalf("expected ErrScopeDisposed, got %v", err)
	}
}

func TestReconfigureHandsKeptCellsTheNewBinding(t *testing.T) {
	tags := constant([]string{"default"}, "tags")
	root := mustRoot(t)
	child := mustChild(t, root, tags.OverrideWithValue([]string{"a"}))

	cell, err := Resolve(child, tags)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	notified := 0
	cell.AddListener(func([]string) { notified++ })

	next := []string{"a"}
	if err := child.Reconfigure([]Override{tags.OverrideWithValue(next)}); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}

	el, ok := child.elements[tags.ID()].(*cellElement[[]string])
	if !ok || el.cell != cell {
		t.Fatalf("expected the cell to survive")
	}
	bound, _ := el.binding.value.([]string)
	if len(bound) != 1 || &bound[0] != &next[0] {
		t.Fatalf("expected the element to hold the new binding")
	}
	if notified != 0 {
		t.Fatalf("an equal binding must not notify, got %d", notified)
	}
}
