// Package riverpod is a hierarchical, override-aware provider registry.
//
// A Provider is an immutable identity wrapping a factory. Values live in
// cells owned by scopes: the root scope owns the cell of every provider that
// nobody overrides, and a child scope owns cells only for the providers it
// overrides for its subtree. Resolving a provider from a scope walks the
// chain towards the root and returns the first applicable cell, creating it
// lazily:
//
//	greeting := riverpod.NewProvider(func(riverpod.ReadContext) (string, error) {
//		return "Hello", nil
//	})
//	root, _ := riverpod.NewRoot()
//	french, _ := root.Child([]riverpod.Override{greeting.OverrideWithValue("Bonjour")})
//
//	cell, _ := riverpod.Resolve(french, greeting) // "Bonjour"
//
// Factories read other providers through their ReadContext, which resolves
// from the scope that owns the cell being built. Those reads are recorded, so
// disposing a cell first disposes the cells that read it.
//
// Reconfigure swaps the overrides of a scope. Cells whose override kept the
// same replacement survive with their listeners; every other affected cell is
// disposed and rebuilt on the next resolution. Tree wraps scopes in an arena
// keyed by scope ID for frameworks that mount and unmount nodes.
//
// Scopes, cells and trees are driven by a single goroutine and are not safe
// for concurrent use.
package riverpod
