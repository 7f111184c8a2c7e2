package riverpod

import (
	"fmt"
)

// Tree is an arena of scopes keyed by scope ID. It is the narrow surface a
// composition framework drives: attach a scope when a node mounts,
// reconfigure it when the node's overrides change, detach it on unmount.
type Tree struct {
	root  *Scope
	nodes map[string]*Scope
}

// NewTree creates a tree with a root scope built from opts.
func NewTree(opts ...Option) (*Tree, error) {
	root, err := NewRoot(opts...)
	if err != nil {
		return nil, err
	}
	return &Tree{
		root:  root,
		nodes: map[string]*Scope{root.ID(): root},
	}, nil
}

// Root returns the root scope.
func (t *Tree) Root() *Scope {
	return t.root
}

// Get returns the scope registered under id.
func (t *Tree) Get(id string) (*Scope, bool) {
	s, ok := t.nodes[id]
	return s, ok
}

// Len returns the number of live scopes, root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Attach creates a scope below the scope registered under parentID.
func (t *Tree) Attach(parentID string, overrides []Override, opts ...Option) (*Scope, error) {
	parent, err := t.lookup(parentID)
	if err != nil {
		return nil, err
	}
	child, err := parent.Child(overrides, opts...)
	if err != nil {
		return nil, err
	}
	t.nodes[child.ID()] = child
	return child, nil
}

// Reconfigure reconciles the scope registered under id against overrides.
func (t *Tree) Reconfigure(id string, overrides []Override) error {
	s, err := t.lookup(id)
	if err != nil {
		return err
	}
	return s.Reconfigure(overrides)
}

// Detach disposes the scope registered under id together with its subtree
// and forgets every scope in it. Detaching the root empties the tree.
func (t *Tree) Detach(id string) error {
	s, err := t.lookup(id)
	if err != nil {
		return err
	}
	t.forgetSubtree(s)
	return s.Dispose()
}

func (t *Tree) lookup(id string) (*Scope, error) {
	s, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScope, id)
	}
	return s, nil
}

func (t *Tree) forgetSubtree(s *Scope) {
	delete(t.nodes, s.ID())
	for _, child := range s.children {
		t.forgetSubtree(child)
	}
}
