package ast

import "github.com/NeatLii/SysYCompiler/internal/source"

// Arena is the append-only AST node table (spec.md §3's "AST Arena").
// Nodes are created by the parser and mutated only by later passes
// (parent links, resolved references, constant values, initializer-list
// rewrites) — the table itself never shrinks, matching invariant 1.
type Arena struct {
	Src *source.Manager

	nodes   []Node
	hasRoot bool
	root    NodeID
}

// NewArena creates an empty arena backed by the given Source Map.
func NewArena(src *source.Manager) *Arena {
	return &Arena{Src: src}
}

// Add appends a node and returns its freshly assigned id.
func (a *Arena) Add(n Node) NodeID {
	a.nodes = append(a.nodes, n)
	return NodeID(len(a.nodes) - 1)
}

// Get returns the node at id. It panics on an id not produced by Add on
// this arena, the same way an out-of-range slice index would — every
// NodeID in the tree is an invariant-1 guarantee, not a user input.
func (a *Arena) Get(id NodeID) Node {
	return a.nodes[id]
}

// Len returns the number of nodes recorded so far.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// SetRoot records the TranslationUnit id as the arena's root.
func (a *Arena) SetRoot(id NodeID) {
	a.hasRoot, a.root = true, id
}

// Root returns the TranslationUnit id. It panics if SetRoot was never
// called — the parser always calls it before handing the arena onward.
func (a *Arena) Root() NodeID {
	if !a.hasRoot {
		panic("ast: arena has no root")
	}
	return a.root
}

// RootUnit returns the root as a *TranslationUnit.
func (a *Arena) RootUnit() *TranslationUnit {
	return a.Get(a.Root()).(*TranslationUnit)
}
