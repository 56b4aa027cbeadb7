package wire

import (
	"github.com/crabritto/arbor/pkg/domain"
)

// Encode converts a snapshot into its WireTree under the given key scheme.
//
// Every node gets an entry, leaves included, in pre-order so the root comes
// first. Child lists are ordered left before right, keeping insertion order
// within a side. A node whose first child in that order is a right child gets
// an absent marker in front of it, so the receiver can tell the positions
// apart. Encode is pure and deterministic.
func Encode(tree *domain.Tree, scheme domain.KeyScheme) *domain.WireTree {
	if scheme == "" {
		scheme = domain.KeyLabel
	}
	w := domain.NewWireTree()

	var visit func(n *domain.Node)
	visit = func(n *domain.Node) {
		ordered := n.Ordered()
		refs := make([]domain.Ref, 0, len(ordered)+1)
		if len(ordered) > 0 && ordered[0].Side != domain.SideLeft {
			refs = append(refs, domain.AbsentRef())
		}
		for _, c := range ordered {
			refs = append(refs, scheme.Ref(c))
		}
		w.Set(scheme.Key(n), refs)
		for _, c := range ordered {
			visit(c)
		}
	}
	visit(tree.Root())
	return w
}

// Ambiguous reports whether label-keyed encoding of tree would merge
// distinct nodes, which happens as soon as a label appears twice.
func Ambiguous(tree *domain.Tree) bool {
	seen := make(map[int]bool)
	dup := false
	tree.Walk(func(n, _ *domain.Node, _ int) bool {
		if seen[n.Label] {
			dup = true
			return false
		}
		seen[n.Label] = true
		return true
	})
	return dup
}
