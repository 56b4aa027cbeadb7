package cli

import (
	"fmt"
	"strings"

	"github.com/crabritto/arbor/pkg/domain"
)

// Index lists the nodes in the order Outline numbers them: pre-order,
// children left before right.
func Index(tree *domain.Tree) []*domain.Node {
	var nodes []*domain.Node
	var visit func(n *domain.Node)
	visit = func(n *domain.Node) {
		nodes = append(nodes, n)
		for _, c := range n.Ordered() {
			visit(c)
		}
	}
	visit(tree.Root())
	return nodes
}

// Outline renders the tree as an indented list with #n indexes.
func Outline(tree *domain.Tree) string {
	var sb strings.Builder
	i := 0
	var visit func(n *domain.Node, depth int)
	visit = func(n *domain.Node, depth int) {
		indent := strings.Repeat("  ", depth)
		switch {
		case depth == 0:
			fmt.Fprintf(&sb, "#%d %d (root)\n", i, n.Label)
		case n.Side == domain.SideLeft:
			fmt.Fprintf(&sb, "%s#%d L %d\n", indent, i, n.Label)
		default:
			fmt.Fprintf(&sb, "%s#%d R %d\n", indent, i, n.Label)
		}
		i++
		for _, c := range n.Ordered() {
			visit(c, depth+1)
		}
	}
	visit(tree.Root(), 0)
	return sb.String()
}
