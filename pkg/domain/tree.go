package domain

import (
	"encoding/json"
	"fmt"
)

// Tree is an immutable snapshot of an edited tree.
// A Tree value is never modified once returned; every edit yields a new Tree
// that shares the unmodified subtrees of its predecessor.
type Tree struct {
	root *Node
}

// NewTree creates the initial tree: a single root with the unset label.
func NewTree() *Tree {
	return &Tree{root: &Node{ID: RootID, Label: UnsetLabel, Children: []*Node{}}}
}

// NewTreeFromRoot wraps an already built node hierarchy.
// The caller hands over ownership of root and must not modify it afterwards.
func NewTreeFromRoot(root *Node) *Tree {
	return &Tree{root: root}
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	n := 0
	t.Walk(func(*Node, *Node, int) bool {
		n++
		return true
	})
	return n
}

// Walk visits every node depth-first in pre-order, children in stored order.
// Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(n, parent *Node, depth int) bool) {
	var visit func(n, parent *Node, depth int) bool
	visit = func(n, parent *Node, depth int) bool {
		if !fn(n, parent, depth) {
			return false
		}
		for _, c := range n.Children {
			if !visit(c, n, depth+1) {
				return false
			}
		}
		return true
	}
	if t.root != nil {
		visit(t.root, nil, 0)
	}
}

// Path returns the chain of nodes from the root down to the node with the given id.
// It returns nil if no such node exists.
func (t *Tree) Path(id string) []*Node {
	var find func(n *Node) []*Node
	find = func(n *Node) []*Node {
		if n.ID == id {
			return []*Node{n}
		}
		for _, c := range n.Children {
			if p := find(c); p != nil {
				return append([]*Node{n}, p...)
			}
		}
		return nil
	}
	if t.root == nil {
		return nil
	}
	return find(t.root)
}

// Find returns the node with the given id.
func (t *Tree) Find(id string) (*Node, bool) {
	node, _, err := t.FindNodeAndParent(id)
	return node, err == nil
}

// FindNodeAndParent locates a node and its parent. The parent of the root is nil.
// If the id is unknown it returns a RejectionError with RuleNotFound.
func (t *Tree) FindNodeAndParent(id string) (node, parent *Node, err error) {
	path := t.Path(id)
	if path == nil {
		return nil, nil, &RejectionError{Rule: RuleNotFound, NodeID: id}
	}
	node = path[len(path)-1]
	if len(path) > 1 {
		parent = path[len(path)-2]
	}
	return node, parent, nil
}

// Update returns a new Tree in which the node with the given id has been
// replaced. fn receives a private copy of the node (with its own children
// slice) and may modify it freely. Every ancestor is copied; all other
// subtrees are shared with t, which stays unchanged.
func (t *Tree) Update(id string, fn func(n *Node)) (*Tree, error) {
	path := t.Path(id)
	if path == nil {
		return t, &RejectionError{Rule: RuleNotFound, NodeID: id}
	}

	replaced := path[len(path)-1].shallowCopy()
	fn(replaced)

	for i := len(path) - 2; i >= 0; i-- {
		parent := path[i].shallowCopy()
		for j, c := range parent.Children {
			if c.ID == path[i+1].ID {
				parent.Children[j] = replaced
				break
			}
		}
		replaced = parent
	}
	return &Tree{root: replaced}, nil
}

// MarshalJSON encodes the tree as its root node.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.root)
}

// UnmarshalJSON decodes a tree from its root node.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return err
	}
	if root.ID == "" {
		return fmt.Errorf("tree root has no id")
	}
	t.root = &root
	return nil
}
