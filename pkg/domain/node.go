package domain

import "fmt"

// RootID is the identifier of the root node of every Tree.
const RootID = "root"

// UnsetLabel is the label of a freshly created root ("not chosen yet").
const UnsetLabel = 0

// Side places a child to the left or to the right of its parent.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ParseSide converts user input into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideLeft, SideRight:
		return Side(s), nil
	}
	return "", fmt.Errorf("invalid side %q: expected %q or %q", s, SideLeft, SideRight)
}

// Arrangement is a presentation hint for how a child is drawn. It carries no structure.
type Arrangement string

const (
	ArrangementHorizontal Arrangement = "horizontal"
	ArrangementVertical   Arrangement = "vertical"
)

// ParseArrangement converts user input into an Arrangement.
// An empty string yields the empty Arrangement so callers can apply their default.
func ParseArrangement(s string) (Arrangement, error) {
	switch Arrangement(s) {
	case "", ArrangementHorizontal, ArrangementVertical:
		return Arrangement(s), nil
	}
	return "", fmt.Errorf("invalid arrangement %q: expected %q or %q", s, ArrangementHorizontal, ArrangementVertical)
}

// DefaultArrangement returns the arrangement used when none is given:
// children of the root stack vertically, deeper children horizontally.
func DefaultArrangement(parentIsRoot bool) Arrangement {
	if parentIsRoot {
		return ArrangementVertical
	}
	return ArrangementHorizontal
}

// Node is a labeled vertex of a Tree.
//
// Nodes reachable from a published Tree are shared between snapshots and must
// be treated as read-only. Use the operations in package model to derive new
// trees instead of modifying a Node in place.
type Node struct {
	ID          string      `json:"id"`
	Label       int         `json:"label"`
	Children    []*Node     `json:"children"`
	Side        Side        `json:"side,omitempty"`
	Arrangement Arrangement `json:"arrangement,omitempty"`
}

// Child returns the direct child with the given label, if any.
func (n *Node) Child(label int) (*Node, bool) {
	for _, c := range n.Children {
		if c.Label == label {
			return c, true
		}
	}
	return nil, false
}

// Ordered returns the children left-before-right.
// Within a side the insertion order is kept.
func (n *Node) Ordered() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Side == SideLeft {
			out = append(out, c)
		}
	}
	for _, c := range n.Children {
		if c.Side != SideLeft {
			out = append(out, c)
		}
	}
	return out
}

// HasLeft reports whether the node has at least one left child.
func (n *Node) HasLeft() bool {
	for _, c := range n.Children {
		if c.Side == SideLeft {
			return true
		}
	}
	return false
}

// shallowCopy returns a copy of n with its own children slice.
func (n *Node) shallowCopy() *Node {
	cp := *n
	cp.Children = make([]*Node, len(n.Children), len(n.Children)+1)
	copy(cp.Children, n.Children)
	return &cp
}
