// Package validator enforces the labeling invariants of an edited tree.
package validator

import (
	"fmt"

	"github.com/crabritto/arbor/pkg/domain"
)

// CheckAddChild verifies that a new child labeled label may be attached to parent.
func CheckAddChild(tree *domain.Tree, parent *domain.Node, label int) error {
	return checkPlacement(tree.Root(), parent, nil, label, parent.ID)
}

// CheckRelabel verifies that node (whose parent is parent, nil for the root)
// may take label.
func CheckRelabel(tree *domain.Tree, node, parent *domain.Node, label int) error {
	if parent == nil {
		// Every other node must differ from the root.
		var clash bool
		tree.Walk(func(n, _ *domain.Node, _ int) bool {
			if n != node && n.Label == label {
				clash = true
				return false
			}
			return true
		})
		if clash {
			return &domain.RejectionError{Rule: domain.RuleChild, NodeID: node.ID, Label: label}
		}
		return nil
	}

	if err := checkPlacement(tree.Root(), parent, node, label, node.ID); err != nil {
		return err
	}
	if _, ok := node.Child(label); ok {
		return &domain.RejectionError{Rule: domain.RuleChild, NodeID: node.ID, Label: label}
	}
	return nil
}

// checkPlacement applies the root, parent and sibling rules, ignoring self among the siblings.
// Rejections name target.
func checkPlacement(root, parent, self *domain.Node, label int, target string) error {
	reject := func(rule domain.Rule) error {
		return &domain.RejectionError{Rule: rule, NodeID: target, Label: label}
	}
	if label == root.Label {
		return reject(domain.RuleRoot)
	}
	if label == parent.Label {
		return reject(domain.RuleParent)
	}
	for _, sibling := range parent.Children {
		if sibling != self && sibling.Label == label {
			return reject(domain.RuleSibling)
		}
	}
	return nil
}

// AggregateError collects every invariant violation found in a tree.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d tree violations:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Unwrap exposes the individual violations to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// ValidateTree checks every invariant over a whole tree. It is used on trees
// that were not built through the edit operations, such as imports.
func ValidateTree(tree *domain.Tree) error {
	root := tree.Root()
	if root == nil {
		return fmt.Errorf("tree has no root")
	}

	var errs []error
	seen := make(map[string]bool)
	queue := []*domain.Node{root}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if n.ID == "" {
			errs = append(errs, fmt.Errorf("node labeled %d has no id", n.Label))
		} else if seen[n.ID] {
			errs = append(errs, fmt.Errorf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = true

		labels := make(map[int]bool, len(n.Children))
		for _, c := range n.Children {
			if c == nil {
				errs = append(errs, fmt.Errorf("node %q has a nil child", n.ID))
				continue
			}
			switch {
			case c.Label == root.Label:
				errs = append(errs, &domain.RejectionError{Rule: domain.RuleRoot, NodeID: n.ID, Label: c.Label})
			case c.Label == n.Label:
				errs = append(errs, &domain.RejectionError{Rule: domain.RuleParent, NodeID: n.ID, Label: c.Label})
			case labels[c.Label]:
				errs = append(errs, &domain.RejectionError{Rule: domain.RuleSibling, NodeID: n.ID, Label: c.Label})
			}
			labels[c.Label] = true
			if c.Side != domain.SideLeft && c.Side != domain.SideRight {
				errs = append(errs, fmt.Errorf("node %q has invalid side %q", c.ID, c.Side))
			}
			queue = append(queue, c)
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
