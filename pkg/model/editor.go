package model

import (
	"github.com/crabritto/arbor/internal/validator"
	"github.com/crabritto/arbor/pkg/domain"
	"github.com/google/uuid"
)

// IDGenerator returns a fresh node identifier on every call.
type IDGenerator func() string

// NewID generates node ids of the form "n<uuid>". The leading letter keeps the
// label prefix of a composite wire key unambiguous.
func NewID() string {
	return "n" + uuid.NewString()
}

// Editor applies validated edits to tree snapshots.
type Editor struct {
	newID IDGenerator
}

// Option configures an Editor.
type Option func(*Editor)

// WithIDGenerator replaces the id source, mostly for deterministic tests.
func WithIDGenerator(gen IDGenerator) Option {
	return func(e *Editor) {
		e.newID = gen
	}
}

// NewEditor creates an Editor.
func NewEditor(opts ...Option) *Editor {
	e := &Editor{newID: NewID}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEditor = NewEditor()

// AddChild appends a new child under parentID using the default Editor.
func AddChild(tree *domain.Tree, parentID string, label int, side domain.Side, arrangement domain.Arrangement) (*domain.Tree, error) {
	return defaultEditor.AddChild(tree, parentID, label, side, arrangement)
}

// Relabel changes the label of nodeID.
func Relabel(tree *domain.Tree, nodeID string, label int) (*domain.Tree, error) {
	return defaultEditor.Relabel(tree, nodeID, label)
}

// FindNodeAndParent locates nodeID and its parent (nil for the root).
func FindNodeAndParent(tree *domain.Tree, nodeID string) (node, parent *domain.Node, err error) {
	return tree.FindNodeAndParent(nodeID)
}

// AddChild appends a new child labeled label under parentID.
//
// The label must differ from the root, from the parent and from every
// existing child of the parent. The child is appended after its siblings;
// left-before-right ordering is left to the encoder. An empty arrangement
// falls back to domain.DefaultArrangement.
//
// On rejection the original tree is returned along with the error.
func (e *Editor) AddChild(tree *domain.Tree, parentID string, label int, side domain.Side, arrangement domain.Arrangement) (*domain.Tree, error) {
	if _, err := domain.ParseSide(string(side)); err != nil {
		return tree, err
	}
	if _, err := domain.ParseArrangement(string(arrangement)); err != nil {
		return tree, err
	}

	parent, _, err := tree.FindNodeAndParent(parentID)
	if err != nil {
		return tree, err
	}
	if err := validator.CheckAddChild(tree, parent, label); err != nil {
		return tree, err
	}

	if arrangement == "" {
		arrangement = domain.DefaultArrangement(parent.ID == tree.Root().ID)
	}
	child := &domain.Node{
		ID:          e.newID(),
		Label:       label,
		Children:    []*domain.Node{},
		Side:        side,
		Arrangement: arrangement,
	}

	return tree.Update(parentID, func(n *domain.Node) {
		n.Children = append(n.Children, child)
	})
}

// Relabel gives nodeID a new label.
//
// The label must differ from the root (unless nodeID is the root), from the
// parent, from every sibling and from the node's own children. Relabeling the
// root is checked against every other node in the tree.
//
// On rejection the original tree is returned along with the error.
func (e *Editor) Relabel(tree *domain.Tree, nodeID string, label int) (*domain.Tree, error) {
	node, parent, err := tree.FindNodeAndParent(nodeID)
	if err != nil {
		return tree, err
	}
	if err := validator.CheckRelabel(tree, node, parent, label); err != nil {
		return tree, err
	}
	if node.Label == label {
		return tree, nil
	}
	return tree.Update(nodeID, func(n *domain.Node) {
		n.Label = label
	})
}
