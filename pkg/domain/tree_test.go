package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func sampleTree() *Tree {
	left := &Node{ID: "a", Label: 3, Side: SideLeft, Children: []*Node{
		{ID: "c", Label: 1, Side: SideRight, Children: []*Node{}},
	}}
	right := &Node{ID: "b", Label: 5, Side: SideRight, Children: []*Node{}}
	return NewTreeFromRoot(&Node{ID: RootID, Label: 8, Children: []*Node{right, left}})
}

func TestNewTree(t *testing.T) {
	tree := NewTree()
	if tree.Root().ID != RootID || tree.Root().Label != UnsetLabel {
		t.Fatalf("unexpected root %+v", tree.Root())
	}
	if tree.Len() != 1 {
		t.Errorf("expected 1 node, got %d", tree.Len())
	}
}

func TestFindNodeAndParent(t *testing.T) {
	tree := sampleTree()

	tests := []struct {
		id         string
		wantLabel  int
		wantParent string // "" means no parent
	}{
		{id: RootID, wantLabel: 8},
		{id: "a", wantLabel: 3, wantParent: RootID},
		{id: "c", wantLabel: 1, wantParent: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			node, parent, err := tree.FindNodeAndParent(tt.id)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if node.Label != tt.wantLabel {
				t.Errorf("label = %d, want %d", node.Label, tt.wantLabel)
			}
			switch {
			case tt.wantParent == "" && parent != nil:
				t.Errorf("expected no parent, got %s", parent.ID)
			case tt.wantParent != "" && (parent == nil || parent.ID != tt.wantParent):
				t.Errorf("parent = %v, want %s", parent, tt.wantParent)
			}
		})
	}

	_, _, err := tree.FindNodeAndParent("missing")
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
	if RuleOf(err) != RuleNotFound {
		t.Errorf("expected rule %s, got %s", RuleNotFound, RuleOf(err))
	}
}

func TestUpdate_PathCopy(t *testing.T) {
	old := sampleTree()

	updated, err := old.Update("c", func(n *Node) { n.Label = 42 })
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if n, _ := old.Find("c"); n.Label != 1 {
		t.Errorf("old snapshot mutated: label %d", n.Label)
	}
	if n, _ := updated.Find("c"); n.Label != 42 {
		t.Errorf("new snapshot label = %d, want 42", n.Label)
	}

	// Ancestors are copied, untouched siblings are shared.
	if old.Root() == updated.Root() {
		t.Error("root should have been copied")
	}
	oldB, _ := old.Find("b")
	newB, _ := updated.Find("b")
	if oldB != newB {
		t.Error("unmodified subtree should be shared")
	}

	if _, err := old.Update("missing", func(*Node) {}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestOrdered(t *testing.T) {
	root := sampleTree().Root()
	ordered := root.Ordered()
	if len(ordered) != 2 || ordered[0].ID != "a" || ordered[1].ID != "b" {
		t.Errorf("expected left child first, got %v, %v", ordered[0].ID, ordered[1].ID)
	}
	if !root.HasLeft() {
		t.Error("expected HasLeft")
	}
}

func TestTreeJSON(t *testing.T) {
	tree := sampleTree()
	data, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Tree
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Len() != tree.Len() {
		t.Errorf("node count = %d, want %d", decoded.Len(), tree.Len())
	}
	if n, ok := decoded.Find("c"); !ok || n.Side != SideRight {
		t.Errorf("decoded node c = %+v", n)
	}

	if err := json.Unmarshal([]byte(`{"label":1}`), &decoded); err == nil {
		t.Error("expected error for root without id")
	}
}

func TestParseSideAndArrangement(t *testing.T) {
	if s, err := ParseSide("left"); err != nil || s != SideLeft {
		t.Errorf("ParseSide(left) = %v, %v", s, err)
	}
	if _, err := ParseSide("up"); err == nil {
		t.Error("expected error for invalid side")
	}
	if a, err := ParseArrangement(""); err != nil || a != "" {
		t.Errorf("ParseArrangement(\"\") = %v, %v", a, err)
	}
	if _, err := ParseArrangement("diagonal"); err == nil {
		t.Error("expected error for invalid arrangement")
	}
	if DefaultArrangement(true) != ArrangementVertical || DefaultArrangement(false) != ArrangementHorizontal {
		t.Error("unexpected default arrangement")
	}
}
