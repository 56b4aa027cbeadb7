package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/crabritto/arbor/internal/validator"
	"github.com/crabritto/arbor/pkg/domain"
	"github.com/crabritto/arbor/pkg/model"
	"github.com/tidwall/jsonc"
)

// ErrImport is matched by every ImportError.
var ErrImport = errors.New("import failed")

// MaxImportNodes bounds the size of an imported tree.
const MaxImportNodes = 10000

// ImportError reports an import file that could not be turned into a tree.
type ImportError struct {
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("import failed: %s", e.Reason)
	}
	return fmt.Sprintf("import failed: %s: %v", e.Reason, e.Err)
}

func (e *ImportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrImport}
	}
	return []error{ErrImport, e.Err}
}

// DetectScheme guesses the key scheme of a WireTree: label keys are plain integers.
func DetectScheme(w *domain.WireTree) domain.KeyScheme {
	for _, k := range w.Keys() {
		if _, err := strconv.Atoi(k); err != nil {
			return domain.KeyComposite
		}
	}
	return domain.KeyLabel
}

// Import parses a WireTree document and builds a fresh tree from it.
//
// Comments and trailing commas are tolerated. The first key is the root and
// its numeric prefix the root label. In each child list the first entry is
// the left child (or the absent marker) and every further entry a right
// child. New ids come from newID; nil means model.NewID. The resulting tree
// must satisfy every labeling invariant.
func Import(data []byte, newID model.IDGenerator) (*domain.Tree, error) {
	if newID == nil {
		newID = model.NewID
	}

	var w domain.WireTree
	if err := json.Unmarshal(jsonc.ToJSON(data), &w); err != nil {
		return nil, &ImportError{Reason: "malformed document", Err: err}
	}
	if w.Len() == 0 {
		return nil, &ImportError{Reason: "document has no nodes"}
	}

	b := &builder{
		wire:    &w,
		scheme:  DetectScheme(&w),
		newID:   newID,
		onPath:  make(map[string]bool),
		reached: make(map[string]bool),
	}

	rootKey := w.Keys()[0]
	rootLabel, err := domain.ParseKeyLabel(rootKey)
	if err != nil {
		return nil, &ImportError{Reason: "invalid root key", Err: err}
	}
	root, err := b.build(rootKey, rootLabel)
	if err != nil {
		return nil, err
	}
	root.ID = domain.RootID
	root.Side = ""
	root.Arrangement = ""

	for _, k := range w.Keys() {
		if !b.reached[k] {
			return nil, &ImportError{Reason: fmt.Sprintf("key %q is not reachable from the root", k)}
		}
	}

	tree := domain.NewTreeFromRoot(root)
	if err := validator.ValidateTree(tree); err != nil {
		return nil, &ImportError{Reason: "tree violates labeling rules", Err: err}
	}
	return tree, nil
}

type builder struct {
	wire    *domain.WireTree
	scheme  domain.KeyScheme
	newID   model.IDGenerator
	onPath  map[string]bool
	reached map[string]bool
	count   int
}

func (b *builder) build(key string, label int) (*domain.Node, error) {
	if b.onPath[key] {
		return nil, &ImportError{Reason: fmt.Sprintf("cycle through key %q", key)}
	}
	refs, known := b.wire.Get(key)
	if b.scheme == domain.KeyComposite {
		// Composite keys name nodes, so every reference needs its own entry
		// and no node may hang under two parents.
		if !known {
			return nil, &ImportError{Reason: fmt.Sprintf("unknown reference %q", key)}
		}
		if b.reached[key] {
			return nil, &ImportError{Reason: fmt.Sprintf("key %q has more than one parent", key)}
		}
	}
	b.count++
	if b.count > MaxImportNodes {
		return nil, &ImportError{Reason: fmt.Sprintf("more than %d nodes", MaxImportNodes)}
	}
	b.onPath[key] = true
	b.reached[key] = true
	defer delete(b.onPath, key)

	node := &domain.Node{ID: b.newID(), Label: label, Children: []*domain.Node{}}
	for i, ref := range refs {
		if ref.Absent {
			if i != 0 {
				return nil, &ImportError{Reason: fmt.Sprintf("key %q: absent marker at position %d", key, i)}
			}
			continue
		}

		childKey, childLabel, err := b.resolve(ref)
		if err != nil {
			return nil, &ImportError{Reason: fmt.Sprintf("key %q", key), Err: err}
		}
		child, err := b.build(childKey, childLabel)
		if err != nil {
			return nil, err
		}
		child.Side = domain.SideRight
		if i == 0 {
			child.Side = domain.SideLeft
		}
		child.Arrangement = domain.DefaultArrangement(len(b.onPath) == 1)
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// resolve maps a child reference onto the key of its entry and its label.
func (b *builder) resolve(ref domain.Ref) (string, int, error) {
	if b.scheme == domain.KeyLabel {
		if ref.Key != "" {
			return "", 0, fmt.Errorf("label-keyed document references child %q by key", ref.Key)
		}
		return strconv.Itoa(ref.Label), ref.Label, nil
	}
	if ref.Key == "" {
		return "", 0, fmt.Errorf("composite-keyed document references child %d by label", ref.Label)
	}
	label, err := domain.ParseKeyLabel(ref.Key)
	return ref.Key, label, err
}
