// Package persistence holds the byte encodings stores use for tree snapshots.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/crabritto/arbor/internal/validator"
	"github.com/crabritto/arbor/pkg/domain"
)

// ErrInvalidSnapshot is returned when stored bytes decode into a tree that
// breaks the structural or labeling invariants.
var ErrInvalidSnapshot = errors.New("invalid stored tree")

// Codec turns snapshots into stored bytes and back.
type Codec interface {
	Marshal(tree *domain.Tree) ([]byte, error)
	Unmarshal(data []byte) (*domain.Tree, error)
}

// JSONCodec stores the tree as its plain JSON form.
type JSONCodec struct{}

func (JSONCodec) Marshal(tree *domain.Tree) ([]byte, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tree: %w", err)
	}
	return data, nil
}

func (JSONCodec) Unmarshal(data []byte) (*domain.Tree, error) {
	var tree domain.Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tree: %w", err)
	}
	if err := validator.ValidateTree(&tree); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return &tree, nil
}
