package wire_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/crabritto/arbor/internal/wire"
	"github.com/crabritto/arbor/pkg/domain"
	"github.com/crabritto/arbor/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() model.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("n%d", n)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestEncode_LeftBeforeRight(t *testing.T) {
	tree := domain.NewTree()
	tree, err := model.AddChild(tree, domain.RootID, 5, domain.SideRight, "")
	require.NoError(t, err)
	tree, err = model.AddChild(tree, domain.RootID, 3, domain.SideLeft, "")
	require.NoError(t, err)

	w := wire.Encode(tree, domain.KeyLabel)
	refs, ok := w.Get("0")
	require.True(t, ok)
	assert.Equal(t, []domain.Ref{domain.LabelRef(3), domain.LabelRef(5)}, refs)
	assert.Equal(t, `{"0":[3,5],"3":[],"5":[]}`, mustJSON(t, w))
}

func TestEncode_AbsentLeftMarker(t *testing.T) {
	ed := model.NewEditor(model.WithIDGenerator(sequentialIDs()))
	tree := domain.NewTree()
	tree, _ = ed.Relabel(tree, domain.RootID, 1)
	tree, err := ed.AddChild(tree, domain.RootID, 2, domain.SideLeft, "")
	require.NoError(t, err)
	tree, err = ed.AddChild(tree, "n1", 4, domain.SideRight, "")
	require.NoError(t, err)

	w := wire.Encode(tree, domain.KeyLabel)
	refs, _ := w.Get("2")
	require.Len(t, refs, 2)
	assert.True(t, refs[0].Absent)
	assert.Equal(t, domain.LabelRef(4), refs[1])
	assert.Equal(t, `{"1":[2],"2":[null,4],"4":[]}`, mustJSON(t, w))
}

func TestEncode_Deterministic(t *testing.T) {
	ed := model.NewEditor(model.WithIDGenerator(sequentialIDs()))
	tree := domain.NewTree()
	tree, _ = ed.Relabel(tree, domain.RootID, 50)
	tree, _ = ed.AddChild(tree, domain.RootID, 30, domain.SideRight, "")
	tree, _ = ed.AddChild(tree, domain.RootID, 70, domain.SideRight, "")
	tree, _ = ed.AddChild(tree, domain.RootID, 20, domain.SideLeft, "")
	tree, _ = ed.AddChild(tree, "n3", 10, domain.SideRight, "")

	for _, scheme := range []domain.KeyScheme{domain.KeyLabel, domain.KeyComposite} {
		first := mustJSON(t, wire.Encode(tree, scheme))
		second := mustJSON(t, wire.Encode(tree, scheme))
		assert.Equal(t, first, second, "scheme %s", scheme)
	}
	assert.Equal(t, `{"50":[20,30,70],"20":[null,10],"10":[],"30":[],"70":[]}`, mustJSON(t, wire.Encode(tree, domain.KeyLabel)))
}

func TestEncode_Composite(t *testing.T) {
	ed := model.NewEditor(model.WithIDGenerator(sequentialIDs()))
	tree := domain.NewTree()
	tree, _ = ed.Relabel(tree, domain.RootID, 1)
	tree, _ = ed.AddChild(tree, domain.RootID, 2, domain.SideLeft, "")
	tree, _ = ed.AddChild(tree, domain.RootID, 3, domain.SideRight, "")
	// Label 3 appears twice: safe only with composite keys.
	tree, err := ed.AddChild(tree, "n1", 3, domain.SideLeft, "")
	require.NoError(t, err)

	assert.True(t, wire.Ambiguous(tree))
	assert.Equal(t,
		`{"1root":["2n1","3n2"],"2n1":["3n3"],"3n3":[],"3n2":[]}`,
		mustJSON(t, wire.Encode(tree, domain.KeyComposite)))
}

func TestEncode_DefaultsToLabelScheme(t *testing.T) {
	assert.Equal(t, `{"0":[]}`, mustJSON(t, wire.Encode(domain.NewTree(), "")))
	assert.False(t, wire.Ambiguous(domain.NewTree()))
}
