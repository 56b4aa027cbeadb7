package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crabritto/arbor"
	"github.com/crabritto/arbor/pkg/adapters/analysis"
	"github.com/crabritto/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditor(t *testing.T, opts ...arbor.Option) (*Editor, *bytes.Buffer) {
	t.Helper()
	n := 0
	opts = append(opts, arbor.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("n%d", n)
	}))
	svc, err := arbor.New(opts...)
	require.NoError(t, err)
	id, _, err := svc.Start(context.Background(), "cli")
	require.NoError(t, err)

	var out bytes.Buffer
	return NewEditor(svc, id, &out, EditorOptions{}), &out
}

func TestEditor_Run(t *testing.T) {
	ed, out := newTestEditor(t)

	script := strings.Join([]string{
		"relabel root 8",
		"add root 3 left",
		"add #1 5 right",
		"add root 9 right",
		"show",
		"quit",
		"show", // never reached
	}, "\n")

	require.NoError(t, ed.Run(context.Background(), strings.NewReader(script)))

	want := "#0 8 (root)\n  #1 L 3\n    #2 R 5\n  #3 R 9\n"
	assert.True(t, strings.HasSuffix(out.String(), want), out.String())
	// Printed once after the last add and once by show; nothing after quit.
	assert.Equal(t, 2, strings.Count(out.String(), want))
}

func TestEditor_Rejections(t *testing.T) {
	ed, out := newTestEditor(t)
	ctx := context.Background()

	require.NoError(t, ed.Exec(ctx, "add root 3 left"))
	require.NoError(t, ed.Exec(ctx, "add root 5 right"))

	tests := []struct {
		line string
		want string
	}{
		{line: "add root 3 right", want: "sibling is already labeled 3"},
		{line: "add root 0 left", want: "root's label"},
		{line: "relabel n1 5", want: "sibling is already labeled 5"},
		{line: "add n1 3 left", want: "parent's label"},
		{line: "relabel nope 4", want: `no node "nope"`},
		{line: "add #9 4 left", want: "no node #9"},
		{line: "add root x left", want: "label must be an integer"},
		{line: "add root 4 up", want: "invalid side"},
		{line: "frobnicate", want: "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			err := ed.Exec(ctx, tt.line)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	// The tree is unchanged by every rejection.
	out.Reset()
	require.NoError(t, ed.Exec(ctx, "show"))
	assert.Equal(t, "#0 0 (root)\n  #1 L 3\n  #2 R 5\n", out.String())
}

func TestEditor_RunReportsErrorsAndContinues(t *testing.T) {
	ed, out := newTestEditor(t)

	script := "add root 0 left\nadd root 1 left\nshow\n"
	require.NoError(t, ed.Run(context.Background(), strings.NewReader(script)))

	assert.Contains(t, out.String(), "error: rejected: 0 is the root's label")
	assert.Contains(t, out.String(), "#1 L 1")
}

func TestEditor_WireAndGraph(t *testing.T) {
	ed, out := newTestEditor(t)
	ctx := context.Background()
	require.NoError(t, ed.Exec(ctx, "add root 4 right"))

	out.Reset()
	require.NoError(t, ed.Exec(ctx, "wire"))
	assert.JSONEq(t, `{"0":[null,4],"4":[]}`, out.String())

	out.Reset()
	require.NoError(t, ed.Exec(ctx, "wire composite"))
	assert.JSONEq(t, `{"0root":[null,"4n1"],"4n1":[]}`, out.String())

	assert.Error(t, ed.Exec(ctx, "wire hashed"))

	out.Reset()
	require.NoError(t, ed.Exec(ctx, "graph"))
	assert.Contains(t, out.String(), "root -- R --> n1")
	assert.Contains(t, out.String(), "class n1 current;")
}

func TestEditor_Find(t *testing.T) {
	ed, out := newTestEditor(t)
	ctx := context.Background()
	require.NoError(t, ed.Exec(ctx, "add root 4 left"))

	out.Reset()
	require.NoError(t, ed.Exec(ctx, "find #1"))
	assert.Contains(t, out.String(), "node    n1  label=4  side=left  arrangement=vertical")
	assert.Contains(t, out.String(), "parent  root  label=0")

	out.Reset()
	require.NoError(t, ed.Exec(ctx, "find root"))
	assert.Contains(t, out.String(), "(root)")
}

func TestEditor_Import(t *testing.T) {
	ed, out := newTestEditor(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// exported earlier
		"1": [2, 3],
		"2": [],
		"3": [],
	}`), 0o644))

	require.NoError(t, ed.Exec(ctx, "import "+path))
	assert.Contains(t, out.String(), "imported 3 nodes")
	assert.Contains(t, out.String(), "#0 1 (root)\n  #1 L 2\n  #2 R 3\n")

	assert.Error(t, ed.Exec(ctx, "import "+filepath.Join(t.TempDir(), "missing.json")))
}

func TestEditor_Result(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"pre_order":[0,3],"post_order":[3,0],"height":"A altura é 1","type":"completa","tree_type":"é completa"}`)
	}))
	defer srv.Close()

	ed, out := newTestEditor(t, arbor.WithAnalyzer(analysis.NewClient(srv.URL)))
	ctx := context.Background()
	require.NoError(t, ed.Exec(ctx, "add root 3 left"))

	out.Reset()
	require.NoError(t, ed.Exec(ctx, "result"))
	ed.Wait(ctx)
	assert.Contains(t, out.String(), "| Pre-order | 0 3 |")
	assert.Contains(t, out.String(), "| Height | 1 |")
	assert.Contains(t, out.String(), "| Type | completa |")
}

// lockedBuffer lets the test read output while Run is writing it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEditor_RunEditsWhileAnalysisIsPending(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = io.WriteString(w, `{"pre_order":[0],"post_order":[0],"height":"A altura é 0","type":"cheia","tree_type":"é cheia"}`)
	}))
	defer srv.Close()

	svc, err := arbor.New(arbor.WithAnalyzer(analysis.NewClient(srv.URL)))
	require.NoError(t, err)
	id, _, err := svc.Start(context.Background(), "cli")
	require.NoError(t, err)

	out := &lockedBuffer{}
	ed := NewEditor(svc, id, out, EditorOptions{})
	in, script := io.Pipe()

	done := make(chan error, 1)
	go func() { done <- ed.Run(context.Background(), in) }()

	_, err = io.WriteString(script, "relabel root 8\nresult\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "submitted") },
		time.Second, 5*time.Millisecond)

	// The analysis is still blocked; the editor keeps taking commands.
	_, err = io.WriteString(script, "add root 3 left\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "added 3") },
		time.Second, 5*time.Millisecond)
	assert.NotContains(t, out.String(), "| Type |")

	close(release)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "| Type | cheia |") },
		2*time.Second, 5*time.Millisecond)

	require.NoError(t, script.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("editor did not stop at end of input")
	}

	tree, err := svc.Tree(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Len())
}

func TestEditor_RunWaitsForPendingResultAtEOF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		_, _ = io.WriteString(w, `{"pre_order":[0,3],"post_order":[3,0],"height":"A altura é 1","type":"completa","tree_type":"é completa"}`)
	}))
	defer srv.Close()

	ed, out := newTestEditor(t, arbor.WithAnalyzer(analysis.NewClient(srv.URL)))
	script := "add root 3 left\nresult\n"
	require.NoError(t, ed.Run(context.Background(), strings.NewReader(script)))
	assert.Contains(t, out.String(), "| Type | completa |")
}

func TestEditor_ResultWithoutService(t *testing.T) {
	ed, _ := newTestEditor(t)
	err := ed.Exec(context.Background(), "result")
	assert.ErrorIs(t, err, arbor.ErrNoAnalyzer)
}

func TestOutline_IndexMatchesNumbering(t *testing.T) {
	right := &domain.Node{ID: "b", Label: 5, Side: domain.SideRight}
	left := &domain.Node{ID: "a", Label: 3, Side: domain.SideLeft}
	tree := domain.NewTreeFromRoot(&domain.Node{ID: domain.RootID, Label: 1, Children: []*domain.Node{right, left}})

	nodes := Index(tree)
	require.Len(t, nodes, 3)
	assert.Equal(t, []string{"root", "a", "b"}, []string{nodes[0].ID, nodes[1].ID, nodes[2].ID})
	assert.Equal(t, "#0 1 (root)\n  #1 L 3\n  #2 R 5\n", Outline(tree))
}
