// Package cli implements the interactive terminal editor and the wiring
// shared by the arbor commands.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/crabritto/arbor"
	"github.com/crabritto/arbor/internal/presentation/graph"
	"github.com/crabritto/arbor/internal/presentation/tui"
	"github.com/crabritto/arbor/pkg/domain"
)

// ErrQuit ends the editor loop.
var ErrQuit = errors.New("quit")

const helpText = `Commands:
  show                                 print the tree with #n indexes
  add <parent> <label> <left|right> [horizontal|vertical]
  relabel <node> <label>
  find <node>                          show a node and its parent
  wire [label|composite]               print the encoded tree
  graph                                print a Mermaid diagram
  import <file>                        replace the tree from a wire file
  result                               submit the tree for analysis; the
                                       answer prints when it arrives
  help
  quit
Nodes are addressed by id, by #n, or as "root".`

// EditorOptions tunes the terminal editor.
type EditorOptions struct {
	// Interactive prints the banner and prompts; set when stdin is a terminal.
	Interactive bool
	Version     string
}

// Editor is a line-oriented tree editor over one session.
type Editor struct {
	svc       *arbor.Service
	sessionID string
	out       io.Writer
	opts      EditorOptions
	styles    tui.Styles
	render    func(string) (string, error)
	lastEdit  string

	// outcomes carries finished submissions back to the loop that renders them.
	outcomes chan arbor.Outcome
	pending  int
}

// NewEditor creates an editor bound to sessionID, writing to out.
func NewEditor(svc *arbor.Service, sessionID string, out io.Writer, opts EditorOptions) *Editor {
	return &Editor{
		svc:       svc,
		sessionID: sessionID,
		out:       out,
		opts:      opts,
		styles:    tui.NewStyles(out),
		render:    tui.NewRenderer(opts.Interactive),
		outcomes:  make(chan arbor.Outcome, 4),
	}
}

// Run reads commands from in until quit, EOF or ctx is done. Analysis
// results are printed as they arrive, between commands. At EOF, Run waits
// for submissions still in flight.
func (e *Editor) Run(ctx context.Context, in io.Reader) error {
	if e.opts.Interactive {
		tui.PrintBanner(e.out, e.opts.Version)
		fmt.Fprintf(e.out, ">>> Session '%s' active. Type 'help' for commands.\n", e.sessionID)
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	for {
		e.prompt()
		select {
		case <-ctx.Done():
			fmt.Fprintln(e.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				err := <-readErr
				e.Wait(ctx)
				return err
			}
			err := e.Exec(ctx, line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintln(e.out, e.styles.Error("error: "+err.Error()))
			}
		case res := <-e.outcomes:
			e.pending--
			e.showOutcome(res)
		}
	}
}

// Wait prints every pending analysis result, returning early if ctx is done.
func (e *Editor) Wait(ctx context.Context) {
	for e.pending > 0 {
		select {
		case <-ctx.Done():
			return
		case res := <-e.outcomes:
			e.pending--
			e.showOutcome(res)
		}
	}
}

func (e *Editor) prompt() {
	if e.opts.Interactive {
		fmt.Fprint(e.out, "> ")
	}
}

// Exec runs a single command line.
func (e *Editor) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "show", "ls":
		return e.show(ctx)
	case "add":
		return e.add(ctx, args)
	case "relabel":
		return e.relabel(ctx, args)
	case "find":
		return e.find(ctx, args)
	case "wire", "encode":
		return e.wire(ctx, args)
	case "graph":
		return e.graph(ctx)
	case "import":
		return e.importFile(ctx, args)
	case "result", "view":
		return e.result(ctx)
	case "help", "?":
		fmt.Fprintln(e.out, helpText)
		return nil
	case "quit", "exit", "q":
		return ErrQuit
	}
	return fmt.Errorf("unknown command %q (try 'help')", cmd)
}

func (e *Editor) show(ctx context.Context) error {
	tree, err := e.svc.Tree(ctx, e.sessionID)
	if err != nil {
		return err
	}
	fmt.Fprint(e.out, Outline(tree))
	return nil
}

func (e *Editor) add(ctx context.Context, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return errors.New("usage: add <parent> <label> <left|right> [horizontal|vertical]")
	}
	parentID, err := e.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	label, err := parseLabel(args[1])
	if err != nil {
		return err
	}
	side, err := domain.ParseSide(strings.ToLower(args[2]))
	if err != nil {
		return err
	}
	var arrangement domain.Arrangement
	if len(args) == 4 {
		if arrangement, err = domain.ParseArrangement(strings.ToLower(args[3])); err != nil {
			return err
		}
	}

	tree, err := e.svc.AddChild(ctx, e.sessionID, parentID, label, side, arrangement)
	if err != nil {
		return describe(err)
	}
	if parent, ok := tree.Find(parentID); ok {
		if child, ok := parent.Child(label); ok {
			e.lastEdit = child.ID
		}
	}
	fmt.Fprintln(e.out, e.styles.OK(fmt.Sprintf("added %d as %s child of %s", label, side, args[0])))
	fmt.Fprint(e.out, Outline(tree))
	return nil
}

func (e *Editor) relabel(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: relabel <node> <label>")
	}
	nodeID, err := e.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	label, err := parseLabel(args[1])
	if err != nil {
		return err
	}

	tree, err := e.svc.Relabel(ctx, e.sessionID, nodeID, label)
	if err != nil {
		return describe(err)
	}
	e.lastEdit = nodeID
	fmt.Fprintln(e.out, e.styles.OK(fmt.Sprintf("relabeled to %d", label)))
	fmt.Fprint(e.out, Outline(tree))
	return nil
}

func (e *Editor) find(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: find <node>")
	}
	nodeID, err := e.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	node, parent, err := e.svc.Find(ctx, e.sessionID, nodeID)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(e.out, "node    %s  label=%d", node.ID, node.Label)
	if parent == nil {
		fmt.Fprintln(e.out, "  (root)")
		return nil
	}
	fmt.Fprintf(e.out, "  side=%s  arrangement=%s\n", node.Side, node.Arrangement)
	fmt.Fprintf(e.out, "parent  %s  label=%d\n", parent.ID, parent.Label)
	return nil
}

func (e *Editor) wire(ctx context.Context, args []string) error {
	var scheme domain.KeyScheme
	if len(args) > 0 {
		s, err := domain.ParseKeyScheme(strings.ToLower(args[0]))
		if err != nil {
			return err
		}
		scheme = s
	}
	w, err := e.svc.Encode(ctx, e.sessionID, scheme)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, string(b))
	return nil
}

func (e *Editor) graph(ctx context.Context) error {
	tree, err := e.svc.Tree(ctx, e.sessionID)
	if err != nil {
		return err
	}
	var overlay *graph.GraphOverlay
	if e.lastEdit != "" {
		overlay = &graph.GraphOverlay{Highlight: e.lastEdit}
	}
	fmt.Fprint(e.out, graph.GenerateMermaid(tree, overlay))
	return nil
}

func (e *Editor) importFile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: import <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	tree, err := e.svc.Import(ctx, e.sessionID, data)
	if err != nil {
		return err
	}
	e.lastEdit = ""
	fmt.Fprintln(e.out, e.styles.OK(fmt.Sprintf("imported %d nodes", tree.Len())))
	fmt.Fprint(e.out, Outline(tree))
	return nil
}

func (e *Editor) result(ctx context.Context) error {
	outcome, err := e.svc.Submit(ctx, e.sessionID)
	if err != nil {
		return err
	}
	e.pending++
	go func() {
		for res := range outcome {
			select {
			case e.outcomes <- res:
			case <-ctx.Done():
				return
			}
		}
	}()
	fmt.Fprintln(e.out, e.styles.Muted("submitted; editing stays available"))
	return nil
}

func (e *Editor) showOutcome(res arbor.Outcome) {
	if res.Err != nil {
		fmt.Fprintln(e.out, e.styles.Error("error: "+res.Err.Error()))
		return
	}
	out, err := e.render(tui.ResultMarkdown(res.Result))
	if err != nil {
		fmt.Fprintln(e.out, e.styles.Error("error: "+err.Error()))
		return
	}
	fmt.Fprint(e.out, out)
}

// resolve turns "root", "#n" or a raw id into a node id.
func (e *Editor) resolve(ctx context.Context, ref string) (string, error) {
	if ref == "root" {
		return domain.RootID, nil
	}
	if !strings.HasPrefix(ref, "#") {
		return ref, nil
	}
	i, err := strconv.Atoi(ref[1:])
	if err != nil {
		return "", fmt.Errorf("invalid node index %q", ref)
	}
	tree, err := e.svc.Tree(ctx, e.sessionID)
	if err != nil {
		return "", err
	}
	nodes := Index(tree)
	if i < 0 || i >= len(nodes) {
		return "", fmt.Errorf("no node %s (tree has %d nodes)", ref, len(nodes))
	}
	return nodes[i].ID, nil
}

func parseLabel(s string) (int, error) {
	label, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("label must be an integer, got %q", s)
	}
	return label, nil
}

// describe turns rejections into user-facing messages.
func describe(err error) error {
	var rej *domain.RejectionError
	if !errors.As(err, &rej) {
		return err
	}
	switch rej.Rule {
	case domain.RuleRoot:
		return fmt.Errorf("rejected: %d is the root's label", rej.Label)
	case domain.RuleParent:
		return fmt.Errorf("rejected: %d is the parent's label", rej.Label)
	case domain.RuleSibling:
		return fmt.Errorf("rejected: a sibling is already labeled %d", rej.Label)
	case domain.RuleChild:
		return fmt.Errorf("rejected: %d is already used below this node", rej.Label)
	case domain.RuleNotFound:
		return fmt.Errorf("no node %q", rej.NodeID)
	}
	return err
}
