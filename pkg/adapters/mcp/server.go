// Package mcp exposes the tree editor as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/crabritto/arbor"
	"github.com/crabritto/arbor/internal/logging"
	"github.com/crabritto/arbor/internal/presentation/graph"
	"github.com/crabritto/arbor/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Editor is the tree editing core used by the tools. *arbor.Service implements it.
type Editor interface {
	Start(ctx context.Context, sessionID string) (string, *domain.Tree, error)
	Tree(ctx context.Context, sessionID string) (*domain.Tree, error)
	AddChild(ctx context.Context, sessionID, parentID string, label int, side domain.Side, arrangement domain.Arrangement) (*domain.Tree, error)
	Relabel(ctx context.Context, sessionID, nodeID string, label int) (*domain.Tree, error)
	Encode(ctx context.Context, sessionID string, scheme domain.KeyScheme) (*domain.WireTree, error)
	ViewResult(ctx context.Context, sessionID string) (*domain.DisplayModel, error)
}

var _ Editor = (*arbor.Service)(nil)

// TreeResponse is returned by every tool that touches the tree.
type TreeResponse struct {
	SessionID string       `json:"session_id" jsonschema_description:"The editing session"`
	Tree      *domain.Tree `json:"tree" jsonschema_description:"The current tree, rooted at node id 'root'"`
	Mermaid   string       `json:"mermaid,omitempty" jsonschema_description:"Mermaid flowchart of the tree"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type addChildArgs struct {
	SessionID   string `json:"session_id"`
	ParentID    string `json:"parent_id"`
	Label       *int   `json:"label"`
	Side        string `json:"side"`
	Arrangement string `json:"arrangement"`
}

type relabelArgs struct {
	SessionID string `json:"session_id"`
	NodeID    string `json:"node_id"`
	Label     *int   `json:"label"`
}

type encodeArgs struct {
	SessionID string `json:"session_id"`
	Scheme    string `json:"scheme"`
}

// Server wraps the editor and exposes it as an MCP server.
type Server struct {
	editor    Editor
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the logger. It must not write to stdout when serving stdio.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(editor Editor, opts ...Option) *Server {
	s := &Server{
		editor:    editor,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the tools over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "addr", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	session := mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by start_session"))

	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start (or resume) an editing session. The tree starts as a single root labeled 0."),
		mcp.WithString("session_id", mcp.Description("Session id to resume; a new one is generated when omitted")),
		mcp.WithOutputSchema[TreeResponse](),
	), mcp.NewStructuredToolHandler(s.handleStartSession))

	s.mcpServer.AddTool(mcp.NewTool("add_child",
		mcp.WithDescription("Add a labeled child under a node. Labels may not repeat the root, the parent or a sibling."),
		session,
		mcp.WithString("parent_id", mcp.Required(), mcp.Description("Id of the parent node; the root is 'root'")),
		mcp.WithNumber("label", mcp.Required(), mcp.Description("Integer label of the new node")),
		mcp.WithString("side", mcp.Required(), mcp.Enum(string(domain.SideLeft), string(domain.SideRight))),
		mcp.WithString("arrangement", mcp.Enum(string(domain.ArrangementHorizontal), string(domain.ArrangementVertical))),
		mcp.WithOutputSchema[TreeResponse](),
	), mcp.NewStructuredToolHandler(s.handleAddChild))

	s.mcpServer.AddTool(mcp.NewTool("relabel",
		mcp.WithDescription("Change the label of a node."),
		session,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Id of the node to relabel")),
		mcp.WithNumber("label", mcp.Required(), mcp.Description("New integer label")),
		mcp.WithOutputSchema[TreeResponse](),
	), mcp.NewStructuredToolHandler(s.handleRelabel))

	s.mcpServer.AddTool(mcp.NewTool("show_tree",
		mcp.WithDescription("Show the current tree with a Mermaid rendering."),
		session,
		mcp.WithOutputSchema[TreeResponse](),
	), mcp.NewStructuredToolHandler(s.handleShowTree))

	s.mcpServer.AddTool(mcp.NewTool("encode_tree",
		mcp.WithDescription("Encode the tree as the adjacency document sent to the analysis service."),
		session,
		mcp.WithString("scheme", mcp.Enum(string(domain.KeyLabel), string(domain.KeyComposite)),
			mcp.Description("Key scheme; the configured one when omitted")),
	), mcp.NewStructuredToolHandler(s.handleEncodeTree))

	s.mcpServer.AddTool(mcp.NewTool("view_result",
		mcp.WithDescription("Submit the tree for analysis and return traversals, height and classification."),
		session,
		mcp.WithOutputSchema[domain.DisplayModel](),
	), mcp.NewStructuredToolHandler(s.handleViewResult))
}

// Handlers return errors as tool errors; NewStructuredToolHandler never
// turns them into protocol errors.

func (s *Server) handleStartSession(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (TreeResponse, error) {
	id, tree, err := s.editor.Start(ctx, args.SessionID)
	if err != nil {
		return TreeResponse{}, err
	}
	return TreeResponse{SessionID: id, Tree: tree}, nil
}

func (s *Server) handleAddChild(ctx context.Context, _ mcp.CallToolRequest, args addChildArgs) (TreeResponse, error) {
	if args.Label == nil {
		return TreeResponse{}, errors.New("label is required")
	}
	side, err := domain.ParseSide(args.Side)
	if err != nil {
		return TreeResponse{}, err
	}
	arrangement, err := domain.ParseArrangement(args.Arrangement)
	if err != nil {
		return TreeResponse{}, err
	}
	tree, err := s.editor.AddChild(ctx, args.SessionID, args.ParentID, *args.Label, side, arrangement)
	if err != nil {
		return TreeResponse{}, s.explain("add_child", err)
	}
	return TreeResponse{SessionID: args.SessionID, Tree: tree}, nil
}

func (s *Server) handleRelabel(ctx context.Context, _ mcp.CallToolRequest, args relabelArgs) (TreeResponse, error) {
	if args.Label == nil {
		return TreeResponse{}, errors.New("label is required")
	}
	tree, err := s.editor.Relabel(ctx, args.SessionID, args.NodeID, *args.Label)
	if err != nil {
		return TreeResponse{}, s.explain("relabel", err)
	}
	return TreeResponse{SessionID: args.SessionID, Tree: tree}, nil
}

func (s *Server) handleShowTree(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (TreeResponse, error) {
	tree, err := s.editor.Tree(ctx, args.SessionID)
	if err != nil {
		return TreeResponse{}, err
	}
	return TreeResponse{
		SessionID: args.SessionID,
		Tree:      tree,
		Mermaid:   graph.GenerateMermaid(tree, nil),
	}, nil
}

func (s *Server) handleEncodeTree(ctx context.Context, _ mcp.CallToolRequest, args encodeArgs) (*domain.WireTree, error) {
	var scheme domain.KeyScheme
	if args.Scheme != "" {
		parsed, err := domain.ParseKeyScheme(args.Scheme)
		if err != nil {
			return nil, err
		}
		scheme = parsed
	}
	return s.editor.Encode(ctx, args.SessionID, scheme)
}

func (s *Server) handleViewResult(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (*domain.DisplayModel, error) {
	dm, err := s.editor.ViewResult(ctx, args.SessionID)
	if err != nil {
		s.logger.Error("mcp view_result failed", "session_id", args.SessionID, "err", err)
		return nil, err
	}
	return dm, nil
}

// explain logs a failed edit and names the broken rule for the agent.
func (s *Server) explain(op string, err error) error {
	var rej *domain.RejectionError
	if errors.As(err, &rej) {
		s.logger.Info("mcp edit rejected", "op", op, "rule", rej.Rule, "node_id", rej.NodeID)
		return fmt.Errorf("rejected (%s): %w", rej.Rule, err)
	}
	s.logger.Error("mcp edit failed", "op", op, "err", err)
	return err
}
