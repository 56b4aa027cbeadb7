// Package http exposes the tree editor as a JSON API over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/crabritto/arbor"
	"github.com/crabritto/arbor/internal/logging"
	"github.com/crabritto/arbor/internal/presentation/graph"
	"github.com/crabritto/arbor/internal/wire"
	"github.com/crabritto/arbor/pkg/adapters/analysis"
	"github.com/crabritto/arbor/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBody caps request bodies, imports included.
const maxBody = 1 << 20

// Editor is the tree editing core served over HTTP. *arbor.Service implements it.
type Editor interface {
	Start(ctx context.Context, sessionID string) (string, *domain.Tree, error)
	Tree(ctx context.Context, sessionID string) (*domain.Tree, error)
	AddChild(ctx context.Context, sessionID, parentID string, label int, side domain.Side, arrangement domain.Arrangement) (*domain.Tree, error)
	Relabel(ctx context.Context, sessionID, nodeID string, label int) (*domain.Tree, error)
	Find(ctx context.Context, sessionID, nodeID string) (node, parent *domain.Node, err error)
	Encode(ctx context.Context, sessionID string, scheme domain.KeyScheme) (*domain.WireTree, error)
	Import(ctx context.Context, sessionID string, data []byte) (*domain.Tree, error)
	ViewResult(ctx context.Context, sessionID string) (*domain.DisplayModel, error)
	End(ctx context.Context, sessionID string) error
	Sessions(ctx context.Context) ([]string, error)
}

var _ Editor = (*arbor.Service)(nil)

// Server holds the handlers of the editor API.
type Server struct {
	Editor  Editor
	Streams *StreamManager

	metrics    http.Handler
	corsOrigin string
	logger     *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithCORSOrigin sets Access-Control-Allow-Origin. Empty means "*".
func WithCORSOrigin(origin string) Option {
	return func(s *Server) {
		s.corsOrigin = origin
	}
}

// WithLogger configures request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the editor.
func NewHandler(editor Editor, opts ...Option) (http.Handler, error) {
	server := &Server{
		Editor:     editor,
		Streams:    NewStreamManager(),
		corsOrigin: "*",
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.Streams.logger = server.logger

	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	validate, err := validateRequests(doc)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(server.enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	if server.metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(validate)
		r.Get("/healthz", server.GetHealth)
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", server.ListSessions)
			r.Post("/", server.StartSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", server.GetSession)
				r.Delete("/", server.EndSession)
				r.Post("/nodes", server.AddChild)
				r.Get("/nodes/{nodeID}", server.FindNode)
				r.Patch("/nodes/{nodeID}", server.RelabelNode)
				r.Get("/wire", server.EncodeTree)
				r.Post("/import", server.ImportTree)
				r.Post("/result", server.ViewResult)
				r.Get("/graph", server.GetGraph)
				r.Get("/events", server.SubscribeEvents)
			})
		})
	})

	return r, nil
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type sessionTree struct {
	SessionID string       `json:"session_id"`
	Tree      *domain.Tree `json:"tree"`
}

type nodeResult struct {
	SessionID string       `json:"session_id"`
	Node      *domain.Node `json:"node"`
	Tree      *domain.Tree `json:"tree"`
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(arbor.Version),
	})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Editor.Sessions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// StartSession handles POST /sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := decodeOptional(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	id, tree, err := s.Editor.Start(r.Context(), body.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionTree{SessionID: id, Tree: tree})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tree, err := s.Editor.Tree(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionTree{SessionID: id, Tree: tree})
}

// EndSession handles DELETE /sessions/{id}.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Editor.End(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.Streams.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

// AddChild handles POST /sessions/{id}/nodes.
func (s *Server) AddChild(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		ParentID    string `json:"parent_id"`
		Label       *int   `json:"label"`
		Side        string `json:"side"`
		Arrangement string `json:"arrangement"`
	}
	if err := decodeBody(r, &body); err != nil || body.Label == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: parent_id, label and side are required"})
		return
	}
	side, err := domain.ParseSide(body.Side)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	arrangement, err := domain.ParseArrangement(body.Arrangement)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	tree, err := s.Editor.AddChild(r.Context(), id, body.ParentID, *body.Label, side, arrangement)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcast(id, tree)

	var child *domain.Node
	if parent, ok := tree.Find(body.ParentID); ok {
		child, _ = parent.Child(*body.Label)
	}
	writeJSON(w, http.StatusCreated, nodeResult{SessionID: id, Node: child, Tree: tree})
}

// FindNode handles GET /sessions/{id}/nodes/{nodeID}.
func (s *Server) FindNode(w http.ResponseWriter, r *http.Request) {
	id, nodeID := chi.URLParam(r, "id"), chi.URLParam(r, "nodeID")
	node, parent, err := s.Editor.Find(r.Context(), id, nodeID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var parentID *string
	if parent != nil {
		parentID = &parent.ID
	}
	writeJSON(w, http.StatusOK, map[string]any{"node": node, "parent_id": parentID})
}

// RelabelNode handles PATCH /sessions/{id}/nodes/{nodeID}.
func (s *Server) RelabelNode(w http.ResponseWriter, r *http.Request) {
	id, nodeID := chi.URLParam(r, "id"), chi.URLParam(r, "nodeID")
	var body struct {
		Label *int `json:"label"`
	}
	if err := decodeBody(r, &body); err != nil || body.Label == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: label is required"})
		return
	}

	tree, err := s.Editor.Relabel(r.Context(), id, nodeID, *body.Label)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcast(id, tree)
	node, _ := tree.Find(nodeID)
	writeJSON(w, http.StatusOK, nodeResult{SessionID: id, Node: node, Tree: tree})
}

// EncodeTree handles GET /sessions/{id}/wire.
func (s *Server) EncodeTree(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var scheme domain.KeyScheme
	if q := r.URL.Query().Get("scheme"); q != "" {
		parsed, err := domain.ParseKeyScheme(q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		scheme = parsed
	}
	wt, err := s.Editor.Encode(r.Context(), id, scheme)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wt)
}

// ImportTree handles POST /sessions/{id}/import.
func (s *Server) ImportTree(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	tree, err := s.Editor.Import(r.Context(), id, data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcast(id, tree)
	writeJSON(w, http.StatusOK, sessionTree{SessionID: id, Tree: tree})
}

// ViewResult handles POST /sessions/{id}/result.
func (s *Server) ViewResult(w http.ResponseWriter, r *http.Request) {
	dm, err := s.Editor.ViewResult(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dm)
}

// GetGraph handles GET /sessions/{id}/graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	tree, err := s.Editor.Tree(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var overlay *graph.GraphOverlay
	if h := r.URL.Query().Get("highlight"); h != "" {
		overlay = &graph.GraphOverlay{Highlight: h}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph.GenerateMermaid(tree, overlay))
}

func (s *Server) broadcast(sessionID string, tree *domain.Tree) {
	if b, err := json.Marshal(tree); err == nil {
		s.Streams.Broadcast(sessionID, string(b))
	}
}

// -- Helpers --

type errorBody struct {
	Error  string      `json:"error"`
	Rule   domain.Rule `json:"rule,omitempty"`
	NodeID string      `json:"node_id,omitempty"`
	Label  *int        `json:"label,omitempty"`
	Status int         `json:"status,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

// writeError maps core errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		rej       *domain.RejectionError
		transport *analysis.TransportError
	)
	switch {
	case errors.As(err, &rej):
		body := errorBody{Error: rej.Error(), Rule: rej.Rule, NodeID: rej.NodeID}
		if rej.Rule == domain.RuleNotFound {
			writeJSON(w, http.StatusNotFound, body)
			return
		}
		label := rej.Label
		body.Label = &label
		writeJSON(w, http.StatusConflict, body)
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, wire.ErrImport):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.As(err, &transport):
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error:  "analysis service error",
			Status: transport.StatusCode,
			Detail: transport.Error(),
		})
	case errors.Is(err, arbor.ErrNoAnalyzer):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		s.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: fmt.Sprintf("internal error: %v", err)})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, v any) error {
	err := decodeBody(r, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
