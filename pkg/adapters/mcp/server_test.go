package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/crabritto/arbor"
	"github.com/crabritto/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toolResult struct {
	IsError           bool            `json:"isError"`
	StructuredContent json.RawMessage `json:"structuredContent"`
	Content           []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// call sends a tools/call request through the MCP server.
func call(t *testing.T, s *Server, name string, args map[string]any) toolResult {
	t.Helper()
	req, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	resp := s.mcpServer.HandleMessage(context.Background(), req)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var envelope struct {
		Result *toolResult     `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope), string(raw))
	require.Nil(t, envelope.Error, "tool failures must not be protocol errors: %s", raw)
	require.NotNil(t, envelope.Result, string(raw))
	return *envelope.Result
}

func newServer(t *testing.T, opts ...arbor.Option) *Server {
	t.Helper()
	svc, err := arbor.New(opts...)
	require.NoError(t, err)
	return NewServer(svc)
}

func TestTools_EditFlow(t *testing.T) {
	s := newServer(t)

	res := call(t, s, "start_session", map[string]any{"session_id": "s1"})
	require.False(t, res.IsError)
	var started TreeResponse
	require.NoError(t, json.Unmarshal(res.StructuredContent, &started))
	assert.Equal(t, "s1", started.SessionID)
	assert.Equal(t, 1, started.Tree.Len())

	res = call(t, s, "add_child", map[string]any{"session_id": "s1", "parent_id": "root", "label": 3, "side": "left"})
	require.False(t, res.IsError, res.Content)
	res = call(t, s, "add_child", map[string]any{"session_id": "s1", "parent_id": "root", "label": 5, "side": "right"})
	require.False(t, res.IsError, res.Content)

	res = call(t, s, "encode_tree", map[string]any{"session_id": "s1"})
	require.False(t, res.IsError)
	assert.JSONEq(t, `{"0":[3,5],"3":[],"5":[]}`, string(res.StructuredContent))

	res = call(t, s, "relabel", map[string]any{"session_id": "s1", "node_id": "root", "label": 8})
	require.False(t, res.IsError, res.Content)

	res = call(t, s, "show_tree", map[string]any{"session_id": "s1"})
	require.False(t, res.IsError)
	var shown TreeResponse
	require.NoError(t, json.Unmarshal(res.StructuredContent, &shown))
	assert.Equal(t, 8, shown.Tree.Root().Label)
	assert.Contains(t, shown.Mermaid, `root(("8"))`)
}

func TestTools_RejectionsAreToolErrors(t *testing.T) {
	s := newServer(t)
	call(t, s, "start_session", map[string]any{"session_id": "s1"})
	call(t, s, "add_child", map[string]any{"session_id": "s1", "parent_id": "root", "label": 3, "side": "left"})

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"root collision", "add_child", map[string]any{"session_id": "s1", "parent_id": "root", "label": 0, "side": "right"}, "root-collision"},
		{"sibling collision", "add_child", map[string]any{"session_id": "s1", "parent_id": "root", "label": 3, "side": "right"}, "sibling-collision"},
		{"bad side", "add_child", map[string]any{"session_id": "s1", "parent_id": "root", "label": 4, "side": "up"}, "invalid side"},
		{"unknown node", "relabel", map[string]any{"session_id": "s1", "node_id": "ghost", "label": 4}, "not-found"},
		{"unknown session", "show_tree", map[string]any{"session_id": "ghost"}, "session not found"},
		{"bad scheme", "encode_tree", map[string]any{"session_id": "s1", "scheme": "xml"}, "xml"},
		{"no analyzer", "view_result", map[string]any{"session_id": "s1"}, "no analysis service"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, s, tt.tool, tt.args)
			require.True(t, res.IsError)
			require.NotEmpty(t, res.Content)
			assert.Contains(t, res.Content[0].Text, tt.want)
		})
	}

	res := call(t, s, "show_tree", map[string]any{"session_id": "s1"})
	var shown TreeResponse
	require.NoError(t, json.Unmarshal(res.StructuredContent, &shown))
	assert.Equal(t, 2, shown.Tree.Len(), "rejections leave the tree unchanged")
}

type stubAnalyzer struct {
	resp *domain.AnalysisResponse
	err  error
}

func (s stubAnalyzer) Analyze(context.Context, *domain.WireTree, int) (*domain.AnalysisResponse, error) {
	return s.resp, s.err
}

func TestTools_ViewResult(t *testing.T) {
	s := newServer(t, arbor.WithAnalyzer(stubAnalyzer{resp: &domain.AnalysisResponse{
		PreOrder:  domain.Labels{0, 3},
		PostOrder: domain.Labels{3, 0},
		Height:    "A altura da árvore é 1",
		TreeType:  "A árvore é completa",
	}}))
	call(t, s, "start_session", map[string]any{"session_id": "s1"})
	call(t, s, "add_child", map[string]any{"session_id": "s1", "parent_id": "root", "label": 3, "side": "left"})

	res := call(t, s, "view_result", map[string]any{"session_id": "s1"})
	require.False(t, res.IsError, res.Content)
	var dm domain.DisplayModel
	require.NoError(t, json.Unmarshal(res.StructuredContent, &dm))
	assert.Equal(t, []int{0, 3}, dm.PreOrder)
	assert.Equal(t, "completa", dm.Structure)
	assert.Equal(t, "1", dm.Height)
}

func TestTools_ViewResultFailure(t *testing.T) {
	s := newServer(t, arbor.WithAnalyzer(stubAnalyzer{err: errors.New("connection refused")}))
	call(t, s, "start_session", map[string]any{"session_id": "s1"})

	res := call(t, s, "view_result", map[string]any{"session_id": "s1"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "connection refused")
}
