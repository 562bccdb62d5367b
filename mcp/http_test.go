package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRPCServer records every JSON-RPC payload it receives and answers from a
// per-method response table.
type fakeRPCServer struct {
	mu       sync.Mutex
	payloads []map[string]any
	results  map[string]any
	errors   map[string]*rpcError
}

func newFakeRPCServer() *fakeRPCServer {
	return &fakeRPCServer{
		results: map[string]any{
			methodInitialize: map[string]any{"protocolVersion": ProtocolVersion},
		},
		errors: map[string]*rpcError{},
	}
}

func (s *fakeRPCServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.payloads = append(s.payloads, payload)
		s.mu.Unlock()

		method, _ := payload["method"].(string)
		if _, hasID := payload["id"]; !hasID {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		resp := map[string]any{"jsonrpc": "2.0", "id": payload["id"]}
		if rpcErr, ok := s.errors[method]; ok {
			resp["error"] = rpcErr
		} else {
			resp["result"] = s.results[method]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (s *fakeRPCServer) requests() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.payloads))
	copy(out, s.payloads)
	return out
}

func newTestHTTPClient(t *testing.T, srv *fakeRPCServer) *HTTPClient {
	t.Helper()
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)
	return NewHTTPClient("test", ServerConfig{Transport: TransportHTTP, URL: ts.URL})
}

func TestHTTPClientHandshakeAndIDSequence(t *testing.T) {
	srv := newFakeRPCServer()
	srv.results[methodToolsList] = map[string]any{"tools": []any{}}
	client := newTestHTTPClient(t, srv)

	require.NoError(t, client.Connect(context.Background()))
	assert.True(t, client.Connected())

	_, err := client.ListTools(context.Background())
	require.NoError(t, err)
	_, err = client.ListTools(context.Background())
	require.NoError(t, err)

	reqs := srv.requests()
	require.Len(t, reqs, 4)
	assert.Equal(t, methodInitialize, reqs[0]["method"])
	assert.Equal(t, float64(1), reqs[0]["id"])
	assert.Equal(t, methodInitialized, reqs[1]["method"])
	assert.NotContains(t, reqs[1], "id", "notifications carry no id")
	assert.Equal(t, float64(2), reqs[2]["id"])
	assert.Equal(t, float64(3), reqs[3]["id"])
}

func TestHTTPClientCallToolNormalizesEmptyArgs(t *testing.T) {
	srv := newFakeRPCServer()
	srv.results[methodToolsCall] = map[string]any{"content": "ok"}
	client := newTestHTTPClient(t, srv)

	content, err := client.CallTool(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", content)

	reqs := srv.requests()
	call := reqs[len(reqs)-1]
	params, ok := call["params"].(map[string]any)
	require.True(t, ok)
	args, ok := params["arguments"].(map[string]any)
	require.True(t, ok, "nil args must serialize as an object, not null")
	assert.Empty(t, args)
	assert.Equal(t, "ping", params["name"])
}

func TestHTTPClientCallToolStructuredContent(t *testing.T) {
	srv := newFakeRPCServer()
	srv.results[methodToolsCall] = map[string]any{
		"content": []any{map[string]any{"type": "text", "text": "hello"}},
	}
	client := newTestHTTPClient(t, srv)

	content, err := client.CallTool(context.Background(), "greet", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"text","text":"hello"}]`, content)
}

func TestHTTPClientListTools(t *testing.T) {
	srv := newFakeRPCServer()
	srv.results[methodToolsList] = map[string]any{
		"tools": []any{
			map[string]any{"name": "read_file", "description": "Read a file", "inputSchema": map[string]any{"type": "object"}},
			map[string]any{"name": "write_file"},
		},
	}
	client := newTestHTTPClient(t, srv)

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "read_file", tools[0].Name)
	assert.Equal(t, "Read a file", tools[0].Description)
	assert.Equal(t, "object", tools[0].InputSchema["type"])
}

func TestHTTPClientProtocolError(t *testing.T) {
	srv := newFakeRPCServer()
	srv.errors[methodToolsCall] = &rpcError{Code: -32601, Message: "method not found"}
	client := newTestHTTPClient(t, srv)

	_, err := client.CallTool(context.Background(), "missing", map[string]any{})
	require.Error(t, err)

	var mcpErr *Error
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, "test", mcpErr.Server)
	assert.Equal(t, -32601, mcpErr.Code)
	assert.Contains(t, mcpErr.Message, "method not found")
	assert.False(t, mcpErr.Timeout)
}

func TestHTTPClientTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	client := NewHTTPClient("test", ServerConfig{Transport: TransportHTTP, URL: ts.URL})
	err := client.Connect(context.Background())
	require.Error(t, err)

	var mcpErr *Error
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, http.StatusBadGateway, mcpErr.Code)
}

func TestHTTPClientDisconnectIdempotent(t *testing.T) {
	srv := newFakeRPCServer()
	client := newTestHTTPClient(t, srv)

	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.Disconnect())
	require.NoError(t, client.Disconnect())
	assert.False(t, client.Connected())
}
