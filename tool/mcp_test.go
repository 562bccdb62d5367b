package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentforge/internal/testutil"
	"github.com/hupe1980/agentforge/mcp"
)

// newJSONRPCServer serves a minimal MCP server over HTTP: handshake, one
// echo tool and scripted tools/call results.
func newJSONRPCServer(t *testing.T, callResult map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		method, _ := req["method"].(string)
		if method == "notifications/initialized" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		var result any
		switch method {
		case "initialize":
			result = map[string]any{
				"protocolVersion": "2024-11-05",
				"capabilities":    map[string]any{},
				"serverInfo":      map[string]any{"name": "test", "version": "1.0"},
			}
		case "tools/list":
			result = map[string]any{"tools": []map[string]any{{
				"name":        "echo",
				"description": "Echo the input",
				"inputSchema": map[string]any{
					"type":       "object",
					"properties": map[string]any{"text": map[string]any{"type": "string"}},
				},
			}}}
		case "tools/call":
			result = callResult
		default:
			t.Fatalf("unexpected method %q", method)
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req["id"],
			"result":  result,
		}))
	}))
}

func TestDiscoverMCPToolsWrapsDefinitions(t *testing.T) {
	srv := newJSONRPCServer(t, nil)
	defer srv.Close()

	manager := mcp.NewClientManager(map[string]mcp.ServerConfig{
		"test": {Transport: mcp.TransportHTTP, URL: srv.URL},
	})
	defer manager.DisconnectAll()

	tools := DiscoverMCPTools(context.Background(), manager, []string{"test"})
	require.Len(t, tools, 1)

	mcpTool := tools[0].(*MCPTool)
	assert.Equal(t, "echo", mcpTool.Name())
	assert.Equal(t, "Echo the input", mcpTool.Description())
	assert.Equal(t, "test", mcpTool.Server())
	assert.Equal(t, "object", mcpTool.Parameters()["type"])
}

func TestMCPToolCall(t *testing.T) {
	srv := newJSONRPCServer(t, map[string]any{"content": "echoed: hi"})
	defer srv.Close()

	manager := mcp.NewClientManager(map[string]mcp.ServerConfig{
		"test": {Transport: mcp.TransportHTTP, URL: srv.URL},
	})
	defer manager.DisconnectAll()

	mcpTool := NewMCPTool(manager, mcp.Tool{Name: "echo", Server: "test"})
	out, err := mcpTool.Call(context.Background(), testutil.NewContextBuilder().Build(), map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echoed: hi", out)
}

func TestMCPToolCallErrorWrapped(t *testing.T) {
	manager := mcp.NewClientManager(map[string]mcp.ServerConfig{})

	mcpTool := NewMCPTool(manager, mcp.Tool{Name: "echo", Server: "ghost"})
	_, err := mcpTool.Call(context.Background(), testutil.NewContextBuilder().Build(), nil)
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "MCP_ERROR", toolErr.Code)
	assert.Equal(t, "ghost", toolErr.Details["server"])
}

func TestMCPToolDefaultSchema(t *testing.T) {
	mcpTool := NewMCPTool(nil, mcp.Tool{Name: "bare"})
	params := mcpTool.Parameters()
	assert.Equal(t, "object", params["type"])
}
