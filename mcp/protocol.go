package mcp

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the MCP protocol revision announced during the
// initialize handshake.
const ProtocolVersion = "2024-11-05"

const (
	clientName    = "agentforge"
	clientVersion = "0.1.0"
)

// JSON-RPC method names used by this client.
const (
	methodInitialize    = "initialize"
	methodInitialized   = "notifications/initialized"
	methodToolsList     = "tools/list"
	methodToolsCall     = "tools/call"
	methodResourcesList = "resources/list"
	methodResourcesRead = "resources/read"
	methodPromptsList   = "prompts/list"
	methodPromptsGet    = "prompts/get"
)

// request is a JSON-RPC 2.0 request envelope.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// notification is a JSON-RPC 2.0 notification: no id, no response expected.
type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// response is a JSON-RPC 2.0 response envelope.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError is the error member of a JSON-RPC response.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error is the exception family for MCP failures: protocol errors (a JSON-RPC
// error member or malformed response), transport errors (non-2xx HTTP,
// broken pipe) and timeouts. Timeouts are distinguished by the Timeout flag
// rather than a separate type.
type Error struct {
	Server  string
	Method  string
	Code    int
	Message string
	Data    any
	Timeout bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	kind := "mcp error"
	if e.Timeout {
		kind = "mcp timeout"
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s [server=%s method=%s code=%d]: %s", kind, e.Server, e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("%s [server=%s method=%s]: %s", kind, e.Server, e.Method, e.Message)
}

// IsTimeout reports whether err is an MCP timeout.
func IsTimeout(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Timeout
	}
	return false
}

// Tool is a tool definition discovered from an MCP server. Server is stamped
// by the manager when unioning discovery results across servers.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
	Server      string         `json:"server,omitempty"`
}

// Resource is a resource descriptor from resources/list.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Server      string `json:"server,omitempty"`
}

// Prompt is a prompt descriptor from prompts/list.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []map[string]any `json:"arguments,omitempty"`
	Server      string           `json:"server,omitempty"`
}

// initializeParams is the params payload of the initialize request.
func initializeParams() map[string]any {
	return map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
			"prompts":   map[string]any{},
		},
		"clientInfo": map[string]any{
			"name":    clientName,
			"version": clientVersion,
		},
	}
}

// decodeList extracts a named array member from a JSON-RPC result into out.
func decodeList(result json.RawMessage, member string, out any) error {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(result, &wrapper); err != nil {
		return fmt.Errorf("malformed result: %w", err)
	}
	raw, ok := wrapper[member]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("malformed %s member: %w", member, err)
	}
	return nil
}

// toolCallContent renders the content member of a tools/call result as a
// string: returned as-is when already a string, JSON-serialized otherwise.
// Callers always receive a string.
func toolCallContent(result json.RawMessage) (string, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(result, &wrapper); err != nil {
		return "", fmt.Errorf("malformed tool result: %w", err)
	}
	raw, ok := wrapper["content"]
	if !ok {
		return string(result), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return string(raw), nil
}
