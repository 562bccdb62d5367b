package mcp

import "context"

// Client is a JSON-RPC 2.0 client for a single MCP server. A client supports
// one in-flight request at a time; it is not safe for concurrent use.
//
// Operational methods connect lazily: calling ListTools or CallTool on a
// disconnected client performs the initialize handshake first.
type Client interface {
	// Connect establishes the transport and performs the initialize
	// handshake. Connecting an already-connected client is a no-op.
	Connect(ctx context.Context) error

	// Disconnect tears the transport down. It is idempotent.
	Disconnect() error

	// Connected reports whether the handshake has completed.
	Connected() bool

	// ListTools returns the server's tool definitions.
	ListTools(ctx context.Context) ([]Tool, error)

	// CallTool invokes a tool by name. A nil args map is sent as an empty
	// JSON object, never null. The result content is returned as a string.
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)

	// ListResources returns the server's resource descriptors.
	ListResources(ctx context.Context) ([]Resource, error)

	// ReadResource fetches a resource by URI.
	ReadResource(ctx context.Context, uri string) (map[string]any, error)

	// ListPrompts returns the server's prompt descriptors.
	ListPrompts(ctx context.Context) ([]Prompt, error)

	// GetPrompt fetches a rendered prompt by name.
	GetPrompt(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}

// normalizeArgs guarantees tool arguments encode as a JSON object.
func normalizeArgs(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	return args
}
