package tool

import (
	"context"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/mcp"
)

// MCPTool exposes a single discovered MCP server tool through the Tool
// interface. Calls are routed through the ClientManager so connection
// recovery and logging stay in one place.
type MCPTool struct {
	manager *mcp.ClientManager
	def     mcp.Tool
}

var _ Tool = (*MCPTool)(nil)

// NewMCPTool wraps one discovered tool definition.
func NewMCPTool(manager *mcp.ClientManager, def mcp.Tool) *MCPTool {
	return &MCPTool{manager: manager, def: def}
}

// Name implements Tool.
func (t *MCPTool) Name() string { return t.def.Name }

// Description implements Tool.
func (t *MCPTool) Description() string { return t.def.Description }

// Parameters implements Tool.
func (t *MCPTool) Parameters() map[string]any {
	if t.def.InputSchema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return t.def.InputSchema
}

// Server returns the origin MCP server name.
func (t *MCPTool) Server() string { return t.def.Server }

// Call implements Tool. Argument validation is left to the server, which
// owns the authoritative schema.
func (t *MCPTool) Call(ctx context.Context, _ *core.AgentContext, args map[string]any) (any, error) {
	result, err := t.manager.CallTool(ctx, t.def.Server, t.def.Name, args)
	if err != nil {
		return nil, &ToolError{
			Tool:    t.def.Name,
			Message: err.Error(),
			Code:    "MCP_ERROR",
			Details: map[string]any{"server": t.def.Server},
		}
	}
	return result, nil
}

// DiscoverMCPTools turns the discovered tools of the given servers into Tool
// instances. Discovery is best-effort per server; unreachable servers simply
// contribute nothing.
func DiscoverMCPTools(ctx context.Context, manager *mcp.ClientManager, servers []string) []Tool {
	var tools []Tool
	for _, server := range servers {
		for _, def := range manager.DiscoverTools(ctx, server) {
			tools = append(tools, NewMCPTool(manager, def))
		}
	}
	return tools
}
