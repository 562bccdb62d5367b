package core

import "context"

// Agent is the core capability interface: a named, invokable unit that accepts
// a per-turn AgentContext and returns output. Implementations may use tools,
// delegate to sub-agents or call external MCP servers; the executor layer does
// not care how the output is produced.
//
// Implementations must:
//   - Respect context cancellation on blocking work
//   - Never mutate the context's session identifier
//   - Report delegation failures as data, not panics
type Agent interface {
	// Name returns the unique registered identifier for this agent.
	Name() string

	// Instructions returns the base system instructions for the agent.
	// May contain template markers resolved against context state.
	Instructions() string

	// Execute runs one turn against the provided context and returns the
	// agent's output value.
	Execute(ctx context.Context, ac *AgentContext) (any, error)
}

// SubAgentProvider is implemented by agents that can delegate sub-tasks to a
// named set of child agents.
type SubAgentProvider interface {
	SubAgents() map[string]Agent
}

// MCPServerProvider is implemented by agents that declare which configured MCP
// servers their tool surface should include. The declared list is checked at
// construction time against the client manager's configuration.
type MCPServerProvider interface {
	MCPServers() []string
}
