package testutil

import (
	"github.com/hupe1980/agentforge/core"
)

// ContextBuilder provides a fluent helper for constructing agent contexts in
// tests. Example:
//
//	ac := NewContextBuilder().Session("s-1").Input("hello").User("u-1").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type ContextBuilder struct {
	sessionID string
	input     any
	state     map[string]any
	history   []core.Message
}

// NewContextBuilder creates a builder with a generated session id.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{state: map[string]any{}}
}

// Session sets the session id (chainable).
func (b *ContextBuilder) Session(id string) *ContextBuilder { b.sessionID = id; return b }

// Input sets the user input (chainable).
func (b *ContextBuilder) Input(input any) *ContextBuilder { b.input = input; return b }

// User sets the user id state key (chainable).
func (b *ContextBuilder) User(userID string) *ContextBuilder {
	b.state[core.StateKeyUserID] = userID
	return b
}

// Depth sets the delegation depth state key (chainable).
func (b *ContextBuilder) Depth(d int) *ContextBuilder {
	b.state[core.StateKeyDelegationDepth] = d
	return b
}

// State sets an arbitrary state key (chainable).
func (b *ContextBuilder) State(key string, value any) *ContextBuilder {
	b.state[key] = value
	return b
}

// Message appends a history entry (chainable).
func (b *ContextBuilder) Message(role, content string) *ContextBuilder {
	b.history = append(b.history, core.NewMessage(role, content))
	return b
}

// Build constructs the agent context.
func (b *ContextBuilder) Build() *core.AgentContext {
	ac := core.NewAgentContext(b.sessionID, b.input)
	ac.MergeState(b.state)
	for _, msg := range b.history {
		ac.AddMessage(msg)
	}
	return ac
}
