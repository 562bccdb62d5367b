// Package model defines the provider-agnostic LLM interface used by agents:
// a single blocking Generate call over a normalized chat transcript, with
// tool definitions going in and tool calls coming out. Provider adapters live
// in subpackages (openai, anthropic); MockModel backs tests.
package model

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolDefinition describes one callable tool offered to the model.
// Parameters is a JSON Schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is the model asking for one tool invocation. Arguments is the raw
// JSON argument object as emitted by the provider.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one turn of a normalized chat transcript. Assistant turns may
// carry ToolCalls; tool turns answer one call, identified by ToolCallID.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// Request is a single generation request.
type Request struct {
	// System is the system prompt, kept out of Messages so adapters can map
	// it to provider-specific fields.
	System   string
	Messages []Message
	Tools    []ToolDefinition

	// Temperature overrides the adapter default when non-nil.
	Temperature *float64
	// MaxTokens overrides the adapter default when positive.
	MaxTokens int64
}

// TokenUsage reports provider token accounting for one call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// Response is the completed generation: assistant text, zero or more tool
// calls, and usage.
type Response struct {
	Text         string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        TokenUsage
}

// HasToolCalls reports whether the model requested tool invocations.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Info describes a model implementation.
type Info struct {
	Name          string
	Provider      string
	SupportsTools bool
}

// Model is the minimal contract a provider adapter must satisfy.
type Model interface {
	// Generate runs one blocking completion.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns metadata describing the underlying model.
	Info() Info
}
