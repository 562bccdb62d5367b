// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (APIs, computations, side-effects) with schema
// validated arguments, consistent error handling and rich metadata for LLM guidance.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/internal/util"
	"github.com/hupe1980/agentforge/model"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools can be registered with agents to enable function calling, allowing
// agents to perform actions beyond text generation such as API calls, calculations,
// database queries, or any other programmatic operations.
//
// Every call receives the turn's *core.AgentContext, giving tools access to
// session state, conversation history and delegation depth.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should be descriptive and follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for parameter validation and LLM function calling.
	Parameters() map[string]any

	// Call executes the tool with structured arguments and the turn context.
	// Arguments are parsed from JSON and validated against the tool's schema.
	Call(ctx context.Context, ac *core.AgentContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string         `json:"tool"`              // Name of the tool that failed
	Message string         `json:"message"`           // Error message
	Code    string         `json:"code"`              // Error code for categorization
	Details map[string]any `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// Definition converts a tool into the model-facing tool definition.
func Definition(t Tool) model.ToolDefinition {
	return model.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
	}
}

// Definitions converts a tool slice into model-facing definitions.
func Definitions(tools []Tool) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = Definition(t)
	}
	return defs
}
