// Package agent provides the built-in agent implementations: ModelAgent (an
// LLM loop with tool dispatch, delegation, MCP tools, approval gating and
// structured output), PlanningAgent (confidence-thresholded replanning) and
// MediaAgent (artifact-backed media generation). All of them satisfy
// core.Agent and compose freely with the workflow package.
package agent

import (
	"fmt"

	"github.com/hupe1980/agentforge/logging"
)

// BaseAgent carries the identity shared by all built-in agents.
type BaseAgent struct {
	name         string
	description  string
	instructions string
	logger       logging.Logger
}

// Name returns the agent's registered name.
func (a *BaseAgent) Name() string { return a.name }

// Description returns the human-readable description.
func (a *BaseAgent) Description() string { return a.description }

// Instructions returns the raw (untemplated) instruction text.
func (a *BaseAgent) Instructions() string { return a.instructions }

// stringInput renders arbitrary user input as prompt text.
func stringInput(input any) string {
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
