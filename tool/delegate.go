package tool

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/logging"
)

// DefaultMaxDelegationDepth bounds how deep delegation chains may grow.
// The guard counts hops from the root turn: a depth of 5 means the fifth
// delegated agent may still run but cannot delegate further.
const DefaultMaxDelegationDepth = 5

// DelegateOptions configure a delegation tool.
type DelegateOptions struct {
	Logger logging.Logger
	// MaxDepth overrides DefaultMaxDelegationDepth.
	MaxDepth int
}

// delegateTool lets an agent hand a task to one of its named sub-agents.
// Sub-agent outcomes, including failures and the depth guard, are returned as
// result data rather than errors so the calling model can read and react to
// them.
type delegateTool struct {
	subAgents map[string]core.Agent
	logger    logging.Logger
	maxDepth  int
}

var _ Tool = (*delegateTool)(nil)

// NewDelegateTool constructs the delegation tool over the calling agent's
// sub-agent map.
func NewDelegateTool(subAgents map[string]core.Agent, optFns ...func(o *DelegateOptions)) Tool {
	opts := DelegateOptions{
		Logger:   logging.NoOpLogger{},
		MaxDepth: DefaultMaxDelegationDepth,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDelegationDepth
	}
	return &delegateTool{
		subAgents: subAgents,
		logger:    opts.Logger,
		maxDepth:  opts.MaxDepth,
	}
}

func (t *delegateTool) Name() string { return "delegate_to_agent" }

func (t *delegateTool) Description() string {
	return "Delegate a task to a specialized sub-agent by name. Use when a sub-agent is better suited for the task."
}

func (t *delegateTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subAgentName": map[string]any{"type": "string", "description": "Name of the sub-agent", "enum": t.agentNames()},
			"taskInput":    map[string]any{"type": "string", "description": "Task description for the sub-agent"},
			"contextSummary": map[string]any{
				"type":        "string",
				"description": "Optional summary of relevant context for the sub-agent",
			},
		},
		"required": []string{"subAgentName", "taskInput"},
	}
}

// Call runs the delegation. The depth guard is checked before the sub-agent
// lookup so an over-deep request fails the same way regardless of the target.
func (t *delegateTool) Call(ctx context.Context, ac *core.AgentContext, args map[string]any) (any, error) {
	depth := ac.DelegationDepth()
	if depth >= t.maxDepth {
		t.logger.Warn("delegation depth limit reached", "depth", depth, "max_depth", t.maxDepth)
		return map[string]any{
			"success":      false,
			"error":        fmt.Sprintf("Maximum delegation depth (%d) exceeded", t.maxDepth),
			"currentDepth": depth,
			"maxDepth":     t.maxDepth,
		}, nil
	}

	agentName := coerceString(args["subAgentName"])
	task := coerceString(args["taskInput"])
	if agentName == "" {
		return map[string]any{"success": false, "error": "Missing required field 'subAgentName'"}, nil
	}

	sub, ok := t.subAgents[agentName]
	if !ok {
		return map[string]any{
			"success":   false,
			"error":     fmt.Sprintf("Sub-agent '%s' not found", agentName),
			"available": t.agentNames(),
		}, nil
	}

	// The child runs in the same session but with isolated working state:
	// only the delegation depth and explicit context cross the boundary.
	child := core.NewAgentContext(ac.SessionID(), task)
	child.SetState(core.StateKeyDelegationDepth, depth+1)
	if summary := coerceString(args["contextSummary"]); summary != "" {
		child.SetState("context_summary", summary)
	}
	if userID, ok := ac.GetState(core.StateKeyUserID); ok {
		child.SetState(core.StateKeyUserID, userID)
	}

	started := time.Now()
	result, err := sub.Execute(ctx, child)
	if err != nil {
		t.logger.Warn("delegation failed", "sub_agent", agentName, "depth", depth+1, "duration", time.Since(started), "error", err)
		return map[string]any{
			"success":   false,
			"error":     fmt.Sprintf("Sub-agent execution failed: %v", err),
			"sub_agent": agentName,
		}, nil
	}

	t.logger.Info("delegation completed", "sub_agent", agentName, "depth", depth+1, "duration", time.Since(started))
	return map[string]any{
		"success":    true,
		"sub_agent":  agentName,
		"task_input": task,
		"result":     result,
	}, nil
}

func (t *delegateTool) agentNames() []string {
	names := make([]string, 0, len(t.subAgents))
	for name := range t.subAgents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// coerceString renders any scalar argument as a string. Models occasionally
// emit numbers for name-like fields.
func coerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}
