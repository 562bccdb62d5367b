package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/internal/testutil"
)

func delegationResult(t *testing.T, out any) map[string]any {
	t.Helper()
	m, ok := out.(map[string]any)
	require.True(t, ok, "delegation outcomes are data maps")
	return m
}

func TestDelegateSuccess(t *testing.T) {
	sub := &testutil.StubAgent{AgentName: "researcher", Result: "found it"}
	dt := NewDelegateTool(map[string]core.Agent{"researcher": sub})

	ac := testutil.NewContextBuilder().Session("s-1").User("u-1").Build()
	out, err := dt.Call(context.Background(), ac, map[string]any{
		"subAgentName":   "researcher",
		"taskInput":      "look up the answer",
		"contextSummary": "user asked earlier",
	})
	require.NoError(t, err)

	result := delegationResult(t, out)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "researcher", result["sub_agent"])
	assert.Equal(t, "look up the answer", result["task_input"])
	assert.Equal(t, "found it", result["result"])

	child := sub.LastContext()
	require.NotNil(t, child)
	assert.Equal(t, "s-1", child.SessionID(), "child shares the session")
	assert.Equal(t, "look up the answer", child.UserInput())
	assert.Equal(t, 1, child.DelegationDepth())
	assert.Equal(t, "user asked earlier", child.GetStateDefault("context_summary", ""))
	assert.Equal(t, "u-1", child.GetStateDefault(core.StateKeyUserID, ""))
}

func TestDelegateDepthIncrement(t *testing.T) {
	sub := &testutil.StubAgent{AgentName: "worker", Result: "ok"}
	dt := NewDelegateTool(map[string]core.Agent{"worker": sub})

	ac := testutil.NewContextBuilder().Depth(3).Build()
	_, err := dt.Call(context.Background(), ac, map[string]any{"subAgentName": "worker", "taskInput": "go"})
	require.NoError(t, err)

	assert.Equal(t, 4, sub.LastContext().DelegationDepth())
	assert.Equal(t, 3, ac.DelegationDepth(), "parent depth is untouched")
}

func TestDelegateDepthGuard(t *testing.T) {
	sub := &testutil.StubAgent{AgentName: "worker", Result: "ok"}
	dt := NewDelegateTool(map[string]core.Agent{"worker": sub})

	ac := testutil.NewContextBuilder().Depth(DefaultMaxDelegationDepth).Build()
	out, err := dt.Call(context.Background(), ac, map[string]any{"subAgentName": "worker", "taskInput": "go"})
	require.NoError(t, err, "the guard reports through data, never as an error")

	result := delegationResult(t, out)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "Maximum delegation depth (5) exceeded", result["error"])
	assert.Equal(t, DefaultMaxDelegationDepth, result["currentDepth"])
	assert.Equal(t, DefaultMaxDelegationDepth, result["maxDepth"])
	assert.Equal(t, 0, sub.Calls(), "the guard fires before the sub-agent lookup")
}

func TestDelegateDepthGuardBeforeLookup(t *testing.T) {
	dt := NewDelegateTool(map[string]core.Agent{})

	ac := testutil.NewContextBuilder().Depth(7).Build()
	out, err := dt.Call(context.Background(), ac, map[string]any{"subAgentName": "ghost", "taskInput": "go"})
	require.NoError(t, err)

	result := delegationResult(t, out)
	assert.Contains(t, result["error"], "Maximum delegation depth", "an over-deep request fails identically for any target")
}

func TestDelegateUnknownSubAgent(t *testing.T) {
	dt := NewDelegateTool(map[string]core.Agent{
		"alpha": &testutil.StubAgent{AgentName: "alpha"},
		"beta":  &testutil.StubAgent{AgentName: "beta"},
	})

	out, err := dt.Call(context.Background(), testutil.NewContextBuilder().Build(), map[string]any{
		"subAgentName": "gamma",
		"taskInput":    "go",
	})
	require.NoError(t, err)

	result := delegationResult(t, out)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "Sub-agent 'gamma' not found", result["error"])
	assert.Equal(t, []string{"alpha", "beta"}, result["available"])
}

func TestDelegateMissingSubAgentName(t *testing.T) {
	dt := NewDelegateTool(map[string]core.Agent{"worker": &testutil.StubAgent{AgentName: "worker"}})

	out, err := dt.Call(context.Background(), testutil.NewContextBuilder().Build(), map[string]any{"taskInput": "go"})
	require.NoError(t, err)

	result := delegationResult(t, out)
	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "subAgentName")
}

func TestDelegateSubAgentFailureIsData(t *testing.T) {
	sub := &testutil.StubAgent{AgentName: "worker", Err: errors.New("boom")}
	dt := NewDelegateTool(map[string]core.Agent{"worker": sub})

	out, err := dt.Call(context.Background(), testutil.NewContextBuilder().Build(), map[string]any{
		"subAgentName": "worker",
		"taskInput":    "go",
	})
	require.NoError(t, err)

	result := delegationResult(t, out)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "Sub-agent execution failed: boom", result["error"])
	assert.Equal(t, "worker", result["sub_agent"])
}

func TestDelegateParameters(t *testing.T) {
	dt := NewDelegateTool(map[string]core.Agent{
		"beta":  &testutil.StubAgent{AgentName: "beta"},
		"alpha": &testutil.StubAgent{AgentName: "alpha"},
	})

	assert.Equal(t, "delegate_to_agent", dt.Name())

	params := dt.Parameters()
	props := params["properties"].(map[string]any)
	nameProp := props["subAgentName"].(map[string]any)
	assert.Equal(t, []string{"alpha", "beta"}, nameProp["enum"], "sub-agent names are sorted")
	assert.Equal(t, []string{"subAgentName", "taskInput"}, params["required"])
}

func TestDelegateCustomMaxDepth(t *testing.T) {
	sub := &testutil.StubAgent{AgentName: "worker", Result: "ok"}
	dt := NewDelegateTool(map[string]core.Agent{"worker": sub}, func(o *DelegateOptions) {
		o.MaxDepth = 2
	})

	out, err := dt.Call(context.Background(), testutil.NewContextBuilder().Depth(2).Build(), map[string]any{
		"subAgentName": "worker",
		"taskInput":    "go",
	})
	require.NoError(t, err)
	result := delegationResult(t, out)
	assert.Equal(t, "Maximum delegation depth (2) exceeded", result["error"])
}
