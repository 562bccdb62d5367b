package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/internal/testutil"
	"github.com/hupe1980/agentforge/interrupt"
	"github.com/hupe1980/agentforge/mcp"
	"github.com/hupe1980/agentforge/model"
	"github.com/hupe1980/agentforge/structured"
	"github.com/hupe1980/agentforge/tool"
)

func newAgent(t *testing.T, name, instructions string, m model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	t.Helper()
	a, err := NewModelAgent(name, instructions, m, optFns...)
	require.NoError(t, err)
	return a
}

func echoTool(t *testing.T) tool.Tool {
	t.Helper()
	return tool.NewFunctionTool("echo", "Echo the input", nil,
		func(ctx context.Context, ac *core.AgentContext, args map[string]any) (any, error) {
			return args["text"], nil
		})
}

func TestModelAgentPlainAnswer(t *testing.T) {
	m := model.NewMockModel(model.Response{Text: "hello back"})
	a := newAgent(t, "assistant", "You are helpful.", m)

	ac := testutil.NewContextBuilder().Input("hello").Build()
	out, err := a.Execute(context.Background(), ac)
	require.NoError(t, err)
	assert.Equal(t, "hello back", out)

	history := ac.History()
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, "hello back", history[1].Content)
	assert.Equal(t, "You are helpful.", m.LastRequest().System)
}

func TestModelAgentToolLoop(t *testing.T) {
	m := model.NewMockModel(
		model.Response{ToolCalls: []model.ToolCall{{ID: "c1", Name: "echo", Arguments: `{"text":"ping"}`}}},
		model.Response{Text: "the tool said ping"},
	)
	a := newAgent(t, "assistant", "", m, func(o *ModelAgentOptions) {
		o.Tools = []tool.Tool{echoTool(t)}
	})

	ac := testutil.NewContextBuilder().Input("use the tool").Build()
	out, err := a.Execute(context.Background(), ac)
	require.NoError(t, err)
	assert.Equal(t, "the tool said ping", out)
	assert.Equal(t, 2, m.Calls())

	// The second request carries the assistant tool call and the tool result.
	second := m.Requests()[1]
	require.Len(t, second.Messages, 3)
	assert.Equal(t, model.RoleAssistant, second.Messages[1].Role)
	require.Len(t, second.Messages[1].ToolCalls, 1)
	assert.Equal(t, model.RoleTool, second.Messages[2].Role)
	assert.Equal(t, "ping", second.Messages[2].Content)
	assert.Equal(t, "c1", second.Messages[2].ToolCallID)

	// Tool results land in the conversation history.
	var toolMsgs int
	for _, msg := range ac.History() {
		if msg.Role == "tool" {
			toolMsgs++
		}
	}
	assert.Equal(t, 1, toolMsgs)
}

func TestModelAgentToolFailureFedBack(t *testing.T) {
	failing := tool.NewFunctionTool("flaky", "always fails", nil,
		func(ctx context.Context, ac *core.AgentContext, args map[string]any) (any, error) {
			return nil, errors.New("backend down")
		})
	m := model.NewMockModel(
		model.Response{ToolCalls: []model.ToolCall{{ID: "c1", Name: "flaky", Arguments: "{}"}}},
		model.Response{Text: "sorry, the tool failed"},
	)
	a := newAgent(t, "assistant", "", m, func(o *ModelAgentOptions) {
		o.Tools = []tool.Tool{failing}
	})

	out, err := a.Execute(context.Background(), testutil.NewContextBuilder().Input("go").Build())
	require.NoError(t, err, "tool failures are fed back to the model, not raised")
	assert.Equal(t, "sorry, the tool failed", out)

	second := m.Requests()[1]
	assert.Contains(t, second.Messages[2].Content, "backend down")
}

func TestModelAgentUnknownTool(t *testing.T) {
	m := model.NewMockModel(
		model.Response{ToolCalls: []model.ToolCall{{ID: "c1", Name: "ghost", Arguments: "{}"}}},
		model.Response{Text: "done"},
	)
	a := newAgent(t, "assistant", "", m)

	out, err := a.Execute(context.Background(), testutil.NewContextBuilder().Input("go").Build())
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Contains(t, m.Requests()[1].Messages[2].Content, "not available")
}

func TestModelAgentIterationCap(t *testing.T) {
	m := model.NewMockModel(
		model.Response{ToolCalls: []model.ToolCall{{ID: "c1", Name: "echo", Arguments: `{"text":"x"}`}}},
	)
	a := newAgent(t, "assistant", "", m, func(o *ModelAgentOptions) {
		o.Tools = []tool.Tool{echoTool(t)}
		o.MaxToolIterations = 3
	})

	_, err := a.Execute(context.Background(), testutil.NewContextBuilder().Input("loop").Build())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 tool iterations")
	assert.Equal(t, 3, m.Calls())
}

func TestModelAgentApprovalInterrupt(t *testing.T) {
	interrupts := interrupt.NewManager(interrupt.NewInMemoryStore(), func(o *interrupt.ManagerOptions) {
		o.ApprovalTools = []string{"delete_file"}
	})
	m := model.NewMockModel(
		model.Response{ToolCalls: []model.ToolCall{{ID: "c1", Name: "delete_file", Arguments: `{"path":"/x"}`}}},
	)
	a := newAgent(t, "assistant", "", m, func(o *ModelAgentOptions) {
		o.Interrupts = interrupts
	})

	ac := testutil.NewContextBuilder().Session("s-1").Input("delete it").Build()
	_, err := a.Execute(context.Background(), ac)
	require.Error(t, err)

	var signal *interrupt.Signal
	require.True(t, errors.As(err, &signal), "the interrupt unwinds the turn as a signal")
	assert.Equal(t, core.InterruptStatusPending, signal.Record.Status)
	assert.Equal(t, "s-1", signal.Record.SessionID)
	assert.Equal(t, "delete_file", signal.Record.Data["tool"])
}

func TestModelAgentDelegation(t *testing.T) {
	sub := &testutil.StubAgent{AgentName: "researcher", Result: "sub answer"}
	m := model.NewMockModel(
		model.Response{ToolCalls: []model.ToolCall{{
			ID:        "c1",
			Name:      "delegate_to_agent",
			Arguments: `{"subAgentName":"researcher","taskInput":"dig deeper"}`,
		}}},
		model.Response{Text: "combined answer"},
	)
	a := newAgent(t, "assistant", "", m, func(o *ModelAgentOptions) {
		o.SubAgents = map[string]core.Agent{"researcher": sub}
	})

	out, err := a.Execute(context.Background(), testutil.NewContextBuilder().Input("question").Build())
	require.NoError(t, err)
	assert.Equal(t, "combined answer", out)
	assert.Equal(t, 1, sub.Calls())
	assert.Contains(t, m.Requests()[1].Messages[2].Content, `"success":true`)
}

func TestModelAgentStructuredOutput(t *testing.T) {
	schema := structured.Object(map[string]*structured.Schema{
		"name": structured.String(),
		"age":  structured.Integer(),
	}, "name", "age")

	t.Run("valid first answer", func(t *testing.T) {
		m := model.NewMockModel(model.Response{Text: `{"name":"John","age":30}`})
		a := newAgent(t, "assistant", "", m, func(o *ModelAgentOptions) {
			o.OutputSchema = schema
		})

		out, err := a.Execute(context.Background(), testutil.NewContextBuilder().Input("who?").Build())
		require.NoError(t, err)
		data := out.(map[string]any)
		assert.Equal(t, "John", data["name"])
		assert.Equal(t, 1, m.Calls(), "no repair round needed")
	})

	t.Run("repaired after invalid answer", func(t *testing.T) {
		m := model.NewMockModel(
			model.Response{Text: `{"name":"John"}`},
			model.Response{Text: "```json\n{\"name\":\"John\",\"age\":30}\n```"},
		)
		a := newAgent(t, "assistant", "", m, func(o *ModelAgentOptions) {
			o.OutputSchema = schema
		})

		out, err := a.Execute(context.Background(), testutil.NewContextBuilder().Input("who?").Build())
		require.NoError(t, err)
		assert.Equal(t, "John", out.(map[string]any)["name"])
		assert.Equal(t, 2, m.Calls())

		repair := m.Requests()[1]
		assert.Nil(t, repair.Tools, "repair calls offer no tools")
		last := repair.Messages[len(repair.Messages)-1]
		assert.Contains(t, last.Content, "age", "the repair prompt names the failing field")
	})

	t.Run("exhausted retries fail", func(t *testing.T) {
		m := model.NewMockModel(model.Response{Text: `not json at all`})
		a := newAgent(t, "assistant", "", m, func(o *ModelAgentOptions) {
			o.OutputSchema = schema
			o.MaxRepairRetries = 1
		})

		_, err := a.Execute(context.Background(), testutil.NewContextBuilder().Input("who?").Build())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid structured output after 2 attempts")
	})
}

func TestModelAgentMemoryInSystemPrompt(t *testing.T) {
	m := model.NewMockModel(model.Response{Text: "hi"})
	a := newAgent(t, "assistant", "Base instructions.", m)

	ac := testutil.NewContextBuilder().
		Input("hello").
		State(core.StateKeyMemoryContext, map[string]any{
			"summary":       "Works on a Go SDK",
			"key_learnings": []string{"prefers short answers"},
			"memory_data":   map[string]any{"city": "Berlin"},
		}).
		Build()

	_, err := a.Execute(context.Background(), ac)
	require.NoError(t, err)

	system := m.LastRequest().System
	assert.Contains(t, system, "Base instructions.")
	assert.Contains(t, system, "## What you remember about this user")
	assert.Contains(t, system, "Works on a Go SDK")
	assert.Contains(t, system, "- prefers short answers")
	assert.Contains(t, system, "city: Berlin")
}

func TestModelAgentTemplatedInstructions(t *testing.T) {
	m := model.NewMockModel(model.Response{Text: "ok"})
	a := newAgent(t, "assistant", "Answer in {{.language}}.", m)

	ac := testutil.NewContextBuilder().Input("hi").State("language", "German").Build()
	_, err := a.Execute(context.Background(), ac)
	require.NoError(t, err)
	assert.Equal(t, "Answer in German.", m.LastRequest().System)
}

func TestModelAgentReplaysHistory(t *testing.T) {
	m := model.NewMockModel(model.Response{Text: "continuing"})
	a := newAgent(t, "assistant", "", m)

	ac := testutil.NewContextBuilder().
		Input("next").
		Message(model.RoleUser, "earlier question").
		Message(model.RoleAssistant, "earlier answer").
		Build()

	_, err := a.Execute(context.Background(), ac)
	require.NoError(t, err)

	msgs := m.LastRequest().Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "earlier question", msgs[0].Content)
	assert.Equal(t, "earlier answer", msgs[1].Content)
	assert.Equal(t, "next", msgs[2].Content)
}

func TestNewModelAgentValidatesMCPServers(t *testing.T) {
	manager := mcp.NewClientManager(map[string]mcp.ServerConfig{
		"search": {Transport: mcp.TransportHTTP, URL: "http://localhost:9"},
	})

	_, err := NewModelAgent("assistant", "", model.NewMockModel(), func(o *ModelAgentOptions) {
		o.MCPManager = manager
		o.MCPServers = []string{"search", "serach"}
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"serach"`)

	_, err = NewModelAgent("assistant", "", model.NewMockModel(), func(o *ModelAgentOptions) {
		o.MCPServers = []string{"search"}
	})
	require.Error(t, err, "declared servers need a client manager to be checked against")

	a, err := NewModelAgent("assistant", "", model.NewMockModel(), func(o *ModelAgentOptions) {
		o.MCPManager = manager
		o.MCPServers = []string{"search"}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"search"}, a.MCPServers())
}

func TestModelAgentModelError(t *testing.T) {
	a := newAgent(t, "assistant", "", model.NewFailingMockModel(errors.New("rate limited")))

	_, err := a.Execute(context.Background(), testutil.NewContextBuilder().Input("hi").Build())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
