package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/internal/util"
	"github.com/hupe1980/agentforge/interrupt"
	"github.com/hupe1980/agentforge/logging"
	"github.com/hupe1980/agentforge/mcp"
	"github.com/hupe1980/agentforge/model"
	"github.com/hupe1980/agentforge/structured"
	"github.com/hupe1980/agentforge/tool"
)

// DefaultMaxToolIterations bounds the tool-call loop of one turn.
const DefaultMaxToolIterations = 10

// ModelAgentOptions configure a ModelAgent.
type ModelAgentOptions struct {
	Description string
	Logger      logging.Logger

	// Tools are the agent's local tools.
	Tools []tool.Tool
	// SubAgents enables the delegation tool over the given agents.
	SubAgents map[string]core.Agent
	// MCPServers plus MCPManager enable discovered MCP tools.
	MCPServers []string
	MCPManager *mcp.ClientManager
	// Interrupts gates approval-listed tools behind a human decision.
	Interrupts *interrupt.Manager

	// OutputSchema switches the agent into structured output mode: the final
	// answer is validated and repaired through the retry loop.
	OutputSchema *structured.Schema
	// MaxRepairRetries bounds repair rounds in structured output mode.
	MaxRepairRetries int

	// MaxToolIterations bounds how many tool rounds a single turn may take.
	MaxToolIterations int

	// Temperature and MaxTokens override the model adapter defaults.
	Temperature *float64
	MaxTokens   int64
}

// ModelAgent is an LLM-driven agent: it templates its instructions against
// context state (including the injected memory snapshot), offers its tool
// surface to the model and loops on tool calls until the model produces a
// final answer.
type ModelAgent struct {
	BaseAgent
	model model.Model

	tools      []tool.Tool
	subAgents  map[string]core.Agent
	mcpServers []string
	mcpManager *mcp.ClientManager
	interrupts *interrupt.Manager

	outputSchema     *structured.Schema
	maxRepairRetries int
	maxIterations    int
	temperature      *float64
	maxTokens        int64
}

var (
	_ core.Agent             = (*ModelAgent)(nil)
	_ core.SubAgentProvider  = (*ModelAgent)(nil)
	_ core.MCPServerProvider = (*ModelAgent)(nil)
)

// NewModelAgent constructs a ModelAgent with the given identity and model.
// Declared MCP server names are checked against the client manager's
// configuration here, so a typo surfaces as a construction error instead of
// an empty tool surface at run time.
func NewModelAgent(name, instructions string, m model.Model, optFns ...func(o *ModelAgentOptions)) (*ModelAgent, error) {
	opts := ModelAgentOptions{
		Logger:            logging.NoOpLogger{},
		MaxRepairRetries:  structured.DefaultMaxRetries,
		MaxToolIterations: DefaultMaxToolIterations,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxToolIterations <= 0 {
		opts.MaxToolIterations = DefaultMaxToolIterations
	}
	if len(opts.MCPServers) > 0 {
		if opts.MCPManager == nil {
			return nil, fmt.Errorf("agent %q declares mcp servers but has no client manager", name)
		}
		for _, server := range opts.MCPServers {
			if !opts.MCPManager.HasServer(server) {
				return nil, fmt.Errorf("agent %q declares unknown mcp server %q", name, server)
			}
		}
	}
	return &ModelAgent{
		BaseAgent: BaseAgent{
			name:         name,
			description:  opts.Description,
			instructions: instructions,
			logger:       opts.Logger,
		},
		model:            m,
		tools:            opts.Tools,
		subAgents:        opts.SubAgents,
		mcpServers:       opts.MCPServers,
		mcpManager:       opts.MCPManager,
		interrupts:       opts.Interrupts,
		outputSchema:     opts.OutputSchema,
		maxRepairRetries: opts.MaxRepairRetries,
		maxIterations:    opts.MaxToolIterations,
		temperature:      opts.Temperature,
		maxTokens:        opts.MaxTokens,
	}, nil
}

// SubAgents implements core.SubAgentProvider.
func (a *ModelAgent) SubAgents() map[string]core.Agent { return a.subAgents }

// MCPServers implements core.MCPServerProvider.
func (a *ModelAgent) MCPServers() []string { return a.mcpServers }

// Execute implements core.Agent. The returned value is the assistant's final
// text, or the validated data map in structured output mode.
func (a *ModelAgent) Execute(ctx context.Context, ac *core.AgentContext) (any, error) {
	system, err := a.systemPrompt(ac)
	if err != nil {
		return nil, fmt.Errorf("failed to render instructions for agent %q: %w", a.name, err)
	}

	tools := a.toolSurface(ctx)
	byName := make(map[string]tool.Tool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}

	userInput := stringInput(ac.UserInput())
	messages := transcript(ac.History())
	if userInput != "" {
		messages = append(messages, model.Message{Role: model.RoleUser, Content: userInput})
		ac.AddMessage(core.NewMessage(model.RoleUser, userInput))
	}

	req := model.Request{
		System:      system,
		Messages:    messages,
		Tools:       tool.Definitions(tools),
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	}

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		started := time.Now()
		resp, err := a.model.Generate(ctx, req)
		if err != nil {
			a.logger.Error("model call failed", "agent", a.name, "duration", time.Since(started), "error", err)
			return nil, fmt.Errorf("model call failed for agent %q: %w", a.name, err)
		}
		a.logger.Debug("model call completed", "agent", a.name, "duration", time.Since(started),
			"tool_calls", len(resp.ToolCalls), "tokens", resp.Usage.TotalTokens)

		if !resp.HasToolCalls() {
			return a.finalize(ctx, ac, req, resp.Text)
		}

		req.Messages = append(req.Messages, model.Message{
			Role:      model.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			result, err := a.dispatch(ctx, ac, byName, call)
			if err != nil {
				// Interrupt signals and other fatal conditions unwind the turn.
				return nil, err
			}
			req.Messages = append(req.Messages, model.Message{
				Role:       model.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
			ac.AddMessage(core.NewToolMessage(call.Name, result))
		}
	}

	return nil, fmt.Errorf("agent %q exceeded %d tool iterations without a final answer", a.name, a.maxIterations)
}

// dispatch runs one requested tool call and renders its result as a string
// for the model. Tool failures are returned as readable result text, not
// errors; only interrupts and context cancellation unwind the turn.
func (a *ModelAgent) dispatch(ctx context.Context, ac *core.AgentContext, byName map[string]tool.Tool, call model.ToolCall) (string, error) {
	if a.interrupts != nil && a.interrupts.ToolRequiresApproval(call.Name) {
		signal, err := a.interrupts.Raise(ctx, core.InterruptTypeApproval, ac.SessionID(), a.name,
			fmt.Sprintf("Tool %q requires approval", call.Name),
			func(o *interrupt.RaiseOptions) {
				o.Data = map[string]any{"tool": call.Name, "arguments": call.Arguments}
			})
		if err != nil {
			return "", err
		}
		return "", signal
	}

	t, ok := byName[call.Name]
	if !ok {
		return fmt.Sprintf("Tool %q is not available", call.Name), nil
	}

	args := map[string]any{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return fmt.Sprintf("Invalid tool arguments: %v", err), nil
		}
	}

	started := time.Now()
	result, err := t.Call(ctx, ac, args)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		a.logger.Warn("tool call failed", "agent", a.name, "tool", call.Name, "duration", time.Since(started), "error", err)
		return fmt.Sprintf("Tool %q failed: %v", call.Name, err), nil
	}
	a.logger.Debug("tool call completed", "agent", a.name, "tool", call.Name, "duration", time.Since(started))
	return stringifyResult(result), nil
}

// finalize handles the model's final answer: plain text is recorded and
// returned, structured mode validates and repairs through the retry loop.
func (a *ModelAgent) finalize(ctx context.Context, ac *core.AgentContext, req model.Request, text string) (any, error) {
	if a.outputSchema == nil {
		ac.AddMessage(core.NewMessage(model.RoleAssistant, text))
		return text, nil
	}

	handler := structured.NewRetryHandler(func(o *structured.RetryOptions) {
		o.MaxRetries = a.maxRepairRetries
		o.Logger = a.logger
	})
	first := true
	result, err := handler.Generate(ctx, a.outputSchema, func(ctx context.Context, repairPrompt string) (any, error) {
		if first {
			first = false
			return decodeJSON(text)
		}
		repairReq := req
		repairReq.Tools = nil
		repairReq.Messages = append(append([]model.Message{}, req.Messages...),
			model.Message{Role: model.RoleAssistant, Content: text},
			model.Message{Role: model.RoleUser, Content: repairPrompt})
		resp, err := a.model.Generate(ctx, repairReq)
		if err != nil {
			return nil, err
		}
		text = resp.Text
		return decodeJSON(resp.Text)
	})
	if err != nil {
		return nil, fmt.Errorf("structured output generation failed for agent %q: %w", a.name, err)
	}
	if !result.IsValid() {
		return nil, fmt.Errorf("agent %q produced invalid structured output after %d attempts: %s",
			a.name, result.Attempts, strings.Join(messagesOf(result.Errors), "; "))
	}
	ac.AddMessage(core.NewMessage(model.RoleAssistant, text))
	return result.Data, nil
}

// systemPrompt templates the instructions against context state and appends
// the long-term memory block when one was injected.
func (a *ModelAgent) systemPrompt(ac *core.AgentContext) (string, error) {
	rendered, err := util.RenderTemplate(a.instructions, ac.StateSnapshot())
	if err != nil {
		return "", err
	}
	memory, ok := ac.GetState(core.StateKeyMemoryContext)
	if !ok {
		return rendered, nil
	}
	snapshot, ok := memory.(map[string]any)
	if !ok {
		return rendered, nil
	}

	var sb strings.Builder
	sb.WriteString(rendered)
	sb.WriteString("\n\n## What you remember about this user\n")
	if summary, _ := snapshot["summary"].(string); summary != "" {
		sb.WriteString(summary)
		sb.WriteString("\n")
	}
	if learnings, ok := snapshot["key_learnings"].([]string); ok {
		for _, learning := range learnings {
			sb.WriteString("- ")
			sb.WriteString(learning)
			sb.WriteString("\n")
		}
	}
	if facts, ok := snapshot["memory_data"].(map[string]any); ok && len(facts) > 0 {
		for k, v := range facts {
			fmt.Fprintf(&sb, "- %s: %v\n", k, v)
		}
	}
	return sb.String(), nil
}

// toolSurface assembles local tools, the delegation tool and discovered MCP
// tools for this turn.
func (a *ModelAgent) toolSurface(ctx context.Context) []tool.Tool {
	tools := make([]tool.Tool, 0, len(a.tools)+1)
	tools = append(tools, a.tools...)
	if len(a.subAgents) > 0 {
		tools = append(tools, tool.NewDelegateTool(a.subAgents, func(o *tool.DelegateOptions) {
			o.Logger = a.logger
		}))
	}
	if a.mcpManager != nil && len(a.mcpServers) > 0 {
		tools = append(tools, tool.DiscoverMCPTools(ctx, a.mcpManager, a.mcpServers)...)
	}
	return tools
}

// transcript maps persisted history into model messages. Tool-role entries
// are replayed as plain assistant context since their call ids are not
// persisted.
func transcript(history []core.Message) []model.Message {
	messages := make([]model.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case model.RoleUser, model.RoleAssistant:
			messages = append(messages, model.Message{Role: msg.Role, Content: msg.Content})
		case model.RoleTool:
			messages = append(messages, model.Message{
				Role:    model.RoleAssistant,
				Content: fmt.Sprintf("[%s] %s", msg.ToolName, msg.Content),
			})
		}
	}
	return messages
}

// stringifyResult renders a tool result as model-readable text.
func stringifyResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

// decodeJSON parses a model answer as JSON, tolerating markdown code fences.
func decodeJSON(text string) (any, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	var out any
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		// Non-JSON output is handed to the validator as-is so it reports a
		// type error instead of the loop crashing.
		return text, nil
	}
	return out, nil
}

func messagesOf(errs []structured.FieldError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Message
	}
	return out
}
