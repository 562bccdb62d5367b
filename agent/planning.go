package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/internal/util"
	"github.com/hupe1980/agentforge/logging"
	"github.com/hupe1980/agentforge/model"
	"github.com/hupe1980/agentforge/structured"
)

// Planning defaults, matching the balanced preset.
const (
	DefaultPlanAttempts  = 3
	DefaultPlanThreshold = 0.8
)

// PlanStep is one step of a generated plan.
type PlanStep struct {
	Description string `json:"description"`
	Action      string `json:"action,omitempty"`
}

// PlanningResponse is the structured result of a planning run.
type PlanningResponse struct {
	Goal       string     `json:"goal"`
	Steps      []PlanStep `json:"steps"`
	Confidence float64    `json:"confidence"`
	Reasoning  string     `json:"reasoning,omitempty"`
	// Attempts is how many plan generations were needed.
	Attempts int `json:"attempts"`
}

// PlanningAgentOptions configure a PlanningAgent.
type PlanningAgentOptions struct {
	Description string
	Logger      logging.Logger

	// MaxAttempts bounds the replan loop.
	MaxAttempts int
	// ConfidenceThreshold is the minimum confidence that stops replanning.
	ConfidenceThreshold float64
}

// PlanningAgent asks the model for a structured plan and replans until the
// model's self-reported confidence clears the threshold or attempts run out.
// The best plan seen is returned either way.
type PlanningAgent struct {
	BaseAgent
	model model.Model

	maxAttempts int
	threshold   float64
	schema      *structured.Schema
	validator   *structured.Validator
}

var _ core.Agent = (*PlanningAgent)(nil)

// NewPlanningAgent constructs a PlanningAgent.
func NewPlanningAgent(name, instructions string, m model.Model, optFns ...func(o *PlanningAgentOptions)) *PlanningAgent {
	opts := PlanningAgentOptions{
		Logger:              logging.NoOpLogger{},
		MaxAttempts:         DefaultPlanAttempts,
		ConfidenceThreshold: DefaultPlanThreshold,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &PlanningAgent{
		BaseAgent: BaseAgent{
			name:         name,
			description:  opts.Description,
			instructions: instructions,
			logger:       opts.Logger,
		},
		model:       m,
		maxAttempts: opts.MaxAttempts,
		threshold:   opts.ConfidenceThreshold,
		schema:      planSchema(),
		validator:   structured.NewValidator(),
	}
}

// Execute implements core.Agent. It returns a *PlanningResponse.
func (a *PlanningAgent) Execute(ctx context.Context, ac *core.AgentContext) (any, error) {
	system, err := util.RenderTemplate(a.instructions, ac.StateSnapshot())
	if err != nil {
		return nil, fmt.Errorf("failed to render instructions for agent %q: %w", a.name, err)
	}
	maxAttempts, threshold := a.tunables(ac)

	task := stringInput(ac.UserInput())
	ac.AddMessage(core.NewMessage(model.RoleUser, task))

	var best *PlanningResponse
	prompt := planPrompt(task)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := a.model.Generate(ctx, model.Request{
			System:   system,
			Messages: []model.Message{{Role: model.RoleUser, Content: prompt}},
		})
		if err != nil {
			return nil, fmt.Errorf("planning call failed for agent %q: %w", a.name, err)
		}

		plan, ok := a.parsePlan(resp.Text)
		if !ok {
			a.logger.Warn("plan did not match schema", "agent", a.name, "attempt", attempt)
			prompt = planPrompt(task) + "\nThe previous plan was not valid JSON matching the required schema. Respond with only the corrected JSON."
			continue
		}
		plan.Attempts = attempt

		if best == nil || plan.Confidence > best.Confidence {
			best = plan
		}
		if plan.Confidence >= threshold {
			a.logger.Info("plan accepted", "agent", a.name, "attempt", attempt, "confidence", plan.Confidence)
			a.record(ac, plan)
			return plan, nil
		}
		a.logger.Debug("replanning", "agent", a.name, "attempt", attempt, "confidence", plan.Confidence, "threshold", threshold)
		prompt = fmt.Sprintf("%s\nYour previous plan had confidence %.2f, below the required %.2f. Produce a better plan with higher confidence.",
			planPrompt(task), plan.Confidence, threshold)
	}

	if best == nil {
		return nil, fmt.Errorf("agent %q produced no valid plan in %d attempts", a.name, maxAttempts)
	}
	best.Attempts = maxAttempts
	a.record(ac, best)
	return best, nil
}

// tunables reads executor-supplied overrides from context parameters.
func (a *PlanningAgent) tunables(ac *core.AgentContext) (int, float64) {
	maxAttempts, threshold := a.maxAttempts, a.threshold
	params, _ := ac.GetStateDefault(core.StateKeyParameters, map[string]any{}).(map[string]any)
	if v, ok := params["max_attempts"]; ok {
		switch n := v.(type) {
		case int:
			maxAttempts = n
		case float64:
			maxAttempts = int(n)
		}
	}
	if v, ok := params["confidence_threshold"].(float64); ok {
		threshold = v
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultPlanAttempts
	}
	return maxAttempts, threshold
}

func (a *PlanningAgent) parsePlan(text string) (*PlanningResponse, bool) {
	data, _ := decodeJSON(text)
	if res := a.validator.Validate(data, a.schema); !res.IsValid() {
		return nil, false
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	var plan PlanningResponse
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, false
	}
	return &plan, true
}

func (a *PlanningAgent) record(ac *core.AgentContext, plan *PlanningResponse) {
	if raw, err := json.Marshal(plan); err == nil {
		ac.AddMessage(core.NewMessage(model.RoleAssistant, string(raw)))
	}
}

func planPrompt(task string) string {
	return fmt.Sprintf(`Create a step-by-step plan for the following task.

Task: %s

Respond with only a JSON object of the shape:
{"goal": string, "steps": [{"description": string, "action": string}], "confidence": number between 0 and 1, "reasoning": string}`, task)
}

func planSchema() *structured.Schema {
	return structured.Object(map[string]*structured.Schema{
		"goal": structured.String(),
		"steps": structured.Array(structured.Object(map[string]*structured.Schema{
			"description": structured.String(),
			"action":      structured.String(),
		}, "description")),
		"confidence": structured.Number(),
		"reasoning":  structured.String(),
	}, "goal", "steps", "confidence")
}
