package executor

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentforge/agent"
)

// Planning presets. Each maps to a (max_attempts, confidence_threshold) pair
// the planning agent reads from its context parameters.
const (
	presetFastAttempts  = 1
	presetFastThreshold = 0.6

	presetBalancedAttempts  = 3
	presetBalancedThreshold = 0.8

	presetHighAccuracyAttempts  = 5
	presetHighAccuracyThreshold = 0.9
)

// PlanningAgentExecutor is the fluent surface for planning agents. It layers
// accuracy presets and typed results on top of AgentExecutor.
type PlanningAgentExecutor struct {
	inner *AgentExecutor
}

// NewPlanningAgentExecutor constructs an executor for a registered planning
// agent. The balanced preset applies until overridden.
func NewPlanningAgentExecutor(env *Env, agentName string) *PlanningAgentExecutor {
	e := &PlanningAgentExecutor{inner: NewAgentExecutor(env, agentName)}
	return e.Balanced()
}

// ForUser scopes the execution to an end user.
func (e *PlanningAgentExecutor) ForUser(userID string) *PlanningAgentExecutor {
	e.inner.ForUser(userID)
	return e
}

// WithSession pins the execution to an explicit session id.
func (e *PlanningAgentExecutor) WithSession(sessionID string) *PlanningAgentExecutor {
	e.inner.WithSession(sessionID)
	return e
}

// WithContext adds one key/value pair to the turn's context state.
func (e *PlanningAgentExecutor) WithContext(key string, value any) *PlanningAgentExecutor {
	e.inner.WithContext(key, value)
	return e
}

// Fast plans with a single attempt and a low confidence bar.
func (e *PlanningAgentExecutor) Fast() *PlanningAgentExecutor {
	return e.preset(presetFastAttempts, presetFastThreshold)
}

// Balanced is the default preset.
func (e *PlanningAgentExecutor) Balanced() *PlanningAgentExecutor {
	return e.preset(presetBalancedAttempts, presetBalancedThreshold)
}

// HighAccuracy plans with the largest attempt budget and the highest
// confidence bar.
func (e *PlanningAgentExecutor) HighAccuracy() *PlanningAgentExecutor {
	return e.preset(presetHighAccuracyAttempts, presetHighAccuracyThreshold)
}

// MaxAttempts overrides the replan budget independently of the preset.
func (e *PlanningAgentExecutor) MaxAttempts(n int) *PlanningAgentExecutor {
	e.inner.WithParameter("max_attempts", n)
	return e
}

// Threshold overrides the confidence threshold independently of the preset.
func (e *PlanningAgentExecutor) Threshold(v float64) *PlanningAgentExecutor {
	e.inner.WithParameter("confidence_threshold", v)
	return e
}

func (e *PlanningAgentExecutor) preset(attempts int, threshold float64) *PlanningAgentExecutor {
	e.inner.WithParameter("max_attempts", attempts)
	e.inner.WithParameter("confidence_threshold", threshold)
	return e
}

// Async switches the execution to the queued path.
func (e *PlanningAgentExecutor) Async() *PlanningAgentExecutor {
	e.inner.Async()
	return e
}

// OnQueue names the queue for the queued path (implies Async).
func (e *PlanningAgentExecutor) OnQueue(name string) *PlanningAgentExecutor {
	e.inner.OnQueue(name)
	return e
}

// Plan runs the planning agent synchronously and returns the typed plan.
// The call is bracketed by a trace span that records the outcome.
func (e *PlanningAgentExecutor) Plan(ctx context.Context, task string) (*agent.PlanningResponse, error) {
	if e.inner.async {
		return nil, fmt.Errorf("Plan requires synchronous execution, use Go for the queued path")
	}

	ctx, span := e.inner.env.tracer().StartSpan(ctx, "planning."+e.inner.agentName)
	result, err := e.inner.runSync(ctx, task)
	if err != nil {
		span.End(err)
		return nil, err
	}

	plan, ok := result.(*agent.PlanningResponse)
	if !ok {
		err = fmt.Errorf("agent %q did not return a plan (got %T)", e.inner.agentName, result)
		span.End(err)
		return nil, err
	}
	span.SetOutput(fmt.Sprintf("goal=%q steps=%d confidence=%.2f", plan.Goal, len(plan.Steps), plan.Confidence))
	span.End(nil)
	return plan, nil
}

// Go runs the execution. On the queued path it returns a *queue.Receipt, on
// the sync path the typed plan.
func (e *PlanningAgentExecutor) Go(ctx context.Context, task string) (any, error) {
	if e.inner.async {
		return e.inner.enqueue(ctx, task)
	}
	return e.Plan(ctx, task)
}
