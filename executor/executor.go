// Package executor provides the fluent execution surface of the SDK. An
// executor accumulates targeting (user, session), context key/values,
// provider tunables and attachments, then either runs the agent synchronously
// or serializes everything into a queued job and returns a receipt.
//
// The synchronous path always follows the same order: resolve the session id,
// load context through the state manager, inject execution metadata, persist
// the context before invoking the agent (so the agent sees its own just-set
// state if it reloads), invoke, persist again. Errors propagate to the
// caller; only the Call convenience stringifies them.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentforge/artifact"
	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/logging"
	"github.com/hupe1980/agentforge/metrics"
	"github.com/hupe1980/agentforge/queue"
	"github.com/hupe1980/agentforge/registry"
	"github.com/hupe1980/agentforge/state"
)

// Execution modes recorded in context state.
const (
	ModeSync   = "sync"
	ModeQueued = "queued"
)

// Env bundles the collaborators every executor needs. The facade constructs
// one Env per runtime instance and hands it to each executor it creates.
type Env struct {
	Registry   *registry.Registry
	State      *state.StateManager
	Dispatcher queue.Dispatcher
	Artifacts  core.ArtifactStore
	Tracer     Tracer
	Metrics    *metrics.Metrics
	Logger     logging.Logger
}

func (e *Env) logger() logging.Logger {
	if e.Logger == nil {
		return logging.NoOpLogger{}
	}
	return e.Logger
}

func (e *Env) tracer() Tracer {
	if e.Tracer == nil {
		return NoopTracer{}
	}
	return e.Tracer
}

// AgentExecutor is the fluent builder for one execution. Builder methods
// return the receiver; configuration errors surface on Go.
type AgentExecutor struct {
	env       *Env
	agentName string

	userID    string
	sessionID string
	contextKV map[string]any
	params    map[string]any
	attach    []artifact.Attachment

	async     bool
	queueName string
	delay     time.Duration
	tries     int
	timeout   time.Duration
}

// NewAgentExecutor constructs an executor for a registered agent name.
func NewAgentExecutor(env *Env, agentName string) *AgentExecutor {
	return &AgentExecutor{
		env:       env,
		agentName: agentName,
		contextKV: map[string]any{},
		params:    map[string]any{},
	}
}

// ForUser scopes the execution to an end user: the session id becomes
// user-scoped and long-term memory is keyed by this user.
func (e *AgentExecutor) ForUser(userID string) *AgentExecutor {
	e.userID = userID
	return e
}

// WithSession pins the execution to an explicit session id.
func (e *AgentExecutor) WithSession(sessionID string) *AgentExecutor {
	e.sessionID = sessionID
	return e
}

// WithContext adds one key/value pair to the turn's context state.
func (e *AgentExecutor) WithContext(key string, value any) *AgentExecutor {
	e.contextKV[key] = value
	return e
}

// WithContextMap merges multiple key/value pairs into the turn's context state.
func (e *AgentExecutor) WithContextMap(kv map[string]any) *AgentExecutor {
	for k, v := range kv {
		e.contextKV[k] = v
	}
	return e
}

// WithParameter sets one provider tunable (temperature, model override, ...).
func (e *AgentExecutor) WithParameter(key string, value any) *AgentExecutor {
	e.params[key] = value
	return e
}

// WithAttachment attaches a binary blob (image, document) to the turn.
func (e *AgentExecutor) WithAttachment(att artifact.Attachment) *AgentExecutor {
	e.attach = append(e.attach, att)
	return e
}

// Async switches the execution to the queued path.
func (e *AgentExecutor) Async() *AgentExecutor {
	e.async = true
	return e
}

// OnQueue names the queue for the queued path (implies Async).
func (e *AgentExecutor) OnQueue(name string) *AgentExecutor {
	e.async = true
	e.queueName = name
	return e
}

// WithDelay postpones the queued execution.
func (e *AgentExecutor) WithDelay(d time.Duration) *AgentExecutor {
	e.delay = d
	return e
}

// WithTries sets the queued retry budget.
func (e *AgentExecutor) WithTries(n int) *AgentExecutor {
	e.tries = n
	return e
}

// WithTimeout bounds the whole invocation (advisory on the sync path,
// per-attempt on the queued path).
func (e *AgentExecutor) WithTimeout(d time.Duration) *AgentExecutor {
	e.timeout = d
	return e
}

// Go runs the execution. On the queued path it returns a *queue.Receipt
// without blocking on the agent; on the sync path it returns the agent's
// output and propagates any error.
func (e *AgentExecutor) Go(ctx context.Context, input any) (any, error) {
	if e.async {
		return e.enqueue(ctx, input)
	}
	return e.runSync(ctx, input)
}

// Call is the string-coercion convenience: it runs synchronously and
// stringifies both results and errors. This is the only place errors are
// swallowed; programmatic callers use Go.
func (e *AgentExecutor) Call(ctx context.Context, input any) string {
	result, err := e.Go(ctx, input)
	if err != nil {
		return fmt.Sprintf("Error executing agent %s: %v", e.agentName, err)
	}
	if s, ok := result.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", result)
}

// resolveSessionID picks the session for this execution: explicit wins,
// user-scoped executions get a stable per-(user, agent) id so conversations
// continue across calls, anonymous executions get a random id.
func (e *AgentExecutor) resolveSessionID() string {
	if e.sessionID != "" {
		return e.sessionID
	}
	if e.userID != "" {
		return fmt.Sprintf("user_%s_%s", e.userID, e.agentName)
	}
	return core.NewID()
}

// runSync executes the agent inline following the load -> inject -> persist
// -> invoke -> persist order.
func (e *AgentExecutor) runSync(ctx context.Context, input any) (any, error) {
	return e.invoke(ctx, input, ModeSync, e.resolveSessionID())
}

func (e *AgentExecutor) invoke(ctx context.Context, input any, mode, sessionID string) (any, error) {
	logger := e.env.logger()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	agent, err := e.env.Registry.GetAgent(e.agentName)
	if err != nil {
		return nil, err
	}

	ac, err := e.env.State.LoadContext(ctx, e.agentName, sessionID, input, e.userID)
	if err != nil {
		return nil, err
	}

	ac.SetState(core.StateKeyExecutionMode, mode)
	if e.userID != "" {
		ac.SetState(core.StateKeyUserID, e.userID)
	}
	if len(e.params) > 0 {
		ac.SetState(core.StateKeyParameters, e.params)
	}
	ac.MergeState(e.contextKV)

	if len(e.attach) > 0 {
		if e.env.Artifacts == nil {
			return nil, fmt.Errorf("attachments require an artifact store")
		}
		ids := make([]string, 0, len(e.attach))
		for _, att := range e.attach {
			id, err := artifact.SaveAttachment(e.env.Artifacts, ac.SessionID(), att)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		ac.SetState(core.StateKeyAttachments, ids)
	}

	// Persist before invoking so the agent observes its own metadata if it
	// reloads the session mid-turn.
	if err := e.env.State.SaveContext(ctx, ac, e.agentName, false); err != nil {
		return nil, err
	}

	started := time.Now()
	result, execErr := agent.Execute(ctx, ac)
	if e.env.Metrics != nil {
		e.env.Metrics.ObserveExecution(e.agentName, mode, time.Since(started), execErr)
	}
	if execErr != nil {
		logger.Error("agent execution failed", "agent", e.agentName, "session_id", ac.SessionID(), "mode", mode, "error", execErr)
		return nil, execErr
	}

	if err := e.env.State.SaveContext(ctx, ac, e.agentName, true); err != nil {
		return nil, err
	}
	logger.Info("agent execution completed", "agent", e.agentName, "session_id", ac.SessionID(), "mode", mode, "duration", time.Since(started))
	return result, nil
}

// enqueue serializes the accumulated parameters into a job and dispatches
// it, returning immediately.
func (e *AgentExecutor) enqueue(ctx context.Context, input any) (*queue.Receipt, error) {
	if e.env.Dispatcher == nil {
		return nil, fmt.Errorf("queued execution requires a dispatcher")
	}
	if len(e.attach) > 0 {
		return nil, fmt.Errorf("attachments are not supported on the queued path")
	}

	jobState := make(map[string]any, len(e.contextKV)+1)
	for k, v := range e.contextKV {
		jobState[k] = v
	}
	if len(e.params) > 0 {
		jobState[core.StateKeyParameters] = e.params
	}

	queueName := e.queueName
	if queueName == "" {
		queueName = queue.DefaultQueue
	}
	job := queue.Job{
		ID:        core.NewID(),
		Queue:     queueName,
		AgentName: e.agentName,
		SessionID: e.resolveSessionID(),
		UserID:    e.userID,
		Input:     fmt.Sprintf("%v", input),
		State:     jobState,
		Delay:     e.delay,
		Tries:     e.tries,
		Timeout:   e.timeout,
	}
	if err := e.env.Dispatcher.Dispatch(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to dispatch job for agent %q: %w", e.agentName, err)
	}
	e.env.logger().Info("job enqueued", "agent", e.agentName, "job_id", job.ID, "queue", job.Queue)

	return &queue.Receipt{
		JobDispatched: true,
		JobID:         job.ID,
		Queue:         job.Queue,
		Agent:         e.agentName,
		Mode:          ModeQueued,
	}, nil
}

// NewJobHandler builds the queue handler that runs dispatched jobs through
// the same synchronous invocation path.
func NewJobHandler(env *Env) queue.Handler {
	return func(ctx context.Context, job queue.Job) error {
		exec := NewAgentExecutor(env, job.AgentName)
		exec.userID = job.UserID
		exec.sessionID = job.SessionID
		exec.contextKV = job.State
		_, err := exec.invoke(ctx, job.Input, ModeQueued, job.SessionID)
		return err
	}
}
