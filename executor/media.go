package executor

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentforge/agent"
)

// MediaAgentExecutor is the fluent surface for media agents. Generation
// options (size, style, voice) travel as provider parameters.
type MediaAgentExecutor struct {
	inner *AgentExecutor
}

// NewMediaAgentExecutor constructs an executor for a registered media agent.
func NewMediaAgentExecutor(env *Env, agentName string) *MediaAgentExecutor {
	return &MediaAgentExecutor{inner: NewAgentExecutor(env, agentName)}
}

// ForUser scopes the execution to an end user.
func (e *MediaAgentExecutor) ForUser(userID string) *MediaAgentExecutor {
	e.inner.ForUser(userID)
	return e
}

// WithSession pins the execution to an explicit session id.
func (e *MediaAgentExecutor) WithSession(sessionID string) *MediaAgentExecutor {
	e.inner.WithSession(sessionID)
	return e
}

// WithOption sets one generation option passed through to the generator.
func (e *MediaAgentExecutor) WithOption(key string, value any) *MediaAgentExecutor {
	e.inner.WithParameter(key, value)
	return e
}

// WithOptions merges multiple generation options.
func (e *MediaAgentExecutor) WithOptions(options map[string]any) *MediaAgentExecutor {
	for k, v := range options {
		e.inner.WithParameter(k, v)
	}
	return e
}

// Async switches the execution to the queued path.
func (e *MediaAgentExecutor) Async() *MediaAgentExecutor {
	e.inner.Async()
	return e
}

// OnQueue names the queue for the queued path (implies Async).
func (e *MediaAgentExecutor) OnQueue(name string) *MediaAgentExecutor {
	e.inner.OnQueue(name)
	return e
}

// Generate runs the media agent synchronously and returns the artifact
// handle. The call is bracketed by a trace span that records the outcome.
func (e *MediaAgentExecutor) Generate(ctx context.Context, prompt string) (*agent.MediaResult, error) {
	if e.inner.async {
		return nil, fmt.Errorf("Generate requires synchronous execution, use Go for the queued path")
	}

	ctx, span := e.inner.env.tracer().StartSpan(ctx, "media."+e.inner.agentName)
	result, err := e.inner.runSync(ctx, prompt)
	if err != nil {
		span.End(err)
		return nil, err
	}

	media, ok := result.(*agent.MediaResult)
	if !ok {
		err = fmt.Errorf("agent %q did not return a media result (got %T)", e.inner.agentName, result)
		span.End(err)
		return nil, err
	}
	span.SetOutput(fmt.Sprintf("artifact=%s mime=%s size=%d", media.ArtifactID, media.MimeType, media.SizeBytes))
	span.End(nil)
	return media, nil
}

// Go runs the execution. On the queued path it returns a *queue.Receipt, on
// the sync path the typed media result.
func (e *MediaAgentExecutor) Go(ctx context.Context, prompt string) (any, error) {
	if e.inner.async {
		return e.inner.enqueue(ctx, prompt)
	}
	return e.Generate(ctx, prompt)
}
