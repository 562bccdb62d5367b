package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/agentforge/core"
)

// StubAgent is a scripted core.Agent for tests. It returns a fixed result or
// error and records every context it was executed with.
type StubAgent struct {
	AgentName string
	Result    any
	Err       error

	// ExecuteFn, when set, overrides the fixed result.
	ExecuteFn func(ctx context.Context, ac *core.AgentContext) (any, error)

	mu       sync.Mutex
	contexts []*core.AgentContext
}

var _ core.Agent = (*StubAgent)(nil)

// Name implements core.Agent.
func (a *StubAgent) Name() string { return a.AgentName }

// Instructions implements core.Agent.
func (a *StubAgent) Instructions() string { return "" }

// Execute implements core.Agent.
func (a *StubAgent) Execute(ctx context.Context, ac *core.AgentContext) (any, error) {
	a.mu.Lock()
	a.contexts = append(a.contexts, ac)
	a.mu.Unlock()
	if a.ExecuteFn != nil {
		return a.ExecuteFn(ctx, ac)
	}
	return a.Result, a.Err
}

// Calls returns how many times the agent was executed.
func (a *StubAgent) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.contexts)
}

// Contexts returns the contexts of all executions in order.
func (a *StubAgent) Contexts() []*core.AgentContext {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*core.AgentContext, len(a.contexts))
	copy(out, a.contexts)
	return out
}

// LastContext returns the context of the most recent execution, or nil.
func (a *StubAgent) LastContext() *core.AgentContext {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.contexts) == 0 {
		return nil
	}
	return a.contexts[len(a.contexts)-1]
}
