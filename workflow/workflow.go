// Package workflow composes agents into deterministic control-flow shapes:
// Sequential pipelines, Parallel fan-out, Conditional branching and bounded
// Loops. Compositors implement core.Agent themselves, so workflows nest.
//
// Each stage runs in a child context sharing the session id and a snapshot
// of the parent's state; stages never mutate the parent context.
package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/logging"
)

// DefaultMaxLoopIterations bounds Loop workflows without an explicit limit.
const DefaultMaxLoopIterations = 10

// stageContext builds the isolated context a stage executes in.
func stageContext(parent *core.AgentContext, input any) *core.AgentContext {
	child := core.NewAgentContext(parent.SessionID(), input)
	child.MergeState(parent.StateSnapshot())
	return child
}

// Sequential runs agents in order, feeding each agent's output as the next
// agent's input. The final agent's output is the workflow result.
type Sequential struct {
	name   string
	agents []core.Agent
	logger logging.Logger
}

var _ core.Agent = (*Sequential)(nil)

// SequentialOptions configure a Sequential workflow.
type SequentialOptions struct {
	Logger logging.Logger
}

// NewSequential constructs a sequential pipeline.
func NewSequential(name string, agents []core.Agent, optFns ...func(o *SequentialOptions)) *Sequential {
	opts := SequentialOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Sequential{name: name, agents: agents, logger: opts.Logger}
}

// Name implements core.Agent.
func (w *Sequential) Name() string { return w.name }

// Instructions implements core.Agent.
func (w *Sequential) Instructions() string { return "" }

// Execute implements core.Agent.
func (w *Sequential) Execute(ctx context.Context, ac *core.AgentContext) (any, error) {
	input := ac.UserInput()
	var result any
	for i, agent := range w.agents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		child := stageContext(ac, input)
		out, err := agent.Execute(ctx, child)
		if err != nil {
			return nil, fmt.Errorf("workflow %q stage %d (%s) failed: %w", w.name, i, agent.Name(), err)
		}
		w.logger.Debug("workflow stage completed", "workflow", w.name, "stage", i, "agent", agent.Name())
		result = out
		input = out
	}
	return result, nil
}

// Parallel runs all agents concurrently on the same input and returns their
// outputs keyed by agent name. The first error cancels the whole fan-out.
type Parallel struct {
	name   string
	agents []core.Agent
	logger logging.Logger
}

var _ core.Agent = (*Parallel)(nil)

// ParallelOptions configure a Parallel workflow.
type ParallelOptions struct {
	Logger logging.Logger
}

// NewParallel constructs a parallel fan-out.
func NewParallel(name string, agents []core.Agent, optFns ...func(o *ParallelOptions)) *Parallel {
	opts := ParallelOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Parallel{name: name, agents: agents, logger: opts.Logger}
}

// Name implements core.Agent.
func (w *Parallel) Name() string { return w.name }

// Instructions implements core.Agent.
func (w *Parallel) Instructions() string { return "" }

// Execute implements core.Agent.
func (w *Parallel) Execute(ctx context.Context, ac *core.AgentContext) (any, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		results  = make(map[string]any, len(w.agents))
		firstErr error
	)
	for _, agent := range w.agents {
		wg.Add(1)
		go func(agent core.Agent) {
			defer wg.Done()
			out, err := agent.Execute(ctx, stageContext(ac, ac.UserInput()))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("workflow %q branch %s failed: %w", w.name, agent.Name(), err)
					cancel()
				}
				return
			}
			results[agent.Name()] = out
		}(agent)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// Condition selects a branch name for the given context.
type Condition func(ctx context.Context, ac *core.AgentContext) (string, error)

// Conditional routes to one of several named branches. An empty selection
// falls back to the default branch when one is set.
type Conditional struct {
	name      string
	condition Condition
	branches  map[string]core.Agent
	fallback  core.Agent
	logger    logging.Logger
}

var _ core.Agent = (*Conditional)(nil)

// ConditionalOptions configure a Conditional workflow.
type ConditionalOptions struct {
	Logger logging.Logger
	// Default is executed when the condition selects no known branch.
	Default core.Agent
}

// NewConditional constructs a branching workflow.
func NewConditional(name string, condition Condition, branches map[string]core.Agent, optFns ...func(o *ConditionalOptions)) *Conditional {
	opts := ConditionalOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Conditional{
		name:      name,
		condition: condition,
		branches:  branches,
		fallback:  opts.Default,
		logger:    opts.Logger,
	}
}

// Name implements core.Agent.
func (w *Conditional) Name() string { return w.name }

// Instructions implements core.Agent.
func (w *Conditional) Instructions() string { return "" }

// Execute implements core.Agent.
func (w *Conditional) Execute(ctx context.Context, ac *core.AgentContext) (any, error) {
	branch, err := w.condition(ctx, ac)
	if err != nil {
		return nil, fmt.Errorf("workflow %q condition failed: %w", w.name, err)
	}
	agent, ok := w.branches[branch]
	if !ok {
		if w.fallback == nil {
			return nil, fmt.Errorf("workflow %q has no branch %q and no default", w.name, branch)
		}
		agent = w.fallback
	}
	w.logger.Debug("workflow branch selected", "workflow", w.name, "branch", branch, "agent", agent.Name())
	return agent.Execute(ctx, stageContext(ac, ac.UserInput()))
}

// Continue decides whether another loop iteration should run, given the
// 1-based iteration just completed and its result.
type Continue func(iteration int, result any) bool

// Loop repeatedly runs the body agent, feeding each iteration's output into
// the next, until the continue function returns false or the iteration cap
// is reached.
type Loop struct {
	name     string
	body     core.Agent
	cont     Continue
	maxIters int
	logger   logging.Logger
}

var _ core.Agent = (*Loop)(nil)

// LoopOptions configure a Loop workflow.
type LoopOptions struct {
	Logger logging.Logger
	// MaxIterations caps the loop regardless of the continue function.
	MaxIterations int
}

// NewLoop constructs a bounded loop.
func NewLoop(name string, body core.Agent, cont Continue, optFns ...func(o *LoopOptions)) *Loop {
	opts := LoopOptions{Logger: logging.NoOpLogger{}, MaxIterations: DefaultMaxLoopIterations}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxLoopIterations
	}
	return &Loop{name: name, body: body, cont: cont, maxIters: opts.MaxIterations, logger: opts.Logger}
}

// Name implements core.Agent.
func (w *Loop) Name() string { return w.name }

// Instructions implements core.Agent.
func (w *Loop) Instructions() string { return "" }

// Execute implements core.Agent.
func (w *Loop) Execute(ctx context.Context, ac *core.AgentContext) (any, error) {
	input := ac.UserInput()
	var result any
	for iteration := 1; iteration <= w.maxIters; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := w.body.Execute(ctx, stageContext(ac, input))
		if err != nil {
			return nil, fmt.Errorf("workflow %q iteration %d failed: %w", w.name, iteration, err)
		}
		result = out
		input = out
		if w.cont == nil || !w.cont(iteration, out) {
			w.logger.Debug("workflow loop finished", "workflow", w.name, "iterations", iteration)
			return result, nil
		}
	}
	w.logger.Debug("workflow loop hit iteration cap", "workflow", w.name, "iterations", w.maxIters)
	return result, nil
}
