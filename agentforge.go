// Package agentforge provides a high-level façade over the SDK's building
// blocks (registry, state, queue, interrupts, MCP, artifacts, metrics). Most
// applications interact with this package by:
//  1. Creating a Forge via New() (optionally overriding the in-memory stores)
//  2. Registering one or more agents (model, planning, media, workflow, custom)
//  3. Obtaining a fluent executor via Agent(), PlanningAgent() or MediaAgent()
//     and running it synchronously or on a queue
//
// All defaults are safe for local development and testing; production
// deployments typically supply the SQLite stores and a structured logger.
package agentforge

import (
	"time"

	"github.com/hupe1980/agentforge/artifact"
	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/executor"
	"github.com/hupe1980/agentforge/interrupt"
	"github.com/hupe1980/agentforge/logging"
	"github.com/hupe1980/agentforge/mcp"
	"github.com/hupe1980/agentforge/memory"
	"github.com/hupe1980/agentforge/metrics"
	"github.com/hupe1980/agentforge/queue"
	"github.com/hupe1980/agentforge/registry"
	"github.com/hupe1980/agentforge/session"
	"github.com/hupe1980/agentforge/state"
)

// Options configure a Forge instance.
type Options struct {
	// Stores (default to in-memory implementations if not provided).
	SessionStore   core.SessionStore
	MemoryStore    core.MemoryStore
	InterruptStore core.InterruptStore
	ArtifactStore  core.ArtifactStore

	// Dispatcher handles queued executions. When nil an in-process worker
	// pool is created.
	Dispatcher queue.Dispatcher

	// MCPServers configures named MCP servers available to agents.
	MCPServers map[string]mcp.ServerConfig

	// ApprovalTools lists tool names that require human approval before
	// execution.
	ApprovalTools []string

	// InterruptTTL overrides the default pending-interrupt lifetime.
	InterruptTTL time.Duration

	// Tracer brackets synchronous planning and media executions. Defaults
	// to a tracer that logs completed spans through the configured logger.
	Tracer executor.Tracer

	// Metrics enables Prometheus instrumentation when set.
	Metrics *metrics.Metrics

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Forge is the high-level façade aggregating the SDK services.
type Forge struct {
	opts       Options
	registry   *registry.Registry
	state      *state.StateManager
	interrupts *interrupt.Manager
	mcpManager *mcp.ClientManager
	dispatcher queue.Dispatcher
	env        *executor.Env

	ownsDispatcher bool
}

// New creates a Forge with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Forge {
	opts := Options{
		SessionStore:   session.NewInMemoryStore(),
		MemoryStore:    memory.NewInMemoryStore(),
		InterruptStore: interrupt.NewInMemoryStore(),
		ArtifactStore:  artifact.NewInMemoryStore(),
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Tracer == nil {
		opts.Tracer = executor.LogTracer{Logger: opts.Logger}
	}

	reg := registry.New(func(o *registry.Options) {
		o.Logger = opts.Logger
	})
	memoryManager := state.NewMemoryManager(opts.MemoryStore, opts.SessionStore, func(o *state.MemoryManagerOptions) {
		o.Logger = opts.Logger
	})
	stateManager := state.NewStateManager(opts.SessionStore, memoryManager, func(o *state.StateManagerOptions) {
		o.Logger = opts.Logger
	})
	interrupts := interrupt.NewManager(opts.InterruptStore, func(o *interrupt.ManagerOptions) {
		o.Logger = opts.Logger
		o.ApprovalTools = opts.ApprovalTools
		if opts.InterruptTTL > 0 {
			o.DefaultTTL = opts.InterruptTTL
		}
	})

	var mcpManager *mcp.ClientManager
	if len(opts.MCPServers) > 0 {
		mcpManager = mcp.NewClientManager(opts.MCPServers, func(o *mcp.ClientManagerOptions) {
			o.Logger = opts.Logger
		})
	}

	f := &Forge{
		opts:       opts,
		registry:   reg,
		state:      stateManager,
		interrupts: interrupts,
		mcpManager: mcpManager,
	}
	f.env = &executor.Env{
		Registry:  reg,
		State:     stateManager,
		Artifacts: opts.ArtifactStore,
		Tracer:    opts.Tracer,
		Metrics:   opts.Metrics,
		Logger:    opts.Logger,
	}

	if opts.Dispatcher != nil {
		f.dispatcher = opts.Dispatcher
	} else {
		f.dispatcher = queue.NewInMemoryDispatcher(executor.NewJobHandler(f.env))
		f.ownsDispatcher = true
	}
	f.env.Dispatcher = f.dispatcher

	return f
}

// RegisterAgent adds an agent instance under its own name.
func (f *Forge) RegisterAgent(a core.Agent) error {
	return f.registry.Register(a.Name(), a)
}

// RegisterAgentFactory binds a name to a lazily-invoked agent factory.
func (f *Forge) RegisterAgentFactory(name string, factory registry.Factory) error {
	return f.registry.RegisterFactory(name, factory)
}

// Agent returns a fluent executor for a registered agent.
func (f *Forge) Agent(name string) *executor.AgentExecutor {
	return executor.NewAgentExecutor(f.env, name)
}

// PlanningAgent returns a fluent executor for a registered planning agent.
func (f *Forge) PlanningAgent(name string) *executor.PlanningAgentExecutor {
	return executor.NewPlanningAgentExecutor(f.env, name)
}

// MediaAgent returns a fluent executor for a registered media agent.
func (f *Forge) MediaAgent(name string) *executor.MediaAgentExecutor {
	return executor.NewMediaAgentExecutor(f.env, name)
}

// Registry exposes the agent registry.
func (f *Forge) Registry() *registry.Registry { return f.registry }

// State exposes the state manager for direct session and memory operations.
func (f *Forge) State() *state.StateManager { return f.state }

// Interrupts exposes the human-in-the-loop interrupt manager.
func (f *Forge) Interrupts() *interrupt.Manager { return f.interrupts }

// MCP exposes the MCP client manager, or nil when no servers are configured.
func (f *Forge) MCP() *mcp.ClientManager { return f.mcpManager }

// Artifacts exposes the artifact store.
func (f *Forge) Artifacts() core.ArtifactStore { return f.opts.ArtifactStore }

// Close releases owned resources: the in-process dispatcher (draining its
// queue) and all MCP connections. Caller-supplied dispatchers are left alone.
func (f *Forge) Close() error {
	var firstErr error
	if f.ownsDispatcher {
		if err := f.dispatcher.Close(); err != nil {
			firstErr = err
		}
	}
	if f.mcpManager != nil {
		f.mcpManager.DisconnectAll()
	}
	return firstErr
}
