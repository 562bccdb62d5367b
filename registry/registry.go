// Package registry maps agent names to instantiable agent objects. Agents are
// registered explicitly (instance or factory); lookups instantiate lazily and
// cache, so the same name always yields the same instance within a process.
//
// The registry is an explicit, constructor-injected object with a clear
// lifecycle (created once per process or service instance) so tests can
// construct isolated registries instead of sharing ambient global state.
package registry

import (
	"fmt"
	"sync"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/logging"
)

// AgentNotFoundError reports a name or reference that resolves to no
// registered agent.
type AgentNotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("agent %q is not registered", e.Name)
}

// Factory produces a new agent instance. It is invoked at most once per
// registered name; the result is cached.
type Factory func() (core.Agent, error)

// Options configure a Registry.
type Options struct {
	Logger logging.Logger
}

// Registry is a process-local name -> agent map with instance caching.
// Registration is expected to happen during wiring (single writer per name);
// lookups are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]core.Agent
	logger    logging.Logger
}

// New constructs an empty Registry.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]core.Agent),
		logger:    opts.Logger,
	}
}

// Register binds a name to an already-constructed agent instance.
func (r *Registry) Register(name string, agent core.Agent) error {
	if name == "" {
		return fmt.Errorf("agent name must not be empty")
	}
	if agent == nil {
		return fmt.Errorf("agent %q must not be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[name] = agent
	r.logger.Debug("agent registered", "agent", name)
	return nil
}

// RegisterFactory binds a name to a lazily-invoked factory. The factory runs
// at most once; its result is cached.
func (r *Registry) RegisterFactory(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("agent name must not be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory for agent %q must not be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	r.logger.Debug("agent factory registered", "agent", name)
	return nil
}

// GetAgent resolves a name to its cached instance, instantiating from the
// factory on first access. Returns *AgentNotFoundError for unknown names.
func (r *Registry) GetAgent(name string) (core.Agent, error) {
	r.mu.RLock()
	if inst, ok := r.instances[name]; ok {
		r.mu.RUnlock()
		return inst, nil
	}
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &AgentNotFoundError{Name: name}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another goroutine may have instantiated while we upgraded the lock.
	if inst, ok := r.instances[name]; ok {
		return inst, nil
	}
	inst, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate agent %q: %w", name, err)
	}
	if inst == nil {
		return nil, fmt.Errorf("factory for agent %q returned nil", name)
	}
	r.instances[name] = inst
	return inst, nil
}

// HasAgent reports whether the name is registered (instance or factory).
func (r *Registry) HasAgent(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.instances[name]; ok {
		return true
	}
	_, ok := r.factories[name]
	return ok
}

// Names returns all registered agent names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.instances)+len(r.factories))
	for name := range r.instances {
		seen[name] = struct{}{}
	}
	for name := range r.factories {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	return names
}

// ResolveAgentName accepts either a registered name or an agent reference.
// An unregistered agent instance is auto-registered under its own Name().
// Returns *AgentNotFoundError when neither resolution path succeeds.
func (r *Registry) ResolveAgentName(ref any) (string, error) {
	switch v := ref.(type) {
	case string:
		if r.HasAgent(v) {
			return v, nil
		}
		return "", &AgentNotFoundError{Name: v}
	case core.Agent:
		return r.GetAgentName(v)
	default:
		return "", fmt.Errorf("cannot resolve agent from %T", ref)
	}
}

// GetAgentName returns the registered name of the given agent instance,
// auto-registering it under its own Name() when unknown.
func (r *Registry) GetAgentName(agent core.Agent) (string, error) {
	if agent == nil {
		return "", &AgentNotFoundError{Name: ""}
	}
	name := agent.Name()
	if name == "" {
		return "", fmt.Errorf("agent of type %T reports an empty name", agent)
	}
	if !r.HasAgent(name) {
		if err := r.Register(name, agent); err != nil {
			return "", err
		}
	}
	return name, nil
}
