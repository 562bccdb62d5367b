package registry

import (
	"fmt"

	"github.com/hupe1980/agentforge/core"
)

// Definition is an ad-hoc, schema-less agent description. Instructions are
// mandatory: a definition without them is a configuration error caught at
// registration time, never at run time.
type Definition struct {
	Name         string
	Description  string
	Instructions string
}

// DefinitionBuilder turns a validated Definition into a runnable agent.
// The wiring layer supplies a builder bound to its default model and tool
// surface.
type DefinitionBuilder func(def Definition) (core.Agent, error)

// RegisterDefinition validates the definition and registers a lazy factory
// for it. Validation failures are returned immediately.
func (r *Registry) RegisterDefinition(def Definition, build DefinitionBuilder) error {
	if def.Name == "" {
		return fmt.Errorf("agent definition requires a name")
	}
	if def.Instructions == "" {
		return fmt.Errorf("agent definition %q requires instructions", def.Name)
	}
	if build == nil {
		return fmt.Errorf("agent definition %q requires a builder", def.Name)
	}
	return r.RegisterFactory(def.Name, func() (core.Agent, error) {
		return build(def)
	})
}
