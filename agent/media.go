package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/logging"
)

// Media is a generated binary result.
type Media struct {
	MimeType string
	Data     []byte
}

// Generator produces media from a text prompt. Options carry provider
// tunables (size, style, voice) opaque to this package.
type Generator interface {
	GenerateMedia(ctx context.Context, prompt string, options map[string]any) (*Media, error)
}

// MediaResult is the handle a MediaAgent returns: the bytes live in the
// artifact store, scoped to the session.
type MediaResult struct {
	ArtifactID string `json:"artifact_id"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int    `json:"size_bytes"`
}

// MediaAgentOptions configure a MediaAgent.
type MediaAgentOptions struct {
	Description string
	Logger      logging.Logger
}

// MediaAgent turns a prompt into generated media and persists it as a
// session artifact, returning a *MediaResult handle instead of raw bytes.
type MediaAgent struct {
	BaseAgent
	generator Generator
	artifacts core.ArtifactStore
}

var _ core.Agent = (*MediaAgent)(nil)

// NewMediaAgent constructs a MediaAgent over a generator and artifact store.
func NewMediaAgent(name, instructions string, generator Generator, artifacts core.ArtifactStore, optFns ...func(o *MediaAgentOptions)) *MediaAgent {
	opts := MediaAgentOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MediaAgent{
		BaseAgent: BaseAgent{
			name:         name,
			description:  opts.Description,
			instructions: instructions,
			logger:       opts.Logger,
		},
		generator: generator,
		artifacts: artifacts,
	}
}

// Execute implements core.Agent. It returns a *MediaResult.
func (a *MediaAgent) Execute(ctx context.Context, ac *core.AgentContext) (any, error) {
	prompt := stringInput(ac.UserInput())
	if a.instructions != "" {
		prompt = a.instructions + "\n\n" + prompt
	}
	options, _ := ac.GetStateDefault(core.StateKeyParameters, map[string]any{}).(map[string]any)

	media, err := a.generator.GenerateMedia(ctx, prompt, options)
	if err != nil {
		return nil, fmt.Errorf("media generation failed for agent %q: %w", a.name, err)
	}

	artifactID := core.NewID()
	if err := a.artifacts.Save(ac.SessionID(), artifactID, media.Data); err != nil {
		return nil, fmt.Errorf("failed to store generated media: %w", err)
	}
	a.logger.Info("media generated", "agent", a.name, "artifact_id", artifactID, "mime_type", media.MimeType, "size", len(media.Data))

	return &MediaResult{
		ArtifactID: artifactID,
		MimeType:   media.MimeType,
		SizeBytes:  len(media.Data),
	}, nil
}
