package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentforge/artifact"
	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/internal/testutil"
)

// stubGenerator records the prompt and options it was called with.
type stubGenerator struct {
	media   *Media
	err     error
	prompt  string
	options map[string]any
}

func (g *stubGenerator) GenerateMedia(_ context.Context, prompt string, options map[string]any) (*Media, error) {
	g.prompt = prompt
	g.options = options
	return g.media, g.err
}

func TestMediaAgentStoresArtifact(t *testing.T) {
	gen := &stubGenerator{media: &Media{MimeType: "image/png", Data: []byte{1, 2, 3, 4}}}
	store := artifact.NewInMemoryStore()
	a := NewMediaAgent("painter", "Paint in watercolor.", gen, store)

	ac := testutil.NewContextBuilder().
		Session("s-1").
		Input("a lighthouse").
		State(core.StateKeyParameters, map[string]any{"size": "512x512"}).
		Build()

	out, err := a.Execute(context.Background(), ac)
	require.NoError(t, err)

	result := out.(*MediaResult)
	assert.NotEmpty(t, result.ArtifactID)
	assert.Equal(t, "image/png", result.MimeType)
	assert.Equal(t, 4, result.SizeBytes)

	data, err := store.Get("s-1", result.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data, "bytes live in the artifact store, not the result")

	assert.Equal(t, "Paint in watercolor.\n\na lighthouse", gen.prompt)
	assert.Equal(t, "512x512", gen.options["size"])
}

func TestMediaAgentGeneratorError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("quota exceeded")}
	a := NewMediaAgent("painter", "", gen, artifact.NewInMemoryStore())

	_, err := a.Execute(context.Background(), testutil.NewContextBuilder().Input("x").Build())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
