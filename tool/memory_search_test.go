package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/embedding"
	"github.com/hupe1980/agentforge/internal/testutil"
	"github.com/hupe1980/agentforge/vector"
)

func newMemorySearchTool(t *testing.T, optFns ...func(o *MemorySearchOptions)) *MemorySearchTool {
	t.Helper()
	return NewMemorySearchTool(embedding.NewMockProvider(16), vector.NewInMemoryDriver(), optFns...)
}

func TestMemorySearchFindsIndexedLearnings(t *testing.T) {
	st := newMemorySearchTool(t)
	require.NoError(t, st.IndexMemory(context.Background(), &core.MemoryRecord{
		ID:           "m-1",
		AgentName:    "assistant",
		UserID:       "u-1",
		Summary:      "Works on a Go SDK",
		KeyLearnings: []string{"prefers short answers", "deploys on Fridays"},
	}))

	out, err := st.Call(context.Background(), testutil.NewContextBuilder().Build(), map[string]any{
		"query": "prefers short answers",
	})
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, "prefers short answers", result["query"])
	matches := result["results"].([]map[string]any)
	require.NotEmpty(t, matches)
	// The mock embedder maps identical texts to identical vectors.
	assert.Equal(t, "prefers short answers", matches[0]["text"])
	assert.InDelta(t, 1.0, matches[0]["score"].(float64), 1e-9)
}

func TestMemorySearchValidatesQuery(t *testing.T) {
	st := newMemorySearchTool(t)
	_, err := st.Call(context.Background(), testutil.NewContextBuilder().Build(), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestMemorySearchScopesToUser(t *testing.T) {
	st := newMemorySearchTool(t)
	require.NoError(t, st.IndexMemory(context.Background(), &core.MemoryRecord{
		ID: "m-1", AgentName: "assistant", UserID: "u-1",
		KeyLearnings: []string{"likes espresso"},
	}))
	require.NoError(t, st.IndexMemory(context.Background(), &core.MemoryRecord{
		ID: "m-2", AgentName: "assistant", UserID: "u-2",
		KeyLearnings: []string{"likes espresso"},
	}))

	ac := testutil.NewContextBuilder().User("u-1").Build()
	out, err := st.Call(context.Background(), ac, map[string]any{"query": "likes espresso", "top_k": float64(10)})
	require.NoError(t, err)

	matches := out.(map[string]any)["results"].([]map[string]any)
	require.Len(t, matches, 1, "the other user's memories are filtered out")
}

func TestMemorySearchTopKLimit(t *testing.T) {
	st := newMemorySearchTool(t)
	require.NoError(t, st.IndexMemory(context.Background(), &core.MemoryRecord{
		ID: "m-1", AgentName: "assistant",
		KeyLearnings: []string{"one", "two", "three", "four"},
	}))

	out, err := st.Call(context.Background(), testutil.NewContextBuilder().Build(), map[string]any{
		"query": "two", "top_k": float64(2),
	})
	require.NoError(t, err)
	matches := out.(map[string]any)["results"].([]map[string]any)
	assert.Len(t, matches, 2)
}

func TestIndexMemoryEmptyRecordIsNoop(t *testing.T) {
	st := newMemorySearchTool(t)
	require.NoError(t, st.IndexMemory(context.Background(), &core.MemoryRecord{ID: "m-1", AgentName: "assistant"}))

	out, err := st.Call(context.Background(), testutil.NewContextBuilder().Build(), map[string]any{"query": "anything"})
	require.NoError(t, err)
	assert.Empty(t, out.(map[string]any)["results"])
}

func TestIndexMemoryReindexIsUpsert(t *testing.T) {
	st := newMemorySearchTool(t)
	mem := &core.MemoryRecord{ID: "m-1", AgentName: "assistant", KeyLearnings: []string{"stable fact"}}
	require.NoError(t, st.IndexMemory(context.Background(), mem))
	require.NoError(t, st.IndexMemory(context.Background(), mem))

	out, err := st.Call(context.Background(), testutil.NewContextBuilder().Build(), map[string]any{
		"query": "stable fact", "top_k": float64(10),
	})
	require.NoError(t, err)
	matches := out.(map[string]any)["results"].([]map[string]any)
	assert.Len(t, matches, 1, "re-indexing does not duplicate documents")
}
