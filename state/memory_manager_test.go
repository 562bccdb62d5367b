package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/memory"
	"github.com/hupe1980/agentforge/session"
)

func newTestMemoryManager() (*MemoryManager, *session.InMemoryStore) {
	sessions := session.NewInMemoryStore()
	return NewMemoryManager(memory.NewInMemoryStore(), sessions), sessions
}

func TestGetOrCreateMemoryStableIdentity(t *testing.T) {
	mm, _ := newTestMemoryManager()
	ctx := context.Background()

	first, err := mm.GetOrCreateMemory(ctx, "assistant", "u-1")
	require.NoError(t, err)
	second, err := mm.GetOrCreateMemory(ctx, "assistant", "u-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := mm.GetOrCreateMemory(ctx, "assistant", "u-2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID, "memory is keyed per (agent, user)")
}

func TestAddLearningDeduplicates(t *testing.T) {
	mm, _ := newTestMemoryManager()
	ctx := context.Background()

	require.NoError(t, mm.AddLearning(ctx, "assistant", "u-1", "likes tea"))
	require.NoError(t, mm.AddLearning(ctx, "assistant", "u-1", "likes tea"))
	require.NoError(t, mm.AddLearning(ctx, "assistant", "u-1", "dislikes meetings"))

	rec, err := mm.GetOrCreateMemory(ctx, "assistant", "u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"likes tea", "dislikes meetings"}, rec.KeyLearnings)
}

func TestUpdateMemoryDataMerges(t *testing.T) {
	mm, _ := newTestMemoryManager()
	ctx := context.Background()

	require.NoError(t, mm.UpdateMemoryData(ctx, "assistant", "u-1", map[string]any{"city": "Berlin", "role": "dev"}))
	require.NoError(t, mm.UpdateMemoryData(ctx, "assistant", "u-1", map[string]any{"city": "Hamburg"}))

	rec, err := mm.GetOrCreateMemory(ctx, "assistant", "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Hamburg", rec.MemoryData["city"], "facts merge last-write-wins")
	assert.Equal(t, "dev", rec.MemoryData["role"])
}

func TestIncrementSessionCount(t *testing.T) {
	mm, _ := newTestMemoryManager()
	ctx := context.Background()

	require.NoError(t, mm.IncrementSessionCount(ctx, "assistant", "u-1"))
	require.NoError(t, mm.IncrementSessionCount(ctx, "assistant", "u-1"))

	rec, err := mm.GetOrCreateMemory(ctx, "assistant", "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.TotalSessions)
}

func TestMemoryContextEmptyIsNil(t *testing.T) {
	mm, _ := newTestMemoryManager()
	ctx := context.Background()

	snapshot, err := mm.MemoryContext(ctx, "assistant", "u-1")
	require.NoError(t, err)
	assert.Nil(t, snapshot, "unknown pair yields no snapshot")

	// An existing but empty record still injects nothing.
	_, err = mm.GetOrCreateMemory(ctx, "assistant", "u-1")
	require.NoError(t, err)
	snapshot, err = mm.MemoryContext(ctx, "assistant", "u-1")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestCleanupOldSessionsPreservesMemory(t *testing.T) {
	mm, sessions := newTestMemoryManager()
	ctx := context.Background()

	require.NoError(t, mm.UpdateSummary(ctx, "assistant", "u-1", "long-term knowledge"))
	require.NoError(t, sessions.SaveSession(ctx, &core.SessionRecord{
		SessionID: "old",
		AgentName: "assistant",
		StateData: map[string]any{},
	}, nil))

	// Cleanup with a future cutoff removes the session.
	cutoff := -1 // days; negative means the cutoff lies in the future
	deleted, err := mm.CleanupOldSessions(ctx, "assistant", cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	rec, err := sessions.GetSession(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, rec)

	snapshot, err := mm.MemoryContext(ctx, "assistant", "u-1")
	require.NoError(t, err)
	require.NotNil(t, snapshot, "memory outlives session cleanup")
	assert.Equal(t, "long-term knowledge", snapshot["summary"])
}

func TestApplyUpdatesUnknownKeysIgnored(t *testing.T) {
	mm, _ := newTestMemoryManager()
	ctx := context.Background()

	require.NoError(t, mm.ApplyUpdates(ctx, "assistant", "u-1", map[string]any{
		"learnings": []string{"uses vim"},
		"mood":      "irrelevant",
	}))

	rec, err := mm.GetOrCreateMemory(ctx, "assistant", "u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"uses vim"}, rec.KeyLearnings)
	assert.NotContains(t, rec.MemoryData, "mood")
}

func TestMemoryRecordSnapshotIsCopy(t *testing.T) {
	rec := &core.MemoryRecord{
		Summary:      "s",
		KeyLearnings: []string{"a"},
		MemoryData:   map[string]any{"k": "v"},
		UpdatedAt:    time.Now(),
	}
	snap := rec.ContextSnapshot()
	snap["memory_data"].(map[string]any)["k"] = "mutated"
	assert.Equal(t, "v", rec.MemoryData["k"])
}
