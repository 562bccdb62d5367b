package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentforge/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreImplementsCoreInterfaces(t *testing.T) {
	var _ core.SessionStore = (*Store)(nil)
	var _ core.MemoryStore = (*Store)(nil)
	var _ core.InterruptStore = (*Store)(nil)
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	absent, err := s.GetSession(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, absent)

	rec := &core.SessionRecord{
		SessionID: "s-1",
		AgentName: "assistant",
		StateData: map[string]any{"topic": "go", "count": float64(2)},
	}
	msgs := []core.Message{
		core.NewMessage("user", "hi"),
		core.NewToolMessage("search", "result"),
	}
	require.NoError(t, s.SaveSession(ctx, rec, msgs))

	got, err := s.GetSession(ctx, "s-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "assistant", got.AgentName)
	assert.Equal(t, "go", got.StateData["topic"])
	assert.Equal(t, float64(2), got.StateData["count"])

	history, err := s.GetMessages(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "search", history[1].ToolName)
}

func TestSessionUpsertKeepsMemoryID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &core.SessionRecord{SessionID: "s-1", AgentName: "assistant", StateData: map[string]any{}, MemoryID: "m-1"}
	require.NoError(t, s.SaveSession(ctx, rec, nil))

	// A later save without the memory reference must not clear it.
	rec.MemoryID = ""
	require.NoError(t, s.SaveSession(ctx, rec, nil))

	got, err := s.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", got.MemoryID)
}

func TestDeleteSessionsBeforeCascadesMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &core.SessionRecord{SessionID: "s-old", AgentName: "assistant", StateData: map[string]any{}}
	require.NoError(t, s.SaveSession(ctx, rec, []core.Message{core.NewMessage("user", "hi")}))

	deleted, err := s.DeleteSessionsBefore(ctx, "assistant", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	msgs, err := s.GetMessages(ctx, "s-old")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMemoryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	absent, err := s.GetMemory(ctx, "assistant", "u-1")
	require.NoError(t, err)
	assert.Nil(t, absent)

	rec := &core.MemoryRecord{
		ID:            "m-1",
		AgentName:     "assistant",
		UserID:        "u-1",
		Summary:       "Works on a Go SDK",
		KeyLearnings:  []string{"prefers short answers"},
		MemoryData:    map[string]any{"city": "Berlin"},
		TotalSessions: 3,
	}
	require.NoError(t, s.SaveMemory(ctx, rec))

	got, err := s.GetMemory(ctx, "assistant", "u-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "m-1", got.ID)
	assert.Equal(t, []string{"prefers short answers"}, got.KeyLearnings)
	assert.Equal(t, "Berlin", got.MemoryData["city"])
	assert.Equal(t, 3, got.TotalSessions)

	rec.Summary = "updated"
	require.NoError(t, s.SaveMemory(ctx, rec))
	again, err := s.GetMemory(ctx, "assistant", "u-1")
	require.NoError(t, err)
	assert.Equal(t, "updated", again.Summary)
}

func TestSessionCleanupLeavesMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveMemory(ctx, &core.MemoryRecord{ID: "m-1", AgentName: "assistant", UserID: "u-1", Summary: "keep"}))
	require.NoError(t, s.SaveSession(ctx, &core.SessionRecord{
		SessionID: "s-1", AgentName: "assistant", StateData: map[string]any{}, MemoryID: "m-1",
	}, nil))

	_, err := s.DeleteSessionsBefore(ctx, "assistant", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	mem, err := s.GetMemory(ctx, "assistant", "u-1")
	require.NoError(t, err)
	require.NotNil(t, mem, "memory outlives its sessions")
}

func TestInterruptLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	absent, err := s.GetInterrupt(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, absent)

	rec := &core.InterruptRecord{
		ID:        "i-1",
		SessionID: "s-1",
		AgentName: "assistant",
		Type:      core.InterruptTypeApproval,
		Reason:    "tool requires approval",
		Data:      map[string]any{"tool": "delete_file"},
		Status:    core.InterruptStatusPending,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateInterrupt(ctx, rec))

	got, err := s.GetInterrupt(ctx, "i-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, core.InterruptStatusPending, got.Status)
	assert.Equal(t, "delete_file", got.Data["tool"])

	now := time.Now().UTC()
	got.Status = core.InterruptStatusApproved
	got.ResolvedAt = &now
	got.ResolvedBy = "operator"
	got.Modifications = map[string]any{"path": "/tmp/x"}
	require.NoError(t, s.UpdateInterrupt(ctx, got))

	resolved, err := s.GetInterrupt(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, core.InterruptStatusApproved, resolved.Status)
	assert.Equal(t, "operator", resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, "/tmp/x", resolved.Modifications["path"])
}

func TestExpirePending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	overdue := &core.InterruptRecord{
		ID: "i-1", SessionID: "s-1", AgentName: "assistant",
		Type: core.InterruptTypeApproval, Reason: "r",
		Status:    core.InterruptStatusPending,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
		CreatedAt: time.Now().UTC(),
	}
	fresh := &core.InterruptRecord{
		ID: "i-2", SessionID: "s-1", AgentName: "assistant",
		Type: core.InterruptTypeApproval, Reason: "r",
		Status:    core.InterruptStatusPending,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateInterrupt(ctx, overdue))
	require.NoError(t, s.CreateInterrupt(ctx, fresh))

	n, err := s.ExpirePending(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	expired, err := s.GetInterrupt(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, core.InterruptStatusExpired, expired.Status)

	still, err := s.GetInterrupt(ctx, "i-2")
	require.NoError(t, err)
	assert.Equal(t, core.InterruptStatusPending, still.Status)
}

func TestDeleteResolvedBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	resolved := &core.InterruptRecord{
		ID: "i-1", SessionID: "s-1", AgentName: "assistant",
		Type: core.InterruptTypeApproval, Reason: "r",
		Status:    core.InterruptStatusRejected,
		ExpiresAt: time.Now().UTC(),
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	pending := &core.InterruptRecord{
		ID: "i-2", SessionID: "s-1", AgentName: "assistant",
		Type: core.InterruptTypeApproval, Reason: "r",
		Status:    core.InterruptStatusPending,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	require.NoError(t, s.CreateInterrupt(ctx, resolved))
	require.NoError(t, s.CreateInterrupt(ctx, pending))

	n, err := s.DeleteResolvedBefore(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	gone, err := s.GetInterrupt(ctx, "i-1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := s.GetInterrupt(ctx, "i-2")
	require.NoError(t, err)
	require.NotNil(t, kept, "pending interrupts survive cleanup")
}
