package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAgentContextGeneratesSessionID(t *testing.T) {
	ac := NewAgentContext("", "hi")
	assert.NotEmpty(t, ac.SessionID())
	assert.Equal(t, "hi", ac.UserInput())

	other := NewAgentContext("", "hi")
	assert.NotEqual(t, ac.SessionID(), other.SessionID())
}

func TestStateOperations(t *testing.T) {
	ac := NewAgentContext("s-1", nil)

	_, ok := ac.GetState("missing")
	assert.False(t, ok)
	assert.Equal(t, "fallback", ac.GetStateDefault("missing", "fallback"))

	ac.SetState("k", 1)
	v, ok := ac.GetState("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	ac.MergeState(map[string]any{"k": 2, "j": "x"})
	assert.Equal(t, 2, ac.GetStateDefault("k", 0))
	assert.Equal(t, "x", ac.GetStateDefault("j", ""))

	ac.DeleteState("k")
	_, ok = ac.GetState("k")
	assert.False(t, ok)
}

func TestStateSnapshotIsACopy(t *testing.T) {
	ac := NewAgentContext("s-1", nil)
	ac.SetState("k", "v")

	snap := ac.StateSnapshot()
	snap["k"] = "mutated"
	snap["new"] = true

	assert.Equal(t, "v", ac.GetStateDefault("k", ""))
	_, ok := ac.GetState("new")
	assert.False(t, ok)
}

func TestHistoryIsACopy(t *testing.T) {
	ac := NewAgentContext("s-1", nil)
	ac.AddMessage(NewMessage("user", "hello"))

	history := ac.History()
	history[0].Content = "mutated"

	assert.Equal(t, "hello", ac.History()[0].Content)
}

func TestUnpersistedMessageTracking(t *testing.T) {
	ac := NewAgentContext("s-1", nil)
	ac.AddMessage(NewMessage("user", "one"))
	ac.AddMessage(NewMessage("assistant", "two"))
	require.Len(t, ac.UnpersistedMessages(), 2)

	ac.MarkPersisted()
	assert.Empty(t, ac.UnpersistedMessages())

	ac.AddMessage(NewToolMessage("search", "three"))
	unpersisted := ac.UnpersistedMessages()
	require.Len(t, unpersisted, 1)
	assert.Equal(t, "tool", unpersisted[0].Role)
	assert.Equal(t, "search", unpersisted[0].ToolName)
	assert.Len(t, ac.History(), 3)
}

func TestRehydrateCopiesInputs(t *testing.T) {
	state := map[string]any{"k": "v"}
	history := []Message{NewMessage("user", "earlier")}

	ac := RehydrateAgentContext("s-1", "next", state, history)
	assert.Empty(t, ac.UnpersistedMessages(), "rehydrated history counts as persisted")

	state["k"] = "mutated"
	history[0].Content = "mutated"

	assert.Equal(t, "v", ac.GetStateDefault("k", ""))
	assert.Equal(t, "earlier", ac.History()[0].Content)
}

func TestDelegationDepthCoercion(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"absent", nil, 0},
		{"int", 3, 3},
		{"int64", int64(4), 4},
		{"float64 from json", float64(2), 2},
		{"unexpected type", "5", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := NewAgentContext("s-1", nil)
			if tt.value != nil {
				ac.SetState(StateKeyDelegationDepth, tt.value)
			}
			assert.Equal(t, tt.want, ac.DelegationDepth())
		})
	}
}

func TestMessageConstructors(t *testing.T) {
	msg := NewMessage("user", "hi")
	assert.Equal(t, "user", msg.Role)
	assert.False(t, msg.Timestamp.IsZero())

	toolMsg := NewToolMessage("search", "result")
	assert.Equal(t, "tool", toolMsg.Role)
	assert.Equal(t, "search", toolMsg.ToolName)
}
