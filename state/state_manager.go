package state

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/logging"
)

// StateManagerOptions configure a StateManager.
type StateManagerOptions struct {
	Logger logging.Logger
}

// StateManager loads and saves per-turn AgentContexts against durable session
// storage and bridges the transient memory-updates instruction to the
// MemoryManager. A storage failure during load surfaces to the caller; there
// is no silent empty-context fallback.
type StateManager struct {
	sessions core.SessionStore
	memory   *MemoryManager
	logger   logging.Logger
}

// NewStateManager constructs a StateManager.
func NewStateManager(sessions core.SessionStore, memory *MemoryManager, optFns ...func(o *StateManagerOptions)) *StateManager {
	opts := StateManagerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &StateManager{sessions: sessions, memory: memory, logger: opts.Logger}
}

// LoadContext resolves an AgentContext for the turn. An empty sessionID gets
// a generated one. Existing sessions are rehydrated with their persisted
// state and conversation history. When the agent+user pair has non-empty
// long-term memory, a read-only snapshot is injected under the reserved
// memory-context key; empty memory injects nothing.
func (sm *StateManager) LoadContext(ctx context.Context, agentName, sessionID string, userInput any, userID string) (*core.AgentContext, error) {
	var ac *core.AgentContext

	if sessionID != "" {
		rec, err := sm.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session %q: %w", sessionID, err)
		}
		if rec != nil {
			msgs, err := sm.sessions.GetMessages(ctx, sessionID)
			if err != nil {
				return nil, fmt.Errorf("failed to load history for session %q: %w", sessionID, err)
			}
			ac = core.RehydrateAgentContext(sessionID, userInput, rec.StateData, msgs)
		}
	}
	if ac == nil {
		ac = core.NewAgentContext(sessionID, userInput)
	}

	if userID != "" {
		ac.SetState(core.StateKeyUserID, userID)
	}

	if sm.memory != nil {
		snapshot, err := sm.memory.MemoryContext(ctx, agentName, userID)
		if err != nil {
			return nil, err
		}
		if snapshot != nil {
			ac.SetState(core.StateKeyMemoryContext, snapshot)
		}
	}

	sm.logger.Debug("context loaded", "agent", agentName, "session_id", ac.SessionID())
	return ac, nil
}

// SaveContext persists the context's state and any conversation messages
// appended since the last save, as one atomic write. When applyMemoryUpdates
// is set and state carries the reserved memory-updates key, the instruction
// is forwarded to the MemoryManager and removed before persisting; it is a
// transient directive, not session state.
func (sm *StateManager) SaveContext(ctx context.Context, ac *core.AgentContext, agentName string, applyMemoryUpdates bool) error {
	userID, _ := ac.GetStateDefault(core.StateKeyUserID, "").(string)

	if applyMemoryUpdates && sm.memory != nil {
		if raw, ok := ac.GetState(core.StateKeyMemoryUpdates); ok {
			if updates, ok := raw.(map[string]any); ok {
				if err := sm.memory.ApplyUpdates(ctx, agentName, userID, updates); err != nil {
					return fmt.Errorf("failed to apply memory updates: %w", err)
				}
			}
			ac.DeleteState(core.StateKeyMemoryUpdates)
		}
	}

	rec := &core.SessionRecord{
		SessionID: ac.SessionID(),
		AgentName: agentName,
		StateData: ac.StateSnapshot(),
	}
	// The memory-context snapshot is injected fresh on every load; keeping a
	// stale copy in the durable state blob would shadow newer memory.
	delete(rec.StateData, core.StateKeyMemoryContext)

	if existing, err := sm.sessions.GetSession(ctx, ac.SessionID()); err != nil {
		return fmt.Errorf("failed to read session before save: %w", err)
	} else if existing != nil {
		rec.MemoryID = existing.MemoryID
		rec.CreatedAt = existing.CreatedAt
	}

	if rec.MemoryID == "" && sm.memory != nil && userID != "" {
		mem, err := sm.memory.store.GetMemory(ctx, agentName, userID)
		if err != nil {
			return fmt.Errorf("failed to resolve memory reference: %w", err)
		}
		if mem != nil {
			rec.MemoryID = mem.ID
		}
	}

	if err := sm.sessions.SaveSession(ctx, rec, ac.UnpersistedMessages()); err != nil {
		return fmt.Errorf("failed to save session %q: %w", ac.SessionID(), err)
	}
	ac.MarkPersisted()

	sm.logger.Debug("context saved", "agent", agentName, "session_id", ac.SessionID())
	return nil
}

// SessionHistory returns the persisted conversation history of a session.
func (sm *StateManager) SessionHistory(ctx context.Context, sessionID string) ([]core.Message, error) {
	msgs, err := sm.sessions.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for session %q: %w", sessionID, err)
	}
	return msgs, nil
}

// Memory exposes the underlying memory manager for callers that operate on
// long-term memory directly (cleanup jobs, session counters).
func (sm *StateManager) Memory() *MemoryManager { return sm.memory }
