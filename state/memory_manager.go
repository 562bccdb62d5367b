package state

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/logging"
)

// MemoryManagerOptions configure a MemoryManager.
type MemoryManagerOptions struct {
	Logger logging.Logger
}

// MemoryManager owns long-term, cross-session memory per (agent, user).
// Learnings are append-only and de-duplicated, facts merge last-write-wins,
// the summary is replaced wholesale and the session counter is monotonic.
//
// Session cleanup deletes sessions and messages only; memory records outlive
// every session that referenced them.
type MemoryManager struct {
	store    core.MemoryStore
	sessions core.SessionStore
	logger   logging.Logger
}

// NewMemoryManager constructs a MemoryManager over the given stores.
func NewMemoryManager(store core.MemoryStore, sessions core.SessionStore, optFns ...func(o *MemoryManagerOptions)) *MemoryManager {
	opts := MemoryManagerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MemoryManager{store: store, sessions: sessions, logger: opts.Logger}
}

// GetOrCreateMemory returns the memory for (agentName, userID), creating an
// empty record on first access. The returned record's identity is stable for
// the lifetime of the pair.
func (m *MemoryManager) GetOrCreateMemory(ctx context.Context, agentName, userID string) (*core.MemoryRecord, error) {
	rec, err := m.store.GetMemory(ctx, agentName, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}
	if rec != nil {
		return rec, nil
	}
	rec = &core.MemoryRecord{
		ID:           core.NewID(),
		AgentName:    agentName,
		UserID:       userID,
		KeyLearnings: []string{},
		MemoryData:   map[string]any{},
	}
	if err := m.store.SaveMemory(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create memory: %w", err)
	}
	m.logger.Debug("memory created", "agent", agentName, "user", userID, "memory_id", rec.ID)
	return rec, nil
}

// AddLearning appends a learning unless an identical one is already present.
func (m *MemoryManager) AddLearning(ctx context.Context, agentName, userID, learning string) error {
	if learning == "" {
		return nil
	}
	rec, err := m.GetOrCreateMemory(ctx, agentName, userID)
	if err != nil {
		return err
	}
	for _, existing := range rec.KeyLearnings {
		if existing == learning {
			return nil
		}
	}
	rec.KeyLearnings = append(rec.KeyLearnings, learning)
	return m.store.SaveMemory(ctx, rec)
}

// UpdateMemoryData merges fact keys into the memory, last write wins per key.
func (m *MemoryManager) UpdateMemoryData(ctx context.Context, agentName, userID string, facts map[string]any) error {
	if len(facts) == 0 {
		return nil
	}
	rec, err := m.GetOrCreateMemory(ctx, agentName, userID)
	if err != nil {
		return err
	}
	for k, v := range facts {
		rec.MemoryData[k] = v
	}
	return m.store.SaveMemory(ctx, rec)
}

// UpdateSummary replaces the memory's summary.
func (m *MemoryManager) UpdateSummary(ctx context.Context, agentName, userID, summary string) error {
	rec, err := m.GetOrCreateMemory(ctx, agentName, userID)
	if err != nil {
		return err
	}
	rec.Summary = summary
	return m.store.SaveMemory(ctx, rec)
}

// IncrementSessionCount bumps the monotonic session counter.
func (m *MemoryManager) IncrementSessionCount(ctx context.Context, agentName, userID string) error {
	rec, err := m.GetOrCreateMemory(ctx, agentName, userID)
	if err != nil {
		return err
	}
	rec.TotalSessions++
	return m.store.SaveMemory(ctx, rec)
}

// MemoryContext returns a read-only snapshot of the pair's memory, or nil
// when no memory exists or it is empty. Callers must not treat the snapshot
// as live state.
func (m *MemoryManager) MemoryContext(ctx context.Context, agentName, userID string) (map[string]any, error) {
	rec, err := m.store.GetMemory(ctx, agentName, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}
	if rec.IsEmpty() {
		return nil, nil
	}
	return rec.ContextSnapshot(), nil
}

// ApplyUpdates consumes a memory-updates instruction of the shape
// {learnings: [...], facts: {...}, summary: "..."} as produced under the
// reserved state key. Unknown keys are ignored.
func (m *MemoryManager) ApplyUpdates(ctx context.Context, agentName, userID string, updates map[string]any) error {
	if learnings, ok := updates["learnings"]; ok {
		for _, l := range toStringSlice(learnings) {
			if err := m.AddLearning(ctx, agentName, userID, l); err != nil {
				return err
			}
		}
	}
	if facts, ok := updates["facts"].(map[string]any); ok {
		if err := m.UpdateMemoryData(ctx, agentName, userID, facts); err != nil {
			return err
		}
	}
	if summary, ok := updates["summary"].(string); ok && summary != "" {
		if err := m.UpdateSummary(ctx, agentName, userID, summary); err != nil {
			return err
		}
	}
	return nil
}

// CleanupOldSessions deletes the agent's sessions (and their messages) last
// updated more than olderThanDays ago and returns the number removed. Memory
// records are never deleted or mutated by cleanup.
func (m *MemoryManager) CleanupOldSessions(ctx context.Context, agentName string, olderThanDays int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	deleted, err := m.sessions.DeleteSessionsBefore(ctx, agentName, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	if deleted > 0 {
		m.logger.Info("old sessions removed", "agent", agentName, "count", deleted)
	}
	return deleted, nil
}

// toStringSlice coerces []string or []any learning payloads to []string.
func toStringSlice(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out
	default:
		return nil
	}
}
