package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/agentforge/core"
)

// InMemoryStore is a process-local core.MemoryStore. Records are keyed by
// (agentName, userID) and copied on the way in and out so callers can never
// mutate internal state. Safe for concurrent access.
type InMemoryStore struct {
	mu       sync.RWMutex
	memories map[string]*core.MemoryRecord // (agent|user) -> record
}

// NewInMemoryStore constructs an empty in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{memories: make(map[string]*core.MemoryRecord)}
}

func memoryKey(agentName, userID string) string { return agentName + "\x00" + userID }

// GetMemory returns a copy of the memory for the pair or (nil, nil) when absent.
func (s *InMemoryStore) GetMemory(_ context.Context, agentName, userID string) (*core.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.memories[memoryKey(agentName, userID)]
	if !ok {
		return nil, nil
	}
	return copyMemory(rec), nil
}

// SaveMemory upserts the record as a single atomic write.
func (s *InMemoryStore) SaveMemory(_ context.Context, rec *core.MemoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copyMemory(rec)
	if existing, ok := s.memories[memoryKey(rec.AgentName, rec.UserID)]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = time.Now().UTC()
	s.memories[memoryKey(rec.AgentName, rec.UserID)] = stored
	return nil
}

func copyMemory(rec *core.MemoryRecord) *core.MemoryRecord {
	out := *rec
	out.KeyLearnings = make([]string, len(rec.KeyLearnings))
	copy(out.KeyLearnings, rec.KeyLearnings)
	out.MemoryData = make(map[string]any, len(rec.MemoryData))
	for k, v := range rec.MemoryData {
		out.MemoryData[k] = v
	}
	return &out
}
