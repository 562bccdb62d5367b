package session

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/agentforge/core"
)

// InMemoryStore is a volatile core.SessionStore implementation storing
// session records and messages in process-local maps. It is safe for
// concurrent access and best suited for tests or ephemeral demo setups.
// Returned records are copies to prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.SessionRecord
	messages map[string][]core.Message
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*core.SessionRecord),
		messages: make(map[string][]core.Message),
	}
}

// GetSession returns a copy of the stored record or (nil, nil) when absent.
func (s *InMemoryStore) GetSession(_ context.Context, sessionID string) (*core.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return copyRecord(rec), nil
}

// SaveSession upserts the record and appends new messages. The write is
// atomic with respect to other store calls.
func (s *InMemoryStore) SaveSession(_ context.Context, rec *core.SessionRecord, newMessages []core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copyRecord(rec)
	if existing, ok := s.sessions[rec.SessionID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = time.Now().UTC()
	s.sessions[rec.SessionID] = stored
	s.messages[rec.SessionID] = append(s.messages[rec.SessionID], newMessages...)
	return nil
}

// GetMessages returns a copy of the ordered history for a session.
func (s *InMemoryStore) GetMessages(_ context.Context, sessionID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[sessionID]
	out := make([]core.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// DeleteSessionsBefore removes stale sessions and their messages for the
// given agent. Memory records are outside this store and never touched.
func (s *InMemoryStore) DeleteSessionsBefore(_ context.Context, agentName string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, rec := range s.sessions {
		if rec.AgentName == agentName && rec.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			delete(s.messages, id)
			deleted++
		}
	}
	return deleted, nil
}

func copyRecord(rec *core.SessionRecord) *core.SessionRecord {
	out := *rec
	out.StateData = make(map[string]any, len(rec.StateData))
	for k, v := range rec.StateData {
		out.StateData[k] = v
	}
	return &out
}
