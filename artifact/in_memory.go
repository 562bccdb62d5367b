package artifact

import (
	"sync"

	"github.com/hupe1980/agentforge/core"
)

// InMemoryStore is a process-local ArtifactStore for tests, examples and
// single-process setups. Artifacts are kept in a nested map guarded by an
// RWMutex; bytes are copied on save and retrieval so callers cannot mutate
// internal buffers.
//
// No retention limits, quotas or eviction. Use a durable implementation when
// artifacts must survive a restart.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string][]byte // sessionID -> artifactID -> data
}

var _ core.ArtifactStore = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string][]byte)}
}

// Save stores (or overwrites) the artifact bytes for the given session and id.
func (a *InMemoryStore) Save(sessionID, artifactID string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.artifacts[sessionID]; !exists {
		a.artifacts[sessionID] = make(map[string][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	a.artifacts[sessionID][artifactID] = cp
	return nil
}

// Get returns a copy of the stored artifact bytes or ErrNotFound.
func (a *InMemoryStore) Get(sessionID, artifactID string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.artifacts[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := m[artifactID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// List returns the artifact ids stored for the session.
func (a *InMemoryStore) List(sessionID string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.artifacts[sessionID]
	if !ok {
		return []string{}, nil
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids, nil
}

// Delete removes the artifact if present or returns ErrNotFound.
func (a *InMemoryStore) Delete(sessionID, artifactID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.artifacts[sessionID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m[artifactID]; !ok {
		return ErrNotFound
	}
	delete(m, artifactID)
	return nil
}
