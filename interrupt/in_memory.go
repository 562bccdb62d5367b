package interrupt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentforge/core"
)

// InMemoryStore is a volatile InterruptStore for tests and ephemeral setups.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*core.InterruptRecord
}

var _ core.InterruptStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory interrupt store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*core.InterruptRecord)}
}

// CreateInterrupt implements core.InterruptStore.
func (s *InMemoryStore) CreateInterrupt(_ context.Context, rec *core.InterruptRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("interrupt record requires an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("interrupt %q already exists", rec.ID)
	}
	s.records[rec.ID] = copyInterrupt(rec)
	return nil
}

// GetInterrupt implements core.InterruptStore.
func (s *InMemoryStore) GetInterrupt(_ context.Context, id string) (*core.InterruptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return copyInterrupt(rec), nil
}

// UpdateInterrupt implements core.InterruptStore.
func (s *InMemoryStore) UpdateInterrupt(_ context.Context, rec *core.InterruptRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("interrupt record requires an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return fmt.Errorf("interrupt %q does not exist", rec.ID)
	}
	s.records[rec.ID] = copyInterrupt(rec)
	return nil
}

// ExpirePending implements core.InterruptStore.
func (s *InMemoryStore) ExpirePending(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, rec := range s.records {
		if rec.Status == core.InterruptStatusPending && rec.ExpiresAt.Before(now) {
			rec.Status = core.InterruptStatusExpired
			t := now
			rec.ResolvedAt = &t
			count++
		}
	}
	return count, nil
}

// DeleteResolvedBefore implements core.InterruptStore.
func (s *InMemoryStore) DeleteResolvedBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, rec := range s.records {
		if rec.Status != core.InterruptStatusPending && rec.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			count++
		}
	}
	return count, nil
}

// copyInterrupt deep-copies a record so callers never share map state with
// the store.
func copyInterrupt(rec *core.InterruptRecord) *core.InterruptRecord {
	out := *rec
	if rec.Data != nil {
		out.Data = make(map[string]any, len(rec.Data))
		for k, v := range rec.Data {
			out.Data[k] = v
		}
	}
	if rec.Modifications != nil {
		out.Modifications = make(map[string]any, len(rec.Modifications))
		for k, v := range rec.Modifications {
			out.Modifications[k] = v
		}
	}
	if rec.ResolvedAt != nil {
		t := *rec.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}
