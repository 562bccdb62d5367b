package core

import (
	"context"
	"time"
)

// SessionStore persists sessions and their conversation history.
//
// Save semantics: a single SaveSession call must be atomic; either the state
// blob and all new messages land, or nothing does. Concurrent saves to the
// same session are last-write-wins; the store does not implement optimistic
// locking.
type SessionStore interface {
	// GetSession returns the record for sessionID, or (nil, nil) when the
	// session does not exist. A non-nil error indicates a storage failure
	// and must be treated as fatal by the caller.
	GetSession(ctx context.Context, sessionID string) (*SessionRecord, error)

	// SaveSession upserts the record and appends newMessages atomically.
	SaveSession(ctx context.Context, rec *SessionRecord, newMessages []Message) error

	// GetMessages returns the ordered conversation history for a session.
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)

	// DeleteSessionsBefore removes sessions (and their messages) for the
	// agent last updated before cutoff, returning the number of sessions
	// deleted. Memory rows are never touched.
	DeleteSessionsBefore(ctx context.Context, agentName string, cutoff time.Time) (int, error)
}

// MemoryStore persists long-term, cross-session memory per (agent, user).
type MemoryStore interface {
	// GetMemory returns the memory for the pair, or (nil, nil) when absent.
	GetMemory(ctx context.Context, agentName, userID string) (*MemoryRecord, error)

	// SaveMemory upserts the record (single atomic write).
	SaveMemory(ctx context.Context, rec *MemoryRecord) error
}

// InterruptStore persists human-in-the-loop interrupts.
type InterruptStore interface {
	CreateInterrupt(ctx context.Context, rec *InterruptRecord) error

	// GetInterrupt returns the record or (nil, nil) when unknown.
	GetInterrupt(ctx context.Context, id string) (*InterruptRecord, error)

	UpdateInterrupt(ctx context.Context, rec *InterruptRecord) error

	// ExpirePending transitions all pending interrupts whose ExpiresAt lies
	// before now to expired, returning the number affected.
	ExpirePending(ctx context.Context, now time.Time) (int, error)

	// DeleteResolvedBefore hard-deletes non-pending interrupts created
	// before cutoff, returning the number removed. Pending rows are kept.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ArtifactStore defines the interface for artifact persistence. Implementations
// should be thread-safe and scope artifacts by session identifier. Short method
// names (Save/Get/List/Delete) mirror other store interfaces for consistency.
type ArtifactStore interface {
	Save(sessionID, artifactID string, data []byte) error
	Get(sessionID, artifactID string) ([]byte, error)
	List(sessionID string) ([]string, error)
	Delete(sessionID, artifactID string) error
}
