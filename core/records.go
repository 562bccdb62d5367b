package core

import "time"

// SessionRecord is the durable representation of a session: one row per
// (sessionID, agentName) pair. MemoryID is lazily assigned the first time the
// agent+user's long-term memory is touched and stable afterwards.
type SessionRecord struct {
	SessionID string         `json:"session_id"`
	AgentName string         `json:"agent_name"`
	StateData map[string]any `json:"state_data"`
	MemoryID  string         `json:"memory_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MemoryRecord is durable long-term memory keyed by (agentName, userID).
// Memory outlives individual sessions: session cleanup never deletes or
// mutates memory rows.
type MemoryRecord struct {
	ID            string         `json:"id"`
	AgentName     string         `json:"agent_name"`
	UserID        string         `json:"user_id,omitempty"`
	Summary       string         `json:"summary,omitempty"`
	KeyLearnings  []string       `json:"key_learnings"`
	MemoryData    map[string]any `json:"memory_data"`
	TotalSessions int            `json:"total_sessions"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// IsEmpty reports whether the memory carries no summary, learnings or facts.
func (m *MemoryRecord) IsEmpty() bool {
	return m == nil || (m.Summary == "" && len(m.KeyLearnings) == 0 && len(m.MemoryData) == 0)
}

// ContextSnapshot returns a read-only copy of the memory suitable for
// injection into context state.
func (m *MemoryRecord) ContextSnapshot() map[string]any {
	learnings := make([]string, len(m.KeyLearnings))
	copy(learnings, m.KeyLearnings)
	facts := make(map[string]any, len(m.MemoryData))
	for k, v := range m.MemoryData {
		facts[k] = v
	}
	return map[string]any{
		"summary":        m.Summary,
		"key_learnings":  learnings,
		"memory_data":    facts,
		"total_sessions": m.TotalSessions,
	}
}

// InterruptType classifies what a human-in-the-loop interrupt asks for.
type InterruptType string

// Interrupt types.
const (
	InterruptTypeApproval     InterruptType = "approval"
	InterruptTypeConfirmation InterruptType = "confirmation"
	InterruptTypeInput        InterruptType = "input"
)

// InterruptStatus is the lifecycle state of an interrupt. Transitions are
// one-way: pending -> approved | rejected | expired | cancelled.
type InterruptStatus string

// Interrupt statuses.
const (
	InterruptStatusPending   InterruptStatus = "pending"
	InterruptStatusApproved  InterruptStatus = "approved"
	InterruptStatusRejected  InterruptStatus = "rejected"
	InterruptStatusExpired   InterruptStatus = "expired"
	InterruptStatusCancelled InterruptStatus = "cancelled"
)

// IsTerminal reports whether the status is a terminal (resolved) state.
func (s InterruptStatus) IsTerminal() bool { return s != InterruptStatusPending }

// InterruptRecord is a durable human-in-the-loop pause point. Once status
// leaves pending the record is immutable except by explicit cleanup.
type InterruptRecord struct {
	ID              string          `json:"id"`
	SessionID       string          `json:"session_id"`
	AgentName       string          `json:"agent_name"`
	Type            InterruptType   `json:"type"`
	Reason          string          `json:"reason"`
	Data            map[string]any  `json:"data,omitempty"`
	Status          InterruptStatus `json:"status"`
	ExpiresAt       time.Time       `json:"expires_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy      string          `json:"resolved_by,omitempty"`
	Modifications   map[string]any  `json:"modifications,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	UserResponse    string          `json:"user_response,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
