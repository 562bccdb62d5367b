package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reserved state keys with framework-level meaning. Everything else in
// context state is opaque application data.
const (
	// StateKeyMemoryContext holds the read-only long-term memory snapshot
	// injected by the state manager on load. Absent when memory is empty.
	StateKeyMemoryContext = "memory_context"

	// StateKeyMemoryUpdates carries a transient instruction for the state
	// manager ({learnings: [...], facts: {...}, summary: ...}). It is
	// forwarded to the memory manager on save and never persisted itself.
	StateKeyMemoryUpdates = "memory_updates"

	// StateKeyDelegationDepth tracks the current depth of the delegation
	// chain. Missing means depth zero.
	StateKeyDelegationDepth = "delegation_depth"

	// StateKeyExecutionMode records how the turn was started (sync, queued).
	StateKeyExecutionMode = "execution_mode"

	// StateKeyUserID identifies the end user the turn is scoped to, if any.
	StateKeyUserID = "user_id"

	// StateKeyParameters holds provider tunables set through the executor.
	StateKeyParameters = "parameters"

	// StateKeyAttachments lists artifact ids attached to the turn.
	StateKeyAttachments = "attachments"
)

// Message is one entry of a session's conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ToolName  string    `json:"tool_name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage constructs a message stamped with the current UTC time.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now().UTC()}
}

// NewToolMessage constructs a tool-role message attributed to a tool name.
func NewToolMessage(toolName, content string) Message {
	return Message{Role: "tool", Content: content, ToolName: toolName, Timestamp: time.Now().UTC()}
}

// AgentContext is the in-memory working state of one conversation turn:
// session identity, the immutable user input, mutable key/value state and the
// ordered conversation history. It is safe for concurrent access.
//
// Contract:
//   - The session id never changes after construction
//   - State is mutated freely during a turn but only persisted explicitly
//     through the state manager
//   - History() returns a defensive copy; UnpersistedMessages() returns only
//     the entries appended since the context was loaded or last saved.
type AgentContext struct {
	sessionID string
	userInput any

	mu        sync.RWMutex
	state     map[string]any
	history   []Message
	persisted int // history entries already durable
}

// NewAgentContext creates a fresh context for a new turn. An empty sessionID
// is replaced with a generated one.
func NewAgentContext(sessionID string, userInput any) *AgentContext {
	if sessionID == "" {
		sessionID = NewID()
	}
	return &AgentContext{
		sessionID: sessionID,
		userInput: userInput,
		state:     map[string]any{},
		history:   []Message{},
	}
}

// RehydrateAgentContext reconstructs a context from persisted session state
// and history. The supplied maps/slices are copied so the caller's views
// cannot be mutated through the context.
func RehydrateAgentContext(sessionID string, userInput any, state map[string]any, history []Message) *AgentContext {
	ac := NewAgentContext(sessionID, userInput)
	for k, v := range state {
		ac.state[k] = v
	}
	ac.history = append(ac.history, history...)
	ac.persisted = len(ac.history)
	return ac
}

// SessionID returns the immutable session identifier.
func (ac *AgentContext) SessionID() string { return ac.sessionID }

// UserInput returns the turn's immutable user input.
func (ac *AgentContext) UserInput() any { return ac.userInput }

// GetState returns the value and existence flag for a state key.
func (ac *AgentContext) GetState(key string) (any, bool) {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	v, ok := ac.state[key]
	return v, ok
}

// GetStateDefault returns the value for key or def when absent.
func (ac *AgentContext) GetStateDefault(key string, def any) any {
	if v, ok := ac.GetState(key); ok {
		return v
	}
	return def
}

// SetState sets a key/value pair in the turn's working state.
func (ac *AgentContext) SetState(key string, value any) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.state[key] = value
}

// DeleteState removes a key from the working state.
func (ac *AgentContext) DeleteState(key string) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	delete(ac.state, key)
}

// MergeState merges the provided key/value pairs into state (last write wins).
func (ac *AgentContext) MergeState(delta map[string]any) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	for k, v := range delta {
		ac.state[k] = v
	}
}

// StateSnapshot returns a shallow copy of the working state.
func (ac *AgentContext) StateSnapshot() map[string]any {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	snap := make(map[string]any, len(ac.state))
	for k, v := range ac.state {
		snap[k] = v
	}
	return snap
}

// AddMessage appends a message to the conversation history.
func (ac *AgentContext) AddMessage(msg Message) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.history = append(ac.history, msg)
}

// History returns a defensive copy of the full conversation history.
func (ac *AgentContext) History() []Message {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	out := make([]Message, len(ac.history))
	copy(out, ac.history)
	return out
}

// UnpersistedMessages returns the history entries appended since the last
// save (or since rehydration).
func (ac *AgentContext) UnpersistedMessages() []Message {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	out := make([]Message, len(ac.history)-ac.persisted)
	copy(out, ac.history[ac.persisted:])
	return out
}

// MarkPersisted records that the current history has been durably saved.
func (ac *AgentContext) MarkPersisted() {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.persisted = len(ac.history)
}

// DelegationDepth reads the current delegation depth from state, defaulting
// to zero when absent or of an unexpected type.
func (ac *AgentContext) DelegationDepth() int {
	v, ok := ac.GetState(StateKeyDelegationDepth)
	if !ok {
		return 0
	}
	switch d := v.(type) {
	case int:
		return d
	case int64:
		return int(d)
	case float64:
		return int(d)
	default:
		return 0
	}
}

// NewID generates a new unique identifier for sessions, interrupts and jobs.
func NewID() string { return uuid.NewString() }
