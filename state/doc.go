// Package state implements the session/context/memory state machine:
// StateManager loads and saves per-turn AgentContexts against durable session
// storage, and MemoryManager owns long-term, cross-session memory per
// (agent, user): summaries, learnings, arbitrary facts and session counters.
//
// Freshly loaded contexts receive a read-only snapshot of non-empty long-term
// memory under a reserved state key; saves extract the transient
// memory-updates instruction from state and forward it to the memory manager
// before persisting.
package state
