// Package core defines the domain contracts shared across AgentForge: the
// Agent capability interface, the per-turn AgentContext, conversation
// messages and content parts, durable record shapes (sessions, memories,
// interrupts) and the store interfaces that persistence backends implement.
//
// Keeping contracts here lets higher level packages (executors, tools, state
// management) depend on interfaces only; concrete storage and provider
// implementations live in their own packages and are selected at wiring time.
package core
