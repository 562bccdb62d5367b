// Package memory contains concrete core.MemoryStore implementations holding
// long-term, cross-session memory per (agent, user): summaries, learnings,
// arbitrary facts and session counters. The store interface and record shape
// reside in the core package; depend on core.MemoryStore in your code and
// select an implementation at wiring time.
//
// A durable SQLite implementation lives in the sqlite package.
package memory
