// Package session houses concrete implementations of core.SessionStore.
// The interface itself (and the record shapes) live in the core package to
// centralize domain contracts. Keeping only implementations here prevents
// higher level packages (executors, state management) from depending on
// concrete storage.
//
// Add additional backends (Redis, Postgres, ...) in sub-packages or sibling
// packages without changing any calling code; only the wiring layer decides
// which implementation to instantiate. A durable SQLite implementation lives
// in the sqlite package.
package session
