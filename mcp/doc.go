// Package mcp implements a Model Context Protocol client layer: a JSON-RPC
// 2.0 protocol state machine over two interchangeable transports (a spawned
// subprocess speaking newline-delimited JSON on stdio, or a single HTTP POST
// per call), plus a ClientManager handling per-server client lifecycle,
// configuration overrides and time-boxed discovery caching.
//
// Clients are NOT safe for concurrent use from multiple goroutines: a client
// supports one in-flight call at a time, correlated by a strictly
// incrementing per-client request id. Wrap the manager with external locking
// if it must be shared across uncoordinated goroutines.
package mcp
