// Package interrupt implements human-in-the-loop pause points. An agent (or a
// tool wrapper) raises an interrupt when execution needs a human decision:
// approval of a sensitive tool call, confirmation of a plan, or free-form
// input. Raising persists a pending record and unwinds execution with a
// *Signal error; a later, out-of-band resolution (approve, reject, respond,
// cancel) moves the record to its terminal state. Transitions are one-way and
// checked by the Manager, never left to callers.
package interrupt
