// Package deck runs the smart-deck protocol engine: one receive loop reading
// and dispatching frames, serialized writers for commands and display
// updates, and ticket-based request/response correlation on top of the
// half-duplex serial link.
//
// Ownership boundary:
// - engine lifecycle (Disconnected -> Connecting -> Ready -> Disconnected)
// - command send/await-reply surface and display updates
// - event listener dispatch
package deck
