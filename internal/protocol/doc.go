// Package protocol owns the smart-deck wire contract and parsing primitives.
//
// Ownership boundary:
// - message-type enumeration and correlation table
// - button/knob/haptic identity tables
// - input event decoding
package protocol
