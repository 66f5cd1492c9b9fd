package protocol

import "errors"

var (
	ErrShortPayload   = errors.New("protocol: event payload too short")
	ErrUnknownButton  = errors.New("protocol: unknown button id")
	ErrUnknownHaptic  = errors.New("protocol: unknown haptic pattern")
	ErrNotCorrelated  = errors.New("protocol: message type carries no ticket")
	ErrInvalidPayload = errors.New("protocol: invalid payload")
)
