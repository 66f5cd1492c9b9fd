package protocol

import (
	"encoding/binary"
	"fmt"
)

// InputEvent is one decoded unit of physical input from the device.
type InputEvent interface {
	inputEvent()
}

// ButtonEvent reports a key or knob push changing state.
type ButtonEvent struct {
	Button  Button
	Pressed bool
}

// KnobEvent reports a rotary encoder step. Delta is negative for
// counter-clockwise rotation.
type KnobEvent struct {
	Knob  Button
	Delta int8
}

// TouchPhase distinguishes the stages of one touch contact.
type TouchPhase int

const (
	TouchStart TouchPhase = iota
	TouchMove
	TouchEnd
)

func (p TouchPhase) String() string {
	switch p {
	case TouchStart:
		return "touchstart"
	case TouchMove:
		return "touchmove"
	case TouchEnd:
		return "touchend"
	}
	return "touch?"
}

// TouchEvent reports one sample of a touch contact on the panel. ID is the
// firmware-assigned contact id, stable for the lifetime of the contact.
type TouchEvent struct {
	Phase TouchPhase
	X     uint16
	Y     uint16
	ID    byte
}

// TickEvent is the device keep-alive. Carries no information.
type TickEvent struct{}

// UnknownEvent surfaces a frame whose type is neither a known reply nor a
// known event, so protocol drift stays observable.
type UnknownEvent struct {
	Type    MessageType
	Payload []byte
}

func (ButtonEvent) inputEvent()  {}
func (KnobEvent) inputEvent()    {}
func (TouchEvent) inputEvent()   {}
func (TickEvent) inputEvent()    {}
func (UnknownEvent) inputEvent() {}

// EventDecoder classifies unsolicited frames into typed input events.
//
// Decoding is stateless except for touch contacts: the wire only carries
// touch-move and touch-end, so the decoder tracks active contact ids and
// promotes the first sample of an unseen id to TouchStart.
type EventDecoder struct {
	active map[byte]struct{}
}

func NewEventDecoder() *EventDecoder {
	return &EventDecoder{active: make(map[byte]struct{})}
}

// Decode maps an unsolicited frame to its event. Unrecognized message types
// return UnknownEvent, never an error; errors mean a known type carried a
// malformed payload.
func (d *EventDecoder) Decode(mt MessageType, payload []byte) (InputEvent, error) {
	switch mt {
	case MsgButtonPress:
		if len(payload) < 2 {
			return nil, fmt.Errorf("%w: %s needs 2 bytes, got %d", ErrShortPayload, mt, len(payload))
		}
		return ButtonEvent{
			Button:  Button(payload[0]),
			Pressed: payload[1] == 0x00,
		}, nil

	case MsgKnobRotate:
		if len(payload) < 2 {
			return nil, fmt.Errorf("%w: %s needs 2 bytes, got %d", ErrShortPayload, mt, len(payload))
		}
		return KnobEvent{
			Knob:  Button(payload[0]),
			Delta: int8(payload[1]),
		}, nil

	case MsgTouch:
		ev, err := d.parseTouch(payload)
		if err != nil {
			return nil, err
		}
		if _, seen := d.active[ev.ID]; seen {
			ev.Phase = TouchMove
		} else {
			ev.Phase = TouchStart
			d.active[ev.ID] = struct{}{}
		}
		return ev, nil

	case MsgTouchEnd:
		ev, err := d.parseTouch(payload)
		if err != nil {
			return nil, err
		}
		ev.Phase = TouchEnd
		delete(d.active, ev.ID)
		return ev, nil

	case MsgTick:
		return TickEvent{}, nil
	}

	return UnknownEvent{Type: mt, Payload: payload}, nil
}

// parseTouch reads [x:be16][y:be16][id] per the device layout.
func (d *EventDecoder) parseTouch(payload []byte) (TouchEvent, error) {
	if len(payload) < 5 {
		return TouchEvent{}, fmt.Errorf("%w: touch needs 5 bytes, got %d", ErrShortPayload, len(payload))
	}
	return TouchEvent{
		X:  binary.BigEndian.Uint16(payload[0:2]),
		Y:  binary.BigEndian.Uint16(payload[2:4]),
		ID: payload[4],
	}, nil
}
