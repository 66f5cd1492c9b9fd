package protocol

import "fmt"

// MessageType is the one-byte wire message identifier. Values are fixed by the
// device firmware. A reply frame reuses its command's type byte.
type MessageType byte

const (
	// Commands and their replies. These carry a ticket byte.
	MsgSetButtonColor MessageType = 0x02
	MsgSetBrightness  MessageType = 0x13
	MsgSetVibration   MessageType = 0x19
	MsgReset          MessageType = 0x40
	MsgGetSerial      MessageType = 0x41
	MsgGetVersion     MessageType = 0x42

	// Display upload. Fire-and-forget, no ticket.
	MsgWriteChunk MessageType = 0x10
	MsgCommit     MessageType = 0x11

	// Unsolicited device input. No ticket.
	MsgButtonPress MessageType = 0x50
	MsgKnobRotate  MessageType = 0x51
	MsgTouch       MessageType = 0x52
	MsgTouchEnd    MessageType = 0x53
	MsgTick        MessageType = 0x54
)

var correlated = map[MessageType]bool{
	MsgSetButtonColor: true,
	MsgSetBrightness:  true,
	MsgSetVibration:   true,
	MsgReset:          true,
	MsgGetSerial:      true,
	MsgGetVersion:     true,
}

// Correlated reports whether frames of this type carry a ticket byte.
func (m MessageType) Correlated() bool {
	return correlated[m]
}

var typeNames = map[MessageType]string{
	MsgSetButtonColor: "set_button_color",
	MsgSetBrightness:  "set_brightness",
	MsgSetVibration:   "set_vibration",
	MsgReset:          "reset",
	MsgGetSerial:      "get_serial",
	MsgGetVersion:     "get_version",
	MsgWriteChunk:     "write_chunk",
	MsgCommit:         "commit",
	MsgButtonPress:    "button_press",
	MsgKnobRotate:     "knob_rotate",
	MsgTouch:          "touch",
	MsgTouchEnd:       "touch_end",
	MsgTick:           "tick",
}

func (m MessageType) String() string {
	if name, ok := typeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(m))
}
