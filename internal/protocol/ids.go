package protocol

import "fmt"

// Button identifies a physical control: one of the six rotary knobs, the
// circle button, or a numbered key. Ids are firmware constants.
type Button byte

const (
	KnobTL Button = 0x01
	KnobCL Button = 0x02
	KnobBL Button = 0x03
	KnobTR Button = 0x04
	KnobCR Button = 0x05
	KnobBR Button = 0x06
	Circle Button = 0x07
	Key1   Button = 0x08
	Key2   Button = 0x09
	Key3   Button = 0x0A
	Key4   Button = 0x0B
	Key5   Button = 0x0C
	Key6   Button = 0x0D
	Key7   Button = 0x0E
)

var buttonNames = map[Button]string{
	KnobTL: "knobTL",
	KnobCL: "knobCL",
	KnobBL: "knobBL",
	KnobTR: "knobTR",
	KnobCR: "knobCR",
	KnobBR: "knobBR",
	Circle: "circle",
	Key1:   "1",
	Key2:   "2",
	Key3:   "3",
	Key4:   "4",
	Key5:   "5",
	Key6:   "6",
	Key7:   "7",
}

func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return fmt.Sprintf("button(0x%02x)", byte(b))
}

// Known reports whether the id maps to a physical control on this device.
func (b Button) Known() bool {
	_, ok := buttonNames[b]
	return ok
}

// IsKnob reports whether the id is one of the rotary encoders.
func (b Button) IsKnob() bool {
	return b >= KnobTL && b <= KnobBR
}

// HapticPattern selects a vibration waveform for MsgSetVibration. The full
// firmware table is larger; this is the subset with observable differences.
type HapticPattern byte

const (
	HapticShort    HapticPattern = 0x01
	HapticMedium   HapticPattern = 0x0A
	HapticLong     HapticPattern = 0x0F
	HapticLow      HapticPattern = 0x31
	HapticShortLow HapticPattern = 0x32
	HapticLower    HapticPattern = 0x40
	HapticDescend  HapticPattern = 0x46
	HapticAscend   HapticPattern = 0x52
	HapticRiseFall HapticPattern = 0x6A
	HapticBuzz     HapticPattern = 0x70
	HapticVeryLong HapticPattern = 0x76
	HapticRumble   HapticPattern = 0x7B
)

var hapticPatterns = map[HapticPattern]string{
	HapticShort:    "short",
	HapticMedium:   "medium",
	HapticLong:     "long",
	HapticLow:      "low",
	HapticShortLow: "short_low",
	HapticLower:    "lower",
	HapticBuzz:     "buzz",
	HapticRumble:   "rumble",
	HapticAscend:   "ascend",
	HapticDescend:  "descend",
	HapticRiseFall: "rise_fall",
	HapticVeryLong: "very_long",
}

func (h HapticPattern) String() string {
	if name, ok := hapticPatterns[h]; ok {
		return name
	}
	return fmt.Sprintf("haptic(0x%02x)", byte(h))
}

// Known reports whether the pattern is in the supported table. Patterns
// outside it are rejected before they reach the wire.
func (h HapticPattern) Known() bool {
	_, ok := hapticPatterns[h]
	return ok
}
