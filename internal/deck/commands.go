package deck

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/deckctl/internal/protocol"
)

// maxBrightness is the device-side brightness range ceiling.
const maxBrightness = 10

// SetBrightness sets panel backlight from 0 (dark) to 100, scaled to the
// device's 0-10 range.
func (d *Deck) SetBrightness(ctx context.Context, percent int) error {
	level := percent / 10
	if level < 0 {
		level = 0
	}
	if level > maxBrightness {
		level = maxBrightness
	}
	_, err := d.SendCommand(ctx, protocol.MsgSetBrightness, []byte{byte(level)})
	return err
}

// SetButtonColor sets the backlight color of one physical button.
func (d *Deck) SetButtonColor(ctx context.Context, b protocol.Button, r, g, bl uint8) error {
	if !b.Known() {
		return fmt.Errorf("%w: 0x%02x", protocol.ErrUnknownButton, byte(b))
	}
	_, err := d.SendCommand(ctx, protocol.MsgSetButtonColor, []byte{byte(b), r, g, bl})
	return err
}

// Vibrate plays one haptic feedback pattern.
func (d *Deck) Vibrate(ctx context.Context, pattern protocol.HapticPattern) error {
	if !pattern.Known() {
		return fmt.Errorf("%w: 0x%02x", protocol.ErrUnknownHaptic, byte(pattern))
	}
	_, err := d.SendCommand(ctx, protocol.MsgSetVibration, []byte{byte(pattern)})
	return err
}

// SerialNumber queries the device serial number.
func (d *Deck) SerialNumber(ctx context.Context) (string, error) {
	reply, err := d.SendCommand(ctx, protocol.MsgGetSerial, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(reply)), nil
}

// FirmwareVersion queries the firmware version, reported as three bytes.
func (d *Deck) FirmwareVersion(ctx context.Context) (string, error) {
	reply, err := d.SendCommand(ctx, protocol.MsgGetVersion, nil)
	if err != nil {
		return "", err
	}
	if len(reply) < 3 {
		return "", fmt.Errorf("%w: version reply has %d bytes", protocol.ErrInvalidPayload, len(reply))
	}
	return fmt.Sprintf("%d.%d.%d", reply[0], reply[1], reply[2]), nil
}

// Reset asks the device to clear its displays.
func (d *Deck) Reset(ctx context.Context) error {
	_, err := d.SendCommand(ctx, protocol.MsgReset, nil)
	return err
}
