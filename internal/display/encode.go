package display

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/deckctl/internal/protocol"
	"github.com/danmuck/deckctl/internal/protocol/frame"
)

// MaxChunkData caps the pixel bytes carried by one write_chunk frame, keeping
// a full chunk frame inside the decoder's extended length form.
const MaxChunkData = 1016

// chunkHeaderLen is [targetID:1][seq:be16].
const chunkHeaderLen = 3

// PackRGB565 truncates 24-bit RGB to the device's 5-6-5 packing. The bit
// layout is a firmware constant; any change in rounding is visible on-device.
func PackRGB565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// EncodeUpdate converts pixels into the frame sequence for one screen update:
// N write_chunk frames carrying the packed pixel stream in row-major order,
// then one commit frame that swaps the chunk buffer to the visible panel.
//
// The buffer must match the target dimensions exactly; on mismatch no frames
// are produced.
func EncodeUpdate(target Target, pixels *PixelBuffer) ([]frame.Frame, error) {
	if pixels.Width != target.Width || pixels.Height != target.Height {
		return nil, fmt.Errorf("%w: %s wants %dx%d, got %dx%d",
			ErrDimensionMismatch, target.Name,
			target.Width, target.Height, pixels.Width, pixels.Height)
	}

	packed := packBuffer(pixels)

	chunks := (len(packed) + MaxChunkData - 1) / MaxChunkData
	frames := make([]frame.Frame, 0, chunks+1)
	for seq := 0; seq < chunks; seq++ {
		lo := seq * MaxChunkData
		hi := min(lo+MaxChunkData, len(packed))

		payload := make([]byte, chunkHeaderLen+hi-lo)
		payload[0] = target.ID
		binary.BigEndian.PutUint16(payload[1:3], uint16(seq))
		copy(payload[chunkHeaderLen:], packed[lo:hi])

		frames = append(frames, frame.Frame{Type: protocol.MsgWriteChunk, Payload: payload})
	}

	frames = append(frames, frame.Frame{Type: protocol.MsgCommit, Payload: []byte{target.ID}})
	return frames, nil
}

// packBuffer emits two bytes per pixel, little-endian, rows top to bottom and
// pixels left to right within a row. Transposing either order corrupts the
// on-device image.
func packBuffer(pixels *PixelBuffer) []byte {
	out := make([]byte, 0, pixels.Width*pixels.Height*2)
	for y := 0; y < pixels.Height; y++ {
		for x := 0; x < pixels.Width; x++ {
			r, g, b := pixels.RGB(x, y)
			v := PackRGB565(r, g, b)
			out = append(out, byte(v), byte(v>>8))
		}
	}
	return out
}
