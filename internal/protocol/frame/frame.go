// Package frame encodes and decodes the smart-deck wire framing.
//
// Wire layout, fixed by device firmware:
//
//	[0x82][length][type][ticket?][payload]
//
// The length byte counts the type byte, the ticket byte when the type is
// correlated, and the payload. Lengths 0x01-0xFE are literal; the escape
// value 0xFF is followed by a big-endian uint16 carrying the true length.
package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/deckctl/internal/protocol"
)

const (
	// Magic starts every frame on the wire.
	Magic byte = 0x82

	lengthEscape byte = 0xFF
)

var (
	ErrFraming       = errors.New("frame: desynchronized byte stream")
	ErrFrameTooLarge = errors.New("frame: length exceeds maximum")
	ErrZeroLength    = errors.New("frame: zero length field")
)

// Frame is one complete wire message.
type Frame struct {
	Type    protocol.MessageType
	Ticket  byte
	Payload []byte
}

// Limits constrains decode/encode memory use.
type Limits struct {
	MaxFrameLen int
}

func DefaultLimits() Limits {
	return Limits{MaxFrameLen: 4096}
}

// Encode produces a self-delimited frame ready for a transport write. The
// ticket byte is emitted only for correlated message types.
func Encode(mt protocol.MessageType, ticket byte, payload []byte, limits Limits) ([]byte, error) {
	length := 1 + len(payload)
	if mt.Correlated() {
		length++
	}
	if length > limits.MaxFrameLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, limits.MaxFrameLen)
	}

	var buf []byte
	if length < int(lengthEscape) {
		buf = make([]byte, 0, 2+length)
		buf = append(buf, Magic, byte(length))
	} else {
		buf = make([]byte, 0, 4+length)
		buf = append(buf, Magic, lengthEscape, byte(length>>8), byte(length))
	}
	buf = append(buf, byte(mt))
	if mt.Correlated() {
		buf = append(buf, ticket)
	}
	buf = append(buf, payload...)
	return buf, nil
}

// EncodeFrame encodes an already-assembled Frame value.
func EncodeFrame(f Frame, limits Limits) ([]byte, error) {
	return Encode(f.Type, f.Ticket, f.Payload, limits)
}

// Decoder reassembles frames from arbitrary byte chunks. Transport reads are
// not aligned with frame boundaries; incomplete trailing bytes stay buffered
// for the next Feed call.
type Decoder struct {
	buf     []byte
	limits  Limits
	skipped uint64
}

func NewDecoder(limits Limits) *Decoder {
	return &Decoder{limits: limits}
}

// Skipped returns the count of bytes discarded while hunting for a magic
// byte. A nonzero delta between reads indicates line noise or desync.
func (d *Decoder) Skipped() uint64 {
	return d.skipped
}

// Buffered returns the count of bytes held for the next Feed call.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Feed appends chunk to the internal buffer and returns every frame it
// completes. A framing error (zero or oversized length field) discards the
// offending frame start and rescans from the next magic byte; frames decoded
// before and after the fault are still returned, alongside the first error.
func (d *Decoder) Feed(chunk []byte) ([]Frame, error) {
	d.buf = append(d.buf, chunk...)

	var (
		frames   []Frame
		firstErr error
	)

	for {
		start := bytes.IndexByte(d.buf, Magic)
		if start < 0 {
			d.skipped += uint64(len(d.buf))
			d.buf = nil
			break
		}
		if start > 0 {
			d.skipped += uint64(start)
			d.buf = d.buf[start:]
		}

		// d.buf[0] is now the magic byte.
		if len(d.buf) < 2 {
			break
		}

		length := int(d.buf[1])
		headerLen := 2
		if d.buf[1] == lengthEscape {
			if len(d.buf) < 4 {
				break
			}
			length = int(binary.BigEndian.Uint16(d.buf[2:4]))
			headerLen = 4
		}

		if length == 0 {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %v", ErrFraming, ErrZeroLength)
			}
			d.resync()
			continue
		}
		if length > d.limits.MaxFrameLen {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: length %d exceeds %d", ErrFraming, length, d.limits.MaxFrameLen)
			}
			d.resync()
			continue
		}

		if len(d.buf) < headerLen+length {
			break
		}

		body := d.buf[headerLen : headerLen+length]
		f, ok := parseBody(body)
		if !ok {
			// Correlated type with no room for its ticket byte.
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: truncated correlated message", ErrFraming)
			}
			d.resync()
			continue
		}
		frames = append(frames, f)
		d.buf = d.buf[headerLen+length:]
	}

	return frames, firstErr
}

// resync drops the current magic byte so the scan resumes at the next one.
func (d *Decoder) resync() {
	d.skipped++
	d.buf = d.buf[1:]
}

func parseBody(body []byte) (Frame, bool) {
	mt := protocol.MessageType(body[0])
	rest := body[1:]

	var ticket byte
	if mt.Correlated() {
		if len(rest) == 0 {
			return Frame{}, false
		}
		ticket = rest[0]
		rest = rest[1:]
	}

	// Copy out of the feed buffer; it is reused across calls.
	payload := make([]byte, len(rest))
	copy(payload, rest)
	return Frame{Type: mt, Ticket: ticket, Payload: payload}, true
}
