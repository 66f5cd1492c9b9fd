package display

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/deckctl/internal/protocol"
)

func TestPackRGB565Vectors(t *testing.T) {
	cases := []struct {
		name    string
		r, g, b uint8
		want    uint16
	}{
		{"black", 0x00, 0x00, 0x00, 0x0000},
		{"red", 0xFF, 0x00, 0x00, 0xF800},
		{"green", 0x00, 0xFF, 0x00, 0x07E0},
		{"blue", 0x00, 0x00, 0xFF, 0x001F},
		{"white", 0xFF, 0xFF, 0xFF, 0xFFFF},
		{"truncation", 0x07, 0x03, 0x07, 0x0000},
	}
	for _, tc := range cases {
		if got := PackRGB565(tc.r, tc.g, tc.b); got != tc.want {
			t.Fatalf("%s: got 0x%04X, want 0x%04X", tc.name, got, tc.want)
		}
	}
}

func TestPixelBytesAreLittleEndianRowMajor(t *testing.T) {
	buf := NewPixelBuffer(2, 2)
	buf.SetRGB(0, 0, 0xFF, 0x00, 0x00) // red
	buf.SetRGB(1, 0, 0x00, 0xFF, 0x00) // green
	buf.SetRGB(0, 1, 0x00, 0x00, 0xFF) // blue
	buf.SetRGB(1, 1, 0xFF, 0xFF, 0xFF) // white

	packed := packBuffer(buf)
	want := []byte{
		0x00, 0xF8, // red, low byte first
		0xE0, 0x07, // green
		0x1F, 0x00, // blue
		0xFF, 0xFF, // white
	}
	if len(packed) != len(want) {
		t.Fatalf("packed length: got %d, want %d", len(packed), len(want))
	}
	for i := range want {
		if packed[i] != want[i] {
			t.Fatalf("byte %d: got 0x%02X, want 0x%02X", i, packed[i], want[i])
		}
	}
}

func TestEncodeUpdateDimensionMismatch(t *testing.T) {
	target, err := Tile(0)
	if err != nil {
		t.Fatalf("tile: %v", err)
	}
	frames, err := EncodeUpdate(target, NewPixelBuffer(10, 10))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if frames != nil {
		t.Fatalf("mismatch must produce no frames, got %d", len(frames))
	}
}

func TestEncodeUpdateChunkingAndCommit(t *testing.T) {
	target, err := Tile(3)
	if err != nil {
		t.Fatalf("tile: %v", err)
	}
	buf := NewPixelBuffer(target.Width, target.Height)

	frames, err := EncodeUpdate(target, buf)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	encodedSize := target.Width * target.Height * 2
	wantChunks := (encodedSize + MaxChunkData - 1) / MaxChunkData
	if len(frames) != wantChunks+1 {
		t.Fatalf("frame count: got %d, want %d chunks + 1 commit", len(frames), wantChunks)
	}

	var carried int
	for seq, f := range frames[:wantChunks] {
		if f.Type != protocol.MsgWriteChunk {
			t.Fatalf("chunk %d: wrong type %s", seq, f.Type)
		}
		if f.Payload[0] != target.ID {
			t.Fatalf("chunk %d: target id 0x%02X", seq, f.Payload[0])
		}
		if got := binary.BigEndian.Uint16(f.Payload[1:3]); got != uint16(seq) {
			t.Fatalf("chunk %d: sequence marker %d", seq, got)
		}
		data := len(f.Payload) - chunkHeaderLen
		if data > MaxChunkData {
			t.Fatalf("chunk %d: %d bytes exceeds MaxChunkData", seq, data)
		}
		carried += data
	}
	if carried != encodedSize {
		t.Fatalf("chunks carry %d bytes, want %d", carried, encodedSize)
	}

	commit := frames[len(frames)-1]
	if commit.Type != protocol.MsgCommit {
		t.Fatalf("trailing frame should be commit, got %s", commit.Type)
	}
	if len(commit.Payload) != 1 || commit.Payload[0] != target.ID {
		t.Fatalf("commit payload: %x", commit.Payload)
	}
}

func TestTargetTable(t *testing.T) {
	if _, err := Tile(12); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("tile 12 should be unknown")
	}
	if _, err := Tile(-1); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("tile -1 should be unknown")
	}
	all := Targets()
	if len(all) != 15 {
		t.Fatalf("target count: got %d, want 15", len(all))
	}
	ids := make(map[byte]bool)
	for _, target := range all {
		if ids[target.ID] {
			t.Fatalf("duplicate target id 0x%02X", target.ID)
		}
		ids[target.ID] = true
	}
	if Center.Width != 360 || Center.Height != 270 {
		t.Fatalf("center dimensions: %dx%d", Center.Width, Center.Height)
	}
}
