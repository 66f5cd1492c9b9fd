// Package display converts host pixel buffers into the deck's native pixel
// encoding and the chunked frame sequence that carries a screen update.
package display

import (
	"errors"
	"fmt"
)

var (
	ErrDimensionMismatch = errors.New("display: pixel buffer does not match target dimensions")
	ErrUnknownTarget     = errors.New("display: unknown target")
)

// Target identifies one addressable display region with its fixed pixel
// dimensions. Ids and dimensions are device constants.
type Target struct {
	ID     byte
	Name   string
	Width  int
	Height int
}

const (
	TileCols = 4
	TileRows = 3

	tileSize    = 90
	stripWidth  = 60
	stripHeight = 270
)

var (
	// LeftStrip and RightStrip are the rotary-knob strips flanking the tiles.
	LeftStrip  = Target{ID: 0x20, Name: "left", Width: stripWidth, Height: stripHeight}
	RightStrip = Target{ID: 0x21, Name: "right", Width: stripWidth, Height: stripHeight}

	// Center addresses the whole 4x3 tile grid as one surface.
	Center = Target{ID: 0x30, Name: "center", Width: TileCols * tileSize, Height: TileRows * tileSize}
)

// Tile returns the target for one touch tile, indexed 0..11 left-to-right,
// top-to-bottom.
func Tile(idx int) (Target, error) {
	if idx < 0 || idx >= TileCols*TileRows {
		return Target{}, fmt.Errorf("%w: tile %d", ErrUnknownTarget, idx)
	}
	return Target{
		ID:     byte(idx),
		Name:   fmt.Sprintf("tile%d", idx),
		Width:  tileSize,
		Height: tileSize,
	}, nil
}

// Targets lists every addressable region on the device.
func Targets() []Target {
	out := make([]Target, 0, TileCols*TileRows+3)
	for i := 0; i < TileCols*TileRows; i++ {
		t, _ := Tile(i)
		out = append(out, t)
	}
	return append(out, LeftStrip, RightStrip, Center)
}
