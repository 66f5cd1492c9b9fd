package display

import "image"

// PixelBuffer is a rectangular array of 24-bit RGB pixels, row-major from the
// top-left corner. The encoder borrows it read-only; callers own it and must
// size it to the target before encoding (no implicit scaling or cropping).
type PixelBuffer struct {
	Width  int
	Height int
	// Pix holds 3 bytes per pixel, R then G then B.
	Pix []uint8
}

func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// SetRGB writes one pixel. Out-of-bounds coordinates are ignored.
func (p *PixelBuffer) SetRGB(x, y int, r, g, b uint8) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return
	}
	i := (y*p.Width + x) * 3
	p.Pix[i+0] = r
	p.Pix[i+1] = g
	p.Pix[i+2] = b
}

// RGB reads one pixel.
func (p *PixelBuffer) RGB(x, y int) (r, g, b uint8) {
	i := (y*p.Width + x) * 3
	return p.Pix[i+0], p.Pix[i+1], p.Pix[i+2]
}

// FromImage rasterizes an already-sized image into a PixelBuffer. Alpha is
// discarded; rasterization and scaling belong to the caller's image pipeline.
func FromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	p := NewPixelBuffer(bounds.Dx(), bounds.Dy())
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			p.SetRGB(x, y, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return p
}
