package frame

import (
	"image"
	"image/draw"
)

// Buffer is a single RGBA sample of a video frame, width × height × 4
// bytes. A fresh Buffer is produced per sample; callers may retain it.
type Buffer struct {
	Width  int
	Height int
	// Pix holds interleaved R, G, B, A bytes, row major, no padding.
	Pix []uint8
}

// NewBuffer copies img into a freshly allocated RGBA buffer sized to the
// image's bounds.
func NewBuffer(img image.Image) *Buffer {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || bounds.Min != image.Pt(0, 0) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	pix := make([]uint8, len(rgba.Pix))
	copy(pix, rgba.Pix)
	return &Buffer{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    pix,
	}
}

// Image exposes the buffer as an image.Image without copying.
func (b *Buffer) Image() image.Image {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}
