package classify

import (
	"image"

	"golang.org/x/image/draw"
)

// Fit scales src to the model's input size. Most classification models
// take a fixed square input, so aspect ratio is not preserved.
func Fit(src image.Image, width, height int) *image.RGBA {
	bounds := src.Bounds()
	if rgba, ok := src.(*image.RGBA); ok && bounds.Dx() == width && bounds.Dy() == height {
		return rgba
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst
}
