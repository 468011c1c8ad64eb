// Package frame decodes raw capture formats into image.Image values and
// provides the RGBA pixel buffer type handed to sampling callbacks.
package frame

import "image"

// Decoder converts a single raw frame into an image.
type Decoder interface {
	Decode(frame []byte, width, height int) (image.Image, func(), error)
}

type decoderFunc func(frame []byte, width, height int) (image.Image, func(), error)

func (f decoderFunc) Decode(frame []byte, width, height int) (image.Image, func(), error) {
	return f(frame, width, height)
}
