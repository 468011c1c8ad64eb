package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// NewDecoder returns a decoder for the given raw format.
func NewDecoder(f Format) (Decoder, error) {
	var decode decoderFunc

	switch f {
	case FormatYUY2:
		decode = decodeYUY2
	case FormatNV12:
		decode = decodeNV12
	case FormatMJPEG:
		decode = decodeMJPEG
	default:
		return nil, fmt.Errorf("%s is not supported", f)
	}

	return decode, nil
}

func decodeYUY2(frame []byte, width, height int) (image.Image, func(), error) {
	yi := width * height
	ci := yi / 2
	fi := yi + 2*ci

	if len(frame) < fi {
		return nil, func() {}, fmt.Errorf("frame length (%d) less than expected (%d)", len(frame), fi)
	}

	y := make([]byte, yi)
	cb := make([]byte, ci)
	cr := make([]byte, ci)
	for i := 0; i < ci; i++ {
		y[i*2] = frame[i*4]
		cb[i] = frame[i*4+1]
		y[i*2+1] = frame[i*4+2]
		cr[i] = frame[i*4+3]
	}

	return &image.YCbCr{
		Y:              y,
		YStride:        width,
		Cb:             cb,
		Cr:             cr,
		CStride:        width / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio422,
		Rect:           image.Rect(0, 0, width, height),
	}, func() {}, nil
}

func decodeNV12(frame []byte, width, height int) (image.Image, func(), error) {
	yi := width * height
	fi := yi + yi/2

	if len(frame) < fi {
		return nil, func() {}, fmt.Errorf("frame length (%d) less than expected (%d)", len(frame), fi)
	}

	ci := yi / 4
	cb := make([]byte, ci)
	cr := make([]byte, ci)
	for i := 0; i < ci; i++ {
		cb[i] = frame[yi+i*2]
		cr[i] = frame[yi+i*2+1]
	}

	return &image.YCbCr{
		Y:              frame[:yi],
		YStride:        width,
		Cb:             cb,
		Cr:             cr,
		CStride:        width / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, width, height),
	}, func() {}, nil
}

func decodeMJPEG(frame []byte, width, height int) (image.Image, func(), error) {
	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, func() {}, err
	}
	return img, func() {}, nil
}
