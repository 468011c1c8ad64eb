package frame

// Format identifies the pixel layout of a raw capture frame.
type Format string

const (
	// FormatYUY2 https://www.fourcc.org/pixel-format/yuv-yuy2/
	FormatYUY2 Format = "YUY2"
	// FormatNV12 https://www.fourcc.org/pixel-format/yuv-nv12/
	FormatNV12 = "NV12"
	// FormatMJPEG https://www.fourcc.org/mjpg/
	FormatMJPEG = "MJPEG"
	// FormatRGBA is 8-bit interleaved RGBA, the callback delivery format.
	FormatRGBA = "RGBA"
)

// FormatYUYV is an alias of FormatYUY2.
const FormatYUYV = FormatYUY2
