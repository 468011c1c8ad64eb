package camera

import (
	"context"
	"errors"
	"image"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/blackjack/webcam"
	"golang.org/x/sys/unix"

	"github.com/cameye/cameye/pkg/driver"
	"github.com/cameye/cameye/pkg/driver/availability"
	"github.com/cameye/cameye/pkg/frame"
	"github.com/cameye/cameye/pkg/io/video"
	"github.com/cameye/cameye/pkg/prop"
)

const maxEmptyFrameCount = 5

// V4L2 fourcc codes for the formats we can decode.
const (
	pixFmtYUYV  webcam.PixelFormat = 0x56595559 // 'YUYV'
	pixFmtNV12  webcam.PixelFormat = 0x3231564e // 'NV12'
	pixFmtMJPEG webcam.PixelFormat = 0x47504a4d // 'MJPG'
)

var (
	errReadTimeout = errors.New("read timeout")
	errEmptyFrame  = errors.New("empty frame")
)

var formats = map[webcam.PixelFormat]frame.Format{
	pixFmtYUYV:  frame.FormatYUYV,
	pixFmtNV12:  frame.FormatNV12,
	pixFmtMJPEG: frame.FormatMJPEG,
}

var reversedFormats = func() map[frame.Format]webcam.PixelFormat {
	m := make(map[frame.Format]webcam.PixelFormat)
	for k, v := range formats {
		m[v] = k
	}
	return m
}()

// camera implements driver.Adapter on top of V4L2.
// Reference: https://linuxtv.org/downloads/v4l-dvb-apis/uapi/v4l/videodev.html
type camera struct {
	path   string
	cam    *webcam.Webcam
	mutex  sync.Mutex
	cancel func()
}

func init() {
	searchPath := "/dev/v4l/by-path/"
	devices, err := os.ReadDir(searchPath)
	if err != nil {
		// No v4l device.
		return
	}
	for _, device := range devices {
		driver.GetManager().Register(
			newCamera(searchPath+device.Name()),
			driver.Info{
				Label:      device.Name(),
				DeviceType: driver.Camera,
			},
		)
	}
}

func newCamera(path string) *camera {
	return &camera{path: path}
}

// Open maps open(2) failures onto the availability taxonomy so the
// controller can distinguish a consent problem from a busy device.
func (c *camera) Open() error {
	cam, err := webcam.Open(c.path)
	if err != nil {
		switch {
		case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
			return availability.ErrDenied
		case errors.Is(err, unix.EBUSY):
			return availability.ErrBusy
		case errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ENODEV):
			return availability.ErrNoDevice
		}
		return err
	}

	c.cam = cam
	return nil
}

func (c *camera) Close() error {
	if c.cam == nil {
		return nil
	}

	if c.cancel != nil {
		// Let the reader know that the caller has closed the camera.
		c.cancel()
		// Wait until the reader is done with the mmap buffer.
		c.mutex.Lock()
		defer c.mutex.Unlock()

		c.cam.StopStreaming()
		c.cancel = nil
	}
	c.cam.Close()
	c.cam = nil
	return nil
}

func (c *camera) VideoRecord(p prop.Media) (video.Reader, error) {
	decoder, err := frame.NewDecoder(p.FrameFormat)
	if err != nil {
		return nil, err
	}

	pf := reversedFormats[p.FrameFormat]
	_, _, _, err = c.cam.SetImageFormat(pf, uint32(p.Width), uint32(p.Height))
	if err != nil {
		return nil, err
	}

	if err := c.cam.StartStreaming(); err != nil {
		return nil, err
	}

	cam := c.cam
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	var buf []byte
	r := video.ReaderFunc(func() (image.Image, func(), error) {
		// Lock to avoid touching the mmap buffer after StopStreaming().
		c.mutex.Lock()
		defer c.mutex.Unlock()

		for i := 0; i < maxEmptyFrameCount; i++ {
			if ctx.Err() != nil {
				return nil, func() {}, io.EOF
			}

			err := cam.WaitForFrame(5) // seconds
			switch err.(type) {
			case nil:
			case *webcam.Timeout:
				return nil, func() {}, errReadTimeout
			default:
				// Camera has been stopped.
				return nil, func() {}, err
			}

			b, err := cam.ReadFrame()
			if err != nil {
				return nil, func() {}, err
			}
			if len(b) == 0 {
				continue
			}

			if len(b) > len(buf) {
				buf = make([]byte, len(b))
			}
			// Copy out of the mmap region before the kernel reuses it.
			n := copy(buf, b)
			return decoder.Decode(buf[:n], p.Width, p.Height)
		}
		return nil, func() {}, errEmptyFrame
	})

	return r, nil
}

func (c *camera) Properties() []prop.Media {
	properties := make([]prop.Media, 0)
	for format := range c.cam.GetSupportedFormats() {
		name, ok := formats[format]
		if !ok {
			continue
		}
		for _, frameSize := range c.cam.GetSupportedFrameSizes(format) {
			properties = append(properties, prop.Media{
				Video: prop.Video{
					Width:       int(frameSize.MaxWidth),
					Height:      int(frameSize.MaxHeight),
					FrameFormat: name,
				},
			})
		}
	}
	return properties
}
