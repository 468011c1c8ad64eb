// Package videotest provides a synthetic camera driver for testing.
package videotest

import (
	"context"
	"image"
	"io"
	"math/rand"
	"time"

	"github.com/cameye/cameye/pkg/driver"
	"github.com/cameye/cameye/pkg/frame"
	"github.com/cameye/cameye/pkg/io/video"
	"github.com/cameye/cameye/pkg/prop"
)

func init() {
	driver.GetManager().Register(
		New(),
		driver.Info{Label: "VideoTest", DeviceType: driver.Synthetic},
	)
}

// Register adds a synthetic source to m posing as a camera. Tests use it
// where a physical device would normally be enumerated.
func Register(m *driver.Manager, label string) error {
	return m.Register(New(), driver.Info{
		Label:      label,
		DeviceType: driver.Camera,
		Facing:     prop.FacingEnvironment,
	})
}

type source struct {
	closed <-chan struct{}
	cancel func()
	tick   *time.Ticker
}

// New returns a synthetic video adapter producing a color-bar pattern
// with a noise strip, paced at the requested frame rate.
func New() driver.Adapter {
	return &source{}
}

func (s *source) Open() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.closed = ctx.Done()
	s.cancel = cancel
	return nil
}

func (s *source) Close() error {
	s.cancel()
	if s.tick != nil {
		s.tick.Stop()
	}
	return nil
}

func (s *source) VideoRecord(p prop.Media) (video.Reader, error) {
	if p.Width == 0 {
		p.Width = 640
	}
	if p.Height == 0 {
		p.Height = 480
	}
	if p.FrameRate == 0 {
		p.FrameRate = 30
	}

	colors := [][3]uint8{
		{235, 128, 128},
		{210, 16, 146},
		{170, 166, 16},
		{145, 54, 34},
		{107, 202, 222},
		{82, 90, 240},
		{41, 240, 110},
	}

	noiseTop := p.Height * 3 / 4
	base := image.NewYCbCr(image.Rect(0, 0, p.Width, p.Height), image.YCbCrSubsampleRatio422)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			yi := base.YOffset(x, y)
			ci := base.COffset(x, y)
			if y < noiseTop {
				c := colors[x*len(colors)/p.Width]
				base.Y[yi] = uint8(uint16(c[0]) * 75 / 100)
				base.Cb[ci] = c[1]
				base.Cr[ci] = c[2]
			} else {
				// Gray gradation below the bars.
				base.Y[yi] = uint8(x * 255 / p.Width)
				base.Cb[ci] = 128
				base.Cr[ci] = 128
			}
		}
	}

	random := rand.New(rand.NewSource(0))
	tick := time.NewTicker(time.Duration(float32(time.Second) / p.FrameRate))
	s.tick = tick
	closed := s.closed

	out := image.NewYCbCr(base.Rect, base.SubsampleRatio)

	r := video.ReaderFunc(func() (image.Image, func(), error) {
		select {
		case <-closed:
			// The driver was closed; unblock the reader for good.
			return nil, func() {}, io.EOF
		case <-tick.C:
		}

		copy(out.Y, base.Y)
		copy(out.Cb, base.Cb)
		copy(out.Cr, base.Cr)
		// Animate a noise strip so consecutive frames differ.
		for y := noiseTop; y < p.Height; y++ {
			row := out.YStride * y
			for x := p.Width * 5 / 7; x < p.Width; x++ {
				out.Y[row+x] = uint8(random.Int31n(2) * 255)
			}
		}
		return out, func() {}, nil
	})

	return r, nil
}

func (s *source) Properties() []prop.Media {
	return []prop.Media{
		{
			Video: prop.Video{
				Width:       640,
				Height:      480,
				FrameRate:   30,
				FrameFormat: frame.FormatYUYV,
			},
		},
	}
}
