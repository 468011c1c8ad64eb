// Package screen registers display-capture sources. They enumerate as
// video devices of type Screen, which the camera availability check
// filters out; they exist for capture tooling and tests.
package screen

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/kbinani/screenshot"

	"github.com/cameye/cameye/pkg/driver"
	"github.com/cameye/cameye/pkg/frame"
	"github.com/cameye/cameye/pkg/io/video"
	"github.com/cameye/cameye/pkg/prop"
)

type display struct {
	num    int
	closed <-chan struct{}
	cancel func()
	tick   *time.Ticker
}

func init() {
	for i := 0; i < screenshot.NumActiveDisplays(); i++ {
		driver.GetManager().Register(
			&display{num: i},
			driver.Info{
				Label:      screenshot.GetDisplayBounds(i).String(),
				DeviceType: driver.Screen,
			},
		)
	}
}

func (d *display) Open() error {
	ctx, cancel := context.WithCancel(context.Background())
	d.closed = ctx.Done()
	d.cancel = cancel
	return nil
}

func (d *display) Close() error {
	d.cancel()
	if d.tick != nil {
		d.tick.Stop()
	}
	return nil
}

func (d *display) VideoRecord(p prop.Media) (video.Reader, error) {
	if p.FrameRate == 0 {
		p.FrameRate = 10
	}

	bounds := screenshot.GetDisplayBounds(d.num)
	tick := time.NewTicker(time.Duration(float32(time.Second) / p.FrameRate))
	d.tick = tick
	closed := d.closed

	r := video.ReaderFunc(func() (image.Image, func(), error) {
		select {
		case <-closed:
			return nil, func() {}, io.EOF
		case <-tick.C:
		}

		img, err := screenshot.CaptureRect(bounds)
		if err != nil {
			return nil, func() {}, err
		}
		return img, func() {}, nil
	})

	return r, nil
}

func (d *display) Properties() []prop.Media {
	bounds := screenshot.GetDisplayBounds(d.num)
	return []prop.Media{
		{
			Video: prop.Video{
				Width:       bounds.Dx(),
				Height:      bounds.Dy(),
				FrameFormat: frame.FormatRGBA,
			},
		},
	}
}
