package driver

import (
	"github.com/cameye/cameye/pkg/io/video"
	"github.com/cameye/cameye/pkg/prop"
)

// adapterWrapper enforces the closed → opened → running lifecycle around
// a backend adapter.
type adapterWrapper struct {
	Adapter
	id    string
	info  Info
	state State
}

func (w *adapterWrapper) ID() string {
	return w.id
}

func (w *adapterWrapper) Info() Info {
	return w.info
}

func (w *adapterWrapper) Status() State {
	return w.state
}

func (w *adapterWrapper) Open() error {
	return w.state.Update(StateOpened, w.Adapter.Open)
}

func (w *adapterWrapper) Close() error {
	return w.state.Update(StateClosed, w.Adapter.Close)
}

func (w *adapterWrapper) VideoRecord(p prop.Media) (video.Reader, error) {
	var r video.Reader
	err := w.state.Update(StateRunning, func() error {
		var err error
		r, err = w.Adapter.VideoRecord(p)
		return err
	})
	return r, err
}

func (w *adapterWrapper) Properties() []prop.Media {
	if w.state == StateClosed {
		return nil
	}
	return w.Adapter.Properties()
}
