package cameye

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cameye/cameye/pkg/driver"
	"github.com/cameye/cameye/pkg/io/video"
	"github.com/cameye/cameye/pkg/prop"
)

// Track is one capture channel within a stream. Stopping it releases the
// underlying device.
type Track struct {
	id     string
	d      driver.Driver
	latest *video.Latest
	actual prop.Media

	mu      sync.Mutex
	stopped bool
}

func newTrack(d driver.Driver, p prop.Media, transform video.TransformFunc) (*Track, error) {
	r, err := d.VideoRecord(p)
	if err != nil {
		return nil, err
	}
	if transform != nil {
		r = transform(r)
	}

	return &Track{
		id:     uuid.NewString(),
		d:      d,
		latest: video.NewLatest(r),
		actual: p,
	}, nil
}

// ID returns the track's unique ID.
func (t *Track) ID() string {
	return t.id
}

// Setting returns the negotiated capture setting.
func (t *Track) Setting() prop.Media {
	return t.actual
}

// Stop releases the device. Idempotent.
func (t *Track) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.latest.Close()
	t.d.Close()
}

// Stopped reports whether Stop has been called.
func (t *Track) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Stream is a live camera media stream. It is exclusively owned by the
// Controller; at most one exists at any time.
type Stream struct {
	id    string
	video *Track
}

func newStream(video *Track) *Stream {
	return &Stream{
		id:    uuid.NewString(),
		video: video,
	}
}

// ID returns the stream's unique ID.
func (s *Stream) ID() string {
	return s.id
}

// GetVideoTracks returns the stream's video tracks.
func (s *Stream) GetVideoTracks() []*Track {
	return []*Track{s.video}
}

// GetTracks returns all tracks.
func (s *Stream) GetTracks() []*Track {
	return s.GetVideoTracks()
}

// Stop stops every track. Idempotent.
func (s *Stream) Stop() {
	for _, t := range s.GetTracks() {
		t.Stop()
	}
}
