package video

import (
	"image"
	"sync"
)

// Latest is a single-slot mailbox between a capture reader and a sampling
// loop. A pump goroutine reads from the source as fast as it produces and
// overwrites the slot; Poll returns the newest unread frame without
// blocking. Frames are dropped, never queued, so a slow consumer sees
// fresh data instead of a backlog.
type Latest struct {
	mu      sync.Mutex
	img     image.Image
	fresh   bool
	started bool
	err     error
	done    chan struct{}
}

// NewLatest starts pumping source into the mailbox. Close stops the pump.
func NewLatest(source Reader) *Latest {
	l := &Latest{done: make(chan struct{})}
	go l.pump(source)
	return l
}

func (l *Latest) pump(source Reader) {
	for {
		select {
		case <-l.done:
			return
		default:
		}

		img, release, err := source.Read()
		l.mu.Lock()
		if err != nil {
			l.err = err
			l.mu.Unlock()
			return
		}
		// The slot owns a private copy so release can return immediately.
		l.img = cloneImage(img)
		l.fresh = true
		l.started = true
		l.mu.Unlock()
		release()
	}
}

// Poll returns the newest frame if one arrived since the previous Poll.
// ok is false while the slot is empty or stale. err reports a terminated
// source; once non-nil no further frames will arrive.
func (l *Latest) Poll() (img image.Image, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return nil, false, l.err
	}
	if !l.fresh {
		return nil, false, nil
	}
	l.fresh = false
	return l.img, true, nil
}

// Started reports whether the source has produced at least one frame,
// the equivalent of a playback-started signal.
func (l *Latest) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started
}

// Close stops the pump. Idempotent.
func (l *Latest) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

func cloneImage(img image.Image) image.Image {
	switch v := img.(type) {
	case *image.RGBA:
		out := *v
		out.Pix = append([]uint8(nil), v.Pix...)
		return &out
	case *image.YCbCr:
		out := *v
		out.Y = append([]uint8(nil), v.Y...)
		out.Cb = append([]uint8(nil), v.Cb...)
		out.Cr = append([]uint8(nil), v.Cr...)
		return &out
	default:
		return img
	}
}
