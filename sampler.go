package cameye

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pion/logging"

	"github.com/cameye/cameye/pkg/frame"
	"github.com/cameye/cameye/pkg/io/video"
)

// FrameCallback receives one fresh RGBA buffer per delivered sample. It
// is never invoked concurrently, and never after the sampling handle's
// Stop has returned. Buffer dimensions track the source's native
// resolution and may change between invocations.
//
// Cancellation synchronizes with delivery, so the callback must not call
// the handle's Stop or Stopped itself; cancel from another goroutine or
// after the callback returns.
type FrameCallback func(*frame.Buffer)

// Sampling is the cancellation handle returned by BeginSampling.
type Sampling struct {
	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// newSampling starts a loop that ticks at interval and, once the source
// has produced its first frame, delivers the newest frame per tick. A
// tick with no fresh frame delivers nothing but the loop keeps ticking.
func newSampling(clk clock.Clock, interval time.Duration, latest *video.Latest, onFrame FrameCallback, log logging.LeveledLogger) *Sampling {
	s := &Sampling{done: make(chan struct{})}

	go func() {
		ticker := clk.Ticker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}

			img, ok, err := latest.Poll()
			if err != nil {
				log.Infof("sampling loop ended: source terminated: %v", err)
				s.mu.Lock()
				s.stopped = true
				s.mu.Unlock()
				return
			}
			if !ok {
				continue
			}

			// Deliver under the lock so Stop returning implies no
			// further callback can run.
			s.mu.Lock()
			if s.stopped {
				s.mu.Unlock()
				return
			}
			onFrame(frame.NewBuffer(img))
			s.mu.Unlock()
		}
	}()

	return s
}

// newInertSampling returns an already-cancelled handle, used when the
// preconditions to sample are not met.
func newInertSampling() *Sampling {
	s := &Sampling{done: make(chan struct{})}
	s.stopped = true
	close(s.done)
	return s
}

// Stop cancels the loop. Once it returns no further callback will be
// invoked. Idempotent; safe on an already-cancelled handle.
func (s *Sampling) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.done)
}

// Stopped reports whether the handle has been cancelled.
func (s *Sampling) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
