// Package cameye negotiates camera access and delivers decoded frames to
// a registered callback. It owns device discovery, permission
// reconciliation, exclusive stream lifecycle and the frame-sampling loop;
// classification lives in pkg/classify and never sees platform errors.
package cameye

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pion/logging"

	intlog "github.com/cameye/cameye/internal/logging"
	"github.com/cameye/cameye/pkg/driver"
	"github.com/cameye/cameye/pkg/driver/availability"
	"github.com/cameye/cameye/pkg/io/video"
	"github.com/cameye/cameye/pkg/permission"
	"github.com/cameye/cameye/pkg/prop"
)

var errNotFound = errors.New("failed to find a camera that fits the constraints")

// defaultInterval paces the sampling loop at a typical display refresh.
const defaultInterval = time.Second / 60

// DefaultConstraints prefer the environment-facing camera at 1280×720.
// They are preferences, not requirements: selection degrades to whatever
// camera and resolution fit best.
var DefaultConstraints = prop.Media{
	Video: prop.Video{
		Width:  1280,
		Height: 720,
		Facing: prop.FacingEnvironment,
	},
}

// Enumerator lists the current input devices. Swappable because some
// platforms' listings can fail, and tests inject inventories.
type Enumerator func() ([]DeviceInfo, error)

// Controller negotiates camera access and exposes enough state for a UI
// to render permission and availability guidance. All platform failures
// resolve into (permission state, error state); none escape unclassified.
type Controller struct {
	log         logging.LeveledLogger
	manager     *driver.Manager
	enumerate   Enumerator
	query       permission.Query
	store       *permission.Store
	clk         clock.Clock
	interval    time.Duration
	constraints prop.Media
	transform   video.TransformFunc

	mu        sync.Mutex
	available bool
	permState permission.State
	lastErr   string
	stream    *Stream
}

// Option configures a Controller.
type Option func(*Controller)

// WithManager uses a private driver registry instead of the process one.
func WithManager(m *driver.Manager) Option {
	return func(c *Controller) { c.manager = m }
}

// WithEnumerator overrides device listing.
func WithEnumerator(e Enumerator) Option {
	return func(c *Controller) { c.enumerate = e }
}

// WithPermissionQuery wires the live permission collaborator. Absent (or
// returning permission.ErrUnsupported), state is inferred from
// acquisition outcomes.
func WithPermissionQuery(q permission.Query) Option {
	return func(c *Controller) { c.query = q }
}

// WithStore overrides where the advisory permission hint persists.
func WithStore(s *permission.Store) Option {
	return func(c *Controller) { c.store = s }
}

// WithClock injects the pacing clock for the sampling loop.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) { c.clk = clk }
}

// WithSampleInterval overrides the tick interval of the sampling loop.
func WithSampleInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithConstraints overrides the acquisition preferences.
func WithConstraints(p prop.Media) Option {
	return func(c *Controller) { c.constraints = p }
}

// WithVideoTransformers transforms the video coming from the driver
// before it reaches the sampling loop. So, basically it'll look like
// following: driver -> VideoTransform -> sampler.
func WithVideoTransformers(transformFuncs ...video.TransformFunc) Option {
	return func(c *Controller) { c.transform = video.Merge(transformFuncs...) }
}

// New creates a Controller in the prompt state. Call CheckAvailability
// to establish the device inventory and reconcile permission state.
func New(opts ...Option) *Controller {
	c := &Controller{
		log:         intlog.NewLogger("cameye"),
		manager:     driver.GetManager(),
		clk:         clock.New(),
		interval:    defaultInterval,
		constraints: DefaultConstraints,
		permState:   permission.StatePrompt,
	}
	for _, o := range opts {
		o(c)
	}

	if c.enumerate == nil {
		c.enumerate = c.enumerateFromManager
	}
	if c.store == nil {
		store, err := permission.NewStore()
		if err != nil {
			// The hint is advisory; running without one is fine.
			c.log.Warnf("permission hint store unavailable: %v", err)
		} else {
			c.store = store
		}
	}

	return c
}

func (c *Controller) enumerateFromManager() ([]DeviceInfo, error) {
	drivers := c.manager.Query(func(driver.Driver) bool { return true })
	info := make([]DeviceInfo, 0, len(drivers))
	for _, d := range drivers {
		kind := OtherInput
		if d.Info().DeviceType == driver.Camera {
			kind = VideoInput
		}
		info = append(info, DeviceInfo{
			DeviceID:   d.ID(),
			Kind:       kind,
			Label:      d.Info().Label,
			DeviceType: d.Info().DeviceType,
		})
	}
	return info, nil
}

// EnumerateDevices returns a point-in-time snapshot of the device
// inventory.
func (c *Controller) EnumerateDevices() ([]DeviceInfo, error) {
	return c.enumerate()
}

// CheckAvailability establishes the mount-time state: it re-derives the
// permission state from the live query, snapshots the device inventory,
// and, when permission is known or remembered granted, proceeds straight
// to RequestAccess. Availability stays false when no camera exists
// (terminal) or when enumeration itself fails.
func (c *Controller) CheckAvailability() {
	c.mu.Lock()

	c.permState = permission.Reconcile(c.query)

	devices, err := c.enumerate()
	if err != nil {
		c.log.Warnf("device enumeration failed: %v", err)
		c.available = false
		c.lastErr = ErrEnumerationFailed.Error()
		c.mu.Unlock()
		return
	}

	cameras := 0
	for _, d := range devices {
		if d.Kind == VideoInput {
			cameras++
		}
	}
	if cameras == 0 {
		c.available = false
		c.lastErr = ErrNoDeviceFound.Error()
		c.mu.Unlock()
		return
	}

	c.available = true
	acquire := c.permState == permission.StateGranted
	if !acquire && c.permState == permission.StatePrompt && c.store != nil {
		// A remembered grant only schedules the acquisition; the
		// acquisition's outcome sets the state, never the hint itself.
		hint, ok := c.store.Load()
		acquire = ok && hint == permission.StateGranted
	}
	c.mu.Unlock()

	if acquire {
		c.RequestAccess()
	}
}

// RequestAccess tears down any prior stream and acquires a new one. On
// success the stream becomes the Active Stream, permission state becomes
// granted, the error state clears and "granted" is persisted best
// effort. A consent-denied failure becomes the denied state (persisted);
// any other failure sets a generic error message and leaves the
// permission state unchanged. The returned error restates the outcome
// for callers that want it; state is authoritative.
func (c *Controller) RequestAccess() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Mandatory before (re)acquiring: no orphaned stream may outlive its
	// owner, and holding the old device open can block the new open.
	c.teardownLocked()

	d, setting, err := c.selectBest(c.constraints)
	if err == nil {
		var track *Track
		track, err = newTrack(d, setting, c.transform)
		if err != nil {
			d.Close()
		} else {
			c.stream = newStream(track)
			c.permState = permission.StateGranted
			c.lastErr = ""
			c.persist(permission.StateGranted)
			return nil
		}
	}

	if errors.Is(err, availability.ErrDenied) {
		c.permState = permission.StateDenied
		c.lastErr = ErrPermissionDenied.Error()
		c.persist(permission.StateDenied)
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	c.log.Warnf("camera acquisition failed: %v", err)
	c.lastErr = ErrAcquisitionFailed.Error()
	return fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
}

// selectBest implements the SelectSettings fitness walk over every
// camera driver's advertised settings, minus the driver's priority. The
// chosen driver is left open; every other driver opened along the way is
// closed again. Caller holds c.mu.
func (c *Controller) selectBest(constraints prop.Media) (driver.Driver, prop.Media, error) {
	filter := driver.FilterVideoInput()
	if constraints.DeviceID != "" {
		filter = driver.FilterAnd(filter, driver.FilterID(constraints.DeviceID))
	}

	var best driver.Driver
	var bestProp prop.Media
	minDist := math.Inf(1)
	var openErr error
	opened := make([]driver.Driver, 0)

	for _, d := range c.manager.Query(filter) {
		if d.Status() == driver.StateClosed {
			if err := d.Open(); err != nil {
				// Remember the most telling failure: denied beats busy
				// beats anything else.
				if openErr == nil || errors.Is(err, availability.ErrDenied) {
					openErr = err
				}
				continue
			}
			opened = append(opened, d)
		}

		facing := d.Info().Facing
		for _, p := range d.Properties() {
			if p.Facing == "" {
				p.Facing = facing
			}
			dist := constraints.FitnessDistance(p) - float64(d.Info().Priority)
			if dist < minDist {
				minDist = dist
				best = d
				bestProp = p
			}
		}
	}

	for _, d := range opened {
		if d != best {
			d.Close()
		}
	}

	if best == nil {
		if openErr != nil {
			return nil, prop.Media{}, openErr
		}
		return nil, prop.Media{}, errNotFound
	}

	// The device's advertised setting wins; constraints only fill the
	// fields the device left open. This is what makes the ideal
	// resolution a preference rather than a requirement.
	bestProp.Merge(constraints)
	return best, bestProp, nil
}

// persist writes the hint best effort. A missed write is logged, never
// surfaced; the hint is advisory.
func (c *Controller) persist(state permission.State) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(state); err != nil {
		c.log.Warnf("could not persist permission hint: %v", err)
	}
}

// BeginSampling starts the frame-sampling loop, delivering one fresh
// RGBA buffer per tick to onFrame once the source has started producing
// frames. It is a no-op (returning an already-cancelled handle) unless a
// camera is available, permission is granted and a stream is live.
func (c *Controller) BeginSampling(onFrame FrameCallback) *Sampling {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.available || c.permState != permission.StateGranted || c.stream == nil {
		return newInertSampling()
	}

	track := c.stream.video
	return newSampling(c.clk, c.interval, track.latest, onFrame, c.log)
}

// EndSampling cancels the loop behind handle. Idempotent; safe on an
// already-cancelled handle.
func (c *Controller) EndSampling(handle *Sampling) {
	if handle != nil {
		handle.Stop()
	}
}

// Teardown stops all tracks of the Active Stream and clears the
// reference. Idempotent.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

func (c *Controller) teardownLocked() {
	if c.stream == nil {
		return
	}
	c.stream.Stop()
	c.stream = nil
}

// Available reports whether at least one camera was enumerated.
func (c *Controller) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

// PermissionState returns the current permission state.
func (c *Controller) PermissionState() permission.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permState
}

// LastError returns the human-readable message of the last failure, or
// "" after successful recovery.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ActiveStream returns the live stream, or nil. The stream remains
// exclusively owned by the controller.
func (c *Controller) ActiveStream() *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}
