package cameye

import (
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameye/cameye/pkg/driver"
	"github.com/cameye/cameye/pkg/driver/availability"
	"github.com/cameye/cameye/pkg/frame"
	"github.com/cameye/cameye/pkg/io/video"
	"github.com/cameye/cameye/pkg/permission"
	"github.com/cameye/cameye/pkg/prop"
)

// fakeCamera is a controllable camera adapter. It produces RGBA frames
// at the negotiated size as fast as they are read, with a small pause so
// the mailbox pump doesn't spin.
type fakeCamera struct {
	mu      sync.Mutex
	openErr error
	opens   int
	closes  int
	props   []prop.Media
}

func newFakeCamera() *fakeCamera {
	return &fakeCamera{
		props: []prop.Media{
			{Video: prop.Video{Width: 640, Height: 480, FrameRate: 30}},
		},
	}
}

func (f *fakeCamera) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opens++
	return nil
}

func (f *fakeCamera) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeCamera) VideoRecord(p prop.Media) (video.Reader, error) {
	return video.ReaderFunc(func() (image.Image, func(), error) {
		time.Sleep(200 * time.Microsecond)
		return image.NewRGBA(image.Rect(0, 0, p.Width, p.Height)), func() {}, nil
	}), nil
}

func (f *fakeCamera) Properties() []prop.Media {
	return f.props
}

func (f *fakeCamera) setOpenErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = err
}

func newTestController(t *testing.T, cam *fakeCamera, opts ...Option) (*Controller, *permission.Store) {
	t.Helper()

	manager := newManager(t)
	if cam != nil {
		require.NoError(t, manager.Register(cam, driver.Info{
			Label:      "FakeCam",
			DeviceType: driver.Camera,
			Facing:     prop.FacingEnvironment,
		}))
	}

	store := permission.NewStoreAt(filepath.Join(t.TempDir(), "permission.json"))
	opts = append([]Option{
		WithManager(manager),
		WithStore(store),
		WithSampleInterval(time.Millisecond),
	}, opts...)

	c := New(opts...)
	t.Cleanup(c.Teardown)
	return c, store
}

func newManager(t *testing.T) *driver.Manager {
	t.Helper()
	return driver.NewManager()
}

func TestRequestAccessKeepsSingleStream(t *testing.T) {
	cam := newFakeCamera()
	c, _ := newTestController(t, cam)

	var streams []*Stream
	for i := 0; i < 3; i++ {
		require.NoError(t, c.RequestAccess())
		streams = append(streams, c.ActiveStream())
	}

	for _, s := range streams[:len(streams)-1] {
		for _, track := range s.GetTracks() {
			assert.True(t, track.Stopped(), "prior stream must have stopped tracks")
		}
	}

	live := streams[len(streams)-1]
	assert.Same(t, live, c.ActiveStream())
	for _, track := range live.GetTracks() {
		assert.False(t, track.Stopped())
	}

	cam.mu.Lock()
	defer cam.mu.Unlock()
	assert.Equal(t, 3, cam.opens)
	assert.Equal(t, 2, cam.closes)
}

func TestNoCameraIsTerminal(t *testing.T) {
	c, _ := newTestController(t, nil)

	c.CheckAvailability()

	assert.False(t, c.Available())
	assert.Equal(t, permission.StatePrompt, c.PermissionState(),
		"permission state must not move off its initial value")
	assert.Equal(t, ErrNoDeviceFound.Error(), c.LastError())

	delivered := 0
	handle := c.BeginSampling(func(*frame.Buffer) { delivered++ })
	assert.True(t, handle.Stopped(), "sampling must be a no-op without a camera")
	assert.Zero(t, delivered)
}

func TestNonCameraDevicesDoNotCountAsAvailable(t *testing.T) {
	manager := newManager(t)
	require.NoError(t, manager.Register(newFakeCamera(), driver.Info{
		Label:      "FakeScreen",
		DeviceType: driver.Screen,
	}))
	store := permission.NewStoreAt(filepath.Join(t.TempDir(), "permission.json"))
	c := New(WithManager(manager), WithStore(store))

	c.CheckAvailability()

	assert.False(t, c.Available())
	assert.Equal(t, ErrNoDeviceFound.Error(), c.LastError())
}

func TestEnumerationFailureLeavesUnavailable(t *testing.T) {
	cam := newFakeCamera()
	c, _ := newTestController(t, cam, WithEnumerator(func() ([]DeviceInfo, error) {
		return nil, assert.AnError
	}))

	c.CheckAvailability()

	assert.False(t, c.Available())
	assert.Equal(t, ErrEnumerationFailed.Error(), c.LastError())
	assert.Nil(t, c.ActiveStream())
}

func TestLiveQueryWinsOverPersistedHint(t *testing.T) {
	cam := newFakeCamera()
	c, store := newTestController(t, cam, WithPermissionQuery(
		permission.QueryFunc(func() (permission.State, error) {
			return permission.StateDenied, nil
		}),
	))
	require.NoError(t, store.Save(permission.StateGranted))

	c.CheckAvailability()

	assert.Equal(t, permission.StateDenied, c.PermissionState())
	assert.Nil(t, c.ActiveStream(), "denied must not acquire")
}

func TestGrantedHintAloneNeverBecomesState(t *testing.T) {
	// No live query and no camera: nothing can confirm the remembered
	// grant, so the state must stay on its initial value.
	store := permission.NewStoreAt(filepath.Join(t.TempDir(), "permission.json"))
	require.NoError(t, store.Save(permission.StateGranted))
	c := New(WithManager(newManager(t)), WithStore(store))
	t.Cleanup(c.Teardown)

	c.CheckAvailability()

	assert.False(t, c.Available())
	assert.Equal(t, permission.StatePrompt, c.PermissionState())
	assert.Equal(t, ErrNoDeviceFound.Error(), c.LastError())
}

func TestGrantedHintSchedulesAcquisition(t *testing.T) {
	cam := newFakeCamera()
	c, store := newTestController(t, cam)
	require.NoError(t, store.Save(permission.StateGranted))

	c.CheckAvailability()

	// The acquisition outcome, not the hint, set the state.
	assert.Equal(t, permission.StateGranted, c.PermissionState())
	require.NotNil(t, c.ActiveStream())
	cam.mu.Lock()
	defer cam.mu.Unlock()
	assert.Equal(t, 1, cam.opens)
}

func TestGrantedHintCorrectedByDeniedAcquisition(t *testing.T) {
	cam := newFakeCamera()
	cam.setOpenErr(availability.ErrDenied)
	c, store := newTestController(t, cam)
	require.NoError(t, store.Save(permission.StateGranted))

	c.CheckAvailability()

	assert.Equal(t, permission.StateDenied, c.PermissionState())
	assert.Nil(t, c.ActiveStream())
	hint, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, permission.StateDenied, hint, "the stale hint must be overwritten")
}

func TestDeniedHintDoesNotAcquireOrMoveState(t *testing.T) {
	cam := newFakeCamera()
	c, store := newTestController(t, cam)
	require.NoError(t, store.Save(permission.StateDenied))

	c.CheckAvailability()

	assert.True(t, c.Available())
	assert.Equal(t, permission.StatePrompt, c.PermissionState())
	assert.Nil(t, c.ActiveStream())
}

func TestGrantedRoundTripAutoStartsSampling(t *testing.T) {
	cam := newFakeCamera()
	c, store := newTestController(t, cam, WithPermissionQuery(
		permission.QueryFunc(func() (permission.State, error) {
			return permission.StateGranted, nil
		}),
	))
	require.NoError(t, store.Save(permission.StateGranted))

	// Mount: no user gesture follows.
	c.CheckAvailability()

	require.Equal(t, permission.StateGranted, c.PermissionState())
	require.NotNil(t, c.ActiveStream())

	frames := make(chan *frame.Buffer, 1)
	handle := c.BeginSampling(func(b *frame.Buffer) {
		select {
		case frames <- b:
		default:
		}
	})
	defer c.EndSampling(handle)

	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("expected sampling to start without a user gesture")
	}
}

func TestAllowFlowWithoutPermissionQuery(t *testing.T) {
	cam := newFakeCamera()
	c, store := newTestController(t, cam, WithPermissionQuery(
		permission.QueryFunc(func() (permission.State, error) {
			return "", permission.ErrUnsupported
		}),
	))

	c.CheckAvailability()
	require.True(t, c.Available())
	require.Equal(t, permission.StatePrompt, c.PermissionState())
	require.Nil(t, c.ActiveStream(), "no acquisition before the user gesture")

	// The user clicks "allow".
	require.NoError(t, c.RequestAccess())

	assert.Equal(t, permission.StateGranted, c.PermissionState())
	assert.Empty(t, c.LastError())
	hint, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, permission.StateGranted, hint)

	cam.mu.Lock()
	opens := cam.opens
	cam.mu.Unlock()
	assert.Equal(t, 1, opens, "requestAccess must acquire exactly once")

	frames := make(chan *frame.Buffer, 1)
	handle := c.BeginSampling(func(b *frame.Buffer) {
		select {
		case frames <- b:
		default:
		}
	})
	defer c.EndSampling(handle)

	select {
	case buf := <-frames:
		// The ideal 1280×720 degrades to the camera's native 640×480.
		assert.Equal(t, 640, buf.Width)
		assert.Equal(t, 480, buf.Height)
		assert.Len(t, buf.Pix, 640*480*4)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a frame after the play signal")
	}
}

func TestVideoTransformersComposeOnAcquisition(t *testing.T) {
	halve := func(r video.Reader) video.Reader {
		return video.ReaderFunc(func() (image.Image, func(), error) {
			img, release, err := r.Read()
			if err != nil {
				return nil, release, err
			}
			b := img.Bounds()
			return image.NewRGBA(image.Rect(0, 0, b.Dx()/2, b.Dy()/2)), release, nil
		})
	}

	cam := newFakeCamera()
	c, _ := newTestController(t, cam, WithVideoTransformers(halve, halve))
	c.CheckAvailability()
	require.NoError(t, c.RequestAccess())

	frames := make(chan *frame.Buffer, 1)
	handle := c.BeginSampling(func(b *frame.Buffer) {
		select {
		case frames <- b:
		default:
		}
	})
	defer c.EndSampling(handle)

	select {
	case buf := <-frames:
		// 640x480 through two halving transforms.
		assert.Equal(t, 160, buf.Width)
		assert.Equal(t, 120, buf.Height)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a transformed frame")
	}
}

func TestConsentDeniedFlow(t *testing.T) {
	cam := newFakeCamera()
	cam.setOpenErr(availability.ErrDenied)
	c, store := newTestController(t, cam)
	c.CheckAvailability()

	err := c.RequestAccess()

	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, permission.StateDenied, c.PermissionState())
	assert.Nil(t, c.ActiveStream(), "no stream may be stored on denial")
	hint, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, permission.StateDenied, hint)

	delivered := 0
	handle := c.BeginSampling(func(*frame.Buffer) { delivered++ })
	assert.True(t, handle.Stopped(), "sampling never starts when denied")
	assert.Zero(t, delivered)
}

func TestTransientFailureKeepsPermissionState(t *testing.T) {
	cam := newFakeCamera()
	cam.setOpenErr(availability.ErrBusy)
	c, _ := newTestController(t, cam)
	c.CheckAvailability()

	err := c.RequestAccess()

	require.ErrorIs(t, err, ErrAcquisitionFailed)
	assert.Equal(t, permission.StatePrompt, c.PermissionState(),
		"a non-consent failure must not move the permission state")
	assert.Equal(t, ErrAcquisitionFailed.Error(), c.LastError())

	// User-initiated retry succeeds and clears the error state.
	cam.setOpenErr(nil)
	require.NoError(t, c.RequestAccess())
	assert.Equal(t, permission.StateGranted, c.PermissionState())
	assert.Empty(t, c.LastError())
}

func TestTeardownIsIdempotent(t *testing.T) {
	cam := newFakeCamera()
	c, _ := newTestController(t, cam)
	require.NoError(t, c.RequestAccess())

	stream := c.ActiveStream()
	require.NotNil(t, stream)

	c.Teardown()
	c.Teardown()

	assert.Nil(t, c.ActiveStream())
	for _, track := range stream.GetTracks() {
		assert.True(t, track.Stopped())
	}

	cam.mu.Lock()
	defer cam.mu.Unlock()
	assert.Equal(t, 1, cam.closes, "double teardown must not double close")
}

func TestEndSamplingIsIdempotent(t *testing.T) {
	cam := newFakeCamera()
	c, _ := newTestController(t, cam)
	c.CheckAvailability()
	require.NoError(t, c.RequestAccess())

	var mu sync.Mutex
	delivered := 0
	handle := c.BeginSampling(func(*frame.Buffer) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered > 0
	}, 2*time.Second, time.Millisecond, "expected at least one delivery")

	c.EndSampling(handle)
	mu.Lock()
	after := delivered
	mu.Unlock()

	// Further cancellations are safe, including on a nil handle.
	c.EndSampling(handle)
	handle.Stop()
	c.EndSampling(nil)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, after, delivered, "no delivery may happen after cancellation returns")
}
