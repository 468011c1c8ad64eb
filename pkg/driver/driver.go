// Package driver abstracts video input devices behind a uniform
// open/record/close lifecycle and keeps a process-wide registry of them.
package driver

import (
	"github.com/cameye/cameye/pkg/io/video"
	"github.com/cameye/cameye/pkg/prop"
)

// DeviceType is a category of video input hardware.
type DeviceType string

const (
	// Camera is a physical capture device.
	Camera DeviceType = "camera"
	// Screen is a display capture source.
	Screen DeviceType = "screen"
	// Synthetic is a generated test source.
	Synthetic DeviceType = "synthetic"
)

// Info describes a registered device.
type Info struct {
	Label      string
	DeviceType DeviceType
	Facing     prop.Facing
	// Priority breaks fitness ties; higher wins.
	Priority float32
}

// Adapter is the minimal surface a device backend implements. The
// registry wraps every adapter with ID assignment and state enforcement.
type Adapter interface {
	Open() error
	Close() error
	// VideoRecord starts capture with the given setting and returns a
	// reader of decoded frames. Stopping is done by Close.
	VideoRecord(p prop.Media) (video.Reader, error)
	// Properties lists the settings the device can produce. Only valid
	// after Open.
	Properties() []prop.Media
}

// Driver is a registered adapter.
type Driver interface {
	Adapter
	ID() string
	Info() Info
	Status() State
}
