package cameye

import "github.com/cameye/cameye/pkg/driver"

// DeviceKind enumerates the kind of an input device.
type DeviceKind int

// DeviceKind definitions.
const (
	VideoInput DeviceKind = iota + 1
	OtherInput
)

// DeviceInfo is one entry of the device inventory snapshot.
type DeviceInfo struct {
	DeviceID   string
	Kind       DeviceKind
	Label      string
	DeviceType driver.DeviceType
}
