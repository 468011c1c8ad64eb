package cameye

import "errors"

// Failure classes surfaced through the controller's error state. They are
// never returned past the controller boundary; LastError exposes the
// message and the permission/availability state carries the consequence.
var (
	// ErrNoDeviceFound means zero camera devices were enumerated.
	// Terminal for the session.
	ErrNoDeviceFound = errors.New("no camera device found")
	// ErrPermissionDenied means consent was declined. Recoverable only by
	// an out-of-band settings change and a fresh mount.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrAcquisitionFailed covers busy devices, unsatisfiable settings and
	// transient platform failures. Recoverable by retrying.
	ErrAcquisitionFailed = errors.New("could not start the camera")
	// ErrEnumerationFailed means the device query itself errored.
	ErrEnumerationFailed = errors.New("could not list input devices")
)
