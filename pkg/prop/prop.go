// Package prop describes media constraints and the settings a capture
// device can deliver.
package prop

import (
	"math"

	"github.com/cameye/cameye/pkg/frame"
)

// Facing describes which way a camera points.
type Facing string

const (
	// FacingEnvironment is a rear, world-facing camera.
	FacingEnvironment Facing = "environment"
	// FacingUser is a front, selfie-facing camera.
	FacingUser Facing = "user"
)

// Media is a set of video constraints or, symmetrically, a concrete
// setting a driver can produce. Zero fields mean "don't care".
type Media struct {
	DeviceID string
	Video
}

// Video represents a video's properties.
type Video struct {
	Width, Height int
	FrameRate     float32
	FrameFormat   frame.Format
	Facing        Facing
}

// Merge fills p's zero fields from o. Non-zero fields in p win.
func (p *Media) Merge(o Media) {
	if p.DeviceID == "" {
		p.DeviceID = o.DeviceID
	}
	if p.Width == 0 {
		p.Width = o.Width
	}
	if p.Height == 0 {
		p.Height = o.Height
	}
	if p.FrameRate == 0 {
		p.FrameRate = o.FrameRate
	}
	if p.FrameFormat == "" {
		p.FrameFormat = o.FrameFormat
	}
	if p.Facing == "" {
		p.Facing = o.Facing
	}
}

// FitnessDistance implements the fitness-distance step of the W3C
// SelectSettings algorithm: 0 is a perfect match and every mismatched
// constraint adds at most 1. Zero-valued (unconstrained) fields in p do
// not contribute.
// Reference: https://w3c.github.io/mediacapture-main/#dfn-fitness-distance
func (p *Media) FitnessDistance(o Media) float64 {
	var dist float64

	dist += numericDistance(float64(p.Width), float64(o.Width))
	dist += numericDistance(float64(p.Height), float64(o.Height))
	dist += numericDistance(float64(p.FrameRate), float64(o.FrameRate))
	dist += discreteDistance(string(p.FrameFormat), string(o.FrameFormat))
	dist += discreteDistance(string(p.Facing), string(o.Facing))

	return dist
}

func numericDistance(ideal, actual float64) float64 {
	if ideal == 0 || ideal == actual {
		return 0
	}
	return math.Abs(ideal-actual) / math.Max(math.Abs(ideal), math.Abs(actual))
}

func discreteDistance(ideal, actual string) float64 {
	if ideal == "" || ideal == actual {
		return 0
	}
	return 1
}
