package los

import (
	"errors"

	"github.com/banshee-data/bodysim/internal/geometry"
)

// Run failure kinds. Every one aborts the run without flushing results.
var (
	// ErrUnsupportedPolygon: a posed face has neither 3 nor 4 vertices.
	ErrUnsupportedPolygon = geometry.ErrUnsupportedPolygon
	// ErrInvalidSampleCount: fewer than one sphere sample was requested.
	ErrInvalidSampleCount = geometry.ErrInvalidSampleCount
	// ErrPoseUnavailable: the pose provider could not supply a frame.
	ErrPoseUnavailable = errors.New("pose unavailable")
	// ErrInvalidFrameRange: frames are 1-based and start must not exceed end.
	ErrInvalidFrameRange = errors.New("invalid frame range")
	// ErrInvalidRoster: the sensor roster is empty or has duplicate IDs.
	ErrInvalidRoster = errors.New("invalid sensor roster")
	// ErrWriteResults: the result sink failed.
	ErrWriteResults = errors.New("write results")
	// ErrNotRunning: the sampler was driven out of order.
	ErrNotRunning = errors.New("sampler not running")
)
