package simulator

import (
	"context"
	"errors"

	"github.com/banshee-data/bodysim/internal/monitoring"
)

var logf = monitoring.Component("Simulator")

var (
	// ErrSimulatorFailed wraps any error returned by a simulator run.
	ErrSimulatorFailed = errors.New("simulator failed")
	// ErrTrajectoryMissing is returned when a sensor has no trajectory file.
	ErrTrajectoryMissing = errors.New("trajectory file missing")
)

// DefaultFPS is the animation frame rate handed to simulators.
const DefaultFPS = 30

// Params carries the run settings a simulator may need.
type Params struct {
	FPS        int
	FrameStart int
	FrameEnd   int
	// Height is the body's largest bounding-box dimension.
	Height float64
	// Variables are the selected outputs, in selection order.
	Variables []string
}

func (p Params) fps() int {
	if p.FPS <= 0 {
		return DefaultFPS
	}
	return p.FPS
}

// Simulator consumes one sensor's trajectory file.
type Simulator interface {
	Name() string
	Run(ctx context.Context, trajectoryPath string, params Params) error
}
