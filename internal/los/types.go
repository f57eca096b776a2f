package los

import (
	"github.com/banshee-data/bodysim/internal/geometry"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Sensor is one tracked point on the body. ID is the stable binding
// location; Name labels direct-LOS columns.
type Sensor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Label returns Name, falling back to "sensor_<ID>".
func (s Sensor) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return "sensor_" + s.ID
}

// PoseProvider supplies the posed mesh and sensor transforms for a frame.
// Implementations may be stateful: the sampler requests frames in
// increasing order and never asks for frame f+1 before finishing f.
type PoseProvider interface {
	PosedPolygons(frame int) ([]geometry.Polygon, error)
	SensorTransform(frame int, sensorID string) (geometry.Transform, error)
}

// FrameRecord is one sensor's output for one frame.
type FrameRecord struct {
	Frame       int
	Position    r3.Vec
	Orientation quat.Number
	// InterferenceRatio is blocked sphere samples over total samples.
	InterferenceRatio float64
	// DirectLOS holds one entry per other sensor in roster order; true
	// means the straight path is clear.
	DirectLOS []bool
}

// Result is the complete output of a run, handed to a ResultSink at exit.
type Result struct {
	FrameStart   int
	FrameEnd     int
	SampleCount  int
	SampleRadius float64
	// Sensors is the roster in setup order.
	Sensors []Sensor
	// Records maps sensor ID to its frame records in frame order.
	Records map[string][]FrameRecord
}

// Others returns the roster without the given sensor, preserving order.
// These are the direct-LOS columns for that sensor.
func (r *Result) Others(sensorID string) []Sensor {
	out := make([]Sensor, 0, len(r.Sensors))
	for _, s := range r.Sensors {
		if s.ID != sensorID {
			out = append(out, s)
		}
	}
	return out
}

// FrameCount is the number of frames in the run, both ends inclusive.
func (r *Result) FrameCount() int {
	return r.FrameEnd - r.FrameStart + 1
}

// ResultSink receives the finished result. Writers, dispatchers and stores
// implement it.
type ResultSink interface {
	WriteResults(res *Result) error
}

// SinkFunc adapts a function to ResultSink.
type SinkFunc func(res *Result) error

// WriteResults calls f(res).
func (f SinkFunc) WriteResults(res *Result) error { return f(res) }

// Sinks fans a result out to several sinks in order, stopping at the first
// error.
type Sinks []ResultSink

// WriteResults implements ResultSink.
func (s Sinks) WriteResults(res *Result) error {
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.WriteResults(res); err != nil {
			return err
		}
	}
	return nil
}
