package pose

import (
	"errors"
	"fmt"

	"github.com/banshee-data/bodysim/internal/geometry"
	"github.com/banshee-data/bodysim/internal/los"
)

var (
	// ErrFrameNotFound is returned for a frame the provider has no data for.
	ErrFrameNotFound = errors.New("frame not found")
	// ErrUnknownSensor is returned for a sensor missing from the roster.
	ErrUnknownSensor = errors.New("unknown sensor")
)

// Scene is an in-memory pose provider. Frames without their own mesh fall
// back to the static mesh once SetStatic has been called; otherwise they are
// missing. Frames below 1 are always missing.
type Scene struct {
	static    []geometry.Polygon
	hasStatic bool
	frames  map[int][]geometry.Polygon
	roster  []los.Sensor
	sensors map[string]map[int]geometry.Transform
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{
		frames:  make(map[int][]geometry.Polygon),
		sensors: make(map[string]map[int]geometry.Transform),
	}
}

// SetStatic sets the mesh used by frames without their own.
func (s *Scene) SetStatic(polys []geometry.Polygon) {
	s.static = polys
	s.hasStatic = true
}

// SetFrame sets the mesh of a single frame.
func (s *Scene) SetFrame(frame int, polys []geometry.Polygon) {
	s.frames[frame] = polys
}

// AddSensor appends a sensor to the roster. Re-adding an ID renames it.
func (s *Scene) AddSensor(sensor los.Sensor) {
	if _, ok := s.sensors[sensor.ID]; ok {
		for i := range s.roster {
			if s.roster[i].ID == sensor.ID {
				s.roster[i] = sensor
			}
		}
		return
	}
	s.roster = append(s.roster, sensor)
	s.sensors[sensor.ID] = make(map[int]geometry.Transform)
}

// SetSensor records a sensor's transform at frame, adding the sensor to the
// roster if needed.
func (s *Scene) SetSensor(frame int, sensorID string, tf geometry.Transform) {
	if _, ok := s.sensors[sensorID]; !ok {
		s.AddSensor(los.Sensor{ID: sensorID})
	}
	s.sensors[sensorID][frame] = tf
}

// Roster returns the sensors in insertion order.
func (s *Scene) Roster() []los.Sensor {
	return append([]los.Sensor(nil), s.roster...)
}

// PosedPolygons implements los.PoseProvider.
func (s *Scene) PosedPolygons(frame int) ([]geometry.Polygon, error) {
	if frame >= 1 {
		if polys, ok := s.frames[frame]; ok {
			return polys, nil
		}
		if s.hasStatic {
			return s.static, nil
		}
	}
	return nil, fmt.Errorf("mesh frame %d: %w", frame, ErrFrameNotFound)
}

// SensorTransform implements los.PoseProvider.
func (s *Scene) SensorTransform(frame int, sensorID string) (geometry.Transform, error) {
	track, ok := s.sensors[sensorID]
	if !ok {
		return geometry.Transform{}, fmt.Errorf("sensor %q: %w", sensorID, ErrUnknownSensor)
	}
	tf, ok := track[frame]
	if !ok {
		return geometry.Transform{}, fmt.Errorf("sensor %q frame %d: %w", sensorID, frame, ErrFrameNotFound)
	}
	return tf, nil
}

// Capture copies frames start..end of any provider into a Scene.
func Capture(p los.PoseProvider, roster []los.Sensor, start, end int) (*Scene, error) {
	s := NewScene()
	for _, sensor := range roster {
		s.AddSensor(sensor)
	}
	for frame := start; frame <= end; frame++ {
		polys, err := p.PosedPolygons(frame)
		if err != nil {
			return nil, fmt.Errorf("capture frame %d: %w", frame, err)
		}
		s.SetFrame(frame, polys)
		for _, sensor := range roster {
			tf, err := p.SensorTransform(frame, sensor.ID)
			if err != nil {
				return nil, fmt.Errorf("capture frame %d: %w", frame, err)
			}
			s.SetSensor(frame, sensor.ID, tf)
		}
	}
	return s, nil
}
