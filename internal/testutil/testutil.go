// Package testutil provides shared test fixtures for packages that consume
// LOS results.
package testutil

import (
	"fmt"
	"log"
	"testing"

	"github.com/banshee-data/bodysim/internal/geometry"
	"github.com/banshee-data/bodysim/internal/los"
	"github.com/banshee-data/bodysim/internal/monitoring"
	"gonum.org/v1/gonum/spatial/r3"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// MuteLogs silences the shared logger for the rest of the test.
func MuteLogs(t *testing.T) {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })
}

// StaticProvider is a PoseProvider whose mesh and transforms never change.
type StaticProvider struct {
	Polygons   []geometry.Polygon
	Transforms map[string]geometry.Transform
}

func (p *StaticProvider) PosedPolygons(int) ([]geometry.Polygon, error) {
	return p.Polygons, nil
}

func (p *StaticProvider) SensorTransform(frame int, id string) (geometry.Transform, error) {
	tr, ok := p.Transforms[id]
	if !ok {
		return geometry.Transform{}, fmt.Errorf("frame %d: no sensor %q", frame, id)
	}
	return tr, nil
}

// OccludedPair returns a provider with sensors "a" at z=+1 and "b" at z=-1
// separated by a triangle in the z=0 plane, and the matching roster.
func OccludedPair() (*StaticProvider, []los.Sensor) {
	tri := geometry.Polygon{Vertices: []r3.Vec{
		{X: -1, Y: -1, Z: 0},
		{X: 1, Y: -1, Z: 0},
		{X: 0, Y: 1, Z: 0},
	}}
	p := &StaticProvider{
		Polygons: []geometry.Polygon{tri},
		Transforms: map[string]geometry.Transform{
			"a": {Position: r3.Vec{Z: 1}, Orientation: geometry.IdentityOrientation},
			"b": {Position: r3.Vec{Z: -1}, Orientation: geometry.IdentityOrientation},
		},
	}
	return p, []los.Sensor{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
}

// SampleResult is a hand-built three-sensor result over frames 1..4.
// Sensor "c" has no name. Ratios for "a" are 0, 0.25, 0.5, 0.75.
func SampleResult() *los.Result {
	sensors := []los.Sensor{
		{ID: "a", Name: "Chest"},
		{ID: "b", Name: "Back"},
		{ID: "c"},
	}
	res := &los.Result{
		FrameStart:   1,
		FrameEnd:     4,
		SampleCount:  4,
		SampleRadius: 2,
		Sensors:      sensors,
		Records:      make(map[string][]los.FrameRecord, len(sensors)),
	}
	for i, s := range sensors {
		for f := 1; f <= 4; f++ {
			res.Records[s.ID] = append(res.Records[s.ID], los.FrameRecord{
				Frame:             f,
				Position:          r3.Vec{X: float64(i), Y: float64(f)},
				Orientation:       geometry.IdentityOrientation,
				InterferenceRatio: float64((f-1+i)%4) / 4,
				DirectLOS:         []bool{f%2 == 1, true},
			})
		}
	}
	return res
}
