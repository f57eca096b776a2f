package pose

import (
	"fmt"
	"math"

	"github.com/banshee-data/bodysim/internal/geometry"
	"github.com/banshee-data/bodysim/internal/los"
	"gonum.org/v1/gonum/spatial/r3"
)

// Synthetic body dimensions, in centimetres.
const (
	torsoHalfWidth = 20.0
	torsoHalfDepth = 12.0
	torsoHalfTall  = 30.0
	headHeight     = 22.0
	armHalfThick   = 4.0
	armLength      = 55.0

	// Sensors sit this far off the skin so they never lie on a face.
	skinOffset = 1.0
)

// Synthetic sensor IDs.
const (
	SensorChest = "chest"
	SensorBack  = "back"
	SensorWrist = "wrist_r"
	SensorHip   = "hip_l"
)

var (
	shoulder = r3.Vec{X: torsoHalfWidth + armHalfThick + 1, Z: torsoHalfTall - 2}
	xAxis    = r3.Vec{X: 1}
)

// Synthetic poses a box torso with a pyramid head and a right arm swinging
// about the shoulder. Frames are 1-based.
type Synthetic struct {
	// Frames limits the animation length. Zero means unbounded.
	Frames int
	// Period is the number of frames in one swing cycle.
	Period int
	// Amplitude is the peak swing angle in radians.
	Amplitude float64
}

// NewSynthetic returns a body swinging ±60° over 60 frames.
func NewSynthetic(frames int) *Synthetic {
	return &Synthetic{Frames: frames, Period: 60, Amplitude: math.Pi / 3}
}

// Roster returns the synthetic sensors.
func (s *Synthetic) Roster() []los.Sensor {
	return []los.Sensor{
		{ID: SensorChest, Name: "Chest"},
		{ID: SensorBack, Name: "Back"},
		{ID: SensorWrist, Name: "Right wrist"},
		{ID: SensorHip, Name: "Left hip"},
	}
}

func (s *Synthetic) checkFrame(frame int) error {
	if frame < 1 || (s.Frames > 0 && frame > s.Frames) {
		return fmt.Errorf("synthetic frame %d of %d: %w", frame, s.Frames, ErrFrameNotFound)
	}
	return nil
}

// armTransform places the arm's local frame, origin at the shoulder with
// the arm hanging along -z.
func (s *Synthetic) armTransform(frame int) geometry.Transform {
	angle := 0.0
	if s.Period > 0 {
		angle = s.Amplitude * math.Sin(2*math.Pi*float64(frame-1)/float64(s.Period))
	}
	return geometry.Transform{Position: shoulder, Orientation: geometry.AxisAngle(xAxis, angle)}
}

// PosedPolygons implements los.PoseProvider.
func (s *Synthetic) PosedPolygons(frame int) ([]geometry.Polygon, error) {
	if err := s.checkFrame(frame); err != nil {
		return nil, err
	}

	polys := box("torso", r3.Vec{}, r3.Vec{X: torsoHalfWidth, Y: torsoHalfDepth, Z: torsoHalfTall})
	polys = append(polys, pyramid("head", r3.Vec{Z: torsoHalfTall}, torsoHalfDepth, headHeight)...)

	arm := s.armTransform(frame)
	local := box("arm.R", r3.Vec{Z: -armLength / 2}, r3.Vec{X: armHalfThick, Y: armHalfThick, Z: armLength / 2})
	for _, p := range local {
		for i, v := range p.Vertices {
			p.Vertices[i] = arm.Apply(v)
		}
		polys = append(polys, p)
	}
	return polys, nil
}

// SensorTransform implements los.PoseProvider.
func (s *Synthetic) SensorTransform(frame int, sensorID string) (geometry.Transform, error) {
	if err := s.checkFrame(frame); err != nil {
		return geometry.Transform{}, err
	}
	body := geometry.Transform{Orientation: geometry.IdentityOrientation}
	switch sensorID {
	case SensorChest:
		body.Position = r3.Vec{Y: -torsoHalfDepth - skinOffset, Z: 10}
		return body, nil
	case SensorBack:
		body.Position = r3.Vec{Y: torsoHalfDepth + skinOffset, Z: 10}
		return body, nil
	case SensorHip:
		body.Position = r3.Vec{X: -torsoHalfWidth - skinOffset, Z: -torsoHalfTall + 5}
		return body, nil
	case SensorWrist:
		local := geometry.Transform{
			Position:    r3.Vec{Y: -armHalfThick - skinOffset, Z: -armLength + 5},
			Orientation: geometry.IdentityOrientation,
		}
		return s.armTransform(frame).Compose(local), nil
	}
	return geometry.Transform{}, fmt.Errorf("synthetic sensor %q: %w", sensorID, ErrUnknownSensor)
}

// box returns the six quad faces of an axis-aligned box.
func box(group string, center, half r3.Vec) []geometry.Polygon {
	c := func(sx, sy, sz float64) r3.Vec {
		return r3.Vec{X: center.X + sx*half.X, Y: center.Y + sy*half.Y, Z: center.Z + sz*half.Z}
	}
	faces := [][4]r3.Vec{
		{c(-1, -1, -1), c(1, -1, -1), c(1, 1, -1), c(-1, 1, -1)}, // bottom
		{c(-1, -1, 1), c(-1, 1, 1), c(1, 1, 1), c(1, -1, 1)},     // top
		{c(-1, -1, -1), c(-1, -1, 1), c(1, -1, 1), c(1, -1, -1)}, // front
		{c(-1, 1, -1), c(1, 1, -1), c(1, 1, 1), c(-1, 1, 1)},     // back
		{c(-1, -1, -1), c(-1, 1, -1), c(-1, 1, 1), c(-1, -1, 1)}, // left
		{c(1, -1, -1), c(1, -1, 1), c(1, 1, 1), c(1, 1, -1)},     // right
	}
	out := make([]geometry.Polygon, len(faces))
	for i, f := range faces {
		out[i] = geometry.Polygon{Group: group, Vertices: f[:]}
	}
	return out
}

// pyramid returns a square-based pyramid standing on base: one quad and
// four triangles.
func pyramid(group string, base r3.Vec, halfWidth, height float64) []geometry.Polygon {
	corner := func(sx, sy float64) r3.Vec {
		return r3.Vec{X: base.X + sx*halfWidth, Y: base.Y + sy*halfWidth, Z: base.Z}
	}
	apex := r3.Add(base, r3.Vec{Z: height})
	a, b, c, d := corner(-1, -1), corner(1, -1), corner(1, 1), corner(-1, 1)
	return []geometry.Polygon{
		{Group: group, Vertices: []r3.Vec{a, d, c, b}},
		{Group: group, Vertices: []r3.Vec{a, b, apex}},
		{Group: group, Vertices: []r3.Vec{b, c, apex}},
		{Group: group, Vertices: []r3.Vec{c, d, apex}},
		{Group: group, Vertices: []r3.Vec{d, a, apex}},
	}
}
