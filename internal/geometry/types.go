package geometry

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is one planar facet of the posed body mesh in world coordinates.
type Triangle [3]r3.Vec

// Polygon is a face of the source mesh as handed over by the pose provider.
// Only 3- and 4-vertex polygons can be triangulated.
type Polygon struct {
	Vertices []r3.Vec
	// Group is the body-part (vertex group) the face belongs to.
	Group string
}

// Transform is a sensor's world pose for a single frame.
type Transform struct {
	Position    r3.Vec
	Orientation quat.Number
}

// IdentityOrientation is the zero rotation (w=1).
var IdentityOrientation = quat.Number{Real: 1}

// AxisAngle returns the unit quaternion rotating by angle radians about axis.
func AxisAngle(axis r3.Vec, angle float64) quat.Number {
	return quat.Number(r3.NewRotation(angle, axis))
}

// Apply maps a point from the transform's local frame into world space.
// Orientation must be a unit quaternion.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(t.Position, r3.Rotation(t.Orientation).Rotate(p))
}

// Compose returns the transform that applies child first and then t.
func (t Transform) Compose(child Transform) Transform {
	return Transform{
		Position:    t.Apply(child.Position),
		Orientation: quat.Mul(t.Orientation, child.Orientation),
	}
}

// Area returns the triangle's surface area.
func (t Triangle) Area() float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])))
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max r3.Vec
	empty    bool
}

// EmptyBounds returns a box that contains nothing; the first Extend sets it.
func EmptyBounds() Bounds {
	return Bounds{empty: true}
}

// Extend grows the box to include p.
func (b Bounds) Extend(p r3.Vec) Bounds {
	if b.empty {
		return Bounds{Min: p, Max: p}
	}
	b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	return b
}

// IsEmpty reports whether no point has been added.
func (b Bounds) IsEmpty() bool { return b.empty }

// Dimensions returns the box edge lengths along each axis.
func (b Bounds) Dimensions() r3.Vec {
	if b.empty {
		return r3.Vec{}
	}
	return r3.Sub(b.Max, b.Min)
}

// MaxDimension returns the longest box edge. Zero for an empty box.
func (b Bounds) MaxDimension() float64 {
	d := b.Dimensions()
	return math.Max(d.X, math.Max(d.Y, d.Z))
}

// PolygonBounds returns the bounding box of every vertex of polys.
func PolygonBounds(polys []Polygon) Bounds {
	b := EmptyBounds()
	for _, p := range polys {
		for _, v := range p.Vertices {
			b = b.Extend(v)
		}
	}
	return b
}
