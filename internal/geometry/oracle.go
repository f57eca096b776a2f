package geometry

import "gonum.org/v1/gonum/spatial/r3"

// DefaultSegmentTolerance bounds the cross-product magnitude used to
// accept a hit point as colinear with the segment.
const DefaultSegmentTolerance = 0.001

// determinantEpsilon rejects rays parallel to the triangle plane and
// zero-area triangles.
const determinantEpsilon = 1e-12

// Oracle decides whether a triangle occludes a segment.
// The zero value uses DefaultSegmentTolerance.
type Oracle struct {
	Tolerance float64
}

// IntersectsSegment reports whether tri blocks the closed segment from-to
// using the default tolerance.
func IntersectsSegment(tri Triangle, from, to r3.Vec) bool {
	return Oracle{}.IntersectsSegment(tri, from, to)
}

// IntersectsSegment casts a ray from `to` towards `from` (direction
// from−to) and accepts the hit only when the hit point lies on the
// closed segment. Degenerate triangles and zero-length segments never
// intersect.
func (o Oracle) IntersectsSegment(tri Triangle, from, to r3.Vec) bool {
	p, ok := intersectRay(tri, to, r3.Sub(from, to))
	if !ok {
		return false
	}
	return o.onSegment(p, from, to)
}

// Blocked reports whether any triangle blocks the segment. It stops at
// the first blocking triangle.
func (o Oracle) Blocked(tris []Triangle, from, to r3.Vec) bool {
	for i := range tris {
		if o.IntersectsSegment(tris[i], from, to) {
			return true
		}
	}
	return false
}

// Blocked is Oracle{}.Blocked.
func Blocked(tris []Triangle, from, to r3.Vec) bool {
	return Oracle{}.Blocked(tris, from, to)
}

func (o Oracle) tolerance() float64 {
	if o.Tolerance <= 0 {
		return DefaultSegmentTolerance
	}
	return o.Tolerance
}

// onSegment checks colinearity, then that p is not before `from` and not
// past `to`.
func (o Oracle) onSegment(p, from, to r3.Vec) bool {
	seg := r3.Sub(to, from)
	rel := r3.Sub(p, from)
	if r3.Norm(r3.Cross(seg, rel)) >= o.tolerance() {
		return false
	}
	dot := r3.Dot(seg, rel)
	return dot >= 0 && dot <= r3.Norm2(seg)
}

// intersectRay is a double-sided Möller–Trumbore test. Hits behind the
// origin are rejected.
func intersectRay(tri Triangle, origin, dir r3.Vec) (r3.Vec, bool) {
	edge1 := r3.Sub(tri[1], tri[0])
	edge2 := r3.Sub(tri[2], tri[0])
	h := r3.Cross(dir, edge2)
	det := r3.Dot(edge1, h)
	if det > -determinantEpsilon && det < determinantEpsilon {
		return r3.Vec{}, false
	}
	invDet := 1 / det

	s := r3.Sub(origin, tri[0])
	u := invDet * r3.Dot(s, h)
	if u < 0 || u > 1 {
		return r3.Vec{}, false
	}
	q := r3.Cross(s, edge1)
	v := invDet * r3.Dot(dir, q)
	if v < 0 || u+v > 1 {
		return r3.Vec{}, false
	}

	t := invDet * r3.Dot(edge2, q)
	if t < 0 {
		return r3.Vec{}, false
	}
	return r3.Add(origin, r3.Scale(t, dir)), true
}
