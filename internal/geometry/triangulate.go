package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnsupportedPolygon is returned when a face has neither 3 nor 4 vertices,
// or when a quad's diagonals cannot be compared.
var ErrUnsupportedPolygon = errors.New("unsupported polygon")

// Triangulate converts posed polygons into triangles.
//
// Triangles pass through unchanged. A quad P always yields (P0, P1, P2)
// followed by a second triangle picked from the distances of P0 to the
// other three vertices: when P0P1 is the longest the second triangle is
// (P3, P0, P1), when P0P2 is the longest it is (P3, P0, P2), otherwise
// (P3, P1, P2). Ties resolve in that order, so the split is repeatable. A
// quad whose vertex distances are not all finite is rejected.
func Triangulate(polys []Polygon) ([]Triangle, error) {
	tris := make([]Triangle, 0, len(polys)*2)
	for i, p := range polys {
		v := p.Vertices
		switch len(v) {
		case 3:
			tris = append(tris, Triangle{v[0], v[1], v[2]})
		case 4:
			second, err := splitQuad(v)
			if err != nil {
				return nil, fmt.Errorf("polygon %d (group %q): %w", i, p.Group, err)
			}
			tris = append(tris, Triangle{v[0], v[1], v[2]}, second)
		default:
			return nil, fmt.Errorf("polygon %d (group %q) has %d vertices: %w", i, p.Group, len(v), ErrUnsupportedPolygon)
		}
	}
	return tris, nil
}

// splitQuad returns the second triangle of a quad.
func splitQuad(v []r3.Vec) (Triangle, error) {
	ab := r3.Norm(r3.Sub(v[0], v[1]))
	ac := r3.Norm(r3.Sub(v[0], v[2]))
	ad := r3.Norm(r3.Sub(v[0], v[3]))
	longest := max(ab, ac, ad)

	switch {
	case math.IsInf(longest, 0):
	case longest == ab:
		return Triangle{v[3], v[0], v[1]}, nil
	case longest == ac:
		return Triangle{v[3], v[0], v[2]}, nil
	case longest == ad:
		return Triangle{v[3], v[1], v[2]}, nil
	}
	return Triangle{}, fmt.Errorf("quad split failed, vertex distances %g %g %g: %w", ab, ac, ad, ErrUnsupportedPolygon)
}
