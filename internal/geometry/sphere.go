package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidSampleCount is returned when fewer than one sphere sample is requested.
var ErrInvalidSampleCount = errors.New("invalid sample count")

// GoldenAngle is the longitude increment of the sphere spiral, π(3−√5).
var GoldenAngle = math.Pi * (3 - math.Sqrt(5))

// SphereSamples returns n points quasi-uniformly spread over a sphere of
// the given radius centred on the origin, using a golden-angle spiral.
// The output depends only on (n, radius).
func SphereSamples(n int, radius float64) ([]r3.Vec, error) {
	if n < 1 {
		return nil, fmt.Errorf("sphere samples: n=%d: %w", n, ErrInvalidSampleCount)
	}

	dz := 2.0 / float64(n)
	longitude := 0.0
	z := 1.0 - dz/2.0

	pts := make([]r3.Vec, 0, n)
	for k := 0; k < n; k++ {
		r := math.Sqrt(1.0 - z*z)
		pts = append(pts, r3.Vec{
			X: math.Cos(longitude) * r * radius,
			Y: math.Sin(longitude) * r * radius,
			Z: z * radius,
		})
		z -= dz
		longitude += GoldenAngle
	}
	return pts, nil
}
