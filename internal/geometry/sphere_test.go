package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSphereSamples_Cardinality(t *testing.T) {
	for _, n := range []int{1, 2, 8, 45, 500} {
		pts, err := SphereSamples(n, 1.8)
		require.NoError(t, err)
		assert.Len(t, pts, n)
	}
}

func TestSphereSamples_Deterministic(t *testing.T) {
	a, err := SphereSamples(64, 2.5)
	require.NoError(t, err)
	b, err := SphereSamples(64, 2.5)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		// Bit-for-bit, not approximately.
		assert.Equal(t, math.Float64bits(a[i].X), math.Float64bits(b[i].X))
		assert.Equal(t, math.Float64bits(a[i].Y), math.Float64bits(b[i].Y))
		assert.Equal(t, math.Float64bits(a[i].Z), math.Float64bits(b[i].Z))
	}
}

func TestSphereSamples_OnSphere(t *testing.T) {
	const radius = 3.25
	pts, err := SphereSamples(200, radius)
	require.NoError(t, err)
	for i, p := range pts {
		assert.InDelta(t, radius, r3.Norm(p), 1e-9, "sample %d", i)
	}
}

func TestSphereSamples_KnownValues(t *testing.T) {
	pts, err := SphereSamples(1, 2)
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.InDelta(t, 2, pts[0].X, 1e-12)
	assert.InDelta(t, 0, pts[0].Y, 1e-12)
	assert.InDelta(t, 0, pts[0].Z, 1e-12)

	pts, err = SphereSamples(4, 1)
	require.NoError(t, err)
	// z steps down from 1-dz/2 in increments of dz = 0.5.
	assert.InDelta(t, 0.75, pts[0].Z, 1e-12)
	assert.InDelta(t, 0.25, pts[1].Z, 1e-12)
	assert.InDelta(t, -0.25, pts[2].Z, 1e-12)
	assert.InDelta(t, -0.75, pts[3].Z, 1e-12)
	// Second point is rotated by the golden angle.
	r := math.Sqrt(1 - 0.25*0.25)
	assert.InDelta(t, math.Cos(GoldenAngle)*r, pts[1].X, 1e-12)
	assert.InDelta(t, math.Sin(GoldenAngle)*r, pts[1].Y, 1e-12)
}

func TestSphereSamples_InvalidCount(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := SphereSamples(n, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSampleCount))
	}
}

func TestGoldenAngle(t *testing.T) {
	assert.InDelta(t, 2.39996323, GoldenAngle, 1e-8)
}
