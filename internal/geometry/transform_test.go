package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

func assertVecNear(t *testing.T, want, got r3.Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-12, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-12, "y")
	assert.InDelta(t, want.Z, got.Z, 1e-12, "z")
}

func TestTransformApply(t *testing.T) {
	tf := Transform{Position: vec(1, 2, 3), Orientation: IdentityOrientation}
	assert.Equal(t, vec(2, 2, 3), tf.Apply(vec(1, 0, 0)))

	// Quarter turn about z maps +x to +y.
	tf.Orientation = AxisAngle(vec(0, 0, 1), math.Pi/2)
	assertVecNear(t, vec(1, 3, 3), tf.Apply(vec(1, 0, 0)))
	assert.InDelta(t, 1, quat.Abs(tf.Orientation), 1e-12)
}

func TestTransformCompose(t *testing.T) {
	shoulder := Transform{Position: vec(0, 0, 10), Orientation: AxisAngle(vec(1, 0, 0), math.Pi/2)}
	wrist := Transform{Position: vec(0, 0, -5), Orientation: IdentityOrientation}

	world := shoulder.Compose(wrist)
	// Rotating (0,0,-5) a quarter turn about x gives (0,5,0).
	assertVecNear(t, vec(0, 5, 10), world.Position)
	assertVecNear(t, shoulder.Apply(vec(0, 0, -5)), world.Position)
	assert.Equal(t, shoulder.Orientation, world.Orientation)
}
