package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3Cross(t *testing.T) {
	assert.Equal(t, V3(0, 0, 1), V3(1, 0, 0).Cross(V3(0, 1, 0)))
}

func TestVec3Length(t *testing.T) {
	v := V3(2, 3, 6)
	assert.Equal(t, float32(7), v.Length())
	assert.Equal(t, float32(49), v.LengthSq())
	assert.InDelta(t, 1, v.Normalize().Length(), 1e-6)
	assert.Equal(t, Vec3{}, Vec3{}.Normalize())
}

func TestVec3Lerp(t *testing.T) {
	a := V3(0, 0, 0)
	b := V3(10, 20, 30)
	assert.Equal(t, V3(5, 10, 15), a.Lerp(b, 0.5))
	assert.Equal(t, a, a.Lerp(b, 0))
	assert.Equal(t, b, a.Lerp(b, 1))
}

func TestVec3DistanceSq(t *testing.T) {
	assert.Equal(t, float32(25), V3(1, 1, 1).DistanceSq(V3(4, 5, 1)))
}

func TestRadians(t *testing.T) {
	assert.InDelta(t, 3.14159265, Radians(180), 1e-6)
}
