package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

const eps = 1e-5

func fromMgl(m mgl32.Mat4) Mat4 {
	return Mat4(m)
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, fromMgl(mgl32.Ident4()), Identity())
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	assert.Equal(t, m, m.Mul(Identity()))
	assert.Equal(t, m, Identity().Mul(m))
}

func TestMulMatchesReference(t *testing.T) {
	a := Translate(1, 2, 3).Mul(RotateY(0.3))
	b := Scale(2, 3, 4).Mul(RotateX(-1.1))

	want := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DY(0.3)).
		Mul4(mgl32.Scale3D(2, 3, 4)).Mul4(mgl32.HomogRotate3DX(-1.1))
	assert.True(t, a.Mul(b).ApproxEqual(fromMgl(want), eps))
}

func TestRotationsMatchReference(t *testing.T) {
	tests := []struct {
		name string
		got  Mat4
		want mgl32.Mat4
	}{
		{"x", RotateX(0.7), mgl32.HomogRotate3DX(0.7)},
		{"y", RotateY(-2.1), mgl32.HomogRotate3DY(-2.1)},
		{"z", RotateZ(1.4), mgl32.HomogRotate3DZ(1.4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.got.ApproxEqual(fromMgl(tt.want), eps), "got %v", tt.got)
		})
	}
}

func TestTranslateAndScale(t *testing.T) {
	m := Translate(5, 10, 15)
	assert.Equal(t, V3(5, 10, 15), m.Translation())

	p := ScaleV(V3(2, 2, 2)).TransformVec3(V3(1, 2, 3))
	assert.Equal(t, V3(2, 4, 6), p)

	p = TranslateV(V3(10, 20, 30)).TransformVec3(V3(1, 2, 3))
	assert.Equal(t, V3(11, 22, 33), p)
}

func TestRotateY90(t *testing.T) {
	p := RotateY(Radians(90)).TransformVec3(V3(1, 0, 0))
	assert.InDelta(t, 0, p.X, 1e-5)
	assert.InDelta(t, 0, p.Y, 1e-5)
	assert.InDelta(t, -1, p.Z, 1e-5)
}

func TestOrthoMatchesReference(t *testing.T) {
	got := Ortho(-10, 10, -5, 5, 0.1, 100)
	want := mgl32.Ortho(-10, 10, -5, 5, 0.1, 100)
	assert.True(t, got.ApproxEqual(fromMgl(want), eps))
}

func TestPerspectiveMatchesReference(t *testing.T) {
	got := Perspective(Radians(45), 16.0/9.0, 0.1, 1000)
	want := mgl32.Perspective(mgl32.DegToRad(45), 16.0/9.0, 0.1, 1000)
	assert.True(t, got.ApproxEqual(fromMgl(want), 1e-4))
	assert.Equal(t, float32(-1), got[11])
	assert.Equal(t, float32(0), got[15])
}

func TestLookAtMatchesReference(t *testing.T) {
	got := LookAt(V3(3, 4, 5), V3(0, 0, 0), V3(0, 1, 0))
	want := mgl32.LookAtV(mgl32.Vec3{3, 4, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	assert.True(t, got.ApproxEqual(fromMgl(want), eps))

	// The eye maps to the origin of view space.
	o := got.TransformVec3(V3(3, 4, 5))
	assert.InDelta(t, 0, o.Length(), 1e-4)
}

func TestInverse(t *testing.T) {
	m := Translate(1, -2, 3).Mul(RotateY(0.4)).Mul(RotateX(1.2)).Mul(Scale(2, 0.5, 3))
	assert.True(t, m.Mul(m.Inverse()).ApproxEqual(Identity(), 1e-5))
	assert.True(t, m.Inverse().ApproxEqual(fromMgl(mgl32.Mat4(m).Inv()), 1e-4))
}

func TestInverseSingular(t *testing.T) {
	assert.Equal(t, Identity(), Scale(0, 1, 1).Inverse())
}
