package math

import "github.com/chewxy/math32"

// Quat represents a quaternion for 3D rotations.
// Components are stored as X, Y, Z, W where W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromAxisAngle creates a quaternion from axis-angle rotation.
// axis should be normalized, angle is in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	s, c := math32.Sincos(angle / 2)
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: c,
	}
}

// Length returns the quaternion norm.
func (q Quat) Length() float32 {
	return math32.Sqrt(q.Dot(q))
}

// Normalize returns a normalized quaternion.
func (q Quat) Normalize() Quat {
	length := q.Length()
	if length < 0.0001 {
		return QuatIdentity()
	}
	invLen := 1.0 / length
	return Quat{
		X: q.X * invLen,
		Y: q.Y * invLen,
		Z: q.Z * invLen,
		W: q.W * invLen,
	}
}

// Dot returns the dot product of two quaternions.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Slerp performs spherical linear interpolation between two quaternions.
// t should be in range [0, 1]. The result is renormalized.
func (q Quat) Slerp(other Quat, t float32) Quat {
	dot := q.Dot(other)

	// Take the shorter path
	if dot < 0 {
		other = Quat{X: -other.X, Y: -other.Y, Z: -other.Z, W: -other.W}
		dot = -dot
	}

	// Nearly parallel: sin(theta) goes to zero, fall back to nlerp
	if dot > 0.9995 {
		return Quat{
			X: q.X + t*(other.X-q.X),
			Y: q.Y + t*(other.Y-q.Y),
			Z: q.Z + t*(other.Z-q.Z),
			W: q.W + t*(other.W-q.W),
		}.Normalize()
	}

	theta0 := math32.Acos(dot)
	theta := theta0 * t
	sinTheta := math32.Sin(theta)
	sinTheta0 := math32.Sin(theta0)

	s0 := math32.Cos(theta) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return Quat{
		X: q.X*s0 + other.X*s1,
		Y: q.Y*s0 + other.Y*s1,
		Z: q.Z*s0 + other.Z*s1,
		W: q.W*s0 + other.W*s1,
	}.Normalize()
}

// ToMat4 converts the quaternion to a 4x4 rotation matrix.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()

	xx := q.X * q.X
	xy := q.X * q.Y
	xz := q.X * q.Z
	xw := q.X * q.W
	yy := q.Y * q.Y
	yz := q.Y * q.Z
	yw := q.Y * q.W
	zz := q.Z * q.Z
	zw := q.Z * q.W

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + zw), 2 * (xz - yw), 0,
		2 * (xy - zw), 1 - 2*(xx+zz), 2 * (yz + xw), 0,
		2 * (xz + yw), 2 * (yz - xw), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}

// Mul multiplies two quaternions (combines rotations).
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}
