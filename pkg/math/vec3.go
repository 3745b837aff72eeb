// Package math provides the vector, quaternion and matrix types used by the
// scene graph and the render passes.
package math

import "github.com/chewxy/math32"

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// V3 is shorthand for Vec3{x, y, z}.
func V3(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Length returns the magnitude.
func (v Vec3) Length() float32 {
	return math32.Sqrt(v.LengthSq())
}

// LengthSq returns the squared magnitude.
func (v Vec3) LengthSq() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Normalize returns a unit vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// Distance returns the distance to another point.
func (v Vec3) Distance(other Vec3) float32 {
	return v.Sub(other).Length()
}

// DistanceSq returns the squared distance to another point.
func (v Vec3) DistanceSq(other Vec3) float32 {
	return v.Sub(other).LengthSq()
}

// Lerp linearly interpolates from v to other by t.
func (v Vec3) Lerp(other Vec3, t float32) Vec3 {
	return Vec3{
		v.X + t*(other.X-v.X),
		v.Y + t*(other.Y-v.Y),
		v.Z + t*(other.Z-v.Z),
	}
}

// Array returns the components as [3]float32 for GPU upload.
func (v Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

// Radians converts degrees to radians.
func Radians(deg float32) float32 {
	return deg * (math32.Pi / 180)
}
