// Package camera provides the orbit camera that supplies the renderer with
// an eye position and view matrix.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-scene/internal/engine/render"
	"github.com/Faultbox/midgard-scene/pkg/math"
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	Center math.Vec3

	// Spherical coordinates
	Distance float32 // Distance from center
	Pitch    float32 // Vertical angle, radians
	Yaw      float32 // Horizontal angle, radians

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	// Projection
	FovY float32 // Radians
	Near float32
	Far  float32
}

// NewOrbitCamera creates a new orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        10.0,
		Pitch:           0.4,
		Yaw:             0.0,
		MinDistance:     0.5,
		MaxDistance:     500.0,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FovY:            math.Radians(45),
		Near:            0.1,
		Far:             1000.0,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	sinP, cosP := math32.Sincos(c.Pitch)
	sinY, cosY := math32.Sincos(c.Yaw)
	offset := math.V3(cosP*sinY, sinP, cosP*cosY).Scale(c.Distance)
	return c.Center.Add(offset)
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.V3(0, 1, 0))
}

// Projection returns the perspective projection for the given aspect ratio.
func (c *OrbitCamera) Projection(aspect float32) math.Mat4 {
	return math.Perspective(c.FovY, aspect, c.Near, c.Far)
}

// View returns what the renderer needs from the camera for one frame.
func (c *OrbitCamera) View(aspect float32) render.View {
	return render.View{
		Position:   c.Position(),
		View:       c.ViewMatrix(),
		Projection: c.Projection(aspect),
	}
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch += deltaY * c.DragSensitivity
	c.Pitch = clamp(c.Pitch, c.MinPitch, c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = clamp(c.Distance, c.MinDistance, c.MaxDistance)
}

// FitToBounds centers the camera on a bounding box and backs off far
// enough to see all of it.
func (c *OrbitCamera) FitToBounds(min, max math.Vec3) {
	c.Center = min.Add(max).Scale(0.5)
	radius := max.Sub(min).Length() / 2
	c.Distance = clamp(radius/math32.Sin(c.FovY/2), c.MinDistance, c.MaxDistance)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
