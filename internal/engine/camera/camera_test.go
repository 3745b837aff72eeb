package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/midgard-scene/pkg/math"
)

func TestPositionOnSphere(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.V3(1, 2, 3)
	c.Distance = 5
	c.Pitch = 0
	c.Yaw = 0

	p := c.Position()
	assert.InDelta(t, 1, p.X, 1e-5)
	assert.InDelta(t, 2, p.Y, 1e-5)
	assert.InDelta(t, 8, p.Z, 1e-5)

	c.Yaw = 0.7
	c.Pitch = 0.3
	assert.InDelta(t, 5, c.Position().Distance(c.Center), 1e-4)
}

func TestViewLooksAtCenter(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.V3(0, 1, 0)
	c.Yaw = 1.1

	v := c.View(16.0 / 9.0)
	center := v.View.TransformVec3(c.Center)
	assert.InDelta(t, 0, center.X, 1e-4)
	assert.InDelta(t, 0, center.Y, 1e-4)
	assert.InDelta(t, -c.Distance, center.Z, 1e-3)
	assert.Equal(t, c.Position(), v.Position)
}

func TestHandleDragClampsPitch(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleDrag(0, 10000)
	assert.Equal(t, c.MaxPitch, c.Pitch)
	c.HandleDrag(0, -100000)
	assert.Equal(t, c.MinPitch, c.Pitch)

	yaw := c.Yaw
	c.HandleDrag(100, 0)
	assert.InDelta(t, yaw-100*c.DragSensitivity, c.Yaw, 1e-6)
}

func TestHandleZoomClamps(t *testing.T) {
	c := NewOrbitCamera()
	c.Distance = 10
	c.HandleZoom(1)
	assert.InDelta(t, 9, c.Distance, 1e-5)

	for i := 0; i < 200; i++ {
		c.HandleZoom(1)
	}
	assert.Equal(t, c.MinDistance, c.Distance)
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToBounds(math.V3(-2, 0, -2), math.V3(2, 4, 2))

	assert.Equal(t, math.V3(0, 2, 0), c.Center)
	assert.Greater(t, c.Distance, float32(3.4))
}
