package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"
)

func TestIsKeyPressed(t *testing.T) {
	in := New()
	in.events = append(in.events,
		Event{Type: EventKeyDown, Key: sdl.SCANCODE_SPACE},
		Event{Type: EventKeyUp, Key: sdl.SCANCODE_N},
	)

	assert.True(t, in.IsKeyPressed(sdl.SCANCODE_SPACE))
	assert.False(t, in.IsKeyPressed(sdl.SCANCODE_N), "key up is not a press")
	assert.False(t, in.IsKeyPressed(sdl.SCANCODE_F12))
}

func TestDragDeltaNeedsButton(t *testing.T) {
	in := New()
	in.events = append(in.events,
		Event{Type: EventMouseMove, DeltaX: 3, DeltaY: -1},
		Event{Type: EventMouseMove, DeltaX: 2, DeltaY: 4},
		Event{Type: EventMouseWheel, Wheel: 1.5},
	)

	dx, dy := in.DragDelta(sdl.BUTTON_LEFT)
	assert.Zero(t, dx)
	assert.Zero(t, dy)

	in.buttons[sdl.BUTTON_LEFT] = true
	assert.True(t, in.IsButtonDown(sdl.BUTTON_LEFT))
	assert.False(t, in.IsButtonDown(sdl.BUTTON_RIGHT))
	dx, dy = in.DragDelta(sdl.BUTTON_LEFT)
	assert.Equal(t, float32(5), dx)
	assert.Equal(t, float32(3), dy)
	assert.Equal(t, float32(1.5), in.WheelDelta())
}
