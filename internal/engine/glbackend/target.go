package glbackend

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Target is an offscreen color target with an optional depth buffer.
type Target struct {
	fbo            uint32
	colorTexture   uint32
	depthRBO       uint32
	internalFormat int32
	pixelType      uint32
	width          int32
	height         int32
}

// NewHDRTarget creates a floating point target with depth, used by the
// color pass.
func NewHDRTarget(width, height int32) (*Target, error) {
	return newTarget(width, height, gl.RGBA16F, gl.FLOAT, true)
}

// NewLDRTarget creates an 8-bit target without depth, used between
// post-processing steps.
func NewLDRTarget(width, height int32) (*Target, error) {
	return newTarget(width, height, gl.RGBA8, gl.UNSIGNED_BYTE, false)
}

func newTarget(width, height int32, internalFormat int32, pixelType uint32, depth bool) (*Target, error) {
	t := &Target{
		internalFormat: internalFormat,
		pixelType:      pixelType,
		width:          max(width, 1),
		height:         max(height, 1),
	}

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)

	gl.GenTextures(1, &t.colorTexture)
	gl.BindTexture(gl.TEXTURE_2D, t.colorTexture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, t.internalFormat, t.width, t.height, 0, gl.RGBA, t.pixelType, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.colorTexture, 0)

	if depth {
		gl.GenRenderbuffers(1, &t.depthRBO)
		gl.BindRenderbuffer(gl.RENDERBUFFER, t.depthRBO)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, t.width, t.height)
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.depthRBO)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.Destroy()
		return nil, fmt.Errorf("target incomplete: 0x%x", status)
	}
	return t, nil
}

// Bind makes the target current and sets the viewport to cover it.
func (t *Target) Bind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.Viewport(0, 0, t.width, t.height)
}

// Clear clears color, and depth when present.
func (t *Target) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	mask := uint32(gl.COLOR_BUFFER_BIT)
	if t.depthRBO != 0 {
		mask |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(mask)
}

// ColorTexture returns the color attachment.
func (t *Target) ColorTexture() uint32 {
	return t.colorTexture
}

// Size returns the target dimensions.
func (t *Target) Size() (width, height int32) {
	return t.width, t.height
}

// Resize reallocates storage when the dimensions change.
func (t *Target) Resize(width, height int32) {
	width, height = max(width, 1), max(height, 1)
	if width == t.width && height == t.height {
		return
	}
	t.width, t.height = width, height

	gl.BindTexture(gl.TEXTURE_2D, t.colorTexture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, t.internalFormat, t.width, t.height, 0, gl.RGBA, t.pixelType, nil)
	if t.depthRBO != 0 {
		gl.BindRenderbuffer(gl.RENDERBUFFER, t.depthRBO)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, t.width, t.height)
	}
}

// Destroy releases the GPU resources.
func (t *Target) Destroy() {
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
		t.fbo = 0
	}
	if t.colorTexture != 0 {
		gl.DeleteTextures(1, &t.colorTexture)
		t.colorTexture = 0
	}
	if t.depthRBO != 0 {
		gl.DeleteRenderbuffers(1, &t.depthRBO)
		t.depthRBO = 0
	}
}
