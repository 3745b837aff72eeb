package glbackend

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// DepthMap is the depth-only target of a directional shadow pass. Its
// texture is sampled with comparison through sampler2DShadow.
type DepthMap struct {
	FBO          uint32
	DepthTexture uint32
	Resolution   int32
}

// NewDepthMap creates a square depth map.
func NewDepthMap(resolution int32) (*DepthMap, error) {
	dm := &DepthMap{Resolution: resolution}

	gl.GenFramebuffers(1, &dm.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, dm.FBO)

	gl.GenTextures(1, &dm.DepthTexture)
	gl.BindTexture(gl.TEXTURE_2D, dm.DepthTexture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, resolution, resolution, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	// Outside the light frustum counts as lit.
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	borderColor := []float32{1.0, 1.0, 1.0, 1.0}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &borderColor[0])

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_FUNC, gl.LEQUAL)

	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, dm.DepthTexture, 0)
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		dm.Destroy()
		return nil, fmt.Errorf("depth map incomplete: 0x%x", status)
	}
	return dm, nil
}

// Bind makes the depth map the render target and clears it. Front faces
// are culled to reduce acne.
func (dm *DepthMap) Bind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, dm.FBO)
	gl.Viewport(0, 0, dm.Resolution, dm.Resolution)
	gl.Clear(gl.DEPTH_BUFFER_BIT)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.FRONT)
}

// BindTexture binds the depth texture to unit.
func (dm *DepthMap) BindTexture(unit uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, dm.DepthTexture)
}

// Destroy releases the GPU resources.
func (dm *DepthMap) Destroy() {
	if dm.FBO != 0 {
		gl.DeleteFramebuffers(1, &dm.FBO)
		dm.FBO = 0
	}
	if dm.DepthTexture != 0 {
		gl.DeleteTextures(1, &dm.DepthTexture)
		dm.DepthTexture = 0
	}
}

// CubeDepthMap is the target of a point shadow pass. Each face stores
// distance to the light divided by the far plane, written by a layered
// geometry stage.
type CubeDepthMap struct {
	FBO          uint32
	DepthTexture uint32
	Resolution   int32
}

// NewCubeDepthMap creates a cube depth map with square faces.
func NewCubeDepthMap(resolution int32) (*CubeDepthMap, error) {
	cm := &CubeDepthMap{Resolution: resolution}

	gl.GenTextures(1, &cm.DepthTexture)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, cm.DepthTexture)
	for face := uint32(0); face < 6; face++ {
		gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+face, 0, gl.DEPTH_COMPONENT24,
			resolution, resolution, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	}
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)

	gl.GenFramebuffers(1, &cm.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, cm.FBO)
	gl.FramebufferTexture(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, cm.DepthTexture, 0)
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		cm.Destroy()
		return nil, fmt.Errorf("cube depth map incomplete: 0x%x", status)
	}
	return cm, nil
}

// Bind makes the cube map the render target and clears all faces.
func (cm *CubeDepthMap) Bind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, cm.FBO)
	gl.Viewport(0, 0, cm.Resolution, cm.Resolution)
	gl.Clear(gl.DEPTH_BUFFER_BIT)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
}

// BindTexture binds the cube texture to unit.
func (cm *CubeDepthMap) BindTexture(unit uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, cm.DepthTexture)
}

// Destroy releases the GPU resources.
func (cm *CubeDepthMap) Destroy() {
	if cm.FBO != 0 {
		gl.DeleteFramebuffers(1, &cm.FBO)
		cm.FBO = 0
	}
	if cm.DepthTexture != 0 {
		gl.DeleteTextures(1, &cm.DepthTexture)
		cm.DepthTexture = 0
	}
}
