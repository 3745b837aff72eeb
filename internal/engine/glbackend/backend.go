package glbackend

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-scene/internal/config"
	"github.com/Faultbox/midgard-scene/internal/engine/glbackend/shaders"
	"github.com/Faultbox/midgard-scene/internal/engine/render"
	"github.com/Faultbox/midgard-scene/internal/logger"
)

// Unused shadow sampler slots point at placeholder textures on these units,
// so no two sampler types ever share a unit.
const (
	placeholderShadowUnit = 30
	placeholderCubeUnit   = 31
)

// Options configures a Backend.
type Options struct {
	Width, Height    int32
	ShadowResolution int32
	PointResolution  int32
	MaxBones         int
	ClearColor       [4]float32
}

// Backend implements render.Backend on OpenGL. It must be created after the
// GL context is current and used from that thread only.
type Backend struct {
	opts     Options
	log      *zap.Logger
	programs *programCache

	target   *Target
	dirMaps  [render.MaxDirectionalLights]*DepthMap
	cubeMaps [render.MaxPointLights]*CubeDepthMap

	placeholderShadow uint32
	placeholderCube   uint32

	meshes   map[uint32]*gpuMesh
	textures []uint32

	pass    render.PassSetup
	current uint32
	primed  map[uint32]bool

	shadowMapNames []string
	pointMapNames  []string
}

// New initializes OpenGL and allocates the color target.
func New(opts Options, shaderCfg config.ShaderConfig) (*Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	b := &Backend{
		opts:   opts,
		log:    logger.Named("gl"),
		meshes: make(map[uint32]*gpuMesh),
		primed: make(map[uint32]bool),
	}
	b.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	common := []string{
		fmt.Sprintf("MAX_BONES %d", max(opts.MaxBones, 1)),
		fmt.Sprintf("MAX_DIR_LIGHTS %d", render.MaxDirectionalLights),
		fmt.Sprintf("MAX_POINT_LIGHTS %d", render.MaxPointLights),
	}
	b.programs = newProgramCache(shaders.NewSource(shaderCfg.Dir != "", common...), shaderCfg.Path)

	for i := 0; i < render.MaxDirectionalLights; i++ {
		b.shadowMapNames = append(b.shadowMapNames, fmt.Sprintf("uShadowMaps[%d]", i))
	}
	for i := 0; i < render.MaxPointLights; i++ {
		b.pointMapNames = append(b.pointMapNames, fmt.Sprintf("uPointShadowMaps[%d]", i))
	}

	var err error
	if b.target, err = NewHDRTarget(opts.Width, opts.Height); err != nil {
		return nil, fmt.Errorf("color target: %w", err)
	}
	b.createPlaceholders()

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	return b, nil
}

// LoadShaders compiles every configured pass program. Identical programs
// are compiled once and shared between variants.
func (b *Backend) LoadShaders(cfg config.ShaderConfig) (render.Shaders, error) {
	var errs error
	load := func(p config.ProgramPaths) render.Program {
		id, err := b.programs.load(p)
		errs = multierr.Append(errs, err)
		return render.Program(id)
	}
	set := func(ps config.PassShaders) render.ShaderSet {
		return render.ShaderSet{
			Opaque:  load(ps.Opaque),
			Full:    load(ps.Full),
			Partial: load(ps.Partial),
		}
	}
	shaders := render.Shaders{
		Directional: set(cfg.Directional),
		Point:       set(cfg.Point),
		Color:       set(cfg.Color),
	}
	if errs != nil {
		return render.Shaders{}, errs
	}
	b.log.Debug("shaders loaded", zap.Int("programs", len(b.programs.programs)))
	return shaders, nil
}

func (b *Backend) createPlaceholders() {
	gl.GenTextures(1, &b.placeholderShadow)
	gl.BindTexture(gl.TEXTURE_2D, b.placeholderShadow)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, 1, 1, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)

	gl.GenTextures(1, &b.placeholderCube)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, b.placeholderCube)
	for face := uint32(0); face < 6; face++ {
		gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+face, 0, gl.DEPTH_COMPONENT24, 1, 1, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	}
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)
}

func (b *Backend) depthMap(i int) (*DepthMap, error) {
	if i < 0 || i >= len(b.dirMaps) {
		return nil, fmt.Errorf("directional light %d out of range", i)
	}
	if b.dirMaps[i] == nil {
		dm, err := NewDepthMap(b.opts.ShadowResolution)
		if err != nil {
			return nil, err
		}
		b.dirMaps[i] = dm
		b.log.Debug("depth map created", zap.Int("light", i), zap.Int32("resolution", dm.Resolution))
	}
	return b.dirMaps[i], nil
}

func (b *Backend) cubeMap(i int) (*CubeDepthMap, error) {
	if i < 0 || i >= len(b.cubeMaps) {
		return nil, fmt.Errorf("point light %d out of range", i)
	}
	if b.cubeMaps[i] == nil {
		cm, err := NewCubeDepthMap(b.opts.PointResolution)
		if err != nil {
			return nil, err
		}
		b.cubeMaps[i] = cm
		b.log.Debug("cube depth map created", zap.Int("light", i), zap.Int32("resolution", cm.Resolution))
	}
	return b.cubeMaps[i], nil
}

// BeginPass binds the target of setup.Kind. Shadow textures written earlier
// in the frame are bound to units 0..ShadowMaps-1 for the color pass.
func (b *Backend) BeginPass(setup render.PassSetup) error {
	b.pass = setup
	b.current = 0
	clear(b.primed)

	switch setup.Kind {
	case render.DepthDirectional:
		dm, err := b.depthMap(setup.Light)
		if err != nil {
			return err
		}
		dm.Bind()
	case render.DepthPoint:
		cm, err := b.cubeMap(setup.Light)
		if err != nil {
			return err
		}
		cm.Bind()
	case render.Color:
		b.target.Bind()
		c := b.opts.ClearColor
		b.target.Clear(c[0], c[1], c[2], c[3])
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LESS)
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)

		unit := uint32(0)
		for i := range setup.LightSpaces {
			if b.dirMaps[i] == nil {
				return fmt.Errorf("directional shadow map %d was not rendered", i)
			}
			b.dirMaps[i].BindTexture(unit)
			unit++
		}
		for i := range setup.PointFars {
			if b.cubeMaps[i] == nil {
				return fmt.Errorf("point shadow map %d was not rendered", i)
			}
			b.cubeMaps[i].BindTexture(unit)
			unit++
		}
		gl.ActiveTexture(gl.TEXTURE0 + placeholderShadowUnit)
		gl.BindTexture(gl.TEXTURE_2D, b.placeholderShadow)
		gl.ActiveTexture(gl.TEXTURE0 + placeholderCubeUnit)
		gl.BindTexture(gl.TEXTURE_CUBE_MAP, b.placeholderCube)
	default:
		return fmt.Errorf("unknown pass %s", setup.Kind)
	}
	return nil
}

// SetBlending toggles source-alpha over blending. Depth writes are off
// while blending so sorted transparent surfaces do not occlude each other.
func (b *Backend) SetBlending(enabled bool) {
	if enabled {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
		gl.DepthMask(false)
		return
	}
	gl.Disable(gl.BLEND)
	gl.DepthMask(true)
}

// Draw issues one indexed draw.
func (b *Backend) Draw(call render.DrawCall) {
	prog := uint32(call.Program)
	if prog != b.current {
		gl.UseProgram(prog)
		b.current = prog
	}
	if !b.primed[prog] {
		b.setPassUniforms(prog)
		b.primed[prog] = true
	}
	u := func(name string) int32 { return b.programs.uniform(prog, name) }

	world := call.World
	gl.UniformMatrix4fv(u("uModel"), 1, false, world.Ptr())

	bones := min(len(call.Bones), b.opts.MaxBones)
	gl.Uniform1i(u("uBoneCount"), int32(bones))
	if bones > 0 {
		gl.UniformMatrix4fv(u("uBones"), int32(bones), false, &call.Bones[0][0])
	}

	var diffuse, normalMap, aoMap uint32
	if m := call.Mesh.Material; m != nil {
		diffuse, normalMap, aoMap = m.Diffuse, m.NormalMap, m.AOMap
	}
	base := uint32(call.TextureBase)
	b.bindMaterial(prog, "uDiffuse", "uHasDiffuse", base, diffuse, call.Material.HasDiffuse)
	if call.Pass == render.Color {
		b.bindMaterial(prog, "uNormalMap", "uHasNormalMap", base+1, normalMap, call.Material.HasNormalMap)
		b.bindMaterial(prog, "uAOMap", "uHasAOMap", base+2, aoMap, call.Material.HasAOMap)
	}

	gl.BindVertexArray(call.Mesh.Handle)
	gl.DrawElements(gl.TRIANGLES, call.Mesh.IndexCount, gl.UNSIGNED_INT, nil)
}

func (b *Backend) bindMaterial(prog uint32, sampler, flag string, unit, tex uint32, has bool) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.Uniform1i(b.programs.uniform(prog, sampler), int32(unit))
	var v int32
	if has {
		v = 1
	}
	gl.Uniform1i(b.programs.uniform(prog, flag), v)
}

// setPassUniforms uploads the per-pass values the first time prog is used
// in a pass.
func (b *Backend) setPassUniforms(prog uint32) {
	u := func(name string) int32 { return b.programs.uniform(prog, name) }
	s := &b.pass

	switch s.Kind {
	case render.DepthDirectional:
		gl.UniformMatrix4fv(u("uLightSpace"), 1, false, s.LightSpace.Ptr())

	case render.DepthPoint:
		gl.UniformMatrix4fv(u("uShadowMatrices"), 6, false, &s.Faces[0][0])
		gl.Uniform3f(u("uLightPos"), s.LightPosition.X, s.LightPosition.Y, s.LightPosition.Z)
		gl.Uniform1f(u("uFarPlane"), s.FarPlane)

	case render.Color:
		gl.UniformMatrix4fv(u("uView"), 1, false, s.View.View.Ptr())
		gl.UniformMatrix4fv(u("uProjection"), 1, false, s.View.Projection.Ptr())
		eye := s.View.Position
		gl.Uniform3f(u("uViewPos"), eye.X, eye.Y, eye.Z)

		l := &s.Lights
		gl.Uniform3fv(u("uAmbient"), 1, &l.Ambient[0])
		gl.Uniform1i(u("uDirCount"), l.DirCount)
		gl.Uniform3fv(u("uDirDirs"), render.MaxDirectionalLights, &l.DirDirs[0])
		gl.Uniform3fv(u("uDirColors"), render.MaxDirectionalLights, &l.DirColors[0])
		gl.Uniform1i(u("uPointCount"), l.PointCount)
		gl.Uniform3fv(u("uPointPos"), render.MaxPointLights, &l.PointPos[0])
		gl.Uniform3fv(u("uPointColors"), render.MaxPointLights, &l.PointColors[0])
		gl.Uniform1fv(u("uPointRanges"), render.MaxPointLights, &l.PointRanges[0])

		nd := len(s.LightSpaces)
		np := len(s.PointFars)
		gl.Uniform1i(u("uDirShadowCount"), int32(nd))
		gl.Uniform1i(u("uPointShadowCount"), int32(np))
		if nd > 0 {
			gl.UniformMatrix4fv(u("uLightSpaces"), int32(nd), false, &s.LightSpaces[0][0])
		}
		if np > 0 {
			gl.Uniform1fv(u("uPointFars"), int32(np), &s.PointFars[0])
		}
		for i, name := range b.shadowMapNames {
			unit := int32(placeholderShadowUnit)
			if i < nd {
				unit = int32(i)
			}
			gl.Uniform1i(u(name), unit)
		}
		for i, name := range b.pointMapNames {
			unit := int32(placeholderCubeUnit)
			if i < np {
				unit = int32(nd + i)
			}
			gl.Uniform1i(u(name), unit)
		}
	}
}

// EndPass unbinds the pass target and restores default state.
func (b *Backend) EndPass() {
	gl.BindVertexArray(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if b.pass.Kind.Depth() {
		gl.CullFace(gl.BACK)
	}
}

// ColorTarget returns the HDR output of the color pass.
func (b *Backend) ColorTarget() render.ColorTarget {
	w, h := b.target.Size()
	return render.ColorTarget{Texture: b.target.ColorTexture(), Width: w, Height: h}
}

// Resize resizes the color target to the drawable size.
func (b *Backend) Resize(width, height int32) {
	b.opts.Width, b.opts.Height = width, height
	b.target.Resize(width, height)
	b.log.Debug("color target resized", zap.Int32("width", width), zap.Int32("height", height))
}

// Destroy releases every GPU resource owned by the backend.
func (b *Backend) Destroy() {
	b.log.Info("closing backend")
	b.programs.destroy()
	b.destroyResources()
	for i, dm := range b.dirMaps {
		if dm != nil {
			dm.Destroy()
			b.dirMaps[i] = nil
		}
	}
	for i, cm := range b.cubeMaps {
		if cm != nil {
			cm.Destroy()
			b.cubeMaps[i] = nil
		}
	}
	if b.target != nil {
		b.target.Destroy()
	}
	gl.DeleteTextures(1, &b.placeholderShadow)
	gl.DeleteTextures(1, &b.placeholderCube)
}

var _ render.Backend = (*Backend)(nil)
