package render

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-scene/internal/engine/node"
	"github.com/Faultbox/midgard-scene/internal/logger"
	"github.com/Faultbox/midgard-scene/pkg/math"
)

// View is what the camera controller supplies for the color pass.
type View struct {
	Position   math.Vec3
	View       math.Mat4
	Projection math.Mat4
}

// ViewProjection returns Projection * View.
func (v View) ViewProjection() math.Mat4 {
	return v.Projection.Mul(v.View)
}

// PassSetup describes the target and per-pass uniforms of a pass.
type PassSetup struct {
	Kind PassKind

	// Light indexes the light within its kind for depth passes.
	Light int

	// DepthDirectional
	LightSpace math.Mat4

	// DepthPoint
	Faces         [6]math.Mat4
	LightPosition math.Vec3
	FarPlane      float32

	// Color
	View        View
	Lights      LightBuffer
	LightSpaces []math.Mat4 // One per directional shadow map
	PointFars   []float32   // One per point shadow map
	ShadowMaps  int32       // Texture units taken by shadow maps
}

// ColorTarget identifies the off-screen color buffer of the color pass.
type ColorTarget struct {
	Texture uint32
	Width   int32
	Height  int32
}

// Backend is the GPU side of the renderer: it owns render targets and
// programs, and executes draw calls.
type Backend interface {
	// BeginPass binds the target for setup.Kind and uploads pass uniforms.
	BeginPass(setup PassSetup) error
	// SetBlending toggles source-alpha over blending.
	SetBlending(enabled bool)
	// Draw issues one draw call in the current pass.
	Draw(call DrawCall)
	// EndPass unbinds the pass target.
	EndPass()
	// ColorTarget returns the color pass output.
	ColorTarget() ColorTarget
}

// PostSettings are passed through to the post-processing chain.
type PostSettings struct {
	Enabled        bool
	BloomThreshold float32
	BlurIterations int
	Exposure       float32
	Antialias      bool
}

// PostProcessor turns the color pass output into the final image. With
// settings.Enabled false it presents src unchanged.
type PostProcessor interface {
	Process(src ColorTarget, settings PostSettings) error
}

// Options configures a Renderer.
type Options struct {
	Shadows bool
	Post    PostProcessor
	PostFX  PostSettings
}

// Stats summarizes one rendered frame.
type Stats struct {
	Passes    []PassStats
	DrawCalls int
	Deferred  int
}

// Renderer runs the shadow, color and post-processing passes of a frame.
type Renderer struct {
	backend Backend
	shaders Shaders
	opts    Options
	draw    drawer
	log     *zap.Logger
}

// New creates a renderer drawing through backend.
func New(backend Backend, shaders Shaders, opts Options) *Renderer {
	return &Renderer{
		backend: backend,
		shaders: shaders,
		opts:    opts,
		draw:    drawer{backend: backend},
		log:     logger.Named("render"),
	}
}

// SetPostSettings replaces the post-processing settings.
func (r *Renderer) SetPostSettings(s PostSettings) {
	r.opts.PostFX = s
}

// Passes returns the pass kinds a frame with lights will run, in order.
func (r *Renderer) Passes(lights *Lights) []PassKind {
	var passes []PassKind
	if r.opts.Shadows && len(lights.Directional) > 0 {
		passes = append(passes, DepthDirectional)
	}
	if r.opts.Shadows && len(lights.Point) > 0 {
		passes = append(passes, DepthPoint)
	}
	return append(passes, Color)
}

// Validate checks at load time that every pass the lights will trigger has
// a program for every transparency tag present under root.
func (r *Renderer) Validate(root *node.Node, lights *Lights) error {
	return Validate(root, r.shaders, r.Passes(lights)...)
}

// Validate checks that each pass in passes has the shader variants needed by
// the meshes under root. Invisible subtrees are checked too.
func Validate(root *node.Node, shaders Shaders, passes ...PassKind) error {
	var needed [3]string
	var present [3]bool
	root.Walk(func(n *node.Node) bool {
		for _, m := range n.Meshes {
			v := VariantFor(m.Transparency)
			if !present[v] {
				present[v] = true
				needed[v] = m.Name
			}
		}
		return true
	})

	var errs error
	for _, pass := range passes {
		set := shaders.For(pass)
		for v := VariantOpaque; v <= VariantPartialTransparent; v++ {
			if !present[v] {
				continue
			}
			if _, ok := set.Program(v); !ok {
				errs = multierr.Append(errs, missingVariant(pass, v, needed[v]))
			}
		}
	}
	return errs
}

// RenderFrame draws root into the backend's color target and runs the
// post-processing chain. The update phase must have completed.
func (r *Renderer) RenderFrame(root *node.Node, lights *Lights, view View) (Stats, error) {
	var stats Stats
	record := func(ps PassStats) {
		stats.Passes = append(stats.Passes, ps)
		stats.DrawCalls += ps.Draws()
		stats.Deferred += ps.Deferred
	}

	var lightSpaces []math.Mat4
	var pointFars []float32

	if r.opts.Shadows {
		for i, l := range lights.Directional {
			if i >= MaxDirectionalLights {
				break
			}
			ls := l.LightSpaceMatrix()
			ps, err := r.runPass(root, PassSetup{Kind: DepthDirectional, Light: i, LightSpace: ls}, l.Position)
			if err != nil {
				return stats, err
			}
			record(ps)
			lightSpaces = append(lightSpaces, ls)
		}

		for i, l := range lights.Point {
			if i >= MaxPointLights {
				break
			}
			setup := PassSetup{
				Kind:          DepthPoint,
				Light:         i,
				Faces:         l.FaceMatrices(),
				LightPosition: l.Position,
				FarPlane:      l.Far,
			}
			ps, err := r.runPass(root, setup, l.Position)
			if err != nil {
				return stats, err
			}
			record(ps)
			pointFars = append(pointFars, l.Far)
		}
	}

	colorSetup := PassSetup{
		Kind:        Color,
		View:        view,
		Lights:      lights.Buffer(),
		LightSpaces: lightSpaces,
		PointFars:   pointFars,
		ShadowMaps:  int32(len(lightSpaces) + len(pointFars)),
	}
	ps, err := r.runPass(root, colorSetup, view.Position)
	if err != nil {
		return stats, err
	}
	record(ps)

	r.log.Debug("frame drawn",
		zap.Int("passes", len(stats.Passes)),
		zap.Int("draws", stats.DrawCalls),
		zap.Int("deferred", stats.Deferred))

	if r.opts.Post != nil {
		if err := r.opts.Post.Process(r.backend.ColorTarget(), r.opts.PostFX); err != nil {
			return stats, fmt.Errorf("post-processing: %w", err)
		}
	}
	return stats, nil
}

func (r *Renderer) runPass(root *node.Node, setup PassSetup, eye math.Vec3) (PassStats, error) {
	if err := r.backend.BeginPass(setup); err != nil {
		return PassStats{Pass: setup.Kind}, fmt.Errorf("begin %s pass %d: %w", setup.Kind, setup.Light, err)
	}
	defer r.backend.EndPass()

	var textureBase int32
	if setup.Kind == Color {
		textureBase = setup.ShadowMaps
	}
	return r.draw.DrawObjects(root, r.shaders.For(setup.Kind), setup.Kind, eye, textureBase)
}
