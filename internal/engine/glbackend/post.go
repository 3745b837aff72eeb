package glbackend

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-scene/internal/config"
	"github.com/Faultbox/midgard-scene/internal/engine/render"
)

// PostChain implements render.PostProcessor: bright pass, separable blur,
// tone-mapping composite and FXAA, ending on the default framebuffer.
type PostChain struct {
	b *Backend

	bright, blur, composite, fxaa uint32

	brightTarget *Target
	pingPong     [2]*Target
	ldr          *Target

	vao     uint32
	screenW int32
	screenH int32
}

// NewPostChain compiles the post-processing programs and allocates its
// targets at the backend's size.
func (b *Backend) NewPostChain(cfg config.ShaderConfig) (*PostChain, error) {
	p := &PostChain{b: b, screenW: b.opts.Width, screenH: b.opts.Height}

	var errs error
	load := func(paths config.ProgramPaths, name string) uint32 {
		if paths.Empty() {
			errs = multierr.Append(errs, fmt.Errorf("post-processing %s program not configured", name))
			return 0
		}
		id, err := b.programs.load(paths)
		errs = multierr.Append(errs, err)
		return id
	}
	p.bright = load(cfg.Bright, "bright")
	p.blur = load(cfg.Blur, "blur")
	p.composite = load(cfg.Composite, "composite")
	p.fxaa = load(cfg.FXAA, "fxaa")
	if errs != nil {
		return nil, errs
	}

	w, h := b.opts.Width, b.opts.Height
	var err error
	if p.brightTarget, err = newTarget(w, h, gl.RGBA16F, gl.FLOAT, false); err != nil {
		return nil, err
	}
	for i := range p.pingPong {
		if p.pingPong[i], err = newTarget(w, h, gl.RGBA16F, gl.FLOAT, false); err != nil {
			p.Destroy()
			return nil, err
		}
	}
	if p.ldr, err = NewLDRTarget(w, h); err != nil {
		p.Destroy()
		return nil, err
	}

	// Core profile needs a bound VAO even for attribute-less draws.
	gl.GenVertexArrays(1, &p.vao)
	return p, nil
}

// Resize sets the default framebuffer size and resizes the intermediate
// targets.
func (p *PostChain) Resize(width, height int32) {
	p.screenW, p.screenH = width, height
	p.brightTarget.Resize(width, height)
	p.pingPong[0].Resize(width, height)
	p.pingPong[1].Resize(width, height)
	p.ldr.Resize(width, height)
}

// Process presents src on the default framebuffer. Disabled settings copy
// src unchanged.
func (p *PostChain) Process(src render.ColorTarget, s render.PostSettings) error {
	if src.Texture == 0 {
		return errors.New("no color target")
	}

	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)
	gl.Disable(gl.CULL_FACE)
	gl.BindVertexArray(p.vao)
	defer func() {
		gl.BindVertexArray(0)
		gl.Enable(gl.DEPTH_TEST)
	}()

	if !s.Enabled {
		p.bindScreen()
		p.runComposite(src.Texture, 0, false, 1)
		return nil
	}

	var bloom uint32
	if s.BlurIterations > 0 {
		p.brightTarget.Bind()
		p.use(p.bright)
		p.texture(p.bright, "uSource", 0, src.Texture)
		gl.Uniform1f(p.b.programs.uniform(p.bright, "uThreshold"), s.BloomThreshold)
		p.fullscreen()

		tex := p.brightTarget.ColorTexture()
		p.use(p.blur)
		for i := 0; i < s.BlurIterations; i++ {
			target := p.pingPong[i%2]
			target.Bind()
			var horizontal int32
			if i%2 == 0 {
				horizontal = 1
			}
			gl.Uniform1i(p.b.programs.uniform(p.blur, "uHorizontal"), horizontal)
			p.texture(p.blur, "uSource", 0, tex)
			p.fullscreen()
			tex = target.ColorTexture()
		}
		bloom = tex
	}

	if !s.Antialias {
		p.bindScreen()
		p.runComposite(src.Texture, bloom, true, s.Exposure)
		return nil
	}

	p.ldr.Bind()
	p.runComposite(src.Texture, bloom, true, s.Exposure)

	p.bindScreen()
	p.use(p.fxaa)
	p.texture(p.fxaa, "uSource", 0, p.ldr.ColorTexture())
	p.fullscreen()
	return nil
}

func (p *PostChain) runComposite(scene, bloom uint32, toneMap bool, exposure float32) {
	prog := p.composite
	p.use(prog)
	p.texture(prog, "uScene", 0, scene)
	p.texture(prog, "uBloom", 1, bloom)
	gl.Uniform1i(p.b.programs.uniform(prog, "uUseBloom"), boolInt(bloom != 0))
	gl.Uniform1i(p.b.programs.uniform(prog, "uToneMap"), boolInt(toneMap))
	gl.Uniform1f(p.b.programs.uniform(prog, "uExposure"), exposure)
	p.fullscreen()
}

func (p *PostChain) bindScreen() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, p.screenW, p.screenH)
}

func (p *PostChain) use(prog uint32) {
	gl.UseProgram(prog)
	p.b.current = prog
}

func (p *PostChain) texture(prog uint32, name string, unit uint32, tex uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.Uniform1i(p.b.programs.uniform(prog, name), int32(unit))
}

func (p *PostChain) fullscreen() {
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
}

// Destroy releases the targets. Programs belong to the backend.
func (p *PostChain) Destroy() {
	for _, t := range []*Target{p.brightTarget, p.pingPong[0], p.pingPong[1], p.ldr} {
		if t != nil {
			t.Destroy()
		}
	}
	if p.vao != 0 {
		gl.DeleteVertexArrays(1, &p.vao)
		p.vao = 0
	}
}

func boolInt(v bool) int32 {
	if v {
		return 1
	}
	return 0
}

var _ render.PostProcessor = (*PostChain)(nil)

// ReadScreen reads back the presented image as bottom-up RGBA rows. Call
// it after Process and before the buffers are swapped.
func (p *PostChain) ReadScreen() (pixels []byte, width, height int) {
	width, height = int(p.screenW), int(p.screenH)
	pixels = make([]byte, width*height*4)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.ReadBuffer(gl.BACK)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, p.screenW, p.screenH, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, width, height
}
