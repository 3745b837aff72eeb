// Package viewer implements the frame loop: input, update phase, draw phase
// and present.
package viewer

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-scene/internal/config"
	"github.com/Faultbox/midgard-scene/internal/engine/anim"
	"github.com/Faultbox/midgard-scene/internal/engine/camera"
	"github.com/Faultbox/midgard-scene/internal/engine/capture"
	"github.com/Faultbox/midgard-scene/internal/engine/glbackend"
	"github.com/Faultbox/midgard-scene/internal/engine/input"
	"github.com/Faultbox/midgard-scene/internal/engine/node"
	"github.com/Faultbox/midgard-scene/internal/engine/render"
	"github.com/Faultbox/midgard-scene/internal/engine/window"
	"github.com/Faultbox/midgard-scene/internal/logger"
	"github.com/Faultbox/midgard-scene/internal/scenefile"
	"github.com/Faultbox/midgard-scene/pkg/math"
)

const windowTitle = "Midgard Scene"

// Viewer owns the window, the GPU backend and the loaded scene.
type Viewer struct {
	cfg     *config.Config
	log     *zap.Logger
	running bool

	window   *window.Window
	input    *input.Input
	backend  *glbackend.Backend
	post     *glbackend.PostChain
	renderer *render.Renderer
	camera   *camera.OrbitCamera
	clock    anim.Clock
	scene    *scenefile.Scene

	capture    *capture.Capture
	screenshot bool
}

// New opens the window, compiles the shaders and builds the scene.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		cfg:    cfg,
		log:    logger.Named("viewer"),
		input:  input.New(),
		camera: camera.NewOrbitCamera(),
		clock:  anim.NewSystemClock(),

		capture: capture.New(cfg.Graphics.ScreenshotDir, "scene"),
	}
	v.log.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.String("scene", cfg.Scene.Path))

	var err error
	v.window, err = window.New(window.Config{
		Title:      windowTitle,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The backend needs the GL context the window just created.
	w, h := v.window.DrawableSize()
	v.backend, err = glbackend.New(glbackend.Options{
		Width:            w,
		Height:           h,
		ShadowResolution: cfg.Shadows.Resolution,
		PointResolution:  cfg.Shadows.PointResolution,
		MaxBones:         cfg.Animation.MaxBones,
		ClearColor:       [4]float32{0.1, 0.1, 0.15, 1.0},
	}, cfg.Shaders)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	shaders, err := v.backend.LoadShaders(cfg.Shaders)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to load shaders: %w", err)
	}
	if v.post, err = v.backend.NewPostChain(cfg.Shaders); err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create post chain: %w", err)
	}

	v.renderer = render.New(v.backend, shaders, render.Options{
		Shadows: cfg.Shadows.Enabled,
		Post:    v.post,
		PostFX:  postSettings(cfg.PostFX),
	})

	v.scene, err = scenefile.Load(cfg.Scene.Path, v.backend, scenefile.Options{
		MaxBones: cfg.Animation.MaxBones,
		Clock:    v.clock,
		Shadows:  cfg.Shadows,
	})
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to load scene: %w", err)
	}
	if err := v.renderer.Validate(v.scene.Root, &v.scene.Lights); err != nil {
		v.Close()
		return nil, fmt.Errorf("scene %s: %w", cfg.Scene.Path, err)
	}

	for _, sk := range v.scene.Skeletons {
		sk.OnEvent(func(ev node.Event) {
			v.log.Debug("playback",
				zap.String("skeleton", ev.Skeleton.Root().Name),
				zap.String("clip", ev.Clip),
				zap.Stringer("state", ev.State))
		})
	}

	node.Update(v.scene.Root, v.clock.Now())
	v.fitCamera()

	v.log.Info("viewer initialized", zap.Int("skeletons", len(v.scene.Skeletons)))
	return v, nil
}

func postSettings(c config.PostFXConfig) render.PostSettings {
	return render.PostSettings{
		Enabled:        c.Enabled,
		BloomThreshold: c.BloomThreshold,
		BlurIterations: c.BlurIterations,
		Exposure:       c.Exposure,
		Antialias:      c.Antialias,
	}
}

// fitCamera frames the world positions of every node.
func (v *Viewer) fitCamera() {
	first := true
	var lo, hi math.Vec3
	v.scene.Root.Walk(func(n *node.Node) bool {
		p := n.World().Translation()
		if first {
			lo, hi, first = p, p, false
			return true
		}
		lo = math.V3(min(lo.X, p.X), min(lo.Y, p.Y), min(lo.Z, p.Z))
		hi = math.V3(max(hi.X, p.X), max(hi.Y, p.Y), max(hi.Z, p.Z))
		return true
	})
	pad := math.V3(1, 1, 1)
	v.camera.FitToBounds(lo.Sub(pad), hi.Add(pad))
}

// Run drives frames until the window closes or a frame fails.
func (v *Viewer) Run() error {
	v.running = true

	frameCount := 0
	drawCalls := 0
	fpsTimer := time.Now()
	var minFrame time.Duration
	if v.cfg.Graphics.FPSLimit > 0 {
		minFrame = time.Second / time.Duration(v.cfg.Graphics.FPSLimit)
	}

	v.log.Info("starting frame loop")

	for v.running {
		frameStart := time.Now()

		// 1. Input
		if v.input.Update() {
			v.running = false
			break
		}
		if err := v.handleEvents(); err != nil {
			return err
		}
		v.camera.HandleDrag(v.input.DragDelta(sdl.BUTTON_LEFT))
		if wheel := v.input.WheelDelta(); wheel != 0 {
			v.camera.HandleZoom(wheel)
		}

		// 2. Update phase, with one time sample for the whole frame
		node.Update(v.scene.Root, v.clock.Now())

		// 3. Draw phase
		view := v.camera.View(v.window.Aspect())
		stats, err := v.renderer.RenderFrame(v.scene.Root, &v.scene.Lights, view)
		if err != nil {
			return fmt.Errorf("render frame: %w", err)
		}

		if v.screenshot {
			v.screenshot = false
			v.saveScreenshot()
		}

		// 4. Present
		v.window.SwapBuffers()

		frameCount++
		drawCalls += stats.DrawCalls
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.Int("draws_per_frame", drawCalls/frameCount),
				zap.Int("deferred", stats.Deferred))
			v.window.SetTitle(fmt.Sprintf("%s - %d fps, %d draws", windowTitle, frameCount, drawCalls/frameCount))
			frameCount, drawCalls = 0, 0
			fpsTimer = time.Now()
		}

		if minFrame > 0 {
			if d := minFrame - time.Since(frameStart); d > 0 {
				time.Sleep(d)
			}
		}
	}
	return nil
}

func (v *Viewer) handleEvents() error {
	for _, event := range v.input.Events() {
		if event.Type == input.EventWindowResize {
			w, h := v.window.DrawableSize()
			v.backend.Resize(w, h)
			v.post.Resize(w, h)
		}
	}

	for _, b := range v.bindings() {
		if !v.input.IsKeyPressed(b.key) {
			continue
		}
		if err := b.action(); err != nil {
			return err
		}
	}
	return nil
}

type binding struct {
	key    sdl.Scancode
	action func() error
}

func (v *Viewer) bindings() []binding {
	return []binding{
		{sdl.SCANCODE_ESCAPE, func() error { v.running = false; return nil }},
		{sdl.SCANCODE_SPACE, v.togglePlay},
		{sdl.SCANCODE_N, v.nextClip},
		{sdl.SCANCODE_D, v.disableAnimation},
		{sdl.SCANCODE_H, v.toggleFirstChild},
		{sdl.SCANCODE_F5, v.saveConfig},
		{sdl.SCANCODE_F12, func() error { v.screenshot = true; return nil }},
	}
}

func (v *Viewer) togglePlay() error {
	for _, sk := range v.scene.Skeletons {
		if sk.Clip() == nil {
			continue
		}
		if err := sk.TogglePlay(); err != nil {
			return err
		}
	}
	return nil
}

func (v *Viewer) nextClip() error {
	for _, sk := range v.scene.Skeletons {
		if len(sk.Clips()) == 0 {
			continue
		}
		if err := sk.NextClip(); err != nil {
			return err
		}
	}
	return nil
}

func (v *Viewer) disableAnimation() error {
	for _, sk := range v.scene.Skeletons {
		sk.Disable()
	}
	return nil
}

func (v *Viewer) toggleFirstChild() error {
	if children := v.scene.Root.Children(); len(children) > 0 {
		children[0].Visible = !children[0].Visible
		v.log.Debug("visibility toggled",
			zap.String("node", children[0].Name),
			zap.Bool("visible", children[0].Visible))
	}
	return nil
}

// saveConfig writes the active config, keeping the current window size
// when windowed. A failed write is logged, not fatal.
func (v *Viewer) saveConfig() error {
	if !v.cfg.Graphics.Fullscreen {
		v.cfg.Graphics.Width, v.cfg.Graphics.Height = v.window.GetSize()
	}
	path, err := v.cfg.Save()
	if err != nil {
		v.log.Error("saving config failed", zap.Error(err))
		return nil
	}
	v.log.Info("config saved", zap.String("file", path))
	return nil
}

func (v *Viewer) saveScreenshot() {
	pixels, w, h := v.post.ReadScreen()
	name, err := v.capture.SavePixels(pixels, w, h)
	if err != nil {
		v.log.Error("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("file", name))
}

// Close releases GPU and window resources.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")
	if v.post != nil {
		v.post.Destroy()
	}
	if v.backend != nil {
		v.backend.Destroy()
	}
	if v.window != nil {
		v.window.Close()
	}
}
