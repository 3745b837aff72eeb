// Package config handles viewer configuration loading and management.
package config

// Config holds all viewer settings.
type Config struct {
	Graphics  GraphicsConfig  `yaml:"graphics"`
	Shadows   ShadowConfig    `yaml:"shadows"`
	Animation AnimationConfig `yaml:"animation"`
	PostFX    PostFXConfig    `yaml:"postfx"`
	Shaders   ShaderConfig    `yaml:"shaders"`
	Scene     SceneConfig     `yaml:"scene"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit"`

	ScreenshotDir string `yaml:"screenshot_dir"`
}

// ShadowConfig holds shadow map settings.
type ShadowConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Resolution      int32   `yaml:"resolution"`       // Directional depth map size
	PointResolution int32   `yaml:"point_resolution"` // Cube face size
	HalfWidth       float32 `yaml:"half_width"`       // Orthographic extents
	HalfHeight      float32 `yaml:"half_height"`
	Near            float32 `yaml:"near"`
	Far             float32 `yaml:"far"`
	PointFar        float32 `yaml:"point_far"`
}

// AnimationConfig holds skeletal animation limits.
type AnimationConfig struct {
	MaxBones int `yaml:"max_bones"`
}

// PostFXConfig holds post-processing parameters.
type PostFXConfig struct {
	Enabled        bool    `yaml:"enabled"`
	BloomThreshold float32 `yaml:"bloom_threshold"`
	BlurIterations int     `yaml:"blur_iterations"`
	Exposure       float32 `yaml:"exposure"`
	Antialias      bool    `yaml:"antialias"`
}

// ProgramPaths locates the stages of one shader program. Geometry is
// optional. Defines are injected after the #version line of every stage.
type ProgramPaths struct {
	Vertex   string   `yaml:"vertex"`
	Geometry string   `yaml:"geometry,omitempty"`
	Fragment string   `yaml:"fragment"`
	Defines  []string `yaml:"defines,omitempty"`
}

// Empty reports whether no program is configured.
func (p ProgramPaths) Empty() bool {
	return p.Vertex == "" && p.Fragment == ""
}

// PassShaders holds the program of each transparency variant of a pass.
// An empty entry means the variant is not available.
type PassShaders struct {
	Opaque  ProgramPaths `yaml:"opaque"`
	Full    ProgramPaths `yaml:"full"`
	Partial ProgramPaths `yaml:"partial"`
}

// ShaderConfig holds shader source locations.
type ShaderConfig struct {
	Dir         string      `yaml:"dir"` // Empty uses the built-in sources
	Directional PassShaders `yaml:"directional"`
	Point       PassShaders `yaml:"point"`
	Color       PassShaders `yaml:"color"`

	Bright    ProgramPaths `yaml:"bright"`
	Blur      ProgramPaths `yaml:"blur"`
	Composite ProgramPaths `yaml:"composite"`
	FXAA      ProgramPaths `yaml:"fxaa"`
}

// SceneConfig holds the scene to load.
type SceneConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

func program(vert, geom, frag string, defines ...string) ProgramPaths {
	return ProgramPaths{Vertex: vert, Geometry: geom, Fragment: frag, Defines: defines}
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,

			ScreenshotDir: "screenshots",
		},
		Shadows: ShadowConfig{
			Enabled:         true,
			Resolution:      2048,
			PointResolution: 1024,
			HalfWidth:       40,
			HalfHeight:      40,
			Near:            0.1,
			Far:             200,
			PointFar:        25,
		},
		Animation: AnimationConfig{
			MaxBones: 10,
		},
		PostFX: PostFXConfig{
			Enabled:        true,
			BloomThreshold: 1.0,
			BlurIterations: 10,
			Exposure:       1.0,
			Antialias:      true,
		},
		Shaders: ShaderConfig{
			Dir: "",
			Directional: PassShaders{
				Opaque:  program("depth.vert", "", "depth.frag"),
				Full:    program("depth.vert", "", "depth.frag", "ALPHA_TEST"),
				Partial: program("depth.vert", "", "depth.frag", "ALPHA_TEST"),
			},
			Point: PassShaders{
				Opaque:  program("depth_cube.vert", "depth_cube.geom", "depth_cube.frag"),
				Full:    program("depth_cube.vert", "depth_cube.geom", "depth_cube.frag", "ALPHA_TEST"),
				Partial: program("depth_cube.vert", "depth_cube.geom", "depth_cube.frag", "ALPHA_TEST"),
			},
			Color: PassShaders{
				Opaque:  program("lit.vert", "", "lit.frag"),
				Full:    program("lit.vert", "", "lit.frag", "ALPHA_TEST"),
				Partial: program("lit.vert", "", "lit.frag", "ALPHA_BLEND"),
			},
			Bright:    program("fullscreen.vert", "", "bright.frag"),
			Blur:      program("fullscreen.vert", "", "blur.frag"),
			Composite: program("fullscreen.vert", "", "composite.frag"),
			FXAA:      program("fullscreen.vert", "", "fxaa.frag"),
		},
		Scene: SceneConfig{
			Path: "scene.yaml",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
