package scenefile

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-scene/internal/config"
	"github.com/Faultbox/midgard-scene/internal/engine/anim"
	"github.com/Faultbox/midgard-scene/internal/engine/geometry"
	"github.com/Faultbox/midgard-scene/internal/engine/node"
	"github.com/Faultbox/midgard-scene/internal/engine/render"
	"github.com/Faultbox/midgard-scene/internal/logger"
	"github.com/Faultbox/midgard-scene/pkg/math"
)

var (
	ErrUnknownShape    = errors.New("unknown mesh shape")
	ErrUnknownMaterial = errors.New("unknown material")
	ErrUnnamedNode     = errors.New("node has no name")
)

// Uploader puts geometry and textures on the GPU.
type Uploader interface {
	UploadMesh(g *geometry.Geometry) (handle uint32, indexCount int32, err error)
	UploadTexture(img *image.RGBA) (uint32, error)
}

// Options configures scene construction.
type Options struct {
	MaxBones int
	Clock    anim.Clock
	Shadows  config.ShadowConfig

	// BaseDir resolves relative texture paths. Load sets it to the scene
	// file's directory when empty.
	BaseDir string
}

// Scene is a built scene graph with its skeletons and lights.
type Scene struct {
	Root      *node.Node
	Skeletons []*node.Skeleton
	Lights    render.Lights
}

// Load reads and builds the scene file at path.
func Load(path string, up Uploader, opts Options) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(path)
	}
	return Parse(data, up, opts)
}

// Parse builds a scene from YAML data.
func Parse(data []byte, up Uploader, opts Options) (*Scene, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	return Build(&doc, up, opts)
}

type material struct {
	mat     *node.Material
	diffuse *image.RGBA
}

type uploadedMesh struct {
	handle uint32
	count  int32
}

type builder struct {
	up   Uploader
	opts Options
	log  *zap.Logger
	doc  *Document

	materials map[string]*material
	textures  map[string]uint32
	meshes    map[string]uploadedMesh
	skeletons []*node.Skeleton
	errs      error
}

// Build constructs the scene described by doc. Every problem found is
// reported, not only the first.
func Build(doc *Document, up Uploader, opts Options) (*Scene, error) {
	b := &builder{
		up:        up,
		opts:      opts,
		log:       logger.Named("scene"),
		doc:       doc,
		materials: make(map[string]*material),
		textures:  make(map[string]uint32),
		meshes:    make(map[string]uploadedMesh),
	}

	lights := b.lights(&doc.Lights)
	root := b.node(&doc.Root, doc.Root.Name)
	if b.errs != nil {
		return nil, b.errs
	}

	b.log.Info("scene built",
		zap.String("root", root.Name),
		zap.Int("skeletons", len(b.skeletons)),
		zap.Int("meshes", len(b.meshes)),
		zap.Int("textures", len(b.textures)),
		zap.Int("directional_lights", len(lights.Directional)),
		zap.Int("point_lights", len(lights.Point)))
	return &Scene{Root: root, Skeletons: b.skeletons, Lights: lights}, nil
}

func (b *builder) fail(format string, args ...any) {
	b.errs = multierr.Append(b.errs, fmt.Errorf(format, args...))
}

func (b *builder) lights(d *LightsDoc) render.Lights {
	var ls render.Lights
	var err error
	if ls.Ambient, err = d.Ambient.vec3(math.V3(0.1, 0.1, 0.1)); err != nil {
		b.fail("ambient light: %w", err)
	}

	sh := b.opts.Shadows
	for i, dd := range d.Directional {
		l := render.DefaultDirectionalLight()
		l.HalfWidth = orDefault(dd.HalfWidth, orDefault(sh.HalfWidth, l.HalfWidth))
		l.HalfHeight = orDefault(dd.HalfHeight, orDefault(sh.HalfHeight, l.HalfHeight))
		l.Near = orDefault(dd.Near, orDefault(sh.Near, l.Near))
		l.Far = orDefault(dd.Far, orDefault(sh.Far, l.Far))
		l.Intensity = orDefault(dd.Intensity, 1)
		var e1, e2, e3 error
		l.Position, e1 = dd.Position.vec3(l.Position)
		l.Direction, e2 = dd.Direction.vec3(l.Direction)
		l.Color, e3 = dd.Color.vec3(l.Color)
		if err := multierr.Combine(e1, e2, e3); err != nil {
			b.fail("directional light %d: %w", i, err)
		}
		ls.Directional = append(ls.Directional, l)
	}

	for i, pd := range d.Point {
		l := render.PointLight{
			Intensity: orDefault(pd.Intensity, 1),
			Range:     orDefault(pd.Range, 10),
			Near:      0.1,
		}
		l.Far = orDefault(pd.Far, orDefault(sh.PointFar, l.Range))
		var e1, e2 error
		l.Position, e1 = pd.Position.vec3(math.Vec3{})
		l.Color, e2 = pd.Color.vec3(math.V3(1, 1, 1))
		if err := multierr.Combine(e1, e2); err != nil {
			b.fail("point light %d: %w", i, err)
		}
		ls.Point = append(ls.Point, l)
	}

	if n := len(ls.Directional); n > render.MaxDirectionalLights {
		b.log.Warn("directional lights beyond capacity are ignored",
			zap.Int("count", n), zap.Int("max", render.MaxDirectionalLights))
	}
	if n := len(ls.Point); n > render.MaxPointLights {
		b.log.Warn("point lights beyond capacity are ignored",
			zap.Int("count", n), zap.Int("max", render.MaxPointLights))
	}
	return ls
}

func orDefault(v, def float32) float32 {
	if v == 0 {
		return def
	}
	return v
}

func (b *builder) node(d *NodeDoc, path string) *node.Node {
	if d.Name == "" {
		b.fail("node under %q: %w", path, ErrUnnamedNode)
		return nil
	}
	n := node.New(d.Name)
	n.Visible = !d.Hidden

	var e1, e2, e3 error
	n.Transform.Position, e1 = d.Position.vec3(math.Vec3{})
	rot, e2 := d.Rotation.vec3(math.Vec3{})
	n.Transform.Yaw, n.Transform.Pitch, n.Transform.Roll = rot.X, rot.Y, rot.Z
	n.Transform.Scale, e3 = d.Scale.vec3(math.V3(1, 1, 1))
	if len(d.Matrix) != 0 {
		m, err := mat4(d.Matrix)
		if err == nil {
			n.Transform.Baked = &m
		}
		e3 = multierr.Append(e3, err)
	}
	if err := multierr.Combine(e1, e2, e3); err != nil {
		b.fail("node %q: %w", path, err)
	}
	if d.Bone != nil {
		n.BoneSlot = *d.Bone
	}

	for i := range d.Meshes {
		if m := b.mesh(&d.Meshes[i], path); m != nil {
			n.AddMesh(m)
		}
	}

	for i := range d.Children {
		cd := &d.Children[i]
		child := b.node(cd, path+"/"+cd.Name)
		if child == nil {
			continue
		}
		if err := n.AddChild(child); err != nil {
			b.fail("node %q: %w", path, err)
		}
	}

	// Children first, so nested skeleton roots exist before the outer
	// armature is walked.
	if d.Skeleton != nil {
		b.skeleton(n, d.Skeleton, path)
	}
	return n
}

func (b *builder) skeleton(n *node.Node, d *SkeletonDoc, path string) {
	offsets := make([]math.Mat4, 0, len(d.Offsets))
	for i, od := range d.Offsets {
		m, err := od.matrix()
		if err != nil {
			b.fail("skeleton %q offset %d: %w", path, i, err)
			return
		}
		offsets = append(offsets, m)
	}

	clips := make([]*anim.Clip, 0, len(d.Clips))
	for i := range d.Clips {
		c, err := d.Clips[i].clip()
		if err != nil {
			b.fail("skeleton %q: %w", path, err)
			return
		}
		clips = append(clips, c)
	}

	sk, err := node.NewSkeleton(n, offsets, clips, node.Options{MaxBones: b.opts.MaxBones, Clock: b.opts.Clock})
	if err != nil {
		b.fail("%w", err)
		return
	}
	if d.Autoplay != "" {
		if err := sk.SetClip(d.Autoplay); err != nil {
			b.fail("skeleton %q autoplay: %w", path, err)
			return
		}
		if err := sk.Play(); err != nil {
			b.fail("skeleton %q autoplay: %w", path, err)
			return
		}
	}
	b.skeletons = append(b.skeletons, sk)
}

func (od OffsetDoc) matrix() (math.Mat4, error) {
	if len(od.Matrix) != 0 {
		return mat4(od.Matrix)
	}
	bind, err := od.Bind.vec3(math.Vec3{})
	if err != nil {
		return math.Mat4{}, err
	}
	return math.Translate(-bind.X, -bind.Y, -bind.Z), nil
}

func mat4(vals []float32) (math.Mat4, error) {
	var m math.Mat4
	if len(vals) != len(m) {
		return m, fmt.Errorf("matrix wants %d values, got %d", len(m), len(vals))
	}
	copy(m[:], vals)
	return m, nil
}

func (cd *ClipDoc) clip() (*anim.Clip, error) {
	c := anim.NewClip(cd.Name, cd.TicksPerSecond, cd.Duration)
	for _, chd := range cd.Channels {
		ch := &anim.Channel{Node: chd.Node}
		for _, k := range chd.Positions {
			v, err := k.Value.vec3(math.Vec3{})
			if err != nil {
				return nil, fmt.Errorf("clip %q node %q position: %w", cd.Name, chd.Node, err)
			}
			ch.Positions = append(ch.Positions, anim.PositionKey{Time: k.Time, Value: v})
		}
		for _, k := range chd.Rotations {
			axis, err := k.Axis.vec3(math.V3(0, 1, 0))
			if err != nil {
				return nil, fmt.Errorf("clip %q node %q rotation: %w", cd.Name, chd.Node, err)
			}
			q := math.QuatFromAxisAngle(axis.Normalize(), math.Radians(k.Angle))
			ch.Rotations = append(ch.Rotations, anim.RotationKey{Time: k.Time, Value: q})
		}
		for _, k := range chd.Scales {
			v, err := k.Value.vec3(math.V3(1, 1, 1))
			if err != nil {
				return nil, fmt.Errorf("clip %q node %q scale: %w", cd.Name, chd.Node, err)
			}
			ch.Scales = append(ch.Scales, anim.ScaleKey{Time: k.Time, Value: v})
		}
		c.AddChannel(ch)
	}
	return c, nil
}
