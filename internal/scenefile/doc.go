// Package scenefile builds a scene graph, its skeletons and its lights from
// a YAML description. Geometry is procedural; textures are read from disk.
package scenefile

import (
	"fmt"

	"github.com/Faultbox/midgard-scene/pkg/math"
)

// Document is the top level of a scene file.
type Document struct {
	Lights    LightsDoc              `yaml:"lights"`
	Materials map[string]MaterialDoc `yaml:"materials"`
	Root      NodeDoc                `yaml:"root"`
}

// LightsDoc lists the scene lights.
type LightsDoc struct {
	Ambient     Vec        `yaml:"ambient"`
	Directional []DirDoc   `yaml:"directional"`
	Point       []PointDoc `yaml:"point"`
}

// DirDoc is a directional light. Zero shadow extents take the configured
// defaults.
type DirDoc struct {
	Position   Vec     `yaml:"position"`
	Direction  Vec     `yaml:"direction"`
	Color      Vec     `yaml:"color"`
	Intensity  float32 `yaml:"intensity"`
	HalfWidth  float32 `yaml:"half_width"`
	HalfHeight float32 `yaml:"half_height"`
	Near       float32 `yaml:"near"`
	Far        float32 `yaml:"far"`
}

// PointDoc is a point light.
type PointDoc struct {
	Position  Vec     `yaml:"position"`
	Color     Vec     `yaml:"color"`
	Intensity float32 `yaml:"intensity"`
	Range     float32 `yaml:"range"`
	Far       float32 `yaml:"far"`
}

// MaterialDoc describes a material. Color is used when Texture is empty.
type MaterialDoc struct {
	Color     Vec    `yaml:"color"` // RGBA in [0,1]
	Texture   string `yaml:"texture"`
	NormalMap string `yaml:"normal_map"`
	AOMap     string `yaml:"ao_map"`
}

// NodeDoc is one transform node and its subtree.
type NodeDoc struct {
	Name     string       `yaml:"name"`
	Position Vec          `yaml:"position"`
	Rotation Vec          `yaml:"rotation"` // Yaw, pitch, roll in degrees
	Scale    Vec          `yaml:"scale"`
	Matrix   []float32    `yaml:"matrix"` // Optional baked base matrix, column-major
	Hidden   bool         `yaml:"hidden"`
	Bone     *int         `yaml:"bone"`
	Meshes   []MeshDoc    `yaml:"meshes"`
	Skeleton *SkeletonDoc `yaml:"skeleton"`
	Children []NodeDoc    `yaml:"children"`
}

// MeshDoc is a procedural mesh.
type MeshDoc struct {
	Name         string   `yaml:"name"`
	Shape        string   `yaml:"shape"` // box, plane or quad
	Size         Vec      `yaml:"size"`
	Material     string   `yaml:"material"`
	Transparency string   `yaml:"transparency"` // opaque, full, partial or auto
	Skin         *SkinDoc `yaml:"skin"`
}

// SkinDoc binds mesh vertices to bone slots. With Upper set, vertices
// blend from Lower at height From to Upper at height To.
type SkinDoc struct {
	Lower int     `yaml:"lower"`
	Upper *int    `yaml:"upper"`
	From  float32 `yaml:"from"`
	To    float32 `yaml:"to"`
}

// SkeletonDoc turns its node into a skeletal root.
type SkeletonDoc struct {
	Offsets  []OffsetDoc `yaml:"offsets"`
	Clips    []ClipDoc   `yaml:"clips"`
	Autoplay string      `yaml:"autoplay"`
}

// OffsetDoc is one bone offset matrix, given either as a bind position to
// invert or as 16 column-major values.
type OffsetDoc struct {
	Bind   Vec       `yaml:"bind"`
	Matrix []float32 `yaml:"matrix"`
}

// ClipDoc is one animation clip.
type ClipDoc struct {
	Name           string       `yaml:"name"`
	TicksPerSecond float32      `yaml:"ticks_per_second"`
	Duration       float32      `yaml:"duration"`
	Channels       []ChannelDoc `yaml:"channels"`
}

// ChannelDoc keys one node.
type ChannelDoc struct {
	Node      string   `yaml:"node"`
	Positions []VecKey `yaml:"positions"`
	Rotations []RotKey `yaml:"rotations"`
	Scales    []VecKey `yaml:"scales"`
}

// VecKey is a position or scale key.
type VecKey struct {
	Time  float32 `yaml:"time"`
	Value Vec     `yaml:"value"`
}

// RotKey is a rotation key given as an axis and an angle in degrees.
type RotKey struct {
	Time  float32 `yaml:"time"`
	Axis  Vec     `yaml:"axis"`
	Angle float32 `yaml:"angle"`
}

// Vec is a list of floats of a fixed expected length.
type Vec []float32

func (v Vec) vec3(def math.Vec3) (math.Vec3, error) {
	switch len(v) {
	case 0:
		return def, nil
	case 3:
		return math.V3(v[0], v[1], v[2]), nil
	default:
		return math.Vec3{}, fmt.Errorf("want 3 values, got %d", len(v))
	}
}

func (v Vec) rgba() ([4]uint8, error) {
	c := [4]float32{1, 1, 1, 1}
	switch len(v) {
	case 0:
	case 3, 4:
		copy(c[:], v)
	default:
		return [4]uint8{}, fmt.Errorf("want 3 or 4 color values, got %d", len(v))
	}
	var out [4]uint8
	for i, f := range c {
		out[i] = uint8(min(max(f, 0), 1)*255 + 0.5)
	}
	return out, nil
}
