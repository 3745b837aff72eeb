package scenefile

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-scene/internal/config"
	"github.com/Faultbox/midgard-scene/internal/engine/anim"
	"github.com/Faultbox/midgard-scene/internal/engine/geometry"
	"github.com/Faultbox/midgard-scene/internal/engine/node"
	"github.com/Faultbox/midgard-scene/pkg/math"
)

type fakeUploader struct {
	meshes   []*geometry.Geometry
	textures []*image.RGBA
}

func (f *fakeUploader) UploadMesh(g *geometry.Geometry) (uint32, int32, error) {
	f.meshes = append(f.meshes, g)
	return uint32(len(f.meshes)), int32(len(g.Indices)), nil
}

func (f *fakeUploader) UploadTexture(img *image.RGBA) (uint32, error) {
	f.textures = append(f.textures, img)
	return uint32(100 + len(f.textures)), nil
}

func opts() Options {
	return Options{MaxBones: 10, Clock: &anim.ManualClock{}, Shadows: config.Default().Shadows}
}

const treeYAML = `
materials:
  red:
    color: [1, 0, 0]
  glass:
    color: [0.5, 0.8, 1, 0.5]
root:
  name: scene
  children:
    - name: floor
      meshes:
        - {shape: plane, size: [20, 0, 20]}
    - name: crate
      position: [1, 0.5, 0]
      rotation: [90, 0, 0]
      meshes:
        - {name: crate, shape: box, material: red}
    - name: crate2
      position: [-1, 0.5, 0]
      hidden: true
      meshes:
        - {name: crate, shape: box, material: red}
    - name: window
      meshes:
        - {shape: quad, size: [2, 3, 0], material: glass, transparency: auto}
`

func TestParseBuildsTree(t *testing.T) {
	up := &fakeUploader{}
	sc, err := Parse([]byte(treeYAML), up, opts())
	require.NoError(t, err)

	root := sc.Root
	assert.Equal(t, "scene", root.Name)
	require.Len(t, root.Children(), 4)

	crate := root.FindByName("crate")
	require.NotNil(t, crate)
	assert.Equal(t, math.V3(1, 0.5, 0), crate.Transform.Position)
	assert.Equal(t, float32(90), crate.Transform.Yaw)
	assert.Equal(t, math.V3(1, 1, 1), crate.Transform.Scale)
	require.Len(t, crate.Meshes, 1)
	assert.Equal(t, node.Opaque, crate.Meshes[0].Transparency)
	require.NotNil(t, crate.Meshes[0].Material)
	assert.True(t, crate.Meshes[0].Material.Flags().HasDiffuse)

	crate2 := root.FindByName("crate2")
	assert.False(t, crate2.Visible)
	assert.Equal(t, crate.Meshes[0].Handle, crate2.Meshes[0].Handle, "identical geometry is uploaded once")
	assert.Same(t, crate.Meshes[0].Material, crate2.Meshes[0].Material)

	window := root.FindByName("window")
	assert.Equal(t, node.PartiallyTransparent, window.Meshes[0].Transparency)
	assert.Equal(t, "quad", window.Meshes[0].Name)

	assert.Len(t, up.meshes, 3)
	assert.Len(t, up.textures, 2)
	assert.Empty(t, sc.Skeletons)
}

const rigYAML = `
root:
  name: scene
  children:
    - name: rig
      skeleton:
        autoplay: wave
        offsets:
          - bind: [0, 0, 0]
          - bind: [0, 1, 0]
        clips:
          - name: wave
            ticks_per_second: 1
            duration: 2
            channels:
              - node: arm
                positions: [{time: 0, value: [0, 1, 0]}]
                rotations:
                  - {time: 0, axis: [0, 0, 1], angle: 0}
                  - {time: 1, axis: [0, 0, 1], angle: 90}
                scales: [{time: 0, value: [1, 1, 1]}]
          - name: idle
            ticks_per_second: 1
            duration: 1
            channels:
              - node: body
                positions: [{time: 0, value: [0, 0, 0]}]
                rotations: [{time: 0}]
                scales: [{time: 0}]
      children:
        - name: body
          bone: 0
          meshes:
            - shape: box
              size: [1, 2, 1]
              skin: {lower: 0, upper: 1, from: 0, to: 1}
          children:
            - name: arm
              bone: 1
              position: [0, 1, 0]
`

func TestParseBuildsSkeleton(t *testing.T) {
	up := &fakeUploader{}
	sc, err := Parse([]byte(rigYAML), up, opts())
	require.NoError(t, err)
	require.Len(t, sc.Skeletons, 1)

	sk := sc.Skeletons[0]
	assert.Equal(t, "rig", sk.Root().Name)
	assert.Equal(t, node.KindSkeleton, sk.Root().Kind())
	assert.Equal(t, 2, sk.BoneCount())
	assert.Equal(t, []string{"idle", "wave"}, sk.Clips())
	assert.Equal(t, node.Playing, sk.State())
	assert.Equal(t, "wave", sk.Clip().Name)

	arm := sc.Root.FindByName("arm")
	assert.True(t, arm.Animated)
	assert.Equal(t, 1, arm.BoneSlot)
	assert.True(t, sc.Root.FindByName("body").Animated)

	require.Len(t, up.meshes, 1)
	top := up.meshes[0].Vertices[0]
	for _, v := range up.meshes[0].Vertices {
		if v.Position[1] > top.Position[1] {
			top = v
		}
	}
	assert.Equal(t, [4]float32{0, 1}, top.Joints)
	assert.Equal(t, [4]float32{0, 1}, top.Weights, "top vertices follow the upper bone")

	rot := sk.Clip().Channel("arm").Rotations[1].Value
	want := math.QuatFromAxisAngle(math.V3(0, 0, 1), math.Radians(90))
	assert.InDelta(t, want.W, rot.W, 1e-6)
	assert.InDelta(t, want.Z, rot.Z, 1e-6)

	node.Update(sc.Root, time.Second)
	assert.True(t, sk.BonePoses()[0].ApproxEqual(math.Identity(), 1e-5))
}

const bakedYAML = `
root:
  name: scene
  children:
    - name: rig
      skeleton:
        offsets:
          - bind: [0, 0, 0]
        clips:
          - name: hold
            ticks_per_second: 1
            duration: 1
            channels:
              - node: arm
                positions: [{time: 0, value: [0, 2, 0]}]
                rotations: [{time: 0, axis: [0, 0, 1], angle: 0}]
                scales: [{time: 0, value: [1, 1, 1]}]
      children:
        - name: arm
          bone: 0
          matrix: [1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 5, 0, 0, 1]
        - name: prop
          position: [0, 1, 0]
          matrix: [1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 5, 0, 0, 1]
`

func TestParseBakedMatrix(t *testing.T) {
	sc, err := Parse([]byte(bakedYAML), &fakeUploader{}, opts())
	require.NoError(t, err)
	require.Len(t, sc.Skeletons, 1)
	sk := sc.Skeletons[0]
	arm, prop := sc.Root.FindByName("arm"), sc.Root.FindByName("prop")
	require.NotNil(t, arm.Transform.Baked)
	assert.Equal(t, math.Translate(5, 0, 0), *arm.Transform.Baked)

	node.Update(sc.Root, 0)
	assert.True(t, arm.World().ApproxEqual(math.Translate(5, 0, 0), 1e-5))
	assert.True(t, prop.World().ApproxEqual(math.Translate(5, 1, 0), 1e-5))

	// The clip replaces the baked base pose of the animated node only.
	require.NoError(t, sk.SetClip("hold"))
	require.NoError(t, sk.Play())
	node.Update(sc.Root, 0)
	assert.True(t, arm.World().ApproxEqual(math.Translate(0, 2, 0), 1e-5))
	assert.True(t, prop.World().ApproxEqual(math.Translate(5, 1, 0), 1e-5))
}

func TestParseRejectsShortMatrix(t *testing.T) {
	doc := `
root:
  name: scene
  children:
    - {name: box, matrix: [1, 0, 0]}
`
	_, err := Parse([]byte(doc), &fakeUploader{}, opts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matrix wants 16 values, got 3")
	assert.Contains(t, err.Error(), "scene/box")
}

func TestLightsUseShadowDefaults(t *testing.T) {
	doc := `
lights:
  ambient: [0.2, 0.2, 0.2]
  directional:
    - direction: [0, -1, 1]
      half_width: 10
  point:
    - position: [1, 2, 3]
      range: 8
root: {name: scene}
`
	o := opts()
	o.Shadows.HalfHeight = 30
	o.Shadows.PointFar = 25
	sc, err := Parse([]byte(doc), &fakeUploader{}, o)
	require.NoError(t, err)

	ls := sc.Lights
	assert.Equal(t, math.V3(0.2, 0.2, 0.2), ls.Ambient)
	require.Len(t, ls.Directional, 1)
	d := ls.Directional[0]
	assert.Equal(t, math.V3(0, -1, 1), d.Direction)
	assert.Equal(t, float32(10), d.HalfWidth)
	assert.Equal(t, float32(30), d.HalfHeight)
	assert.Equal(t, float32(1), d.Intensity)
	assert.Equal(t, math.V3(0, 50, 0), d.Position)

	require.Len(t, ls.Point, 1)
	p := ls.Point[0]
	assert.Equal(t, math.V3(1, 2, 3), p.Position)
	assert.Equal(t, float32(8), p.Range)
	assert.Equal(t, float32(25), p.Far)
	assert.Equal(t, math.V3(1, 1, 1), p.Color)
}

func TestBuildReportsEveryProblem(t *testing.T) {
	doc := `
root:
  name: scene
  children:
    - name: a
      meshes: [{shape: cone}]
    - name: b
      meshes: [{shape: box, material: missing}]
    - position: [0, 0]
`
	_, err := Parse([]byte(doc), &fakeUploader{}, opts())
	require.Error(t, err)

	errs := multierr.Errors(err)
	assert.Len(t, errs, 3)
	assert.ErrorIs(t, err, ErrUnknownShape)
	assert.ErrorIs(t, err, ErrUnknownMaterial)
	assert.ErrorIs(t, err, ErrUnnamedNode)
}

func TestBuildRejectsBadClip(t *testing.T) {
	doc := `
root:
  name: rig
  skeleton:
    clips:
      - name: broken
        ticks_per_second: 1
        duration: 2
        channels:
          - node: rig
            positions: [{time: 1, value: [0, 0, 0]}, {time: 0, value: [0, 0, 0]}]
            rotations: [{time: 0}]
            scales: [{time: 0}]
`
	_, err := Parse([]byte(doc), &fakeUploader{}, opts())
	require.Error(t, err)
	assert.ErrorIs(t, err, anim.ErrKeysOutOfOrder)
	assert.Contains(t, err.Error(), "broken")
}

func TestBuildRejectsDuplicateBoneSlot(t *testing.T) {
	doc := `
root:
  name: rig
  skeleton:
    offsets: [{bind: [0, 0, 0]}]
  children:
    - {name: a, bone: 0}
    - {name: b, bone: 0}
`
	_, err := Parse([]byte(doc), &fakeUploader{}, opts())
	require.Error(t, err)
	assert.ErrorIs(t, err, node.ErrDuplicateBoneSlot)
}

func TestParseTransparencyTags(t *testing.T) {
	tests := []struct {
		tag  string
		want node.Transparency
	}{
		{"", node.Opaque},
		{"opaque", node.Opaque},
		{"full", node.FullyTransparent},
		{"partial", node.PartiallyTransparent},
		{"auto", node.Opaque},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			doc := "root: {name: s, meshes: [{shape: box, transparency: " + tt.tag + "}]}"
			if tt.tag == "" {
				doc = "root: {name: s, meshes: [{shape: box}]}"
			}
			sc, err := Parse([]byte(doc), &fakeUploader{}, opts())
			require.NoError(t, err)
			assert.Equal(t, tt.want, sc.Root.Meshes[0].Transparency)
		})
	}

	_, err := Parse([]byte("root: {name: s, meshes: [{shape: box, transparency: glassy}]}"), &fakeUploader{}, opts())
	assert.Error(t, err)
}

func writePNG(t *testing.T, path string, alpha ...uint8) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, len(alpha), 1))
	for x, a := range alpha {
		img.SetRGBA(x, 0, color.RGBA{R: a, A: a})
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadResolvesTexturesNextToScene(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "leaves.png"), 0, 255, 255, 0)
	writePNG(t, filepath.Join(dir, "ao.png"), 255, 255)

	doc := `
materials:
  leaves: {texture: leaves.png, ao_map: ao.png}
  leaves2: {texture: leaves.png}
root:
  name: scene
  children:
    - name: bush
      meshes: [{shape: quad, material: leaves, transparency: auto}]
    - name: bush2
      meshes: [{shape: quad, material: leaves2, transparency: auto}]
`
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	up := &fakeUploader{}
	sc, err := Load(path, up, opts())
	require.NoError(t, err)

	bush := sc.Root.FindByName("bush").Meshes[0]
	assert.Equal(t, node.FullyTransparent, bush.Transparency)
	flags := bush.Material.Flags()
	assert.True(t, flags.HasDiffuse)
	assert.True(t, flags.HasAOMap)
	assert.False(t, flags.HasNormalMap)

	bush2 := sc.Root.FindByName("bush2").Meshes[0]
	assert.Equal(t, bush.Material.Diffuse, bush2.Material.Diffuse, "same file is uploaded once")
	assert.Len(t, up.textures, 2)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &fakeUploader{}, opts())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDemoSceneLoads(t *testing.T) {
	sc, err := Load(filepath.Join("..", "..", "scene.yaml"), &fakeUploader{}, opts())
	require.NoError(t, err)

	require.Len(t, sc.Skeletons, 1)
	assert.Equal(t, node.Playing, sc.Skeletons[0].State())
	assert.Equal(t, node.PartiallyTransparent, sc.Root.FindByName("glass_front").Meshes[0].Transparency)
	assert.Equal(t, node.FullyTransparent, sc.Root.FindByName("fence").Meshes[0].Transparency)
	assert.Len(t, sc.Lights.Directional, 1)
	assert.Len(t, sc.Lights.Point, 1)
}
