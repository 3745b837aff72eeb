package render

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-scene/pkg/math"
)

// MaxPointLights is the size of the point light uniform arrays.
const MaxPointLights = 8

// MaxDirectionalLights is the size of the directional light uniform arrays.
const MaxDirectionalLights = 4

// DirectionalLight casts parallel light and an orthographic shadow.
type DirectionalLight struct {
	Position  math.Vec3
	Direction math.Vec3
	Color     math.Vec3
	Intensity float32

	// Orthographic shadow volume.
	HalfWidth  float32
	HalfHeight float32
	Near       float32
	Far        float32
}

// DefaultDirectionalLight returns a white light pointing down with a 40 unit
// shadow half extent.
func DefaultDirectionalLight() DirectionalLight {
	return DirectionalLight{
		Position:   math.V3(0, 50, 0),
		Direction:  math.V3(0, -1, 0),
		Color:      math.V3(1, 1, 1),
		Intensity:  1,
		HalfWidth:  40,
		HalfHeight: 40,
		Near:       0.1,
		Far:        200,
	}
}

// LightSpaceMatrix returns Ortho * LookAt(position, position+direction).
func (l DirectionalLight) LightSpaceMatrix() math.Mat4 {
	dir := l.Direction.Normalize()

	// Avoid an up vector parallel to the view direction
	up := math.V3(0, 1, 0)
	if math32.Abs(dir.Y) > 0.99 {
		up = math.V3(0, 0, 1)
	}

	view := math.LookAt(l.Position, l.Position.Add(dir), up)
	proj := math.Ortho(-l.HalfWidth, l.HalfWidth, -l.HalfHeight, l.HalfHeight, l.Near, l.Far)
	return proj.Mul(view)
}

// PointLight radiates in all directions and casts a cube map shadow.
type PointLight struct {
	Position  math.Vec3
	Color     math.Vec3
	Range     float32
	Intensity float32

	Near float32
	Far  float32
}

// cubeFaces lists direction and up vector per cube map face in
// +X, -X, +Y, -Y, +Z, -Z order.
var cubeFaces = [6][2]math.Vec3{
	{{X: 1}, {Y: -1}},
	{{X: -1}, {Y: -1}},
	{{Y: 1}, {Z: 1}},
	{{Y: -1}, {Z: -1}},
	{{Z: 1}, {Y: -1}},
	{{Z: -1}, {Y: -1}},
}

// FaceMatrices returns the six view-projection matrices of the light's
// shadow cube, for the backend's geometry stage.
func (l PointLight) FaceMatrices() [6]math.Mat4 {
	near := l.Near
	if near <= 0 {
		near = 0.1
	}
	far := l.Far
	if far <= near {
		far = l.Range
	}
	proj := math.Perspective(math.Radians(90), 1, near, far)

	var faces [6]math.Mat4
	for i, f := range cubeFaces {
		faces[i] = proj.Mul(math.LookAt(l.Position, l.Position.Add(f[0]), f[1]))
	}
	return faces
}

// Lights is the set of lights for a frame.
type Lights struct {
	Directional []DirectionalLight
	Point       []PointLight
	Ambient     math.Vec3
}

// LightBuffer flattens lights into fixed-size arrays for uniform upload.
type LightBuffer struct {
	DirCount    int32
	DirDirs     [MaxDirectionalLights * 3]float32
	DirColors   [MaxDirectionalLights * 3]float32
	PointCount  int32
	PointPos    [MaxPointLights * 3]float32
	PointColors [MaxPointLights * 3]float32
	PointRanges [MaxPointLights]float32
	Ambient     [3]float32
}

// Buffer fills a LightBuffer. Lights beyond the array sizes are dropped.
// Colors are premultiplied by intensity.
func (ls *Lights) Buffer() LightBuffer {
	var b LightBuffer
	b.Ambient = ls.Ambient.Array()

	for i, l := range ls.Directional {
		if i >= MaxDirectionalLights {
			break
		}
		d := l.Direction.Normalize()
		c := l.Color.Scale(l.Intensity)
		copy(b.DirDirs[i*3:], []float32{d.X, d.Y, d.Z})
		copy(b.DirColors[i*3:], []float32{c.X, c.Y, c.Z})
		b.DirCount++
	}
	for i, l := range ls.Point {
		if i >= MaxPointLights {
			break
		}
		c := l.Color.Scale(l.Intensity)
		copy(b.PointPos[i*3:], []float32{l.Position.X, l.Position.Y, l.Position.Z})
		copy(b.PointColors[i*3:], []float32{c.X, c.Y, c.Z})
		b.PointRanges[i] = l.Range
		b.PointCount++
	}
	return b
}
