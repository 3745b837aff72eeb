// Package geometry holds CPU-side mesh data and procedural shapes.
package geometry

import (
	"fmt"

	"github.com/Faultbox/midgard-scene/pkg/math"
)

// Vertex is the interleaved layout uploaded to the GPU.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
	Joints   [4]float32 // Bone slots, as floats for attribute upload
	Weights  [4]float32
}

// VertexSize is the byte size of one Vertex.
const VertexSize = 4 * (3 + 3 + 2 + 4 + 4)

// Geometry is an indexed triangle list.
type Geometry struct {
	Vertices []Vertex
	Indices  []uint32
}

// Validate checks that every index refers to a vertex and that the index
// count is a multiple of three.
func (g *Geometry) Validate() error {
	if len(g.Indices)%3 != 0 {
		return fmt.Errorf("geometry: %d indices is not a triangle list", len(g.Indices))
	}
	for i, idx := range g.Indices {
		if int(idx) >= len(g.Vertices) {
			return fmt.Errorf("geometry: index %d at %d out of range (%d vertices)", idx, i, len(g.Vertices))
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounds of the vertices.
func (g *Geometry) Bounds() (min, max math.Vec3) {
	if len(g.Vertices) == 0 {
		return
	}
	p := g.Vertices[0].Position
	min, max = math.V3(p[0], p[1], p[2]), math.V3(p[0], p[1], p[2])
	for _, v := range g.Vertices[1:] {
		p := v.Position
		min = math.V3(minf(min.X, p[0]), minf(min.Y, p[1]), minf(min.Z, p[2]))
		max = math.V3(maxf(max.X, p[0]), maxf(max.Y, p[1]), maxf(max.Z, p[2]))
	}
	return min, max
}

// BindAll assigns every vertex fully to one bone slot.
func (g *Geometry) BindAll(slot int) {
	for i := range g.Vertices {
		g.Vertices[i].Joints = [4]float32{float32(slot)}
		g.Vertices[i].Weights = [4]float32{1}
	}
}

// BindByHeight blends vertices between two bone slots by their Y
// coordinate: at or below y0 fully lower, at or above y1 fully upper.
func (g *Geometry) BindByHeight(lower, upper int, y0, y1 float32) {
	for i := range g.Vertices {
		w := float32(0)
		if y1 > y0 {
			w = (g.Vertices[i].Position[1] - y0) / (y1 - y0)
		}
		w = maxf(0, minf(1, w))
		g.Vertices[i].Joints = [4]float32{float32(lower), float32(upper)}
		g.Vertices[i].Weights = [4]float32{1 - w, w}
	}
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
