package geometry

import "github.com/Faultbox/midgard-scene/pkg/math"

// face is one quad of a box: its normal and two in-plane axes.
type face struct {
	n, u, v math.Vec3
}

var boxFaces = [6]face{
	{math.V3(1, 0, 0), math.V3(0, 0, -1), math.V3(0, 1, 0)},
	{math.V3(-1, 0, 0), math.V3(0, 0, 1), math.V3(0, 1, 0)},
	{math.V3(0, 1, 0), math.V3(1, 0, 0), math.V3(0, 0, -1)},
	{math.V3(0, -1, 0), math.V3(1, 0, 0), math.V3(0, 0, 1)},
	{math.V3(0, 0, 1), math.V3(1, 0, 0), math.V3(0, 1, 0)},
	{math.V3(0, 0, -1), math.V3(-1, 0, 0), math.V3(0, 1, 0)},
}

// Box returns an axis-aligned box centered at the origin with the given
// full extents. Each face has its own four vertices.
func Box(size math.Vec3) *Geometry {
	half := size.Scale(0.5)
	g := &Geometry{
		Vertices: make([]Vertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	for _, f := range boxFaces {
		base := uint32(len(g.Vertices))
		corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
		for _, c := range corners {
			p := f.n.Add(f.u.Scale(c[0])).Add(f.v.Scale(c[1]))
			p = math.V3(p.X*half.X, p.Y*half.Y, p.Z*half.Z)
			g.Vertices = append(g.Vertices, Vertex{
				Position: p.Array(),
				Normal:   f.n.Array(),
				UV:       [2]float32{(c[0] + 1) / 2, (c[1] + 1) / 2},
				Weights:  [4]float32{1},
			})
		}
		g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return g
}

// Plane returns a square in the XZ plane facing +Y.
func Plane(size float32) *Geometry {
	h := size / 2
	up := [3]float32{0, 1, 0}
	return &Geometry{
		Vertices: []Vertex{
			{Position: [3]float32{-h, 0, h}, Normal: up, UV: [2]float32{0, 0}, Weights: [4]float32{1}},
			{Position: [3]float32{h, 0, h}, Normal: up, UV: [2]float32{1, 0}, Weights: [4]float32{1}},
			{Position: [3]float32{h, 0, -h}, Normal: up, UV: [2]float32{1, 1}, Weights: [4]float32{1}},
			{Position: [3]float32{-h, 0, -h}, Normal: up, UV: [2]float32{0, 1}, Weights: [4]float32{1}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// Quad returns a unit-height billboard in the XY plane facing +Z.
func Quad(width, height float32) *Geometry {
	w, h := width/2, height/2
	fwd := [3]float32{0, 0, 1}
	return &Geometry{
		Vertices: []Vertex{
			{Position: [3]float32{-w, -h, 0}, Normal: fwd, UV: [2]float32{0, 0}, Weights: [4]float32{1}},
			{Position: [3]float32{w, -h, 0}, Normal: fwd, UV: [2]float32{1, 0}, Weights: [4]float32{1}},
			{Position: [3]float32{w, h, 0}, Normal: fwd, UV: [2]float32{1, 1}, Weights: [4]float32{1}},
			{Position: [3]float32{-w, h, 0}, Normal: fwd, UV: [2]float32{0, 1}, Weights: [4]float32{1}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}
