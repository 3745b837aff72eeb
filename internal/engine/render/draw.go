package render

import (
	"sort"

	"github.com/Faultbox/midgard-scene/internal/engine/node"
	"github.com/Faultbox/midgard-scene/pkg/math"
)

// DrawCall is one mesh draw handed to the backend.
type DrawCall struct {
	Pass     PassKind
	Variant  Variant
	Program  Program
	Mesh     *node.Mesh
	Node     *node.Node
	World    math.Mat4
	Material node.MaterialFlags

	// Bones is the pose array of the nearest enclosing skeleton with bones,
	// or nil for rigid meshes.
	Bones []math.Mat4

	// TextureBase is the first texture unit free for material maps.
	TextureBase int32
	Blended     bool
}

// deferredDraw is a partially transparent draw held back until the color
// pass traversal completes.
type deferredDraw struct {
	call   DrawCall
	distSq float32
}

// PassStats counts the draws issued by one traversal.
type PassStats struct {
	Pass      PassKind
	Immediate int
	Deferred  int
}

// Draws returns the total number of draw calls.
func (s PassStats) Draws() int {
	return s.Immediate + s.Deferred
}

// drawer runs draw_objects traversals. The deferred slice is reused across
// color passes.
type drawer struct {
	backend  Backend
	deferred []deferredDraw
}

type traversal struct {
	pass        PassKind
	shaders     ShaderSet
	cameraPos   math.Vec3
	textureBase int32
	stats       PassStats
}

// DrawObjects traverses the visible tree under root and draws every mesh
// for the given pass. In the color pass, partially transparent meshes are
// drawn last, farthest from cameraPos first, with blending enabled.
func (d *drawer) DrawObjects(root *node.Node, shaders ShaderSet, pass PassKind, cameraPos math.Vec3, textureBase int32) (PassStats, error) {
	t := &traversal{
		pass:        pass,
		shaders:     shaders,
		cameraPos:   cameraPos,
		textureBase: textureBase,
		stats:       PassStats{Pass: pass},
	}
	d.deferred = d.deferred[:0]

	if err := d.visit(t, root, nil); err != nil {
		return t.stats, err
	}
	if len(d.deferred) == 0 {
		return t.stats, nil
	}

	sort.SliceStable(d.deferred, func(i, j int) bool {
		return d.deferred[i].distSq > d.deferred[j].distSq
	})

	d.backend.SetBlending(true)
	for i := range d.deferred {
		d.backend.Draw(d.deferred[i].call)
		t.stats.Deferred++
	}
	d.backend.SetBlending(false)
	d.deferred = d.deferred[:0]
	return t.stats, nil
}

func (d *drawer) visit(t *traversal, n *node.Node, bones []math.Mat4) error {
	if !n.Visible {
		return nil
	}
	if s := n.Skeleton(); s != nil {
		bones = nil
		if s.BoneCount() > 0 {
			bones = s.BonePoses()
		}
	}

	for _, mesh := range n.Meshes {
		v := VariantFor(mesh.Transparency)
		prog, ok := t.shaders.Program(v)
		if !ok {
			return missingVariant(t.pass, v, mesh.Name)
		}
		call := DrawCall{
			Pass:        t.pass,
			Variant:     v,
			Program:     prog,
			Mesh:        mesh,
			Node:        n,
			World:       n.World(),
			Material:    mesh.Material.Flags(),
			Bones:       bones,
			TextureBase: t.textureBase,
		}

		if v == VariantPartialTransparent && t.pass == Color {
			call.Blended = true
			d.deferred = append(d.deferred, deferredDraw{
				call:   call,
				distSq: call.World.Translation().DistanceSq(t.cameraPos),
			})
			continue
		}
		d.backend.Draw(call)
		t.stats.Immediate++
	}

	for _, c := range n.Children() {
		if err := d.visit(t, c, bones); err != nil {
			return err
		}
	}
	return nil
}
