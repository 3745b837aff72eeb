// Package node implements the transform hierarchy, skeletal roots and
// their per-frame update.
package node

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-scene/pkg/math"
)

// Tree errors.
var (
	ErrHasParent = errors.New("node already has a parent")
	ErrCycle     = errors.New("node would become its own ancestor")
)

// Kind tags the capabilities of a node.
type Kind int

const (
	// KindTransform is a plain transform node.
	KindTransform Kind = iota
	// KindSkeleton is a node that owns a bone list and animation clips.
	KindSkeleton
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindSkeleton {
		return "Skeleton"
	}
	return "Transform"
}

// Transform is a node's local placement.
// Rotation angles are in degrees.
type Transform struct {
	Position math.Vec3
	Scale    math.Vec3
	Yaw      float32 // Around Y
	Pitch    float32 // Around X
	Roll     float32 // Around Z

	// Baked is an optional imported base matrix applied before the rest.
	Baked *math.Mat4
}

// Matrix composes Baked * T * Ry(yaw) * Rx(pitch) * Rz(roll) * S.
// When withBaked is false the baked term is treated as identity.
func (t Transform) Matrix(withBaked bool) math.Mat4 {
	result := math.Identity()
	if withBaked && t.Baked != nil {
		result = *t.Baked
	}
	result = result.Mul(math.TranslateV(t.Position))
	result = result.Mul(math.RotateY(math.Radians(t.Yaw)))
	result = result.Mul(math.RotateX(math.Radians(t.Pitch)))
	result = result.Mul(math.RotateZ(math.Radians(t.Roll)))
	result = result.Mul(math.ScaleV(t.Scale))
	return result
}

// Node is a scene graph node. Children are owned exclusively by their
// parent; meshes are shared.
type Node struct {
	Name      string
	Visible   bool
	Transform Transform

	// BoneSlot indexes the owning skeleton's bone arrays, or -1.
	BoneSlot int
	// Animated marks a node whose transform comes from clip channels.
	Animated bool

	Meshes []*Mesh

	parent   *Node
	children []*Node
	skeleton *Skeleton

	// Written only during the update phase.
	world math.Mat4
}

// New creates a visible node with unit scale and no bone slot.
func New(name string) *Node {
	return &Node{
		Name:      name,
		Visible:   true,
		Transform: Transform{Scale: math.V3(1, 1, 1)},
		BoneSlot:  -1,
		world:     math.Identity(),
	}
}

// LocalMatrix returns the node's local transform including the baked term.
func (n *Node) LocalMatrix() math.Mat4 {
	return n.Transform.Matrix(true)
}

// World returns the world matrix computed by the last update.
func (n *Node) World() math.Mat4 {
	return n.world
}

// Kind returns KindSkeleton for skeletal roots.
func (n *Node) Kind() Kind {
	if n.skeleton != nil {
		return KindSkeleton
	}
	return KindTransform
}

// Skeleton returns the skeleton rooted at n, or nil.
func (n *Node) Skeleton() *Skeleton {
	return n.skeleton
}

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the ordered child list. Callers must not modify it.
func (n *Node) Children() []*Node {
	return n.children
}

// AddMesh appends a shared mesh reference.
func (n *Node) AddMesh(m *Mesh) {
	n.Meshes = append(n.Meshes, m)
}

// AddChild appends child to n's children, taking ownership of it.
func (n *Node) AddChild(child *Node) error {
	if child.parent != nil {
		return fmt.Errorf("adding %q to %q: %w", child.Name, n.Name, ErrHasParent)
	}
	for a := n; a != nil; a = a.parent {
		if a == child {
			return fmt.Errorf("adding %q to %q: %w", child.Name, n.Name, ErrCycle)
		}
	}
	child.parent = n
	n.children = append(n.children, child)
	return nil
}

// RemoveChild detaches child from n. It reports whether child was found.
func (n *Node) RemoveChild(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Walk visits n and its descendants depth-first in pre-order.
// Returning false from fn skips the visited node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// FindByName returns the first node named name in pre-order, or nil.
func (n *Node) FindByName(name string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.Name == name {
			found = c
			return false
		}
		return true
	})
	return found
}
