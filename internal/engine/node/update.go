package node

import (
	"time"

	"github.com/Faultbox/midgard-scene/internal/engine/anim"
	"github.com/Faultbox/midgard-scene/pkg/math"
)

// Update runs the update phase for the tree under root. now is the clock
// reading sampled once for the frame.
func Update(root *Node, now time.Duration) {
	root.update(math.Identity(), now)
}

func (n *Node) update(parentWorld math.Mat4, now time.Duration) {
	if n.skeleton != nil {
		n.skeleton.Update(parentWorld, now)
		return
	}
	n.propagate(parentWorld, now)
}

func (n *Node) propagate(parentWorld math.Mat4, now time.Duration) {
	n.world = parentWorld.Mul(n.LocalMatrix())
	for _, c := range n.children {
		c.update(n.world, now)
	}
}

// Update computes world matrices and bone poses for the skeleton's subtree.
// Skeletons without bones fall back to plain transform propagation.
func (s *Skeleton) Update(parentWorld math.Mat4, now time.Duration) {
	s.base = parentWorld
	s.now = now
	s.invWorld = parentWorld.Mul(s.root.LocalMatrix()).Inverse()
	s.clipTime = s.AnimationTimeAt(now)

	if len(s.offsets) == 0 {
		s.root.propagate(parentWorld, now)
		return
	}

	var clip *anim.Clip
	if s.state != NoAnimation {
		clip = s.current
	}
	s.root.UpdateArmature(math.Identity(), s, clip, s.clipTime)
}

// UpdateArmature computes n's armature-space transform from acc and recurses
// into its children. Animated nodes take their transform from clip when it
// has a channel for them. Bone nodes write their final pose into owner.
func (n *Node) UpdateArmature(acc math.Mat4, owner *Skeleton, clip *anim.Clip, clipTime float32) {
	var global math.Mat4
	var ch *anim.Channel
	if n.Animated && clip != nil {
		ch = clip.Channel(n.Name)
	}
	if ch != nil {
		global = acc.
			Mul(math.TranslateV(ch.InterpolatePosition(clipTime))).
			Mul(ch.InterpolateRotation(clipTime).ToMat4()).
			Mul(math.ScaleV(ch.InterpolateScale(clipTime))).
			Mul(n.Transform.Matrix(false))
	} else {
		global = acc.Mul(n.LocalMatrix())
	}

	n.world = owner.base.Mul(global)

	if n.BoneSlot >= 0 && n.BoneSlot < len(owner.offsets) {
		owner.poses[n.BoneSlot] = global.Mul(owner.offsets[n.BoneSlot]).Mul(owner.invWorld)
	}

	for _, c := range n.children {
		if c.skeleton != nil {
			c.skeleton.Update(n.world, owner.now)
			continue
		}
		c.UpdateArmature(global, owner, clip, clipTime)
	}
}
