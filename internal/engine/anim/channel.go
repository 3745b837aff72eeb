package anim

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-scene/pkg/math"
)

// PositionKey is a translation keyframe.
type PositionKey struct {
	Time  float32
	Value math.Vec3
}

// RotationKey is a rotation keyframe holding a unit quaternion.
type RotationKey struct {
	Time  float32
	Value math.Quat
}

// ScaleKey is a non-uniform scale keyframe.
type ScaleKey struct {
	Time  float32
	Value math.Vec3
}

// KeyTime implements Keyframe.
func (k PositionKey) KeyTime() float32 { return k.Time }

// KeyTime implements Keyframe.
func (k RotationKey) KeyTime() float32 { return k.Time }

// KeyTime implements Keyframe.
func (k ScaleKey) KeyTime() float32 { return k.Time }

// Keyframe is any key with a time stamp in ticks.
type Keyframe interface {
	PositionKey | RotationKey | ScaleKey
	KeyTime() float32
}

// Channel holds the keyframes that drive a single node.
type Channel struct {
	Node      string
	Positions []PositionKey
	Rotations []RotationKey
	Scales    []ScaleKey
}

// Validate checks that every sequence is non-empty and strictly ascending.
func (ch *Channel) Validate() error {
	return multierr.Combine(
		validateKeys(ch.Node, "position", ch.Positions),
		validateKeys(ch.Node, "rotation", ch.Rotations),
		validateKeys(ch.Node, "scale", ch.Scales),
	)
}

func validateKeys[K Keyframe](node, seq string, keys []K) error {
	if len(keys) == 0 {
		return fmt.Errorf("node %q %s keys: %w", node, seq, ErrEmptySequence)
	}
	for i := 1; i < len(keys); i++ {
		if !(keys[i].KeyTime() > keys[i-1].KeyTime()) {
			return fmt.Errorf("node %q %s keys %d..%d (t=%v, t=%v): %w",
				node, seq, i-1, i, keys[i-1].KeyTime(), keys[i].KeyTime(), ErrKeysOutOfOrder)
		}
	}
	return nil
}

// FindBracket returns the index i such that keys[i].Time <= t < keys[i+1].Time.
// It returns -1 when t precedes the first key and len(keys)-1 when t is at or
// past the last key. A single-key sequence always yields 0.
func FindBracket[K Keyframe](t float32, keys []K) int {
	if len(keys) == 1 {
		return 0
	}
	// First key strictly after t; the bracket starts one before it.
	next := sort.Search(len(keys), func(j int) bool {
		return keys[j].KeyTime() > t
	})
	return next - 1
}

// InterpolatePosition samples the position sequence at clip time t.
func (ch *Channel) InterpolatePosition(t float32) math.Vec3 {
	i, f, ok := sample(t, ch.Positions)
	if !ok {
		if len(ch.Positions) == 0 {
			return math.Vec3{}
		}
		return ch.Positions[i].Value
	}
	return ch.Positions[i].Value.Lerp(ch.Positions[i+1].Value, f)
}

// InterpolateScale samples the scale sequence at clip time t.
func (ch *Channel) InterpolateScale(t float32) math.Vec3 {
	i, f, ok := sample(t, ch.Scales)
	if !ok {
		if len(ch.Scales) == 0 {
			return math.V3(1, 1, 1)
		}
		return ch.Scales[i].Value
	}
	return ch.Scales[i].Value.Lerp(ch.Scales[i+1].Value, f)
}

// InterpolateRotation samples the rotation sequence at clip time t.
// The result is always a unit quaternion.
func (ch *Channel) InterpolateRotation(t float32) math.Quat {
	i, f, ok := sample(t, ch.Rotations)
	if !ok {
		if len(ch.Rotations) == 0 {
			return math.QuatIdentity()
		}
		return ch.Rotations[i].Value.Normalize()
	}
	return ch.Rotations[i].Value.Slerp(ch.Rotations[i+1].Value, f)
}

// sample locates the bracket for t. When ok is false, i is the key to hold
// (first or last) and no blending is required.
func sample[K Keyframe](t float32, keys []K) (i int, factor float32, ok bool) {
	if len(keys) < 2 {
		return 0, 0, false
	}

	i = FindBracket(t, keys)
	if i < 0 {
		return 0, 0, false
	}
	if i >= len(keys)-1 {
		return len(keys) - 1, 0, false
	}

	t0, t1 := keys[i].KeyTime(), keys[i+1].KeyTime()
	factor = (t - t0) / (t1 - t0)
	if factor < 0 || factor > 1 {
		panic(fmt.Sprintf("anim: interpolation factor %v outside [0,1] for t=%v in [%v,%v]", factor, t, t0, t1))
	}
	return i, factor, true
}
