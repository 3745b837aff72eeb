package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-scene/internal/engine/anim"
	"github.com/Faultbox/midgard-scene/pkg/math"
)

// walkClip moves node "bone" from (0,1,0) to (0,3,0) over 10 ticks at 10 tps.
func walkClip(name string) *anim.Clip {
	c := anim.NewClip(name, 10, 10)
	c.AddChannel(&anim.Channel{
		Node: "bone",
		Positions: []anim.PositionKey{
			{Time: 0, Value: math.V3(0, 1, 0)},
			{Time: 10, Value: math.V3(0, 3, 0)},
		},
		Rotations: []anim.RotationKey{{Time: 0, Value: math.QuatIdentity()}},
		Scales:    []anim.ScaleKey{{Time: 0, Value: math.V3(1, 1, 1)}},
	})
	return c
}

func newRig(t *testing.T, clock anim.Clock, clips ...*anim.Clip) (*Skeleton, *Node) {
	t.Helper()
	root, bone := New("root"), New("bone")
	bone.BoneSlot = 0
	require.NoError(t, root.AddChild(bone))

	s, err := NewSkeleton(root, []math.Mat4{math.Translate(0, -1, 0)}, clips, Options{Clock: clock})
	require.NoError(t, err)
	return s, bone
}

func TestNewSkeletonBoneLimit(t *testing.T) {
	offsets := make([]math.Mat4, 11)
	_, err := NewSkeleton(New("big"), offsets, nil, Options{})
	assert.ErrorIs(t, err, ErrTooManyBones)
	assert.Contains(t, err.Error(), "big")

	_, err = NewSkeleton(New("big"), offsets, nil, Options{MaxBones: 16})
	assert.NoError(t, err)
}

func TestNewSkeletonBoneSlots(t *testing.T) {
	root, a, b := New("root"), New("a"), New("b")
	a.BoneSlot, b.BoneSlot = 0, 0
	require.NoError(t, root.AddChild(a))
	require.NoError(t, root.AddChild(b))

	_, err := NewSkeleton(root, []math.Mat4{math.Identity()}, nil, Options{})
	assert.ErrorIs(t, err, ErrDuplicateBoneSlot)

	b.BoneSlot = 4
	_, err = NewSkeleton(root, []math.Mat4{math.Identity()}, nil, Options{})
	assert.ErrorIs(t, err, ErrBoneSlotRange)
	assert.Nil(t, root.Skeleton())
}

func TestNewSkeletonRejectsInvalidClips(t *testing.T) {
	bad := anim.NewClip("bad", 0, 10)
	_, err := NewSkeleton(New("r"), nil, []*anim.Clip{walkClip("a"), walkClip("a"), bad}, Options{})
	assert.ErrorIs(t, err, ErrDuplicateClip)
	assert.ErrorIs(t, err, anim.ErrNonPositiveRate)
}

func TestNewSkeletonMarksAnimated(t *testing.T) {
	_, bone := newRig(t, &anim.ManualClock{}, walkClip("walk"))
	assert.True(t, bone.Animated)
	assert.False(t, bone.Parent().Animated)
}

func TestClipsSorted(t *testing.T) {
	s, _ := newRig(t, &anim.ManualClock{}, walkClip("walk"), walkClip("idle"), walkClip("run"))
	assert.Equal(t, []string{"idle", "run", "walk"}, s.Clips())
}

func TestNextClipCycles(t *testing.T) {
	s, _ := newRig(t, &anim.ManualClock{}, walkClip("walk"), walkClip("idle"), walkClip("run"))

	var got []string
	for i := 0; i < 4; i++ {
		require.NoError(t, s.NextClip())
		got = append(got, s.Clip().Name)
	}
	assert.Equal(t, []string{"idle", "run", "walk", "idle"}, got)
	assert.Equal(t, NoAnimation, s.State(), "selecting a clip does not start playback")

	empty, _ := newRig(t, &anim.ManualClock{})
	assert.ErrorIs(t, empty.NextClip(), ErrNoClip)
}

func TestPlaybackStateMachine(t *testing.T) {
	clock := &anim.ManualClock{}
	s, _ := newRig(t, clock, walkClip("walk"), walkClip("run"))

	assert.Equal(t, NoAnimation, s.State())
	assert.ErrorIs(t, s.Play(), ErrNoClip)
	assert.ErrorIs(t, s.SetTime(1), ErrNoClip)
	assert.ErrorIs(t, s.SetClip("fly"), ErrClipNotFound)

	require.NoError(t, s.SetClip("walk"))
	assert.Equal(t, NoAnimation, s.State())
	assert.Zero(t, s.AnimationTime())

	require.NoError(t, s.Play())
	clock.Advance(500 * time.Millisecond)
	assert.InDelta(t, 5, s.AnimationTime(), 1e-4)

	s.Pause()
	assert.Equal(t, Paused, s.State())
	clock.Advance(time.Second)
	assert.InDelta(t, 5, s.AnimationTime(), 1e-4)

	require.NoError(t, s.Play())
	clock.Advance(200 * time.Millisecond)
	assert.InDelta(t, 7, s.AnimationTime(), 1e-4)

	require.NoError(t, s.SetClip("run"))
	assert.Equal(t, Playing, s.State())
	assert.Zero(t, s.AnimationTime())
	clock.Advance(100 * time.Millisecond)
	assert.InDelta(t, 1, s.AnimationTime(), 1e-4)

	s.Disable()
	assert.Equal(t, NoAnimation, s.State())
	assert.Nil(t, s.Clip())
	assert.Zero(t, s.AnimationTime())
}

func TestPlaybackWraps(t *testing.T) {
	clock := &anim.ManualClock{}
	s, _ := newRig(t, clock, walkClip("walk"))
	require.NoError(t, s.SetClip("walk"))
	require.NoError(t, s.Play())

	clock.Advance(1250 * time.Millisecond)
	assert.InDelta(t, 2.5, s.AnimationTime(), 1e-3)
}

func TestSetTime(t *testing.T) {
	clock := &anim.ManualClock{}
	s, _ := newRig(t, clock, walkClip("walk"))
	require.NoError(t, s.SetClip("walk"))
	require.NoError(t, s.Play())
	s.Pause()

	require.NoError(t, s.SetTime(3))
	assert.InDelta(t, 3, s.AnimationTime(), 1e-3)
	for _, tm := range []float32{0.0997, 0.1, 1.0 / 3, 7.77, 9.999} {
		require.NoError(t, s.SetTime(tm))
		assert.Equal(t, tm, s.AnimationTime(), "t=%v", tm)
	}
	require.NoError(t, s.SetTime(3))

	require.NoError(t, s.Play())
	clock.Advance(100 * time.Millisecond)
	assert.InDelta(t, 4, s.AnimationTime(), 1e-3)
}

func TestPauseIsNoOpUnlessPlaying(t *testing.T) {
	s, _ := newRig(t, &anim.ManualClock{}, walkClip("walk"))
	var events []Event
	s.OnEvent(func(e Event) { events = append(events, e) })

	s.Pause()
	assert.Equal(t, NoAnimation, s.State())
	assert.Empty(t, events)
}

func TestObservers(t *testing.T) {
	s, _ := newRig(t, &anim.ManualClock{}, walkClip("walk"))
	var events []Event
	s.OnEvent(func(e Event) { events = append(events, e) })

	require.NoError(t, s.SetClip("walk"))
	require.NoError(t, s.TogglePlay())
	require.NoError(t, s.TogglePlay())

	require.Len(t, events, 3)
	assert.Equal(t, EventClipChanged, events[0].Kind)
	assert.Equal(t, "walk", events[0].Clip)
	assert.Equal(t, Event{Kind: EventStateChanged, Skeleton: s, Clip: "walk", State: Playing}, events[1])
	assert.Equal(t, Paused, events[2].State)
}

func TestBonePoseBindWithoutAnimation(t *testing.T) {
	s, bone := newRig(t, &anim.ManualClock{})
	bone.Transform.Position = math.V3(0, 1, 0)

	Update(s.Root(), 0)

	poses := s.BonePoses()
	require.Len(t, poses, DefaultMaxBones)
	for i, p := range poses {
		assert.True(t, p.ApproxEqual(math.Identity(), eps), "slot %d", i)
	}
}

func TestBonePoseFollowsClip(t *testing.T) {
	clock := &anim.ManualClock{}
	s, bone := newRig(t, clock, walkClip("walk"))
	require.NoError(t, s.SetClip("walk"))
	require.NoError(t, s.Play())
	clock.Advance(500 * time.Millisecond)

	Update(s.Root(), clock.Now())

	assert.True(t, s.BonePoses()[0].ApproxEqual(math.Translate(0, 1, 0), 1e-4))
	assert.InDelta(t, 2, bone.World().Translation().Y, 1e-4)
}

func TestBonePoseFrozenWhilePaused(t *testing.T) {
	clock := &anim.ManualClock{}
	s, _ := newRig(t, clock, walkClip("walk"))
	require.NoError(t, s.SetClip("walk"))
	require.NoError(t, s.Play())
	clock.Advance(300 * time.Millisecond)
	s.Pause()

	Update(s.Root(), clock.Now())
	before := s.BonePoses()[0]
	clock.Advance(2 * time.Second)
	Update(s.Root(), clock.Now())

	assert.Equal(t, before, s.BonePoses()[0])
}

func TestBonePoseUsesInverseRootWorld(t *testing.T) {
	s, bone := newRig(t, &anim.ManualClock{})
	s.Root().Transform.Position = math.V3(5, 0, 0)
	bone.Transform.Position = math.V3(0, 1, 0)

	Update(s.Root(), 0)

	// global = T(5,1,0), offset = T(0,-1,0), inverse root world = T(-5,0,0)
	assert.True(t, s.BonePoses()[0].ApproxEqual(math.Identity(), eps))
	assert.Equal(t, math.V3(5, 1, 0), bone.World().Translation())
}

func TestNestedSkeleton(t *testing.T) {
	clock := &anim.ManualClock{}
	outer, bone := newRig(t, clock)
	bone.Transform.Position = math.V3(0, 1, 0)

	inner, innerBone := New("inner"), New("innerBone")
	inner.Transform.Position = math.V3(2, 0, 0)
	innerBone.BoneSlot = 0
	innerBone.Transform.Position = math.V3(0, 0, 4)
	require.NoError(t, inner.AddChild(innerBone))
	require.NoError(t, bone.AddChild(inner))
	nested, err := NewSkeleton(inner, []math.Mat4{math.Identity()}, nil, Options{Clock: clock})
	require.NoError(t, err)

	Update(outer.Root(), 0)

	assert.Equal(t, math.V3(2, 1, 4), innerBone.World().Translation())
	// innerBone global T(2,0,4) * inverse(inner world T(2,1,0))
	assert.True(t, nested.BonePoses()[0].ApproxEqual(math.Translate(0, -1, 4), eps))
	assert.True(t, outer.BonePoses()[0].ApproxEqual(math.Identity(), eps))
}

// slideClip moves node "innerBone" along X one unit per tick over 10 ticks.
func slideClip(name string, tps float32) *anim.Clip {
	c := anim.NewClip(name, tps, 10)
	c.AddChannel(&anim.Channel{
		Node: "innerBone",
		Positions: []anim.PositionKey{
			{Time: 0, Value: math.V3(0, 0, 0)},
			{Time: 10, Value: math.V3(10, 0, 0)},
		},
		Rotations: []anim.RotationKey{{Time: 0, Value: math.QuatIdentity()}},
		Scales:    []anim.ScaleKey{{Time: 0, Value: math.V3(1, 1, 1)}},
	})
	return c
}

func TestNestedSkeletonPlaysIndependently(t *testing.T) {
	clock := &anim.ManualClock{}
	outer, bone := newRig(t, clock, walkClip("walk"))

	inner, innerBone := New("inner"), New("innerBone")
	inner.Transform.Position = math.V3(2, 0, 0)
	innerBone.BoneSlot = 0
	require.NoError(t, inner.AddChild(innerBone))
	require.NoError(t, bone.AddChild(inner))
	nested, err := NewSkeleton(inner, []math.Mat4{math.Identity()}, []*anim.Clip{slideClip("fast", 20)}, Options{Clock: clock})
	require.NoError(t, err)
	assert.True(t, innerBone.Animated)
	assert.False(t, inner.Animated)

	require.NoError(t, outer.SetClip("walk"))
	require.NoError(t, outer.Play())
	clock.Advance(200 * time.Millisecond)
	require.NoError(t, nested.SetClip("fast"))
	require.NoError(t, nested.Play())
	clock.Advance(100 * time.Millisecond)

	Update(outer.Root(), clock.Now())

	assert.InDelta(t, 3, outer.AnimationTime(), 1e-4)
	assert.InDelta(t, 2, nested.AnimationTime(), 1e-4)
	// outer bone world T(0,1.6,0); nested global T(2,0,0)*T(2,0,0)
	assert.True(t, outer.BonePoses()[0].ApproxEqual(math.Translate(0, 0.6, 0), eps))
	assert.True(t, nested.BonePoses()[0].ApproxEqual(math.Translate(2, -1.6, 0), eps))
	assert.True(t, innerBone.World().ApproxEqual(math.Translate(4, 1.6, 0), eps))

	outer.Pause()
	clock.Advance(100 * time.Millisecond)
	Update(outer.Root(), clock.Now())

	assert.InDelta(t, 3, outer.AnimationTime(), 1e-4)
	assert.InDelta(t, 4, nested.AnimationTime(), 1e-4)
	assert.True(t, outer.BonePoses()[0].ApproxEqual(math.Translate(0, 0.6, 0), eps))
	assert.True(t, nested.BonePoses()[0].ApproxEqual(math.Translate(4, -1.6, 0), eps))

	nested.Disable()
	Update(outer.Root(), clock.Now())
	assert.InDelta(t, 3, outer.AnimationTime(), 1e-4)
	assert.True(t, nested.BonePoses()[0].ApproxEqual(math.Translate(0, -1.6, 0), eps))
}

func TestBonelessSkeletonPropagates(t *testing.T) {
	root, child := New("root"), New("child")
	root.Transform.Position = math.V3(1, 0, 0)
	child.Transform.Position = math.V3(0, 1, 0)
	require.NoError(t, root.AddChild(child))
	_, err := NewSkeleton(root, nil, nil, Options{})
	require.NoError(t, err)

	Update(root, 0)

	assert.Equal(t, math.V3(1, 1, 0), child.World().Translation())
}
