package node

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-scene/internal/engine/anim"
	"github.com/Faultbox/midgard-scene/internal/logger"
	"github.com/Faultbox/midgard-scene/pkg/math"
)

// DefaultMaxBones is the bone limit of the skinning shader's uniform array.
const DefaultMaxBones = 10

// Skeleton errors.
var (
	ErrTooManyBones      = errors.New("bone count exceeds limit")
	ErrBoneSlotRange     = errors.New("bone slot out of range")
	ErrDuplicateBoneSlot = errors.New("bone slot used twice")
	ErrDuplicateClip     = errors.New("duplicate clip name")
	ErrClipNotFound      = errors.New("clip not found")
	ErrNoClip            = errors.New("no clip selected")
	ErrAlreadySkeleton   = errors.New("node is already a skeletal root")
)

// PlaybackState is the animation state of a skeleton.
type PlaybackState int

const (
	NoAnimation PlaybackState = iota
	Paused
	Playing
)

// String returns the state name.
func (s PlaybackState) String() string {
	switch s {
	case Paused:
		return "Paused"
	case Playing:
		return "Playing"
	default:
		return "NoAnimation"
	}
}

// EventKind identifies a skeleton notification.
type EventKind int

const (
	EventClipChanged EventKind = iota
	EventStateChanged
)

// Event is delivered to observers after a playback change.
type Event struct {
	Kind     EventKind
	Skeleton *Skeleton
	Clip     string
	State    PlaybackState
}

// Options configures a skeleton.
type Options struct {
	// MaxBones defaults to DefaultMaxBones.
	MaxBones int
	// Clock defaults to a SystemClock started at construction.
	Clock anim.Clock
}

// Skeleton turns a node into a skeletal root: it owns the bone offset list,
// the clip table and the playback state machine.
type Skeleton struct {
	root     *Node
	offsets  []math.Mat4
	poses    []math.Mat4
	maxBones int

	clips   map[string]*anim.Clip
	current *anim.Clip

	state     PlaybackState
	clock     anim.Clock
	seek      float32       // Tick the accumulated play time counts from
	accum     time.Duration // Play time banked by earlier pauses
	startedAt time.Duration // Clock reading when the current run began

	// Per-frame values, valid during Update.
	base     math.Mat4
	invWorld math.Mat4
	now      time.Duration
	clipTime float32

	observers []func(Event)
	log       *zap.Logger
}

// NewSkeleton attaches a skeleton to root. offsets holds one bind offset per
// bone slot. Nodes named by any clip channel are marked animated.
func NewSkeleton(root *Node, offsets []math.Mat4, clips []*anim.Clip, opts Options) (*Skeleton, error) {
	if root.skeleton != nil {
		return nil, fmt.Errorf("skeleton %q: %w", root.Name, ErrAlreadySkeleton)
	}
	if opts.MaxBones <= 0 {
		opts.MaxBones = DefaultMaxBones
	}
	if opts.Clock == nil {
		opts.Clock = anim.NewSystemClock()
	}
	if len(offsets) > opts.MaxBones {
		return nil, fmt.Errorf("skeleton %q: %w: %d bones, limit %d",
			root.Name, ErrTooManyBones, len(offsets), opts.MaxBones)
	}

	s := &Skeleton{
		root:     root,
		offsets:  append([]math.Mat4(nil), offsets...),
		poses:    make([]math.Mat4, opts.MaxBones),
		maxBones: opts.MaxBones,
		clips:    make(map[string]*anim.Clip, len(clips)),
		clock:    opts.Clock,
		base:     math.Identity(),
		invWorld: math.Identity(),
		log:      logger.Named("skeleton").With(zap.String("root", root.Name)),
	}
	for i := range s.poses {
		s.poses[i] = math.Identity()
	}

	var errs error
	for _, c := range clips {
		if _, dup := s.clips[c.Name]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrDuplicateClip, c.Name))
			continue
		}
		errs = multierr.Append(errs, c.Validate())
		s.clips[c.Name] = c
	}
	errs = multierr.Append(errs, s.checkBoneSlots())
	if errs != nil {
		return nil, fmt.Errorf("skeleton %q: %w", root.Name, errs)
	}

	s.markAnimated()
	root.skeleton = s
	s.log.Debug("skeleton created",
		zap.Int("bones", len(offsets)),
		zap.Int("clips", len(clips)))
	return s, nil
}

// armature visits the nodes owned by s, stopping at nested skeletal roots.
func (s *Skeleton) armature(fn func(*Node)) {
	s.root.Walk(func(n *Node) bool {
		if n != s.root && n.skeleton != nil {
			return false
		}
		fn(n)
		return true
	})
}

func (s *Skeleton) checkBoneSlots() error {
	var errs error
	seen := make(map[int]string)
	s.armature(func(n *Node) {
		if n.BoneSlot < 0 {
			return
		}
		if n.BoneSlot >= len(s.offsets) {
			errs = multierr.Append(errs, fmt.Errorf("%w: node %q slot %d, %d bones",
				ErrBoneSlotRange, n.Name, n.BoneSlot, len(s.offsets)))
			return
		}
		if prev, ok := seen[n.BoneSlot]; ok {
			errs = multierr.Append(errs, fmt.Errorf("%w: slot %d on %q and %q",
				ErrDuplicateBoneSlot, n.BoneSlot, prev, n.Name))
			return
		}
		seen[n.BoneSlot] = n.Name
	})
	return errs
}

func (s *Skeleton) markAnimated() {
	s.armature(func(n *Node) {
		for _, c := range s.clips {
			if c.Channel(n.Name) != nil {
				n.Animated = true
				return
			}
		}
	})
}

// Root returns the node the skeleton is attached to.
func (s *Skeleton) Root() *Node { return s.root }

// State returns the playback state.
func (s *Skeleton) State() PlaybackState { return s.state }

// Clip returns the selected clip, or nil.
func (s *Skeleton) Clip() *anim.Clip { return s.current }

// BoneCount returns the number of bones.
func (s *Skeleton) BoneCount() int { return len(s.offsets) }

// MaxBones returns the bone pose array size.
func (s *Skeleton) MaxBones() int { return s.maxBones }

// Clips returns the clip names in sorted order.
func (s *Skeleton) Clips() []string {
	names := make([]string, 0, len(s.clips))
	for name := range s.clips {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BonePoses returns the final bone matrices from the last update. The slice
// always has MaxBones entries; slots past BoneCount are identity.
func (s *Skeleton) BonePoses() []math.Mat4 {
	return s.poses
}

// OnEvent registers an observer for playback changes.
func (s *Skeleton) OnEvent(fn func(Event)) {
	s.observers = append(s.observers, fn)
}

func (s *Skeleton) notify(kind EventKind) {
	ev := Event{Kind: kind, Skeleton: s, State: s.state}
	if s.current != nil {
		ev.Clip = s.current.Name
	}
	for _, fn := range s.observers {
		fn(ev)
	}
}

// SetClip selects a clip by name and rewinds to its start. The playback
// state is unchanged; a playing skeleton restarts its timer.
func (s *Skeleton) SetClip(name string) error {
	c, ok := s.clips[name]
	if !ok {
		return fmt.Errorf("skeleton %q: %w: %q", s.root.Name, ErrClipNotFound, name)
	}
	s.current = c
	s.seek = 0
	s.accum = 0
	if s.state == Playing {
		s.startedAt = s.clock.Now()
	}
	s.log.Debug("clip selected", zap.String("clip", name))
	s.notify(EventClipChanged)
	return nil
}

// NextClip selects the clip after the current one in name order, wrapping
// around. With no clip selected it selects the first.
func (s *Skeleton) NextClip() error {
	names := s.Clips()
	if len(names) == 0 {
		return fmt.Errorf("skeleton %q: %w", s.root.Name, ErrNoClip)
	}
	next := 0
	if s.current != nil {
		i := sort.SearchStrings(names, s.current.Name)
		next = (i + 1) % len(names)
	}
	return s.SetClip(names[next])
}

// Play starts or resumes the selected clip.
func (s *Skeleton) Play() error {
	if s.current == nil {
		return fmt.Errorf("skeleton %q: play: %w", s.root.Name, ErrNoClip)
	}
	if s.state == Playing {
		return nil
	}
	s.startedAt = s.clock.Now()
	s.state = Playing
	s.notify(EventStateChanged)
	return nil
}

// Pause freezes animation time. It is a no-op unless playing.
func (s *Skeleton) Pause() {
	if s.state != Playing {
		return
	}
	s.accum += s.clock.Now() - s.startedAt
	s.state = Paused
	s.notify(EventStateChanged)
}

// TogglePlay pauses a playing skeleton and plays otherwise.
func (s *Skeleton) TogglePlay() error {
	if s.state == Playing {
		s.Pause()
		return nil
	}
	return s.Play()
}

// Disable clears the clip and returns to NoAnimation.
func (s *Skeleton) Disable() {
	s.current = nil
	s.seek = 0
	s.accum = 0
	if s.state == NoAnimation {
		return
	}
	s.state = NoAnimation
	s.notify(EventStateChanged)
}

// SetTime jumps to tick t of the selected clip.
func (s *Skeleton) SetTime(t float32) error {
	if s.current == nil {
		return fmt.Errorf("skeleton %q: set time: %w", s.root.Name, ErrNoClip)
	}
	s.seek = t
	s.accum = 0
	if s.state == Playing {
		s.startedAt = s.clock.Now()
	}
	return nil
}

// AnimationTime returns the current clip time in ticks.
func (s *Skeleton) AnimationTime() float32 {
	return s.AnimationTimeAt(s.clock.Now())
}

// AnimationTimeAt returns the clip time in ticks for the clock reading now.
func (s *Skeleton) AnimationTimeAt(now time.Duration) float32 {
	if s.state == NoAnimation || s.current == nil {
		return 0
	}
	elapsed := s.accum
	if s.state == Playing {
		elapsed += now - s.startedAt
	}
	return s.current.TimeFrom(s.seek, elapsed)
}
