// Package anim provides keyframed animation clips and their sampling.
//
// A Clip holds one Channel per animated node. Each channel carries three
// independently timed key sequences (position, rotation, scale) whose times
// are expressed in ticks. Clip time is derived from elapsed wall time with
// the clip's ticks-per-second rate and wraps at the clip duration.
package anim

import (
	"errors"
	"fmt"
	gomath "math"
	"sort"
	"time"

	"go.uber.org/multierr"
)

// Clip validation errors.
var (
	ErrNonPositiveDuration = errors.New("clip duration must be positive")
	ErrNonPositiveRate     = errors.New("clip ticks per second must be positive")
	ErrEmptySequence       = errors.New("key sequence is empty")
	ErrKeysOutOfOrder      = errors.New("key times are not strictly increasing")
)

// Clip is a named animation resource.
type Clip struct {
	Name           string
	TicksPerSecond float32
	Duration       float32 // In ticks
	Channels       map[string]*Channel
}

// NewClip creates an empty clip. Channels are added with AddChannel.
func NewClip(name string, ticksPerSecond, duration float32) *Clip {
	return &Clip{
		Name:           name,
		TicksPerSecond: ticksPerSecond,
		Duration:       duration,
		Channels:       make(map[string]*Channel),
	}
}

// AddChannel registers ch under its node name, replacing any previous one.
func (c *Clip) AddChannel(ch *Channel) {
	if c.Channels == nil {
		c.Channels = make(map[string]*Channel)
	}
	c.Channels[ch.Node] = ch
}

// Channel returns the channel driving the named node, or nil.
func (c *Clip) Channel(node string) *Channel {
	if c == nil {
		return nil
	}
	return c.Channels[node]
}

// Validate checks the clip invariants and reports every violation found.
func (c *Clip) Validate() error {
	var err error
	if !(c.Duration > 0) {
		err = multierr.Append(err, fmt.Errorf("clip %q: %w (got %v)", c.Name, ErrNonPositiveDuration, c.Duration))
	}
	if !(c.TicksPerSecond > 0) {
		err = multierr.Append(err, fmt.Errorf("clip %q: %w (got %v)", c.Name, ErrNonPositiveRate, c.TicksPerSecond))
	}

	// Stable order so the combined error reads the same every run.
	names := make([]string, 0, len(c.Channels))
	for name := range c.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if chErr := c.Channels[name].Validate(); chErr != nil {
			err = multierr.Append(err, fmt.Errorf("clip %q: %w", c.Name, chErr))
		}
	}
	return err
}

// TimeAt converts an elapsed playback interval into clip time in ticks,
// wrapped into [0, Duration).
func (c *Clip) TimeAt(elapsed time.Duration) float32 {
	return c.TimeFrom(0, elapsed)
}

// TimeFrom returns the clip time reached after playing for elapsed from
// tick start, wrapped into [0, Duration). With no elapsed time a start
// inside the clip comes back unchanged.
func (c *Clip) TimeFrom(start float32, elapsed time.Duration) float32 {
	if !(c.Duration > 0) {
		return 0
	}
	ticks := float64(start)
	if elapsed > 0 {
		ms := float64(elapsed) / float64(time.Millisecond)
		ticks += ms / 1000 * float64(c.TicksPerSecond)
	}
	t := gomath.Mod(ticks, float64(c.Duration))
	if t < 0 {
		t += float64(c.Duration)
	}
	return float32(t)
}

// Seconds returns the clip length in seconds.
func (c *Clip) Seconds() float32 {
	if !(c.TicksPerSecond > 0) {
		return 0
	}
	return c.Duration / c.TicksPerSecond
}
