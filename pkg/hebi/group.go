// Package hebi defines the device API the demos drive: a lookup directory of
// visible actuators, groups bound from it, and the reusable command and
// feedback records exchanged with a group.
package hebi

import (
	"context"
	"math"
	"time"
)

// Entry is one device visible in a lookup directory.
type Entry struct {
	Family  string
	Name    string
	Address string // hardware address: MAC for networked modules, port#id for serial buses
}

// Lookup is a directory of visible devices that can open groups.
type Lookup interface {
	// Entries returns a snapshot of the devices discovered so far.
	Entries() []Entry
	// Open binds the given entries, in order, into a group.
	Open(ctx context.Context, entries []Entry) (Group, error)
	Close() error
}

// Group addresses one or more actuators collectively.
type Group interface {
	Size() int

	// SetCommandLifetime sets the actuator-side watchdog. An actuator drops
	// its targets and holds when no command arrives within d. Zero disables it.
	SetCommandLifetime(d time.Duration) error
	CommandLifetime() time.Duration

	// GetNextFeedback blocks until fresh feedback arrives (at most one
	// feedback period) and fills fbk in place.
	GetNextFeedback(ctx context.Context, fbk *GroupFeedback) error

	// SendCommand dispatches cmd without waiting for the actuators.
	SendCommand(cmd *GroupCommand) error

	Close() error
}

// CommandLifetimeMillis converts a lifetime given in milliseconds.
func CommandLifetimeMillis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// GroupCommand holds optional per-actuator targets. NaN means "not commanded".
type GroupCommand struct {
	Position []float64
	Velocity []float64
}

// NewGroupCommand allocates a command record for size actuators with no targets set.
func NewGroupCommand(size int) *GroupCommand {
	c := &GroupCommand{
		Position: make([]float64, size),
		Velocity: make([]float64, size),
	}
	c.Clear()
	return c
}

// Size returns the number of actuator slots.
func (c *GroupCommand) Size() int {
	return len(c.Position)
}

// Clear unsets every target.
func (c *GroupCommand) Clear() {
	fillNaN(c.Position)
	fillNaN(c.Velocity)
}

// SetPosition writes position targets starting at slot 0.
func (c *GroupCommand) SetPosition(vals ...float64) {
	copy(c.Position, vals)
}

// SetVelocity writes velocity targets starting at slot 0.
func (c *GroupCommand) SetVelocity(vals ...float64) {
	copy(c.Velocity, vals)
}

// IsSet reports whether v carries a target.
func IsSet(v float64) bool {
	return !math.IsNaN(v)
}

func fillNaN(s []float64) {
	for i := range s {
		s[i] = math.NaN()
	}
}

// GroupFeedback holds the observed state of each actuator in a group.
type GroupFeedback struct {
	Position []float64 // rad
	Velocity []float64 // rad/s
	Effort   []float64 // N·m
	Time     time.Time
}

// NewGroupFeedback allocates a feedback record for size actuators.
func NewGroupFeedback(size int) *GroupFeedback {
	return &GroupFeedback{
		Position: make([]float64, size),
		Velocity: make([]float64, size),
		Effort:   make([]float64, size),
	}
}

// Size returns the number of actuator slots.
func (f *GroupFeedback) Size() int {
	return len(f.Position)
}
