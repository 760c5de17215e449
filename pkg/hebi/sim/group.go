package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gwillem/hebidemo/pkg/hebi"
)

// Command is a dispatched command as seen by the simulator.
type Command struct {
	Time     time.Time
	Position []float64
	Velocity []float64
}

type actuator struct {
	position  float64
	velocity  float64
	targetPos float64
	targetVel float64
	lastCmd   time.Time
	updated   time.Time
}

// Group is a simulated actuator group.
type Group struct {
	clock  clock.Clock
	period time.Duration
	gain   float64
	maxVel float64
	logger *zap.SugaredLogger

	mu        sync.Mutex
	actuators []*actuator
	lifetime  time.Duration
	commands  []Command
	closed    bool
}

// Size returns the number of actuators in the group.
func (g *Group) Size() int {
	return len(g.actuators)
}

// SetCommandLifetime sets how long a command keeps an actuator active.
// Zero keeps commands active until replaced.
func (g *Group) SetCommandLifetime(d time.Duration) error {
	if d < 0 {
		return errors.Errorf("negative command lifetime %s", d)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lifetime = d
	return nil
}

// CommandLifetime returns the current watchdog window.
func (g *Group) CommandLifetime() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lifetime
}

// GetNextFeedback waits one feedback period, then reports the integrated state.
func (g *Group) GetNextFeedback(ctx context.Context, fbk *hebi.GroupFeedback) error {
	if fbk.Size() != g.Size() {
		return errors.Errorf("feedback sized for %d, group has %d", fbk.Size(), g.Size())
	}
	if err := g.wait(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return errors.New("group closed")
	}

	now := g.clock.Now()
	for i, a := range g.actuators {
		g.integrate(a, now)
		fbk.Position[i] = a.position
		fbk.Velocity[i] = a.velocity
		fbk.Effort[i] = 0
	}
	fbk.Time = now
	return nil
}

func (g *Group) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m, ok := g.clock.(*clock.Mock); ok {
		m.Add(g.period)
		return nil
	}
	timer := g.clock.Timer(g.period)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SendCommand applies targets immediately. Slots with neither position nor
// velocity set do not refresh the watchdog.
func (g *Group) SendCommand(cmd *hebi.GroupCommand) error {
	if cmd.Size() != g.Size() {
		return errors.Errorf("command sized for %d, group has %d", cmd.Size(), g.Size())
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return errors.New("group closed")
	}

	now := g.clock.Now()
	for i, a := range g.actuators {
		if !hebi.IsSet(cmd.Position[i]) && !hebi.IsSet(cmd.Velocity[i]) {
			continue
		}
		g.integrate(a, now)
		a.targetPos = cmd.Position[i]
		a.targetVel = cmd.Velocity[i]
		a.lastCmd = now
	}

	g.commands = append(g.commands, Command{
		Time:     now,
		Position: append([]float64(nil), cmd.Position...),
		Velocity: append([]float64(nil), cmd.Velocity...),
	})
	return nil
}

// Commands returns every command sent to the group so far.
func (g *Group) Commands() []Command {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Command, len(g.commands))
	copy(out, g.commands)
	return out
}

// Active reports whether actuator i is still following its last command.
func (g *Group) Active(i int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active(g.actuators[i], g.clock.Now())
}

// Close rejects further feedback reads and commands.
func (g *Group) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func (g *Group) active(a *actuator, t time.Time) bool {
	if a.lastCmd.IsZero() {
		return false
	}
	return g.lifetime == 0 || t.Sub(a.lastCmd) <= g.lifetime
}

// integrate advances a to now in steps of at most one period.
func (g *Group) integrate(a *actuator, now time.Time) {
	for a.updated.Before(now) {
		h := now.Sub(a.updated)
		if h > g.period {
			h = g.period
		}
		t := a.updated.Add(h)

		vel := 0.0
		if g.active(a, t) {
			if hebi.IsSet(a.targetVel) {
				vel = a.targetVel
			}
			if hebi.IsSet(a.targetPos) {
				vel += g.gain * (a.targetPos - a.position)
			}
			vel = math.Max(-g.maxVel, math.Min(g.maxVel, vel))
		}

		a.position += vel * h.Seconds()
		a.velocity = vel
		a.updated = t
	}
}

func nan() float64 {
	return math.NaN()
}
