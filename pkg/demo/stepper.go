// Package demo implements the two actuator demos: a periodic positional
// stepper and a timed open-loop trajectory with sample recording.
package demo

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gwillem/hebidemo/pkg/hebi"
)

// Stepper defaults.
const (
	DefaultStepMax      = 15
	DefaultStepScale    = math.Pi / 30
	DefaultStepInterval = time.Second
)

// Stepper sweeps a discrete index through [0, max] and maps it to an angle.
type Stepper struct {
	max   int
	scale float64
	pos   int
}

// NewStepper creates a stepper at index 0.
func NewStepper(max int, scale float64) *Stepper {
	return &Stepper{max: max, scale: scale}
}

// Pos returns the current index.
func (s *Stepper) Pos() int {
	return s.pos
}

// Angle returns the commanded angle for the current index.
func (s *Stepper) Angle() float64 {
	return float64(s.pos) * s.scale
}

// Advance moves to the next index, wrapping after max.
func (s *Stepper) Advance() {
	s.pos = (s.pos + 1) % (s.max + 1)
}

// StepState is published after every dispatched command.
type StepState struct {
	Count     int
	Pos       int
	Angle     float64
	Timestamp time.Time
}

// StepConfig holds configuration for the step controller.
type StepConfig struct {
	Max      int
	Scale    float64
	Interval time.Duration
	Clock    clock.Clock
	Logger   *zap.SugaredLogger

	// OnStep, when set, is called synchronously after each command.
	OnStep func(StepState)
}

// StepController runs the stepping loop against a group.
type StepController struct {
	group    hebi.Group
	stepper  *Stepper
	command  *hebi.GroupCommand
	interval time.Duration
	clock    clock.Clock
	logger   *zap.SugaredLogger
	onStep   func(StepState)
	stateCh  chan StepState
}

// NewStepController creates a step controller. Zero Scale, Interval, Clock
// and Logger take the defaults.
func NewStepController(group hebi.Group, cfg StepConfig) (*StepController, error) {
	if cfg.Max < 0 {
		return nil, errors.Errorf("step max must be >= 0, got %d", cfg.Max)
	}
	if cfg.Scale == 0 {
		cfg.Scale = DefaultStepScale
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultStepInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	return &StepController{
		group:    group,
		stepper:  NewStepper(cfg.Max, cfg.Scale),
		command:  hebi.NewGroupCommand(group.Size()),
		interval: cfg.Interval,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		onStep:   cfg.OnStep,
		stateCh:  make(chan StepState, 1),
	}, nil
}

// States returns a channel that receives the latest state.
func (c *StepController) States() <-chan StepState {
	return c.stateCh
}

// Interval returns the time between commands.
func (c *StepController) Interval() time.Duration {
	return c.interval
}

// Start runs until ctx is cancelled or a command fails. It never returns nil.
func (c *StepController) Start(ctx context.Context) error {
	c.logger.Infof("Stepping through %d positions every %s", c.stepper.max+1, c.interval)

	for count := 0; ; count++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.command.SetPosition(c.stepper.Angle())
		if err := c.group.SendCommand(c.command); err != nil {
			return errors.Wrap(err, "send command")
		}

		state := StepState{
			Count:     count,
			Pos:       c.stepper.Pos(),
			Angle:     c.stepper.Angle(),
			Timestamp: c.clock.Now(),
		}
		c.logger.Debugf("Commanded pos %d -> %.4f rad", state.Pos, state.Angle)
		if c.onStep != nil {
			c.onStep(state)
		}
		c.sendState(state)

		timer := c.clock.Timer(c.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		c.stepper.Advance()
	}
}

func (c *StepController) sendState(s StepState) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

// ReadPosition blocks for one feedback read and returns the position of actuator 0.
func ReadPosition(ctx context.Context, group hebi.Group) (float64, error) {
	fbk := hebi.NewGroupFeedback(group.Size())
	if err := group.GetNextFeedback(ctx, fbk); err != nil {
		return 0, errors.Wrap(err, "get feedback")
	}
	return fbk.Position[0], nil
}
