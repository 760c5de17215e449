package demo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/hebidemo/pkg/hebi"
	"github.com/gwillem/hebidemo/pkg/hebi/sim"
)

func newSimGroup(t *testing.T, cfg sim.Config) *sim.Group {
	t.Helper()
	if len(cfg.Actuators) == 0 {
		cfg.Actuators = []sim.Actuator{{Family: "robotlab", Name: "5.1", Position: 0.25}}
	}
	lookup := sim.New(cfg)
	g, err := hebi.Bind(context.Background(), lookup, []string{"robotlab"}, []string{cfg.Actuators[0].Name}, time.Second)
	require.NoError(t, err)
	return g.(*sim.Group)
}

func TestStepper_RangeAndAngle(t *testing.T) {
	s := NewStepper(DefaultStepMax, DefaultStepScale)

	for i := 0; i < 100; i++ {
		assert.GreaterOrEqual(t, s.Pos(), 0)
		assert.LessOrEqual(t, s.Pos(), DefaultStepMax)
		assert.Equal(t, float64(s.Pos())*(math.Pi/30), s.Angle())
		s.Advance()
	}
}

func TestStepper_Periodic(t *testing.T) {
	const max = 15
	s := NewStepper(max, DefaultStepScale)

	var angles []float64
	for i := 0; i < 3*(max+1); i++ {
		angles = append(angles, s.Angle())
		s.Advance()
	}

	for i := max + 1; i < len(angles); i++ {
		assert.Equal(t, angles[i-(max+1)], angles[i], "angle %d", i)
	}
	assert.Equal(t, 0.0, angles[max+1])
	assert.Equal(t, float64(max)*DefaultStepScale, angles[max])
	assert.InDelta(t, math.Pi/2, angles[max], 1e-12)
}

func TestStepper_ZeroMax(t *testing.T) {
	s := NewStepper(0, 1)
	s.Advance()
	assert.Equal(t, 0, s.Pos())
}

func TestStepController_FirstCommands(t *testing.T) {
	group := newSimGroup(t, sim.Config{})
	require.NoError(t, group.SetCommandLifetime(hebi.CommandLifetimeMillis(1200)))

	start, err := ReadPosition(context.Background(), group)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, start, 1e-9)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var states []StepState
	ctrl, err := NewStepController(group, StepConfig{
		Max:      DefaultStepMax,
		Interval: time.Millisecond,
		OnStep: func(s StepState) {
			states = append(states, s)
			if len(states) == 2*(DefaultStepMax+1) {
				cancel()
			}
		},
	})
	require.NoError(t, err)

	err = ctrl.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	cmds := group.Commands()
	require.Len(t, cmds, 2*(DefaultStepMax+1))
	assert.Equal(t, 0.0, cmds[0].Position[0])
	assert.Equal(t, math.Pi/30, cmds[1].Position[0])
	for i, c := range cmds {
		pos := i % (DefaultStepMax + 1)
		assert.Equal(t, float64(pos)*DefaultStepScale, c.Position[0], "command %d", i)
		assert.False(t, hebi.IsSet(c.Velocity[0]))
		assert.Equal(t, pos, states[i].Pos)
		assert.Equal(t, i, states[i].Count)
	}

	select {
	case s := <-ctrl.States():
		assert.Equal(t, states[len(states)-1], s)
	default:
		t.Fatal("expected latest state on channel")
	}
}

func TestStepController_Validation(t *testing.T) {
	group := newSimGroup(t, sim.Config{})
	_, err := NewStepController(group, StepConfig{Max: -1})
	assert.Error(t, err)

	ctrl, err := NewStepController(group, StepConfig{Max: 3})
	require.NoError(t, err)
	assert.Equal(t, DefaultStepInterval, ctrl.Interval())
}

func TestStepController_SendError(t *testing.T) {
	group := newSimGroup(t, sim.Config{})
	require.NoError(t, group.Close())

	ctrl, err := NewStepController(group, StepConfig{Max: 3, Interval: time.Millisecond})
	require.NoError(t, err)
	assert.Error(t, ctrl.Start(context.Background()))
}
