package hebi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGroupCommand_Unset(t *testing.T) {
	cmd := NewGroupCommand(3)

	assert.Equal(t, 3, cmd.Size())
	for i := 0; i < cmd.Size(); i++ {
		assert.False(t, IsSet(cmd.Position[i]), "position[%d]", i)
		assert.False(t, IsSet(cmd.Velocity[i]), "velocity[%d]", i)
	}
}

func TestGroupCommand_SetAndClear(t *testing.T) {
	cmd := NewGroupCommand(2)
	cmd.SetPosition(1.5)
	cmd.SetVelocity(0, -2)

	assert.Equal(t, 1.5, cmd.Position[0])
	assert.True(t, math.IsNaN(cmd.Position[1]))
	assert.Equal(t, []float64{0, -2}, cmd.Velocity)

	cmd.Clear()
	assert.False(t, IsSet(cmd.Position[0]))
	assert.False(t, IsSet(cmd.Velocity[1]))
}

func TestCommandLifetimeMillis(t *testing.T) {
	assert.Equal(t, "1.2s", CommandLifetimeMillis(1200).String())
	assert.Zero(t, CommandLifetimeMillis(0))
}
