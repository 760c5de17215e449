package sim

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/hebidemo/pkg/hebi"
)

func newTestGroup(t *testing.T, mock *clock.Mock, actuators ...Actuator) *Group {
	t.Helper()
	l := New(Config{Actuators: actuators, Clock: mock})
	g, err := l.OpenGroup(l.Entries())
	require.NoError(t, err)
	return g
}

func TestLookup_Entries(t *testing.T) {
	l := New(Config{Actuators: []Actuator{
		{Family: "robotlab", Name: "5.1"},
		{Family: "robotlab", Name: "9.0", Address: "AA:BB:CC:DD:EE:FF"},
	}})

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, hebi.Entry{Family: "robotlab", Name: "5.1", Address: "02:00:00:00:00:00"}, entries[0])
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", entries[1].Address)
}

func TestLookup_OpenUnknown(t *testing.T) {
	l := New(Config{})
	_, err := l.Open(context.Background(), []hebi.Entry{{Address: "nope"}})
	assert.Error(t, err)
}

func TestGroup_TracksPosition(t *testing.T) {
	mock := clock.NewMock()
	g := newTestGroup(t, mock, Actuator{Family: "f", Name: "a"})
	require.NoError(t, g.SetCommandLifetime(0))

	cmd := hebi.NewGroupCommand(1)
	fbk := hebi.NewGroupFeedback(1)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		cmd.SetPosition(1.0)
		cmd.SetVelocity(0.0)
		require.NoError(t, g.SendCommand(cmd))
		require.NoError(t, g.GetNextFeedback(ctx, fbk))
	}

	assert.InDelta(t, 1.0, fbk.Position[0], 1e-3)
	assert.InDelta(t, 0.0, fbk.Velocity[0], 1e-2)
	assert.Equal(t, mock.Now(), fbk.Time)
}

func TestGroup_VelocityLimit(t *testing.T) {
	mock := clock.NewMock()
	g := newTestGroup(t, mock, Actuator{Family: "f", Name: "a"})

	cmd := hebi.NewGroupCommand(1)
	cmd.SetPosition(100)
	require.NoError(t, g.SendCommand(cmd))

	fbk := hebi.NewGroupFeedback(1)
	require.NoError(t, g.GetNextFeedback(context.Background(), fbk))
	assert.InDelta(t, DefaultMaxVelocity, fbk.Velocity[0], 1e-9)
	assert.InDelta(t, DefaultMaxVelocity*DefaultPeriod.Seconds(), fbk.Position[0], 1e-9)
}

func TestGroup_CommandLifetime(t *testing.T) {
	mock := clock.NewMock()
	g := newTestGroup(t, mock, Actuator{Family: "f", Name: "a"})
	require.NoError(t, g.SetCommandLifetime(hebi.CommandLifetimeMillis(1200)))
	assert.Equal(t, 1200*time.Millisecond, g.CommandLifetime())

	cmd := hebi.NewGroupCommand(1)
	cmd.SetVelocity(1.0)
	require.NoError(t, g.SendCommand(cmd))
	assert.True(t, g.Active(0))

	mock.Add(time.Second)
	assert.True(t, g.Active(0))

	mock.Add(300 * time.Millisecond)
	assert.False(t, g.Active(0), "watchdog should expire after the lifetime")

	fbk := hebi.NewGroupFeedback(1)
	require.NoError(t, g.GetNextFeedback(context.Background(), fbk))
	assert.Zero(t, fbk.Velocity[0])
	// Moved at 1 rad/s only while the command was live.
	assert.InDelta(t, 1.2, fbk.Position[0], 0.011)
}

func TestGroup_UnsetSlotDoesNotRefresh(t *testing.T) {
	mock := clock.NewMock()
	g := newTestGroup(t, mock, Actuator{Family: "f", Name: "a"})
	require.NoError(t, g.SetCommandLifetime(100*time.Millisecond))

	cmd := hebi.NewGroupCommand(1)
	cmd.SetPosition(0.5)
	require.NoError(t, g.SendCommand(cmd))

	mock.Add(80 * time.Millisecond)
	require.NoError(t, g.SendCommand(hebi.NewGroupCommand(1)))
	mock.Add(80 * time.Millisecond)

	assert.False(t, g.Active(0))
	assert.Len(t, g.Commands(), 2)
}

func TestGroup_SizeMismatch(t *testing.T) {
	g := newTestGroup(t, clock.NewMock(), Actuator{Family: "f", Name: "a"})

	assert.Error(t, g.SendCommand(hebi.NewGroupCommand(2)))
	assert.Error(t, g.GetNextFeedback(context.Background(), hebi.NewGroupFeedback(3)))
	assert.Error(t, g.SetCommandLifetime(-time.Second))
}

func TestGroup_ContextCanceled(t *testing.T) {
	g := newTestGroup(t, clock.NewMock(), Actuator{Family: "f", Name: "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.GetNextFeedback(ctx, hebi.NewGroupFeedback(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGroup_Closed(t *testing.T) {
	g := newTestGroup(t, clock.NewMock(), Actuator{Family: "f", Name: "a"})
	require.NoError(t, g.Close())
	assert.Error(t, g.SendCommand(hebi.NewGroupCommand(1)))
}
