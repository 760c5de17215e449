package demo

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gwillem/hebidemo/pkg/hebi"
	"github.com/gwillem/hebidemo/pkg/recorder"
)

// Trajectory defaults.
const (
	DefaultDuration = 5.0   // s
	DefaultRate     = 100.0 // samples/s
)

// Profile is a two-phase step trajectory: hold until SwitchTime, then return.
// The velocity targets are carried through to the command unchanged.
type Profile struct {
	SwitchTime     float64 `yaml:"switch_time"`
	HoldPosition   float64 `yaml:"hold_position"`
	HoldVelocity   float64 `yaml:"hold_velocity"`
	ReturnPosition float64 `yaml:"return_position"`
	ReturnVelocity float64 `yaml:"return_velocity"`
}

// DefaultProfile moves to 1 rad for 2.5 s, then back to 0.
func DefaultProfile() Profile {
	return Profile{
		SwitchTime:     2.5,
		HoldPosition:   1.0,
		HoldVelocity:   0.0,
		ReturnPosition: 0.0,
		ReturnVelocity: 0.0,
	}
}

// At returns the commanded position and velocity at time t. The switch
// instant belongs to the return phase.
func (p Profile) At(t float64) (pos, vel float64) {
	if t < p.SwitchTime {
		return p.HoldPosition, p.HoldVelocity
	}
	return p.ReturnPosition, p.ReturnVelocity
}

// TrajectoryConfig holds configuration for a trajectory run.
type TrajectoryConfig struct {
	Duration float64 // s
	Rate     float64 // samples/s
	Profile  Profile
	Logger   *zap.SugaredLogger
}

// RunTrajectory executes the profile open-loop on actuator 0, recording one
// sample per feedback read. It stops when the series is full or the
// simulated time reaches the duration. On error the samples recorded so far
// are returned with it.
func RunTrajectory(ctx context.Context, group hebi.Group, cfg TrajectoryConfig) (*recorder.Series, error) {
	if cfg.Duration <= 0 {
		return nil, errors.Errorf("duration must be > 0, got %g", cfg.Duration)
	}
	if cfg.Rate <= 0 {
		return nil, errors.Errorf("rate must be > 0, got %g", cfg.Rate)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	var (
		rec      = recorder.New(recorder.Capacity(cfg.Duration, cfg.Rate))
		command  = hebi.NewGroupCommand(group.Size())
		feedback = hebi.NewGroupFeedback(group.Size())
		index    = 0
		t        = 0.0
	)
	if rec.Cap() == 0 {
		return rec, nil
	}
	logger.Infof("Running %gs trajectory, %d samples", cfg.Duration, rec.Cap())

	for {
		if err := group.GetNextFeedback(ctx, feedback); err != nil {
			return rec, errors.Wrap(err, "get feedback")
		}
		pact := feedback.Position[0]
		vact := feedback.Velocity[0]

		pcmd, vcmd := cfg.Profile.At(t)

		command.SetPosition(pcmd)
		command.SetVelocity(vcmd)
		if err := group.SendCommand(command); err != nil {
			return rec, errors.Wrap(err, "send command")
		}

		rec.Record(recorder.Sample{Time: t, PAct: pact, PCmd: pcmd, VAct: vact, VCmd: vcmd})

		// t is derived from the index so every step is exactly 1/rate.
		index++
		t = float64(index) / cfg.Rate

		if rec.Full() || t >= cfg.Duration {
			break
		}
	}

	logger.Debugf("Trajectory finished after %d samples at t=%.2f", rec.Len(), t)
	return rec, nil
}
