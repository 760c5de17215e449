// Package sim provides in-process simulated actuators behind the hebi device API.
//
// Each actuator follows a first-order position servo with a velocity limit.
// Feedback arrives once per period; when the clock is a *clock.Mock the
// simulator advances it itself, so runs complete in virtual time.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gwillem/hebidemo/pkg/hebi"
)

const (
	DefaultPeriod      = 10 * time.Millisecond
	DefaultGain        = 10.0 // 1/s
	DefaultMaxVelocity = 3.0  // rad/s
)

// Actuator describes one simulated device.
type Actuator struct {
	Family   string
	Name     string
	Address  string  // generated when empty
	Position float64 // initial position, rad
}

// Config configures a simulated lookup.
type Config struct {
	Actuators   []Actuator
	Clock       clock.Clock // defaults to the wall clock
	Period      time.Duration
	Gain        float64
	MaxVelocity float64
	Logger      *zap.SugaredLogger
}

// Lookup is a fixed directory of simulated actuators.
type Lookup struct {
	cfg       Config
	entries   []hebi.Entry
	actuators map[string]*actuator // keyed by address
}

// New creates a simulated lookup. Every actuator is visible immediately.
func New(cfg Config) *Lookup {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Gain <= 0 {
		cfg.Gain = DefaultGain
	}
	if cfg.MaxVelocity <= 0 {
		cfg.MaxVelocity = DefaultMaxVelocity
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	l := &Lookup{
		cfg:       cfg,
		actuators: make(map[string]*actuator, len(cfg.Actuators)),
	}
	now := cfg.Clock.Now()
	for i, a := range cfg.Actuators {
		addr := a.Address
		if addr == "" {
			addr = fmt.Sprintf("02:00:00:00:%02X:%02X", (i>>8)&0xff, i&0xff)
		}
		l.entries = append(l.entries, hebi.Entry{Family: a.Family, Name: a.Name, Address: addr})
		l.actuators[addr] = &actuator{
			position:  a.Position,
			targetPos: nan(),
			targetVel: nan(),
			updated:   now,
		}
	}
	return l
}

// Entries returns the simulated directory.
func (l *Lookup) Entries() []hebi.Entry {
	out := make([]hebi.Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Open binds simulated actuators into a group.
func (l *Lookup) Open(ctx context.Context, entries []hebi.Entry) (hebi.Group, error) {
	g, err := l.OpenGroup(entries)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// OpenGroup is Open returning the concrete type, for callers that inspect history.
func (l *Lookup) OpenGroup(entries []hebi.Entry) (*Group, error) {
	g := &Group{
		clock:  l.cfg.Clock,
		period: l.cfg.Period,
		gain:   l.cfg.Gain,
		maxVel: l.cfg.MaxVelocity,
		logger: l.cfg.Logger,
	}
	for _, e := range entries {
		a, ok := l.actuators[e.Address]
		if !ok {
			return nil, errors.Errorf("no simulated actuator at %s", e.Address)
		}
		g.actuators = append(g.actuators, a)
	}
	l.cfg.Logger.Debugf("Opened simulated group of %d actuator(s)", len(g.actuators))
	return g, nil
}

// Close is a no-op.
func (l *Lookup) Close() error {
	return nil
}
