package stsbus

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gwillem/hebidemo/pkg/hebi"
)

// servoBus is the part of a feetech servo group the Group drives. Positions
// are raw steps keyed by servo ID.
type servoBus interface {
	ReadPositions(ctx context.Context) (map[int]int, error)
	WritePositions(ctx context.Context, positions map[int]int) error
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

type feetechBus struct {
	group *feetech.ServoGroup
}

func (b feetechBus) ReadPositions(ctx context.Context) (map[int]int, error) {
	raw, err := b.group.Positions(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(raw))
	for id, p := range raw {
		out[id] = p
	}
	return out, nil
}

func (b feetechBus) WritePositions(ctx context.Context, positions map[int]int) error {
	raw := make(feetech.PositionMap, len(positions))
	for id, p := range positions {
		raw[id] = p
	}
	return b.group.SetPositions(ctx, raw)
}

func (b feetechBus) Enable(ctx context.Context) error {
	return b.group.EnableAll(ctx)
}

func (b feetechBus) Disable(ctx context.Context) error {
	return b.group.DisableAll(ctx)
}

type slot struct {
	port        string
	id          int
	calibration Calibration
}

// Group is a set of STS servos, possibly spread over several buses.
//
// STS servos have no command watchdog of their own, so the group runs one on
// the host: torque is disabled when no command arrives within the lifetime
// and re-enabled by the next command.
type Group struct {
	clock  clock.Clock
	period time.Duration
	logger *zap.SugaredLogger

	slots  []slot
	ports  []string
	groups map[string]servoBus

	// busMu serializes bus traffic between feedback reads, the writer and the watchdog.
	busMu    sync.Mutex
	torqueOn bool

	mu       sync.Mutex
	lifetime time.Duration
	watchdog *clock.Timer
	writeErr error
	closed   bool

	lastRead time.Time
	lastPos  []float64

	cmdCh chan map[string]map[int]int
	done  chan struct{}
}

func newGroup(buses map[string]*feetech.Bus, slots []slot, cfg Config) *Group {
	ids := make(map[string][]int)
	for _, s := range slots {
		ids[s.port] = append(ids[s.port], s.id)
	}
	groups := make(map[string]servoBus, len(ids))
	for port, portIDs := range ids {
		groups[port] = feetechBus{group: feetech.NewServoGroupByIDs(buses[port], portIDs...)}
	}
	return newBusGroup(groups, slots, cfg)
}

// newBusGroup starts a group over one servoBus per port named in slots.
func newBusGroup(groups map[string]servoBus, slots []slot, cfg Config) *Group {
	var ports []string
	seen := make(map[string]bool)
	for _, s := range slots {
		if !seen[s.port] {
			seen[s.port] = true
			ports = append(ports, s.port)
		}
	}

	g := &Group{
		clock:   cfg.Clock,
		period:  cfg.Period,
		logger:  cfg.Logger,
		slots:   slots,
		ports:   ports,
		groups:  groups,
		lastPos: make([]float64, len(slots)),
		cmdCh:   make(chan map[string]map[int]int, 1),
		done:    make(chan struct{}),
	}
	go g.writer()
	return g
}

// Size returns the number of servos in the group.
func (g *Group) Size() int {
	return len(g.slots)
}

// SetCommandLifetime sets how long torque stays on without a new command.
// Zero disables the watchdog.
func (g *Group) SetCommandLifetime(d time.Duration) error {
	if d < 0 {
		return errors.Errorf("negative command lifetime %s", d)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lifetime = d
	if d == 0 && g.watchdog != nil {
		g.watchdog.Stop()
		g.watchdog = nil
	}
	return nil
}

// CommandLifetime returns the current watchdog window.
func (g *Group) CommandLifetime() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lifetime
}

// GetNextFeedback paces reads at the feedback period and derives velocity
// from consecutive positions.
func (g *Group) GetNextFeedback(ctx context.Context, fbk *hebi.GroupFeedback) error {
	if fbk.Size() != g.Size() {
		return errors.Errorf("feedback sized for %d, group has %d", fbk.Size(), g.Size())
	}

	if wait := g.period - g.clock.Since(g.lastRead); wait > 0 {
		timer := g.clock.Timer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	raw := make(map[string]map[int]int, len(g.ports))
	g.busMu.Lock()
	for _, port := range g.ports {
		positions, err := g.groups[port].ReadPositions(ctx)
		if err != nil {
			g.busMu.Unlock()
			return errors.Wrapf(err, "read positions on %s", port)
		}
		raw[port] = positions
	}
	g.busMu.Unlock()

	now := g.clock.Now()
	dt := now.Sub(g.lastRead).Seconds()
	for i, s := range g.slots {
		p, ok := raw[s.port][s.id]
		if !ok {
			return errors.Errorf("no position from servo %d on %s", s.id, s.port)
		}
		pos := s.calibration.Radians(p)
		vel := 0.0
		if !g.lastRead.IsZero() && dt > 0 {
			vel = (pos - g.lastPos[i]) / dt
		}
		fbk.Position[i] = pos
		fbk.Velocity[i] = vel
		fbk.Effort[i] = 0
		g.lastPos[i] = pos
	}
	fbk.Time = now
	g.lastRead = now
	return nil
}

// SendCommand queues position targets for the writer and returns at once.
// A newer command replaces one not yet written. Velocity-only targets are
// not supported by STS position mode.
func (g *Group) SendCommand(cmd *hebi.GroupCommand) error {
	if cmd.Size() != g.Size() {
		return errors.Errorf("command sized for %d, group has %d", cmd.Size(), g.Size())
	}

	pending := make(map[string]map[int]int)
	for i, s := range g.slots {
		if !hebi.IsSet(cmd.Position[i]) {
			if hebi.IsSet(cmd.Velocity[i]) {
				return errors.Errorf("servo %d on %s: velocity-only commands are not supported", s.id, s.port)
			}
			continue
		}
		if pending[s.port] == nil {
			pending[s.port] = make(map[int]int)
		}
		pending[s.port][s.id] = s.calibration.Raw(cmd.Position[i])
	}
	if len(pending) == 0 {
		return nil
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return errors.New("group closed")
	}
	if err := g.writeErr; err != nil {
		g.writeErr = nil
		g.mu.Unlock()
		return err
	}
	g.armWatchdog()

	select {
	case g.cmdCh <- pending:
	default:
		// Drop the stale command, replace with new
		select {
		case <-g.cmdCh:
		default:
		}
		g.cmdCh <- pending
	}
	g.mu.Unlock()
	return nil
}

// armWatchdog must be called with mu held.
func (g *Group) armWatchdog() {
	if g.lifetime == 0 {
		return
	}
	if g.watchdog == nil {
		g.watchdog = g.clock.AfterFunc(g.lifetime, g.expire)
		return
	}
	g.watchdog.Reset(g.lifetime)
}

func (g *Group) expire() {
	g.busMu.Lock()
	defer g.busMu.Unlock()
	if !g.torqueOn {
		return
	}
	if err := g.disableLocked(context.Background()); err != nil {
		g.logger.Warnf("Command lifetime expired, failed to disable torque: %v", err)
		return
	}
	g.logger.Warn("Command lifetime expired, torque disabled")
}

func (g *Group) writer() {
	defer close(g.done)
	ctx := context.Background()

	for pending := range g.cmdCh {
		g.busMu.Lock()
		err := g.write(ctx, pending)
		g.busMu.Unlock()

		if err != nil {
			g.logger.Debugf("Write error: %v", err)
			g.mu.Lock()
			g.writeErr = err
			g.mu.Unlock()
		}
	}
}

// write must be called with busMu held.
func (g *Group) write(ctx context.Context, pending map[string]map[int]int) error {
	if !g.torqueOn {
		if err := g.enableLocked(ctx); err != nil {
			return err
		}
	}
	for port, positions := range pending {
		if err := g.groups[port].WritePositions(ctx, positions); err != nil {
			return errors.Wrapf(err, "write positions on %s", port)
		}
	}
	return nil
}

func (g *Group) enable(ctx context.Context) error {
	g.busMu.Lock()
	defer g.busMu.Unlock()
	return g.enableLocked(ctx)
}

func (g *Group) enableLocked(ctx context.Context) error {
	for _, port := range g.ports {
		if err := g.groups[port].Enable(ctx); err != nil {
			return errors.Wrapf(err, "enable torque on %s", port)
		}
	}
	g.torqueOn = true
	return nil
}

func (g *Group) disableLocked(ctx context.Context) error {
	var errs []error
	for _, port := range g.ports {
		if err := g.groups[port].Disable(ctx); err != nil {
			errs = append(errs, errors.Wrapf(err, "disable torque on %s", port))
		}
	}
	g.torqueOn = false
	if len(errs) > 0 {
		return errors.Errorf("disable errors: %v", errs)
	}
	return nil
}

// Close stops the writer and disables torque. Buses stay open until the
// lookup closes.
func (g *Group) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	if g.watchdog != nil {
		g.watchdog.Stop()
	}
	g.mu.Unlock()

	close(g.cmdCh)
	<-g.done

	g.busMu.Lock()
	defer g.busMu.Unlock()
	return g.disableLocked(context.Background())
}
