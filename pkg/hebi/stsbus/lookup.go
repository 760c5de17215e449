// Package stsbus drives Feetech STS serial servos through the hebi device API.
//
// Every USB serial adapter found on the host is opened as an STS bus and
// scanned. Each servo is published as "<bus>.<id>" under the configured
// family, where <bus> is the adapter's index in sorted port order.
package stsbus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gwillem/hebidemo/pkg/hebi"
)

const (
	DefaultBaudRate  = 1_000_000
	DefaultScanMaxID = 6
	DefaultTimeout   = 100 * time.Millisecond
	DefaultPeriod    = 10 * time.Millisecond
)

// Config configures bus discovery and groups.
type Config struct {
	Family    string
	Ports     []string // empty means enumerate USB serial adapters
	BaudRate  int
	ScanMaxID int
	Timeout   time.Duration
	Period    time.Duration

	// Calibration is keyed by entry name.
	Calibration map[string]Calibration

	Clock  clock.Clock
	Logger *zap.SugaredLogger
}

type foundServo struct {
	entry hebi.Entry
	port  string
	id    int
}

// Lookup discovers servos on serial buses in the background.
type Lookup struct {
	cfg    Config
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	buses  map[string]*feetech.Bus
	found  []foundServo
	closed bool
}

// NewLookup starts discovery. Entries fill in as each bus finishes scanning.
func NewLookup(ctx context.Context, cfg Config) (*Lookup, error) {
	if cfg.Family == "" {
		return nil, errors.New("family is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ScanMaxID == 0 {
		cfg.ScanMaxID = DefaultScanMaxID
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Period == 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	ports := cfg.Ports
	if len(ports) == 0 {
		all, err := enumerateSerialPorts()
		if err != nil {
			return nil, errors.Wrap(err, "list serial ports")
		}
		cfg.Logger.Debugf("Found %d total serial ports", len(all))
		ports = all
	}
	ports = filterCandidatePorts(ports)
	cfg.Logger.Debugf("Filtered to %d candidate ports", len(ports))

	ctx, cancel := context.WithCancel(ctx)
	l := &Lookup{
		cfg:    cfg,
		cancel: cancel,
		done:   make(chan struct{}),
		buses:  make(map[string]*feetech.Bus),
	}
	go l.discover(ctx, ports)
	return l, nil
}

func (l *Lookup) discover(ctx context.Context, ports []string) {
	defer close(l.done)

	for i, port := range ports {
		select {
		case <-ctx.Done():
			l.cfg.Logger.Info("Discovery cancelled")
			return
		default:
		}
		l.scanPort(ctx, i, port)
	}
	l.cfg.Logger.Debugf("Discovery finished, %d servo(s) visible", len(l.Entries()))
}

func (l *Lookup) scanPort(ctx context.Context, index int, port string) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: l.cfg.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  l.cfg.Timeout,
	})
	if err != nil {
		l.cfg.Logger.Debugf("Failed to open port %s: %v", port, err)
		return
	}

	scanCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	servos, err := bus.Scan(scanCtx, 1, l.cfg.ScanMaxID)
	cancel()
	if err != nil || len(servos) == 0 {
		l.cfg.Logger.Debugf("No servos detected on %s", port)
		bus.Close()
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		bus.Close()
		return
	}
	l.buses[port] = bus
	for _, s := range servos {
		l.found = append(l.found, foundServo{
			entry: hebi.Entry{
				Family:  l.cfg.Family,
				Name:    entryName(index, s.ID),
				Address: address(port, s.ID),
			},
			port: port,
			id:   s.ID,
		})
	}
	l.cfg.Logger.Infof("Found %d servo(s) on %s", len(servos), portSuffix(port))
}

// Entries returns the servos discovered so far.
func (l *Lookup) Entries() []hebi.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]hebi.Entry, 0, len(l.found))
	for _, f := range l.found {
		out = append(out, f.entry)
	}
	return out
}

// Wait blocks until discovery has scanned every port.
func (l *Lookup) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return nil
	}
}

// Open binds discovered servos into a group and enables their torque.
func (l *Lookup) Open(ctx context.Context, entries []hebi.Entry) (hebi.Group, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	slots := make([]slot, 0, len(entries))
	for _, e := range entries {
		port, id, err := parseAddress(e.Address)
		if err != nil {
			return nil, err
		}
		if !l.discovered(port, id) {
			return nil, errors.Errorf("servo %s (%s) not discovered", e.Name, e.Address)
		}
		slots = append(slots, slot{
			port:        port,
			id:          id,
			calibration: l.cfg.Calibration[e.Name],
		})
	}

	g := newGroup(l.buses, slots, l.cfg)
	if err := g.enable(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (l *Lookup) discovered(port string, id int) bool {
	for _, f := range l.found {
		if f.port == port && f.id == id {
			return true
		}
	}
	return false
}

// Close stops discovery and closes every bus.
func (l *Lookup) Close() error {
	l.cancel()
	<-l.done

	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true

	var errs []error
	for port, bus := range l.buses {
		if err := bus.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "close %s", port))
		}
	}
	l.buses = map[string]*feetech.Bus{}
	if len(errs) > 0 {
		return errors.Errorf("close errors: %v", errs)
	}
	return nil
}

func entryName(bus, id int) string {
	return fmt.Sprintf("%d.%d", bus, id)
}

func address(port string, id int) string {
	return fmt.Sprintf("%s#%d", port, id)
}

func parseAddress(addr string) (string, int, error) {
	i := strings.LastIndex(addr, "#")
	if i < 0 {
		return "", 0, errors.Errorf("malformed address %q", addr)
	}
	id, err := strconv.Atoi(addr[i+1:])
	if err != nil {
		return "", 0, errors.Wrapf(err, "malformed address %q", addr)
	}
	return addr[:i], id, nil
}
