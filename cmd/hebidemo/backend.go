package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gwillem/hebidemo/pkg/config"
	"github.com/gwillem/hebidemo/pkg/hebi"
	"github.com/gwillem/hebidemo/pkg/hebi/sim"
	"github.com/gwillem/hebidemo/pkg/hebi/stsbus"
	"github.com/gwillem/hebidemo/pkg/logging"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// session carries what every command needs after flag parsing.
type session struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
}

func newSession() (*session, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.Family != "" {
		cfg.Family = opts.Family
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration %s", opts.Config)
	}

	logger, err := logging.New("hebidemo", opts.Verbose)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openLookup starts device discovery on the configured backend. With
// virtual set, the simulator runs on a mock clock and finishes instantly.
func (s *session) openLookup(ctx context.Context, virtual bool) (hebi.Lookup, error) {
	switch s.cfg.Backend {
	case config.BackendSim:
		var clk clock.Clock = clock.New()
		if virtual && s.cfg.Sim.VirtualTime {
			clk = clock.NewMock()
		}
		actuators := make([]sim.Actuator, 0, len(s.cfg.Sim.Names))
		for _, name := range s.cfg.Sim.Names {
			actuators = append(actuators, sim.Actuator{Family: s.cfg.Family, Name: name})
		}
		return sim.New(sim.Config{
			Actuators: actuators,
			Clock:     clk,
			Logger:    s.logger.Named("sim"),
		}), nil

	case config.BackendSTSBus:
		return stsbus.NewLookup(ctx, stsbus.Config{
			Family:      s.cfg.Family,
			Ports:       s.cfg.STSBus.Ports,
			BaudRate:    s.cfg.STSBus.BaudRate,
			ScanMaxID:   s.cfg.STSBus.ScanMaxID,
			Calibration: s.cfg.STSBus.Calibration,
			Logger:      s.logger.Named("stsbus"),
		})
	}
	return nil, errors.Errorf("unknown backend %q", s.cfg.Backend)
}

type waiter interface {
	Wait(ctx context.Context) error
}

// waitDiscovery gives a background lookup up to the discovery wait to
// populate its directory.
func (s *session) waitDiscovery(ctx context.Context, lookup hebi.Lookup) error {
	w, ok := lookup.(waiter)
	if !ok {
		return nil
	}
	s.logger.Debugf("Waiting up to %s for discovery", s.cfg.DiscoveryWait)
	wctx, cancel := context.WithTimeout(ctx, s.cfg.DiscoveryWait)
	defer cancel()
	if err := w.Wait(wctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// bind resolves names and exits the process when any is missing.
func (s *session) bind(ctx context.Context, lookup hebi.Lookup, names []string) hebi.Group {
	fmt.Printf("Using motors %v\n", names)

	group, err := hebi.Bind(ctx, lookup, []string{s.cfg.Family}, names, s.cfg.BindTimeout)
	if err != nil {
		var nf *hebi.NotFoundError
		if errors.As(err, &nf) {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Unable to find motors %v", nf.Names)))
			fmt.Fprintf(os.Stderr, "Missing: %s\n", strings.Join(nf.Missing, ", "))
		} else {
			fmt.Fprintf(os.Stderr, "Error binding motors: %v\n", err)
		}
		lookup.Close()
		os.Exit(1)
	}
	return group
}

// pickNames asks the operator to choose from the directory.
func pickNames(entries []hebi.Entry, selected []string) ([]string, error) {
	if len(entries) == 0 {
		return nil, errors.New("no devices to pick from")
	}

	options := make([]huh.Option[string], 0, len(entries))
	for _, e := range entries {
		label := fmt.Sprintf("%s  %s  %s", e.Family, e.Name, dimStyle.Render(e.Address))
		options = append(options, huh.NewOption(label, e.Name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Select the actuators to use").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return nil, errors.Wrap(err, "pick devices")
	}
	if len(selected) == 0 {
		return nil, errors.New("no devices selected")
	}
	return selected, nil
}

func sinceString(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
