package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/gwillem/hebidemo/pkg/demo"
	"github.com/gwillem/hebidemo/pkg/hebi"
)

type StepCommand struct {
	Names    []string      `short:"n" long:"name" description:"Actuator name (repeatable, overrides the config file)"`
	Max      *int          `long:"max" description:"Highest step index"`
	Interval time.Duration `long:"interval" description:"Time between commands"`
	Pick     bool          `long:"pick" description:"Interactively select actuators before binding"`
	TUI      bool          `long:"tui" description:"Show a live chart of commanded and actual position"`
}

func (c *StepCommand) Execute(args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	if len(c.Names) > 0 {
		s.cfg.Step.Names = c.Names
	}
	if c.Max != nil {
		s.cfg.Step.Max = *c.Max
	}
	if c.Interval > 0 {
		s.cfg.Step.Interval = c.Interval
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	lookup, err := s.openLookup(ctx, false)
	if err != nil {
		return err
	}
	defer lookup.Close()

	if err := s.waitDiscovery(ctx, lookup); err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("HEBI motors found on network:"))
	fmt.Println(renderDirectory(lookup.Entries()))

	names := s.cfg.Step.Names
	if c.Pick {
		if names, err = pickNames(lookup.Entries(), names); err != nil {
			return err
		}
	}

	group := s.bind(ctx, lookup, names)
	defer group.Close()

	if err := group.SetCommandLifetime(s.cfg.CommandLifetime()); err != nil {
		return errors.Wrap(err, "set command lifetime")
	}

	pos, err := demo.ReadPosition(ctx, group)
	if err != nil {
		return err
	}
	fmt.Printf("Starting position %f\n", pos)

	stepCfg := demo.StepConfig{
		Max:      s.cfg.Step.Max,
		Scale:    s.cfg.Step.Scale,
		Interval: s.cfg.Step.Interval,
		Logger:   s.logger.Named("step"),
	}
	if !c.TUI {
		stepCfg.OnStep = func(st demo.StepState) {
			s.logger.Infof("Step %d: pos %d -> %.4f rad", st.Count, st.Pos, st.Angle)
		}
	}

	ctrl, err := demo.NewStepController(group, stepCfg)
	if err != nil {
		return err
	}

	if c.TUI {
		return runStepTUI(ctx, cancel, ctrl, group, names)
	}

	if err := ctrl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println(dimStyle.Render("Stopped."))
	return nil
}

// stepResult holds the controller's exit error. done is closed once err is
// set, so any number of readers can wait on it.
type stepResult struct {
	done chan struct{}
	err  error
}

func startController(ctx context.Context, ctrl *demo.StepController) *stepResult {
	r := &stepResult{done: make(chan struct{})}
	go func() {
		r.err = ctrl.Start(ctx)
		close(r.done)
	}()
	return r
}

// Wait blocks until the controller returns.
func (r *stepResult) Wait() error {
	<-r.done
	return r.err
}

// runStepTUI drives the controller in the background and shows its states
// alongside live feedback until the operator quits.
func runStepTUI(ctx context.Context, cancel context.CancelFunc, ctrl *demo.StepController, group hebi.Group, names []string) error {
	result := startController(ctx, ctrl)

	fbkCh := make(chan float64, 1)
	go streamFeedback(ctx, group, fbkCh)

	p := tea.NewProgram(newStepModel(ctrl, fbkCh, result, names), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()
	cancel()

	if err := result.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return errors.Wrap(runErr, "run tui")
	}
	return nil
}

// streamFeedback publishes the latest position of actuator 0.
func streamFeedback(ctx context.Context, group hebi.Group, out chan float64) {
	fbk := hebi.NewGroupFeedback(group.Size())
	for {
		if err := group.GetNextFeedback(ctx, fbk); err != nil {
			return
		}
		publishLatest(out, fbk.Position[0])
	}
}

// publishLatest sends v, replacing an unread value. ch must have a single sender.
func publishLatest(ch chan float64, v float64) {
	select {
	case ch <- v:
	default:
		// Drop the stale reading
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
