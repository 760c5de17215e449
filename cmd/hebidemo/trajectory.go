package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/gwillem/hebidemo/pkg/demo"
	"github.com/gwillem/hebidemo/pkg/plot"
	"github.com/gwillem/hebidemo/pkg/recorder"
	"github.com/gwillem/hebidemo/pkg/runlog"
)

type TrajectoryCommand struct {
	Names    []string `short:"n" long:"name" description:"Actuator name (repeatable, overrides the config file)"`
	Duration float64  `long:"duration" description:"Run length in seconds"`
	Rate     float64  `long:"rate" description:"Samples per second"`
	Title    string   `long:"title" description:"Plot title"`
	Pick     bool     `long:"pick" description:"Interactively select actuators before binding"`

	PNG    string `long:"png" description:"Write the stacked plot to a PNG file"`
	CSV    string `long:"csv" description:"Export the samples to a CSV file"`
	DB     string `long:"db" description:"Store the run in a SQLite database"`
	Width  int    `long:"width" default:"100" description:"Terminal plot width"`
	Height int    `long:"height" default:"30" description:"Terminal plot height"`
	Quiet  bool   `short:"q" long:"quiet" description:"Skip the terminal plot"`
}

func (c *TrajectoryCommand) Execute(args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	tc := &s.cfg.Trajectory
	if len(c.Names) > 0 {
		tc.Names = c.Names
	}
	if c.Duration > 0 {
		tc.Duration = c.Duration
	}
	if c.Rate > 0 {
		tc.Rate = c.Rate
	}
	if c.Title != "" {
		tc.Title = c.Title
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	lookup, err := s.openLookup(ctx, true)
	if err != nil {
		return err
	}
	defer lookup.Close()

	if err := s.waitDiscovery(ctx, lookup); err != nil {
		return err
	}

	names := tc.Names
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

	started := time.Now()
	series, err := demo.RunTrajectory(ctx, group, demo.TrajectoryConfig{
		Duration: tc.Duration,
		Rate:     tc.Rate,
		Profile:  tc.Profile,
		Logger:   s.logger.Named("trajectory"),
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) || series == nil {
			return err
		}
		s.logger.Warnf("Interrupted, keeping %d of %d samples", series.Len(), series.Cap())
	}
	series = series.Valid()
	s.logger.Infof("Recorded %d samples in %s", series.Len(), sinceString(time.Since(started)))

	if !c.Quiet {
		fmt.Println(plot.Terminal(series, tc.Title, c.Width, c.Height))
	}
	return c.export(context.Background(), s, series, started, names)
}

// export writes the recording to every requested destination. It runs with
// a fresh context so an interrupted run is still saved.
func (c *TrajectoryCommand) export(ctx context.Context, s *session, series *recorder.Series, started time.Time, names []string) error {
	tc := s.cfg.Trajectory

	if c.PNG != "" {
		if err := plot.SavePNG(c.PNG, series, tc.Title); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("Plot saved to ") + c.PNG)
	}

	if c.CSV != "" {
		if err := runlog.SaveCSV(c.CSV, series); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("Samples saved to ") + c.CSV)
	}

	if c.DB != "" {
		store := runlog.NewSQLiteStore(c.DB)
		if err := store.Init(ctx); err != nil {
			return err
		}
		defer store.Close()

		run := runlog.NewRun(started, s.cfg.Family, names, tc.Duration, tc.Rate)
		run.Title = tc.Title
		run.Series = series
		if err := store.SaveRun(ctx, run); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("Run stored as ") + run.ID)
	}
	return nil
}
