package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"

	"github.com/gwillem/hebidemo/pkg/plot"
	"github.com/gwillem/hebidemo/pkg/recorder"
	"github.com/gwillem/hebidemo/pkg/runlog"
)

type ReplayCommand struct {
	DB     string `long:"db" description:"SQLite database written by trajectory --db"`
	Run    string `long:"run" description:"Run ID to replay"`
	List   bool   `long:"list" description:"List stored runs"`
	CSV    string `long:"csv" description:"CSV file written by trajectory --csv"`
	PNG    string `long:"png" description:"Write the stacked plot to a PNG file"`
	Title  string `long:"title" description:"Plot title"`
	Width  int    `long:"width" default:"100" description:"Terminal plot width"`
	Height int    `long:"height" default:"30" description:"Terminal plot height"`
}

func (c *ReplayCommand) Execute(args []string) error {
	ctx := context.Background()

	var (
		series *recorder.Series
		title  = c.Title
	)
	switch {
	case c.CSV != "":
		f, err := os.Open(c.CSV)
		if err != nil {
			return errors.Wrap(err, "open csv")
		}
		defer f.Close()
		if series, err = runlog.ReadCSV(f); err != nil {
			return err
		}
		if title == "" {
			title = c.CSV
		}

	case c.DB != "":
		store := runlog.NewSQLiteStore(c.DB)
		if err := store.Init(ctx); err != nil {
			return err
		}
		defer store.Close()

		if c.List || c.Run == "" {
			runs, err := store.ListRuns(ctx)
			if err != nil {
				return err
			}
			fmt.Println(renderRuns(runs))
			return nil
		}

		run, ok, err := store.LoadRun(ctx, c.Run)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("run %s not found in %s", c.Run, c.DB)
		}
		series = run.Series
		if title == "" {
			title = run.Title
		}

	default:
		return errors.New("one of --db or --csv is required")
	}

	fmt.Println(plot.Terminal(series, title, c.Width, c.Height))
	if c.PNG != "" {
		if err := plot.SavePNG(c.PNG, series, title); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("Plot saved to ") + c.PNG)
	}
	return nil
}

func renderRuns(runs []runlog.RunInfo) string {
	if len(runs) == 0 {
		return dimStyle.Render("No stored runs.")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("RUN", "STARTED", "MOTORS", "SAMPLES", "TITLE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, r := range runs {
		t.Row(r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), strings.Join(r.Names, ","),
			fmt.Sprint(r.Samples), r.Title)
	}
	return t.Render()
}
