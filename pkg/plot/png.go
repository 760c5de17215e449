// Package plot renders recorded trajectories as two stacked time panels:
// position on top, velocity below, actual solid and commanded dashed.
package plot

import (
	"bufio"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/gwillem/hebidemo/pkg/recorder"
)

// Image size.
const (
	Width  = 8 * vg.Inch
	Height = 6 * vg.Inch
)

var traceColor = color.RGBA{B: 255, A: 255}

// SavePNG writes the stacked plot of the valid samples to path.
func SavePNG(path string, s *recorder.Series, title string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create plot directory")
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create png")
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := WritePNG(bw, s, title); err != nil {
		return err
	}
	return errors.Wrap(bw.Flush(), "write png")
}

// WritePNG renders the stacked plot of the valid samples as PNG.
func WritePNG(w io.Writer, s *recorder.Series, title string) error {
	v := s.Valid()
	if v.Len() == 0 {
		return errors.New("no samples to plot")
	}

	pos, err := panel(v.Time, v.PAct, v.PCmd)
	if err != nil {
		return errors.Wrap(err, "position panel")
	}
	pos.Title.Text = title
	pos.Y.Label.Text = "Position (rad)"

	vel, err := panel(v.Time, v.VAct, v.VCmd)
	if err != nil {
		return errors.Wrap(err, "velocity panel")
	}
	vel.Y.Label.Text = "Velocity (rad/s)"
	vel.X.Label.Text = "Time (s)"

	// Shared time axis.
	tMin, tMax := v.Time[0], v.Time[v.Len()-1]
	if tMax == tMin {
		tMax = tMin + 1
	}
	for _, p := range []*plot.Plot{pos, vel} {
		p.X.Min, p.X.Max = tMin, tMax
	}

	img := vgimg.New(Width, Height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 2,
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter * 2,
	}
	plots := [][]*plot.Plot{{pos}, {vel}}
	canvases := plot.Align(plots, tiles, dc)
	pos.Draw(canvases[0][0])
	vel.Draw(canvases[1][0])

	pngc := vgimg.PngCanvas{Canvas: img}
	if _, err := pngc.WriteTo(w); err != nil {
		return errors.Wrap(err, "encode png")
	}
	return nil
}

func panel(t, act, cmd []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Add(plotter.NewGrid())

	actLine, err := plotter.NewLine(xys(t, act))
	if err != nil {
		return nil, err
	}
	actLine.LineStyle.Color = traceColor
	actLine.LineStyle.Width = vg.Points(1.5)

	cmdLine, err := plotter.NewLine(xys(t, cmd))
	if err != nil {
		return nil, err
	}
	cmdLine.LineStyle.Color = traceColor
	cmdLine.LineStyle.Width = vg.Points(1.5)
	cmdLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p.Add(actLine, cmdLine)
	p.Legend.Add("Act", actLine)
	p.Legend.Add("Cmd", cmdLine)
	p.Legend.Top = true
	return p, nil
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts
}
