package plot

import (
	"math"
	"strconv"
	"strings"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/hebidemo/pkg/recorder"
)

const (
	actDataSet = "Act"
	cmdDataSet = "Cmd"
)

const legendSwatch = "━━"

const (
	minChartWidth  = 40
	minChartHeight = 6
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	actStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // blue
	cmdStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208")) // orange
)

// Terminal renders the valid samples as two stacked charts for a terminal
// of the given size, each panel downsampled to the chart width.
func Terminal(s *recorder.Series, title string, width, height int) string {
	v := s.Valid()
	if v.Len() == 0 {
		return labelStyle.Render("no samples recorded")
	}

	w := max(width-4, minChartWidth)
	h := max((height-8)/2, minChartHeight)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("Position (rad)"))
	sb.WriteString("\n")
	sb.WriteString(chartStyle.Render(chart(v.PAct, v.PCmd, w, h)))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("Velocity (rad/s)"))
	sb.WriteString("\n")
	sb.WriteString(chartStyle.Render(chart(v.VAct, v.VCmd, w, h)))
	sb.WriteString("\n")
	sb.WriteString(Legend())
	sb.WriteString(labelStyle.Render("   Time 0 … " + formatSeconds(v.Time[v.Len()-1])))
	sb.WriteString("\n")
	return sb.String()
}

// Legend renders the actual/commanded key. Both traces are solid lines told
// apart by colour.
func Legend() string {
	return actStyle.Bold(true).Render(legendSwatch) + " " + actDataSet + "  " +
		cmdStyle.Bold(true).Render(legendSwatch) + " " + cmdDataSet
}

func chart(act, cmd []float64, w, h int) string {
	lo, hi := yRange(act, cmd)
	c := streamlinechart.New(w, h, streamlinechart.WithYRange(lo, hi))
	c.SetDataSetStyles(actDataSet, runes.ThinLineStyle, actStyle)
	c.SetDataSetStyles(cmdDataSet, runes.ThinLineStyle, cmdStyle)

	for _, i := range downsample(len(act), w) {
		c.PushDataSet(actDataSet, act[i])
		c.PushDataSet(cmdDataSet, cmd[i])
	}
	c.DrawAll()
	return c.View()
}

// downsample picks at most width evenly spaced indices out of n.
func downsample(n, width int) []int {
	if n <= width {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, width)
	for col := range idx {
		idx[col] = col * n / width
	}
	return idx
}

// yRange pads the combined extent of both series by 10%.
func yRange(a, b []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range [][]float64{a, b} {
		for _, v := range s {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi-lo < 1e-9 {
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * 0.1
	return lo - pad, hi + pad
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " s"
}
