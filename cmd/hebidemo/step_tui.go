package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/hebidemo/pkg/demo"
)

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

const (
	cmdDataSet = "cmd"
	actDataSet = "act"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	actStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // blue
	cmdStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208")) // orange
)

type stepModel struct {
	ctrl     *demo.StepController
	fbkCh    <-chan float64
	result   *stepResult
	names    []string
	chart    *streamlinechart.Model
	width    int // terminal width
	height   int // terminal height
	logs     []string
	angle    float64 // last commanded angle
	quitting bool
}

// Messages from the controller
type stepStateMsg demo.StepState
type feedbackMsg float64
type stoppedMsg struct{ err error }

func waitForStepState(ctrl *demo.StepController) tea.Cmd {
	return func() tea.Msg {
		return stepStateMsg(<-ctrl.States())
	}
}

func waitForFeedback(ch <-chan float64) tea.Cmd {
	return func() tea.Msg {
		return feedbackMsg(<-ch)
	}
}

func waitForStop(r *stepResult) tea.Cmd {
	return func() tea.Msg {
		return stoppedMsg{err: r.Wait()}
	}
}

func newStepModel(ctrl *demo.StepController, fbkCh <-chan float64, result *stepResult, names []string) stepModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-0.2, math.Pi/2+0.2),
	)
	chart.SetDataSetStyles(cmdDataSet, runes.ThinLineStyle, cmdStyle)
	chart.SetDataSetStyles(actDataSet, runes.ThinLineStyle, actStyle)

	return stepModel{
		ctrl:   ctrl,
		fbkCh:  fbkCh,
		result: result,
		names:  names,
		chart:  &chart,
	}
}

func (m *stepModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *stepModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m stepModel) Init() tea.Cmd {
	return tea.Batch(
		waitForStepState(m.ctrl),
		waitForFeedback(m.fbkCh),
		waitForStop(m.result),
	)
}

func (m stepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stepStateMsg:
		m.angle = msg.Angle
		m.addLog(fmt.Sprintf("%s  step %d: pos %2d -> %.4f rad",
			msg.Timestamp.Format("15:04:05"), msg.Count, msg.Pos, msg.Angle))
		return m, waitForStepState(m.ctrl)

	case feedbackMsg:
		m.chart.PushDataSet(cmdDataSet, m.angle)
		m.chart.PushDataSet(actDataSet, float64(msg))
		m.chart.DrawAll()
		return m, waitForFeedback(m.fbkCh)

	case stoppedMsg:
		if msg.err != nil {
			m.addLog(msg.err.Error())
		}
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m stepModel) View() string {
	if m.quitting {
		return "Stepping stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("hebidemo step"))
	sb.WriteString(fmt.Sprintf(" - %v every %s", m.names, m.ctrl.Interval()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(cmdStyle.Bold(true).Render("━━") + " commanded  " + actStyle.Bold(true).Render("━━") + " actual")
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	logLines := statusStyle.Render("Press 'q' to quit")
	if len(m.logs) > 0 {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}
