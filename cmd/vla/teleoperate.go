package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gwillem/vla/pkg/aloha"
	"github.com/gwillem/vla/pkg/robot"
	"github.com/gwillem/vla/pkg/teleop"
)

type TeleoperateCommand struct {
	Hz     int    `long:"hz" default:"50" description:"Control loop frequency"`
	Mirror bool   `long:"mirror" description:"Mirror mode: invert waist and wrist_rotate"`
	Home   bool   `long:"home" description:"Move the puppet to the start pose before following"`
	Side   string `long:"side" default:"left" choice:"left" choice:"right" description:"Arm side, selects the start pose"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Motor colors - distinct colors for each motor
var motorColors = map[robot.MotorName]string{
	robot.Waist:       "196", // red
	robot.Shoulder:    "208", // orange
	robot.Elbow:       "226", // yellow
	robot.ForearmRoll: "46",  // green
	robot.WristAngle:  "51",  // cyan
	robot.WristRotate: "33",  // blue
	robot.Gripper:     "201", // magenta
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type teleopModel struct {
	ctrl       *teleop.Controller
	chart      *streamlinechart.Model
	width      int                         // terminal width
	height     int                         // terminal height
	logs       []string                    // last N log messages
	quitting   bool
	lastJoints map[robot.MotorName]float64 // previous master joints, to detect movement
	gripper    teleop.State                // latest gripper readings
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement checks if any joint angle has changed from the last state
func (m *teleopModel) hasMovement(joints map[robot.MotorName]float64) bool {
	if m.lastJoints == nil {
		return true // first reading, consider it movement
	}
	for name, rad := range joints {
		if last, ok := m.lastJoints[name]; !ok || rad != last {
			return true
		}
	}
	return false
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *teleopModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialTeleopModel(ctrl *teleop.Controller) teleopModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-math.Pi, math.Pi),
	)

	// Set up data set styles for each motor
	for _, name := range robot.AllMotors() {
		color := motorColors[name]
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	return teleopModel{
		ctrl:  ctrl,
		chart: &chart,
	}
}

func (m teleopModel) Init() tea.Cmd {
	// Start listening for state and log updates
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		state := teleop.State(msg)
		if state.Joints != nil {
			m.gripper = state
			// Only update chart if there's movement (freeze when idle)
			if m.hasMovement(state.Joints) {
				for name, pos := range state.Joints {
					m.chart.PushDataSet(string(name), pos)
				}
				m.chart.DrawAll()
				m.lastJoints = state.Joints
			}
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("ALOHA Teleoperate"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  gripper %3.0f%% open -> puppet %.3f rad",
		m.gripper.MasterGripper*100, m.gripper.PuppetGripper)))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, name := range robot.AllMotors() {
		color := motorColors[name]
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
		item := colorStyle.Render("━━") + " " + string(name)
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		return errors.Errorf("no configuration found in %s, run 'vla setup' first", opts.Config)
	}
	if cfg.Master.Port == "" || cfg.Puppet.Port == "" {
		return errors.New("arms not configured, run 'vla setup' first")
	}
	if !cfg.Master.IsCalibrated() || !cfg.Puppet.IsCalibrated() {
		return errors.New("arms not calibrated, run 'vla setup' first")
	}
	cal, err := cfg.GripperCalibration()
	if err != nil {
		return err
	}

	fmt.Printf("Loaded configuration from %s\n", opts.Config)

	master, err := robot.NewArm(cfg.Master.Port, cfg.Master.Calibration)
	if err != nil {
		return errors.Wrap(err, "create master arm")
	}
	puppet, err := robot.NewArm(cfg.Puppet.Port, cfg.Puppet.Calibration)
	if err != nil {
		master.Close()
		return errors.Wrap(err, "create puppet arm")
	}

	side := aloha.Left
	if c.Side == "right" {
		side = aloha.Right
	}

	// The TUI owns the terminal; controller logs go to its log box.
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.GetLevel())

	ctrl, err := teleop.NewController(teleop.Config{
		Master:  master,
		Puppet:  puppet,
		Gripper: cal,
		Hz:      c.Hz,
		Mirror:  c.Mirror,
		Home:    c.Home,
		Side:    side,
		Log:     logger,
	})
	if err != nil {
		master.Close()
		puppet.Close()
		return errors.Wrap(err, "create controller")
	}
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := ctrl.Start(ctx); err != nil && err != context.Canceled {
			logrus.Errorf("controller error: %v", err)
		}
	}()

	p := tea.NewProgram(initialTeleopModel(ctrl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "run teleoperate UI")
	}
	return nil
}
