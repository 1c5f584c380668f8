package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/gwillem/vla/pkg/gripper"
	"github.com/gwillem/vla/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	SkipGripper bool `long:"skip-gripper" description:"Keep the default gripper open/close calibration"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("ALOHA Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━"))
	fmt.Println()

	config, err := scanForArms()
	if err != nil {
		return err
	}

	for _, arm := range []struct {
		cfg   *robot.ArmConfig
		actor gripper.Actor
	}{
		{&config.Master, gripper.Master},
		{&config.Puppet, gripper.Puppet},
	} {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render(fmt.Sprintf("━━━ Calibrating %s arm ━━━", arm.actor)))
		fmt.Println()

		joint, err := calibrateArm(arm.cfg, arm.actor, !c.SkipGripper)
		if err != nil {
			return err
		}
		if joint != nil {
			setGripperJoint(config, arm.actor, *joint)
		}

		// Save after each arm so a failed puppet keeps the master
		if err := config.SaveTo(opts.Config); err != nil {
			return errors.Wrap(err, "save config")
		}
	}

	if _, err := config.GripperCalibration(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start teleoperation with: " + headerStyle.Render("vla teleoperate"))

	return nil
}

func setGripperJoint(config *robot.Config, actor gripper.Actor, p gripper.Pair) {
	if config.Gripper == nil {
		config.Gripper = &gripper.Overrides{}
	}
	pairs := &gripper.ActorPairs{Joint: &p}
	switch actor {
	case gripper.Master:
		config.Gripper.Master = pairs
	case gripper.Puppet:
		config.Gripper.Puppet = pairs
	}
}

func scanForArms() (*robot.Config, error) {
	fmt.Println("Scanning for robot arms...")
	fmt.Println()

	arms := findArms()
	if len(arms) == 0 {
		return nil, errors.Errorf("no arms found (expected %d servos with IDs 1-%d); make sure they are connected and powered on",
			robot.MotorCount(), robot.MotorCount())
	}

	fmt.Printf("Found %d arm(s). Let's identify them...\n\n", len(arms))

	// Identify each arm by wiggling it
	var masterPort, puppetPort string

	for _, arm := range arms {
		role := identifyArmWithWiggle(arm, masterPort == "", puppetPort == "")
		switch role {
		case gripper.Master:
			masterPort = arm.port
		case gripper.Puppet:
			puppetPort = arm.port
		}

		if masterPort != "" && puppetPort != "" {
			break
		}
	}

	fmt.Println()

	if masterPort == "" || puppetPort == "" {
		return nil, errors.New("both a master and a puppet arm are required for teleoperation")
	}

	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Arms identified:"))
	fmt.Printf("  Master: %s\n", masterPort)
	fmt.Printf("  Puppet: %s\n", puppetPort)

	return &robot.Config{
		Master: robot.ArmConfig{Port: masterPort},
		Puppet: robot.ArmConfig{Port: puppetPort},
	}, nil
}

// calibrateArm records each motor's range of motion and, when asked, the
// gripper joint angle at fully open and fully closed.
func calibrateArm(armConfig *robot.ArmConfig, actor gripper.Actor, recordGripper bool) (*gripper.Pair, error) {
	fmt.Printf("Calibrating %s arm on %s\n", actor, armConfig.Port)
	fmt.Println()

	bus, servos, err := connectToArm(armConfig.Port)
	if err != nil {
		return nil, errors.Wrap(err, "connect to arm")
	}
	defer bus.Close()

	servoMap := make(map[int]*feetech.Servo)
	for _, s := range servos {
		servoMap[s.ID] = feetech.NewServo(bus, s.ID, s.Model)
	}

	// Disable all servos so user can move arm freely
	ctx := context.Background()
	for id, servo := range servoMap {
		if err := servo.Disable(ctx); err != nil {
			logrus.WithField("servo", id).Warnf("disable torque: %v", err)
		}
	}

	motors := robot.AllMotors()

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println("Explore the full range of motion for all joints.")
	fmt.Println()

	curPositions := make(map[robot.MotorName]int)
	minPositions := make(map[robot.MotorName]int)
	maxPositions := make(map[robot.MotorName]int)
	for i, motorName := range motors {
		pos, _ := servoMap[i+1].Position(ctx)
		curPositions[motorName] = pos
		minPositions[motorName] = pos
		maxPositions[motorName] = pos
	}

	model := newCalibrationModel(motors, servoMap, curPositions, minPositions, maxPositions)
	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, errors.Wrap(err, "run calibration")
	}

	cm := finalModel.(calibrationModel)
	calibration := make(robot.Calibration, len(motors))
	for i, motorName := range motors {
		calibration[motorName] = robot.MotorCalibration{
			ID:       i + 1,
			RangeMin: cm.minPositions[motorName],
			RangeMax: cm.maxPositions[motorName],
		}
	}
	armConfig.Calibration = calibration

	fmt.Println()
	fmt.Printf("%s arm range recorded.\n", capitalize(string(actor)))

	if !recordGripper {
		return nil, nil
	}

	gripperServo := servoMap[calibration[robot.Gripper].ID]
	cal := calibration[robot.Gripper]
	readJoint := func(prompt string) (float64, error) {
		waitForUser(prompt)
		raw, err := gripperServo.Position(ctx)
		if err != nil {
			return 0, errors.Wrap(err, "read gripper")
		}
		return cal.Radians(raw), nil
	}

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("Record gripper limits"))
	open, err := readJoint("Open the gripper fully.")
	if err != nil {
		return nil, err
	}
	closed, err := readJoint("Close the gripper fully.")
	if err != nil {
		return nil, err
	}

	pair := gripper.Pair{Open: open, Close: closed}
	if err := pair.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s gripper", actor)
	}
	fmt.Printf("Gripper joint: open %.4f, close %.4f\n", pair.Open, pair.Close)
	return &pair, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type armInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func openBus(port string) (*feetech.Bus, error) {
	return feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: robot.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
}

func findArms() []armInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		logrus.Errorf("listing ports: %v", err)
		return nil
	}

	var arms []armInfo

	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

		bus, err := openBus(port)
		if err != nil {
			cancel()
			logrus.WithField("port", port).Debugf("open bus: %v", err)
			continue
		}

		servos, err := bus.Scan(ctx, 1, robot.MotorCount())
		cancel()

		if err != nil {
			bus.Close()
			continue
		}

		if isAlohaArm(servos) {
			fmt.Printf("  Found arm on %s\n", port)
			arms = append(arms, armInfo{
				port:   port,
				servos: servos,
				bus:    bus,
			})
		} else {
			bus.Close()
		}
	}

	return arms
}

// isAlohaArm reports whether servos are exactly IDs 1..MotorCount.
func isAlohaArm(servos []feetech.FoundServo) bool {
	n := robot.MotorCount()
	if len(servos) != n {
		return false
	}

	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}

	for i := 1; i <= n; i++ {
		if !ids[i] {
			return false
		}
	}

	return true
}

func identifyArmWithWiggle(arm armInfo, needMaster, needPuppet bool) gripper.Actor {
	defer arm.bus.Close()

	ctx := context.Background()

	// Wiggle the waist (servo ID 1)
	var servo *feetech.Servo
	for _, s := range arm.servos {
		if s.ID == 1 {
			servo = feetech.NewServo(arm.bus, s.ID, s.Model)
			break
		}
	}

	if servo == nil {
		return ""
	}

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return ""
	}

	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return ""
	}

	fmt.Printf("\n  Wiggling arm on %s...\n", arm.port)

	// Single gentle, slow movement
	wiggleAmount := 30
	moveTimeMs := 500
	for _, target := range []int{originalPos + wiggleAmount, originalPos - wiggleAmount, originalPos} {
		servo.SetPositionWithTime(ctx, target, moveTimeMs)
		time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	}

	servo.Disable(ctx)

	var options []huh.Option[string]
	if needMaster {
		options = append(options, huh.NewOption("Master (the one you move by hand)", string(gripper.Master)))
	}
	if needPuppet {
		options = append(options, huh.NewOption("Puppet (the one that follows)", string(gripper.Puppet)))
	}
	options = append(options, huh.NewOption("Skip this arm", "skip"))

	var role string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Which arm is on %s?", arm.port)).
				Description("The arm that just wiggled").
				Options(options...).
				Value(&role),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	actor, err := gripper.ParseActor(role)
	if err != nil {
		return ""
	}
	return actor
}

func connectToArm(port string) (*feetech.Bus, []feetech.FoundServo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := openBus(port)
	if err != nil {
		return nil, nil, err
	}

	servos, err := bus.Scan(ctx, 1, robot.MotorCount())
	if err != nil {
		bus.Close()
		return nil, nil, err
	}

	if !isAlohaArm(servos) {
		bus.Close()
		return nil, nil, errors.Errorf("not an ALOHA arm (expected %d servos with IDs 1-%d)", robot.MotorCount(), robot.MotorCount())
	}

	return bus, servos, nil
}

func waitForUser(prompt string) {
	fmt.Println(prompt)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("").
				Affirmative("Continue").
				Negative("").
				Value(new(bool)),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
}

// Calibration TUI model
type calibrationModel struct {
	motors       []robot.MotorName
	servoMap     map[int]*feetech.Servo
	curPositions map[robot.MotorName]int
	minPositions map[robot.MotorName]int
	maxPositions map[robot.MotorName]int
	quitting     bool
}

type tickMsg time.Time

func newCalibrationModel(
	motors []robot.MotorName,
	servoMap map[int]*feetech.Servo,
	curPositions, minPositions, maxPositions map[robot.MotorName]int,
) calibrationModel {
	return calibrationModel{
		motors:       motors,
		servoMap:     servoMap,
		curPositions: curPositions,
		minPositions: minPositions,
		maxPositions: maxPositions,
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for i, motorName := range m.motors {
			pos, err := m.servoMap[i+1].Position(ctx)
			if err != nil {
				continue
			}
			m.curPositions[motorName] = pos
			m.minPositions[motorName] = min(m.minPositions[motorName], pos)
			m.maxPositions[motorName] = max(m.maxPositions[motorName], pos)
		}
		return m, tick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableMotorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.motors))
	ranges := make([]int, 0, len(m.motors))
	for _, motorName := range m.motors {
		rangeSize := m.maxPositions[motorName] - m.minPositions[motorName]
		ranges = append(ranges, rangeSize)
		rows = append(rows, []string{
			string(motorName),
			fmt.Sprintf("%d", m.curPositions[motorName]),
			fmt.Sprintf("%d", m.minPositions[motorName]),
			fmt.Sprintf("%d", m.maxPositions[motorName]),
			fmt.Sprintf("%.2f rad", float64(rangeSize)*2*math.Pi/robot.TicksPerRev),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableMotorStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(ranges) && ranges[row] > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}
