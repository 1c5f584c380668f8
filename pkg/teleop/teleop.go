// Package teleop provides master/puppet teleoperation for ALOHA arms.
package teleop

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gwillem/vla/pkg/aloha"
	"github.com/gwillem/vla/pkg/gripper"
	"github.com/gwillem/vla/pkg/robot"
)

// Arm is the subset of robot.Arm the controller drives.
type Arm interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	ReadJoints(ctx context.Context) (map[robot.MotorName]float64, error)
	WriteJoints(ctx context.Context, joints map[robot.MotorName]float64) error
	Close() error
}

var _ Arm = (*robot.Arm)(nil)

// State represents the current state of teleoperation.
type State struct {
	Joints        map[robot.MotorName]float64 // master joint angles
	MasterGripper float64                     // normalized, 0 closed, 1 open
	PuppetGripper float64                     // puppet target joint angle
	Timestamp     time.Time
	Error         error
}

// Controller manages the teleoperation control loop.
type Controller struct {
	master  Arm
	puppet  Arm
	gripper *gripper.Calibration
	hz      int
	mirror  bool
	home    bool
	side    aloha.Side
	log     *logrus.Logger

	mu      sync.Mutex
	running bool
	stateCh chan State
	logCh   chan string
}

// Config holds configuration for the controller.
type Config struct {
	Master  Arm
	Puppet  Arm
	Gripper *gripper.Calibration // defaults to gripper.Default()
	Hz      int                  // defaults to aloha.FPS
	Mirror  bool                 // Invert waist and wrist_rotate
	Home    bool                 // Move the puppet to the start pose first
	Side    aloha.Side           // Which start pose to use
	Log     *logrus.Logger
}

// NewController creates a new teleoperation controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Master == nil || cfg.Puppet == nil {
		return nil, errors.New("master and puppet arms are required")
	}
	if cfg.Hz <= 0 {
		cfg.Hz = aloha.FPS
	}
	if cfg.Gripper == nil {
		cfg.Gripper = gripper.Default()
	}
	if cfg.Log == nil {
		cfg.Log = logrus.New()
		cfg.Log.SetOutput(io.Discard)
	}

	c := &Controller{
		master:  cfg.Master,
		puppet:  cfg.Puppet,
		gripper: cfg.Gripper,
		hz:      cfg.Hz,
		mirror:  cfg.Mirror,
		home:    cfg.Home,
		side:    cfg.Side,
		log:     cfg.Log,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}
	c.log.AddHook(&channelHook{ch: c.logCh})
	return c, nil
}

// Close closes the controller and releases resources.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	var errs []error
	if err := c.master.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.puppet.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Errorf("close errors: %v", errs)
	}
	return nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Start begins the teleoperation control loop.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("already running")
	}
	c.running = true
	c.mu.Unlock()

	if err := c.master.Disable(ctx); err != nil {
		c.log.Warnf("failed to disable master: %v", err)
	} else {
		c.log.Info("Master arm: torque disabled (passive mode)")
	}

	if err := c.puppet.Enable(ctx); err != nil {
		c.log.Warnf("failed to enable puppet: %v", err)
	} else {
		c.log.Info("Puppet arm: torque enabled")
	}

	if c.home {
		if err := c.moveHome(ctx); err != nil {
			c.log.Warnf("failed to move puppet home: %v", err)
		}
	}

	c.log.WithField("hz", c.hz).Infof("Teleoperation started at %d Hz", c.hz)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

// HomeTargets returns puppet joint targets for the start pose of side.
// The pose stores finger positions; the gripper motor takes a joint angle.
func HomeTargets(side aloha.Side, cal *gripper.Calibration) (map[robot.MotorName]float64, error) {
	pose, err := aloha.ArmPose(side)
	if err != nil {
		return nil, err
	}
	targets := make(map[robot.MotorName]float64, robot.MotorCount())
	for i, j := range aloha.JointNames {
		targets[robot.MotorName(j)] = pose[i]
	}
	targets[robot.Gripper] = cal.PositionToJoint(gripper.Puppet, pose[len(aloha.JointNames)])
	return targets, nil
}

func (c *Controller) moveHome(ctx context.Context) error {
	targets, err := HomeTargets(c.side, c.gripper)
	if err != nil {
		return err
	}
	if err := c.puppet.WriteJoints(ctx, targets); err != nil {
		return err
	}
	c.log.WithField("side", c.side).Info("Puppet arm: moved to start pose")
	return nil
}

// PuppetTargets maps master joint angles onto puppet targets.
func (c *Controller) PuppetTargets(joints map[robot.MotorName]float64) map[robot.MotorName]float64 {
	targets := make(map[robot.MotorName]float64, len(joints))
	for name, rad := range joints {
		switch {
		case name == robot.Gripper:
			targets[name] = c.gripper.MasterToPuppetJoint(rad)
		case c.mirror && (name == robot.Waist || name == robot.WristRotate):
			targets[name] = -rad
		default:
			targets[name] = rad
		}
	}
	return targets
}

func (c *Controller) step(ctx context.Context) {
	joints, err := c.master.ReadJoints(ctx)
	if err != nil {
		c.log.Errorf("Read error: %v", err)
		c.sendState(State{Error: err, Timestamp: time.Now()})
		return
	}

	targets := c.PuppetTargets(joints)
	if err := c.puppet.WriteJoints(ctx, targets); err != nil {
		c.log.Errorf("Write error: %v", err)
	}

	s := State{
		Joints:    joints,
		Timestamp: time.Now(),
	}
	if g, ok := joints[robot.Gripper]; ok {
		s.MasterGripper = c.gripper.NormalizeJoint(gripper.Master, g)
		s.PuppetGripper = targets[robot.Gripper]
	}
	c.sendState(s)
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if err := c.puppet.Disable(context.Background()); err != nil {
		c.log.Warnf("failed to disable puppet: %v", err)
	} else {
		c.log.Info("Puppet arm: torque disabled")
	}
	c.log.Info("Teleoperation stopped")
}

// channelHook forwards log entries to the TUI, dropping them when it lags.
type channelHook struct {
	ch chan string
}

func (h *channelHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *channelHook) Fire(e *logrus.Entry) error {
	msg := fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
	select {
	case h.ch <- msg:
	default:
	}
	return nil
}
