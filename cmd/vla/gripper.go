package main

import (
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pkg/errors"

	"github.com/gwillem/vla/pkg/gripper"
	"github.com/gwillem/vla/pkg/robot"
)

type GripperCommand struct {
	Actor    string `long:"actor" default:"master" choice:"master" choice:"puppet" description:"Which gripper the value was read from"`
	From     string `long:"from" default:"joint" choice:"position" choice:"joint" choice:"normalized" description:"Unit of the input value"`
	Velocity bool   `long:"velocity" description:"Treat the value as a finger velocity"`
	Args     struct {
		Value string `positional-arg-name:"value" required:"true"`
	} `positional-args:"yes"`
}

// gripperCalibration uses the measured pairs from the robot config when it
// exists.
func gripperCalibration() (*gripper.Calibration, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if errors.Is(err, fs.ErrNotExist) {
		return gripper.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg.GripperCalibration()
}

func (c *GripperCommand) Execute(args []string) error {
	actor, err := gripper.ParseActor(c.Actor)
	if err != nil {
		return err
	}
	x, err := strconv.ParseFloat(c.Args.Value, 64)
	if err != nil {
		return errors.Wrapf(err, "parse value %q", c.Args.Value)
	}
	cal, err := gripperCalibration()
	if err != nil {
		return err
	}

	if c.Velocity {
		fmt.Printf("normalized velocity: %.6f\n", cal.NormalizeVelocity(actor, x))
		return nil
	}

	var norm float64
	switch c.From {
	case "position":
		norm = cal.NormalizePosition(actor, x)
	case "joint":
		norm = cal.NormalizeJoint(actor, x)
	default:
		norm = x
	}

	position := cal.UnnormalizePosition(actor, norm)
	joint := cal.UnnormalizeJoint(actor, norm)

	fmt.Printf("%s gripper\n", actor)
	fmt.Printf("  normalized: %.6f\n", norm)
	fmt.Printf("  position:   %.6f\n", position)
	fmt.Printf("  joint:      %.6f (midpoint %.6f)\n", joint, cal.JointMidpoint(actor))
	if actor == gripper.Master {
		fmt.Printf("  puppet position: %.6f\n", cal.MasterToPuppetPosition(position))
		fmt.Printf("  puppet joint:    %.6f\n", cal.MasterToPuppetJoint(joint))
	}
	if norm < 0 || norm > 1 {
		fmt.Println(dimStyle.Render("  (outside the calibrated range)"))
	}
	return nil
}
