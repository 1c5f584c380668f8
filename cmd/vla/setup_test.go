package main

import (
	"testing"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/vla/pkg/gripper"
	"github.com/gwillem/vla/pkg/robot"
)

func TestIsAlohaArm(t *testing.T) {
	servos := make([]feetech.FoundServo, 0, robot.MotorCount())
	for id := 1; id <= robot.MotorCount(); id++ {
		servos = append(servos, feetech.FoundServo{ID: id})
	}
	if !isAlohaArm(servos) {
		t.Error("isAlohaArm() = false for IDs 1-7")
	}
	if isAlohaArm(servos[:6]) {
		t.Error("isAlohaArm() = true for six servos")
	}

	servos[3].ID = 9
	if isAlohaArm(servos) {
		t.Error("isAlohaArm() = true with a missing ID")
	}
}

func TestSetGripperJoint(t *testing.T) {
	cfg := &robot.Config{}
	setGripperJoint(cfg, gripper.Puppet, gripper.Pair{Open: 1.3, Close: -0.5})

	cal, err := cfg.GripperCalibration()
	if err != nil {
		t.Fatalf("GripperCalibration() error = %v", err)
	}
	if got := cal.Pair(gripper.Puppet, gripper.Joint); got.Open != 1.3 || got.Close != -0.5 {
		t.Errorf("puppet joint = %+v", got)
	}
	if got := cal.Pair(gripper.Puppet, gripper.Position).Open; got != gripper.PuppetPositionOpen {
		t.Errorf("puppet position open = %v, want default", got)
	}
}

func TestCapitalize(t *testing.T) {
	if got := capitalize("master"); got != "Master" {
		t.Errorf("capitalize(master) = %q", got)
	}
	if got := capitalize(""); got != "" {
		t.Errorf("capitalize(\"\") = %q", got)
	}
}
