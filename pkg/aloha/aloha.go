// Package aloha holds the fixed constants of the bimanual ALOHA rig.
package aloha

import (
	"time"

	"github.com/pkg/errors"
)

// DT is the control period.
const DT = 20 * time.Millisecond

// FPS is the recording and control rate.
const FPS = 50

// JointNames lists the arm joints in qpos order, excluding the gripper.
var JointNames = []string{"waist", "shoulder", "elbow", "forearm_roll", "wrist_angle", "wrist_rotate"}

// Side selects one arm of the rig.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}

// Per arm: six joints, then the two finger positions.
const armDOF = 8

// StartArmPose is the rest pose for both arms, left then right.
var StartArmPose = [2 * armDOF]float64{
	0, -0.96, 1.16, 0, -0.3, 0, 0.02239, -0.02239,
	0, -0.96, 1.16, 0, -0.3, 0, 0.02239, -0.02239,
}

// ArmPose returns a copy of the start pose for one arm.
func ArmPose(s Side) ([]float64, error) {
	if s != Left && s != Right {
		return nil, errors.Errorf("invalid arm side %d", s)
	}
	pose := make([]float64, armDOF)
	copy(pose, StartArmPose[int(s)*armDOF:])
	return pose, nil
}
