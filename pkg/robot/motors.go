// Package robot provides abstractions for controlling ALOHA arms.
package robot

import "github.com/gwillem/vla/pkg/aloha"

// MotorName identifies a motor in the arm.
type MotorName string

// Motor names, matching aloha.JointNames plus the gripper.
const (
	Waist       MotorName = "waist"
	Shoulder    MotorName = "shoulder"
	Elbow       MotorName = "elbow"
	ForearmRoll MotorName = "forearm_roll"
	WristAngle  MotorName = "wrist_angle"
	WristRotate MotorName = "wrist_rotate"
	Gripper     MotorName = "gripper"
)

// AllMotors returns all motor names in qpos order (matching servo IDs 1-7).
func AllMotors() []MotorName {
	motors := make([]MotorName, 0, len(aloha.JointNames)+1)
	for _, j := range aloha.JointNames {
		motors = append(motors, MotorName(j))
	}
	return append(motors, Gripper)
}

// MotorCount is the number of servos on one arm.
func MotorCount() int {
	return len(aloha.JointNames) + 1
}
