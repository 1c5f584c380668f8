// Package vla supports fine-tuning Vision-Language-Action policies on data
// recorded with a bimanual ALOHA rig.
//
// # Installation
//
//	go install github.com/gwillem/vla/cmd/vla@latest
//
// # Usage
//
// Detect and calibrate the master and puppet arms, including the gripper
// open and close angles:
//
//	vla setup
//
// Then start teleoperation:
//
//	vla teleoperate --home
//
// Convert a gripper reading, or list the training tasks:
//
//	vla gripper --actor master --from joint 0.3083
//	vla tasks --file tasks.toml
//
// Prepare a run and hand it to the trainer:
//
//	vla train --task_name libero_goal --output_dir out/libero_goal --lora_enable
//
// # Packages
//
//   - cmd/vla: CLI with setup, teleoperate, tasks, gripper, train and checkpoint commands
//   - pkg/gripper: gripper position, joint angle and normalized conversions
//   - pkg/aloha: fixed rig constants and the start pose
//   - pkg/tasks: task registry
//   - pkg/train: training arguments, launch plans and the trainer launcher
//   - pkg/checkpoint: LoRA and non-LoRA parameter partitioning
//   - pkg/robot: arm control, servo calibration and configuration
//   - pkg/teleop: teleoperation controller
package vla
