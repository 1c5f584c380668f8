package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Verbose bool   `short:"v" long:"verbose" description:"Enable debug logging"`
	Config  string `long:"config" default:"vla.json" description:"Robot configuration file"`

	Setup       SetupCommand       `command:"setup" description:"Scan for arms and calibrate them"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Start teleoperation (master-puppet control)"`
	Tasks       TasksCommand       `command:"tasks" description:"List training tasks"`
	Gripper     GripperCommand     `command:"gripper" description:"Convert gripper readings"`
	Train       TrainCommand       `command:"train" description:"Prepare and launch a fine-tuning run"`
	Checkpoint  CheckpointCommand  `command:"checkpoint" description:"Checkpoint utilities"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)

func main() {
	parser.LongDescription = "vla - ALOHA teleoperation and VLA fine-tuning launcher"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if opts.Verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				fmt.Println(flagsErr.Message)
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, flagsErr.Message)
		} else {
			logrus.Error(err)
		}
		os.Exit(1)
	}
}
