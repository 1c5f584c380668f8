package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/vla/pkg/train"
)

type TrainCommand struct {
	TaskFile string `long:"task-file" description:"TOML file with extra [tasks.<name>] tables"`
	Trainer  string `long:"trainer" default:"python train.py" description:"Trainer entrypoint; empty only writes the plan"`
	DryRun   bool   `long:"dry-run" description:"Write the plan without starting the trainer"`

	train.HyperArguments `group:"Training arguments"`
}

func (c *TrainCommand) Execute(args []string) error {
	registry, err := loadRegistry(c.TaskFile)
	if err != nil {
		return err
	}

	plan, err := train.NewPlan(c.HyperArguments, registry)
	if err != nil {
		return err
	}
	path, err := plan.Save()
	if err != nil {
		return err
	}

	log := logrus.WithFields(logrus.Fields{
		"task":    plan.Task.Name,
		"cameras": strings.Join(plan.CameraNames, ","),
		"lora":    plan.Args.LoRAEnable,
	})
	log.Infof("plan written to %s", path)

	command := strings.Fields(c.Trainer)
	if c.DryRun || len(command) == 0 {
		log.Info("dry run, not starting trainer")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	launcher := &train.Launcher{Command: command, Log: logrus.StandardLogger()}
	if err := launcher.Run(ctx, plan); err != nil {
		return err
	}
	log.WithField("checkpoint", plan.CheckpointDir).Info("training finished")
	return nil
}
