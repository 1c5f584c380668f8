package main

import (
	"github.com/sirupsen/logrus"

	"github.com/gwillem/vla/pkg/checkpoint"
)

type CheckpointCommand struct {
	Split SplitCommand `command:"split" description:"Split a parameter manifest into LoRA and non-LoRA state"`
}

type SplitCommand struct {
	Bias string `long:"lora-bias" default:"none" choice:"none" choice:"all" choice:"lora_only" description:"Which biases travel with the adapter"`
	Out  string `short:"o" long:"out" default:"split.json" description:"Output file"`
	Args struct {
		Manifest string `positional-arg-name:"manifest" required:"true"`
	} `positional-args:"yes"`
}

func (c *SplitCommand) Execute(args []string) error {
	bias, err := checkpoint.ParseBias(c.Bias)
	if err != nil {
		return err
	}
	params, err := checkpoint.LoadManifest(c.Args.Manifest)
	if err != nil {
		return err
	}
	split, err := checkpoint.SplitParams(params, bias)
	if err != nil {
		return err
	}
	if err := split.SaveTo(c.Out); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"lora":     len(split.LoRA),
		"non_lora": len(split.NonLoRA),
		"out":      c.Out,
	}).Info("checkpoint state split")
	return nil
}
