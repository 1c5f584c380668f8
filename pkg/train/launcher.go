package train

import (
	"context"
	"os"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Environment the trainer process always runs with.
var trainerEnv = []string{
	"TOKENIZERS_PARALLELISM=false",
	"DEVICE=cuda",
	"WANDB_DISABLED=true",
}

// Launcher runs the external trainer entrypoint for a plan.
type Launcher struct {
	// Command is the entrypoint, e.g. ["python", "train.py"].
	Command []string
	Log     *logrus.Logger
}

// Run starts the trainer and blocks until it exits or ctx is done.
func (l *Launcher) Run(ctx context.Context, p *Plan) error {
	if len(l.Command) == 0 {
		return errors.New("no trainer command configured")
	}
	log := l.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	args := append(append([]string(nil), l.Command[1:]...), p.Args.Flags()...)
	cmd := exec.CommandContext(ctx, l.Command[0], args...)
	cmd.Env = append(os.Environ(), trainerEnv...)

	entry := log.WithFields(logrus.Fields{
		"task":       p.Task.Name,
		"output_dir": p.Args.OutputDir,
	})
	stdout := entry.WriterLevel(logrus.InfoLevel)
	defer stdout.Close()
	stderr := entry.WriterLevel(logrus.WarnLevel)
	defer stderr.Close()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	entry.WithField("cmd", l.Command[0]).Info("starting trainer")
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(err, "trainer")
	}
	entry.Info("trainer finished")
	return nil
}
