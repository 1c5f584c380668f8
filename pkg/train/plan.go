package train

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/gwillem/vla/pkg/checkpoint"
	"github.com/gwillem/vla/pkg/tasks"
)

// PlanFile is written into the output directory before training starts.
const PlanFile = "launch.json"

// Plan is a fully resolved training run.
type Plan struct {
	Args          HyperArguments `json:"args"`
	Task          tasks.Task     `json:"task"`
	CameraNames   []string       `json:"camera_names"`
	ImagePrimary  ImageSize      `json:"image_size_primary"`
	ImageWrist    ImageSize      `json:"image_size_wrist"`
	CheckpointDir string         `json:"checkpoint_dir"`
	NonLoRAPath   string         `json:"non_lora_path,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NewPlan validates args and resolves the task from the registry.
func NewPlan(args HyperArguments, registry *tasks.Registry) (*Plan, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if _, err := checkpoint.ParseBias(args.LoRABias); err != nil {
		return nil, err
	}
	task, err := registry.Lookup(args.TaskName)
	if err != nil {
		return nil, errors.Wrap(err, "resolve task")
	}

	primary, _ := ParseImageSize(args.ImageSizePrimary)
	wrist, _ := ParseImageSize(args.ImageSizeWrist)

	p := &Plan{
		Args:          args,
		Task:          task,
		CameraNames:   task.CameraNames,
		ImagePrimary:  primary,
		ImageWrist:    wrist,
		CheckpointDir: filepath.Join(args.OutputDir, fmt.Sprintf("checkpoint-%d", args.SaveSteps)),
		CreatedAt:     time.Now().UTC(),
	}
	if args.LoRAEnable {
		p.NonLoRAPath = filepath.Join(args.OutputDir, checkpoint.NonLoRAFile)
	}
	return p, nil
}

// Save creates the output directory and writes the plan into it.
func (p *Plan) Save() (string, error) {
	if err := os.MkdirAll(p.Args.OutputDir, 0755); err != nil {
		return "", errors.Wrap(err, "create output dir")
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(p.Args.OutputDir, PlanFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrap(err, "write plan")
	}
	return path, nil
}

// LoadPlan reads a plan written by Save.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read plan")
	}
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "parse plan")
	}
	return &p, nil
}

// Flags renders the arguments as "--name value" pairs for the trainer
// entrypoint. Zero values of options without a default are left out.
func (a *HyperArguments) Flags() []string {
	v := reflect.ValueOf(a).Elem()
	t := v.Type()

	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("long")
		if name == "" || f.Tag.Get("hf") == "-" {
			continue
		}
		fv := v.Field(i)
		if _, hasDefault := f.Tag.Lookup("default"); !hasDefault && fv.IsZero() {
			continue
		}

		var s string
		switch fv.Kind() {
		case reflect.Bool:
			s = pyBool(fv.Bool())
		case reflect.Int:
			s = strconv.FormatInt(fv.Int(), 10)
		case reflect.Float64:
			s = strconv.FormatFloat(fv.Float(), 'g', -1, 64)
		default:
			s = fv.String()
		}
		out = append(out, "--"+name, s)
	}
	return append(out, "--double_quant", pyBool(a.DoubleQuant()))
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
