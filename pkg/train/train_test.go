package train

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/gwillem/vla/pkg/tasks"
)

func defaultArgs(t *testing.T) HyperArguments {
	t.Helper()
	a, err := DefaultArguments()
	if err != nil {
		t.Fatalf("DefaultArguments() error = %v", err)
	}
	a.OutputDir = t.TempDir()
	a.TaskName = "libero_goal"
	return a
}

func TestDefaultArguments(t *testing.T) {
	a, err := DefaultArguments()
	if err != nil {
		t.Fatalf("DefaultArguments() error = %v", err)
	}
	if a.ModelName != "qwen2vl_dp" || a.ChunkSize != 16 || a.LoRAR != 64 || a.LoRAAlpha != 256 {
		t.Errorf("unexpected defaults: %+v", a)
	}
	if a.AdamBeta2 != 0.98 || a.AdamEpsilon != 1e-7 || a.LoRADropout != 0.05 {
		t.Errorf("unexpected optimizer defaults: beta2=%v eps=%v dropout=%v", a.AdamBeta2, a.AdamEpsilon, a.LoRADropout)
	}
	if a.LocalRank != -1 || !a.IsMainProcess() {
		t.Errorf("LocalRank = %d, want -1 (main process)", a.LocalRank)
	}
	if !a.DoubleQuant() {
		t.Error("DoubleQuant() should default to true")
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*HyperArguments){
		"no output dir":    func(a *HyperArguments) { a.OutputDir = "" },
		"bad normalize":    func(a *HyperArguments) { a.ActionNormalize = "l2" },
		"bad image size":   func(a *HyperArguments) { a.ImageSizeWrist = "256x256" },
		"zero chunk":       func(a *HyperArguments) { a.ChunkSize = 0 },
		"bad bias":         func(a *HyperArguments) { a.LoRABias = "some" },
		"bad quant type":   func(a *HyperArguments) { a.QuantType = "int8" },
		"bad bits":         func(a *HyperArguments) { a.Bits = 12 },
		"dropout too high": func(a *HyperArguments) { a.LoRADropout = 1 },
	}

	for name, mutate := range tests {
		a := defaultArgs(t)
		mutate(&a)
		if err := a.Validate(); !errors.Is(err, ErrInvalidArgs) {
			t.Errorf("%s: Validate() error = %v, want ErrInvalidArgs", name, err)
		}
	}

	a := defaultArgs(t)
	if err := a.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestParseImageSize(t *testing.T) {
	tests := []struct {
		in      string
		want    ImageSize
		wantErr bool
	}{
		{"(256,256)", ImageSize{256, 256}, false},
		{" ( 320 , 240 ) ", ImageSize{320, 240}, false},
		{"(0,256)", ImageSize{}, true},
		{"256,256", ImageSize{}, true},
		{"(a,b)", ImageSize{}, true},
	}

	for _, tt := range tests {
		got, err := ParseImageSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseImageSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseImageSize(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestNewPlan(t *testing.T) {
	a := defaultArgs(t)
	a.LoRAEnable = true
	a.SaveSteps = 500

	p, err := NewPlan(a, tasks.Default())
	if err != nil {
		t.Fatalf("NewPlan() error = %v", err)
	}
	if len(p.CameraNames) != 1 || p.CameraNames[0] != "primary" {
		t.Errorf("CameraNames = %v, want [primary]", p.CameraNames)
	}
	if want := filepath.Join(a.OutputDir, "checkpoint-500"); p.CheckpointDir != want {
		t.Errorf("CheckpointDir = %s, want %s", p.CheckpointDir, want)
	}
	if !strings.HasSuffix(p.NonLoRAPath, "non_lora_trainables.bin") {
		t.Errorf("NonLoRAPath = %s", p.NonLoRAPath)
	}
	if p.ImagePrimary != (ImageSize{256, 256}) {
		t.Errorf("ImagePrimary = %+v", p.ImagePrimary)
	}

	path, err := p.Save()
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan() error = %v", err)
	}
	if loaded.Task.Name != "libero_goal" || loaded.Args.SaveSteps != 500 {
		t.Errorf("loaded plan = %+v", loaded)
	}
}

func TestNewPlan_UnknownTask(t *testing.T) {
	a := defaultArgs(t)
	a.TaskName = "stack_cube_2024_6_2"
	if _, err := NewPlan(a, tasks.Default()); !errors.Is(err, tasks.ErrUnknownTask) {
		t.Errorf("NewPlan() error = %v, want ErrUnknownTask", err)
	}
}

func flagValue(flags []string, name string) (string, bool) {
	for i := 0; i+1 < len(flags); i += 2 {
		if flags[i] == "--"+name {
			return flags[i+1], true
		}
	}
	return "", false
}

func TestFlags(t *testing.T) {
	a := defaultArgs(t)
	a.LoRAEnable = true
	flags := a.Flags()

	if len(flags)%2 != 0 {
		t.Fatalf("Flags() has odd length %d", len(flags))
	}

	tests := map[string]string{
		"task_name":     "libero_goal",
		"chunk_size":    "16",
		"adam_epsilon":  "1e-07",
		"lora_enable":   "True",
		"double_quant":  "True",
		"lora_dropout":  "0.05",
		"output_dir":    a.OutputDir,
		"learning_rate": "5e-05",
	}
	for name, want := range tests {
		got, ok := flagValue(flags, name)
		if !ok {
			t.Errorf("--%s missing", name)
			continue
		}
		if got != want {
			t.Errorf("--%s = %s, want %s", name, got, want)
		}
	}

	for _, name := range []string{"local_rank", "no_double_quant", "non_lora_lr", "cache_dir", "use_reasoning"} {
		if _, ok := flagValue(flags, name); ok {
			t.Errorf("--%s should not be forwarded", name)
		}
	}
}

func TestLauncher_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	p, err := NewPlan(defaultArgs(t), tasks.Default())
	if err != nil {
		t.Fatal(err)
	}

	ok := &Launcher{Command: []string{"sh", "-c", `test "$WANDB_DISABLED" = true`, "trainer"}}
	if err := ok.Run(context.Background(), p); err != nil {
		t.Errorf("Run() error = %v", err)
	}

	fail := &Launcher{Command: []string{"sh", "-c", "exit 3", "trainer"}}
	if err := fail.Run(context.Background(), p); err == nil {
		t.Error("Run() should report a failing trainer")
	}

	if err := (&Launcher{}).Run(context.Background(), p); err == nil {
		t.Error("Run() without a command should fail")
	}
}
