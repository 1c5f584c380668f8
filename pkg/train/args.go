// Package train prepares VLA fine-tuning runs and hands them to the
// external trainer.
package train

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

var ErrInvalidArgs = errors.New("invalid training arguments")

// HyperArguments are the trainer's arguments. Fields tagged with `long` are
// forwarded to the trainer entrypoint unless also tagged `hf:"-"`.
type HyperArguments struct {
	// model
	ModelName       string `long:"model_name" default:"qwen2vl_dp" description:"Model module providing load_model"`
	ModelNameOrPath string `long:"model_name_or_path" default:"facebook/opt-125m" description:"Pretrained weights"`
	IsPretrained    bool   `long:"is_pretrained" description:"Weights are already a VLA"`

	// policy
	StateDim  int `long:"state_dim" default:"7" description:"Proprioceptive state dimension"`
	ActionDim int `long:"action_dim" default:"7" description:"Action dimension"`

	// data
	ActionNormalize     string `long:"action_normalize" default:"minmax" choice:"minmax" choice:"zscore" choice:"percentile" description:"Action normalization"`
	StateNormalize      string `long:"state_normalize" default:"minmax" choice:"minmax" choice:"zscore" choice:"percentile" description:"State normalization"`
	ChunkSize           int    `long:"chunk_size" default:"16" description:"Action chunk length"`
	ImageSizePrimary    string `long:"image_size_primary" default:"(256,256)" description:"Size of non-wrist camera images"`
	ImageSizeWrist      string `long:"image_size_wrist" default:"(256,256)" description:"Size of wrist camera images"`
	UseReasoning        bool   `long:"use_reasoning" description:"Load reasoning annotations"`
	UsePrevSubtask      bool   `long:"use_prev_subtask" description:"Add the previous subtask to the input"`
	AbsControl          bool   `long:"abs_control" description:"Absolute control targets"`
	LazyPreprocess      bool   `long:"lazy_preprocess" description:"Preprocess samples on access"`
	EpisodeFirst        bool   `long:"episode_first" description:"Sample episode index before timestep"`
	SelectSegTokenMask  bool   `long:"select_seg_token_mask"`
	IsMultimodal        bool   `long:"is_multimodal"`
	ImageAspectRatio    string `long:"image_aspect_ratio" default:"square"`
	TaskName            string `long:"task_name" default:"stack_cube_2024_6_2" description:"Task from the task registry"`
	SkipMirroredData    bool   `long:"skip_mirrored_data"`
	DeltaControl        bool   `long:"delta_control"`
	HistoryImagesLength int    `long:"history_images_length" default:"1" description:"Number of history frames"`

	// training
	OutputDir            string  `long:"output_dir" description:"Checkpoint directory"`
	UsingEMA             bool    `long:"using_ema" description:"EMA update of the whole module"`
	CacheDir             string  `long:"cache_dir"`
	Optim                string  `long:"optim" default:"adamw_torch"`
	LearningRate         float64 `long:"learning_rate" default:"5e-05"`
	AdamBeta1            float64 `long:"adam_beta1" default:"0.9"`
	AdamBeta2            float64 `long:"adam_beta2" default:"0.98"`
	AdamEpsilon          float64 `long:"adam_epsilon" default:"1e-07"`
	RemoveUnusedColumns  bool    `long:"remove_unused_columns"`
	FlashAttn            bool    `long:"flash_attn"`
	FreezeVisionTower    bool    `long:"freeze_vision_tower"`
	FreezeBackbone       bool    `long:"freeze_backbone"`
	TuneMMMLPAdapter     bool    `long:"tune_mm_mlp_adapter"`
	ResumeFromCheckpoint bool    `long:"resume_from_checkpoint"`
	LLMLossWeight        float64 `long:"llm_loss_weight" default:"1.0"`
	Seed                 int     `long:"seed" default:"0"`
	PerDeviceBatchSize   int     `long:"per_device_train_batch_size" default:"8"`
	LocalRank            int     `long:"local_rank" default:"-1" hf:"-"`

	// logging
	LoggingDir      string `long:"logging_dir" default:"./logs"`
	LoggingStrategy string `long:"logging_strategy" default:"steps"`
	LoggingSteps    int    `long:"logging_steps" default:"10"`
	SaveSteps       int    `long:"save_steps" default:"10"`
	NumTrainEpochs  int    `long:"num_train_epochs" default:"3"`
	MaxSteps        int    `long:"max_steps" default:"5000"`

	// evaluation, unused by the trainer
	DoEval                 bool   `long:"do_eval"`
	EvaluationStrategy     string `long:"evaluation_strategy" default:"no"`
	EvalSteps              int    `long:"eval_steps" default:"200"`
	PerDeviceEvalBatchSize int    `long:"per_device_eval_batch_size" default:"32"`
	LoadPretrain           bool   `long:"load_pretrain" description:"Load a pretrained VLA (stage 3)"`
	DataloaderPinMemory    bool   `long:"dataloader_pin_memory"`

	// lora
	UseQuantization       bool    `long:"use_quantization"`
	LoRAEnable            bool    `long:"lora_enable"`
	LoRAModule            string  `long:"lora_module" default:"vit"`
	LoRATaskType          string  `long:"lora_task_type" default:"CAUSAL_LM"`
	LoRAR                 int     `long:"lora_r" default:"64"`
	LoRAAlpha             int     `long:"lora_alpha" default:"256"`
	LoRADropout           float64 `long:"lora_dropout" default:"0.05"`
	LoRAWeightPath        string  `long:"lora_weight_path"`
	LoRABias              string  `long:"lora_bias" default:"none" choice:"none" choice:"all" choice:"lora_only"`
	NonLoRALR             float64 `long:"non_lora_lr" description:"Learning rate for non-LoRA parameters (0 = same as learning_rate)"`
	GroupByModalityLength bool    `long:"group_by_modality_length"`
	ModelMaxLength        int     `long:"model_max_length" default:"2048" description:"Maximum sequence length"`
	NoDoubleQuant         bool    `long:"no_double_quant" hf:"-" description:"Disable double quantization of quantization statistics"`
	QuantType             string  `long:"quant_type" default:"nf4" choice:"fp4" choice:"nf4"`
	Bits                  int     `long:"bits" default:"16" description:"Bits for quantization (4, 8 or 16)"`
}

// DefaultArguments returns the arguments with every default applied.
func DefaultArguments() (HyperArguments, error) {
	var a HyperArguments
	if _, err := flags.NewParser(&a, flags.None).ParseArgs(nil); err != nil {
		return HyperArguments{}, errors.Wrap(err, "apply argument defaults")
	}
	return a, nil
}

// DoubleQuant reports whether quantization statistics are compressed.
func (a *HyperArguments) DoubleQuant() bool {
	return !a.NoDoubleQuant
}

// IsMainProcess reports whether this rank writes checkpoints.
func (a *HyperArguments) IsMainProcess() bool {
	return a.LocalRank == 0 || a.LocalRank == -1
}

var normalizers = map[string]bool{"minmax": true, "zscore": true, "percentile": true}

// Validate checks the arguments that the launcher itself depends on.
func (a *HyperArguments) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(a.OutputDir) == "" {
		add("output_dir is required")
	}
	if a.ModelName == "" {
		add("model_name is required")
	}
	if a.StateDim <= 0 || a.ActionDim <= 0 {
		add("state_dim and action_dim must be positive")
	}
	if a.ChunkSize <= 0 {
		add("chunk_size must be positive, got %d", a.ChunkSize)
	}
	if a.HistoryImagesLength <= 0 {
		add("history_images_length must be positive, got %d", a.HistoryImagesLength)
	}
	if !normalizers[a.ActionNormalize] {
		add("unknown action_normalize %q", a.ActionNormalize)
	}
	if !normalizers[a.StateNormalize] {
		add("unknown state_normalize %q", a.StateNormalize)
	}
	for name, s := range map[string]string{"image_size_primary": a.ImageSizePrimary, "image_size_wrist": a.ImageSizeWrist} {
		if _, err := ParseImageSize(s); err != nil {
			add("%s: %v", name, err)
		}
	}
	if a.SaveSteps <= 0 {
		add("save_steps must be positive, got %d", a.SaveSteps)
	}
	switch a.LoRABias {
	case "none", "all", "lora_only":
	default:
		add("unknown lora_bias %q", a.LoRABias)
	}
	if a.QuantType != "fp4" && a.QuantType != "nf4" {
		add("quant_type must be fp4 or nf4, got %q", a.QuantType)
	}
	switch a.Bits {
	case 4, 8, 16:
	default:
		add("bits must be 4, 8 or 16, got %d", a.Bits)
	}
	if a.LoRAEnable && (a.LoRAR <= 0 || a.LoRAAlpha <= 0) {
		add("lora_r and lora_alpha must be positive when lora_enable is set")
	}
	if a.LoRADropout < 0 || a.LoRADropout >= 1 {
		add("lora_dropout must be in [0,1), got %v", a.LoRADropout)
	}

	if len(problems) > 0 {
		return errors.Wrap(ErrInvalidArgs, strings.Join(problems, "; "))
	}
	return nil
}

// ImageSize is a camera image size in pixels.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var imageSizeRe = regexp.MustCompile(`^\(\s*(\d+)\s*,\s*(\d+)\s*\)$`)

// ParseImageSize parses the "(W,H)" form used on the command line.
func ParseImageSize(s string) (ImageSize, error) {
	m := imageSizeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ImageSize{}, errors.Errorf("image size %q is not of the form (W,H)", s)
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	if w == 0 || h == 0 {
		return ImageSize{}, errors.Errorf("image size %q has a zero dimension", s)
	}
	return ImageSize{Width: w, Height: h}, nil
}
