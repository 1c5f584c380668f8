// Package checkpoint partitions a model's named parameters into the LoRA
// adapter state and the remaining trainable state saved next to it.
package checkpoint

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// NonLoRAFile is the file the non-LoRA trainables are saved to.
const NonLoRAFile = "non_lora_trainables.bin"

const loraMarker = "lora_"

var ErrUnsupportedBias = errors.New("unsupported lora bias mode")

// Bias selects which bias parameters travel with the LoRA adapter.
type Bias string

const (
	BiasNone     Bias = "none"
	BiasAll      Bias = "all"
	BiasLoRAOnly Bias = "lora_only"
)

// ParseBias validates a bias mode string.
func ParseBias(s string) (Bias, error) {
	switch b := Bias(s); b {
	case BiasNone, BiasAll, BiasLoRAOnly:
		return b, nil
	}
	return "", errors.Wrapf(ErrUnsupportedBias, "%q", s)
}

// Param is one named model parameter.
type Param struct {
	Name         string `json:"name"`
	RequiresGrad bool   `json:"requires_grad"`
}

// IsLoRA reports whether p belongs to a LoRA adapter.
func (p Param) IsLoRA() bool {
	return strings.Contains(p.Name, loraMarker)
}

// LoRAState returns the parameters saved as the adapter state, in input order.
func LoRAState(params []Param, bias Bias) ([]Param, error) {
	switch bias {
	case BiasNone:
		return filter(params, func(p Param) bool { return p.IsLoRA() }), nil
	case BiasAll:
		return filter(params, func(p Param) bool {
			return p.IsLoRA() || strings.Contains(p.Name, "bias")
		}), nil
	case BiasLoRAOnly:
		// Keep only the biases of modules that carry an adapter, e.g.
		// "q_proj.lora_A.weight" pulls in "q_proj.bias".
		adapted := make(map[string]bool)
		for _, p := range params {
			if i := strings.Index(p.Name, loraMarker); i >= 0 {
				adapted[p.Name[:i]+"bias"] = true
			}
		}
		return filter(params, func(p Param) bool {
			return p.IsLoRA() || adapted[p.Name]
		}), nil
	}
	return nil, errors.Wrapf(ErrUnsupportedBias, "%q", bias)
}

// NonLoRAState returns every non-adapter parameter, optionally only the
// trainable ones.
func NonLoRAState(params []Param, requireGradOnly bool) []Param {
	return filter(params, func(p Param) bool {
		return !p.IsLoRA() && (!requireGradOnly || p.RequiresGrad)
	})
}

// Split is the pair of states persisted after a LoRA run.
type Split struct {
	LoRA    []Param `json:"lora"`
	NonLoRA []Param `json:"non_lora"`
}

// SplitParams computes both states the way the launcher saves them: the
// non-LoRA state includes frozen parameters too.
func SplitParams(params []Param, bias Bias) (Split, error) {
	lora, err := LoRAState(params, bias)
	if err != nil {
		return Split{}, err
	}
	return Split{LoRA: lora, NonLoRA: NonLoRAState(params, false)}, nil
}

func filter(params []Param, keep func(Param) bool) []Param {
	out := make([]Param, 0, len(params))
	for _, p := range params {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// LoadManifest reads a JSON array of parameters.
func LoadManifest(path string) ([]Param, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read parameter manifest")
	}
	var params []Param
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, errors.Wrap(err, "parse parameter manifest")
	}
	return params, nil
}

// SaveTo writes s as indented JSON.
func (s Split) SaveTo(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "write split manifest")
}
