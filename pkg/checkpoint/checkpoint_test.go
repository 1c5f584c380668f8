package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var params = []Param{
	{Name: "model.layers.0.self_attn.q_proj.weight", RequiresGrad: false},
	{Name: "model.layers.0.self_attn.q_proj.bias", RequiresGrad: false},
	{Name: "model.layers.0.self_attn.q_proj.lora_A.default.weight", RequiresGrad: true},
	{Name: "model.layers.0.self_attn.q_proj.lora_B.default.weight", RequiresGrad: true},
	{Name: "model.layers.0.mlp.up_proj.bias", RequiresGrad: false},
	{Name: "policy_head.proj.weight", RequiresGrad: true},
	{Name: "policy_head.proj.bias", RequiresGrad: true},
}

func names(ps []Param) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func equalNames(t *testing.T, label string, got []Param, want ...string) {
	t.Helper()
	g := names(got)
	if len(g) != len(want) {
		t.Fatalf("%s = %v, want %v", label, g, want)
	}
	for i := range g {
		if g[i] != want[i] {
			t.Errorf("%s[%d] = %s, want %s", label, i, g[i], want[i])
		}
	}
}

func TestLoRAState(t *testing.T) {
	none, err := LoRAState(params, BiasNone)
	if err != nil {
		t.Fatalf("LoRAState(none) error = %v", err)
	}
	equalNames(t, "none", none,
		"model.layers.0.self_attn.q_proj.lora_A.default.weight",
		"model.layers.0.self_attn.q_proj.lora_B.default.weight",
	)

	all, _ := LoRAState(params, BiasAll)
	equalNames(t, "all", all,
		"model.layers.0.self_attn.q_proj.bias",
		"model.layers.0.self_attn.q_proj.lora_A.default.weight",
		"model.layers.0.self_attn.q_proj.lora_B.default.weight",
		"model.layers.0.mlp.up_proj.bias",
		"policy_head.proj.bias",
	)

	only, _ := LoRAState(params, BiasLoRAOnly)
	equalNames(t, "lora_only", only,
		"model.layers.0.self_attn.q_proj.bias",
		"model.layers.0.self_attn.q_proj.lora_A.default.weight",
		"model.layers.0.self_attn.q_proj.lora_B.default.weight",
	)

	if _, err := LoRAState(params, Bias("some")); !errors.Is(err, ErrUnsupportedBias) {
		t.Errorf("LoRAState(some) error = %v, want ErrUnsupportedBias", err)
	}
}

func TestNonLoRAState(t *testing.T) {
	equalNames(t, "trainable", NonLoRAState(params, true),
		"policy_head.proj.weight",
		"policy_head.proj.bias",
	)
	if got := len(NonLoRAState(params, false)); got != 5 {
		t.Errorf("len(NonLoRAState(all)) = %d, want 5", got)
	}
}

func TestParseBias(t *testing.T) {
	for _, s := range []string{"none", "all", "lora_only"} {
		if _, err := ParseBias(s); err != nil {
			t.Errorf("ParseBias(%q) error = %v", s, err)
		}
	}
	if _, err := ParseBias("lora"); !errors.Is(err, ErrUnsupportedBias) {
		t.Errorf("ParseBias(lora) error = %v", err)
	}
}

func TestSplit_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "params.json")
	if err := os.WriteFile(in, []byte(`[
		{"name": "a.lora_A.weight", "requires_grad": true},
		{"name": "a.weight", "requires_grad": false}
	]`), 0644); err != nil {
		t.Fatal(err)
	}

	ps, err := LoadManifest(in)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	split, err := SplitParams(ps, BiasNone)
	if err != nil {
		t.Fatalf("SplitParams() error = %v", err)
	}
	equalNames(t, "lora", split.LoRA, "a.lora_A.weight")
	equalNames(t, "non_lora", split.NonLoRA, "a.weight")

	out := filepath.Join(dir, "split.json")
	if err := split.SaveTo(out); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("split file not written: %v", err)
	}

	if _, err := LoadManifest(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadManifest(missing) should fail")
	}
}
