package nn

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/born-ml/mingpt/internal/serialization"
	"github.com/born-ml/mingpt/internal/tensor"
)

// Metadata keys written by Save.
const (
	MetaConfig = "config"
	MetaParams = "num_params"
)

// SaveOptions controls Save.
type SaveOptions struct {
	ModelType string            // Header model type, e.g. "GPT"
	Metadata  map[string]string // Extra header metadata
	Half      bool              // Store weights as float16
}

// StateDict returns the parameters under root keyed by their fully qualified
// names, in enumeration order. Tensors are shared, not copied.
func StateDict[B tensor.Backend](root Layer[B]) *serialization.StateDict {
	state := serialization.NewStateDict()
	for _, np := range NamedParameters(root) {
		state.Set(np.Name, np.Param.Raw())
	}
	return state
}

// LoadStateDict copies state into the parameters under root. Every parameter
// must be present with the same shape and no extra entries are allowed; all
// mismatches are reported together, wrapped in ErrStateMismatch, and nothing
// is copied in that case.
func LoadStateDict[B tensor.Backend](root Layer[B], state *serialization.StateDict) error {
	named := NamedParameters(root)
	known := make(map[string]struct{}, len(named))
	var problems []string
	for _, np := range named {
		known[np.Name] = struct{}{}
		raw, ok := state.Get(np.Name)
		switch {
		case !ok:
			problems = append(problems, "missing "+np.Name)
		case raw.DType() != tensor.Float32:
			problems = append(problems, fmt.Sprintf("%s: dtype %s", np.Name, raw.DType()))
		case !raw.Shape().Equal(np.Param.Tensor().Shape()):
			problems = append(problems, fmt.Sprintf("%s: shape %v, want %v", np.Name, raw.Shape(), np.Param.Tensor().Shape()))
		}
	}
	for pair := state.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := known[pair.Key]; !ok {
			problems = append(problems, "unexpected "+pair.Key)
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrStateMismatch, strings.Join(problems, "; "))
	}

	for _, np := range named {
		raw, _ := state.Get(np.Name)
		copy(np.Param.Data(), raw.AsFloat32())
	}
	return nil
}

// Save writes the parameters under root to path in .born format.
func Save[B tensor.Backend](path string, root Layer[B], opts SaveOptions) error {
	meta := make(map[string]string, len(opts.Metadata)+1)
	for k, v := range opts.Metadata {
		meta[k] = v
	}
	meta[MetaParams] = fmt.Sprint(NumParameters(root))
	return serialization.SaveFile(path, StateDict(root), serialization.WriteOptions{
		ModelType: opts.ModelType,
		Metadata:  meta,
		Half:      opts.Half,
	})
}

// Load reads path and copies its tensors into the parameters under root.
func Load[B tensor.Backend](path string, root Layer[B]) error {
	ckpt, err := serialization.LoadFile(path, serialization.ReaderOptions{})
	if err != nil {
		return err
	}
	defer releaseState(ckpt.State)
	return LoadStateDict(root, ckpt.State)
}

// Save writes the model weights and configuration to path.
func (m *GPT[B]) Save(path string) error {
	return m.save(path, false)
}

// SaveHalf writes the model with float16 weights.
func (m *GPT[B]) SaveHalf(path string) error {
	return m.save(path, true)
}

func (m *GPT[B]) save(path string, half bool) error {
	cfg, err := json.Marshal(m.cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return Save[B](path, m, SaveOptions{
		ModelType: "GPT",
		Metadata:  map[string]string{MetaConfig: string(cfg)},
		Half:      half,
	})
}

// Load replaces the model weights with those stored at path.
func (m *GPT[B]) Load(path string) error {
	return Load[B](path, m)
}

// LoadGPT reconstructs a model from a file written by GPT.Save.
func LoadGPT[B tensor.Backend](path string, backend B) (*GPT[B], error) {
	ckpt, err := serialization.LoadFile(path, serialization.ReaderOptions{})
	if err != nil {
		return nil, err
	}
	defer releaseState(ckpt.State)

	raw, ok := ckpt.Header.Metadata[MetaConfig]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no model config", ErrStateMismatch, path)
	}
	var cfg GPTConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("%w: bad model config: %w", ErrStateMismatch, err)
	}
	m, err := NewGPT(cfg, backend)
	if err != nil {
		return nil, err
	}
	if err := LoadStateDict[B](m, ckpt.State); err != nil {
		return nil, err
	}
	return m, nil
}

func releaseState(state *serialization.StateDict) {
	for pair := state.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.Release()
	}
}
