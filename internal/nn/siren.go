package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/mingpt/internal/tensor"
)

// Recommended Siren frequency scales (omega_0).
const (
	SirenDefaultFrequency    = 30
	SirenSoundInputFrequency = 3000
)

// SirenConfig configures a sine-activated MLP. Inputs should be normalized
// to [-1, 1].
type SirenConfig struct {
	InputSize           int     // Number of input features
	InnerSizes          []int   // Output width of each layer, last is the output
	InputFrequencyScale float32 // omega for the first layer
	InnerFrequencyScale float32 // omega for the remaining layers
	Seed                int64   // Seeds the initializer
}

// DefaultSirenConfig returns a config with the recommended scales.
func DefaultSirenConfig(inputSize int, innerSizes ...int) SirenConfig {
	return SirenConfig{
		InputSize:           inputSize,
		InnerSizes:          innerSizes,
		InputFrequencyScale: SirenDefaultFrequency,
		InnerFrequencyScale: SirenDefaultFrequency,
		Seed:                119,
	}
}

// Validate reports configuration errors wrapped in ErrInvalidConfig.
func (c SirenConfig) Validate() error {
	if c.InputSize <= 0 {
		return fmt.Errorf("%w: siren input size must be positive, got %d", ErrInvalidConfig, c.InputSize)
	}
	if len(c.InnerSizes) == 0 {
		return fmt.Errorf("%w: siren needs at least one layer", ErrInvalidConfig)
	}
	for i, size := range c.InnerSizes {
		if size <= 0 {
			return fmt.Errorf("%w: siren layer %d size must be positive, got %d", ErrInvalidConfig, i, size)
		}
	}
	if !validFrequencyScale(c.InputFrequencyScale) {
		return fmt.Errorf("%w: siren input frequency scale %g", ErrInvalidConfig, c.InputFrequencyScale)
	}
	if !validFrequencyScale(c.InnerFrequencyScale) {
		return fmt.Errorf("%w: siren inner frequency scale %g", ErrInvalidConfig, c.InnerFrequencyScale)
	}
	return nil
}

func validFrequencyScale(s float32) bool {
	f := float64(s)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && math.Abs(f) > 4*math.SmallestNonzeroFloat32
}

// Siren is a multilayer perceptron with sine activations (Sitzmann et al.,
// "Implicit Neural Representations with Periodic Activation Functions").
// Every layer, including the last, computes sin(omega * (W x + b)).
//
// Layers are named "i0", "i1", ... so the partitioner classifies their
// weights as decay and their biases as no-decay.
type Siren[B tensor.Backend] struct {
	leaf
	cfg    SirenConfig
	layers []*Linear[B]
}

// NewSiren builds the network with the Siren initializer: the first layer
// draws weights from U(-1/in, 1/in), later layers from
// U(-sqrt(6/in)/omega, sqrt(6/in)/omega).
func NewSiren[B tensor.Backend](name string, cfg SirenConfig, backend B) (*Siren[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // G404: init does not need crypto randomness

	s := &Siren[B]{
		leaf:   leaf{name: name, kind: KindContainer},
		cfg:    cfg,
		layers: make([]*Linear[B], len(cfg.InnerSizes)),
	}
	in := cfg.InputSize
	for i, out := range cfg.InnerSizes {
		layer := NewLinear(fmt.Sprintf("i%d", i), in, out, true, rng, backend)
		limit := float32(1 / float64(cfg.InputSize))
		if i > 0 {
			limit = SirenInnerInitLimit(in, cfg.InnerFrequencyScale)
		}
		tensor.FillUniform(layer.Weight().Data(), -limit, limit, rng)
		s.layers[i] = layer
		in = out
	}
	return s, nil
}

// SirenInnerInitLimit is the weight bound of a non-input layer with the given
// fan-in.
func SirenInnerInitLimit(inputSize int, frequencyScale float32) float32 {
	return float32(math.Sqrt(6/float64(inputSize)) / float64(frequencyScale))
}

// Forward maps [..., InputSize] to [..., InnerSizes[last]].
func (s *Siren[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x := input
	for i, layer := range s.layers {
		scale := s.cfg.InnerFrequencyScale
		if i == 0 {
			scale = s.cfg.InputFrequencyScale
		}
		x = layer.Forward(x).MulScalar(scale).Sin()
	}
	return x
}

// LocalParameters returns nil.
func (s *Siren[B]) LocalParameters() []*Parameter[B] { return nil }

// Children returns the layers in order.
func (s *Siren[B]) Children() []Layer[B] {
	out := make([]Layer[B], len(s.layers))
	for i, l := range s.layers {
		out[i] = l
	}
	return out
}

// Config returns the configuration.
func (s *Siren[B]) Config() SirenConfig {
	return s.cfg
}
