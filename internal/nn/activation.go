package nn

import (
	"github.com/born-ml/mingpt/internal/tensor"
)

// GELU applies the exact Gaussian Error Linear Unit element-wise:
//
//	GELU(x) = x * 0.5 * (1 + erf(x / sqrt(2)))
type GELU[B tensor.Backend] struct {
	leaf
}

// NewGELU creates a GELU activation.
func NewGELU[B tensor.Backend](name string) *GELU[B] {
	return &GELU[B]{leaf: leaf{name: name, kind: KindActivation}}
}

// Forward applies GELU.
func (g *GELU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.GELU()
}

// LocalParameters returns nil.
func (g *GELU[B]) LocalParameters() []*Parameter[B] { return nil }

// Children returns nil.
func (g *GELU[B]) Children() []Layer[B] { return nil }
