package nn

import (
	"github.com/born-ml/mingpt/internal/tensor"
)

// Parameter is a trainable tensor owned by exactly one layer.
//
// The tensor is persistent: scopes never release it, and the optimizer
// updates its data in place.
//
// Example:
//
//	weight := nn.NewParameter("weight", tensor.Zeros[float32](tensor.Shape{4, 4}, backend))
//	w := weight.Tensor()
type Parameter[B tensor.Backend] struct {
	name   string                     // Local name ("weight", "bias", "pos_emb")
	tensor *tensor.Tensor[float32, B] // The parameter tensor
}

// NewParameter wraps t as a parameter and marks it persistent.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	t.Persist()
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the local parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Raw returns the underlying RawTensor, the key of gradient maps.
func (p *Parameter[B]) Raw() *tensor.RawTensor {
	return p.tensor.Raw()
}

// Data returns the parameter values.
func (p *Parameter[B]) Data() []float32 {
	return p.tensor.Data()
}
