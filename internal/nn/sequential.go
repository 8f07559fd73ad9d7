package nn

import (
	"github.com/born-ml/mingpt/internal/tensor"
)

// Sequential chains modules, feeding each output into the next module.
//
// Example:
//
//	mlp := nn.NewSequential("mlp",
//	    nn.NewLinear[B]("fc", 64, 256, true, rng, backend),
//	    nn.NewGELU[B]("gelu"),
//	    nn.NewLinear[B]("proj", 256, 64, true, rng, backend),
//	)
type Sequential[B tensor.Backend] struct {
	leaf
	modules []Module[B]
}

// NewSequential creates a container holding modules in order.
func NewSequential[B tensor.Backend](name string, modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{
		leaf:    leaf{name: name, kind: KindContainer},
		modules: modules,
	}
}

// Forward runs the modules in order.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x := input
	for _, m := range s.modules {
		x = m.Forward(x)
	}
	return x
}

// LocalParameters returns nil; parameters belong to the children.
func (s *Sequential[B]) LocalParameters() []*Parameter[B] { return nil }

// Children returns the modules.
func (s *Sequential[B]) Children() []Layer[B] {
	out := make([]Layer[B], len(s.modules))
	for i, m := range s.modules {
		out[i] = m
	}
	return out
}

// Len returns the number of modules.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}
