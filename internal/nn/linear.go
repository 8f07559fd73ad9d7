package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/mingpt/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W^T + b.
//
// Weight has shape [out_features, in_features]. The input may have any number
// of leading dimensions; they are flattened for the matrix multiply and
// restored afterwards.
//
// Weights start with the uniform fan-in default U(-1/sqrt(in), 1/sqrt(in));
// InitWeights replaces them for the language model.
type Linear[B tensor.Backend] struct {
	leaf
	inFeatures  int
	outFeatures int
	weight      *Parameter[B]
	bias        *Parameter[B] // nil without bias
}

// NewLinear creates a Linear layer.
func NewLinear[B tensor.Backend](name string, inFeatures, outFeatures int, withBias bool, rng *rand.Rand, backend B) *Linear[B] {
	bound := float32(1 / math.Sqrt(float64(inFeatures)))
	l := &Linear[B]{
		leaf:        leaf{name: name, kind: KindLinear},
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight: NewParameter("weight",
			tensor.RandUniform(tensor.Shape{outFeatures, inFeatures}, -bound, bound, rng, backend)),
	}
	if withBias {
		l.bias = NewParameter("bias",
			tensor.RandUniform(tensor.Shape{outFeatures}, -bound, bound, rng, backend))
	}
	return l
}

// Forward maps [..., in_features] to [..., out_features].
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) == 0 || shape[len(shape)-1] != l.inFeatures {
		panic("nn: Linear input last dimension mismatch")
	}
	x := input
	if len(shape) != 2 {
		x = input.Reshape(-1, l.inFeatures)
	}
	out := x.MatMul(l.weight.Tensor().Transpose())
	if l.bias != nil {
		out = out.Add(l.bias.Tensor())
	}
	if len(shape) != 2 {
		outShape := make([]int, len(shape))
		copy(outShape, shape)
		outShape[len(outShape)-1] = l.outFeatures
		out = out.Reshape(outShape...)
	}
	return out
}

// LocalParameters returns weight and, when present, bias.
func (l *Linear[B]) LocalParameters() []*Parameter[B] {
	if l.bias == nil {
		return []*Parameter[B]{l.weight}
	}
	return []*Parameter[B]{l.weight, l.bias}
}

// Children returns nil.
func (l *Linear[B]) Children() []Layer[B] { return nil }

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] { return l.weight }

// Bias returns the bias parameter, or nil.
func (l *Linear[B]) Bias() *Parameter[B] { return l.bias }

// InFeatures returns the input width.
func (l *Linear[B]) InFeatures() int { return l.inFeatures }

// OutFeatures returns the output width.
func (l *Linear[B]) OutFeatures() int { return l.outFeatures }
