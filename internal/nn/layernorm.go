package nn

import (
	"github.com/born-ml/mingpt/internal/tensor"
)

// DefaultLayerNormEps is the variance epsilon of LayerNorm.
const DefaultLayerNormEps = 1e-5

// LayerNorm normalizes over the last dimension:
//
//	y = (x - mean) / sqrt(var + eps) * weight + bias
//
// var is the biased (population) variance.
type LayerNorm[B tensor.Backend] struct {
	leaf
	dim    int
	eps    float32
	weight *Parameter[B]
	bias   *Parameter[B]
}

// NewLayerNorm creates a LayerNorm with weight 1 and bias 0.
func NewLayerNorm[B tensor.Backend](name string, dim int, eps float32, backend B) *LayerNorm[B] {
	return &LayerNorm[B]{
		leaf:   leaf{name: name, kind: KindLayerNorm},
		dim:    dim,
		eps:    eps,
		weight: NewParameter("weight", tensor.Ones[float32](tensor.Shape{dim}, backend)),
		bias:   NewParameter("bias", tensor.Zeros[float32](tensor.Shape{dim}, backend)),
	}
}

// Forward normalizes input of shape [..., dim].
func (ln *LayerNorm[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	mean := input.MeanDim(-1, true)
	centered := input.Sub(mean)
	variance := centered.Mul(centered).MeanDim(-1, true)
	normed := centered.Mul(variance.AddScalar(ln.eps).Rsqrt())
	return normed.Mul(ln.weight.Tensor()).Add(ln.bias.Tensor())
}

// LocalParameters returns weight and bias.
func (ln *LayerNorm[B]) LocalParameters() []*Parameter[B] {
	return []*Parameter[B]{ln.weight, ln.bias}
}

// Children returns nil.
func (ln *LayerNorm[B]) Children() []Layer[B] { return nil }
