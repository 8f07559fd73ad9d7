package ops

import (
	"math"

	"github.com/born-ml/mingpt/internal/tensor"
)

// RsqrtOp represents y = 1/sqrt(x). dy/dx = -0.5 * y³.
type RsqrtOp struct{ base }

// NewRsqrtOp creates a new RsqrtOp.
func NewRsqrtOp(x, output *tensor.RawTensor) *RsqrtOp {
	return &RsqrtOp{newBase(output, x)}
}

// Backward computes -0.5 * y³ * grad.
func (op *RsqrtOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := zerosLike(outputGrad.Shape(), backend)
	out, g, y := grad.AsFloat32(), outputGrad.AsFloat32(), op.output.AsFloat32()
	for i := range out {
		out[i] = -0.5 * y[i] * y[i] * y[i] * g[i]
	}
	return []*tensor.RawTensor{grad}
}

// SinOp represents y = sin(x). dy/dx = cos(x).
type SinOp struct{ base }

// NewSinOp creates a new SinOp.
func NewSinOp(x, output *tensor.RawTensor) *SinOp {
	return &SinOp{newBase(output, x)}
}

// Backward computes cos(x) * grad.
func (op *SinOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := zerosLike(outputGrad.Shape(), backend)
	out, g, x := grad.AsFloat32(), outputGrad.AsFloat32(), op.inputs[0].AsFloat32()
	for i := range out {
		out[i] = float32(math.Cos(float64(x[i]))) * g[i]
	}
	return []*tensor.RawTensor{grad}
}

// GELUOp represents the exact GELU, y = x * Φ(x).
// dy/dx = Φ(x) + x * φ(x).
type GELUOp struct{ base }

// NewGELUOp creates a new GELUOp.
func NewGELUOp(x, output *tensor.RawTensor) *GELUOp {
	return &GELUOp{newBase(output, x)}
}

// Backward computes (Φ(x) + x φ(x)) * grad.
func (op *GELUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	invSqrt2Pi := 1 / math.Sqrt(2*math.Pi)
	grad := zerosLike(outputGrad.Shape(), backend)
	out, g, x := grad.AsFloat32(), outputGrad.AsFloat32(), op.inputs[0].AsFloat32()
	for i := range out {
		v := float64(x[i])
		cdf := 0.5 * (1 + math.Erf(v/math.Sqrt2))
		pdf := invSqrt2Pi * math.Exp(-0.5*v*v)
		out[i] = float32(cdf+v*pdf) * g[i]
	}
	return []*tensor.RawTensor{grad}
}

// SoftmaxOp represents y = softmax(x) along dim.
//
// Backward pass: dx = y * (grad - sum(grad * y, dim)).
type SoftmaxOp struct {
	base
	dim int
}

// NewSoftmaxOp creates a new SoftmaxOp.
func NewSoftmaxOp(x, output *tensor.RawTensor, dim int) *SoftmaxOp {
	return &SoftmaxOp{base: newBase(output, x), dim: x.Shape().NormalizeDim(dim)}
}

// Backward computes the softmax Jacobian-vector product.
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	y := op.output
	dot := backend.SumDim(backend.Mul(outputGrad, y), op.dim, true)
	return []*tensor.RawTensor{backend.Mul(y, backend.Sub(outputGrad, dot))}
}
