package ops

import "github.com/born-ml/mingpt/internal/tensor"

// SumOp represents the sum of all elements.
type SumOp struct{ base }

// NewSumOp creates a new SumOp.
func NewSumOp(x, output *tensor.RawTensor) *SumOp {
	return &SumOp{newBase(output, x)}
}

// Backward broadcasts the scalar gradient over the input.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{expandTo(outputGrad, op.inputs[0].Shape(), 1, backend)}
}

// SumDimOp represents a sum along one dimension.
type SumDimOp struct {
	base
	dim   int
	scale float32
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(x, output *tensor.RawTensor, dim int) *SumDimOp {
	return &SumDimOp{base: newBase(output, x), dim: x.Shape().NormalizeDim(dim), scale: 1}
}

// NewMeanDimOp creates the op for a mean along dim: a sum scaled by 1/n.
func NewMeanDimOp(x, output *tensor.RawTensor, dim int) *SumDimOp {
	d := x.Shape().NormalizeDim(dim)
	return &SumDimOp{base: newBase(output, x), dim: d, scale: 1 / float32(x.Shape()[d])}
}

// Backward broadcasts the gradient back along the reduced dimension.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inShape := op.inputs[0].Shape()
	kept := keptShape(inShape, op.dim)
	if !outputGrad.Shape().Equal(kept) {
		outputGrad = backend.Reshape(outputGrad, kept)
	}
	return []*tensor.RawTensor{expandTo(outputGrad, inShape, op.scale, backend)}
}
