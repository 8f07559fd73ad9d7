package ops

import "github.com/born-ml/mingpt/internal/tensor"

// ReshapeOp represents a reshape; the gradient is reshaped back.
type ReshapeOp struct{ base }

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(x, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{newBase(output, x)}
}

// Backward reshapes the gradient to the input shape.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(outputGrad, op.inputs[0].Shape())}
}

// TransposeOp represents a dimension permutation.
type TransposeOp struct {
	base
	axes []int
}

// NewTransposeOp creates a new TransposeOp. Empty axes mean "swap the last
// two dimensions".
func NewTransposeOp(x, output *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{base: newBase(output, x), axes: axes}
}

// Backward applies the inverse permutation.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	if len(op.axes) == 0 {
		return []*tensor.RawTensor{backend.Transpose(outputGrad)}
	}
	inverse := make([]int, len(op.axes))
	for i, ax := range op.axes {
		inverse[ax] = i
	}
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inverse...)}
}

// NarrowOp represents taking a contiguous range along one dimension.
type NarrowOp struct {
	base
	dim, start int
}

// NewNarrowOp creates a new NarrowOp.
func NewNarrowOp(x, output *tensor.RawTensor, dim, start int) *NarrowOp {
	return &NarrowOp{base: newBase(output, x), dim: x.Shape().NormalizeDim(dim), start: start}
}

// Backward scatters the gradient into a zero tensor of the input shape.
func (op *NarrowOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inShape := op.inputs[0].Shape()
	length := outputGrad.Shape()[op.dim]
	outer := inShape[:op.dim].NumElements()
	inner := inShape[op.dim+1:].NumElements()

	grad := zerosLike(inShape, backend)
	dst, src := grad.AsFloat32(), outputGrad.AsFloat32()
	for o := 0; o < outer; o++ {
		to := (o*inShape[op.dim] + op.start) * inner
		copy(dst[to:to+length*inner], src[o*length*inner:(o+1)*length*inner])
	}
	return []*tensor.RawTensor{grad}
}
