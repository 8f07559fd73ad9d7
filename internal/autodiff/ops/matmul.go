package ops

import "github.com/born-ml/mingpt/internal/tensor"

// MatMulOp represents output = A @ B for 2D matrices.
//
// Backward pass:
//   - dL/dA = dL/dC @ Bᵀ
//   - dL/dB = Aᵀ @ dL/dC
type MatMulOp struct{ base }

// NewMatMulOp creates a new MatMulOp.
func NewMatMulOp(a, b, output *tensor.RawTensor) *MatMulOp {
	return &MatMulOp{newBase(output, a, b)}
}

// Backward computes input gradients for matrix multiplication.
func (op *MatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		backend.MatMul(outputGrad, backend.Transpose(b)),
		backend.MatMul(backend.Transpose(a), outputGrad),
	}
}

// BatchMatMulOp represents output = A @ B over leading batch dimensions.
type BatchMatMulOp struct{ base }

// NewBatchMatMulOp creates a new BatchMatMulOp.
func NewBatchMatMulOp(a, b, output *tensor.RawTensor) *BatchMatMulOp {
	return &BatchMatMulOp{newBase(output, a, b)}
}

// Backward applies the MatMul rule per batch entry.
func (op *BatchMatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		backend.BatchMatMul(outputGrad, backend.Transpose(b)),
		backend.BatchMatMul(backend.Transpose(a), outputGrad),
	}
}
