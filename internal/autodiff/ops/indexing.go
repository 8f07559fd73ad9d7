package ops

import "github.com/born-ml/mingpt/internal/tensor"

// WhereOp represents output = cond ? x : fill. Inputs are [cond, x].
type WhereOp struct{ base }

// NewWhereOp creates a new WhereOp.
func NewWhereOp(cond, x, output *tensor.RawTensor) *WhereOp {
	return &WhereOp{newBase(output, cond, x)}
}

// Backward routes the gradient to x where cond holds and drops it elsewhere.
func (op *WhereOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{nil, backend.Where(op.inputs[0], outputGrad, 0)}
}

// EmbeddingOp represents a row gather from weight. Inputs are [weight, indices].
type EmbeddingOp struct{ base }

// NewEmbeddingOp creates a new EmbeddingOp.
func NewEmbeddingOp(weight, indices, output *tensor.RawTensor) *EmbeddingOp {
	return &EmbeddingOp{newBase(output, weight, indices)}
}

// Backward scatter-adds output rows into the weight gradient.
func (op *EmbeddingOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	weight, indices := op.inputs[0], op.inputs[1]
	dim := weight.Shape()[1]

	grad := zerosLike(weight.Shape(), backend)
	dst, src := grad.AsFloat32(), outputGrad.AsFloat32()
	for i, idx := range indices.AsInt32() {
		row := dst[int(idx)*dim : (int(idx)+1)*dim]
		for j, v := range src[i*dim : (i+1)*dim] {
			row[j] += v
		}
	}
	return []*tensor.RawTensor{grad, nil}
}
