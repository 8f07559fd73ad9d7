package ops

import (
	"math"

	"github.com/born-ml/mingpt/internal/tensor"
)

// CrossEntropyOp represents the mean cross-entropy of int32 targets [N] under
// logits [N, C]. Inputs are [logits, targets].
//
// Backward pass: dL/dlogits = (softmax(logits) - onehot(targets)) / N.
type CrossEntropyOp struct{ base }

// NewCrossEntropyOp creates a new CrossEntropyOp.
func NewCrossEntropyOp(logits, targets, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{newBase(output, logits, targets)}
}

// Backward computes the logits gradient.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	logits, targets := op.inputs[0], op.inputs[1]
	n, c := logits.Shape()[0], logits.Shape()[1]
	scale := float64(outputGrad.AsFloat32()[0]) / float64(n)

	grad := zerosLike(logits.Shape(), backend)
	dst, x, t := grad.AsFloat32(), logits.AsFloat32(), targets.AsInt32()
	for i := 0; i < n; i++ {
		row := x[i*c : (i+1)*c]
		maxVal := math.Inf(-1)
		for _, v := range row {
			maxVal = math.Max(maxVal, float64(v))
		}
		var sum float64
		for _, v := range row {
			sum += math.Exp(float64(v) - maxVal)
		}
		for j, v := range row {
			p := math.Exp(float64(v)-maxVal) / sum
			if j == int(t[i]) {
				p--
			}
			dst[i*c+j] = float32(p * scale)
		}
	}
	return []*tensor.RawTensor{grad, nil}
}
