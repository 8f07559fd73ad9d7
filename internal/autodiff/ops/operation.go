// Package ops defines the differentiable operations recorded on the gradient
// tape and their backward passes.
//
// Each operation keeps references to its inputs and output from the forward
// pass. Backward receives dL/d(output) and returns one gradient per input,
// nil for inputs that are not differentiable (indices, targets, masks).
package ops

import "github.com/born-ml/mingpt/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}

// base carries the bookkeeping shared by every operation.
type base struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

func newBase(output *tensor.RawTensor, inputs ...*tensor.RawTensor) base {
	return base{inputs: inputs, output: output}
}

// Inputs returns the input tensors.
func (b base) Inputs() []*tensor.RawTensor {
	return b.inputs
}

// Output returns the output tensor.
func (b base) Output() *tensor.RawTensor {
	return b.output
}
