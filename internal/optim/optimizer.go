// Package optim implements optimization for training the language model.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - AdamW: Adam with decoupled, per-group weight decay
//   - ClipGradNorm: global L2 gradient clipping
//   - Partition: split model parameters into decay / no-decay groups
//
// Example usage:
//
//	decay, noDecay, err := optim.Partition[B](model, optim.DefaultPartitionConfig())
//	if err != nil {
//	    return err
//	}
//	opt := optim.NewAdamW([]optim.ParamGroup[B]{decay, noDecay}, optim.DefaultAdamWConfig(), backend)
//
//	// Training step
//	backend.GetTape().StartRecording()
//	logits, _ := model.Forward(inputs)
//	loss := model.Loss(logits, targets)
//	grads := autodiff.Backward(loss, backend)
//	optim.ClipGradNorm(opt.Parameters(), grads, 1.0)
//	opt.Step(grads)
//	backend.GetTape().Clear()
package optim

import (
	"github.com/born-ml/mingpt/internal/nn"
	"github.com/born-ml/mingpt/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all parameters.
	//
	// Takes a gradient map from Backward() and updates parameters in-place.
	// Parameters without an entry are left unchanged.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR changes the learning rate for subsequent steps.
	SetLR(lr float32)
}

// ParamGroup is a named set of parameters sharing a weight-decay coefficient.
type ParamGroup[B tensor.Backend] struct {
	Name        string
	Names       []string // Fully qualified parameter names, parallel to Params
	Params      []*nn.Parameter[B]
	WeightDecay float32
}

// Len returns the number of parameters in the group.
func (g ParamGroup[B]) Len() int {
	return len(g.Params)
}

// getGradient retrieves the gradient for a parameter, or nil when the
// parameter was not part of the computation.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Raw()]
}
