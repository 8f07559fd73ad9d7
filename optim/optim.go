// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides AdamW, gradient clipping and the weight-decay
// parameter partitioner.
//
// Example:
//
//	decay, noDecay, err := optim.Partition[B](model, optim.DefaultPartitionConfig())
//	if err != nil {
//	    return err // *optim.PartitionError names every offending parameter
//	}
//	opt := optim.NewAdamW([]optim.ParamGroup[B]{decay, noDecay}, optim.DefaultAdamWConfig(), backend)
package optim

import (
	"github.com/born-ml/mingpt/internal/nn"
	"github.com/born-ml/mingpt/internal/optim"
	"github.com/born-ml/mingpt/internal/tensor"
)

// Optimizer is the base interface for all optimizers.
type Optimizer = optim.Optimizer

// ParamGroup is a named set of parameters sharing a weight-decay coefficient.
type ParamGroup[B tensor.Backend] = optim.ParamGroup[B]

// AdamWConfig holds configuration for the AdamW optimizer.
type AdamWConfig = optim.AdamWConfig

// DefaultAdamWConfig returns lr 6e-4, betas (0.9, 0.95), eps 1e-8.
func DefaultAdamWConfig() AdamWConfig {
	return optim.DefaultAdamWConfig()
}

// AdamW is Adam with decoupled per-group weight decay.
type AdamW[B tensor.Backend] = optim.AdamW[B]

// NewAdamW creates an AdamW optimizer.
func NewAdamW[B tensor.Backend](groups []ParamGroup[B], config AdamWConfig, backend B) *AdamW[B] {
	return optim.NewAdamW(groups, config, backend)
}

// DefaultMaxGradNorm is the usual clipping threshold.
const DefaultMaxGradNorm = optim.DefaultMaxGradNorm

// ClipGradNorm rescales grads in place to a global L2 norm of at most
// maxNorm and returns the norm before clipping.
func ClipGradNorm[B tensor.Backend](params []*nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor, maxNorm float32) float32 {
	return optim.ClipGradNorm(params, grads, maxNorm)
}

// Partition group names.
const (
	GroupDecay   = optim.GroupDecay
	GroupNoDecay = optim.GroupNoDecay
)

// ErrInvalidPartition is wrapped by every *PartitionError.
var ErrInvalidPartition = optim.ErrInvalidPartition

// PartitionConfig controls Partition.
type PartitionConfig = optim.PartitionConfig

// PartitionError reports every parameter that broke the partition rules.
type PartitionError = optim.PartitionError

// DefaultPartitionConfig returns decay 0.1 with the positional embedding exempt.
func DefaultPartitionConfig() PartitionConfig {
	return optim.DefaultPartitionConfig()
}

// Partition splits the parameters under root into decay and no-decay groups.
func Partition[B tensor.Backend](root nn.Layer[B], cfg PartitionConfig) (decay, noDecay ParamGroup[B], err error) {
	return optim.Partition(root, cfg)
}
