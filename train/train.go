// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train runs the optimization loop of the language model.
//
// Example:
//
//	data, err := train.NewDataset(ids, model.BlockSize())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	trainer, err := train.NewTrainer(model, data, train.DefaultConfig(), slog.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	last, err := trainer.Fit(ctx, 1000)
package train

import (
	"log/slog"

	"github.com/born-ml/mingpt/internal/autodiff"
	"github.com/born-ml/mingpt/internal/nn"
	"github.com/born-ml/mingpt/internal/train"
)

// ErrDatasetTooSmall is returned when a token stream cannot fill one window.
var ErrDatasetTooSmall = train.ErrDatasetTooSmall

// Dataset is an in-memory token stream cut into training windows.
type Dataset = train.Dataset

// NewDataset wraps tokens; the stream must hold at least blockSize+1 tokens.
func NewDataset(tokens []int32, blockSize int) (*Dataset, error) {
	return train.NewDataset(tokens, blockSize)
}

// Config holds the training hyperparameters.
type Config = train.Config

// DefaultConfig returns the default training configuration.
func DefaultConfig() Config {
	return train.DefaultConfig()
}

// StepResult describes one completed training step.
type StepResult = train.StepResult

// Trainer fits a GPT to a Dataset.
type Trainer[B autodiff.BackwardCapable] = train.Trainer[B]

// NewTrainer builds a trainer. A nil logger discards all output.
func NewTrainer[B autodiff.BackwardCapable](model *nn.GPT[B], data *Dataset, cfg Config, logger *slog.Logger) (*Trainer[B], error) {
	return train.NewTrainer(model, data, cfg, logger)
}
