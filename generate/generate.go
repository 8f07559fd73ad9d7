// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package generate provides autoregressive decoding for the language model.
//
// Example:
//
//	out, err := generate.Generate[B](model, seed, 100, generate.SamplingConfig{
//	    Temperature: 0.8,
//	    TopK:        10,
//	    Seed:        1,
//	})
package generate

import (
	"github.com/born-ml/mingpt/internal/generate"
	"github.com/born-ml/mingpt/internal/tensor"
	"github.com/born-ml/mingpt/tokenizer"
)

// Errors returned by Generate for unusable input.
var (
	ErrInvalidSampling = generate.ErrInvalidSampling
	ErrEmptySeed       = generate.ErrEmptySeed
	ErrSeedTooLong     = generate.ErrSeedTooLong
	ErrSeedOutOfRange  = generate.ErrSeedOutOfRange
)

// SamplingConfig configures token selection.
type SamplingConfig = generate.SamplingConfig

// DefaultSamplingConfig returns stochastic sampling at temperature 1.
func DefaultSamplingConfig() SamplingConfig {
	return generate.DefaultSamplingConfig()
}

// Sampler picks the next token from a row of logits.
type Sampler = generate.Sampler

// NewSampler creates a sampler.
func NewSampler(config SamplingConfig) *Sampler {
	return generate.NewSampler(config)
}

// LanguageModel is the model surface the decode loop needs.
type LanguageModel[B tensor.Backend] = generate.LanguageModel[B]

// Generate extends seed by steps tokens and returns seed followed by the
// generated ids.
func Generate[B tensor.Backend](model LanguageModel[B], seed []int32, steps int, cfg SamplingConfig) ([]int32, error) {
	return generate.Generate(model, seed, steps, cfg)
}

// TextGenerator pairs a model with a tokenizer.
type TextGenerator[B tensor.Backend] = generate.TextGenerator[B]

// NewTextGenerator creates a text generator.
func NewTextGenerator[B tensor.Backend](model LanguageModel[B], tok tokenizer.Tokenizer, config SamplingConfig) *TextGenerator[B] {
	return generate.NewTextGenerator(model, tok, config)
}
