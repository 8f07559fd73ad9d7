// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/born-ml/mingpt/internal/nn"
	"github.com/born-ml/mingpt/internal/tensor"
)

// Errors returned by constructors, Forward and checkpoint loading.
var (
	ErrInvalidConfig   = nn.ErrInvalidConfig
	ErrInvalidInput    = nn.ErrInvalidInput
	ErrSequenceTooLong = nn.ErrSequenceTooLong
	ErrTokenOutOfRange = nn.ErrTokenOutOfRange
	ErrStateMismatch   = nn.ErrStateMismatch
)

// Kind identifies the variant of a layer.
type Kind = nn.Kind

// Layer kinds.
const (
	KindLinear     = nn.KindLinear
	KindEmbedding  = nn.KindEmbedding
	KindLayerNorm  = nn.KindLayerNorm
	KindDropout    = nn.KindDropout
	KindActivation = nn.KindActivation
	KindAttention  = nn.KindAttention
	KindBlock      = nn.KindBlock
	KindContainer  = nn.KindContainer
	KindModel      = nn.KindModel
)

// Layer is a node of the model tree.
type Layer[B tensor.Backend] = nn.Layer[B]

// Module is a Layer with a float forward pass.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter represents a trainable parameter in a neural network.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NamedParameter pairs a parameter with its fully qualified name.
type NamedParameter[B tensor.Backend] = nn.NamedParameter[B]

// NamedParameters lists every parameter under root in a stable order.
func NamedParameters[B tensor.Backend](root Layer[B]) []NamedParameter[B] {
	return nn.NamedParameters(root)
}

// Parameters lists every parameter under root.
func Parameters[B tensor.Backend](root Layer[B]) []*Parameter[B] {
	return nn.Parameters(root)
}

// NumParameters counts the scalar parameters under root.
func NumParameters[B tensor.Backend](root Layer[B]) int {
	return nn.NumParameters(root)
}

// Layers

// Linear represents a fully connected layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a linear layer.
func NewLinear[B tensor.Backend](name string, inFeatures, outFeatures int, withBias bool, rng *rand.Rand, backend B) *Linear[B] {
	return nn.NewLinear(name, inFeatures, outFeatures, withBias, rng, backend)
}

// Embedding maps token ids to vectors.
type Embedding[B tensor.Backend] = nn.Embedding[B]

// NewEmbedding creates an embedding table.
func NewEmbedding[B tensor.Backend](name string, numEmbeddings, embeddingDim int, rng *rand.Rand, backend B) *Embedding[B] {
	return nn.NewEmbedding(name, numEmbeddings, embeddingDim, rng, backend)
}

// LayerNorm normalizes the last dimension.
type LayerNorm[B tensor.Backend] = nn.LayerNorm[B]

// NewLayerNorm creates a layer normalization over dim features.
func NewLayerNorm[B tensor.Backend](name string, dim int, eps float32, backend B) *LayerNorm[B] {
	return nn.NewLayerNorm(name, dim, eps, backend)
}

// Dropout zeroes activations with probability p while training.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a dropout layer.
func NewDropout[B tensor.Backend](name string, p float32, rng *rand.Rand, backend B) *Dropout[B] {
	return nn.NewDropout(name, p, rng, backend)
}

// Sequential chains modules.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a container running modules in order.
func NewSequential[B tensor.Backend](name string, modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(name, modules...)
}

// Transformer

// AttentionConfig configures a CausalSelfAttention or TransformerBlock.
type AttentionConfig = nn.AttentionConfig

// CausalSelfAttention is masked multi-head self-attention.
type CausalSelfAttention[B tensor.Backend] = nn.CausalSelfAttention[B]

// NewCausalSelfAttention creates an attention layer.
func NewCausalSelfAttention[B tensor.Backend](name string, cfg AttentionConfig, rng *rand.Rand, backend B) (*CausalSelfAttention[B], error) {
	return nn.NewCausalSelfAttention(name, cfg, rng, backend)
}

// TransformerBlock is one pre-norm transformer layer.
type TransformerBlock[B tensor.Backend] = nn.TransformerBlock[B]

// NewTransformerBlock creates a transformer block.
func NewTransformerBlock[B tensor.Backend](name string, cfg AttentionConfig, rng *rand.Rand, backend B) (*TransformerBlock[B], error) {
	return nn.NewTransformerBlock(name, cfg, rng, backend)
}

// GPTConfig configures the language model.
type GPTConfig = nn.GPTConfig

// DefaultGPTConfig returns a small model for the given vocabulary.
func DefaultGPTConfig(vocabSize int) GPTConfig {
	return nn.DefaultGPTConfig(vocabSize)
}

// GPT is the byte-level transformer language model.
type GPT[B tensor.Backend] = nn.GPT[B]

// NewGPT builds and initializes a language model.
func NewGPT[B tensor.Backend](cfg GPTConfig, backend B) (*GPT[B], error) {
	return nn.NewGPT(cfg, backend)
}

// LoadGPT rebuilds a language model from a checkpoint written by GPT.Save.
func LoadGPT[B tensor.Backend](path string, backend B) (*GPT[B], error) {
	return nn.LoadGPT(path, backend)
}

// Siren

// SirenConfig configures a Siren network.
type SirenConfig = nn.SirenConfig

// DefaultSirenConfig returns a Siren with the default frequency scale.
func DefaultSirenConfig(inputSize int, innerSizes ...int) SirenConfig {
	return nn.DefaultSirenConfig(inputSize, innerSizes...)
}

// Siren is a sine-activated MLP.
type Siren[B tensor.Backend] = nn.Siren[B]

// NewSiren creates a Siren network.
func NewSiren[B tensor.Backend](name string, cfg SirenConfig, backend B) (*Siren[B], error) {
	return nn.NewSiren(name, cfg, backend)
}

// Checkpoints

// SaveOptions controls Save.
type SaveOptions = nn.SaveOptions

// Save writes the parameters under root to path.
func Save[B tensor.Backend](path string, root Layer[B], opts SaveOptions) error {
	return nn.Save(path, root, opts)
}

// Load reads parameters from path into the tree under root.
func Load[B tensor.Backend](path string, root Layer[B]) error {
	return nn.Load(path, root)
}
