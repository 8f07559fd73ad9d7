package nn

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/born-ml/mingpt/internal/tensor"
)

// GPTConfig configures the language model.
type GPTConfig struct {
	VocabSize    int     `json:"vocab_size"`    // V, number of token ids
	BlockSize    int     `json:"block_size"`    // T, maximum context length
	NumLayers    int     `json:"num_layers"`    // L, transformer blocks
	EmbedDim     int     `json:"embed_dim"`     // E, model width
	NumHeads     int     `json:"num_heads"`     // H, attention heads
	EmbdDropout  float32 `json:"embd_dropout"`  // Dropout after the embeddings
	AttnDropout  float32 `json:"attn_dropout"`  // Dropout on attention probabilities
	ResidDropout float32 `json:"resid_dropout"` // Dropout on residual branches
	Seed         int64   `json:"seed"`          // Seeds initialization and dropout
}

// DefaultGPTConfig returns a small configuration for the given vocabulary.
func DefaultGPTConfig(vocabSize int) GPTConfig {
	return GPTConfig{
		VocabSize:    vocabSize,
		BlockSize:    64,
		NumLayers:    4,
		EmbedDim:     128,
		NumHeads:     4,
		EmbdDropout:  0.1,
		AttnDropout:  0.1,
		ResidDropout: 0.1,
		Seed:         42,
	}
}

// Validate reports configuration errors wrapped in ErrInvalidConfig.
func (c GPTConfig) Validate() error {
	if c.VocabSize <= 0 {
		return fmt.Errorf("%w: vocab size must be positive, got %d", ErrInvalidConfig, c.VocabSize)
	}
	if c.NumLayers < 1 {
		return fmt.Errorf("%w: need at least one block, got %d", ErrInvalidConfig, c.NumLayers)
	}
	if err := validateDropout("embedding dropout", c.EmbdDropout); err != nil {
		return err
	}
	return c.attention().Validate()
}

func (c GPTConfig) attention() AttentionConfig {
	return AttentionConfig{
		EmbedDim:     c.EmbedDim,
		NumHeads:     c.NumHeads,
		BlockSize:    c.BlockSize,
		AttnDropout:  c.AttnDropout,
		ResidDropout: c.ResidDropout,
	}
}

// GPT is a decoder-only transformer language model:
//
//	x = dropout(tok_emb(ids) + pos_emb[:, :T'])
//	x = blocks(x)
//	logits = head(ln_f(x))
//
// The root layer has the empty name, so parameter names are "tok_emb.weight",
// "pos_emb", "blocks.0.attn.query.weight" and so on.
type GPT[B tensor.Backend] struct {
	leaf
	cfg      GPTConfig
	backend  B
	tokEmb   *Embedding[B]
	posEmb   *Parameter[B] // [1, T, E], zero-initialized
	drop     *Dropout[B]
	blocks   []*TransformerBlock[B]
	blockSeq *blockList[B]
	lnF      *LayerNorm[B]
	head     *Linear[B]
	training bool
}

// NewGPT builds the model and applies InitWeights.
func NewGPT[B tensor.Backend](cfg GPTConfig, backend B) (*GPT[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // G404: model init does not need crypto randomness

	blocks := make([]*TransformerBlock[B], cfg.NumLayers)
	for i := range blocks {
		block, err := NewTransformerBlock(strconv.Itoa(i), cfg.attention(), rng, backend)
		if err != nil {
			return nil, err
		}
		blocks[i] = block
	}

	m := &GPT[B]{
		leaf:     leaf{name: "", kind: KindModel},
		cfg:      cfg,
		backend:  backend,
		tokEmb:   NewEmbedding("tok_emb", cfg.VocabSize, cfg.EmbedDim, rng, backend),
		posEmb:   NewParameter("pos_emb", tensor.Zeros[float32](tensor.Shape{1, cfg.BlockSize, cfg.EmbedDim}, backend)),
		drop:     NewDropout("drop", cfg.EmbdDropout, rng, backend),
		blocks:   blocks,
		blockSeq: &blockList[B]{blocks: blocks},
		lnF:      NewLayerNorm("ln_f", cfg.EmbedDim, DefaultLayerNormEps, backend),
		head:     NewLinear("head", cfg.EmbedDim, cfg.VocabSize, false, rng, backend),
		training: true,
	}
	InitWeights[B](m, rng)
	return m, nil
}

// Forward maps token ids [B, T'] to logits [B, T', V].
func (m *GPT[B]) Forward(ids *tensor.Tensor[int32, B]) (*tensor.Tensor[float32, B], error) {
	shape := ids.Shape()
	if len(shape) != 2 || shape[0] == 0 || shape[1] == 0 {
		return nil, fmt.Errorf("%w: expected non-empty [batch, seq] ids, got %v", ErrInvalidInput, shape)
	}
	seqLen := shape[1]
	if seqLen > m.cfg.BlockSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrSequenceTooLong, seqLen, m.cfg.BlockSize)
	}
	for i, id := range ids.Data() {
		if id < 0 || int(id) >= m.cfg.VocabSize {
			return nil, fmt.Errorf("%w: id %d at position %d, vocab size %d", ErrTokenOutOfRange, id, i, m.cfg.VocabSize)
		}
	}

	pos := m.posEmb.Tensor()
	if seqLen < m.cfg.BlockSize {
		pos = pos.Narrow(1, 0, seqLen)
	}
	x := m.drop.Forward(m.tokEmb.Forward(ids).Add(pos))
	for _, block := range m.blocks {
		x = block.Forward(x)
	}
	return m.head.Forward(m.lnF.Forward(x)), nil
}

// Loss returns the mean cross-entropy of logits [B, T', V] against
// targets [B, T'].
func (m *GPT[B]) Loss(logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	flat := logits.Reshape(-1, m.cfg.VocabSize)
	return tensor.CrossEntropy(flat, targets.Reshape(-1))
}

// Train switches dropout on (true) or off (false) for the whole model.
func (m *GPT[B]) Train(training bool) {
	m.training = training
	SetTraining[B](m, training)
}

// Training reports whether the model is in training mode.
func (m *GPT[B]) Training() bool {
	return m.training
}

// Config returns the model configuration.
func (m *GPT[B]) Config() GPTConfig { return m.cfg }

// BlockSize returns the maximum context length.
func (m *GPT[B]) BlockSize() int { return m.cfg.BlockSize }

// VocabSize returns the number of token ids.
func (m *GPT[B]) VocabSize() int { return m.cfg.VocabSize }

// Backend returns the backend the model computes on.
func (m *GPT[B]) Backend() B { return m.backend }

// Blocks returns the transformer blocks.
func (m *GPT[B]) Blocks() []*TransformerBlock[B] { return m.blocks }

// LocalParameters returns the positional embedding.
func (m *GPT[B]) LocalParameters() []*Parameter[B] {
	return []*Parameter[B]{m.posEmb}
}

// Children returns tok_emb, drop, blocks, ln_f and head.
func (m *GPT[B]) Children() []Layer[B] {
	return []Layer[B]{m.tokEmb, m.drop, m.blockSeq, m.lnF, m.head}
}

// blockList groups the transformer blocks under the "blocks" prefix.
type blockList[B tensor.Backend] struct {
	blocks []*TransformerBlock[B]
}

func (l *blockList[B]) Name() string                     { return "blocks" }
func (l *blockList[B]) Kind() Kind                       { return KindContainer }
func (l *blockList[B]) LocalParameters() []*Parameter[B] { return nil }

func (l *blockList[B]) Children() []Layer[B] {
	out := make([]Layer[B], len(l.blocks))
	for i, b := range l.blocks {
		out[i] = b
	}
	return out
}
