package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/mingpt/internal/tensor"
)

// AttentionConfig configures CausalSelfAttention.
type AttentionConfig struct {
	EmbedDim     int     // E, model width
	NumHeads     int     // H, E must be divisible by H
	BlockSize    int     // T, longest sequence the mask covers
	AttnDropout  float32 // Dropout on attention probabilities
	ResidDropout float32 // Dropout on the projected output
}

// Validate reports configuration errors wrapped in ErrInvalidConfig.
func (c AttentionConfig) Validate() error {
	switch {
	case c.EmbedDim <= 0:
		return fmt.Errorf("%w: embed dim must be positive, got %d", ErrInvalidConfig, c.EmbedDim)
	case c.NumHeads <= 0:
		return fmt.Errorf("%w: head count must be positive, got %d", ErrInvalidConfig, c.NumHeads)
	case c.EmbedDim%c.NumHeads != 0:
		return fmt.Errorf("%w: embed dim %d not divisible by %d heads", ErrInvalidConfig, c.EmbedDim, c.NumHeads)
	case c.BlockSize <= 0:
		return fmt.Errorf("%w: block size must be positive, got %d", ErrInvalidConfig, c.BlockSize)
	}
	if err := validateDropout("attention dropout", c.AttnDropout); err != nil {
		return err
	}
	return validateDropout("residual dropout", c.ResidDropout)
}

// CausalSelfAttention is multi-head scaled dot-product self-attention in
// which position i only attends to positions j <= i.
//
// Architecture:
//
//	q, k, v = query(x), key(x), value(x)          [B, T', E]
//	split heads                                   [B, H, T', E/H]
//	scores = q @ k^T / sqrt(E/H), causal masked   [B, H, T', T']
//	out = proj(merge(dropout(softmax(scores)) @ v))
//	return dropout(out)
type CausalSelfAttention[B tensor.Backend] struct {
	leaf
	cfg       AttentionConfig
	headDim   int
	scale     float32
	key       *Linear[B]
	query     *Linear[B]
	value     *Linear[B]
	proj      *Linear[B]
	attnDrop  *Dropout[B]
	residDrop *Dropout[B]
	mask      *tensor.Tensor[bool, B] // [T, T] lower triangular, persistent
}

// NewCausalSelfAttention creates the attention layer and its causal mask.
func NewCausalSelfAttention[B tensor.Backend](name string, cfg AttentionConfig, rng *rand.Rand, backend B) (*CausalSelfAttention[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := cfg.EmbedDim
	headDim := e / cfg.NumHeads
	return &CausalSelfAttention[B]{
		leaf:      leaf{name: name, kind: KindAttention},
		cfg:       cfg,
		headDim:   headDim,
		scale:     float32(1 / math.Sqrt(float64(headDim))),
		key:       NewLinear("key", e, e, true, rng, backend),
		query:     NewLinear("query", e, e, true, rng, backend),
		value:     NewLinear("value", e, e, true, rng, backend),
		proj:      NewLinear("proj", e, e, true, rng, backend),
		attnDrop:  NewDropout("attn_drop", cfg.AttnDropout, rng, backend),
		residDrop: NewDropout("resid_drop", cfg.ResidDropout, rng, backend),
		mask:      tensor.Tril(cfg.BlockSize, backend).Persist(),
	}, nil
}

// Forward maps [B, T', E] to [B, T', E]. It panics when T' exceeds the block
// size or the last dimension is not E.
func (a *CausalSelfAttention[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) != 3 || shape[2] != a.cfg.EmbedDim {
		panic(fmt.Sprintf("nn: attention expects [B, T, %d], got %v", a.cfg.EmbedDim, shape))
	}
	batch, seqLen := shape[0], shape[1]
	if seqLen > a.cfg.BlockSize {
		panic(fmt.Sprintf("nn: attention sequence length %d exceeds block size %d", seqLen, a.cfg.BlockSize))
	}

	q := a.splitHeads(a.query.Forward(x), batch, seqLen)
	k := a.splitHeads(a.key.Forward(x), batch, seqLen)
	v := a.splitHeads(a.value.Forward(x), batch, seqLen)

	scores := q.BatchMatMul(k.Transpose()).MulScalar(a.scale)
	scores = tensor.Where(a.causalMask(seqLen), scores, float32(math.Inf(-1)))
	att := a.attnDrop.Forward(scores.Softmax(-1))

	out := att.BatchMatMul(v).
		Transpose(0, 2, 1, 3).
		Reshape(batch, seqLen, a.cfg.EmbedDim)
	return a.residDrop.Forward(a.proj.Forward(out))
}

// splitHeads reshapes [B, T', E] to [B, H, T', E/H].
func (a *CausalSelfAttention[B]) splitHeads(x *tensor.Tensor[float32, B], batch, seqLen int) *tensor.Tensor[float32, B] {
	return x.Reshape(batch, seqLen, a.cfg.NumHeads, a.headDim).Transpose(0, 2, 1, 3)
}

// causalMask returns the top-left [n, n] block of the mask.
func (a *CausalSelfAttention[B]) causalMask(n int) *tensor.Tensor[bool, B] {
	if n == a.cfg.BlockSize {
		return a.mask
	}
	return a.mask.Narrow(0, 0, n).Narrow(1, 0, n)
}

// LocalParameters returns nil; the projections own the parameters.
func (a *CausalSelfAttention[B]) LocalParameters() []*Parameter[B] { return nil }

// Children returns key, query, value, proj and the two dropouts.
func (a *CausalSelfAttention[B]) Children() []Layer[B] {
	return []Layer[B]{a.key, a.query, a.value, a.proj, a.attnDrop, a.residDrop}
}

// Mask returns the [T, T] causal mask.
func (a *CausalSelfAttention[B]) Mask() *tensor.Tensor[bool, B] {
	return a.mask
}

// Config returns the configuration.
func (a *CausalSelfAttention[B]) Config() AttentionConfig {
	return a.cfg
}

func validateDropout(what string, p float32) error {
	if p < 0 || p >= 1 || math.IsNaN(float64(p)) {
		return fmt.Errorf("%w: %s must be in [0, 1), got %g", ErrInvalidConfig, what, p)
	}
	return nil
}
