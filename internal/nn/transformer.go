package nn

import (
	"math/rand"

	"github.com/born-ml/mingpt/internal/tensor"
)

// TransformerBlock is a pre-norm transformer layer:
//
//	x = x + attn(ln1(x))
//	x = x + mlp(ln2(x))
//
// where mlp is Linear(E, 4E) -> GELU -> Linear(4E, E) -> Dropout.
type TransformerBlock[B tensor.Backend] struct {
	leaf
	ln1  *LayerNorm[B]
	attn *CausalSelfAttention[B]
	ln2  *LayerNorm[B]
	mlp  *Sequential[B]
}

// NewTransformerBlock creates a block. The configuration is validated by the
// attention constructor.
func NewTransformerBlock[B tensor.Backend](name string, cfg AttentionConfig, rng *rand.Rand, backend B) (*TransformerBlock[B], error) {
	attn, err := NewCausalSelfAttention("attn", cfg, rng, backend)
	if err != nil {
		return nil, err
	}
	e := cfg.EmbedDim
	return &TransformerBlock[B]{
		leaf: leaf{name: name, kind: KindBlock},
		ln1:  NewLayerNorm("ln1", e, DefaultLayerNormEps, backend),
		attn: attn,
		ln2:  NewLayerNorm("ln2", e, DefaultLayerNormEps, backend),
		mlp: NewSequential[B]("mlp",
			NewLinear("fc", e, 4*e, true, rng, backend),
			NewGELU[B]("gelu"),
			NewLinear("proj", 4*e, e, true, rng, backend),
			NewDropout("drop", cfg.ResidDropout, rng, backend),
		),
	}, nil
}

// Forward maps [B, T', E] to [B, T', E].
func (b *TransformerBlock[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x = x.Add(b.attn.Forward(b.ln1.Forward(x)))
	return x.Add(b.mlp.Forward(b.ln2.Forward(x)))
}

// LocalParameters returns nil.
func (b *TransformerBlock[B]) LocalParameters() []*Parameter[B] { return nil }

// Children returns ln1, attn, ln2 and mlp.
func (b *TransformerBlock[B]) Children() []Layer[B] {
	return []Layer[B]{b.ln1, b.attn, b.ln2, b.mlp}
}

// Attention returns the attention sublayer.
func (b *TransformerBlock[B]) Attention() *CausalSelfAttention[B] {
	return b.attn
}
