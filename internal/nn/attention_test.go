package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/mingpt/internal/tensor"
)

func TestCausalSelfAttention_PreservesShape(t *testing.T) {
	backend := newTestBackend()
	tests := []struct {
		name                   string
		embed, heads, seq, blk int
	}{
		{"single head full block", 8, 1, 4, 4},
		{"four heads full block", 16, 4, 6, 6},
		{"short sequence", 12, 3, 2, 8},
		{"one token", 8, 2, 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attn, err := NewCausalSelfAttention("attn", AttentionConfig{
				EmbedDim: tt.embed, NumHeads: tt.heads, BlockSize: tt.blk,
			}, rand.New(rand.NewSource(1)), backend)
			require.NoError(t, err)

			x := tensor.RandNormal(tensor.Shape{2, tt.seq, tt.embed}, 0, 1, rand.New(rand.NewSource(2)), backend)
			out := attn.Forward(x)
			assert.Equal(t, tensor.Shape{2, tt.seq, tt.embed}, out.Shape())
		})
	}
}

func TestCausalSelfAttention_ConfigErrors(t *testing.T) {
	backend := newTestBackend()
	bad := []AttentionConfig{
		{EmbedDim: 0, NumHeads: 1, BlockSize: 4},
		{EmbedDim: 8, NumHeads: 0, BlockSize: 4},
		{EmbedDim: 8, NumHeads: 3, BlockSize: 4},
		{EmbedDim: 8, NumHeads: 2, BlockSize: 0},
		{EmbedDim: 8, NumHeads: 2, BlockSize: 4, AttnDropout: 1},
		{EmbedDim: 8, NumHeads: 2, BlockSize: 4, ResidDropout: -0.1},
	}
	for _, cfg := range bad {
		_, err := NewCausalSelfAttention("attn", cfg, rand.New(rand.NewSource(1)), backend)
		assert.ErrorIs(t, err, ErrInvalidConfig, "%+v", cfg)
	}
}

func TestCausalSelfAttention_Mask(t *testing.T) {
	backend := newTestBackend()
	attn, err := NewCausalSelfAttention("attn", AttentionConfig{EmbedDim: 4, NumHeads: 2, BlockSize: 3},
		rand.New(rand.NewSource(1)), backend)
	require.NoError(t, err)

	assert.Equal(t, []bool{
		true, false, false,
		true, true, false,
		true, true, true,
	}, attn.Mask().Data())
	assert.True(t, attn.Mask().Raw().Persistent())

	x := tensor.Ones[float32](tensor.Shape{1, 4, 4}, backend)
	assert.Panics(t, func() { attn.Forward(x) })
}

func TestCausalSelfAttention_NoFutureLeakage(t *testing.T) {
	backend := newTestBackend()
	attn, err := NewCausalSelfAttention("attn", AttentionConfig{EmbedDim: 8, NumHeads: 2, BlockSize: 5},
		rand.New(rand.NewSource(7)), backend)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(8))
	x := tensor.RandNormal(tensor.Shape{1, 5, 8}, 0, 1, rng, backend)
	base := attn.Forward(x).Data()

	// Change only the last position.
	perturbed := x.Copy()
	for i := 4 * 8; i < 5*8; i++ {
		perturbed.Data()[i] += 3
	}
	out := attn.Forward(perturbed).Data()

	assert.InDeltaSlice(t, base[:4*8], out[:4*8], 1e-6)
	assert.NotEqual(t, base[4*8:], out[4*8:])
}

func TestTransformerBlock_TreeAndShape(t *testing.T) {
	backend := newTestBackend()
	block, err := NewTransformerBlock("0", AttentionConfig{EmbedDim: 8, NumHeads: 2, BlockSize: 4},
		rand.New(rand.NewSource(1)), backend)
	require.NoError(t, err)

	var names []string
	for _, np := range NamedParameters[testBackend](block) {
		names = append(names, np.Name)
	}
	assert.Equal(t, []string{
		"0.ln1.weight", "0.ln1.bias",
		"0.attn.key.weight", "0.attn.key.bias",
		"0.attn.query.weight", "0.attn.query.bias",
		"0.attn.value.weight", "0.attn.value.bias",
		"0.attn.proj.weight", "0.attn.proj.bias",
		"0.ln2.weight", "0.ln2.bias",
		"0.mlp.fc.weight", "0.mlp.fc.bias",
		"0.mlp.proj.weight", "0.mlp.proj.bias",
	}, names)

	x := tensor.RandNormal(tensor.Shape{3, 4, 8}, 0, 1, rand.New(rand.NewSource(2)), backend)
	assert.Equal(t, tensor.Shape{3, 4, 8}, block.Forward(x).Shape())
	assert.Equal(t, tensor.Shape{32, 8}, block.mlp.modules[0].(*Linear[testBackend]).Weight().Tensor().Shape())
}
