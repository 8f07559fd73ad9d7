package nn

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/mingpt/internal/autodiff"
	"github.com/born-ml/mingpt/internal/tensor"
)

func tinyConfig() GPTConfig {
	return GPTConfig{
		VocabSize: 5,
		BlockSize: 4,
		NumLayers: 1,
		EmbedDim:  8,
		NumHeads:  2,
		Seed:      1,
	}
}

func TestNewGPT_ParameterNames(t *testing.T) {
	m, err := NewGPT(tinyConfig(), newTestBackend())
	require.NoError(t, err)

	named := NamedParameters[testBackend](m)
	require.Len(t, named, 21)

	byName := make(map[string]NamedParameter[testBackend], len(named))
	for _, np := range named {
		byName[np.Name] = np
	}
	for _, name := range []string{
		"tok_emb.weight", "pos_emb", "blocks.0.ln1.weight", "blocks.0.attn.query.weight",
		"blocks.0.mlp.fc.bias", "ln_f.weight", "ln_f.bias", "head.weight",
	} {
		assert.Contains(t, byName, name)
	}
	assert.NotContains(t, byName, "head.bias")
	assert.Equal(t, KindModel, byName["pos_emb"].Owner)
	assert.Equal(t, KindEmbedding, byName["tok_emb.weight"].Owner)
	assert.Equal(t, tensor.Shape{1, 4, 8}, byName["pos_emb"].Param.Tensor().Shape())
	assert.Equal(t, tensor.Shape{5, 8}, byName["head.weight"].Param.Tensor().Shape())
}

func TestNewGPT_ConfigErrors(t *testing.T) {
	mutate := []func(*GPTConfig){
		func(c *GPTConfig) { c.VocabSize = 0 },
		func(c *GPTConfig) { c.NumLayers = 0 },
		func(c *GPTConfig) { c.EmbedDim = -8 },
		func(c *GPTConfig) { c.NumHeads = 3 },
		func(c *GPTConfig) { c.BlockSize = 0 },
		func(c *GPTConfig) { c.EmbdDropout = 1.5 },
	}
	for i, fn := range mutate {
		cfg := tinyConfig()
		fn(&cfg)
		_, err := NewGPT(cfg, newTestBackend())
		assert.ErrorIs(t, err, ErrInvalidConfig, "case %d", i)
	}
}

func TestNewGPT_InitPolicy(t *testing.T) {
	cfg := GPTConfig{VocabSize: 64, BlockSize: 8, NumLayers: 2, EmbedDim: 64, NumHeads: 4, Seed: 3}
	m, err := NewGPT(cfg, newTestBackend())
	require.NoError(t, err)

	var weights []float64
	for _, np := range NamedParameters[testBackend](m) {
		data := np.Param.Data()
		switch {
		case np.Name == "pos_emb":
			assertAll(t, np.Name, data, 0)
		case np.Owner == KindLayerNorm && strings.HasSuffix(np.Name, "weight"):
			assertAll(t, np.Name, data, 1)
		case strings.HasSuffix(np.Name, "bias"):
			assertAll(t, np.Name, data, 0)
		case np.Owner == KindLinear || np.Owner == KindEmbedding:
			for _, v := range data {
				weights = append(weights, float64(v))
			}
		default:
			t.Errorf("unexpected parameter %s owned by %s", np.Name, np.Owner)
		}
	}

	mean, std := stat.MeanStdDev(weights, nil)
	assert.InDelta(t, 0, mean, 1e-3)
	assert.InDelta(t, InitStd, std, 1e-3)
}

func assertAll(t *testing.T, name string, data []float32, want float32) {
	t.Helper()
	for i, v := range data {
		if v != want {
			t.Errorf("%s[%d] = %v, want %v", name, i, v, want)
			return
		}
	}
}

func TestGPT_ForwardShapes(t *testing.T) {
	backend := newTestBackend()
	m, err := NewGPT(tinyConfig(), backend)
	require.NoError(t, err)

	full := mustFromSlice(t, []int32{0, 1, 2, 3, 4, 3, 2, 1}, tensor.Shape{2, 4}, backend)
	logits, err := m.Forward(full)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 4, 5}, logits.Shape())

	short := mustFromSlice(t, []int32{1, 2}, tensor.Shape{1, 2}, backend)
	logits, err = m.Forward(short)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 5}, logits.Shape())
}

func TestGPT_ForwardErrors(t *testing.T) {
	backend := newTestBackend()
	m, err := NewGPT(tinyConfig(), backend)
	require.NoError(t, err)

	_, err = m.Forward(mustFromSlice(t, []int32{0, 1, 2, 3, 4}, tensor.Shape{1, 5}, backend))
	assert.ErrorIs(t, err, ErrSequenceTooLong)

	_, err = m.Forward(mustFromSlice(t, []int32{0, 5}, tensor.Shape{1, 2}, backend))
	assert.ErrorIs(t, err, ErrTokenOutOfRange)

	_, err = m.Forward(mustFromSlice(t, []int32{0, -1}, tensor.Shape{1, 2}, backend))
	assert.ErrorIs(t, err, ErrTokenOutOfRange)

	_, err = m.Forward(mustFromSlice(t, []int32{0, 1}, tensor.Shape{2}, backend))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGPT_NoFutureLeakage(t *testing.T) {
	backend := newTestBackend()
	cfg := tinyConfig()
	cfg.NumLayers = 2
	m, err := NewGPT(cfg, backend)
	require.NoError(t, err)
	randomizeParameters(m)

	ids := []int32{1, 3, 0, 2}
	base, err := m.Forward(mustFromSlice(t, ids, tensor.Shape{1, 4}, backend))
	require.NoError(t, err)

	for j := 1; j < 4; j++ {
		perturbed := append([]int32(nil), ids...)
		perturbed[j] = (perturbed[j] + 1) % 5
		out, err := m.Forward(mustFromSlice(t, perturbed, tensor.Shape{1, 4}, backend))
		require.NoError(t, err)

		// Logits at every position i < j must not move.
		assert.InDeltaSlice(t, base.Data()[:j*5], out.Data()[:j*5], 1e-6, "perturbed position %d", j)
		assert.NotEqual(t, base.Data()[j*5:(j+1)*5], out.Data()[j*5:(j+1)*5], "position %d should change", j)
	}
}

// randomizeParameters replaces the near-zero init so every position carries
// signal through the network.
func randomizeParameters(m *GPT[testBackend]) {
	rng := newRand(99)
	for _, p := range Parameters[testBackend](m) {
		tensor.FillNormal(p.Data(), 0, 0.5, rng)
	}
}

func TestGPT_LossAtInit(t *testing.T) {
	backend := newTestBackend()
	m, err := NewGPT(tinyConfig(), backend)
	require.NoError(t, err)

	ids := mustFromSlice(t, []int32{0, 1, 2, 3}, tensor.Shape{1, 4}, backend)
	targets := mustFromSlice(t, []int32{1, 2, 3, 4}, tensor.Shape{1, 4}, backend)
	logits, err := m.Forward(ids)
	require.NoError(t, err)

	loss := m.Loss(logits, targets)
	assert.InDelta(t, math.Log(5), float64(loss.Item()), 0.05)
}

func TestGPT_GradientsReachEveryParameter(t *testing.T) {
	backend := newTestBackend()
	m, err := NewGPT(tinyConfig(), backend)
	require.NoError(t, err)

	backend.Tape().StartRecording()
	defer backend.Tape().Clear()

	ids := mustFromSlice(t, []int32{0, 1, 2, 3}, tensor.Shape{1, 4}, backend)
	targets := mustFromSlice(t, []int32{1, 2, 3, 4}, tensor.Shape{1, 4}, backend)
	logits, err := m.Forward(ids)
	require.NoError(t, err)
	grads := autodiff.Backward(m.Loss(logits, targets), backend)

	for _, np := range NamedParameters[testBackend](m) {
		g, ok := grads[np.Param.Raw()]
		if assert.True(t, ok, "no gradient for %s", np.Name) {
			assert.Equal(t, np.Param.Tensor().Shape(), g.Shape(), np.Name)
		}
	}
}

func TestGPT_TrainEvalMode(t *testing.T) {
	backend := newTestBackend()
	cfg := tinyConfig()
	cfg.EmbdDropout, cfg.AttnDropout, cfg.ResidDropout = 0.5, 0.5, 0.5
	m, err := NewGPT(cfg, backend)
	require.NoError(t, err)
	require.True(t, m.Training())

	ids := mustFromSlice(t, []int32{0, 1, 2, 3}, tensor.Shape{1, 4}, backend)
	a, _ := m.Forward(ids)
	b, _ := m.Forward(ids)
	assert.NotEqual(t, a.Data(), b.Data(), "dropout should differ between training calls")

	m.Train(false)
	assert.False(t, m.Training())
	a, _ = m.Forward(ids)
	b, _ = m.Forward(ids)
	assert.Equal(t, a.Data(), b.Data())
}
