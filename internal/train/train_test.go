package train

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/mingpt/internal/autodiff"
	"github.com/born-ml/mingpt/internal/backend/cpu"
	"github.com/born-ml/mingpt/internal/generate"
	"github.com/born-ml/mingpt/internal/nn"
	"github.com/born-ml/mingpt/internal/optim"
	"github.com/born-ml/mingpt/internal/tensor"
	"github.com/born-ml/mingpt/internal/tokenizer"
)

type testBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func alternating(n int) []byte {
	return []byte(strings.Repeat("ab", n/2))
}

func newModel(t *testing.T, vocab int) *nn.GPT[testBackend] {
	t.Helper()
	m, err := nn.NewGPT(nn.GPTConfig{
		VocabSize: vocab, BlockSize: 4, NumLayers: 1, EmbedDim: 16, NumHeads: 2, Seed: 7,
	}, autodiff.New(cpu.New()))
	require.NoError(t, err)
	return m
}

func quickConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchSize = 8
	cfg.Optimizer.LR = 1e-2
	cfg.Seed = 1
	return cfg
}

func TestDataset(t *testing.T) {
	d, err := NewDataset([]int32{0, 1, 2, 3, 4, 5}, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())

	in, tgt := d.Window(1)
	assert.Equal(t, []int32{1, 2, 3, 4}, in)
	assert.Equal(t, []int32{2, 3, 4, 5}, tgt)

	_, err = NewDataset([]int32{0, 1, 2, 3}, 4)
	assert.ErrorIs(t, err, ErrDatasetTooSmall)
	_, err = NewDataset([]int32{0, 1}, 0)
	assert.Error(t, err)
}

func TestRandomBatch_TargetsAreShiftedInputs(t *testing.T) {
	tokens := make([]int32, 50)
	for i := range tokens {
		tokens[i] = int32(i)
	}
	d, err := NewDataset(tokens, 5)
	require.NoError(t, err)

	x, y, err := RandomBatch(d, 6, rand.New(rand.NewSource(3)), cpu.New())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{6, 5}, x.Shape())
	assert.Equal(t, tensor.Shape{6, 5}, y.Shape())

	xs, ys := x.Data(), y.Data()
	for row := 0; row < 6; row++ {
		for col := 0; col < 5; col++ {
			i := row*5 + col
			assert.Equal(t, xs[i]+1, ys[i])
			if col > 0 {
				assert.Equal(t, xs[i-1]+1, xs[i], "window must be contiguous")
			}
		}
		assert.LessOrEqual(t, ys[row*5+4], int32(49))
	}

	_, _, err = RandomBatch(d, 0, rand.New(rand.NewSource(3)), cpu.New())
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxGradNorm = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Optimizer.LR = 0
	assert.Error(t, cfg.Validate())
}

func TestNewTrainer_Errors(t *testing.T) {
	m := newModel(t, 3)

	long, err := NewDataset(make([]int32, 20), 8)
	require.NoError(t, err)
	_, err = NewTrainer(m, long, quickConfig(), nil)
	assert.Error(t, err)

	d, err := NewDataset(make([]int32, 20), 4)
	require.NoError(t, err)
	cfg := quickConfig()
	cfg.Partition = optim.PartitionConfig{WeightDecay: 0.1}
	_, err = NewTrainer(m, d, cfg, nil)
	assert.ErrorIs(t, err, optim.ErrInvalidPartition)
}

func TestTrainer_LearnsAlternatingSequence(t *testing.T) {
	corpus := alternating(64)
	vocab := tokenizer.NewByteVocabulary(corpus)
	require.Equal(t, 3, vocab.VocabSize())

	ids, err := vocab.EncodeBytes(corpus)
	require.NoError(t, err)
	data, err := NewDataset(ids, 4)
	require.NoError(t, err)

	m := newModel(t, vocab.VocabSize())
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	trainer, err := NewTrainer(m, data, quickConfig(), logger)
	require.NoError(t, err)

	first, err := trainer.Step()
	require.NoError(t, err)
	assert.True(t, first.Improved)
	assert.Equal(t, 1, first.Step)

	last, err := trainer.Fit(context.Background(), 299)
	require.NoError(t, err)
	assert.Equal(t, 300, last.Step)
	assert.Equal(t, 300, trainer.Steps())
	assert.Less(t, trainer.BestLoss(), float32(0.1))
	assert.Less(t, trainer.BestLoss(), first.Loss)
	assert.Equal(t, 300, trainer.Optimizer().Steps())
	assert.Contains(t, logs.String(), "trainer ready")
	assert.Contains(t, logs.String(), "step=100")

	seed, err := vocab.Encode("a")
	require.NoError(t, err)
	out, err := generate.Generate[testBackend](m, seed, 4, generate.SamplingConfig{Temperature: 1, Greedy: true})
	require.NoError(t, err)

	text, err := vocab.Decode(out[len(seed):])
	require.NoError(t, err)
	assert.Equal(t, "baba", text)
	assert.True(t, m.Training(), "generation restores training mode")
}

func TestTrainer_StepReleasesActivations(t *testing.T) {
	corpus := alternating(32)
	vocab := tokenizer.NewByteVocabulary(corpus)
	ids, err := vocab.EncodeBytes(corpus)
	require.NoError(t, err)
	data, err := NewDataset(ids, 4)
	require.NoError(t, err)

	m := newModel(t, vocab.VocabSize())
	trainer, err := NewTrainer(m, data, quickConfig(), nil)
	require.NoError(t, err)

	outer := tensor.NewScope()
	defer outer.Close()
	for i := 0; i < 3; i++ {
		_, err := trainer.Step()
		require.NoError(t, err)
	}
	assert.Zero(t, outer.Len())
	assert.Zero(t, m.Backend().GetTape().NumOps())
	assert.False(t, m.Backend().GetTape().IsRecording())
}

func TestTrainer_OnImprovedAndCheckpoint(t *testing.T) {
	corpus := alternating(32)
	vocab := tokenizer.NewByteVocabulary(corpus)
	ids, err := vocab.EncodeBytes(corpus)
	require.NoError(t, err)
	data, err := NewDataset(ids, 4)
	require.NoError(t, err)

	m := newModel(t, vocab.VocabSize())
	cfg := quickConfig()
	cfg.CheckpointPath = filepath.Join(t.TempDir(), "best.born")
	trainer, err := NewTrainer(m, data, cfg, nil)
	require.NoError(t, err)

	var improved []StepResult
	trainer.OnImproved(func(r StepResult) { improved = append(improved, r) })

	_, err = trainer.Fit(context.Background(), 20)
	require.NoError(t, err)
	require.NotEmpty(t, improved)
	assert.Equal(t, 1, improved[0].Step)
	for i := 1; i < len(improved); i++ {
		assert.Less(t, improved[i].Loss, improved[i-1].Loss)
	}
	assert.Equal(t, improved[len(improved)-1].Loss, trainer.BestLoss())

	best := improved[len(improved)-1]
	resumed, err := NewTrainer(newModel(t, vocab.VocabSize()), data, quickConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, resumed.LoadCheckpoint(cfg.CheckpointPath))
	assert.Equal(t, best.Step, resumed.Steps())
	assert.Equal(t, best.Step, resumed.Optimizer().Steps())
	assert.Equal(t, best.Loss, resumed.BestLoss())
}

func TestTrainer_NonFiniteLossLeavesStateUntouched(t *testing.T) {
	corpus := alternating(32)
	vocab := tokenizer.NewByteVocabulary(corpus)
	ids, err := vocab.EncodeBytes(corpus)
	require.NoError(t, err)
	data, err := NewDataset(ids, 4)
	require.NoError(t, err)

	m := newModel(t, vocab.VocabSize())
	before := make(map[string][]float32)
	for _, np := range nn.NamedParameters[testBackend](m) {
		if np.Name == "ln_f.bias" {
			np.Param.Data()[0] = float32(math.NaN())
		}
		before[np.Name] = append([]float32(nil), np.Param.Data()...)
	}

	trainer, err := NewTrainer(m, data, quickConfig(), nil)
	require.NoError(t, err)
	_, err = trainer.Step()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-finite loss")

	assert.Zero(t, trainer.Steps())
	assert.Zero(t, trainer.Optimizer().Steps())
	assert.True(t, math.IsInf(float64(trainer.BestLoss()), 1))
	for _, np := range nn.NamedParameters[testBackend](m) {
		if np.Name == "ln_f.bias" {
			continue
		}
		assert.Equal(t, before[np.Name], np.Param.Data(), np.Name)
	}
	assert.Zero(t, m.Backend().GetTape().NumOps())
}

func TestTrainer_FitHonoursContext(t *testing.T) {
	corpus := alternating(32)
	vocab := tokenizer.NewByteVocabulary(corpus)
	ids, err := vocab.EncodeBytes(corpus)
	require.NoError(t, err)
	data, err := NewDataset(ids, 4)
	require.NoError(t, err)

	trainer, err := NewTrainer(newModel(t, vocab.VocabSize()), data, quickConfig(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = trainer.Fit(ctx, 5)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, trainer.Steps())
	assert.True(t, math.IsInf(float64(trainer.BestLoss()), 1))
}

func TestTrainer_CheckpointResume(t *testing.T) {
	corpus := alternating(32)
	vocab := tokenizer.NewByteVocabulary(corpus)
	ids, err := vocab.EncodeBytes(corpus)
	require.NoError(t, err)
	data, err := NewDataset(ids, 4)
	require.NoError(t, err)

	cfg := quickConfig()
	original, err := NewTrainer(newModel(t, vocab.VocabSize()), data, cfg, nil)
	require.NoError(t, err)
	_, err = original.Fit(context.Background(), 5)
	require.NoError(t, err)
	original.Optimizer().SetLR(5e-3)

	path := filepath.Join(t.TempDir(), "state.born")
	require.NoError(t, original.SaveCheckpoint(path))

	fresh := newModel(t, vocab.VocabSize())
	for _, p := range nn.Parameters[testBackend](fresh) {
		data := p.Data()
		for i := range data {
			data[i] = 0.5
		}
	}
	resumed, err := NewTrainer(fresh, data, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, resumed.LoadCheckpoint(path))

	assert.Equal(t, 5, resumed.Steps())
	assert.Equal(t, 5, resumed.Optimizer().Steps())
	assert.Equal(t, original.BestLoss(), resumed.BestLoss())
	assert.Equal(t, float32(5e-3), resumed.Optimizer().GetLR())

	want := nn.NamedParameters[testBackend](original.model)
	got := nn.NamedParameters[testBackend](fresh)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Param.Data(), got[i].Param.Data(), want[i].Name)
	}

	origState, resState := original.Optimizer().StateDict(), resumed.Optimizer().StateDict()
	require.Equal(t, origState.Len(), resState.Len())
	for kv := origState.Oldest(); kv != nil; kv = kv.Next() {
		other, ok := resState.Get(kv.Key)
		require.True(t, ok, kv.Key)
		assert.Equal(t, kv.Value.AsFloat32(), other.AsFloat32(), kv.Key)
	}

	// Identical state and identically seeded batches give identical steps.
	original.rng = rand.New(rand.NewSource(9))
	resumed.rng = rand.New(rand.NewSource(9))
	a, err := original.Step()
	require.NoError(t, err)
	b, err := resumed.Step()
	require.NoError(t, err)
	assert.Equal(t, a.Loss, b.Loss)
	assert.Equal(t, 6, b.Step)
}

func TestTrainer_LoadCheckpointRejectsOtherModels(t *testing.T) {
	corpus := alternating(32)
	vocab := tokenizer.NewByteVocabulary(corpus)
	ids, err := vocab.EncodeBytes(corpus)
	require.NoError(t, err)
	data, err := NewDataset(ids, 4)
	require.NoError(t, err)

	trainer, err := NewTrainer(newModel(t, vocab.VocabSize()), data, quickConfig(), nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "state.born")
	require.NoError(t, trainer.SaveCheckpoint(path))

	other, err := NewTrainer(newModel(t, vocab.VocabSize()+1), data, quickConfig(), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, other.LoadCheckpoint(path), ErrCheckpoint)

	weights := filepath.Join(t.TempDir(), "weights.born")
	require.NoError(t, trainer.model.Save(weights))
	assert.ErrorIs(t, trainer.LoadCheckpoint(weights), ErrCheckpoint)
}
