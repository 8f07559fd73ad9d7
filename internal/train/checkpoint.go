package train

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/mingpt/internal/nn"
	"github.com/born-ml/mingpt/internal/serialization"
)

// ErrCheckpoint is wrapped by LoadCheckpoint errors about the file contents.
var ErrCheckpoint = errors.New("invalid training checkpoint")

// Checkpoint layout: model parameters and optimizer moments share one state
// dict under these prefixes, the counters live in the header metadata.
const (
	checkpointModelType = "GPTTrainingState"
	prefixModel         = "model."
	prefixOptim         = "optim."

	MetaStep     = "step"
	MetaBestLoss = "best_loss"
	MetaLR       = "lr"
)

// SaveCheckpoint writes the model, the optimizer moments, the step count,
// the best loss and the learning rate to path, so that training can resume
// with LoadCheckpoint.
func (t *Trainer[B]) SaveCheckpoint(path string) error {
	cfg, err := json.Marshal(t.model.Config())
	if err != nil {
		return fmt.Errorf("train: marshal config: %w", err)
	}

	state := serialization.NewStateDict()
	for kv := nn.StateDict[B](t.model).Oldest(); kv != nil; kv = kv.Next() {
		state.Set(prefixModel+kv.Key, kv.Value)
	}
	for kv := t.opt.StateDict().Oldest(); kv != nil; kv = kv.Next() {
		state.Set(prefixOptim+kv.Key, kv.Value)
	}

	err = serialization.SaveFile(path, state, serialization.WriteOptions{
		ModelType: checkpointModelType,
		Metadata: map[string]string{
			nn.MetaConfig: string(cfg),
			MetaStep:      strconv.Itoa(t.step),
			MetaBestLoss:  strconv.FormatFloat(float64(t.bestLoss), 'g', -1, 32),
			MetaLR:        strconv.FormatFloat(float64(t.opt.GetLR()), 'g', -1, 32),
		},
	})
	if err != nil {
		return fmt.Errorf("train: save checkpoint: %w", err)
	}
	t.logger.Info("checkpoint saved", "path", path, "step", t.step)
	return nil
}

// LoadCheckpoint restores a state written by SaveCheckpoint. The model must
// have the configuration the checkpoint was written with.
func (t *Trainer[B]) LoadCheckpoint(path string) error {
	ckpt, err := serialization.LoadFile(path, serialization.ReaderOptions{})
	if err != nil {
		return fmt.Errorf("train: load checkpoint: %w", err)
	}
	defer func() {
		for kv := ckpt.State.Oldest(); kv != nil; kv = kv.Next() {
			kv.Value.Release()
		}
	}()

	h := ckpt.Header
	if h.ModelType != checkpointModelType {
		return fmt.Errorf("%w: model type %q", ErrCheckpoint, h.ModelType)
	}
	var cfg nn.GPTConfig
	if err := json.Unmarshal([]byte(h.Metadata[nn.MetaConfig]), &cfg); err != nil {
		return fmt.Errorf("%w: config: %w", ErrCheckpoint, err)
	}
	if cfg != t.model.Config() {
		return fmt.Errorf("%w: checkpoint config %+v, model config %+v", ErrCheckpoint, cfg, t.model.Config())
	}
	step, err := strconv.Atoi(h.Metadata[MetaStep])
	if err != nil {
		return fmt.Errorf("%w: step: %w", ErrCheckpoint, err)
	}
	best, err := strconv.ParseFloat(h.Metadata[MetaBestLoss], 32)
	if err != nil {
		return fmt.Errorf("%w: best loss: %w", ErrCheckpoint, err)
	}
	lr, err := strconv.ParseFloat(h.Metadata[MetaLR], 32)
	if err != nil {
		return fmt.Errorf("%w: learning rate: %w", ErrCheckpoint, err)
	}

	modelState := serialization.NewStateDict()
	optState := serialization.NewStateDict()
	for kv := ckpt.State.Oldest(); kv != nil; kv = kv.Next() {
		switch {
		case strings.HasPrefix(kv.Key, prefixModel):
			modelState.Set(strings.TrimPrefix(kv.Key, prefixModel), kv.Value)
		case strings.HasPrefix(kv.Key, prefixOptim):
			optState.Set(strings.TrimPrefix(kv.Key, prefixOptim), kv.Value)
		default:
			return fmt.Errorf("%w: unexpected tensor %s", ErrCheckpoint, kv.Key)
		}
	}

	// Each load is all-or-nothing; a model mismatch rolls the optimizer back.
	snapshot, prevSteps := t.opt.StateDict(), t.opt.Steps()
	if err := t.opt.LoadStateDict(optState, step); err != nil {
		return err
	}
	if err := nn.LoadStateDict[B](t.model, modelState); err != nil {
		_ = t.opt.LoadStateDict(snapshot, prevSteps)
		return err
	}

	t.step = step
	t.bestLoss = float32(best)
	t.opt.SetLR(float32(lr))
	t.logger.Info("checkpoint loaded", "path", path, "step", step)
	return nil
}
