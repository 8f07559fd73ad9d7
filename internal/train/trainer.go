// Package train runs the optimization loop of the language model.
//
// A Trainer owns the optimizer and the batch sampler. Each Step runs inside
// a tensor.Scope: forward, loss, backward, gradient clipping and the AdamW
// update, after which every activation and gradient of the step is released.
package train

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/born-ml/mingpt/internal/autodiff"
	"github.com/born-ml/mingpt/internal/nn"
	"github.com/born-ml/mingpt/internal/optim"
	"github.com/born-ml/mingpt/internal/tensor"
)

// Config holds the training hyperparameters.
type Config struct {
	BatchSize   int                   // Windows per step (default: 16)
	Optimizer   optim.AdamWConfig     // AdamW hyperparameters
	Partition   optim.PartitionConfig // Weight-decay grouping
	MaxGradNorm float32               // Global clipping threshold; 0 disables (default: 1.0)
	LogEvery    int                   // Info log period in steps; 0 disables (default: 100)
	Seed        int64                 // Batch sampling seed

	// CheckpointPath, when set, receives a resumable checkpoint (see
	// SaveCheckpoint) every time the loss improves on the best seen so far.
	CheckpointPath string
}

// DefaultConfig returns the default training configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:   16,
		Optimizer:   optim.DefaultAdamWConfig(),
		Partition:   optim.DefaultPartitionConfig(),
		MaxGradNorm: optim.DefaultMaxGradNorm,
		LogEvery:    100,
		Seed:        42,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("train: batch size must be positive, got %d", c.BatchSize)
	}
	if c.MaxGradNorm < 0 {
		return fmt.Errorf("train: max grad norm must be >= 0, got %g", c.MaxGradNorm)
	}
	if c.LogEvery < 0 {
		return fmt.Errorf("train: log period must be >= 0, got %d", c.LogEvery)
	}
	return c.Optimizer.Validate()
}

// StepResult describes one completed training step.
type StepResult struct {
	Step     int     // 1-based step number
	Loss     float32 // Mean cross-entropy of the batch
	GradNorm float32 // Global gradient norm before clipping
	Improved bool    // Loss is the best seen so far
}

// Trainer fits a GPT to a Dataset.
type Trainer[B autodiff.BackwardCapable] struct {
	model      *nn.GPT[B]
	data       *Dataset
	opt        *optim.AdamW[B]
	cfg        Config
	rng        *rand.Rand
	logger     *slog.Logger
	step       int
	bestLoss   float32
	onImproved func(StepResult)
}

// NewTrainer partitions the model parameters and builds the optimizer. A nil
// logger discards all output.
func NewTrainer[B autodiff.BackwardCapable](model *nn.GPT[B], data *Dataset, cfg Config, logger *slog.Logger) (*Trainer[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if data.BlockSize() > model.BlockSize() {
		return nil, fmt.Errorf("train: dataset window %d exceeds model block size %d", data.BlockSize(), model.BlockSize())
	}
	decay, noDecay, err := optim.Partition[B](model, cfg.Partition)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Info("trainer ready",
		"params", nn.NumParameters[B](model),
		"decay", decay.Len(),
		"no_decay", noDecay.Len(),
		"windows", data.Len(),
		"batch", cfg.BatchSize,
		"lr", cfg.Optimizer.LR)

	return &Trainer[B]{
		model:    model,
		data:     data,
		opt:      optim.NewAdamW([]optim.ParamGroup[B]{decay, noDecay}, cfg.Optimizer, model.Backend()),
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // reproducible batches, not crypto
		logger:   logger,
		bestLoss: float32(math.Inf(1)),
	}, nil
}

// OnImproved registers fn to run after every step that lowers the best loss.
func (t *Trainer[B]) OnImproved(fn func(StepResult)) {
	t.onImproved = fn
}

// Step runs a single optimization step on a random batch. The model is
// switched to training mode first.
func (t *Trainer[B]) Step() (StepResult, error) {
	if !t.model.Training() {
		t.model.Train(true)
	}

	loss, norm, err := t.update()
	if err != nil {
		return StepResult{}, err
	}

	t.step++
	res := StepResult{Step: t.step, Loss: loss, GradNorm: norm}
	if loss < t.bestLoss {
		t.bestLoss = loss
		res.Improved = true
	}

	t.logger.Debug("step", "step", res.Step, "loss", res.Loss, "grad_norm", res.GradNorm, "lr", t.opt.GetLR())
	if t.cfg.LogEvery > 0 && res.Step%t.cfg.LogEvery == 0 {
		t.logger.Info("training", "step", res.Step, "loss", res.Loss, "best", t.bestLoss)
	}

	if res.Improved {
		if t.cfg.CheckpointPath != "" {
			if err := t.SaveCheckpoint(t.cfg.CheckpointPath); err != nil {
				return res, fmt.Errorf("train: checkpoint: %w", err)
			}
		}
		if t.onImproved != nil {
			t.onImproved(res)
		}
	}
	return res, nil
}

// update performs forward, backward and the optimizer step inside one scope.
// A non-finite loss returns an error before any gradient reaches the
// parameters or the optimizer state.
func (t *Trainer[B]) update() (loss, norm float32, err error) {
	backend := t.model.Backend()
	tape := backend.GetTape()

	scope := tensor.NewScope()
	defer scope.Close()
	defer tape.Clear()

	inputs, targets, err := RandomBatch(t.data, t.cfg.BatchSize, t.rng, backend)
	if err != nil {
		return 0, 0, err
	}

	tape.StartRecording()
	logits, err := t.model.Forward(inputs)
	if err != nil {
		tape.StopRecording()
		return 0, 0, err
	}
	lossT := t.model.Loss(logits, targets)
	tape.StopRecording()

	loss = lossT.Item()
	if math.IsNaN(float64(loss)) || math.IsInf(float64(loss), 0) {
		return 0, 0, fmt.Errorf("train: step %d: non-finite loss %g", t.step+1, loss)
	}

	grads := autodiff.Backward(lossT, backend)
	norm = optim.ClipGradNorm(t.opt.Parameters(), grads, t.cfg.MaxGradNorm)
	t.opt.Step(grads)

	return loss, norm, nil
}

// Fit runs steps training steps and returns the last result. The context is
// checked between steps; a step in progress always completes.
func (t *Trainer[B]) Fit(ctx context.Context, steps int) (StepResult, error) {
	var last StepResult
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		res, err := t.Step()
		if err != nil {
			return last, err
		}
		last = res
	}
	t.logger.Info("training done", "steps", t.step, "best_loss", t.bestLoss)
	return last, nil
}

// Steps returns the number of completed steps.
func (t *Trainer[B]) Steps() int {
	return t.step
}

// BestLoss returns the lowest loss seen, +Inf before the first step.
func (t *Trainer[B]) BestLoss() float32 {
	return t.bestLoss
}

// Optimizer returns the underlying AdamW optimizer.
func (t *Trainer[B]) Optimizer() *optim.AdamW[B] {
	return t.opt
}
