package generate

import (
	"errors"
	"fmt"

	"github.com/born-ml/mingpt/internal/tensor"
	"github.com/born-ml/mingpt/internal/tokenizer"
)

// Errors returned by Generate for unusable seeds.
var (
	ErrEmptySeed      = errors.New("seed sequence is empty")
	ErrSeedTooLong    = errors.New("seed sequence exceeds block size")
	ErrSeedOutOfRange = errors.New("seed token out of vocabulary range")
)

// LanguageModel is the model surface the decode loop needs. *nn.GPT
// satisfies it.
type LanguageModel[B tensor.Backend] interface {
	// Forward maps ids [batch, seq] to logits [batch, seq, vocab].
	Forward(ids *tensor.Tensor[int32, B]) (*tensor.Tensor[float32, B], error)

	// BlockSize is the longest sequence Forward accepts.
	BlockSize() int

	// VocabSize is the width of the logits.
	VocabSize() int

	// Backend creates the input tensors.
	Backend() B

	// Train toggles dropout; Training reports the current mode.
	Train(training bool)
	Training() bool
}

// Generate extends seed by steps tokens and returns seed followed by the
// generated ids. Each step crops the sequence to the last BlockSize tokens,
// runs the model, and samples from the logits at the final position.
//
// The model is put in eval mode for the duration of the call and restored
// afterwards. Every step runs inside its own tensor.Scope.
func Generate[B tensor.Backend](model LanguageModel[B], seed []int32, steps int, cfg SamplingConfig) ([]int32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if steps < 0 {
		return nil, fmt.Errorf("generate: steps must be >= 0, got %d", steps)
	}
	if err := checkSeed(seed, model.BlockSize(), model.VocabSize()); err != nil {
		return nil, err
	}

	if model.Training() {
		model.Train(false)
		defer model.Train(true)
	}

	sampler := NewSampler(cfg)
	seq := make([]int32, len(seed), len(seed)+steps)
	copy(seq, seed)

	for i := 0; i < steps; i++ {
		next, err := decodeStep(model, crop(seq, model.BlockSize()), sampler)
		if err != nil {
			return nil, fmt.Errorf("generate: step %d: %w", i, err)
		}
		seq = append(seq, next)
	}
	return seq, nil
}

func checkSeed(seed []int32, blockSize, vocabSize int) error {
	if len(seed) == 0 {
		return ErrEmptySeed
	}
	if len(seed) > blockSize {
		return fmt.Errorf("%w: %d > %d", ErrSeedTooLong, len(seed), blockSize)
	}
	for i, id := range seed {
		if id < 0 || int(id) >= vocabSize {
			return fmt.Errorf("%w: id %d at position %d, vocab size %d", ErrSeedOutOfRange, id, i, vocabSize)
		}
	}
	return nil
}

// crop returns the last n tokens of seq.
func crop(seq []int32, n int) []int32 {
	if len(seq) <= n {
		return seq
	}
	return seq[len(seq)-n:]
}

// decodeStep runs one forward pass and samples the next id. The last-row
// logits are copied out before the scope releases the activations.
func decodeStep[B tensor.Backend](model LanguageModel[B], context []int32, sampler *Sampler) (int32, error) {
	scope := tensor.NewScope()
	defer scope.Close()

	ids, err := tensor.FromSlice(context, tensor.Shape{1, len(context)}, model.Backend())
	if err != nil {
		return 0, err
	}
	logits, err := model.Forward(ids)
	if err != nil {
		return 0, err
	}

	vocab := model.VocabSize()
	data := logits.Data()
	last := make([]float32, vocab)
	copy(last, data[(len(context)-1)*vocab:len(context)*vocab])

	return sampler.Sample(last), nil
}

// TextGenerator pairs a model with a tokenizer to generate text.
type TextGenerator[B tensor.Backend] struct {
	model     LanguageModel[B]
	tokenizer tokenizer.Tokenizer
	config    SamplingConfig
}

// NewTextGenerator creates a text generator.
func NewTextGenerator[B tensor.Backend](model LanguageModel[B], tok tokenizer.Tokenizer, config SamplingConfig) *TextGenerator[B] {
	return &TextGenerator[B]{
		model:     model,
		tokenizer: tok,
		config:    config,
	}
}

// Generate encodes prompt, extends it by steps tokens and decodes the whole
// sequence, prompt included. A prompt longer than the block size keeps its
// tail.
func (g *TextGenerator[B]) Generate(prompt string, steps int) (string, error) {
	if g.tokenizer.VocabSize() > g.model.VocabSize() {
		return "", fmt.Errorf("generate: tokenizer vocabulary %d exceeds model vocabulary %d",
			g.tokenizer.VocabSize(), g.model.VocabSize())
	}
	ids, err := g.tokenizer.Encode(prompt)
	if err != nil {
		return "", fmt.Errorf("generate: encode prompt: %w", err)
	}
	tail := crop(ids, g.model.BlockSize())
	head := ids[:len(ids)-len(tail)]

	out, err := Generate(g.model, tail, steps, g.config)
	if err != nil {
		return "", err
	}
	full := make([]int32, 0, len(head)+len(out))
	full = append(full, head...)
	text, err := g.tokenizer.Decode(append(full, out...))
	if err != nil {
		return "", fmt.Errorf("generate: decode: %w", err)
	}
	return text, nil
}
