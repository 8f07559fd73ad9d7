package train

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/born-ml/mingpt/internal/tensor"
)

// ErrDatasetTooSmall is returned when a token stream cannot fill one window.
var ErrDatasetTooSmall = errors.New("dataset shorter than one training window")

// Dataset is an in-memory token stream cut into training windows of
// BlockSize tokens. Targets are the inputs shifted left by one.
type Dataset struct {
	tokens    []int32
	blockSize int
}

// NewDataset wraps tokens. The stream must hold at least blockSize+1 tokens.
func NewDataset(tokens []int32, blockSize int) (*Dataset, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("dataset: block size must be positive, got %d", blockSize)
	}
	if len(tokens) < blockSize+1 {
		return nil, fmt.Errorf("%w: %d tokens, need %d", ErrDatasetTooSmall, len(tokens), blockSize+1)
	}
	return &Dataset{tokens: tokens, blockSize: blockSize}, nil
}

// Len returns the number of distinct windows.
func (d *Dataset) Len() int {
	return len(d.tokens) - d.blockSize
}

// BlockSize returns the window length.
func (d *Dataset) BlockSize() int {
	return d.blockSize
}

// Window returns the input and target ids of the window starting at start.
func (d *Dataset) Window(start int) (inputs, targets []int32) {
	return d.tokens[start : start+d.blockSize], d.tokens[start+1 : start+d.blockSize+1]
}

// RandomBatch draws batchSize windows with uniformly random starts and
// returns inputs and targets as [batchSize, BlockSize] tensors.
func RandomBatch[B tensor.Backend](d *Dataset, batchSize int, rng *rand.Rand, backend B) (inputs, targets *tensor.Tensor[int32, B], err error) {
	if batchSize <= 0 {
		return nil, nil, fmt.Errorf("dataset: batch size must be positive, got %d", batchSize)
	}
	x := make([]int32, 0, batchSize*d.blockSize)
	y := make([]int32, 0, batchSize*d.blockSize)
	for i := 0; i < batchSize; i++ {
		in, tgt := d.Window(rng.Intn(d.Len()))
		x = append(x, in...)
		y = append(y, tgt...)
	}

	shape := tensor.Shape{batchSize, d.blockSize}
	if inputs, err = tensor.FromSlice(x, shape, backend); err != nil {
		return nil, nil, err
	}
	if targets, err = tensor.FromSlice(y, shape, backend); err != nil {
		return nil, nil, err
	}
	return inputs, targets, nil
}
