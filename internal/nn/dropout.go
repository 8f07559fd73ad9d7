package nn

import (
	"math/rand"

	"github.com/born-ml/mingpt/internal/tensor"
)

// Dropout zeroes elements with probability p during training and scales the
// survivors by 1/(1-p). In evaluation mode, or with p == 0, it is the
// identity.
type Dropout[B tensor.Backend] struct {
	leaf
	p        float32
	training bool
	rng      *rand.Rand
	backend  B
}

// NewDropout creates a Dropout layer in training mode.
func NewDropout[B tensor.Backend](name string, p float32, rng *rand.Rand, backend B) *Dropout[B] {
	return &Dropout[B]{
		leaf:     leaf{name: name, kind: KindDropout},
		p:        p,
		training: true,
		rng:      rng,
		backend:  backend,
	}
}

// SetTraining switches between training and evaluation behavior.
func (d *Dropout[B]) SetTraining(training bool) {
	d.training = training
}

// Forward applies the dropout mask.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.p <= 0 {
		return input
	}
	mask := tensor.Zeros[float32](input.Shape(), d.backend)
	scale := 1 / (1 - d.p)
	data := mask.Data()
	for i := range data {
		if d.rng.Float32() >= d.p {
			data[i] = scale
		}
	}
	return input.Mul(mask)
}

// LocalParameters returns nil.
func (d *Dropout[B]) LocalParameters() []*Parameter[B] { return nil }

// Children returns nil.
func (d *Dropout[B]) Children() []Layer[B] { return nil }
