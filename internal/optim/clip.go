package optim

import (
	"math"

	"github.com/born-ml/mingpt/internal/nn"
	"github.com/born-ml/mingpt/internal/tensor"
)

// DefaultMaxGradNorm is the clipping threshold used by the trainer.
const DefaultMaxGradNorm = 1.0

// ClipGradNorm rescales the gradients of params in place so that their
// global L2 norm does not exceed maxNorm, and returns the norm before
// clipping. Parameters without a gradient are ignored.
func ClipGradNorm[B tensor.Backend](params []*nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor, maxNorm float32) float32 {
	var sumSq float64
	for _, p := range params {
		g := getGradient(p, grads)
		if g == nil {
			continue
		}
		for _, v := range g.AsFloat32() {
			sumSq += float64(v) * float64(v)
		}
	}
	norm := float32(math.Sqrt(sumSq))
	if maxNorm <= 0 || norm <= maxNorm {
		return norm
	}

	scale := maxNorm / (norm + 1e-6)
	// The tape may hand the same buffer to several inputs; scale it once.
	scaled := make(map[*tensor.RawTensor]struct{}, len(params))
	for _, p := range params {
		g := getGradient(p, grads)
		if g == nil {
			continue
		}
		if _, done := scaled[g]; done {
			continue
		}
		scaled[g] = struct{}{}
		data := g.AsFloat32()
		for i := range data {
			data[i] *= scale
		}
	}
	return norm
}
