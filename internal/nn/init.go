package nn

import (
	"math/rand"

	"github.com/born-ml/mingpt/internal/tensor"
)

// InitStd is the standard deviation of Linear and Embedding weights.
const InitStd = 0.02

// InitWeights applies the language-model initialization policy to every
// layer under root:
//
//	Linear     weight ~ Normal(0, 0.02), bias = 0
//	Embedding  weight ~ Normal(0, 0.02)
//	LayerNorm  weight = 1, bias = 0
//
// Every other kind is left untouched; recursion continues into its children.
// Parameters owned by the model root (the positional embedding) keep the
// value they were created with.
func InitWeights[B tensor.Backend](root Layer[B], rng *rand.Rand) {
	Walk(root, func(_ string, l Layer[B]) {
		switch l.Kind() {
		case KindLinear, KindEmbedding:
			for _, p := range l.LocalParameters() {
				switch p.Name() {
				case "weight":
					tensor.FillNormal(p.Data(), 0, InitStd, rng)
				case "bias":
					clear(p.Data())
				}
			}
		case KindLayerNorm:
			for _, p := range l.LocalParameters() {
				switch p.Name() {
				case "weight":
					fill(p.Data(), 1)
				case "bias":
					clear(p.Data())
				}
			}
		default:
		}
	})
}

func fill(data []float32, v float32) {
	for i := range data {
		data[i] = v
	}
}
