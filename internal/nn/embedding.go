package nn

import (
	"math/rand"

	"github.com/born-ml/mingpt/internal/tensor"
)

// Embedding maps integer ids to learned vectors.
//
// Weight has shape [num_embeddings, embedding_dim] and starts as N(0, 1).
type Embedding[B tensor.Backend] struct {
	leaf
	numEmbeddings int
	embeddingDim  int
	weight        *Parameter[B]
}

// NewEmbedding creates an Embedding layer.
func NewEmbedding[B tensor.Backend](name string, numEmbeddings, embeddingDim int, rng *rand.Rand, backend B) *Embedding[B] {
	return &Embedding[B]{
		leaf:          leaf{name: name, kind: KindEmbedding},
		numEmbeddings: numEmbeddings,
		embeddingDim:  embeddingDim,
		weight: NewParameter("weight",
			tensor.RandNormal(tensor.Shape{numEmbeddings, embeddingDim}, 0, 1, rng, backend)),
	}
}

// Forward looks up ids of any shape S and returns S + [embedding_dim].
// Ids outside [0, num_embeddings) panic.
func (e *Embedding[B]) Forward(ids *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	return tensor.Embedding(e.weight.Tensor(), ids)
}

// LocalParameters returns the weight.
func (e *Embedding[B]) LocalParameters() []*Parameter[B] {
	return []*Parameter[B]{e.weight}
}

// Children returns nil.
func (e *Embedding[B]) Children() []Layer[B] { return nil }

// Weight returns the weight parameter.
func (e *Embedding[B]) Weight() *Parameter[B] { return e.weight }

// NumEmbeddings returns the table size.
func (e *Embedding[B]) NumEmbeddings() int { return e.numEmbeddings }
