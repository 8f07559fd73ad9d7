// Package nn implements the neural network layers of the language model.
//
// Layers form an explicit tree. Every layer records its own name fragment at
// construction and reports its kind, its directly owned parameters and its
// children; fully qualified parameter names ("blocks.0.attn.query.weight")
// are produced by walking that tree, without reflection.
//
//   - Layer / Module: tree node and single-input forward contract
//   - Linear, Embedding, LayerNorm, Dropout, GELU, Sequential: building blocks
//   - CausalSelfAttention, TransformerBlock, GPT: the language model
//   - Siren: sine-activated MLP for implicit neural representations
package nn

import (
	"github.com/born-ml/mingpt/internal/tensor"
)

// Kind is the closed set of layer variants. Initialization and parameter
// partitioning dispatch on it.
type Kind int

// Layer kinds.
const (
	KindLinear Kind = iota
	KindEmbedding
	KindLayerNorm
	KindDropout
	KindActivation
	KindAttention
	KindBlock
	KindContainer
	KindModel
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "Linear"
	case KindEmbedding:
		return "Embedding"
	case KindLayerNorm:
		return "LayerNorm"
	case KindDropout:
		return "Dropout"
	case KindActivation:
		return "Activation"
	case KindAttention:
		return "Attention"
	case KindBlock:
		return "Block"
	case KindContainer:
		return "Container"
	case KindModel:
		return "Model"
	default:
		return "Unknown"
	}
}

// Layer is a node of the model tree.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Layer[B tensor.Backend] interface {
	// Name returns this layer's own name fragment ("query", "0", "ln_f").
	// The root of a model may use the empty name.
	Name() string

	// Kind returns the layer variant.
	Kind() Kind

	// LocalParameters returns the parameters owned directly by this layer,
	// excluding those of children.
	LocalParameters() []*Parameter[B]

	// Children returns the direct sub-layers in registration order.
	Children() []Layer[B]
}

// Module is a Layer with a single-tensor forward pass.
type Module[B tensor.Backend] interface {
	Layer[B]

	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
}

// NamedParameter pairs a parameter with its fully qualified name and the kind
// of the layer that owns it.
type NamedParameter[B tensor.Backend] struct {
	Name  string
	Param *Parameter[B]
	Owner Kind
}

// Walk visits root and all descendants depth-first in registration order,
// passing each layer's fully qualified path.
func Walk[B tensor.Backend](root Layer[B], fn func(path string, l Layer[B])) {
	walk(root, "", fn)
}

func walk[B tensor.Backend](l Layer[B], prefix string, fn func(string, Layer[B])) {
	path := joinName(prefix, l.Name())
	fn(path, l)
	for _, child := range l.Children() {
		walk(child, path, fn)
	}
}

// NamedParameters enumerates every parameter under root with its fully
// qualified name.
func NamedParameters[B tensor.Backend](root Layer[B]) []NamedParameter[B] {
	var out []NamedParameter[B]
	Walk(root, func(path string, l Layer[B]) {
		for _, p := range l.LocalParameters() {
			out = append(out, NamedParameter[B]{
				Name:  joinName(path, p.Name()),
				Param: p,
				Owner: l.Kind(),
			})
		}
	})
	return out
}

// Parameters returns every parameter under root in enumeration order.
func Parameters[B tensor.Backend](root Layer[B]) []*Parameter[B] {
	named := NamedParameters(root)
	out := make([]*Parameter[B], len(named))
	for i, np := range named {
		out[i] = np.Param
	}
	return out
}

// NumParameters counts scalar parameters under root.
func NumParameters[B tensor.Backend](root Layer[B]) int {
	n := 0
	for _, p := range Parameters(root) {
		n += p.Tensor().NumElements()
	}
	return n
}

// trainable is implemented by layers whose behavior differs between training
// and evaluation.
type trainable interface {
	SetTraining(training bool)
}

// SetTraining switches every layer under root between training and
// evaluation behavior.
func SetTraining[B tensor.Backend](root Layer[B], training bool) {
	Walk(root, func(_ string, l Layer[B]) {
		if t, ok := l.(trainable); ok {
			t.SetTraining(training)
		}
	})
}

func joinName(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	default:
		return prefix + "." + name
	}
}

// leaf provides the Layer bookkeeping for layers without children.
type leaf struct {
	name string
	kind Kind
}

func (l *leaf) Name() string { return l.name }
func (l *leaf) Kind() Kind   { return l.kind }
