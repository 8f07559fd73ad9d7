// Package autodiff implements automatic differentiation using the decorator
// pattern.
//
// AutodiffBackend wraps any Backend and records each operation on a
// GradientTape while recording is enabled. Backward walks the tape in reverse
// and returns gradients keyed by RawTensor.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.GetTape().StartRecording()
//	x, _ := tensor.FromSlice([]float32{2}, tensor.Shape{1}, backend)
//	y := x.Mul(x)
//	grads := autodiff.Backward(y, backend)
//	fmt.Println(grads[x.Raw()].AsFloat32()) // [4]
package autodiff

import (
	"github.com/born-ml/mingpt/internal/autodiff/ops"
	"github.com/born-ml/mingpt/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
//
// Type parameter B must satisfy the tensor.Backend interface.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

func (b *AutodiffBackend[B]) record(op ops.Operation) {
	if b.tape.IsRecording() {
		b.tape.Record(op)
	}
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Add(x, y)
	b.record(ops.NewAddOp(x, y, out))
	return out
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sub(x, y)
	b.record(ops.NewSubOp(x, y, out))
	return out
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Mul(x, y)
	b.record(ops.NewMulOp(x, y, out))
	return out
}

// Div performs element-wise division and records the operation.
func (b *AutodiffBackend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Div(x, y)
	b.record(ops.NewDivOp(x, y, out))
	return out
}

// MulScalar multiplies by a scalar and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := b.inner.MulScalar(x, s)
	b.record(ops.NewMulScalarOp(x, out, s))
	return out
}

// AddScalar adds a scalar and records the operation.
func (b *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := b.inner.AddScalar(x, s)
	b.record(ops.NewAddScalarOp(x, out))
	return out
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.MatMul(x, y)
	b.record(ops.NewMatMulOp(x, y, out))
	return out
}

// BatchMatMul performs batched matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) BatchMatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.BatchMatMul(x, y)
	b.record(ops.NewBatchMatMulOp(x, y, out))
	return out
}

// Reshape reshapes and records the operation.
func (b *AutodiffBackend[B]) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out := b.inner.Reshape(x, shape)
	b.record(ops.NewReshapeOp(x, out))
	return out
}

// Transpose permutes dimensions and records the operation.
func (b *AutodiffBackend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	out := b.inner.Transpose(x, axes...)
	b.record(ops.NewTransposeOp(x, out, axes))
	return out
}

// Narrow slices along a dimension and records the operation.
func (b *AutodiffBackend[B]) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	out := b.inner.Narrow(x, dim, start, length)
	if x.DType() == tensor.Float32 {
		b.record(ops.NewNarrowOp(x, out, dim, start))
	}
	return out
}

// Rsqrt computes 1/sqrt(x) and records the operation.
func (b *AutodiffBackend[B]) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Rsqrt(x)
	b.record(ops.NewRsqrtOp(x, out))
	return out
}

// Sin computes sin(x) and records the operation.
func (b *AutodiffBackend[B]) Sin(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sin(x)
	b.record(ops.NewSinOp(x, out))
	return out
}

// GELU applies GELU and records the operation.
func (b *AutodiffBackend[B]) GELU(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.GELU(x)
	b.record(ops.NewGELUOp(x, out))
	return out
}

// Softmax normalizes along dim and records the operation.
func (b *AutodiffBackend[B]) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	out := b.inner.Softmax(x, dim)
	b.record(ops.NewSoftmaxOp(x, out, dim))
	return out
}

// Sum reduces to a scalar and records the operation.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sum(x)
	b.record(ops.NewSumOp(x, out))
	return out
}

// SumDim sums along dim and records the operation.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	out := b.inner.SumDim(x, dim, keepDim)
	b.record(ops.NewSumDimOp(x, out, dim))
	return out
}

// MeanDim averages along dim and records the operation.
func (b *AutodiffBackend[B]) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	out := b.inner.MeanDim(x, dim, keepDim)
	b.record(ops.NewMeanDimOp(x, out, dim))
	return out
}

// Where selects between x and fill and records the operation.
func (b *AutodiffBackend[B]) Where(cond, x *tensor.RawTensor, fill float32) *tensor.RawTensor {
	out := b.inner.Where(cond, x, fill)
	b.record(ops.NewWhereOp(cond, x, out))
	return out
}

// Embedding gathers rows and records the operation.
func (b *AutodiffBackend[B]) Embedding(weight, indices *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Embedding(weight, indices)
	b.record(ops.NewEmbeddingOp(weight, indices, out))
	return out
}

// CrossEntropy computes the mean cross-entropy and records the operation.
func (b *AutodiffBackend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.CrossEntropy(logits, targets)
	b.record(ops.NewCrossEntropyOp(logits, targets, out))
	return out
}

// Compile-time check that AutodiffBackend implements tensor.Backend.
var _ tensor.Backend = (*AutodiffBackend[tensor.Backend])(nil)
