package cpu

import (
	"fmt"

	"github.com/born-ml/mingpt/internal/tensor"
)

// Where keeps x where cond is true and writes fill elsewhere. cond must
// broadcast to x's shape.
func (cpu *CPUBackend) Where(cond, x *tensor.RawTensor, fill float32) *tensor.RawTensor {
	requireFloat32("where", x)
	if cond.DType() != tensor.Bool {
		panic(fmt.Sprintf("where: condition must be bool, got %s", cond.DType()))
	}
	shape := x.Shape()
	if out, err := tensor.BroadcastShapes(cond.Shape(), shape); err != nil || !out.Equal(shape) {
		panic(fmt.Sprintf("where: condition %v does not broadcast to %v", cond.Shape(), shape))
	}

	result := cpu.alloc("where", shape, tensor.Float32)
	out, in, c := result.AsFloat32(), x.AsFloat32(), cond.AsBool()
	strides := tensor.BroadcastStrides(cond.Shape(), shape)
	for i := range out {
		if c[tensor.BroadcastIndex(i, shape, strides)] {
			out[i] = in[i]
		} else {
			out[i] = fill
		}
	}
	return result
}

// Embedding gathers rows of weight [V, E] for every int32 index.
func (cpu *CPUBackend) Embedding(weight, indices *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("embedding", weight)
	if indices.DType() != tensor.Int32 {
		panic(fmt.Sprintf("embedding: indices must be int32, got %s", indices.DType()))
	}
	wShape := weight.Shape()
	if len(wShape) != 2 {
		panic(fmt.Sprintf("embedding: weight must be 2D, got %v", wShape))
	}
	vocab, dim := wShape[0], wShape[1]

	outShape := indices.Shape().Clone()
	outShape = append(outShape, dim)
	result := cpu.alloc("embedding", outShape, tensor.Float32)

	out, w := result.AsFloat32(), weight.AsFloat32()
	for i, idx := range indices.AsInt32() {
		if idx < 0 || int(idx) >= vocab {
			panic(fmt.Sprintf("embedding: index %d out of range [0, %d)", idx, vocab))
		}
		copy(out[i*dim:(i+1)*dim], w[int(idx)*dim:(int(idx)+1)*dim])
	}
	return result
}
