package cpu

import (
	"github.com/born-ml/mingpt/internal/tensor"
)

// Sum reduces every element to a scalar.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("sum", x)
	var acc float64
	for _, v := range x.AsFloat32() {
		acc += float64(v)
	}
	result := cpu.alloc("sum", tensor.Shape{}, tensor.Float32)
	result.AsFloat32()[0] = float32(acc)
	return result
}

// SumDim sums along dim, keeping it as size 1 when keepDim is set.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("sumdim", x, dim, keepDim, 1)
}

// MeanDim averages along dim, keeping it as size 1 when keepDim is set.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	d := x.Shape().NormalizeDim(dim)
	return cpu.reduceDim("meandim", x, d, keepDim, 1/float64(x.Shape()[d]))
}

func (cpu *CPUBackend) reduceDim(op string, x *tensor.RawTensor, dim int, keepDim bool, scale float64) *tensor.RawTensor {
	requireFloat32(op, x)
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)
	outer, size, inner := splitDim(shape, dim)

	result := cpu.alloc(op, ReducedShape(shape, dim, keepDim), tensor.Float32)
	out, in := result.AsFloat32(), x.AsFloat32()
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			var acc float64
			for j := 0; j < size; j++ {
				acc += float64(in[(o*size+j)*inner+i])
			}
			out[o*inner+i] = float32(acc * scale)
		}
	}
	return result
}

// ReducedShape is the shape left after reducing dim.
func ReducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	out := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		switch {
		case i != dim:
			out = append(out, d)
		case keepDim:
			out = append(out, 1)
		}
	}
	return out
}
