package cpu

import (
	"math"

	"github.com/born-ml/mingpt/internal/parallel"
	"github.com/born-ml/mingpt/internal/tensor"
)

// Rsqrt computes 1/sqrt(x) element-wise.
func (cpu *CPUBackend) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("rsqrt", x, func(v float32) float32 {
		return float32(1 / math.Sqrt(float64(v)))
	})
}

// Sin computes sin(x) element-wise.
func (cpu *CPUBackend) Sin(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("sin", x, func(v float32) float32 {
		return float32(math.Sin(float64(v)))
	})
}

// GELU applies the exact Gaussian error linear unit:
// 0.5 * x * (1 + erf(x / sqrt(2))).
func (cpu *CPUBackend) GELU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("gelu", x, func(v float32) float32 {
		f := float64(v)
		return float32(0.5 * f * (1 + math.Erf(f/math.Sqrt2)))
	})
}

// Softmax normalizes along dim after subtracting the maximum. Entries equal to
// -Inf become exact zeros; a row made only of -Inf becomes all zeros.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	requireFloat32("softmax", x)
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)
	outer, size, inner := splitDim(shape, dim)

	result := cpu.alloc("softmax", shape, tensor.Float32)
	out, in := result.AsFloat32(), x.AsFloat32()

	parallel.ForChunks(outer*inner, func(startRow, endRow int) {
		for row := startRow; row < endRow; row++ {
			base := (row/inner)*size*inner + row%inner
			softmaxRow(out, in, base, size, inner)
		}
	}, cpu.parallel)
	return result
}

func softmaxRow(out, in []float32, base, size, stride int) {
	maxVal := float32(math.Inf(-1))
	for j := 0; j < size; j++ {
		if v := in[base+j*stride]; v > maxVal {
			maxVal = v
		}
	}
	if math.IsInf(float64(maxVal), -1) {
		for j := 0; j < size; j++ {
			out[base+j*stride] = 0
		}
		return
	}
	var sum float64
	for j := 0; j < size; j++ {
		e := math.Exp(float64(in[base+j*stride] - maxVal))
		out[base+j*stride] = float32(e)
		sum += e
	}
	inv := float32(1 / sum)
	for j := 0; j < size; j++ {
		out[base+j*stride] *= inv
	}
}

// splitDim returns the number of elements before, along and after dim.
func splitDim(shape tensor.Shape, dim int) (outer, size, inner int) {
	return shape[:dim].NumElements(), shape[dim], shape[dim+1:].NumElements()
}
