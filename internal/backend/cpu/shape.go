package cpu

import (
	"fmt"

	"github.com/born-ml/mingpt/internal/tensor"
)

// Reshape returns a view with a new shape. One dimension may be -1 and is
// inferred from the element count.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	resolved, err := inferShape(shape, x.NumElements())
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	view, err := x.View(resolved)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return view
}

func inferShape(shape tensor.Shape, numElements int) (tensor.Shape, error) {
	out := shape.Clone()
	inferred := -1
	known := 1
	for i, d := range out {
		if d == -1 {
			if inferred >= 0 {
				return nil, fmt.Errorf("more than one -1 in %v", shape)
			}
			inferred = i
			continue
		}
		known *= d
	}
	if inferred >= 0 {
		if known <= 0 || numElements%known != 0 {
			return nil, fmt.Errorf("cannot infer dimension of %v for %d elements", shape, numElements)
		}
		out[inferred] = numElements / known
	}
	if out.NumElements() != numElements {
		return nil, fmt.Errorf("shape %v does not hold %d elements", shape, numElements)
	}
	return out, nil
}

// Transpose permutes dimensions. With no axes, the last two dimensions are
// swapped. The result is a contiguous copy.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	requireFloat32("transpose", x)
	inShape := x.Shape()
	nd := len(inShape)
	if len(axes) == 0 {
		if nd < 2 {
			panic(fmt.Sprintf("transpose: need at least 2 dims, got %v", inShape))
		}
		axes = make([]int, nd)
		for i := range axes {
			axes[i] = i
		}
		axes[nd-2], axes[nd-1] = axes[nd-1], axes[nd-2]
	}
	if len(axes) != nd {
		panic(fmt.Sprintf("transpose: %d axes for %dD tensor", len(axes), nd))
	}

	inStrides := x.Strides()
	outShape := make(tensor.Shape, nd)
	permStrides := make([]int, nd)
	seen := make([]bool, nd)
	for i, ax := range axes {
		if ax < 0 || ax >= nd || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid axes %v", axes))
		}
		seen[ax] = true
		outShape[i] = inShape[ax]
		permStrides[i] = inStrides[ax]
	}

	result := cpu.alloc("transpose", outShape, tensor.Float32)
	out, in := result.AsFloat32(), x.AsFloat32()
	for i := range out {
		out[i] = in[tensor.BroadcastIndex(i, outShape, permStrides)]
	}
	return result
}

// Narrow copies length entries along dim starting at start. Works for every
// dtype.
func (cpu *CPUBackend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dim %d of %v", start, start+length, dim, shape))
	}

	outShape := shape.Clone()
	outShape[dim] = length
	result := cpu.alloc("narrow", outShape, x.DType())

	elem := x.DType().Size()
	outer := shape[:dim].NumElements()
	inner := shape[dim+1:].NumElements() * elem
	src, dst := x.Data(), result.Data()
	for o := 0; o < outer; o++ {
		from := (o*shape[dim] + start) * inner
		copy(dst[o*length*inner:(o+1)*length*inner], src[from:from+length*inner])
	}
	return result
}
