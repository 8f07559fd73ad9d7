package tensor

import (
	"fmt"
	"slices"
)

// Shape represents the dimensions of a tensor. An empty shape is a scalar.
type Shape []int

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that all dimensions are positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal reports whether two shapes are identical.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	return slices.Clone(s)
}

// ComputeStrides calculates row-major strides.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	acc := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= s[i]
	}
	return strides
}

// NormalizeDim maps a possibly negative axis into [0, len(s)).
// Panics if the axis is out of range.
func (s Shape) NormalizeDim(dim int) int {
	if dim < 0 {
		dim += len(s)
	}
	if dim < 0 || dim >= len(s) {
		panic(fmt.Sprintf("dimension %d out of range for shape %v", dim, s))
	}
	return dim
}

// BroadcastShapes implements NumPy-style broadcasting.
//
// Shapes are compared right to left; two dimensions are compatible when they
// are equal or one of them is 1. Missing leading dimensions count as 1.
//
//	(3, 1) + (3, 5) -> (3, 5)
//	(4, 1, 2) + (3, 2) -> (4, 3, 2)
func BroadcastShapes(a, b Shape) (Shape, error) {
	n := max(len(a), len(b))
	out := make(Shape, n)
	for i := 0; i < n; i++ {
		da, db := 1, 1
		if j := len(a) - n + i; j >= 0 {
			da = a[j]
		}
		if j := len(b) - n + i; j >= 0 {
			db = b[j]
		}
		switch {
		case da == db, db == 1:
			out[i] = da
		case da == 1:
			out[i] = db
		default:
			return nil, fmt.Errorf("shapes %v and %v are not broadcastable at dim %d", a, b, i)
		}
	}
	return out, nil
}

// BroadcastStrides returns, for every dimension of out, the stride to apply
// to in's flat index. Broadcast and missing dimensions get stride 0.
// in must be broadcastable to out.
func BroadcastStrides(in, out Shape) []int {
	inStrides := in.ComputeStrides()
	strides := make([]int, len(out))
	offset := len(out) - len(in)
	for i := offset; i < len(out); i++ {
		if in[i-offset] != 1 {
			strides[i] = inStrides[i-offset]
		}
	}
	return strides
}

// BroadcastIndex maps a flat index in out to the flat index of a tensor
// whose broadcast strides (see BroadcastStrides) are given.
func BroadcastIndex(flat int, out Shape, strides []int) int {
	idx := 0
	for d := len(out) - 1; d >= 0; d-- {
		c := flat % out[d]
		flat /= out[d]
		idx += c * strides[d]
	}
	return idx
}
