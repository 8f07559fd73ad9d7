package tensor

import (
	"fmt"
	"unsafe"
)

// Tensor is a typed view over a RawTensor bound to a backend.
//
// Type Parameters:
//   - T: element type (float32, int32 or bool)
//   - B: computation backend
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](tensor.Shape{3, 4}, backend)
//	sum := t.Add(t)
type Tensor[T DType, B Backend] struct {
	raw     *RawTensor
	backend B
}

// New wraps a RawTensor.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return &Tensor[T, B]{raw: raw, backend: b}
}

// FromSlice creates a tensor by copying data.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape, inferDataType[T](), b.Device())
	if err != nil {
		return nil, err
	}
	t := New[T, B](raw, b)
	copy(t.Data(), data)
	return t, nil
}

// Shape returns the tensor's shape.
func (t *Tensor[T, B]) Shape() Shape {
	return t.raw.Shape()
}

// DType returns the runtime element type.
func (t *Tensor[T, B]) DType() DataType {
	return t.raw.DType()
}

// NumElements returns the total number of elements.
func (t *Tensor[T, B]) NumElements() int {
	return t.raw.NumElements()
}

// Raw returns the underlying RawTensor.
func (t *Tensor[T, B]) Raw() *RawTensor {
	return t.raw
}

// Backend returns the computation backend.
func (t *Tensor[T, B]) Backend() B {
	return t.backend
}

// Data returns the elements as a typed slice sharing the tensor's memory.
func (t *Tensor[T, B]) Data() []T {
	data := t.raw.Data()
	//nolint:gosec // zero-copy view, length bounded by NumElements
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), t.raw.NumElements())
}

// Item returns the single element of a one-element tensor.
func (t *Tensor[T, B]) Item() T {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("Item requires a single element, shape is %v", t.Shape()))
	}
	return t.Data()[0]
}

// At returns the element at the given coordinates.
func (t *Tensor[T, B]) At(indices ...int) T {
	shape := t.Shape()
	if len(indices) != len(shape) {
		panic(fmt.Sprintf("At: got %d indices for shape %v", len(indices), shape))
	}
	strides := t.raw.Strides()
	flat := 0
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			panic(fmt.Sprintf("At: index %d out of range for dim %d of shape %v", idx, i, shape))
		}
		flat += idx * strides[i]
	}
	return t.Data()[flat]
}

// Copy returns a deep copy owned by the current scope.
func (t *Tensor[T, B]) Copy() *Tensor[T, B] {
	return New[T, B](t.raw.Copy(), t.backend)
}

// Persist excludes the tensor from scope cleanup.
func (t *Tensor[T, B]) Persist() *Tensor[T, B] {
	t.raw.Persist()
	return t
}

// String renders shape and dtype.
func (t *Tensor[T, B]) String() string {
	return fmt.Sprintf("Tensor(%v, %s)", t.Shape(), t.DType())
}
