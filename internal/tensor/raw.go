package tensor

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
)

// String returns a human-readable device name.
func (d Device) String() string {
	if d == CPU {
		return "CPU"
	}
	return "Unknown"
}

// tensorBuffer is a reference-counted byte buffer shared between a tensor and
// its views. The bytes go back to the pool when the last reference is dropped.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
}

func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{data: getBytes(size)}
	buf.refCount.Store(1)
	return buf
}

func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		putBytes(tb.data)
		tb.data = nil
	}
}

// RawTensor is the untyped, contiguous, row-major tensor representation
// that backends operate on.
type RawTensor struct {
	buffer     *tensorBuffer
	shape      Shape
	stride     []int
	dtype      DataType
	device     Device
	released   atomic.Bool
	persistent bool
}

// NewRaw allocates a zero-filled RawTensor. The tensor is owned by the
// innermost open Scope, if any.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	r := &RawTensor{
		buffer: newTensorBuffer(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}
	track(r)
	return r, nil
}

// MustNewRaw is NewRaw for shapes already known to be valid.
func MustNewRaw(shape Shape, dtype DataType, device Device) *RawTensor {
	r, err := NewRaw(shape, dtype, device)
	if err != nil {
		panic(err)
	}
	return r
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the row-major strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the element type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the data size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw bytes.
// Panics if the tensor has been released.
func (r *RawTensor) Data() []byte {
	if r.buffer.data == nil {
		panic("tensor: use of released tensor")
	}
	return r.buffer.data[:r.ByteSize()]
}

// AsFloat32 interprets the data as []float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	return asSlice[float32](r)
}

// AsInt32 interprets the data as []int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	return asSlice[int32](r)
}

// AsBool interprets the data as []bool.
func (r *RawTensor) AsBool() []bool {
	if r.dtype != Bool {
		panic(fmt.Sprintf("tensor dtype is %s, not bool", r.dtype))
	}
	return asSlice[bool](r)
}

func asSlice[T DType](r *RawTensor) []T {
	data := r.Data()
	//nolint:gosec // zero-copy view, length bounded by NumElements
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), r.NumElements())
}

// View returns a tensor with a new shape sharing this tensor's buffer.
// The element count must match.
func (r *RawTensor) View(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != r.NumElements() {
		return nil, fmt.Errorf("cannot view %v as %v: element count differs", r.shape, shape)
	}
	r.buffer.addRef()
	v := &RawTensor{
		buffer: r.buffer,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  r.dtype,
		device: r.device,
	}
	track(v)
	return v, nil
}

// Copy returns a deep copy with its own buffer.
func (r *RawTensor) Copy() *RawTensor {
	c := MustNewRaw(r.shape, r.dtype, r.device)
	copy(c.Data(), r.Data())
	return c
}

// RefCount returns the number of tensors sharing the buffer.
func (r *RawTensor) RefCount() int {
	return int(r.buffer.refCount.Load())
}

// Release drops this tensor's reference to its buffer. Releasing twice is a
// no-op; using the data of a released tensor whose buffer was recycled panics.
func (r *RawTensor) Release() {
	if r.released.CompareAndSwap(false, true) {
		r.buffer.release()
	}
}

// Released reports whether Release has been called.
func (r *RawTensor) Released() bool {
	return r.released.Load()
}

// Persist excludes the tensor from scope cleanup. Parameters and optimizer
// state are persistent.
func (r *RawTensor) Persist() *RawTensor {
	r.persistent = true
	return r
}

// Persistent reports whether the tensor outlives scopes.
func (r *RawTensor) Persistent() bool {
	return r.persistent
}
