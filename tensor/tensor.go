// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor operations.
//
// The package defines core interfaces and types for type-safe tensor operations:
//   - Tensor[T, B]: High-level generic tensor with type safety
//   - RawTensor: Low-level refcounted storage
//   - Backend: Interface for compute implementations
//   - Scope: Arena that releases intermediate tensors
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)  // Element-wise addition
package tensor

import (
	"math/rand"

	"github.com/born-ml/mingpt/internal/tensor"
)

// DType is a constraint for tensor data types: float32, int32, bool.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Int32   DataType = tensor.Int32
	Bool    DataType = tensor.Bool
)

// Device represents the device where tensor data resides.
type Device = tensor.Device

// CPU is the only device.
const CPU Device = tensor.CPU

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Backend is the contract every compute backend implements.
type Backend = tensor.Backend

// Tensor is a generic type-safe tensor.
//
// T is the element type, B the backend. Wrapping the backend with
// autodiff.New records operations for backpropagation.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// RawTensor is the low-level tensor representation: shape, dtype and a
// reference-counted buffer shared with views.
type RawTensor = tensor.RawTensor

// Scope owns the tensors allocated while it is open and releases them on
// Close. See NewScope.
type Scope = tensor.Scope

// NewScope opens a scope nested inside the current one.
//
// Example:
//
//	s := tensor.NewScope()
//	defer s.Close()
//	logits, err := model.Forward(ids)
func NewScope() *Scope {
	return tensor.NewScope()
}

// NewRaw allocates a zeroed raw tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromSlice creates a tensor from data with the given shape.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice(data, shape, b)
}

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T](shape, b)
}

// Full creates a tensor filled with value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full(shape, value, b)
}

// RandNormal creates a tensor with N(mean, std²) entries.
func RandNormal[B Backend](shape Shape, mean, std float32, rng *rand.Rand, b B) *Tensor[float32, B] {
	return tensor.RandNormal(shape, mean, std, rng, b)
}

// RandUniform creates a tensor with U(low, high) entries.
func RandUniform[B Backend](shape Shape, low, high float32, rng *rand.Rand, b B) *Tensor[float32, B] {
	return tensor.RandUniform(shape, low, high, rng, b)
}

// Tril returns the n×n lower-triangular boolean mask.
func Tril[B Backend](n int, b B) *Tensor[bool, B] {
	return tensor.Tril(n, b)
}

// Where selects x where cond is true and fill elsewhere.
func Where[B Backend](cond *Tensor[bool, B], x *Tensor[float32, B], fill float32) *Tensor[float32, B] {
	return tensor.Where(cond, x, fill)
}

// Embedding gathers rows of weight for every index.
func Embedding[B Backend](weight *Tensor[float32, B], indices *Tensor[int32, B]) *Tensor[float32, B] {
	return tensor.Embedding(weight, indices)
}

// CrossEntropy returns the mean cross-entropy of logits [N, C] against
// class targets [N].
func CrossEntropy[B Backend](logits *Tensor[float32, B], targets *Tensor[int32, B]) *Tensor[float32, B] {
	return tensor.CrossEntropy(logits, targets)
}
