package tensor

// Backend defines the operations a compute backend must implement.
// Backends never mutate their inputs; every operation returns a freshly
// allocated tensor (or a view for Reshape).
//
// Implementations:
//   - cpu.CPUBackend: pure Go kernels with BLAS matrix multiplication
//   - autodiff.AutodiffBackend: decorator that records a gradient tape
type Backend interface {
	// Element-wise binary operations with NumPy broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations.
	MulScalar(x *RawTensor, s float32) *RawTensor
	AddScalar(x *RawTensor, s float32) *RawTensor

	// MatMul multiplies 2D matrices: [M,K] @ [K,N] -> [M,N].
	MatMul(a, b *RawTensor) *RawTensor

	// BatchMatMul multiplies over all leading dimensions:
	// [..., M, K] @ [..., K, N] -> [..., M, N].
	BatchMatMul(a, b *RawTensor) *RawTensor

	// Shape operations.
	Reshape(x *RawTensor, shape Shape) *RawTensor
	Transpose(x *RawTensor, axes ...int) *RawTensor
	Narrow(x *RawTensor, dim, start, length int) *RawTensor

	// Element-wise math.
	Rsqrt(x *RawTensor) *RawTensor
	Sin(x *RawTensor) *RawTensor
	GELU(x *RawTensor) *RawTensor

	// Softmax along dim, max-shifted. -Inf inputs map to exact zeros.
	Softmax(x *RawTensor, dim int) *RawTensor

	// Reductions.
	Sum(x *RawTensor) *RawTensor
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Where keeps x where cond is true and writes fill elsewhere.
	// cond is a Bool tensor broadcastable to x.
	Where(cond, x *RawTensor, fill float32) *RawTensor

	// Embedding gathers rows of weight [V,E] for Int32 indices of any shape,
	// producing indices.shape + [E].
	Embedding(weight, indices *RawTensor) *RawTensor

	// CrossEntropy returns the mean negative log-likelihood of Int32 targets
	// [N] under logits [N,C] as a scalar.
	CrossEntropy(logits, targets *RawTensor) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
