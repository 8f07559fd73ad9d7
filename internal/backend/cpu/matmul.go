package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/mingpt/internal/parallel"
	"github.com/born-ml/mingpt/internal/tensor"
)

// MatMul performs matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("matmul", a)
	requireFloat32("matmul", b)

	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}
	m, k := aShape[0], aShape[1]
	if bShape[0] != k {
		panic(fmt.Sprintf("matmul: shape mismatch %v @ %v", aShape, bShape))
	}
	n := bShape[1]

	result := cpu.alloc("matmul", tensor.Shape{m, n}, tensor.Float32)
	gemm(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n)
	return result
}

// BatchMatMul multiplies matrices stacked over identical leading dimensions:
// [..., M, K] @ [..., K, N] -> [..., M, N].
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("batchmatmul", a)
	requireFloat32("batchmatmul", b)

	aShape, bShape := a.Shape(), b.Shape()
	nd := len(aShape)
	if nd < 3 || len(bShape) != nd {
		panic(fmt.Sprintf("batchmatmul: need matching ranks >= 3, got %v and %v", aShape, bShape))
	}
	if !aShape[:nd-2].Equal(bShape[:nd-2]) || aShape[nd-1] != bShape[nd-2] {
		panic(fmt.Sprintf("batchmatmul: shape mismatch %v @ %v", aShape, bShape))
	}
	m, k, n := aShape[nd-2], aShape[nd-1], bShape[nd-1]
	batch := aShape[:nd-2].NumElements()

	outShape := aShape[:nd-2].Clone()
	outShape = append(outShape, m, n)
	result := cpu.alloc("batchmatmul", outShape, tensor.Float32)

	out, av, bv := result.AsFloat32(), a.AsFloat32(), b.AsFloat32()
	parallel.For(batch, func(i int) {
		gemm(out[i*m*n:(i+1)*m*n], av[i*m*k:(i+1)*m*k], bv[i*k*n:(i+1)*k*n], m, k, n)
	}, cpu.parallel)
	return result
}

// gemm computes c = a @ b for row-major a [m,k], b [k,n].
func gemm(c, a, b []float32, m, k, n int) {
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a},
		blas32.General{Rows: k, Cols: n, Stride: n, Data: b},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c},
	)
}
