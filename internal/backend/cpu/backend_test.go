package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/mingpt/internal/tensor"
)

func raw(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(tensor.Shape(shape), tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(r.AsFloat32(), data)
	return r
}

func rawInt32(t *testing.T, data []int32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(tensor.Shape(shape), tensor.Int32, tensor.CPU)
	require.NoError(t, err)
	copy(r.AsInt32(), data)
	return r
}

func TestCPUBackend_New(t *testing.T) {
	backend := New()
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
}

func TestCPUBackend_BinaryBroadcast(t *testing.T) {
	backend := New()
	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	row := raw(t, []float32{10, 20, 30}, 3)
	col := raw(t, []float32{2, 4}, 2, 1)

	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, backend.Add(a, row).AsFloat32())
	assert.Equal(t, []float32{-1, 0, 1, 0, 1, 2}, backend.Sub(a, col).AsFloat32())
	assert.Equal(t, []float32{2, 4, 6, 16, 20, 24}, backend.Mul(a, col).AsFloat32())
	assert.Equal(t, []float32{0.5, 1, 1.5, 1, 1.25, 1.5}, backend.Div(a, col).AsFloat32())

	out := backend.Add(col, row)
	assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float32{12, 22, 32, 14, 24, 34}, out.AsFloat32())
}

func TestCPUBackend_BinaryIncompatible(t *testing.T) {
	backend := New()
	assert.Panics(t, func() {
		backend.Add(raw(t, make([]float32, 6), 2, 3), raw(t, make([]float32, 2), 2))
	})
}

func TestCPUBackend_Scalar(t *testing.T) {
	backend := New()
	x := raw(t, []float32{1, -2}, 2)
	assert.Equal(t, []float32{3, -6}, backend.MulScalar(x, 3).AsFloat32())
	assert.Equal(t, []float32{1.5, -1.5}, backend.AddScalar(x, 0.5).AsFloat32())
}

func TestCPUBackend_MatMul(t *testing.T) {
	backend := New()
	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := raw(t, []float32{7, 8, 9, 10, 11, 12}, 3, 2)

	out := backend.MatMul(a, b)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, out.AsFloat32())

	assert.Panics(t, func() { backend.MatMul(a, a) })
}

func TestCPUBackend_BatchMatMul(t *testing.T) {
	backend := New()
	a := raw(t, []float32{
		1, 0, 0, 1, // identity
		1, 2, 3, 4,
	}, 2, 1, 2, 2)
	b := raw(t, []float32{
		5, 6, 7, 8,
		1, 1, 1, 1,
	}, 2, 1, 2, 2)

	out := backend.BatchMatMul(a, b)
	assert.Equal(t, tensor.Shape{2, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{5, 6, 7, 8, 3, 3, 7, 7}, out.AsFloat32())
}

func TestCPUBackend_ReshapeIsView(t *testing.T) {
	backend := New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	v := backend.Reshape(x, tensor.Shape{3, -1})
	assert.Equal(t, tensor.Shape{3, 2}, v.Shape())
	assert.Equal(t, 2, x.RefCount())

	v.AsFloat32()[0] = 42
	assert.Equal(t, float32(42), x.AsFloat32()[0])

	assert.Panics(t, func() { backend.Reshape(x, tensor.Shape{4, -1}) })
}

func TestCPUBackend_Transpose(t *testing.T) {
	backend := New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	out := backend.Transpose(x)
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, out.AsFloat32())

	// [B=1, T=2, H=2, D=2] -> [B, H, T, D]
	y := raw(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, 1, 2, 2, 2)
	perm := backend.Transpose(y, 0, 2, 1, 3)
	assert.Equal(t, tensor.Shape{1, 2, 2, 2}, perm.Shape())
	assert.Equal(t, []float32{1, 2, 5, 6, 3, 4, 7, 8}, perm.AsFloat32())
}

func TestCPUBackend_Narrow(t *testing.T) {
	backend := New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, 3, 3)

	rows := backend.Narrow(x, 0, 1, 2)
	assert.Equal(t, []float32{4, 5, 6, 7, 8, 9}, rows.AsFloat32())

	cols := backend.Narrow(x, 1, 0, 2)
	assert.Equal(t, []float32{1, 2, 4, 5, 7, 8}, cols.AsFloat32())

	mask := tensor.MustNewRaw(tensor.Shape{3, 3}, tensor.Bool, tensor.CPU)
	copy(mask.AsBool(), []bool{true, false, false, true, true, false, true, true, true})
	top := backend.Narrow(backend.Narrow(mask, 0, 0, 2), 1, 0, 2)
	assert.Equal(t, []bool{true, false, true, true}, top.AsBool())

	assert.Panics(t, func() { backend.Narrow(x, 1, 2, 2) })
}

func TestCPUBackend_Softmax(t *testing.T) {
	backend := New()
	negInf := float32(math.Inf(-1))
	x := raw(t, []float32{1, 2, 3, negInf, 0, negInf}, 2, 3)

	out := backend.Softmax(x, -1).AsFloat32()
	sum := out[0] + out[1] + out[2]
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Less(t, out[0], out[1])
	assert.Less(t, out[1], out[2])
	assert.Equal(t, []float32{0, 1, 0}, out[3:])

	for _, v := range out {
		assert.False(t, math.IsNaN(float64(v)))
	}
}

func TestCPUBackend_SoftmaxNonLastDim(t *testing.T) {
	backend := New()
	x := raw(t, []float32{0, 5, 0, 5}, 2, 2)

	out := backend.Softmax(x, 0).AsFloat32()
	assert.InDelta(t, 0.5, out[0], 1e-6)
	assert.InDelta(t, 0.5, out[2], 1e-6)
}

func TestCPUBackend_Reductions(t *testing.T) {
	backend := New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	assert.Equal(t, float32(21), backend.Sum(x).AsFloat32()[0])
	assert.Equal(t, tensor.Shape{}, backend.Sum(x).Shape())

	s0 := backend.SumDim(x, 0, false)
	assert.Equal(t, tensor.Shape{3}, s0.Shape())
	assert.Equal(t, []float32{5, 7, 9}, s0.AsFloat32())

	m1 := backend.MeanDim(x, -1, true)
	assert.Equal(t, tensor.Shape{2, 1}, m1.Shape())
	assert.Equal(t, []float32{2, 5}, m1.AsFloat32())
}

func TestCPUBackend_Where(t *testing.T) {
	backend := New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, 2, 2, 2)
	cond := tensor.MustNewRaw(tensor.Shape{2, 2}, tensor.Bool, tensor.CPU)
	copy(cond.AsBool(), []bool{true, false, true, true})

	out := backend.Where(cond, x, -1)
	assert.Equal(t, []float32{1, -1, 3, 4, 5, -1, 7, 8}, out.AsFloat32())
}

func TestCPUBackend_Embedding(t *testing.T) {
	backend := New()
	w := raw(t, []float32{0, 0, 1, 1, 2, 2}, 3, 2)
	idx := rawInt32(t, []int32{2, 0, 1, 2}, 2, 2)

	out := backend.Embedding(w, idx)
	assert.Equal(t, tensor.Shape{2, 2, 2}, out.Shape())
	assert.Equal(t, []float32{2, 2, 0, 0, 1, 1, 2, 2}, out.AsFloat32())

	assert.Panics(t, func() { backend.Embedding(w, rawInt32(t, []int32{3}, 1)) })
}

func TestCPUBackend_CrossEntropy(t *testing.T) {
	backend := New()

	uniform := raw(t, make([]float32, 8), 2, 4)
	loss := backend.CrossEntropy(uniform, rawInt32(t, []int32{0, 3}, 2))
	assert.InDelta(t, math.Log(4), loss.AsFloat32()[0], 1e-6)

	confident := raw(t, []float32{20, 0, 0}, 1, 3)
	loss = backend.CrossEntropy(confident, rawInt32(t, []int32{0}, 1))
	assert.Less(t, loss.AsFloat32()[0], float32(1e-6))
}

func TestCPUBackend_Activations(t *testing.T) {
	backend := New()
	x := raw(t, []float32{0, 1, -1, 4}, 4)

	gelu := backend.GELU(x).AsFloat32()
	assert.InDelta(t, 0.0, gelu[0], 1e-7)
	assert.InDelta(t, 0.8413447, gelu[1], 1e-5)
	assert.InDelta(t, -0.1586553, gelu[2], 1e-5)

	rs := backend.Rsqrt(x).AsFloat32()
	assert.InDelta(t, 0.5, rs[3], 1e-7)

	sin := backend.Sin(x).AsFloat32()
	assert.InDelta(t, math.Sin(1), sin[1], 1e-6)
}
