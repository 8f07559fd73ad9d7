package tensor_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/mingpt/internal/backend/cpu"
	"github.com/born-ml/mingpt/internal/tensor"
)

func TestShape_Broadcast(t *testing.T) {
	tests := []struct {
		a, b, want tensor.Shape
		wantErr    bool
	}{
		{a: tensor.Shape{3, 1}, b: tensor.Shape{3, 5}, want: tensor.Shape{3, 5}},
		{a: tensor.Shape{4, 1, 2}, b: tensor.Shape{3, 2}, want: tensor.Shape{4, 3, 2}},
		{a: tensor.Shape{}, b: tensor.Shape{2}, want: tensor.Shape{2}},
		{a: tensor.Shape{2, 3}, b: tensor.Shape{2}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := tensor.BroadcastShapes(tt.a, tt.b)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestShape_StridesAndIndex(t *testing.T) {
	shape := tensor.Shape{2, 3, 4}
	assert.Equal(t, []int{12, 4, 1}, shape.ComputeStrides())
	assert.Equal(t, 24, shape.NumElements())
	assert.Equal(t, 1, tensor.Shape{}.NumElements())

	// [3,1] broadcast into [2,3,4]: index depends only on dim 1.
	strides := tensor.BroadcastStrides(tensor.Shape{3, 1}, shape)
	assert.Equal(t, []int{0, 1, 0}, strides)
	assert.Equal(t, 2, tensor.BroadcastIndex(1*12+2*4+3, shape, strides))

	assert.Equal(t, 2, shape.NormalizeDim(-1))
	assert.Panics(t, func() { shape.NormalizeDim(3) })
}

func TestTensor_FromSliceAndAt(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)

	assert.Equal(t, float32(6), x.At(1, 2))
	assert.Equal(t, tensor.Float32, x.DType())
	assert.Panics(t, func() { x.At(2, 0) })

	_, err = tensor.FromSlice([]float32{1}, tensor.Shape{2}, backend)
	assert.Error(t, err)
}

func TestTensor_CopyIsIndependent(t *testing.T) {
	backend := cpu.New()
	x := tensor.Full[float32](tensor.Shape{3}, 2, backend)
	c := x.Copy()
	c.Data()[0] = 9
	assert.Equal(t, float32(2), x.Data()[0])
}

func TestCreation(t *testing.T) {
	backend := cpu.New()

	assert.Equal(t, []int32{1, 1}, tensor.Ones[int32](tensor.Shape{2}, backend).Data())
	assert.Equal(t, []bool{true, false, true, true}, tensor.Tril(2, backend).Data())

	rng := rand.New(rand.NewSource(1))
	u := tensor.RandUniform(tensor.Shape{1000}, -0.5, 0.5, rng, backend)
	for _, v := range u.Data() {
		require.GreaterOrEqual(t, v, float32(-0.5))
		require.Less(t, v, float32(0.5))
	}
}
