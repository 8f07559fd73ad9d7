package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/mingpt/internal/autodiff"
	"github.com/born-ml/mingpt/internal/backend/cpu"
	"github.com/born-ml/mingpt/internal/tensor"
)

func TestAutodiff_Name(t *testing.T) {
	backend := autodiff.New(cpu.New())
	assert.Equal(t, "Autodiff(CPU)", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
}

func TestAutodiff_RecordsOnlyWhileRecording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := tensor.Ones[float32](tensor.Shape{2}, backend)

	_ = x.Add(x)
	assert.Equal(t, 0, backend.Tape().NumOps())

	backend.Tape().StartRecording()
	_ = x.Add(x)
	assert.Equal(t, 1, backend.Tape().NumOps())

	backend.Tape().Clear()
	assert.Equal(t, 0, backend.Tape().NumOps())
	assert.True(t, backend.Tape().IsRecording())
}

func TestAutodiff_SquareAndAccumulate(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{2, -3}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	// y = x*x + x, dy/dx = 2x + 1
	y := x.Mul(x).Add(x).Sum()
	grads := autodiff.Backward(y, backend)

	assert.Equal(t, []float32{5, -5}, grads[x.Raw()].AsFloat32())
}

func TestAutodiff_UnusedBranchGetsNoGradient(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := tensor.Ones[float32](tensor.Shape{3}, backend)
	unused := tensor.Ones[float32](tensor.Shape{3}, backend)
	_ = unused.MulScalar(4)
	y := x.MulScalar(3).Sum()

	grads := autodiff.Backward(y, backend)
	assert.Equal(t, []float32{3, 3, 3}, grads[x.Raw()].AsFloat32())
	_, ok := grads[unused.Raw()]
	assert.False(t, ok)
}

func TestAutodiff_BackwardWithoutRecordingPanics(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := tensor.Ones[float32](tensor.Shape{1}, backend)
	assert.Panics(t, func() { autodiff.Backward(x, backend) })
}
