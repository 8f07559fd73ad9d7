package ops

import (
	"github.com/born-ml/mingpt/internal/tensor"
)

// reduceBroadcast sums a gradient down to the shape of an input that was
// broadcast in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, target tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()
	if gradShape.Equal(target) {
		return grad
	}

	result := zerosLike(target, backend)
	out, g := result.AsFloat32(), grad.AsFloat32()
	strides := tensor.BroadcastStrides(target, gradShape)
	for i, v := range g {
		out[tensor.BroadcastIndex(i, gradShape, strides)] += v
	}
	return result
}

// expandTo broadcasts grad (shaped like a reduction result with kept
// dimensions) back over target, multiplying by scale.
func expandTo(grad *tensor.RawTensor, target tensor.Shape, scale float32, backend tensor.Backend) *tensor.RawTensor {
	result := zerosLike(target, backend)
	out, g := result.AsFloat32(), grad.AsFloat32()
	strides := tensor.BroadcastStrides(grad.Shape(), target)
	for i := range out {
		out[i] = g[tensor.BroadcastIndex(i, target, strides)] * scale
	}
	return result
}

func zerosLike(shape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	return tensor.MustNewRaw(shape, tensor.Float32, backend.Device())
}

// keptShape is shape with dim collapsed to size 1.
func keptShape(shape tensor.Shape, dim int) tensor.Shape {
	out := shape.Clone()
	out[dim] = 1
	return out
}
