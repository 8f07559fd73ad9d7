package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/mingpt/internal/tensor"
)

// CrossEntropy returns mean(logsumexp(logits[i]) - logits[i, targets[i]]) as a
// scalar, for logits [N, C] and int32 targets [N].
func (cpu *CPUBackend) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("cross_entropy", logits)
	if targets.DType() != tensor.Int32 {
		panic(fmt.Sprintf("cross_entropy: targets must be int32, got %s", targets.DType()))
	}
	lShape := logits.Shape()
	if len(lShape) != 2 || targets.NumElements() != lShape[0] {
		panic(fmt.Sprintf("cross_entropy: logits %v incompatible with targets %v", lShape, targets.Shape()))
	}
	n, c := lShape[0], lShape[1]

	x, t := logits.AsFloat32(), targets.AsInt32()
	var total float64
	for i := 0; i < n; i++ {
		target := int(t[i])
		if target < 0 || target >= c {
			panic(fmt.Sprintf("cross_entropy: target %d out of range [0, %d)", target, c))
		}
		row := x[i*c : (i+1)*c]
		total += LogSumExp(row) - float64(row[target])
	}

	result := cpu.alloc("cross_entropy", tensor.Shape{}, tensor.Float32)
	result.AsFloat32()[0] = float32(total / float64(n))
	return result
}

// LogSumExp computes log(sum(exp(row))) stably.
func LogSumExp(row []float32) float64 {
	maxVal := math.Inf(-1)
	for _, v := range row {
		maxVal = math.Max(maxVal, float64(v))
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v) - maxVal)
	}
	return maxVal + math.Log(sum)
}
