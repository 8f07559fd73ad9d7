package tensor

import "math/rand"

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return New[T, B](MustNewRaw(shape, inferDataType[T](), b.Device()), b)
}

// Ones creates a tensor filled with ones (true for bool).
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var one T
	switch p := any(&one).(type) {
	case *float32:
		*p = 1
	case *int32:
		*p = 1
	case *bool:
		*p = true
	}
	return Full(shape, one, b)
}

// Full creates a tensor filled with value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// RandNormal draws float32 samples from Normal(mean, std) using rng.
func RandNormal[B Backend](shape Shape, mean, std float32, rng *rand.Rand, b B) *Tensor[float32, B] {
	t := Zeros[float32](shape, b)
	FillNormal(t.Raw().AsFloat32(), mean, std, rng)
	return t
}

// RandUniform draws float32 samples from U[low, high) using rng.
func RandUniform[B Backend](shape Shape, low, high float32, rng *rand.Rand, b B) *Tensor[float32, B] {
	t := Zeros[float32](shape, b)
	FillUniform(t.Raw().AsFloat32(), low, high, rng)
	return t
}

// FillNormal overwrites data with Normal(mean, std) samples.
func FillNormal(data []float32, mean, std float32, rng *rand.Rand) {
	for i := range data {
		data[i] = mean + std*float32(rng.NormFloat64())
	}
}

// FillUniform overwrites data with U[low, high) samples.
func FillUniform(data []float32, low, high float32, rng *rand.Rand) {
	for i := range data {
		data[i] = low + (high-low)*rng.Float32()
	}
}

// Tril creates a [n, n] bool matrix that is true on and below the diagonal.
func Tril[B Backend](n int, b B) *Tensor[bool, B] {
	t := Zeros[bool](Shape{n, n}, b)
	data := t.Data()
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			data[i*n+j] = true
		}
	}
	return t
}
