package tensor

import (
	"math/bits"
	"sync"
)

// Buffers are pooled by power-of-two capacity so that a training loop reuses
// the same activation memory step after step.
const (
	minPoolClass = 6  // 64 bytes
	maxPoolClass = 30 // 1 GiB
)

var bufferPools [maxPoolClass + 1]sync.Pool

func sizeClass(n int) int {
	if n <= 1<<minPoolClass {
		return minPoolClass
	}
	return bits.Len(uint(n - 1))
}

func getBytes(n int) []byte {
	class := sizeClass(n)
	if class > maxPoolClass {
		return make([]byte, n)
	}
	if p, ok := bufferPools[class].Get().(*[]byte); ok {
		b := (*p)[:n]
		clear(b)
		return b
	}
	return make([]byte, n, 1<<class)
}

func putBytes(b []byte) {
	c := cap(b)
	if c == 0 {
		return
	}
	class := sizeClass(c)
	if class > maxPoolClass || c != 1<<class {
		return
	}
	b = b[:c]
	bufferPools[class].Put(&b)
}
