// Package bufferpool recycles the backing arrays of growable stream buffers.
// Arrays are pooled by power-of-two size class; a buffer asking for an exact
// capacity gets a slice of that length carved out of the next class up.
package bufferpool

import (
	"math/bits"
	"sync"
)

const (
	MinSizeBits = 6
	MaxSizeBits = 24

	MinPooledSize = 1 << MinSizeBits
	MaxPooledSize = 1 << MaxSizeBits
)

var pool [MaxSizeBits + 1]sync.Pool

func init() {
	for i := MinSizeBits; i <= MaxSizeBits; i++ {
		size := 1 << uint(i)
		pool[i].New = func() interface{} {
			b := make([]byte, size)
			return &b
		}
	}
}

func ceilLog2(size int) int {
	return bits.Len(uint(size) - 1)
}

func isPow2(size int) bool {
	return size > 0 && (size&(size-1)) == 0
}

// Get returns a zeroed slice with len(b) == size. The capacity may be larger
// when the slice comes from the pool. Sizes outside the pooled range are
// allocated directly.
func Get(size int) []byte {
	if size <= 0 {
		return []byte{}
	}
	class := ceilLog2(size)
	if class < MinSizeBits || class > MaxSizeBits {
		return make([]byte, size)
	}
	b := pool[class].Get().(*[]byte)
	return (*b)[:size]
}

// Put returns b's backing array to the pool. b MUST NOT be used after Put.
// Slices whose capacity is not a pooled size class are left to the GC.
func Put(b []byte) {
	size := cap(b)
	if !isPow2(size) || size < MinPooledSize || size > MaxPooledSize {
		return
	}
	b = b[:size]
	for i := range b {
		b[i] = 0
	}
	pool[ceilLog2(size)].Put(&b)
}
