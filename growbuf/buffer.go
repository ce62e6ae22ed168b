// Package growbuf implements a contiguous byte buffer that grows by a fixed
// increment and is consumed from the front.
package growbuf

import (
	"errors"

	"github.com/akmistry/go-streambuf/bufferpool"
)

var (
	ErrTooLarge = errors.New("growbuf: buffer too large")
)

const maxInt = int(^uint(0) >> 1)

// Buffer is an unsynchronized growable buffer. Bytes [0, Len()) hold data and
// bytes [Len(), Cap()) are free. The capacity only ever grows, in multiples of
// the increment amount. Any concurrent use MUST be externally synchronized.
type Buffer struct {
	buf       []byte
	length    int
	increment int
}

// New returns a buffer with capacity initialSize. incrementAmount must be
// positive.
func New(initialSize, incrementAmount int) *Buffer {
	if initialSize < 0 {
		panic("growbuf: negative initial size")
	}
	if incrementAmount < 1 {
		panic("growbuf: increment amount must be positive")
	}
	return &Buffer{
		buf:       bufferpool.Get(initialSize),
		increment: incrementAmount,
	}
}

func (b *Buffer) Len() int {
	return b.length
}

func (b *Buffer) Cap() int {
	return len(b.buf)
}

func (b *Buffer) Free() int {
	return len(b.buf) - b.length
}

// Grow ensures at least n bytes are free past Len(). The new capacity is the
// old capacity plus the smallest multiple of the increment amount that fits.
// Grow panics with ErrTooLarge if the capacity would overflow an int.
func (b *Buffer) Grow(n int) {
	free := b.Free()
	if n <= free {
		return
	}
	missing := n - free
	factor := missing / b.increment
	if missing%b.increment != 0 {
		factor++
	}
	if factor > (maxInt-len(b.buf))/b.increment {
		panic(ErrTooLarge)
	}

	newBuf := bufferpool.Get(len(b.buf) + b.increment*factor)
	copy(newBuf, b.buf[:b.length])
	bufferpool.Put(b.buf)
	b.buf = newBuf
}

func (b *Buffer) Append(p []byte) {
	b.Grow(len(p))
	n := copy(b.buf[b.length:], p)
	if n != len(p) {
		panic("copied != len(p)")
	}
	b.length += n
}

// Write appends p. It never returns an error.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Append(p)
	return len(p), nil
}

func (b *Buffer) WriteString(s string) (int, error) {
	b.Grow(len(s))
	n := copy(b.buf[b.length:], s)
	b.length += n
	return n, nil
}

// Bytes returns the buffered data. The slice aliases the buffer and is only
// valid until the next mutating call.
func (b *Buffer) Bytes() []byte {
	return b.buf[:b.length]
}

// Next removes and returns a copy of the first min(n, Len()) bytes. The
// remaining data is moved to the front of the buffer.
func (b *Buffer) Next(n int) []byte {
	if n > b.length {
		n = b.length
	}
	if n <= 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, b.buf[:n])
	b.Consume(n)
	return out
}

// Consume discards the first n bytes, shifting the rest to index 0.
func (b *Buffer) Consume(n int) {
	if n > b.length {
		panic("consume count > length")
	}
	copy(b.buf, b.buf[n:b.length])
	b.length -= n
}

// Reset empties the buffer but keeps its capacity.
func (b *Buffer) Reset() {
	b.length = 0
}

// Release hands the backing storage back to the pool. The buffer is empty with
// zero capacity afterwards, and still usable.
func (b *Buffer) Release() {
	bufferpool.Put(b.buf)
	b.buf = nil
	b.length = 0
}
