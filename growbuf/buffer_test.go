package growbuf

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestGrowth(t *testing.T) {
	tests := []struct {
		name      string
		initial   int
		increment int
		writes    []int
		wantCap   int
	}{
		{"SmallIncrement", 1, 5, []int{2}, 6},
		{"ExactFit", 10, 5, []int{10}, 10},
		{"OneOver", 10, 5, []int{11}, 15},
		{"MultipleSteps", 10, 5, []int{23}, 25},
		{"Accumulated", 62, 321, []int{32, 32}, 383},
		{"ZeroInitial", 0, 4, []int{1, 1, 1, 1, 1}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.initial, tt.increment)
			if b.Cap() != tt.initial {
				t.Errorf("initial cap %d != %d", b.Cap(), tt.initial)
			}
			total := 0
			for _, n := range tt.writes {
				b.Append(make([]byte, n))
				total += n
			}
			if b.Len() != total {
				t.Errorf("len %d != %d", b.Len(), total)
			}
			if b.Cap() != tt.wantCap {
				t.Errorf("cap %d != %d", b.Cap(), tt.wantCap)
			}
		})
	}
}

func TestCapacityFormula(t *testing.T) {
	const initial = 17
	const increment = 13

	b := New(initial, increment)
	peak := 0
	for i := 0; i < 1000; i++ {
		if rand.Intn(3) == 0 {
			b.Next(rand.Intn(b.Len() + 1))
		} else {
			b.Append(make([]byte, rand.Intn(50)))
		}
		if b.Len() > peak {
			peak = b.Len()
		}

		k := 0
		for initial+increment*k < peak {
			k++
		}
		if want := initial + increment*k; b.Cap() != want {
			t.Fatalf("i: %d, cap %d != %d (peak %d)", i, b.Cap(), want, peak)
		}
	}
}

func TestNextClamps(t *testing.T) {
	b := New(4, 4)
	b.Append([]byte("hello"))

	got := b.Next(3)
	if string(got) != "hel" {
		t.Errorf("Next(3) = %q, want %q", got, "hel")
	}
	if b.Len() != 2 {
		t.Errorf("len %d != 2", b.Len())
	}
	got = b.Next(100)
	if string(got) != "lo" {
		t.Errorf("Next(100) = %q, want %q", got, "lo")
	}
	if got := b.Next(1); got != nil {
		t.Errorf("Next on empty buffer = %q, want nil", got)
	}
	if b.Cap() != 8 {
		t.Errorf("cap %d != 8 after consume", b.Cap())
	}
}

func TestNextReturnsCopy(t *testing.T) {
	b := New(8, 8)
	b.Append([]byte("abcdef"))
	got := b.Next(3)
	b.Append([]byte("xyz"))
	if string(got) != "abc" {
		t.Errorf("consumed prefix changed to %q", got)
	}
	if string(b.Bytes()) != "defxyz" {
		t.Errorf("remaining %q != %q", b.Bytes(), "defxyz")
	}
}

func TestFIFO(t *testing.T) {
	const testSize = 1234567
	testBuf := make([]byte, testSize)
	rand.Read(testBuf)

	b := New(100, 77)
	out := new(bytes.Buffer)
	written := 0
	for written < testSize {
		n := rand.Intn(300)
		if written+n > testSize {
			n = testSize - written
		}
		b.Append(testBuf[written : written+n])
		written += n
		out.Write(b.Next(rand.Intn(300)))
	}
	out.Write(b.Next(b.Len()))

	if !bytes.Equal(testBuf, out.Bytes()) {
		t.Error("read data != written")
	}
}

func TestWriteString(t *testing.T) {
	b := New(2, 2)
	n, err := b.WriteString("½ + ¼")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if n != len("½ + ¼") {
		t.Errorf("written %d != %d", n, len("½ + ¼"))
	}
	if string(b.Bytes()) != "½ + ¼" {
		t.Errorf("contents %q", b.Bytes())
	}
}

func TestReleaseAndReuse(t *testing.T) {
	b := New(64, 64)
	b.Append([]byte("data"))
	b.Release()
	if b.Len() != 0 || b.Cap() != 0 {
		t.Errorf("after release len %d cap %d", b.Len(), b.Cap())
	}
	b.Append([]byte("more"))
	if string(b.Bytes()) != "more" {
		t.Errorf("contents %q != %q", b.Bytes(), "more")
	}
	if b.Cap() != 64 {
		t.Errorf("cap %d != 64", b.Cap())
	}
}

func TestGrowTooLarge(t *testing.T) {
	defer func() {
		if r := recover(); r != ErrTooLarge {
			t.Errorf("recover() = %v, want ErrTooLarge", r)
		}
	}()
	b := New(1, 1<<20)
	b.Grow(maxInt)
}
