package streambuffer

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
)

func newTestSink(t *testing.T, opts ...SinkOption) *Sink {
	t.Helper()
	s, err := NewSink(opts...)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	return s
}

func TestSinkEmpty(t *testing.T) {
	s := newTestSink(t)
	if s.Size() != 0 {
		t.Errorf("size %d != 0", s.Size())
	}
	if s.MaxSize() != DefaultInitialSize {
		t.Errorf("max size %d != %d", s.MaxSize(), DefaultInitialSize)
	}
	if data, ok := s.Contents(0); ok || data != nil {
		t.Errorf("Contents on empty sink = %v, %v", data, ok)
	}
	if str, ok := s.ContentsString(nil, 0); ok || str != "" {
		t.Errorf("ContentsString on empty sink = %q, %v", str, ok)
	}
}

func TestSinkString(t *testing.T) {
	const text = "This is a String!"
	s := newTestSink(t)
	if n, err := s.WriteString(text); n != len(text) || err != nil {
		t.Fatalf("WriteString = %d, %v", n, err)
	}
	if s.Size() != len(text) {
		t.Errorf("size %d != %d", s.Size(), len(text))
	}
	str, ok := s.ContentsString(nil, 0)
	if !ok || str != text {
		t.Errorf("got %q, %v, want %q", str, ok, text)
	}
	if s.Size() != 0 {
		t.Errorf("size %d != 0 after drain", s.Size())
	}
	if _, ok := s.Contents(0); ok {
		t.Error("sink not empty after drain")
	}
}

func TestSinkPartialContents(t *testing.T) {
	const text = "This is a String!"
	s := newTestSink(t)
	s.WriteString(text)

	first, ok := s.ContentsString(nil, 8)
	if !ok || first != text[:8] {
		t.Errorf("first half %q, want %q", first, text[:8])
	}
	if s.Size() != len(text)-8 {
		t.Errorf("size %d != %d", s.Size(), len(text)-8)
	}
	rest, ok := s.ContentsString(nil, 0)
	if !ok || rest != text[8:] {
		t.Errorf("rest %q, want %q", rest, text[8:])
	}
}

func TestSinkContentsReassembles(t *testing.T) {
	s := newTestSink(t, WithInitialSize(100), WithIncrementAmount(37))
	want := make([]byte, 1000)
	rand.Read(want)
	for off := 0; off < len(want); {
		n := rand.Intn(50)
		if off+n > len(want) {
			n = len(want) - off
		}
		s.Write(want[off : off+n])
		off += n
	}

	var got []byte
	for {
		data, ok := s.Contents(rand.Intn(64))
		if !ok {
			break
		}
		got = append(got, data...)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("reassembled %d bytes != written %d", len(got), len(want))
	}
}

func TestSinkContentsClampsToSize(t *testing.T) {
	s := newTestSink(t)
	s.WriteString("abc")
	data, ok := s.Contents(100)
	if !ok || string(data) != "abc" {
		t.Errorf("got %q, %v", data, ok)
	}
}

func TestSinkLargeBinary(t *testing.T) {
	s := newTestSink(t)
	blob := make([]byte, DefaultInitialSize+1)
	rand.Read(blob)
	if _, err := s.Write(blob); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if want := DefaultInitialSize + DefaultIncrementAmount; s.MaxSize() != want {
		t.Errorf("max size %d != %d", s.MaxSize(), want)
	}
	data, ok := s.Contents(0)
	if !ok || !bytes.Equal(data, blob) {
		t.Error("contents != written blob")
	}
}

func TestSinkGrowth(t *testing.T) {
	tests := []struct {
		initial, increment int
		writes             []int
		want               int
	}{
		{1, 5, []int{2}, 6},
		{10, 5, []int{10}, 10},
		{10, 5, []int{11}, 15},
		{62, 321, []int{32, 32}, 383},
		{4, 4, []int{3, 3, 3}, 12},
	}
	for _, tt := range tests {
		s := newTestSink(t, WithInitialSize(tt.initial), WithIncrementAmount(tt.increment))
		total := 0
		for _, n := range tt.writes {
			s.Write(make([]byte, n))
			total += n
		}
		if s.MaxSize() != tt.want {
			t.Errorf("initial %d increment %d writes %v: max size %d != %d",
				tt.initial, tt.increment, tt.writes, s.MaxSize(), tt.want)
		}
		if s.Size() != total {
			t.Errorf("size %d != %d", s.Size(), total)
		}
	}
}

func TestSinkMultipleWritesConcatenate(t *testing.T) {
	s := newTestSink(t)
	s.WriteString("Hello, ")
	s.Write([]byte("World"))
	if err := s.WriteText("!", nil); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if str, _ := s.ContentsString(nil, 0); str != "Hello, World!" {
		t.Errorf("got %q", str)
	}
}

func TestSinkNeverSplitsCharacters(t *testing.T) {
	s := newTestSink(t)
	s.WriteString("€")

	str, ok := s.ContentsString(nil, 2)
	if !ok || str != "" {
		t.Errorf("partial character decoded as %q, %v", str, ok)
	}
	if s.Size() != 3 {
		t.Errorf("size %d != 3, partial character consumed", s.Size())
	}
	str, ok = s.ContentsString(nil, 3)
	if !ok || str != "€" {
		t.Errorf("got %q, %v, want %q", str, ok, "€")
	}
}

func TestSinkUnicodeFractions(t *testing.T) {
	const text = "½ + ¼ = ¾"
	s := newTestSink(t)
	s.WriteString(text)

	var parts []string
	for {
		// Every other window ends inside a two byte fraction.
		str, ok := s.ContentsString(nil, 3)
		if !ok {
			break
		}
		parts = append(parts, str)
	}
	want := []string{"½ ", "+ ", "¼ ", "= ", "¾"}
	if diff := cmp.Diff(want, parts); diff != "" {
		t.Errorf("decoded parts (-want +got):\n%s", diff)
	}
}

func TestSinkLatin1(t *testing.T) {
	enc, err := LookupEncoding("latin1")
	if err != nil {
		t.Fatalf("LookupEncoding: %v", err)
	}
	s := newTestSink(t)
	if err := s.WriteText("café", enc); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if s.Size() != 4 {
		t.Errorf("size %d != 4", s.Size())
	}
	if str, ok := s.ContentsString(enc, 0); !ok || str != "café" {
		t.Errorf("got %q, %v", str, ok)
	}
}

func TestSinkUTF16(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	s := newTestSink(t)
	if err := s.WriteText("hé", enc); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if s.Size() != 4 {
		t.Fatalf("size %d != 4", s.Size())
	}
	str, ok := s.ContentsString(enc, 3)
	if !ok || str != "h" {
		t.Errorf("got %q, %v, want %q", str, ok, "h")
	}
	if s.Size() != 2 {
		t.Errorf("size %d != 2", s.Size())
	}
	if str, _ := s.ContentsString(enc, 0); str != "é" {
		t.Errorf("got %q, want %q", str, "é")
	}
}

func TestLookupEncodingUnknown(t *testing.T) {
	if _, err := LookupEncoding("no-such-charset"); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestSinkLimit(t *testing.T) {
	s := newTestSink(t, WithLimit(10))
	if n, err := s.Write(make([]byte, 8)); n != 8 || err != nil {
		t.Fatalf("Write = %d, %v", n, err)
	}
	n, err := s.Write(make([]byte, 5))
	if n != 2 || err != ErrOverflow {
		t.Errorf("overflowing Write = %d, %v, want 2, ErrOverflow", n, err)
	}
	if s.Size() != 10 {
		t.Errorf("size %d != 10", s.Size())
	}

	// The limit applies to unconsumed bytes.
	s.Contents(4)
	if n, err := s.Write(make([]byte, 4)); n != 4 || err != nil {
		t.Errorf("Write after drain = %d, %v", n, err)
	}
}

func TestSinkClose(t *testing.T) {
	s := newTestSink(t)
	s.WriteString("kept")
	select {
	case <-s.Done():
		t.Fatal("done before Close")
	default:
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	<-s.Done()
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if n, err := s.WriteString("more"); n != 0 || !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %d, %v", n, err)
	}
	if str, ok := s.ContentsString(nil, 0); !ok || str != "kept" {
		t.Errorf("contents after Close %q, %v", str, ok)
	}
}

func TestNewSinkInvalidOptions(t *testing.T) {
	for _, opt := range []SinkOption{WithLimit(-1), WithInitialSize(-1), WithIncrementAmount(-1)} {
		if _, err := NewSink(opt); !errors.Is(err, ErrInvalidOption) {
			t.Errorf("err %v is not ErrInvalidOption", err)
		}
	}
}

func TestSinkConcurrentWriters(t *testing.T) {
	const writers = 8
	const perWriter = 1000

	s := newTestSink(t, WithInitialSize(64), WithIncrementAmount(64))
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		b := byte('a' + i)
		g.Go(func() error {
			for j := 0; j < perWriter; j++ {
				if _, err := s.Write([]byte{b}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	var drained int
	g.Go(func() error {
		for drained < writers*perWriter/2 {
			if data, ok := s.Contents(16); ok {
				drained += len(data)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		t.Fatalf("writers: %v", err)
	}

	rest, _ := s.Contents(0)
	if drained+len(rest) != writers*perWriter {
		t.Errorf("total %d != %d", drained+len(rest), writers*perWriter)
	}
}
