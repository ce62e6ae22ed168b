package streambuffer

import (
	"fmt"
	"io"
	"sync"

	"github.com/trickstertwo/xlog"
	"golang.org/x/text/encoding"

	"github.com/akmistry/go-streambuf/growbuf"
)

// Sink is a writable stream that accumulates everything written to it in a
// growable in-memory buffer. The owner drains it with Contents and
// ContentsString.
type Sink struct {
	log   *xlog.Logger
	limit int

	buf    *growbuf.Buffer
	closed bool
	done   chan struct{}
	lock   sync.Mutex
}

var (
	_ io.Writer       = (*Sink)(nil)
	_ io.StringWriter = (*Sink)(nil)
	_ io.Closer       = (*Sink)(nil)
)

// NewSink returns a Sink configured by opts. It fails with an *OptionError
// if any option value is negative.
func NewSink(opts ...SinkOption) (*Sink, error) {
	o := sinkOptions{bufferOptions: defaultBufferOptions()}
	for _, opt := range opts {
		if err := opt.applySink(&o); err != nil {
			return nil, err
		}
	}
	return &Sink{
		log:   o.logger.With(xlog.FStr("stream", "sink")),
		limit: o.limit,
		buf:   growbuf.New(o.initialSize, o.incrementAmount),
		done:  make(chan struct{}),
	}, nil
}

func (s *Sink) writeLocked(p []byte) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("streambuffer: write after end: %w", ErrClosed)
	}
	n := len(p)
	if s.limit > 0 && n > s.limit-s.buf.Len() {
		n = s.limit - s.buf.Len()
	}
	s.buf.Append(p[:n])
	if n < len(p) {
		s.log.Warn().
			Int("limit", s.limit).
			Int("dropped", len(p)-n).
			Msg("write overflows the limit")
		return n, ErrOverflow
	}
	return n, nil
}

// Write appends p. With a limit configured, it stores the bytes that fit and
// returns ErrOverflow for the rest.
func (s *Sink) Write(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.writeLocked(p)
}

func (s *Sink) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}

// WriteText encodes str with enc (nil is UTF-8) and appends the result.
func (s *Sink) WriteText(str string, enc encoding.Encoding) error {
	b, err := encodeText(str, enc)
	if err != nil {
		return err
	}
	_, err = s.Write(b)
	return err
}

// Close signals the end of input. Buffered contents remain readable; further
// writes fail with ErrClosed.
func (s *Sink) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	s.log.Debug().Int("size", s.buf.Len()).Msg("end of input")
	return nil
}

// Done is closed when Close is called.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

func (s *Sink) Size() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.buf.Len()
}

func (s *Sink) MaxSize() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.buf.Cap()
}

// Contents removes and returns the oldest min(n, Size()) bytes; n <= 0 takes
// everything. ok is false, and data nil, when the sink is empty.
func (s *Sink) Contents(n int) (data []byte, ok bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.buf.Len() == 0 {
		return nil, false
	}
	if n <= 0 {
		n = s.buf.Len()
	}
	return s.buf.Next(n), true
}

// ContentsString decodes at most n buffered bytes (all of them if n <= 0)
// with enc, nil meaning UTF-8, and removes exactly the bytes it decoded. A
// character is never split: if n ends inside a multi-byte sequence, that
// sequence stays buffered. ok is false when the sink is empty.
func (s *Sink) ContentsString(enc encoding.Encoding, n int) (str string, ok bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.buf.Len() == 0 {
		return "", false
	}
	if n <= 0 || n > s.buf.Len() {
		n = s.buf.Len()
	}
	str, used := decodePrefix(s.buf.Bytes()[:n], enc)
	s.buf.Consume(used)
	return str, true
}
