package streambuffer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/trickstertwo/xlog"
	"golang.org/x/time/rate"

	"github.com/akmistry/go-streambuf/growbuf"
	"github.com/akmistry/go-streambuf/sched"
)

// State is the lifecycle state of a Source.
type State int

const (
	// Idle accepts data and has no emission scheduled.
	Idle State = iota
	// Scheduled accepts data and has an emission tick pending.
	Scheduled
	// Draining has been stopped or failed and is emitting what remains.
	Draining
	// Ended has signalled end of stream.
	Ended
	// Errored has signalled a failure, or was closed by the consumer.
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Draining:
		return "draining"
	case Ended:
		return "ended"
	case Errored:
		return "errored"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Source is a readable stream over an in-memory buffer. Data handed to Put is
// emitted to the reader in chunks of at most the configured chunk size, one
// chunk per tick of the configured frequency. Emission pauses while the reader
// has a high-water mark's worth of unread chunks, or has called Pause.
//
// Source is safe for use by one producer and one consumer goroutine.
type Source struct {
	clock         sched.Clock
	log           *xlog.Logger
	limiter       *rate.Limiter
	frequency     time.Duration
	chunkSize     int
	highWaterMark int

	buf      *growbuf.Buffer
	stopped  bool
	failing  bool
	failErr  error
	paused   bool
	timer    sched.Timer
	timerGen uint64

	// Emitted chunks waiting for the reader.
	queue       [][]byte
	queuedBytes int
	eof         bool
	err         error
	emitted     int64

	// Closed and replaced whenever the reader's view changes.
	notify chan struct{}
	lock   sync.Mutex
}

var (
	_ io.Reader   = (*Source)(nil)
	_ io.WriterTo = (*Source)(nil)
	_ io.Closer   = (*Source)(nil)
)

// NewSource returns a Source configured by opts. It fails with an
// *OptionError if any option value is negative.
func NewSource(opts ...SourceOption) (*Source, error) {
	o := sourceOptions{
		bufferOptions: defaultBufferOptions(),
		frequency:     DefaultFrequency,
		chunkSize:     DefaultChunkSize,
		highWaterMark: DefaultHighWaterMark,
		clock:         sched.System(),
	}
	for _, opt := range opts {
		if err := opt.applySource(&o); err != nil {
			return nil, err
		}
	}

	s := &Source{
		clock:         o.clock,
		log:           o.logger.With(xlog.FStr("stream", "source")),
		frequency:     o.frequency,
		chunkSize:     o.chunkSize,
		highWaterMark: o.highWaterMark,
		buf:           growbuf.New(o.initialSize, o.incrementAmount),
		notify:        make(chan struct{}),
	}
	if o.rateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(o.rateLimit), o.chunkSize)
	}
	return s, nil
}

func (s *Source) terminated() bool {
	return s.stopped || s.failing || s.err != nil
}

// Put appends in to the buffer and schedules an emission if none is pending.
// It fails with ErrAlreadyTerminated after Stop, Fail or Close.
func (s *Source) Put(in Input) error {
	b, err := in.encoded()
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.terminated() {
		s.log.Warn().Int("bytes", len(b)).Msg("put on terminated source")
		return fmt.Errorf("streambuffer: put: %w", ErrAlreadyTerminated)
	}
	s.buf.Append(b)
	s.scheduleLocked(s.frequency)
	return nil
}

func (s *Source) PutBytes(b []byte) error {
	return s.Put(Bytes(b))
}

func (s *Source) PutString(str string) error {
	return s.Put(Text(str, nil))
}

// Stop marks the end of input. Buffered data is still emitted; once it has
// all been emitted the reader sees io.EOF. It fails with ErrAlreadyTerminated
// if the source is already terminated.
func (s *Source) Stop() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.terminated() {
		return fmt.Errorf("streambuffer: stop: %w", ErrAlreadyTerminated)
	}
	s.stopped = true
	s.log.Debug().Int("buffered", s.buf.Len()).Msg("stopped")
	if s.buf.Len() == 0 {
		s.endLocked()
	}
	return nil
}

// Fail marks the source as failed. The reader receives err, or
// ErrStreamFailed if err is nil, at the next emission tick, after any chunks
// already emitted. Data not yet emitted is discarded. It fails with
// ErrAlreadyTerminated if the source is already terminated.
func (s *Source) Fail(err error) error {
	if err == nil {
		err = ErrStreamFailed
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.terminated() {
		return fmt.Errorf("streambuffer: fail: %w", ErrAlreadyTerminated)
	}
	s.failing = true
	s.failErr = err
	s.log.Debug().Err(err).Msg("failing")
	s.scheduleLocked(s.frequency)
	return nil
}

// Close abandons the stream from the consumer side. Pending emission is
// cancelled, buffered data dropped, and further reads return ErrClosed.
func (s *Source) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.err != nil {
		return nil
	}
	s.cancelLocked()
	s.failErr = ErrClosed
	s.err = ErrClosed
	s.queue = nil
	s.queuedBytes = 0
	s.buf.Release()
	s.broadcastLocked()
	s.log.Debug().Int64("emitted", s.emitted).Msg("closed")
	return nil
}

// Size returns the number of bytes put but not yet emitted.
func (s *Source) Size() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.buf.Len()
}

// MaxSize returns the buffer capacity.
func (s *Source) MaxSize() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.buf.Cap()
}

// Buffered returns the number of bytes emitted but not yet read.
func (s *Source) Buffered() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.queuedBytes
}

func (s *Source) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	switch {
	case s.err != nil:
		return Errored
	case s.eof:
		return Ended
	case s.stopped || s.failing:
		return Draining
	case s.timer != nil:
		return Scheduled
	}
	return Idle
}

// Pause stops emission after the current tick until Resume is called.
func (s *Source) Pause() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.paused = true
}

// Resume restarts emission after Pause.
func (s *Source) Resume() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.paused = false
	s.requestLocked()
}

func (s *Source) Paused() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.paused
}

func (s *Source) scheduleLocked(d time.Duration) {
	if s.timer != nil || s.eof || s.err != nil {
		return
	}
	s.timerGen++
	gen := s.timerGen
	s.timer = s.clock.AfterFunc(d, func() {
		s.tick(gen)
	})
}

func (s *Source) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// Invalidates a tick whose timer fired but has not taken the lock yet.
	s.timerGen++
}

// requestLocked is the reader's demand signal.
func (s *Source) requestLocked() {
	if !s.paused && s.queuedBytes < s.highWaterMark {
		s.scheduleLocked(s.frequency)
	}
}

func (s *Source) broadcastLocked() {
	close(s.notify)
	s.notify = make(chan struct{})
}

// pushLocked queues a chunk for the reader and reports whether the reader
// wants more.
func (s *Source) pushLocked(chunk []byte) bool {
	s.queue = append(s.queue, chunk)
	s.queuedBytes += len(chunk)
	s.emitted += int64(len(chunk))
	s.broadcastLocked()
	return !s.paused && s.queuedBytes < s.highWaterMark
}

func (s *Source) endLocked() {
	s.cancelLocked()
	s.eof = true
	s.broadcastLocked()
	s.log.Debug().Int64("emitted", s.emitted).Msg("end of stream")
}

func (s *Source) failLocked() {
	s.cancelLocked()
	s.err = s.failErr
	s.buf.Release()
	s.broadcastLocked()
	s.log.Debug().Err(s.err).Int64("emitted", s.emitted).Msg("stream error")
}

func (s *Source) tick(gen uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if gen != s.timerGen || s.eof || s.err != nil {
		return
	}
	s.timer = nil

	if s.failing {
		s.failLocked()
		return
	}

	sendMore := false
	if amount := min(s.chunkSize, s.buf.Len()); amount > 0 {
		if s.limiter != nil {
			now := s.clock.Now()
			r := s.limiter.ReserveN(now, amount)
			if delay := r.DelayFrom(now); delay > 0 {
				r.CancelAt(now)
				s.scheduleLocked(delay)
				return
			}
		}
		sendMore = s.pushLocked(s.buf.Next(amount))
	}

	if s.buf.Len() == 0 && s.stopped {
		s.endLocked()
		return
	}
	if sendMore {
		s.scheduleLocked(s.frequency)
	}
}

// wait blocks until the reader's view changes or ctx is done. Called with the
// lock held; returns with it held.
func (s *Source) waitLocked(ctx context.Context) error {
	ch := s.notify
	s.lock.Unlock()
	defer s.lock.Lock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// nextLocked returns up to limit bytes of the oldest queued chunk, blocking
// until one is available. limit <= 0 returns the whole chunk.
func (s *Source) nextLocked(ctx context.Context, limit int) ([]byte, error) {
	for len(s.queue) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		if s.eof {
			return nil, io.EOF
		}
		s.requestLocked()
		if err := s.waitLocked(ctx); err != nil {
			return nil, err
		}
	}

	chunk := s.queue[0]
	if limit > 0 && limit < len(chunk) {
		s.queue[0] = chunk[limit:]
		chunk = chunk[:limit]
	} else {
		s.queue[0] = nil
		s.queue = s.queue[1:]
	}
	s.queuedBytes -= len(chunk)
	s.requestLocked()
	return chunk, nil
}

// Next returns the next emitted chunk, or the rest of a chunk partially
// consumed by Read. It returns io.EOF after Stop once everything has been
// read, and the failure error after Fail.
func (s *Source) Next(ctx context.Context) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.nextLocked(ctx, 0)
}

func (s *Source) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	chunk, err := s.nextLocked(context.Background(), len(p))
	return copy(p, chunk), err
}

// WriteTo writes emitted chunks to w until end of stream.
func (s *Source) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for {
		chunk, err := s.Next(context.Background())
		if err == io.EOF {
			return written, nil
		} else if err != nil {
			return written, err
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
}
