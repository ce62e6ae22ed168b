package streambuffer

import (
	"time"

	"github.com/trickstertwo/xlog"

	"github.com/akmistry/go-streambuf/sched"
	"github.com/akmistry/go-streambuf/streamlog"
)

const (
	DefaultInitialSize     = 64 * 1024
	DefaultIncrementAmount = 64 * 1024
	DefaultChunkSize       = 64 * 1024
	DefaultFrequency       = 10 * time.Millisecond
	DefaultHighWaterMark   = 16 * 1024
)

type bufferOptions struct {
	initialSize     int
	incrementAmount int
	logger          *xlog.Logger
}

type sourceOptions struct {
	bufferOptions
	frequency     time.Duration
	chunkSize     int
	highWaterMark int
	rateLimit     int
	clock         sched.Clock
}

type sinkOptions struct {
	bufferOptions
	limit int
}

// SourceOption configures NewSource.
type SourceOption interface {
	applySource(*sourceOptions) error
}

// SinkOption configures NewSink.
type SinkOption interface {
	applySink(*sinkOptions) error
}

// BufferOption configures the buffer shared by both stream types, and can be
// passed to either constructor.
type BufferOption func(*bufferOptions) error

func (f BufferOption) applySource(o *sourceOptions) error { return f(&o.bufferOptions) }
func (f BufferOption) applySink(o *sinkOptions) error     { return f(&o.bufferOptions) }

type sourceOptionFunc func(*sourceOptions) error

func (f sourceOptionFunc) applySource(o *sourceOptions) error { return f(o) }

type sinkOptionFunc func(*sinkOptions) error

func (f sinkOptionFunc) applySink(o *sinkOptions) error { return f(o) }

func nonNegative(option string, v int) error {
	if v < 0 {
		return &OptionError{Option: option, Value: v}
	}
	return nil
}

// WithInitialSize sets the initial buffer capacity. Zero selects
// DefaultInitialSize.
func WithInitialSize(n int) BufferOption {
	return func(o *bufferOptions) error {
		if err := nonNegative("initialSize", n); err != nil {
			return err
		}
		if n > 0 {
			o.initialSize = n
		}
		return nil
	}
}

// WithIncrementAmount sets the growth step. Zero selects
// DefaultIncrementAmount.
func WithIncrementAmount(n int) BufferOption {
	return func(o *bufferOptions) error {
		if err := nonNegative("incrementAmount", n); err != nil {
			return err
		}
		if n > 0 {
			o.incrementAmount = n
		}
		return nil
	}
}

// WithLogger sets the logger. The default drops everything.
func WithLogger(l *xlog.Logger) BufferOption {
	return func(o *bufferOptions) error {
		if l != nil {
			o.logger = l
		}
		return nil
	}
}

// WithFrequency sets the delay between emission ticks. Zero emits on the next
// turn of the clock.
func WithFrequency(d time.Duration) SourceOption {
	return sourceOptionFunc(func(o *sourceOptions) error {
		if d < 0 {
			return &OptionError{Option: "frequency", Value: d}
		}
		o.frequency = d
		return nil
	})
}

// WithChunkSize sets the maximum bytes emitted per tick. Zero selects
// DefaultChunkSize.
func WithChunkSize(n int) SourceOption {
	return sourceOptionFunc(func(o *sourceOptions) error {
		if err := nonNegative("chunkSize", n); err != nil {
			return err
		}
		if n > 0 {
			o.chunkSize = n
		}
		return nil
	})
}

// WithHighWaterMark sets how many emitted but unread bytes a Source queues
// before it stops scheduling ticks. Zero selects DefaultHighWaterMark.
func WithHighWaterMark(n int) SourceOption {
	return sourceOptionFunc(func(o *sourceOptions) error {
		if err := nonNegative("highWaterMark", n); err != nil {
			return err
		}
		if n > 0 {
			o.highWaterMark = n
		}
		return nil
	})
}

// WithRateLimit caps emission at bytesPerSecond. Zero is unlimited.
func WithRateLimit(bytesPerSecond int) SourceOption {
	return sourceOptionFunc(func(o *sourceOptions) error {
		if err := nonNegative("rateLimit", bytesPerSecond); err != nil {
			return err
		}
		o.rateLimit = bytesPerSecond
		return nil
	})
}

// WithClock sets the clock used to schedule ticks. The default is
// sched.System().
func WithClock(c sched.Clock) SourceOption {
	return sourceOptionFunc(func(o *sourceOptions) error {
		if c != nil {
			o.clock = c
		}
		return nil
	})
}

// WithLimit caps the number of bytes a Sink holds. Zero is unbounded.
func WithLimit(n int) SinkOption {
	return sinkOptionFunc(func(o *sinkOptions) error {
		if err := nonNegative("limit", n); err != nil {
			return err
		}
		o.limit = n
		return nil
	})
}

func defaultBufferOptions() bufferOptions {
	return bufferOptions{
		initialSize:     DefaultInitialSize,
		incrementAmount: DefaultIncrementAmount,
		logger:          streamlog.Discard(),
	}
}
