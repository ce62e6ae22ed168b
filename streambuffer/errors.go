package streambuffer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOption is matched by every *OptionError.
	ErrInvalidOption = errors.New("streambuffer: invalid option")

	// ErrAlreadyTerminated is returned by Put, Stop and Fail once a Source has
	// been stopped, failed or closed.
	ErrAlreadyTerminated = errors.New("streambuffer: stream already terminated")

	// ErrOverflow is returned by a Sink write that does not fit under the
	// configured limit. The bytes that fit are kept.
	ErrOverflow = errors.New("streambuffer: stream overflows the limit")

	// ErrStreamFailed is delivered to a Source's reader after Fail(nil).
	ErrStreamFailed = errors.New("streambuffer: stream failed")

	// ErrClosed is returned when reading from a closed Source or writing to a
	// closed Sink.
	ErrClosed = errors.New("streambuffer: closed")
)

// OptionError reports a constructor or configuration option whose value is
// not a non-negative whole number.
type OptionError struct {
	Option string
	Value  interface{}
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("streambuffer: option '%s' should be a non-negative integer, got %v", e.Option, e.Value)
}

func (e *OptionError) Unwrap() error {
	return ErrInvalidOption
}
