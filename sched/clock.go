// Package sched provides the deferred-execution primitives used to pace
// stream emission: a Clock that can run a function after a delay, and a
// Manual clock that only advances when told to.
package sched

import (
	"time"
)

// Timer is a pending call scheduled by Clock.AfterFunc.
type Timer interface {
	// Stop prevents the call from running. It returns false if the call has
	// already run or been stopped.
	Stop() bool
}

type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine (or, for Manual, in the goroutine
	// advancing the clock) once d has elapsed. A d <= 0 runs f on the next
	// opportunity, never inline.
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// System returns the wall clock.
func System() Clock {
	return systemClock{}
}
