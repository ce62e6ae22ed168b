package sched

import (
	"sync"
	"time"
)

// Manual is a Clock whose time only moves on Advance. Due functions run
// synchronously in the goroutine calling Advance, in deadline order, with ties
// broken by scheduling order. Functions scheduled while advancing run in the
// same Advance call if they fall due before its target time.
type Manual struct {
	now    time.Time
	seq    uint64
	timers []*manualTimer
	lock   sync.Mutex
}

type manualTimer struct {
	m    *Manual
	when time.Time
	seq  uint64
	f    func()
}

func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

func (m *Manual) Now() time.Time {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.lock.Lock()
	defer m.lock.Unlock()
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{m: m, when: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.lock.Lock()
	defer t.m.lock.Unlock()
	return t.m.remove(t)
}

func (m *Manual) remove(t *manualTimer) bool {
	for i, mt := range m.timers {
		if mt == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}

// popDue removes and returns the earliest timer due at or before target.
func (m *Manual) popDue(target time.Time) *manualTimer {
	var next *manualTimer
	for _, t := range m.timers {
		if t.when.After(target) {
			continue
		}
		if next == nil || t.when.Before(next.when) || (t.when.Equal(next.when) && t.seq < next.seq) {
			next = t
		}
	}
	if next != nil {
		m.remove(next)
	}
	return next
}

// Advance moves the clock forward by d, running every function that falls due.
// Advance(0) runs functions that are already due.
func (m *Manual) Advance(d time.Duration) {
	m.lock.Lock()
	target := m.now.Add(d)
	for {
		t := m.popDue(target)
		if t == nil {
			break
		}
		if t.when.After(m.now) {
			m.now = t.when
		}
		m.lock.Unlock()
		t.f()
		m.lock.Lock()
	}
	m.now = target
	m.lock.Unlock()
}

// Pending returns the number of scheduled functions that have not run.
func (m *Manual) Pending() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.timers)
}
