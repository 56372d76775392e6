// Package clock abstracts timers so console timing can be driven deterministically in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock schedules callbacks against a time source.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine (or the advancing goroutine for Mock) after d.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the timer already fired or was stopped.
	Stop() bool
}

// Real uses the system clock
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Every calls f once per interval until the returned Timer is stopped.
// A tick that is already in flight when Stop returns may still run f,
// so callers must guard f against stale state.
func Every(c Clock, interval time.Duration, f func()) Timer {
	t := &repeating{clock: c, interval: interval, f: f}
	t.mu.Lock()
	t.next = c.AfterFunc(interval, t.fire)
	t.mu.Unlock()
	return t
}

type repeating struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	f        func()
	next     Timer
	stopped  bool
}

func (t *repeating) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.next = t.clock.AfterFunc(t.interval, t.fire)
	t.mu.Unlock()

	t.f()
}

func (t *repeating) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.next.Stop()
	return true
}

// Mock is a manually advanced clock. Callbacks run synchronously inside Advance.
type Mock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*mockTimer
}

type mockTimer struct {
	mock *Mock
	at   time.Time
	seq  int
	f    func()
	done bool
}

// NewMock creates a mock clock starting at the given time.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &mockTimer{mock: m, at: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (t *mockTimer) Stop() bool {
	m := t.mock
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	m.remove(t)
	return true
}

// Advance moves the clock forward by d, firing every timer that falls due in order.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.earliest()
		if next == nil || next.at.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		if next.at.After(m.now) {
			m.now = next.at
		}
		next.done = true
		m.remove(next)
		m.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of timers waiting to fire.
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Mock) earliest() *mockTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at.Equal(m.timers[j].at) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at.Before(m.timers[j].at)
	})
	return m.timers[0]
}

func (m *Mock) remove(t *mockTimer) {
	for i, candidate := range m.timers {
		if candidate == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}
