package clock

import (
	"sync"
	"time"
)

// Clock supplies "now" to the scheduler core. The answer processor and the
// sweep must share one Clock so they agree on card phases under time
// acceleration.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns a Clock backed by the wall clock, in UTC.
func System() Clock { return systemClock{} }

// Machine is a Clock with a mutable offset: the time-machine facility. A
// positive offset pushes the whole scheduling core into the future, which
// ages waiting periods, overdue windows and frozen penalties uniformly.
type Machine struct {
	mu     sync.RWMutex
	base   Clock
	offset time.Duration
}

// NewMachine wraps base (System() when nil) with a zero offset.
func NewMachine(base Clock) *Machine {
	if base == nil {
		base = System()
	}
	return &Machine{base: base}
}

func (m *Machine) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.base.Now().Add(m.offset)
}

// Advance shifts the clock forward (or backward, with a negative d) and
// returns the new offset.
func (m *Machine) Advance(d time.Duration) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offset += d
	return m.offset
}

// Reset drops the offset back to real time.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offset = 0
}

// Offset returns the current shift from real time.
func (m *Machine) Offset() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.offset
}

// Fixed is a Clock pinned to one instant; test helper.
type Fixed struct {
	mu sync.RWMutex
	t  time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{t: t} }

func (f *Fixed) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.t
}

func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t
}

func (f *Fixed) Add(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}
