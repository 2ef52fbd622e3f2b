package realtime

import (
	"sync"
	"time"
)

// throttle coalesces bursts of triggers into at most one fn call per
// interval: immediate when the interval has already elapsed, otherwise a
// single trailing call at the window edge. Callers stash the latest
// payload themselves, so the trailing call always observes the newest
// state and earlier pending sends are superseded rather than queued.
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func()
	last     time.Time
	timer    *time.Timer
	stopped  bool
}

func newThrottle(interval time.Duration, fn func()) *throttle {
	return &throttle{interval: interval, fn: fn}
}

func (t *throttle) trigger() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	now := time.Now()
	if now.Sub(t.last) >= t.interval {
		t.last = now
		t.mu.Unlock()
		t.fn()
		return
	}
	if t.timer == nil {
		wait := t.interval - now.Sub(t.last)
		t.timer = time.AfterFunc(wait, t.fire)
	}
	t.mu.Unlock()
}

func (t *throttle) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.last = time.Now()
	t.mu.Unlock()
	t.fn()
}

func (t *throttle) stop() {
	t.mu.Lock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}
