package collab

import (
	"sync"
	"time"
)

// IdleTimer fires a callback once after a period of inactivity. Start always
// cancels the previous countdown first, so overlapping starts never produce
// duplicate fires; Stop cancels without firing. A generation counter guards
// against a timer that was already in flight when it was cancelled.
type IdleTimer struct {
	mu      sync.Mutex
	timeout time.Duration
	timer   *time.Timer
	gen     uint64
}

// NewIdleTimer creates a stopped timer with the given timeout.
func NewIdleTimer(timeout time.Duration) *IdleTimer {
	return &IdleTimer{timeout: timeout}
}

// Start arms the countdown, cancelling any prior one. fire runs on its own
// goroutine exactly once unless Stop or a later Start intervenes.
func (t *IdleTimer) Start(fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	gen := t.gen
	t.timer = time.AfterFunc(t.timeout, func() {
		t.mu.Lock()
		current := t.gen == gen
		if current {
			t.timer = nil
		}
		t.mu.Unlock()
		if current {
			fire()
		}
	})
}

// Stop cancels the countdown without firing. Safe to call when not running.
func (t *IdleTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

func (t *IdleTimer) cancelLocked() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
