package collab

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestIdleTimerFiresOnce(t *testing.T) {
	timer := NewIdleTimer(20 * time.Millisecond)
	var fires atomic.Int32
	timer.Start(func() { fires.Add(1) })

	time.Sleep(100 * time.Millisecond)
	if got := fires.Load(); got != 1 {
		t.Fatalf("fires = %d, want 1", got)
	}
}

func TestIdleTimerRestartCancelsPrior(t *testing.T) {
	timer := NewIdleTimer(30 * time.Millisecond)
	var first, second atomic.Int32

	timer.Start(func() { first.Add(1) })
	time.Sleep(10 * time.Millisecond)
	timer.Start(func() { second.Add(1) })

	time.Sleep(100 * time.Millisecond)
	if first.Load() != 0 {
		t.Errorf("cancelled countdown fired %d times", first.Load())
	}
	if second.Load() != 1 {
		t.Errorf("second countdown fired %d times, want 1", second.Load())
	}
}

func TestIdleTimerStop(t *testing.T) {
	timer := NewIdleTimer(20 * time.Millisecond)
	var fires atomic.Int32

	timer.Start(func() { fires.Add(1) })
	timer.Stop()

	time.Sleep(80 * time.Millisecond)
	if fires.Load() != 0 {
		t.Fatalf("stopped timer fired %d times", fires.Load())
	}

	// Stop when not running must not panic.
	timer.Stop()
}
