package web

import (
	"sync"
	"time"
)

// holdTimer runs one pending callback after a delay. Scheduling again or
// stopping invalidates the pending callback even when its timer has already
// fired and the callback is waiting to run.
type holdTimer struct {
	afterFunc func(time.Duration, func()) *time.Timer

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func newHoldTimer() *holdTimer {
	return &holdTimer{afterFunc: time.AfterFunc}
}

// schedule replaces any pending callback with fn, run after d. fn runs with
// the timer's lock held, so a concurrent stop waits for it to return.
func (h *holdTimer) schedule(d time.Duration, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelLocked()
	gen := h.gen
	h.timer = h.afterFunc(d, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if gen != h.gen {
			return
		}
		h.timer = nil
		fn()
	})
}

// stop drops the pending callback, if any.
func (h *holdTimer) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelLocked()
}

func (h *holdTimer) cancelLocked() {
	h.gen++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}
