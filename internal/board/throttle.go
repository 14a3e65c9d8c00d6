package board

import (
	"sync"
	"time"
)

// updateThrottle coalesces a burst of update actions into one trailing
// write per window: each call replaces the pending action, and a timer
// flushes the latest one when the window closes. A burst therefore
// produces exactly one write carrying the final attributes, and the
// final state is always delivered even when updates stop mid-window.
type updateThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	flush    func(Action)
	timer    *time.Timer
	pending  *Action
}

func newUpdateThrottle(interval time.Duration, flush func(Action)) *updateThrottle {
	return &updateThrottle{
		interval: interval,
		flush:    flush,
	}
}

// Call stages the action as the latest pending write and arms the
// trailing timer if one is not already running.
func (throttle *updateThrottle) Call(action Action) {
	throttle.mu.Lock()
	throttle.pending = &action
	if throttle.timer == nil {
		throttle.timer = time.AfterFunc(throttle.interval, throttle.fire)
	}
	throttle.mu.Unlock()
}

func (throttle *updateThrottle) fire() {
	throttle.mu.Lock()
	pending := throttle.pending
	throttle.pending = nil
	throttle.timer = nil
	throttle.mu.Unlock()
	if pending != nil {
		throttle.flush(*pending)
	}
}

// Flush delivers any pending action immediately and disarms the timer.
func (throttle *updateThrottle) Flush() {
	throttle.mu.Lock()
	pending := throttle.pending
	throttle.pending = nil
	if throttle.timer != nil {
		throttle.timer.Stop()
		throttle.timer = nil
	}
	throttle.mu.Unlock()
	if pending != nil {
		throttle.flush(*pending)
	}
}

// Discard drops any pending action without delivering it.
func (throttle *updateThrottle) Discard() {
	throttle.mu.Lock()
	throttle.pending = nil
	if throttle.timer != nil {
		throttle.timer.Stop()
		throttle.timer = nil
	}
	throttle.mu.Unlock()
}
