package session

import (
	"sync"
	"time"
)

// Settle delays for the board's mutation traffic. Typing and keyboard
// nudges coalesce; drag and resize stops flush through their own immediate
// calls, so they carry no delay here.
const (
	ContentSettleDelay       = 1500 * time.Millisecond
	KeyboardNudgeSettleDelay = 250 * time.Millisecond
	ResizeSettleDelay        = 300 * time.Millisecond
)

// Debouncer coalesces a burst of triggers into one trailing call.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the settle delay, replacing any pending call.
// Only the last fn of a burst runs.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Cancel drops any pending call, for teardown or when an immediate action
// supersedes the debounced one.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
