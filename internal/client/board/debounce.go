package board

import (
	"sync"
	"time"
)

// debouncer delays a function until a quiet period passes with no further
// scheduling. At most one timer is ever alive: scheduling again cancels
// and replaces the pending one.
type debouncer struct {
	mu    sync.Mutex
	quiet time.Duration
	timer *time.Timer
}

func newDebouncer(quiet time.Duration) *debouncer {
	return &debouncer{quiet: quiet}
}

func (d *debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, fn)
}

func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
