// Package schedule runs keyed one-shot timers for deferred ticket work such
// as automatic expiry. Timers are in-memory; the durable record of pending
// work lives in the guild settings, and the startup reconciliation re-arms
// timers from it.
package schedule

import (
	"sync"
	"time"
)

// Scheduler runs at most one pending function per key.
type Scheduler interface {
	// Schedule arms fn to run at the given time, replacing any pending
	// timer for the key. A time in the past fires immediately.
	Schedule(key string, at time.Time, fn func())

	// Cancel disarms the pending timer for key and reports whether one
	// was pending.
	Cancel(key string) bool

	// Active reports whether a timer is pending for key.
	Active(key string) bool

	// Stop disarms every pending timer.
	Stop()
}

type timers struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewScheduler creates an in-memory Scheduler.
func NewScheduler() Scheduler {
	return &timers{
		pending: make(map[string]*time.Timer),
	}
}

func (t *timers) Schedule(key string, at time.Time, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.pending[key]; ok {
		old.Stop()
	}

	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	t.pending[key] = time.AfterFunc(d, func() {
		t.mu.Lock()
		delete(t.pending, key)
		t.mu.Unlock()
		fn()
	})
}

func (t *timers) Cancel(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	timer, ok := t.pending[key]
	if !ok {
		return false
	}
	delete(t.pending, key)
	return timer.Stop()
}

func (t *timers) Active(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.pending[key]
	return ok
}

func (t *timers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, timer := range t.pending {
		timer.Stop()
		delete(t.pending, key)
	}
}
