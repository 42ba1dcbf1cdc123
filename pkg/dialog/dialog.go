// Package dialog implements the confirmation dialogs that drive multi-step
// ticket flows. A caller awaits one of several expected inbound events with
// a deadline; the first event that matches resolves the dialog and the other
// expectations are implicitly cancelled, so no two outcomes from the same
// prompt can both execute.
package dialog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind is the kind of inbound event a dialog can wait for.
type Kind int

const (
	// KindButton is a component interaction with a matching custom ID.
	KindButton Kind = iota

	// KindMessage is a plain message in a matching channel.
	KindMessage

	// KindForm is a completed form submission with collected values.
	KindForm
)

// Event is one inbound platform event offered to the dispatcher.
type Event struct {
	// Kind is the event kind.
	Kind Kind

	// CustomID is the component custom ID, for button and form events.
	CustomID string

	// ChannelID is the channel the event occurred in.
	ChannelID string

	// UserID is the user that triggered the event.
	UserID string

	// Content is the message content, for message events.
	Content string

	// Values are the submitted form values, for form events.
	Values []string
}

// Expectation describes one event a dialog accepts. Empty fields match any
// value.
type Expectation struct {
	Kind      Kind
	CustomID  string
	ChannelID string
	UserID    string
}

func (e Expectation) matches(ev Event) bool {
	if e.Kind != ev.Kind {
		return false
	}
	if e.CustomID != "" && e.CustomID != ev.CustomID {
		return false
	}
	if e.ChannelID != "" && e.ChannelID != ev.ChannelID {
		return false
	}
	if e.UserID != "" && e.UserID != ev.UserID {
		return false
	}
	return true
}

// Outcome is the single resolution of a dialog.
type Outcome struct {
	// Expired is true when the deadline passed without a matching event.
	Expired bool

	// Index is the position of the matched expectation.
	Index int

	// Event is the matching event.
	Event Event
}

type waiter struct {
	expects []Expectation
	ch      chan Outcome
}

// Dispatcher routes inbound events to waiting dialogs. A single dispatcher
// serves every dialog in the process.
type Dispatcher struct {
	mu      sync.Mutex
	waiters map[string]*waiter
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		waiters: make(map[string]*waiter),
	}
}

// Await blocks until one of the expectations matches an offered event, the
// timeout elapses, or the context is cancelled. Exactly one outcome is
// delivered per call.
func (d *Dispatcher) Await(ctx context.Context, timeout time.Duration, expects ...Expectation) Outcome {
	id := uuid.NewString()
	w := &waiter{
		expects: expects,
		ch:      make(chan Outcome, 1),
	}

	d.mu.Lock()
	d.waiters[id] = w
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.waiters, id)
		d.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-w.ch:
		return out
	case <-timer.C:
		return Outcome{Expired: true}
	case <-ctx.Done():
		return Outcome{Expired: true}
	}
}

// Offer routes an event to the first waiting dialog that expects it and
// reports whether it was consumed. A consumed event resolves its dialog;
// the dialog's remaining expectations stop listening.
func (d *Dispatcher) Offer(ev Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, w := range d.waiters {
		for i, e := range w.expects {
			if !e.matches(ev) {
				continue
			}
			// Removing the waiter before delivery guarantees a dialog
			// resolves at most once, even with concurrent offers.
			delete(d.waiters, id)
			w.ch <- Outcome{Index: i, Event: ev}
			return true
		}
	}
	return false
}

// Waiting reports whether any dialog currently expects an event like ev.
// Used by the interaction layer to decide whether a component custom ID
// belongs to a dialog.
func (d *Dispatcher) Waiting(ev Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, w := range d.waiters {
		for _, e := range w.expects {
			if e.matches(ev) {
				return true
			}
		}
	}
	return false
}
