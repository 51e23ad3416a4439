package registry

import (
	"sort"

	"github.com/specialistvlad/treeplug/internal/model"
)

// EventType says what happened to a module.
type EventType int

const (
	EventRegistered EventType = iota
	EventRemoved
)

func (t EventType) String() string {
	if t == EventRemoved {
		return "removed"
	}
	return "registered"
}

// Event is delivered to subscribers after a change has been applied.
type Event struct {
	Type       EventType
	Descriptor *model.Descriptor
}

// Subscribe registers fn to be called after every change. Events reach fn
// one at a time, in the order the changes were applied, and outside the
// registry lock, so fn may query or even modify the registry. An event may
// be delivered by whichever goroutine is dispatching at the time, so a
// mutation can return before its own event has been seen. The returned
// function cancels the subscription.
func (r *Registry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subscribers[id] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		delete(r.subscribers, id)
		r.subMu.Unlock()
	}
}

// enqueueLocked queues evs behind earlier changes and reports whether the
// caller must dispatch them. r.mu must be held for writing.
func (r *Registry) enqueueLocked(evs ...Event) bool {
	r.pending = append(r.pending, evs...)
	if r.dispatching {
		return false
	}
	r.dispatching = true
	return true
}

// dispatch delivers queued events until the queue is empty. Only one
// goroutine dispatches at a time, which keeps delivery in apply order.
func (r *Registry) dispatch() {
	for {
		r.mu.Lock()
		evs := r.pending
		r.pending = nil
		if len(evs) == 0 {
			r.dispatching = false
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		for _, ev := range evs {
			r.deliver(ev)
		}
	}
}

func (r *Registry) deliver(ev Event) {
	r.subMu.Lock()
	ids := make([]int, 0, len(r.subscribers))
	for id := range r.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), len(ids))
	for i, id := range ids {
		fns[i] = r.subscribers[id]
	}
	r.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
