package relay

import (
	"sync"

	"github.com/vnprc/bitcoin-nostr-relay/internal/nostrevent"
)

// eventQueue is an unbounded, multi-producer single-consumer queue of bus events. Push always
// succeeds and never blocks: the queue grows to hold whatever is pushed to it, so the uplink's
// "no event is dropped" invariant holds even when the consumer falls behind during a bus outage.
type eventQueue struct {
	mu     sync.Mutex
	items  []nostrevent.Event
	notify chan struct{}
}

// newEventQueue returns an empty eventQueue ready to use.
func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

// Push appends event to the queue.
func (q *eventQueue) Push(event nostrevent.Event) {
	q.mu.Lock()
	q.items = append(q.items, event)
	q.mu.Unlock()

	q.wake()
}

// Notify returns a channel that receives a value whenever the queue may hold an event. A reader
// should drain with repeated Pop calls after each receive, since one wake can cover several
// pushes and Pop may still report ok == false if another goroutine drained first.
func (q *eventQueue) Notify() <-chan struct{} {
	return q.notify
}

// Pop removes and returns the oldest queued event, if any.
func (q *eventQueue) Pop() (nostrevent.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nostrevent.Event{}, false
	}

	event := q.items[0]
	q.items[0] = nostrevent.Event{}
	q.items = q.items[1:]

	if len(q.items) > 0 {
		q.wake()
	}

	return event, true
}

func (q *eventQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
