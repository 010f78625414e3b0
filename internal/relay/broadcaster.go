package relay

import (
	"sync"

	"github.com/vnprc/bitcoin-nostr-relay/internal/nostrevent"
)

// broadcaster is a process-wide fan-out channel: every call to Publish pushes to every live
// subscriber. It exists as an alternative fan-out path to the per-client channels the
// clientRegistry holds, for a future mode where a single subscription drives all connected
// clients rather than one channel per client. It is constructed and wired into Server, but
// nothing currently calls Publish on it; the per-client channels in clientRegistry are the
// authoritative fan-out path. Kept unused deliberately rather than removed.
type broadcaster struct {
	mu          sync.Mutex
	subscribers map[int]chan nostrevent.Event
	nextID      int
	bufferSize  int
}

func newBroadcaster(bufferSize int) *broadcaster {
	return &broadcaster{
		subscribers: make(map[int]chan nostrevent.Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a new receiver and returns it along with a cancel function.
func (b *broadcaster) Subscribe() (<-chan nostrevent.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan nostrevent.Event, b.bufferSize)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
	}

	return ch, cancel
}

// Publish pushes event to every current subscriber, dropping it for any subscriber whose buffer
// is full rather than blocking.
func (b *broadcaster) Publish(event nostrevent.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
