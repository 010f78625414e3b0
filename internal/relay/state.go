package relay

import (
	"sync"

	"github.com/vnprc/bitcoin-nostr-relay/internal/nostrevent"
)

// clientRegistry is the shared, reader-writer-locked map from client id to that client's outbound
// event channel. A client id is present iff its outbound task is alive: insertion happens on
// accept, removal on disconnect, and nothing else ever mutates it.
type clientRegistry struct {
	mu      sync.RWMutex
	clients map[string]chan nostrevent.Event
}

func newClientRegistry() *clientRegistry {
	return &clientRegistry{clients: make(map[string]chan nostrevent.Event)}
}

func (r *clientRegistry) add(id string, ch chan nostrevent.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[id] = ch
}

func (r *clientRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

func (r *clientRegistry) get(id string) (chan nostrevent.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.clients[id]
	return ch, ok
}

// broadcast pushes event to every connected client's outbound channel, skipping (not blocking on)
// any client whose channel is currently full. A lagging client simply sees a gap, which is
// acceptable for ephemeral events.
func (r *clientRegistry) broadcast(event nostrevent.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ch := range r.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

func (r *clientRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// remoteTxSet is the reader-writer-locked set of txids ingested from the bus. An entry is added
// before the corresponding local submission is attempted, so the Mempool Monitor does not
// re-announce a transaction that only just arrived from a peer relay. Entries are never removed:
// the set grows monotonically for the lifetime of the process.
type remoteTxSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func newRemoteTxSet() *remoteTxSet {
	return &remoteTxSet{ids: make(map[string]struct{})}
}

func (s *remoteTxSet) add(txid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[txid] = struct{}{}
}

func (s *remoteTxSet) contains(txid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[txid]
	return ok
}

func (s *remoteTxSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
