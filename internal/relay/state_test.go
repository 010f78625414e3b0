package relay

import (
	"testing"

	"github.com/vnprc/bitcoin-nostr-relay/internal/nostrevent"
)

func Test_ClientRegistry_AddGetRemove(t *testing.T) {
	registry := newClientRegistry()

	ch := make(chan nostrevent.Event, 1)
	registry.add("client-1", ch)

	got, ok := registry.get("client-1")
	if !ok || got != ch {
		t.Fatalf("expected to find client-1's channel")
	}

	registry.remove("client-1")
	if _, ok := registry.get("client-1"); ok {
		t.Fatalf("expected client-1 to be gone after remove")
	}
}

func Test_ClientRegistry_Broadcast(t *testing.T) {
	registry := newClientRegistry()

	a := make(chan nostrevent.Event, 1)
	b := make(chan nostrevent.Event, 1)
	registry.add("a", a)
	registry.add("b", b)

	event := nostrevent.Event{ID: "evt-1"}
	registry.broadcast(event)

	select {
	case got := <-a:
		if got.ID != "evt-1" {
			t.Errorf("wrong event delivered to a : %v", got)
		}
	default:
		t.Error("expected event delivered to a")
	}

	select {
	case got := <-b:
		if got.ID != "evt-1" {
			t.Errorf("wrong event delivered to b : %v", got)
		}
	default:
		t.Error("expected event delivered to b")
	}
}

func Test_ClientRegistry_BroadcastSkipsFullChannel(t *testing.T) {
	registry := newClientRegistry()

	full := make(chan nostrevent.Event, 1)
	full <- nostrevent.Event{ID: "stale"}
	registry.add("full", full)

	// Should not block even though full's channel has no room.
	registry.broadcast(nostrevent.Event{ID: "new"})

	got := <-full
	if got.ID != "stale" {
		t.Errorf("expected the original stale event to remain, got %v", got)
	}
}

func Test_RemoteTxSet(t *testing.T) {
	set := newRemoteTxSet()

	if set.contains("abc") {
		t.Error("expected empty set to not contain abc")
	}

	set.add("abc")
	if !set.contains("abc") {
		t.Error("expected set to contain abc after add")
	}
	if set.len() != 1 {
		t.Errorf("wrong len : got %d, want 1", set.len())
	}

	// Adding again must not grow the set or error.
	set.add("abc")
	if set.len() != 1 {
		t.Errorf("wrong len after duplicate add : got %d, want 1", set.len())
	}
}
