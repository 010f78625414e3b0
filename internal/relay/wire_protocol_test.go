package relay

import (
	"encoding/json"
	"testing"

	"github.com/vnprc/bitcoin-nostr-relay/internal/nostrevent"
)

func Test_DecodeFrame_Tag(t *testing.T) {
	tag, parts, err := decodeFrame([]byte(`["REQ", "sub-1", {"kinds":[20012]}]`))
	if err != nil {
		t.Fatalf("unexpected error : %s", err)
	}
	if tag != "REQ" {
		t.Errorf("wrong tag : got %s, want REQ", tag)
	}
	if len(parts) != 2 {
		t.Fatalf("wrong part count : got %d, want 2", len(parts))
	}
}

func Test_DecodeFrame_Empty(t *testing.T) {
	if _, _, err := decodeFrame([]byte(`[]`)); err == nil {
		t.Fatal("expected error for empty frame")
	}
}

func Test_ClientEventFrameRoundTrip(t *testing.T) {
	event := nostrevent.Event{ID: "abc", Kind: nostrevent.KindSubmitTx, Content: "deadbeef"}

	frame, err := encodeClientEvent("sub-1", event)
	if err != nil {
		t.Fatalf("unexpected error : %s", err)
	}

	tag, parts, err := decodeFrame(frame)
	if err != nil {
		t.Fatalf("unexpected error : %s", err)
	}
	if tag != frameTagEvent {
		t.Errorf("wrong tag : got %s, want %s", tag, frameTagEvent)
	}

	var subID string
	if err := json.Unmarshal(parts[0], &subID); err != nil {
		t.Fatalf("unexpected error : %s", err)
	}
	if subID != "sub-1" {
		t.Errorf("wrong sub id : got %s, want sub-1", subID)
	}

	var decoded nostrevent.Event
	if err := json.Unmarshal(parts[1], &decoded); err != nil {
		t.Fatalf("unexpected error : %s", err)
	}
	if decoded.ID != event.ID || decoded.Content != event.Content {
		t.Errorf("wrong event : got %+v", decoded)
	}
}

func Test_DecodeClientEventFrame(t *testing.T) {
	raw := []byte(`["EVENT", {"id":"abc","kind":20010,"content":"deadbeef","tags":[]}]`)
	_, parts, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("unexpected error : %s", err)
	}

	event, err := decodeClientEventFrame(parts)
	if err != nil {
		t.Fatalf("unexpected error : %s", err)
	}
	if event.ID != "abc" || event.Kind != nostrevent.KindSubmitTx {
		t.Errorf("wrong event : got %+v", event)
	}
}

func Test_DecodeBusEventFrame(t *testing.T) {
	raw := []byte(`["EVENT", "sub-1", {"id":"abc","kind":20012,"content":"{}","tags":[["relay_id","A"]]}]`)
	_, parts, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("unexpected error : %s", err)
	}

	subID, event, err := decodeBusEventFrame(parts)
	if err != nil {
		t.Fatalf("unexpected error : %s", err)
	}
	if subID != "sub-1" {
		t.Errorf("wrong sub id : got %s", subID)
	}
	if value, ok := event.TagValue("relay_id"); !ok || value != "A" {
		t.Errorf("wrong relay_id tag : got %s, %v", value, ok)
	}
}

func Test_EncodeReq(t *testing.T) {
	frame, err := encodeReq("tx_relay_A", mempoolFilter{
		Kinds: []int{nostrevent.KindTxBroadcast},
		Tags:  []string{"bitcoin", "transaction"},
		Since: 1700000000,
	})
	if err != nil {
		t.Fatalf("unexpected error : %s", err)
	}

	tag, parts, err := decodeFrame(frame)
	if err != nil {
		t.Fatalf("unexpected error : %s", err)
	}
	if tag != frameTagReq {
		t.Errorf("wrong tag : got %s, want %s", tag, frameTagReq)
	}

	var subID string
	if err := json.Unmarshal(parts[0], &subID); err != nil {
		t.Fatalf("unexpected error : %s", err)
	}
	if subID != "tx_relay_A" {
		t.Errorf("wrong sub id : got %s", subID)
	}
}
