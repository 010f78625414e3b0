package nostrevent

import (
	"testing"
)

func Test_NewEventRoundTrip(t *testing.T) {
	keys, err := GenerateKeys()
	if err != nil {
		t.Fatalf("generate keys : %s", err)
	}

	tags := []Tag{{"t", "bitcoin"}, {"relay_id", "relay-a"}}
	event, err := keys.NewEvent(KindTxBroadcast, `{"txid":"abc"}`, tags, 1700000000)
	if err != nil {
		t.Fatalf("new event : %s", err)
	}

	if event.Kind != KindTxBroadcast {
		t.Errorf("wrong kind : got %d, want %d", event.Kind, KindTxBroadcast)
	}

	ok, err := Verify(event)
	if err != nil {
		t.Fatalf("verify : %s", err)
	}
	if !ok {
		t.Error("expected signature to verify")
	}

	value, found := event.TagValue("relay_id")
	if !found || value != "relay-a" {
		t.Errorf("wrong relay_id tag : got %q, found %v", value, found)
	}
}

func Test_VerifyRejectsTamperedContent(t *testing.T) {
	keys, err := GenerateKeys()
	if err != nil {
		t.Fatalf("generate keys : %s", err)
	}

	event, err := keys.NewEvent(KindSubmitTx, "original", nil, 1700000000)
	if err != nil {
		t.Fatalf("new event : %s", err)
	}

	event.Content = "tampered"

	ok, err := Verify(event)
	if err != nil {
		t.Fatalf("verify : %s", err)
	}
	if ok {
		t.Error("expected tampered event to fail id/signature check")
	}
}

func Test_NewKeysFromHexIsStable(t *testing.T) {
	hexKey := "0101010101010101010101010101010101010101010101010101010101010101"[:64]

	k1, err := NewKeysFromHex(hexKey)
	if err != nil {
		t.Fatalf("keys from hex : %s", err)
	}
	k2, err := NewKeysFromHex(hexKey)
	if err != nil {
		t.Fatalf("keys from hex : %s", err)
	}

	if k1.PublicKeyHex() != k2.PublicKeyHex() {
		t.Error("expected same private key hex to derive the same public key")
	}
}
