// Package nostrevent implements the signed event envelope used on both the bus uplink and the
// client-facing WebSocket: a Nostr-style object identified by the SHA-256 of its canonical
// serialization and authenticated with a BIP-340 Schnorr signature over that id.
package nostrevent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
)

// Kind numbers used by the relay. All fall in the 20000-29999 ephemeral range, meaning bus relays
// are expected to forward but never persist them.
const (
	KindSubmitTx    = 20010
	KindTxResponse  = 20011
	KindTxBroadcast = 20012
	KindRequestTx   = 20013
)

// Tag is a single Nostr tag: a kind string followed by zero or more values, e.g.
// ["relay_id", "relay-a"] or ["t", "bitcoin"].
type Tag []string

// Kind returns the tag's first element, or "" for a malformed/empty tag.
func (t Tag) Kind() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the tag's first value (index 1), or "" if absent.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Event is the wire object common to the bus uplink and client connections.
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      []Tag  `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// TagValue returns the value of the first tag of the given kind, and whether one was found.
func (e *Event) TagValue(kind string) (string, bool) {
	for _, tag := range e.Tags {
		if tag.Kind() == kind {
			return tag.Value(), true
		}
	}
	return "", false
}

// serializedForID builds the canonical [0, pubkey, created_at, kind, tags, content] array whose
// SHA-256 is the event id, per the conventional Nostr signing scheme (NIP-01).
func (e *Event) serializedForID() ([]byte, error) {
	if e.Tags == nil {
		e.Tags = []Tag{}
	}

	array := []interface{}{0, e.PubKey, e.CreatedAt, e.Kind, e.Tags, e.Content}
	b, err := json.Marshal(array)
	if err != nil {
		return nil, errors.Wrap(err, "marshal canonical event")
	}
	return b, nil
}

// ComputeID recomputes and sets e.ID from the event's current fields. Must be called with PubKey,
// CreatedAt, Kind, Tags, and Content already populated, and before Sign.
func (e *Event) ComputeID() error {
	serialized, err := e.serializedForID()
	if err != nil {
		return err
	}

	hash := sha256.Sum256(serialized)
	e.ID = hex.EncodeToString(hash[:])
	return nil
}

// IDBytes decodes the event's hex id back to the 32 raw hash bytes that were signed.
func (e *Event) IDBytes() ([]byte, error) {
	b, err := hex.DecodeString(e.ID)
	if err != nil {
		return nil, errors.Wrap(err, "decode event id")
	}
	if len(b) != sha256.Size {
		return nil, errors.Errorf("wrong id length: got %d, want %d", len(b), sha256.Size)
	}
	return b, nil
}
