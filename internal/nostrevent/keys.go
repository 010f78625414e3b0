package nostrevent

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/pkg/errors"
)

// Keys is a fresh secp256k1 keypair generated for the lifetime of one relay process. There is
// deliberately no persistence: every restart gets a new identity. A deployment that needs a stable
// public key across restarts can construct Keys from a configured private key with NewKeysFromHex
// without any other change to the relay.
type Keys struct {
	priv *btcec.PrivateKey
}

// GenerateKeys creates a fresh random keypair.
func GenerateKeys() (*Keys, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate private key")
	}
	return &Keys{priv: priv}, nil
}

// NewKeysFromHex loads a keypair from a 32 byte hex-encoded private key, for deployments that want
// a stable identity across restarts.
func NewKeysFromHex(s string) (*Keys, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "decode private key hex")
	}

	priv, _ := btcec.PrivKeyFromBytes(b)
	return &Keys{priv: priv}, nil
}

// PublicKeyHex returns the 32 byte x-only public key, hex encoded, as used in event.pubkey.
func (k *Keys) PublicKeyHex() string {
	return hex.EncodeToString(schnorr.SerializePubKey(k.priv.PubKey()))
}

// NewEvent builds, computes the id of, and signs an event with this identity.
func (k *Keys) NewEvent(kind int, content string, tags []Tag, createdAt int64) (*Event, error) {
	if tags == nil {
		tags = []Tag{}
	}

	event := &Event{
		PubKey:    k.PublicKeyHex(),
		CreatedAt: createdAt,
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}

	if err := event.ComputeID(); err != nil {
		return nil, err
	}

	if err := k.Sign(event); err != nil {
		return nil, err
	}

	return event, nil
}

// Sign computes a BIP-340 Schnorr signature over the event's id and sets event.Sig. event.ID must
// already be populated (see Event.ComputeID).
func (k *Keys) Sign(event *Event) error {
	idBytes, err := event.IDBytes()
	if err != nil {
		return err
	}

	sig, err := schnorr.Sign(k.priv, idBytes)
	if err != nil {
		return errors.Wrap(err, "schnorr sign")
	}

	event.Sig = hex.EncodeToString(sig.Serialize())
	return nil
}

// Verify checks that event.Sig is a valid signature by event.PubKey over event.ID. It is not
// exercised on the relay's own ingress paths (bus and client frames are trusted once they parse),
// but is kept as a building block for a future authenticated-client mode.
func Verify(event *Event) (bool, error) {
	expected := *event
	if err := expected.ComputeID(); err != nil {
		return false, err
	}
	if expected.ID != event.ID {
		return false, nil
	}

	idBytes, err := event.IDBytes()
	if err != nil {
		return false, err
	}

	pubKeyBytes, err := hex.DecodeString(event.PubKey)
	if err != nil {
		return false, errors.Wrap(err, "decode pubkey hex")
	}

	pubKey, err := schnorr.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false, errors.Wrap(err, "parse pubkey")
	}

	sigBytes, err := hex.DecodeString(event.Sig)
	if err != nil {
		return false, errors.Wrap(err, "decode signature hex")
	}

	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false, errors.Wrap(err, "parse signature")
	}

	return sig.Verify(idBytes, pubKey), nil
}
