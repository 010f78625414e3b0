package relay

import (
	"encoding/json"

	"github.com/vnprc/bitcoin-nostr-relay/internal/nostrevent"

	"github.com/pkg/errors"
)

// Frames are JSON arrays whose first element is a string tag identifying the rest of the shape,
// shared by the bus uplink and the client-facing WebSocket. Only EVENT frames are acted on in
// either direction; every other tag is tolerated (logged at verbose level on the client side,
// ignored silently by the uplink).
const (
	frameTagEvent = "EVENT"
	frameTagReq   = "REQ"
	frameTagClose = "CLOSE"
	frameTagOK    = "OK"
	frameTagEOSE  = "EOSE"
	frameTagNotice = "NOTICE"
)

// decodeFrame splits a raw WebSocket text frame into its leading tag and the remaining elements,
// still in raw form so the caller can decode them according to the tag.
func decodeFrame(raw []byte) (string, []json.RawMessage, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return "", nil, errors.Wrap(err, "decode frame array")
	}
	if len(elements) == 0 {
		return "", nil, errors.New("empty frame")
	}

	var tag string
	if err := json.Unmarshal(elements[0], &tag); err != nil {
		return "", nil, errors.Wrap(err, "decode frame tag")
	}

	return tag, elements[1:], nil
}

// decodeClientEventFrame reads an inbound ["EVENT", event] frame, as sent by clients.
func decodeClientEventFrame(parts []json.RawMessage) (*nostrevent.Event, error) {
	if len(parts) < 1 {
		return nil, errors.New("EVENT frame missing event")
	}

	var event nostrevent.Event
	if err := json.Unmarshal(parts[0], &event); err != nil {
		return nil, errors.Wrap(err, "decode event")
	}

	return &event, nil
}

// decodeBusEventFrame reads an inbound ["EVENT", sub_id, event] frame, as sent by the bus relay.
func decodeBusEventFrame(parts []json.RawMessage) (string, *nostrevent.Event, error) {
	if len(parts) < 2 {
		return "", nil, errors.New("EVENT frame missing sub_id or event")
	}

	var subID string
	if err := json.Unmarshal(parts[0], &subID); err != nil {
		return "", nil, errors.Wrap(err, "decode sub_id")
	}

	var event nostrevent.Event
	if err := json.Unmarshal(parts[1], &event); err != nil {
		return "", nil, errors.Wrap(err, "decode event")
	}

	return subID, &event, nil
}

// encodeReq builds an outbound ["REQ", sub_id, filter] frame.
func encodeReq(subID string, filter interface{}) ([]byte, error) {
	b, err := json.Marshal([]interface{}{frameTagReq, subID, filter})
	if err != nil {
		return nil, errors.Wrap(err, "marshal REQ frame")
	}
	return b, nil
}

// encodeUplinkEvent builds an outbound ["EVENT", event] frame, the shape the bus relay expects
// from a publishing client.
func encodeUplinkEvent(event nostrevent.Event) ([]byte, error) {
	b, err := json.Marshal([]interface{}{frameTagEvent, event})
	if err != nil {
		return nil, errors.Wrap(err, "marshal uplink EVENT frame")
	}
	return b, nil
}

// encodeClientEvent builds an outbound ["EVENT", sub_id, event] frame, the shape a relay server
// sends to a connected client.
func encodeClientEvent(subID string, event nostrevent.Event) ([]byte, error) {
	b, err := json.Marshal([]interface{}{frameTagEvent, subID, event})
	if err != nil {
		return nil, errors.Wrap(err, "marshal client EVENT frame")
	}
	return b, nil
}

// mempoolFilter is the subscription filter sent by the uplink on (re)connect: only ephemeral
// transaction-broadcast events, only from the shared subscription floor forward.
type mempoolFilter struct {
	Kinds []int    `json:"kinds"`
	Tags  []string `json:"#t"`
	Since int64    `json:"since"`
}
