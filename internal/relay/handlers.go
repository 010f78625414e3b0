package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/vnprc/bitcoin-nostr-relay/internal/btcrpc"
	"github.com/vnprc/bitcoin-nostr-relay/internal/logger"
	"github.com/vnprc/bitcoin-nostr-relay/internal/nostrevent"
	"github.com/vnprc/bitcoin-nostr-relay/internal/validator"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// handleNostrMessage dispatches one decoded inbound frame from a connected client to the right
// handler. Any reply is delivered by that handler on clientID's own channel.
func (s *Server) handleNostrMessage(ctx context.Context, clientID, tag string,
	parts []json.RawMessage) {

	switch tag {
	case frameTagReq:
		logger.Verbose(ctx, "Client %s subscribed", clientID)
		// The per-client broadcast channel IS the subscription; no filter matching is performed.

	case frameTagEvent:
		event, err := decodeClientEventFrame(parts)
		if err != nil {
			logger.Warn(ctx, "Client %s sent malformed EVENT frame : %s", clientID, err)
			return
		}

		switch event.Kind {
		case nostrevent.KindSubmitTx:
			s.handleSubmitTx(ctx, clientID, event)
		case nostrevent.KindRequestTx:
			s.handleRequestTx(ctx, clientID, event)
		default:
			logger.Verbose(ctx, "Client %s sent unhandled kind %d", clientID, event.Kind)
		}

	default:
		logger.Verbose(ctx, "Client %s sent unhandled frame tag %s", clientID, tag)
	}
}

// handleSubmitTx implements the submit-tx pipeline: validate, decode, parse, compute txid,
// broadcast to the node, and reply on the originating client's channel with a TX_RESPONSE.
func (s *Server) handleSubmitTx(ctx context.Context, clientID string, event *nostrevent.Event) {
	hexTx := strings.TrimSpace(event.Content)

	if err := s.validate.Validate(ctx, hexTx); err != nil {
		if errors.Cause(err) == validator.ErrRecentlyProcessed {
			s.sendTxResponse(ctx, clientID, false, "Transaction recently processed", "")
			return
		}
		s.sendTxResponse(ctx, clientID, false, err.Error(), "")
		return
	}

	raw, err := decodeHexTx(hexTx)
	if err != nil {
		s.sendTxResponse(ctx, clientID, false, "Invalid hex encoding", "")
		return
	}

	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		s.sendTxResponse(ctx, clientID, false, "Invalid transaction format", "")
		return
	}

	txid := tx.TxHash().String()

	sentTxID, err := s.rpc.SendRawTransaction(ctx, hexTx)
	if err != nil {
		s.sendTxResponse(ctx, clientID, false, err.Error(), txid)
		return
	}
	if sentTxID != "" {
		txid = sentTxID
	}

	s.sendTxResponse(ctx, clientID, true, "Transaction accepted", txid)
}

// handleRequestTx is currently a no-op: REQUEST_TX is accepted without error or reply. Whether it
// should eventually produce a reply is an open question left to a future change.
func (s *Server) handleRequestTx(ctx context.Context, clientID string, event *nostrevent.Event) {
	logger.Verbose(ctx, "Client %s sent REQUEST_TX (no-op) : %s", clientID, event.Content)
}

// sendTxResponse builds and delivers a TX_RESPONSE event to clientID's own outbound channel only.
func (s *Server) sendTxResponse(ctx context.Context, clientID string, success bool, message,
	txid string) {

	content, err := json.Marshal(txResponseContent{Success: success, Message: message, TxID: txid})
	if err != nil {
		logger.Error(ctx, "Failed to marshal TX_RESPONSE for %s : %s", clientID, err)
		return
	}

	event, err := s.keys.NewEvent(nostrevent.KindTxResponse, string(content),
		[]nostrevent.Tag{{"relay_id", s.config.RelayID}}, nowUnix())
	if err != nil {
		logger.Error(ctx, "Failed to build TX_RESPONSE for %s : %s", clientID, err)
		return
	}

	ch, ok := s.clients.get(clientID)
	if !ok {
		logger.Verbose(ctx, "Client %s disconnected before TX_RESPONSE could be delivered",
			clientID)
		return
	}

	select {
	case ch <- *event:
	default:
		logger.Warn(ctx, "Client %s outbound channel full, dropping TX_RESPONSE", clientID)
	}
}

// handleRemoteTransaction processes one inbound TX_BROADCAST event from the bus uplink.
func (s *Server) handleRemoteTransaction(ctx context.Context, event *nostrevent.Event) {
	if originID, ok := event.TagValue("relay_id"); ok && originID == s.config.RelayID {
		// Self-origin: the bus echoed our own broadcast back to us.
		return
	}

	var content txBroadcastContent
	if err := json.Unmarshal([]byte(event.Content), &content); err != nil {
		logger.Warn(ctx, "Dropping TX_BROADCAST with unparsable content : %s", err)
		return
	}
	if content.Hex == "" || content.TxID == "" {
		logger.Warn(ctx, "Dropping TX_BROADCAST missing hex or txid")
		return
	}

	// Recorded before submission so the Monitor does not re-announce it when it surfaces in the
	// local mempool.
	s.remoteTxs.add(content.TxID)

	if err := s.validate.Validate(ctx, content.Hex); err != nil {
		cause := errors.Cause(err)
		if cause == validator.ErrRecentlyProcessed {
			return
		}
		logger.Warn(ctx, "Remote transaction %s failed validation : %s", content.TxID, err)
		return
	}

	if _, err := s.rpc.SendRawTransaction(ctx, content.Hex); err != nil {
		if errors.Cause(err) == btcrpc.ErrAlreadyKnown {
			// Idempotent: some other path already has this transaction.
			return
		}
		logger.Warn(ctx, "Failed to submit remote transaction %s : %s", content.TxID, err)
	}
}
