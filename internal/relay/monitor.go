package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/vnprc/bitcoin-nostr-relay/internal/logger"
	"github.com/vnprc/bitcoin-nostr-relay/internal/nostrevent"

	"github.com/btcsuite/btcd/wire"
)

// mempoolMonitor tracks which mempool txids this server has already announced, so each poll only
// acts on what's new. Server holds it by pointer; its mutex guards known against the startup seed
// and the periodic task.
type mempoolMonitor struct {
	mu    sync.Mutex
	known map[string]struct{}
}

// pollMempool is the Mempool Monitor's periodic task body: diff the node's current mempool
// against known_txids, announce anything new that didn't originate on the bus, then prune
// known_txids back down to the current mempool.
func (s *Server) pollMempool(ctx context.Context) error {
	current, err := s.rpc.GetRawMempoolTxIDs(ctx)
	if err != nil {
		logger.Warn(ctx, "Mempool poll failed, skipping this period : %s", err)
		return nil
	}

	currentSet := make(map[string]struct{}, len(current))
	for _, txid := range current {
		currentSet[txid] = struct{}{}
	}

	s.monitor.mu.Lock()
	var fresh []string
	for _, txid := range current {
		if _, alreadyKnown := s.monitor.known[txid]; !alreadyKnown {
			fresh = append(fresh, txid)
		}
	}
	s.monitor.mu.Unlock()

	for _, txid := range fresh {
		s.announceMempoolTx(ctx, txid)

		s.monitor.mu.Lock()
		s.monitor.known[txid] = struct{}{}
		s.monitor.mu.Unlock()
	}

	s.monitor.mu.Lock()
	for txid := range s.monitor.known {
		if _, stillPresent := currentSet[txid]; !stillPresent {
			delete(s.monitor.known, txid)
		}
	}
	s.monitor.mu.Unlock()

	return nil
}

// seedMonitor populates known_txids at startup. A failure here is tolerated (the node may still
// be warming up): the monitor just starts from an empty set and will announce everything it sees
// on the first real poll instead of treating it all as already-known.
func (s *Server) seedMonitor(ctx context.Context) {
	txids, err := s.rpc.GetRawMempoolTxIDs(ctx)
	if err != nil {
		logger.Warn(ctx, "Failed to seed mempool monitor, starting from empty set : %s", err)
		return
	}

	s.monitor.mu.Lock()
	for _, txid := range txids {
		s.monitor.known[txid] = struct{}{}
	}
	s.monitor.mu.Unlock()
}

// announceMempoolTx handles one newly-seen local txid: skip it if it just arrived from the bus,
// otherwise fetch its raw hex and publish a TX_BROADCAST to the uplink and to all clients.
func (s *Server) announceMempoolTx(ctx context.Context, txid string) {
	if s.remoteTxs.contains(txid) {
		return
	}

	hexTx, err := s.rpc.GetRawTransaction(ctx, txid)
	if err != nil {
		logger.Warn(ctx, "Failed to fetch mempool transaction %s : %s", txid, err)
		return
	}

	raw, err := decodeHexTx(hexTx)
	if err != nil {
		logger.Warn(ctx, "Failed to decode mempool transaction %s : %s", txid, err)
		return
	}

	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		logger.Warn(ctx, "Failed to parse mempool transaction %s : %s", txid, err)
		return
	}

	content := txBroadcastContent{
		TxID:    txid,
		Size:    len(raw),
		Version: tx.Version,
		Inputs:  len(tx.TxIn),
		Outputs: len(tx.TxOut),
		Hex:     hexTx,
	}

	contentJSON, err := json.Marshal(content)
	if err != nil {
		logger.Warn(ctx, "Failed to marshal broadcast content for %s : %s", txid, err)
		return
	}

	event, err := s.keys.NewEvent(nostrevent.KindTxBroadcast, string(contentJSON),
		[]nostrevent.Tag{{"relay_id", s.config.RelayID}}, nowUnix())
	if err != nil {
		logger.Warn(ctx, "Failed to build broadcast event for %s : %s", txid, err)
		return
	}

	s.publishTxBroadcast(ctx, *event)
}

// publishTxBroadcast sends event to the bus uplink's outbox and to every connected client. The
// outbox is unbounded: a slow or disconnected bus queues events instead of dropping them.
func (s *Server) publishTxBroadcast(ctx context.Context, event nostrevent.Event) {
	s.uplinkOutbox.Push(event)

	s.clients.broadcast(event)
}
