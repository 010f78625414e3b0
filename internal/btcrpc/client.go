// Package btcrpc talks to a Bitcoin Core compatible node for the subset of calls the relay needs:
// getrawmempool, getrawtransaction, sendrawtransaction, and testmempoolaccept. It is a thin,
// retrying wrapper around rpcclient.Client, in the same way the teacher's rpcnode package wraps it.
package btcrpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/vnprc/bitcoin-nostr-relay/internal/logger"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// SubSystem is used by the logger package.
const SubSystem = "BTCRPC"

// Client issues JSON-RPC calls to a single Bitcoin Core node over rpcclient, retrying transport
// failures up to config.MaxRetries times.
type Client struct {
	config Config
	rpc    *rpcclient.Client
}

// NewClient creates a client bound to the node described by config. It does not dial; rpcclient
// connects lazily on the first call.
func NewClient(config Config) (*Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         config.Host,
		User:         config.Username,
		Pass:         config.Password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}

	rpc, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new rpc client")
	}

	return &Client{config: config, rpc: rpc}, nil
}

// Shutdown releases the underlying HTTP connection pool.
func (c *Client) Shutdown() {
	c.rpc.Shutdown()
}

// call runs fn, retrying up to config.MaxRetries times when it fails with a transport error. A
// *btcjson.RPCError means the node understood the request and rejected it outright, so it is
// translated to a *BackendError and returned without retrying. A result that fails to decode is
// returned as ErrInvalidResponse, also without retrying.
func (c *Client) call(ctx context.Context, method string, fn func() error) error {
	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)
	defer logger.Elapsed(ctx, time.Now(), method)

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt != 0 {
			logger.Verbose(ctx, "Retrying %s after transport failure : %s", method, lastErr)
			time.Sleep(time.Duration(c.config.retryDelayMS()) * time.Millisecond)
		}

		err := fn()
		if err == nil {
			return nil
		}

		var rpcErr *btcjson.RPCError
		if errors.As(err, &rpcErr) {
			return &BackendError{Code: int(rpcErr.Code), Message: rpcErr.Message}
		}

		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return errors.Wrap(ErrInvalidResponse, err.Error())
		}

		lastErr = errors.Wrap(ErrTransport, err.Error())
	}

	logger.Error(ctx, "RPCCallAborted %s : %s", method, lastErr)
	return lastErr
}

// GetRawMempoolTxIDs returns the txids currently in the node's mempool.
func (c *Client) GetRawMempoolTxIDs(ctx context.Context) ([]string, error) {
	var hashes []*chainhash.Hash
	err := c.call(ctx, "getrawmempool", func() error {
		var innerErr error
		hashes, innerErr = c.rpc.GetRawMempool()
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	txids := make([]string, len(hashes))
	for i, h := range hashes {
		txids[i] = h.String()
	}

	return txids, nil
}

// GetRawTransaction fetches the hex-encoded transaction for txid.
func (c *Client) GetRawTransaction(ctx context.Context, txid string) (string, error) {
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return "", errors.Wrap(ErrInvalidResponse, err.Error())
	}

	var tx *wire.MsgTx
	err = c.call(ctx, "getrawtransaction", func() error {
		raw, innerErr := c.rpc.GetRawTransaction(hash)
		if innerErr != nil {
			return innerErr
		}
		tx = raw.MsgTx()
		return nil
	})
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", errors.Wrap(ErrInvalidResponse, err.Error())
	}

	return hex.EncodeToString(buf.Bytes()), nil
}

// SendRawTransaction broadcasts a hex-encoded transaction and returns its txid. A rejection
// indicating the node already knows about the transaction is wrapped in ErrAlreadyKnown so callers
// can treat it as idempotent success where that is the policy.
func (c *Client) SendRawTransaction(ctx context.Context, hexTx string) (string, error) {
	raw, err := hex.DecodeString(hexTx)
	if err != nil {
		return "", errors.Wrap(ErrInvalidResponse, err.Error())
	}

	tx := wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return "", errors.Wrap(ErrInvalidResponse, err.Error())
	}

	var hash *chainhash.Hash
	err = c.call(ctx, "sendrawtransaction", func() error {
		var innerErr error
		hash, innerErr = c.rpc.SendRawTransaction(&tx, false)
		return innerErr
	})
	if err != nil {
		return "", classifySendError(err)
	}

	return hash.String(), nil
}

// MempoolAcceptResult is the decoded result of a testmempoolaccept probe for one transaction.
type MempoolAcceptResult struct {
	TxID         string `json:"txid"`
	Allowed      bool   `json:"allowed"`
	RejectReason string `json:"reject-reason"`
}

// TestMempoolAccept probes whether the node would accept hexTx into its mempool without actually
// broadcasting it. rpcclient has no typed wrapper for testmempoolaccept, so this goes through
// RawRequest, the same escape hatch the teacher's rpcnode package uses for listtransactions.
func (c *Client) TestMempoolAccept(ctx context.Context, hexTx string) (*MempoolAcceptResult, error) {
	params, err := json.Marshal([]string{hexTx})
	if err != nil {
		return nil, errors.Wrap(err, "marshal params")
	}

	var raw json.RawMessage
	err = c.call(ctx, "testmempoolaccept", func() error {
		var innerErr error
		raw, innerErr = c.rpc.RawRequest("testmempoolaccept", []json.RawMessage{params})
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	var results []MempoolAcceptResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, errors.Wrap(ErrInvalidResponse, err.Error())
	}
	if len(results) == 0 {
		return nil, ErrInvalidResponse
	}

	return &results[0], nil
}
