// Package validator implements the transaction acceptance pipeline consulted by the relay before
// any transaction reaches the local Bitcoin node or the bus: a structural precheck, a negative
// cache of recent probe rejections, and an optional live mempool-accept probe.
package validator

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/vnprc/bitcoin-nostr-relay/internal/btcrpc"
	"github.com/vnprc/bitcoin-nostr-relay/internal/logger"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// SubSystem is used by the logger package.
const SubSystem = "Validator"

// Prober is the subset of the Bitcoin RPC adapter the validator needs for its live accept probe.
type Prober interface {
	TestMempoolAccept(ctx context.Context, hexTx string) (*btcrpc.MempoolAcceptResult, error)
}

// Validator runs the structural-precheck / negative-cache / live-probe pipeline described in the
// component design. It is safe for concurrent use.
type Validator struct {
	config Config
	prober Prober
	cache  *cache
}

// New creates a Validator backed by prober for its live probe stage. prober may be nil if
// config.ProbeEnabled is false.
func New(config Config, prober Prober) *Validator {
	return &Validator{
		config: config,
		prober: prober,
		cache:  newCache(config.cacheSize(), config.cacheTTL()),
	}
}

// Config returns the validator's configuration.
func (v *Validator) Config() Config {
	return v.config
}

// Validate runs hexTx through the pipeline and returns nil on acceptance, or one of the typed
// errors in this package (use errors.Cause to compare against the Err* sentinels) on rejection.
// A live probe that fails for a reason other than its timeout returns the prober's error, wrapped.
func (v *Validator) Validate(ctx context.Context, hexTx string) error {
	if !v.config.Enabled {
		return nil
	}

	var tx *wire.MsgTx
	if v.config.PrecheckEnabled {
		parsed, err := v.precheck(hexTx)
		if err != nil {
			return err
		}
		tx = parsed
	} else {
		// Precheck is off, but we still need a txid to consult the negative cache. Parsing
		// failures fall back to the generic structural error rather than the more specific
		// empty/hex/size variants precheck would have distinguished.
		parsed, err := parseTransaction(hexTx)
		if err != nil {
			return errors.WithStack(ErrInvalidStructure)
		}
		tx = parsed
	}

	txid := tx.TxHash().String()
	now := time.Now()
	if v.cache.lookup(txid, now) {
		return &RecentlyProcessedError{TxID: txid}
	}

	if v.config.ProbeEnabled {
		if err := v.probe(ctx, hexTx, txid, now); err != nil {
			return err
		}
	}

	return nil
}

func (v *Validator) probe(ctx context.Context, hexTx, txid string, now time.Time) error {
	probeCtx, cancel := context.WithTimeout(ctx, v.config.probeTimeout())
	defer cancel()

	result, err := v.prober.TestMempoolAccept(probeCtx, hexTx)
	if err != nil {
		if probeCtx.Err() == context.DeadlineExceeded {
			logger.Warn(ctx, "Validation probe timed out for %s", txid)
			return errors.WithStack(ErrTimeout)
		}
		logger.Warn(ctx, "Validation probe failed for %s : %s", txid, err)
		return errors.Wrap(err, "mempool accept probe")
	}

	if !result.Allowed {
		v.cache.insert(txid, now)
		return &RejectionError{Reason: result.RejectReason}
	}

	return nil
}

// precheck runs the fixed empty -> hex-decode -> size -> parse sequence and returns the parsed
// transaction on success.
func (v *Validator) precheck(hexTx string) (*wire.MsgTx, error) {
	trimmed := strings.TrimSpace(hexTx)
	if trimmed == "" {
		return nil, errors.WithStack(ErrEmptyTransaction)
	}

	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, errors.WithStack(ErrInvalidHex)
	}

	if len(raw) < MinTransactionSize {
		return nil, &SizeError{Size: len(raw)}
	}

	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, errors.WithStack(ErrInvalidStructure)
	}

	return tx, nil
}

func parseTransaction(hexTx string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(hexTx))
	if err != nil {
		return nil, err
	}

	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, err
	}

	return tx, nil
}

// TxID decodes and parses hexTx and returns its txid.
func TxID(hexTx string) (string, error) {
	tx, err := parseTransaction(hexTx)
	if err != nil {
		return "", err
	}
	return tx.TxHash().String(), nil
}
