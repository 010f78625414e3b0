package validator

import "github.com/pkg/errors"

// These sentinels are behind every rejection the validator returns: errors.Cause(err) resolves to
// exactly one of them, so callers can switch on equality rather than string matching. The one
// exception is a live probe that fails other than by timing out, whose cause is the prober's error.
var (
	// ErrEmptyTransaction means the submitted hex was empty or whitespace only.
	ErrEmptyTransaction = errors.New("empty transaction")

	// ErrInvalidHex means the content was not valid hex.
	ErrInvalidHex = errors.New("invalid hex encoding")

	// ErrInvalidSize means the decoded transaction was smaller than MinTransactionSize bytes.
	ErrInvalidSize = errors.New("invalid transaction size")

	// ErrInvalidStructure means the bytes did not parse as a Bitcoin transaction.
	ErrInvalidStructure = errors.New("invalid transaction structure")

	// ErrRecentlyProcessed means a live probe rejected this txid within the cache TTL, so it is
	// being short-circuited rather than reprocessed.
	ErrRecentlyProcessed = errors.New("transaction recently processed")

	// ErrBitcoinCoreRejection means a live testmempoolaccept probe rejected the transaction.
	ErrBitcoinCoreRejection = errors.New("bitcoin core rejection")

	// ErrTimeout means the live mempool-accept probe did not respond within the configured
	// deadline. Unlike a rejection, a timeout is never cached, since it says nothing about
	// whether the node would ultimately accept or reject the transaction.
	ErrTimeout = errors.New("validation timeout")

	// ErrDisabled is never returned by Validate itself (a disabled validator bypasses straight to
	// success); it is kept as a named sentinel for callers that want to report validation's
	// on/off state through the same error taxonomy as rejections.
	ErrDisabled = errors.New("validation disabled")
)

// SizeError carries the offending byte length alongside ErrInvalidSize.
type SizeError struct {
	Size int
}

func (e *SizeError) Error() string {
	return errors.Errorf("invalid transaction size: %d bytes", e.Size).Error()
}

func (e *SizeError) Cause() error { return ErrInvalidSize }

// RecentlyProcessedError carries the txid alongside ErrRecentlyProcessed.
type RecentlyProcessedError struct {
	TxID string
}

func (e *RecentlyProcessedError) Error() string {
	return errors.Errorf("transaction %s recently processed", e.TxID).Error()
}

func (e *RecentlyProcessedError) Cause() error { return ErrRecentlyProcessed }

// RejectionError carries the node's stated rejection reason alongside ErrBitcoinCoreRejection.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return errors.Errorf("bitcoin core rejection: %s", e.Reason).Error()
}

func (e *RejectionError) Cause() error { return ErrBitcoinCoreRejection }
