package btcrpc

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrTransport means the round trip to the node failed outright (dial, timeout, connection
	// reset) rather than the node giving a definitive answer.
	ErrTransport = errors.New("rpc transport failed")

	// ErrInvalidResponse means the node answered but the result couldn't be decoded into the shape
	// the caller expected. GetRawTransaction and SendRawTransaction also return it, before any
	// request is made, when the txid or transaction hex they were given does not decode.
	ErrInvalidResponse = errors.New("rpc invalid response")

	// ErrAlreadyKnown marks a sendrawtransaction rejection that means the transaction was already
	// accepted by the node, either from the mempool or because it is already confirmed. Callers on
	// the remote-ingest and mempool-monitor paths should treat this the same as success.
	ErrAlreadyKnown = errors.New("transaction already known to node")
)

// BackendError wraps a *btcjson.RPCError the node returned in answer to a request it understood
// and rejected outright; retrying it would only get the same answer.
type BackendError struct {
	Code    int
	Message string
}

func (e *BackendError) Error() string {
	return errors.Errorf("bitcoin core error %d: %s", e.Code, e.Message).Error()
}

// rpcVerifyAlreadyInChain is Bitcoin Core's error code for a transaction that is already in the
// mempool or already confirmed in a block.
const rpcVerifyAlreadyInChain = -27

// alreadyKnownSubstrings are matched case-insensitively against a BackendError's message when the
// code doesn't match rpcVerifyAlreadyInChain, to catch nodes that phrase the same rejection under a
// different code.
var alreadyKnownSubstrings = []string{
	"already in mempool",
	"already exists",
	"already have transaction",
}

// classifySendError inspects an error returned from sendrawtransaction and wraps it with
// ErrAlreadyKnown when the node is telling us, in so many words, that it already has this
// transaction.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) && backendErr.Code == rpcVerifyAlreadyInChain {
		return errors.Wrap(ErrAlreadyKnown, err.Error())
	}

	lower := strings.ToLower(err.Error())
	for _, substr := range alreadyKnownSubstrings {
		if strings.Contains(lower, substr) {
			return errors.Wrap(ErrAlreadyKnown, err.Error())
		}
	}

	return err
}
