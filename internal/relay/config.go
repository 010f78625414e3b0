package relay

import (
	"fmt"

	"github.com/vnprc/bitcoin-nostr-relay/internal/btcrpc"
	"github.com/vnprc/bitcoin-nostr-relay/internal/validator"
)

const (
	DefaultMempoolPollSeconds   = 2
	DefaultMaxClientConnections = 1000
	DefaultClientBufferSize     = 100
)

// Config is the full, immutable configuration of one relay process: how to reach the local
// Bitcoin node, how to reach the bus relay, and the policy knobs for the validator and the
// client-facing server.
type Config struct {
	// RPC describes the local Bitcoin node's JSON-RPC endpoint.
	RPC btcrpc.Config

	// BusURL is the WebSocket URL of the event-bus relay this instance subscribes to and
	// publishes through.
	BusURL string

	// RelayID identifies this instance in outbound relay_id tags and in the bus subscription id.
	// It is the only mechanism used to detect and suppress self-originated events.
	RelayID string

	// ListenAddress is the address the client-facing WebSocket server binds, e.g. ":8080".
	ListenAddress string

	// PrivateKeyHex, if set, pins the relay's signing identity across restarts. Empty generates a
	// fresh keypair every process start.
	PrivateKeyHex string

	// MempoolPollSeconds is how often the Mempool Monitor diffs the local mempool. Zero uses
	// DefaultMempoolPollSeconds.
	MempoolPollSeconds int

	// MaxClientConnections bounds the number of simultaneously connected WebSocket clients. Zero
	// uses DefaultMaxClientConnections.
	MaxClientConnections int

	// ClientBufferSize is the per-client outbound channel capacity. Zero uses
	// DefaultClientBufferSize.
	ClientBufferSize int

	// Validator configures the transaction acceptance pipeline.
	Validator validator.Config
}

func (c Config) mempoolPollSeconds() int {
	if c.MempoolPollSeconds <= 0 {
		return DefaultMempoolPollSeconds
	}
	return c.MempoolPollSeconds
}

func (c Config) maxClientConnections() int {
	if c.MaxClientConnections <= 0 {
		return DefaultMaxClientConnections
	}
	return c.MaxClientConnections
}

func (c Config) clientBufferSize() int {
	if c.ClientBufferSize <= 0 {
		return DefaultClientBufferSize
	}
	return c.ClientBufferSize
}

// SubscriptionID is the bus subscription identifier used on every reconnect: tx_relay_<relay_id>.
func (c Config) SubscriptionID() string {
	return fmt.Sprintf("tx_relay_%s", c.RelayID)
}

// String returns a representation safe for logging; RPC credentials are masked by btcrpc.Config.
func (c Config) String() string {
	return fmt.Sprintf("{RPC:%v BusURL:%v RelayID:%v Listen:%v PollSeconds:%d MaxClients:%d}",
		c.RPC, c.BusURL, c.RelayID, c.ListenAddress, c.mempoolPollSeconds(),
		c.maxClientConnections())
}
