package relay

import (
	"fmt"

	"github.com/vnprc/bitcoin-nostr-relay/internal/btcrpc"

	"github.com/pkg/errors"
)

// Network is a convenience selector for the common two-relay local development topologies: a
// pair of instances, each bound to its own node and WebSocket port, sharing one bus relay.
type Network int

const (
	NetworkRegtest Network = iota
	NetworkTestnet4
)

// ErrUnsupportedPreset is returned by NetworkPreset for a (network, relayIndex) combination that
// has no hardcoded port assignment.
var ErrUnsupportedPreset = errors.New("unsupported network preset")

type presetPorts struct {
	bitcoinRPCPort int
	websocketPort  int
	busPort        int
}

var networkPresets = map[Network]map[int]presetPorts{
	NetworkRegtest: {
		1: {bitcoinRPCPort: 18332, websocketPort: 7779, busPort: 7777},
		2: {bitcoinRPCPort: 18444, websocketPort: 7780, busPort: 7778},
	},
	NetworkTestnet4: {
		1: {bitcoinRPCPort: 48330, websocketPort: 7779, busPort: 7777},
		2: {bitcoinRPCPort: 48350, websocketPort: 7780, busPort: 7778},
	},
}

// NetworkPreset builds a Config for one of the two hardcoded local-development relay slots on the
// given network, all bound to 127.0.0.1. It exists purely as a convenience over the explicit
// Config struct for local multi-relay testing; production deployments should build Config
// directly.
func NetworkPreset(network Network, relayIndex int) (Config, error) {
	byIndex, ok := networkPresets[network]
	if !ok {
		return Config{}, errors.Wrapf(ErrUnsupportedPreset, "network %d", network)
	}

	ports, ok := byIndex[relayIndex]
	if !ok {
		return Config{}, errors.Wrapf(ErrUnsupportedPreset, "network %d relay %d", network,
			relayIndex)
	}

	return Config{
		RPC: btcrpc.Config{
			Host: fmt.Sprintf("127.0.0.1:%d", ports.bitcoinRPCPort),
		},
		BusURL:        fmt.Sprintf("ws://127.0.0.1:%d", ports.busPort),
		RelayID:       fmt.Sprintf("%d", relayIndex),
		ListenAddress: fmt.Sprintf("127.0.0.1:%d", ports.websocketPort),
	}, nil
}
