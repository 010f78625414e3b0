// Package relay implements the bridge relay server: it polls a local Bitcoin node's mempool and
// publishes new transactions to a Nostr-style event bus, maintains a durable subscription to that
// bus and ingests remote transactions into the local node, and terminates WebSocket connections
// from clients that submit transactions directly.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/vnprc/bitcoin-nostr-relay/internal/btcrpc"
	"github.com/vnprc/bitcoin-nostr-relay/internal/logger"
	"github.com/vnprc/bitcoin-nostr-relay/internal/nostrevent"
	"github.com/vnprc/bitcoin-nostr-relay/internal/threads"
	"github.com/vnprc/bitcoin-nostr-relay/internal/validator"

	"github.com/pkg/errors"
)

// SubSystem is used by the logger package.
const SubSystem = "Relay"

// Server owns the shared state and wires together the Mempool Monitor, Bus Uplink, and Client
// Fan-out tasks. A Server value is safe to hold by reference and share across the tasks it starts;
// its mutable state lives in clientRegistry, remoteTxSet, the uplink eventQueue, and the
// mempoolMonitor, each of which locks internally.
type Server struct {
	config Config
	keys   *nostrevent.Keys
	rpc    *btcrpc.Client

	validate *validator.Validator

	clients   *clientRegistry
	remoteTxs *remoteTxSet
	broadcast *broadcaster

	uplinkOutbox *eventQueue
	monitor      *mempoolMonitor

	threads threads.Threads
	wait    sync.WaitGroup
}

// New constructs a Server. If config.PrivateKeyHex is empty a fresh signing identity is
// generated; otherwise the configured key is used so the relay's public key is stable across
// restarts.
func New(config Config) (*Server, error) {
	var keys *nostrevent.Keys
	var err error
	if config.PrivateKeyHex != "" {
		keys, err = nostrevent.NewKeysFromHex(config.PrivateKeyHex)
	} else {
		keys, err = nostrevent.GenerateKeys()
	}
	if err != nil {
		return nil, errors.Wrap(err, "create relay keys")
	}

	rpcClient, err := btcrpc.NewClient(config.RPC)
	if err != nil {
		return nil, errors.Wrap(err, "create rpc client")
	}

	server := &Server{
		config:       config,
		keys:         keys,
		rpc:          rpcClient,
		validate:     validator.New(config.Validator, rpcClient),
		clients:      newClientRegistry(),
		remoteTxs:    newRemoteTxSet(),
		broadcast:    newBroadcaster(config.clientBufferSize()),
		uplinkOutbox: newEventQueue(),
		monitor:      &mempoolMonitor{known: make(map[string]struct{})},
	}

	return server, nil
}

// Run starts the Monitor, Uplink, and Fan-out tasks and blocks until ctx is canceled or the
// Fan-out's listener ends on its own (a listener failure is fatal to the server). It always
// stops the other tasks before returning, and returns any non-interrupt error they reported.
func (s *Server) Run(ctx context.Context) error {
	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)
	logger.Info(ctx, "Starting relay %s : %s", s.config.RelayID, s.config)

	s.seedMonitor(ctx)

	pollPeriod := time.Duration(s.config.mempoolPollSeconds()) * time.Second
	monitorThread := threads.NewPeriodicTask("Mempool Monitor", pollPeriod, s.pollMempool)
	uplinkThread := threads.NewThread("Bus Uplink", s.runUplink)
	fanoutDone := make(chan struct{})
	fanoutThread := threads.NewThread("Client Fan-out",
		func(ctx context.Context, interrupt <-chan interface{}) error {
			defer close(fanoutDone)
			return s.runFanout(ctx, interrupt)
		})

	s.threads = threads.Threads{monitorThread, uplinkThread, fanoutThread}
	for _, thread := range s.threads {
		thread.SetWait(&s.wait)
	}
	s.threads.Start(ctx)

	select {
	case <-ctx.Done():
	case <-fanoutDone:
		logger.Error(ctx, "Client fan-out ended, stopping relay %s", s.config.RelayID)
	}
	logger.Info(ctx, "Stopping relay %s", s.config.RelayID)
	s.threads.Stop(ctx)
	s.wait.Wait()

	if err := threads.CombineErrors(s.threads.Errors()...); err != nil &&
		errors.Cause(err) != threads.Interrupted {
		return err
	}
	return nil
}
