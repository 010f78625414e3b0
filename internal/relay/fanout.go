package relay

import (
	"context"
	"net/http"

	"github.com/vnprc/bitcoin-nostr-relay/internal/logger"
	"github.com/vnprc/bitcoin-nostr-relay/internal/nostrevent"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// runFanout is the Client Fan-out's ThreadInterruptFunction: it runs the WebSocket listener until
// interrupted, then shuts it down gracefully. An accept-loop failure that isn't a graceful
// shutdown is fatal, per the acceptor's error-handling policy.
func (s *Server) runFanout(ctx context.Context, interrupt <-chan interface{}) error {
	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem+"-Fanout")

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.serveClient(ctx, w, r)
	})

	httpServer := &http.Server{Addr: s.config.ListenAddress, Handler: mux}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Client fan-out listening on %s", s.config.ListenAddress)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-interrupt:
		return httpServer.Shutdown(context.Background())

	case err := <-serveErr:
		if errors.Cause(err) == http.ErrServerClosed {
			return nil
		}
		return errors.Wrap(err, "client fan-out listener")
	}
}

// serveClient upgrades one HTTP connection to a WebSocket, registers its outbound channel, and
// runs the inbound/outbound leg pair until the socket closes.
func (s *Server) serveClient(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(ctx, "Failed to upgrade client connection : %s", err)
		return
	}

	if s.clients.count() >= s.config.maxClientConnections() {
		logger.Warn(ctx, "Rejecting client %s, at max connections", r.RemoteAddr)
		conn.Close()
		return
	}

	// A generated id rather than r.RemoteAddr keeps the registry key unique even behind a proxy
	// that reuses source ports across connections.
	clientID := uuid.New().String()
	outbound := make(chan nostrevent.Event, s.config.clientBufferSize())
	s.clients.add(clientID, outbound)
	logger.Info(ctx, "Client %s connected from %s", clientID, r.RemoteAddr)

	done := make(chan struct{})
	go s.clientOutboundLeg(ctx, clientID, conn, outbound, done)
	s.clientInboundLeg(ctx, clientID, conn)

	close(done)
	s.clients.remove(clientID)
	conn.Close()
	logger.Info(ctx, "Client %s disconnected", clientID)
}

// clientInboundLeg reads frames from conn until it errors, closes, or sends a frame that does not
// decode, dispatching each decoded frame to handleNostrMessage. Returning from this function is the
// trigger for tearing down the connection's outbound leg.
func (s *Server) clientInboundLeg(ctx context.Context, clientID string, conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		tag, parts, err := decodeFrame(message)
		if err != nil {
			logger.Verbose(ctx, "Client %s sent malformed frame : %s", clientID, err)
			return
		}

		s.handleNostrMessage(ctx, clientID, tag, parts)
	}
}

// clientOutboundLeg serializes events from the client's channel to the socket until done is
// closed or a send fails.
func (s *Server) clientOutboundLeg(ctx context.Context, clientID string, conn *websocket.Conn,
	outbound <-chan nostrevent.Event, done <-chan struct{}) {

	subID := clientID
	for {
		select {
		case <-done:
			return

		case event := <-outbound:
			frame, err := encodeClientEvent(subID, event)
			if err != nil {
				logger.Warn(ctx, "Failed to encode event for client %s : %s", clientID, err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}
}
