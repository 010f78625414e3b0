package relay

import (
	"context"
	"time"

	"github.com/vnprc/bitcoin-nostr-relay/internal/logger"
	"github.com/vnprc/bitcoin-nostr-relay/internal/nostrevent"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const uplinkReconnectDelay = 5 * time.Second

// runUplink is the Bus Uplink's ThreadInterruptFunction: it never returns except when interrupt
// fires. On any connection failure or read/write error it sleeps uplinkReconnectDelay and
// reconnects; events queued on uplinkOutbox during an outage are delivered, in order, once the
// connection is re-established.
func (s *Server) runUplink(ctx context.Context, interrupt <-chan interface{}) error {
	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem+"-Uplink")

	for {
		select {
		case <-interrupt:
			return nil
		default:
		}

		if err := s.runUplinkConnection(ctx, interrupt); err != nil {
			logger.Warn(ctx, "Bus uplink connection ended : %s", err)
		}

		select {
		case <-interrupt:
			return nil
		case <-time.After(uplinkReconnectDelay):
		}
	}
}

func (s *Server) runUplinkConnection(ctx context.Context, interrupt <-chan interface{}) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.config.BusURL, nil)
	if err != nil {
		return errors.Wrap(err, "dial bus relay")
	}
	defer conn.Close()

	logger.Info(ctx, "Bus uplink connected to %s", s.config.BusURL)

	filter := mempoolFilter{
		Kinds: []int{nostrevent.KindTxBroadcast},
		Tags:  []string{"bitcoin", "transaction"},
		Since: nowUnix(),
	}
	reqFrame, err := encodeReq(s.config.SubscriptionID(), filter)
	if err != nil {
		return errors.Wrap(err, "encode REQ frame")
	}
	if err := conn.WriteMessage(websocket.TextMessage, reqFrame); err != nil {
		return errors.Wrap(err, "send REQ frame")
	}

	inbound := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				close(inbound)
				return
			}
			inbound <- message
		}
	}()

	for {
		select {
		case <-interrupt:
			return nil

		case err := <-readErr:
			return errors.Wrap(err, "read from bus relay")

		case message, ok := <-inbound:
			if !ok {
				continue
			}
			s.handleUplinkFrame(ctx, message)

		case <-s.uplinkOutbox.Notify():
			for {
				event, ok := s.uplinkOutbox.Pop()
				if !ok {
					break
				}

				frame, err := encodeUplinkEvent(event)
				if err != nil {
					logger.Warn(ctx, "Failed to encode outbound event %s : %s", event.ID, err)
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					// Requeue so the event isn't lost across the reconnect.
					s.uplinkOutbox.Push(event)
					return errors.Wrap(err, "write to bus relay")
				}
			}
		}
	}
}

func (s *Server) handleUplinkFrame(ctx context.Context, message []byte) {
	tag, parts, err := decodeFrame(message)
	if err != nil {
		logger.Verbose(ctx, "Ignoring malformed bus frame : %s", err)
		return
	}

	if tag != frameTagEvent {
		return
	}

	_, event, err := decodeBusEventFrame(parts)
	if err != nil {
		logger.Verbose(ctx, "Ignoring malformed bus EVENT frame : %s", err)
		return
	}

	if event.Kind != nostrevent.KindTxBroadcast {
		return
	}

	s.handleRemoteTransaction(ctx, event)
}
