package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vnprc/bitcoin-nostr-relay/internal/btcrpc"
	"github.com/vnprc/bitcoin-nostr-relay/internal/nostrevent"
	"github.com/vnprc/bitcoin-nostr-relay/internal/validator"
)

// testRPCServer holds the canned answers newTestRPCServer gives: getrawmempool is always empty,
// sendrawtransaction returns sendErr if set and sendResult otherwise, and testmempoolaccept
// returns acceptResult, or allowed when it is nil. Any other method fails the test.
type testRPCServer struct {
	sendResult   string
	sendErr      *rpcTestError
	acceptResult *btcrpc.MempoolAcceptResult
}

type rpcTestError struct {
	Code    int
	Message string
}

func newTestRPCServer(t *testing.T, behavior testRPCServer) *httptest.Server {
	type rpcRequest struct {
		Method string          `json:"method"`
		Params []interface{}   `json:"params"`
		ID     json.RawMessage `json:"id"`
	}
	type rpcErr struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	type rpcResponse struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcErr         `json:"error"`
		ID     json.RawMessage `json:"id"`
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request : %s", err)
		}

		response := rpcResponse{ID: req.ID}
		switch req.Method {
		case "getrawmempool":
			b, _ := json.Marshal([]string{})
			response.Result = b

		case "sendrawtransaction":
			if behavior.sendErr != nil {
				response.Error = &rpcErr{Code: behavior.sendErr.Code, Message: behavior.sendErr.Message}
			} else {
				b, _ := json.Marshal(behavior.sendResult)
				response.Result = b
			}

		case "testmempoolaccept":
			result := behavior.acceptResult
			if result == nil {
				result = &btcrpc.MempoolAcceptResult{Allowed: true}
			}
			b, _ := json.Marshal([]btcrpc.MempoolAcceptResult{*result})
			response.Result = b

		default:
			t.Fatalf("unexpected method %s", req.Method)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
}

func newTestServer(t *testing.T, behavior testRPCServer) *Server {
	rpcServer := newTestRPCServer(t, behavior)
	t.Cleanup(rpcServer.Close)

	server, err := New(Config{
		RPC:     btcrpc.Config{Host: rpcServer.Listener.Addr().String()},
		BusURL:  "ws://unused.invalid",
		RelayID: "relay-under-test",
		Validator: validator.Config{
			Enabled:         true,
			PrecheckEnabled: true,
			ProbeEnabled:    true,
			ProbeTimeoutMS:  500,
			CacheTTLS:       300,
			CacheSize:       10,
		},
		ClientBufferSize: 4,
	})
	if err != nil {
		t.Fatalf("failed to build server : %s", err)
	}
	return server
}

func Test_HandleSubmitTx_Accepted(t *testing.T) {
	server := newTestServer(t, testRPCServer{sendResult: sampleSentTxID})

	ch := make(chan nostrevent.Event, 4)
	server.clients.add("client-1", ch)

	event := &nostrevent.Event{Kind: nostrevent.KindSubmitTx, Content: sampleRelayTxHex}
	server.handleSubmitTx(context.Background(), "client-1", event)

	resp := mustReceiveTxResponse(t, ch)
	if !resp.Success {
		t.Fatalf("expected success, got message %q", resp.Message)
	}
	if resp.TxID != sampleSentTxID {
		t.Errorf("wrong txid : got %s, want %s", resp.TxID, sampleSentTxID)
	}
}

func Test_HandleSubmitTx_EmptyContent(t *testing.T) {
	server := newTestServer(t, testRPCServer{})

	ch := make(chan nostrevent.Event, 4)
	server.clients.add("client-1", ch)

	event := &nostrevent.Event{Kind: nostrevent.KindSubmitTx, Content: ""}
	server.handleSubmitTx(context.Background(), "client-1", event)

	resp := mustReceiveTxResponse(t, ch)
	if resp.Success {
		t.Fatal("expected failure for empty content")
	}
	if resp.TxID != "" {
		t.Errorf("expected empty txid, got %s", resp.TxID)
	}
}

func Test_HandleSubmitTx_Undersized(t *testing.T) {
	server := newTestServer(t, testRPCServer{})

	ch := make(chan nostrevent.Event, 4)
	server.clients.add("client-1", ch)

	event := &nostrevent.Event{Kind: nostrevent.KindSubmitTx, Content: strings.Repeat("aa", 59)}
	server.handleSubmitTx(context.Background(), "client-1", event)

	resp := mustReceiveTxResponse(t, ch)
	if resp.Success {
		t.Fatal("expected failure for undersized content")
	}
}

func Test_HandleRemoteTransaction_SelfOrigin(t *testing.T) {
	server := newTestServer(t, testRPCServer{sendErr: &rpcTestError{Message: "should not be called"}})

	content, _ := json.Marshal(txBroadcastContent{TxID: "deadbeef-txid", Hex: sampleRelayTxHex})
	event := &nostrevent.Event{
		Kind:    nostrevent.KindTxBroadcast,
		Content: string(content),
		Tags:    []nostrevent.Tag{{"relay_id", "relay-under-test"}},
	}

	server.handleRemoteTransaction(context.Background(), event)

	if server.remoteTxs.contains("deadbeef-txid") {
		t.Error("self-originated broadcast must not be recorded as a remote transaction")
	}
}

func Test_HandleRemoteTransaction_Ingests(t *testing.T) {
	server := newTestServer(t, testRPCServer{sendResult: sampleSentTxID})

	content, _ := json.Marshal(txBroadcastContent{TxID: "remote-txid", Hex: sampleRelayTxHex})
	event := &nostrevent.Event{
		Kind:    nostrevent.KindTxBroadcast,
		Content: string(content),
		Tags:    []nostrevent.Tag{{"relay_id", "some-other-relay"}},
	}

	server.handleRemoteTransaction(context.Background(), event)

	if !server.remoteTxs.contains("remote-txid") {
		t.Error("expected remote-txid to be recorded before submission")
	}
}

func mustReceiveTxResponse(t *testing.T, ch chan nostrevent.Event) txResponseContent {
	t.Helper()
	select {
	case event := <-ch:
		if event.Kind != nostrevent.KindTxResponse {
			t.Fatalf("wrong kind : got %d, want %d", event.Kind, nostrevent.KindTxResponse)
		}
		var content txResponseContent
		if err := json.Unmarshal([]byte(event.Content), &content); err != nil {
			t.Fatalf("failed to decode TX_RESPONSE content : %s", err)
		}
		return content
	default:
		t.Fatal("expected a TX_RESPONSE on the client channel")
		return txResponseContent{}
	}
}

// sampleSentTxID is a well-formed 32-byte txid used as the node's canned sendrawtransaction result.
var sampleSentTxID = strings.Repeat("cc", 32)

// sampleRelayTxHex is a minimal, well-formed single-input single-output legacy transaction.
var sampleRelayTxHex = "01000000" +
	"01" +
	strings.Repeat("11", 32) +
	"00000000" +
	"00" +
	"ffffffff" +
	"01" +
	"00e1f50500000000" +
	"1976a914097072524438d003d23a2f23edb65aae1bb3e46988ac" +
	"00000000"
