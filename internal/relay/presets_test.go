package relay

import (
	"testing"

	"github.com/pkg/errors"
)

func Test_NetworkPreset_Regtest(t *testing.T) {
	config, err := NetworkPreset(NetworkRegtest, 1)
	if err != nil {
		t.Fatalf("unexpected error : %s", err)
	}
	if config.RPC.Host != "127.0.0.1:18332" {
		t.Errorf("wrong RPC host : got %s", config.RPC.Host)
	}
	if config.BusURL != "ws://127.0.0.1:7777" {
		t.Errorf("wrong bus url : got %s", config.BusURL)
	}
	if config.ListenAddress != "127.0.0.1:7779" {
		t.Errorf("wrong listen address : got %s", config.ListenAddress)
	}
	if config.RelayID != "1" {
		t.Errorf("wrong relay id : got %s", config.RelayID)
	}

	config2, err := NetworkPreset(NetworkRegtest, 2)
	if err != nil {
		t.Fatalf("unexpected error : %s", err)
	}
	if config2.RPC.Host != "127.0.0.1:18444" {
		t.Errorf("wrong RPC host : got %s", config2.RPC.Host)
	}
}

func Test_NetworkPreset_Testnet4(t *testing.T) {
	config, err := NetworkPreset(NetworkTestnet4, 1)
	if err != nil {
		t.Fatalf("unexpected error : %s", err)
	}
	if config.RPC.Host != "127.0.0.1:48330" {
		t.Errorf("wrong RPC host : got %s", config.RPC.Host)
	}
}

func Test_NetworkPreset_Unsupported(t *testing.T) {
	_, err := NetworkPreset(NetworkRegtest, 99)
	if errors.Cause(err) != ErrUnsupportedPreset {
		t.Errorf("wrong error : got %v, want ErrUnsupportedPreset", err)
	}
}
