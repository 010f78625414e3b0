package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/vnprc/bitcoin-nostr-relay/internal/btcrpc"
	"github.com/vnprc/bitcoin-nostr-relay/internal/logger"
	"github.com/vnprc/bitcoin-nostr-relay/internal/relay"
	"github.com/vnprc/bitcoin-nostr-relay/internal/validator"

	"github.com/kelseyhightower/envconfig"
)

var (
	buildVersion = "unknown"
	buildDate    = "unknown"
	buildUser    = "unknown"
)

func main() {
	// -------------------------------------------------------------------------
	// Logging
	logConfig := logger.NewDevelopmentConfig()
	logConfig.EnableSubSystem(relay.SubSystem)
	logConfig.EnableSubSystem(relay.SubSystem + "-Uplink")
	logConfig.EnableSubSystem(relay.SubSystem + "-Fanout")
	logConfig.EnableSubSystem(btcrpc.SubSystem)
	logConfig.EnableSubSystem(validator.SubSystem)
	ctx := logger.ContextWithLogConfig(context.Background(), logConfig)

	// -------------------------------------------------------------------------
	// Config

	var cfg struct {
		RPC struct {
			Host     string `envconfig:"RPC_HOST"`
			Username string `envconfig:"RPC_USERNAME"`
			Password string `envconfig:"RPC_PASSWORD"`
		}
		Bus struct {
			URL string `envconfig:"BUS_URL"`
		}
		RelayID       string `envconfig:"RELAY_ID"`
		ListenAddress string `default:":8080" envconfig:"LISTEN_ADDRESS"`
		PrivateKeyHex string `envconfig:"PRIVATE_KEY_HEX"`
		PollSeconds   int    `default:"2" envconfig:"MEMPOOL_POLL_SECONDS"`
		MaxClients    int    `default:"1000" envconfig:"MAX_CLIENT_CONNECTIONS"`
		ClientBuffer  int    `default:"100" envconfig:"CLIENT_BUFFER_SIZE"`
		Validator     struct {
			Enabled        bool `default:"true" envconfig:"VALIDATION_ENABLED"`
			Precheck       bool `default:"true" envconfig:"VALIDATION_PRECHECK_ENABLED"`
			Probe          bool `default:"true" envconfig:"VALIDATION_PROBE_ENABLED"`
			ProbeTimeoutMS int  `default:"2000" envconfig:"VALIDATION_PROBE_TIMEOUT_MS"`
			CacheTTLS      int  `default:"300" envconfig:"VALIDATION_CACHE_TTL_SECONDS"`
			CacheSize      int  `default:"10000" envconfig:"VALIDATION_CACHE_SIZE"`
		}
	}

	if err := envconfig.Process("RELAY", &cfg); err != nil {
		logger.Fatal(ctx, "Parsing config : %s", err)
		return
	}

	logger.Info(ctx, "Started : Application Initializing")
	logger.Info(ctx, "Build %v (%v on %v)", buildVersion, buildUser, buildDate)

	logCfg := cfg
	logCfg.RPC.Password = "****"
	if logCfg.PrivateKeyHex != "" {
		logCfg.PrivateKeyHex = "****"
	}
	cfgJSON, err := json.MarshalIndent(logCfg, "", "    ")
	if err != nil {
		logger.Fatal(ctx, "Marshalling config to JSON : %s", err)
		return
	}
	logger.Info(ctx, "Config : %s", string(cfgJSON))

	if cfg.RelayID == "" {
		logger.Fatal(ctx, "RELAY_ID is required")
		return
	}
	if cfg.Bus.URL == "" {
		logger.Fatal(ctx, "BUS_URL is required")
		return
	}

	// -------------------------------------------------------------------------
	// Relay Server

	config := relay.Config{
		RPC: btcrpc.Config{
			Host:     cfg.RPC.Host,
			Username: cfg.RPC.Username,
			Password: cfg.RPC.Password,
		},
		BusURL:               cfg.Bus.URL,
		RelayID:              cfg.RelayID,
		ListenAddress:        cfg.ListenAddress,
		PrivateKeyHex:        cfg.PrivateKeyHex,
		MempoolPollSeconds:   cfg.PollSeconds,
		MaxClientConnections: cfg.MaxClients,
		ClientBufferSize:     cfg.ClientBuffer,
		Validator: validator.Config{
			Enabled:         cfg.Validator.Enabled,
			PrecheckEnabled: cfg.Validator.Precheck,
			ProbeEnabled:    cfg.Validator.Probe,
			ProbeTimeoutMS:  cfg.Validator.ProbeTimeoutMS,
			CacheTTLS:       cfg.Validator.CacheTTLS,
			CacheSize:       cfg.Validator.CacheSize,
		},
	}

	server, err := relay.New(config)
	if err != nil {
		logger.Fatal(ctx, "Failed to create relay server : %s", err)
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Run(runCtx)
	}()

	// -------------------------------------------------------------------------
	// Shutdown

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			logger.Error(ctx, "Relay server failure : %s", err)
		}

	case sig := <-osSignals:
		logger.Info(ctx, "Received signal : %s", sig)
		cancel()
		if err := <-serverErrors; err != nil {
			logger.Error(ctx, "Relay server failure during shutdown : %s", err)
		}
	}

	logger.Info(ctx, "Completed")
}
