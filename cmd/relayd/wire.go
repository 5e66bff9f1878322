package main

import (
	"github.com/rs/zerolog"

	"github.com/whiteelite/relay/internal/application/assembly"
	"github.com/whiteelite/relay/internal/application/gasless"
	"github.com/whiteelite/relay/internal/application/submission"
	"github.com/whiteelite/relay/internal/config"
	"github.com/whiteelite/relay/internal/domain/repositories"
	sdk "github.com/whiteelite/relay/internal/infrastructure/blockchain/solana"
	"github.com/whiteelite/relay/internal/infrastructure/http/api"
	"github.com/whiteelite/relay/internal/infrastructure/messaging/kafka"
	"github.com/whiteelite/relay/internal/infrastructure/relay/kora"
	"github.com/whiteelite/relay/internal/infrastructure/relay/octane"
	"github.com/whiteelite/relay/internal/infrastructure/relay/transport"
	"github.com/whiteelite/relay/internal/metrics"
)

type publisher interface {
	repositories.SubmissionPublisher
	Close()
}

type app struct {
	server    *api.Server
	publisher publisher
}

func (a *app) Close() {
	a.publisher.Close()
}

// newApp wires the relay, ledger, submitter and API server. Without a relay
// URL the API is served with the gasless routes disabled.
func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	m := metrics.New()

	var pub publisher = kafka.NopPublisher{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		p, err := kafka.OpenSubmissionPublisher(brokers, cfg.KafkaTopic, log)
		if err != nil {
			return nil, err
		}
		pub = p
	}

	var service api.GaslessService
	if cfg.GaslessEnabled() {
		rpcURL, err := ledgerURL(cfg)
		if err != nil {
			pub.Close()
			return nil, err
		}
		ledger := sdk.NewClient(rpcURL)
		relay := newRelay(cfg, ledger, m, log)
		submitter := submission.NewSubmitter(relay, ledger, log,
			submission.WithPublisher(pub),
			submission.WithMetrics(m),
			submission.WithConfirmation(cfg.BroadcastConfirmTimeout, cfg.BroadcastPollInterval),
		)
		service = gasless.NewService(relay, ledger, submitter, log)
		log.Info().Str("relay", relay.Kind()).Str("url", cfg.RelayRPCURL).Msg("Gasless relay configured")
	} else {
		log.Warn().Msgf("%s not set, gasless API disabled", config.KeyRelayRPCURL)
	}

	return &app{
		server:    api.NewServer(log, cfg.HTTPPort, service, m),
		publisher: pub,
	}, nil
}

// ledgerURL is the configured RPC endpoint, or the public one of the
// configured network.
func ledgerURL(cfg *config.Config) (string, error) {
	if cfg.SolanaRPCURL != "" {
		return cfg.SolanaRPCURL, nil
	}
	network, err := sdk.ParseNetwork(cfg.SolanaNetwork)
	if err != nil {
		return "", err
	}
	return sdk.DefaultRPCURL(network), nil
}

func newRelay(cfg *config.Config, ledger repositories.Ledger, m *metrics.Metrics, log zerolog.Logger) repositories.Relay {
	t := transport.New(transport.Options{
		BaseURL:    cfg.RelayRPCURL,
		APIKey:     cfg.RelayAPIKey,
		HMACSecret: cfg.RelayHMACSecret,
		Timeout:    cfg.RelayTimeout,
		RateLimit:  cfg.RelayRateLimit,
		Metrics:    m,
	})
	assembler := assembly.NewAssembler(ledger, log)

	switch cfg.RelayKind {
	case config.RelayKindOctane:
		return octane.NewClient(t, assembler, log)
	default:
		return kora.NewClient(t, assembler, log)
	}
}

var (
	_ publisher = kafka.NopPublisher{}
	_ publisher = (*kafka.SubmissionPublisher)(nil)
)
