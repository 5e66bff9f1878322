package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/whiteelite/relay/internal/config"
	"github.com/whiteelite/relay/internal/domain/entities"
	"github.com/whiteelite/relay/internal/infrastructure/messaging/kafka"
	"github.com/whiteelite/relay/internal/logger"
)

const shutdownTimeout = 15 * time.Second

func InitRootCmd(rootCmd *cobra.Command, v *viper.Viper) {
	rootCmd.AddCommand(serveCmd(v))
	rootCmd.AddCommand(auditCmd(v))
	rootCmd.AddCommand(versionCmd())
}

func serveCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the gasless API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel, cfg.LogFormat)

			app, err := newApp(cfg, log)
			if err != nil {
				return fmt.Errorf("failed to build relay service: %w", err)
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := app.server.Start(); err != nil {
				return err
			}
			<-ctx.Done()
			log.Info().Msg("Shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return app.server.Stop(shutdownCtx)
		},
	}

	cmd.Flags().Int("port", 8080, "HTTP listen port")
	cmd.Flags().String("relay-kind", config.RelayKindKora, "relay protocol: kora or octane")
	cmd.Flags().String("relay-url", "", "relay endpoint; empty disables the gasless API")
	cmd.Flags().String("solana-rpc", "", "Solana RPC endpoint; overrides --solana-network")
	cmd.Flags().String("solana-network", config.DefaultSolanaNetwork, "public cluster: mainnet, devnet or testnet")
	bindFlags(v, cmd, map[string]string{
		config.KeyHTTPPort:      "port",
		config.KeyRelayKind:     "relay-kind",
		config.KeyRelayRPCURL:   "relay-url",
		config.KeySolanaRPCURL:  "solana-rpc",
		config.KeySolanaNetwork: "solana-network",
	}, false)

	return cmd
}

func auditCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Tail submission events from kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			brokers := cfg.Brokers()
			if len(brokers) == 0 {
				return fmt.Errorf("audit requires %s", config.KeyKafkaBrokers)
			}
			log := logger.New(cfg.LogLevel, cfg.LogFormat)

			consumer, err := kafka.OpenSubmissionConsumer(brokers, cfg.KafkaTopic, cfg.KafkaGroupID, log)
			if err != nil {
				return err
			}
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("Tailing submission events")
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-consumer.ToConsumeBuffered():
					if !ok {
						return nil
					}
					logEvent(log, event)
				}
			}
		},
	}

	cmd.Flags().String("group", "gasless-audit", "kafka consumer group")
	bindFlags(v, cmd, map[string]string{config.KeyKafkaGroupID: "group"}, false)

	return cmd
}

func logEvent(log zerolog.Logger, event entities.SubmissionEvent) {
	e := log.Info()
	if event.Outcome == entities.OutcomeFailed {
		e = log.Warn().Str("error", event.Error)
	}
	e.Str("id", event.ID.String()).
		Str("action", event.Action).
		Str("outcome", string(event.Outcome)).
		Interface("signature", event.Signature).
		Interface("transfers", event.Transfers).
		Time("at", event.At).
		Msg("Submission event")
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print relayd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "relayd %s\n", Version)
		},
	}
}
