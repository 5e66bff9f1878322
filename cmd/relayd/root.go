package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/whiteelite/relay/internal/config"
)

var Version = "dev"

func NewRootCmd() *cobra.Command {
	return newRootCmd(config.NewViper())
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "relayd",
		Short:         "Gasless SPL token payment relay",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.Int("log-level", 1, "zerolog level, 0 (debug) to 5 (panic)")
	flags.String("log-format", "console", "log format: console or json")
	flags.String("kafka-brokers", "", "comma separated kafka brokers; empty disables submission events")
	flags.String("kafka-topic", "gasless-submissions", "submission event topic")
	bindFlags(v, rootCmd, map[string]string{
		config.KeyLogLevel:     "log-level",
		config.KeyLogFormat:    "log-format",
		config.KeyKafkaBrokers: "kafka-brokers",
		config.KeyKafkaTopic:   "kafka-topic",
	}, true)

	InitRootCmd(rootCmd, v)

	return rootCmd
}

// bindFlags lets flags override the environment for the given config keys.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}
