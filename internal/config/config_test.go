package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, RelayKindKora, cfg.RelayKind)
	assert.Equal(t, 30*time.Second, cfg.RelayTimeout)
	assert.Empty(t, cfg.SolanaRPCURL)
	assert.Equal(t, DefaultSolanaNetwork, cfg.SolanaNetwork)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 1, cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "gasless-submissions", cfg.KafkaTopic)
	assert.False(t, cfg.GaslessEnabled())
	assert.Empty(t, cfg.Brokers())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(KeyRelayKind, " Octane ")
	t.Setenv(KeyRelayRPCURL, "https://octane.example.com/api")
	t.Setenv(KeyRelayTimeout, "5s")
	t.Setenv(KeyRelayRateLimit, "20")
	t.Setenv(KeyKafkaBrokers, "kafka-1:9092, kafka-2:9092,")
	t.Setenv(KeyLogFormat, "json")

	cfg, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, RelayKindOctane, cfg.RelayKind)
	assert.True(t, cfg.GaslessEnabled())
	assert.Equal(t, 5*time.Second, cfg.RelayTimeout)
	assert.Equal(t, 20, cfg.RelayRateLimit)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers())
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			RelayKind:             RelayKindKora,
			RelayTimeout:          time.Second,
			HTTPPort:              8080,
			LogLevel:              1,
			LogFormat:             "console",
			BroadcastPollInterval: time.Second,
		}
	}

	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"log level too high", func(c *Config) { c.LogLevel = 6 }, "log level"},
		{"negative log level", func(c *Config) { c.LogLevel = -1 }, "log level"},
		{"bad log format", func(c *Config) { c.LogFormat = "text" }, "log format"},
		{"unknown relay", func(c *Config) { c.RelayKind = "privy" }, "relay kind"},
		{"zero port", func(c *Config) { c.HTTPPort = 0 }, "http port"},
		{"negative rate limit", func(c *Config) { c.RelayRateLimit = -1 }, "rate limit"},
		{"zero timeout", func(c *Config) { c.RelayTimeout = 0 }, "relay timeout"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
