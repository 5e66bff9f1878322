package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	RelayKindKora   = "kora"
	RelayKindOctane = "octane"

	DefaultSolanaNetwork = "devnet"
)

// Keys double as environment variable names.
const (
	KeyRelayKind               = "RELAY_KIND"
	KeyRelayRPCURL             = "RELAY_RPC_URL"
	KeyRelayAPIKey             = "RELAY_API_KEY"
	KeyRelayHMACSecret         = "RELAY_HMAC_SECRET"
	KeyRelayRateLimit          = "RELAY_RATE_LIMIT"
	KeyRelayTimeout            = "RELAY_TIMEOUT"
	KeySolanaRPCURL            = "SOLANA_RPC_URL"
	KeySolanaNetwork           = "SOLANA_NETWORK"
	KeyHTTPPort                = "HTTP_PORT"
	KeyLogLevel                = "LOG_LEVEL"
	KeyLogFormat               = "LOG_FORMAT"
	KeyKafkaBrokers            = "KAFKA_BROKERS"
	KeyKafkaTopic              = "KAFKA_TOPIC"
	KeyKafkaGroupID            = "KAFKA_GROUP_ID"
	KeyBroadcastConfirmTimeout = "BROADCAST_CONFIRM_TIMEOUT"
	KeyBroadcastPollInterval   = "BROADCAST_POLL_INTERVAL"
)

type Config struct {
	RelayKind       string        `mapstructure:"RELAY_KIND"`
	RelayRPCURL     string        `mapstructure:"RELAY_RPC_URL"`
	RelayAPIKey     string        `mapstructure:"RELAY_API_KEY"`
	RelayHMACSecret string        `mapstructure:"RELAY_HMAC_SECRET"`
	RelayRateLimit  int           `mapstructure:"RELAY_RATE_LIMIT"`
	RelayTimeout    time.Duration `mapstructure:"RELAY_TIMEOUT"`

	// SolanaRPCURL overrides the public endpoint of SolanaNetwork.
	SolanaRPCURL  string `mapstructure:"SOLANA_RPC_URL"`
	SolanaNetwork string `mapstructure:"SOLANA_NETWORK"`

	HTTPPort  int    `mapstructure:"HTTP_PORT"`
	LogLevel  int    `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	BroadcastConfirmTimeout time.Duration `mapstructure:"BROADCAST_CONFIRM_TIMEOUT"`
	BroadcastPollInterval   time.Duration `mapstructure:"BROADCAST_POLL_INTERVAL"`
}

// NewViper returns a viper instance with every key defaulted and bound to
// the environment.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyRelayKind, RelayKindKora)
	v.SetDefault(KeyRelayRPCURL, "")
	v.SetDefault(KeyRelayAPIKey, "")
	v.SetDefault(KeyRelayHMACSecret, "")
	v.SetDefault(KeyRelayRateLimit, 0)
	v.SetDefault(KeyRelayTimeout, 30*time.Second)
	v.SetDefault(KeySolanaRPCURL, "")
	v.SetDefault(KeySolanaNetwork, DefaultSolanaNetwork)
	v.SetDefault(KeyHTTPPort, 8080)
	v.SetDefault(KeyLogLevel, 1)
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyKafkaBrokers, "")
	v.SetDefault(KeyKafkaTopic, "gasless-submissions")
	v.SetDefault(KeyKafkaGroupID, "gasless-audit")
	v.SetDefault(KeyBroadcastConfirmTimeout, 20*time.Second)
	v.SetDefault(KeyBroadcastPollInterval, time.Second)

	v.AutomaticEnv()
	return v
}

// Load reads the merged configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.RelayKind = strings.ToLower(strings.TrimSpace(cfg.RelayKind))
	cfg.RelayRPCURL = strings.TrimSpace(cfg.RelayRPCURL)
	cfg.SolanaRPCURL = strings.TrimSpace(cfg.SolanaRPCURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.LogLevel < 0 || c.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}
	if c.RelayKind != RelayKindKora && c.RelayKind != RelayKindOctane {
		return fmt.Errorf("relay kind must be '%s' or '%s', got %q", RelayKindKora, RelayKindOctane, c.RelayKind)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535")
	}
	if c.RelayRateLimit < 0 {
		return fmt.Errorf("relay rate limit must not be negative")
	}
	if c.RelayTimeout <= 0 {
		return fmt.Errorf("relay timeout must be positive")
	}
	if c.BroadcastPollInterval <= 0 {
		return fmt.Errorf("broadcast poll interval must be positive")
	}
	return nil
}

// GaslessEnabled reports whether a relay is configured. Without one the
// gasless API answers but refuses every action.
func (c *Config) GaslessEnabled() bool {
	return c.RelayRPCURL != ""
}

func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
