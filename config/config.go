package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Server   ServerConfig   `mapstructure:"server"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type LedgerConfig struct {
	Chain         string         `mapstructure:"chain"` // ethereum or bitcoin
	SubmitTimeout time.Duration  `mapstructure:"submit_timeout"`
	Ethereum      EthereumConfig `mapstructure:"ethereum"`
	Bitcoin       BitcoinConfig  `mapstructure:"bitcoin"`
}

type EthereumConfig struct {
	RPCURL  string `mapstructure:"rpc_url"`
	ChainID int64  `mapstructure:"chain_id"`
}

type BitcoinConfig struct {
	RPCHost string `mapstructure:"rpc_host"`
	RPCUser string `mapstructure:"rpc_user"`
	RPCPass string `mapstructure:"rpc_pass"`
	Network string `mapstructure:"network"`
	FeeSats int64  `mapstructure:"fee_sats"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type WatcherConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads config.yaml (if present) with environment overrides, e.g.
// TELEGRAM_TOKEN or LEDGER_CHAIN. A .env file is loaded first when one
// exists.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	// every key needs a default so AutomaticEnv can feed Unmarshal even
	// when the config file omits it
	v.SetDefault("telegram.token", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("ledger.chain", "ethereum")
	v.SetDefault("ledger.submit_timeout", "30s")
	v.SetDefault("ledger.ethereum.rpc_url", "")
	v.SetDefault("ledger.ethereum.chain_id", 0)
	v.SetDefault("ledger.bitcoin.rpc_host", "")
	v.SetDefault("ledger.bitcoin.rpc_user", "")
	v.SetDefault("ledger.bitcoin.rpc_pass", "")
	v.SetDefault("ledger.bitcoin.network", "mainnet")
	v.SetDefault("ledger.bitcoin.fee_sats", 10000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("watcher.enabled", true)
	v.SetDefault("watcher.interval", "1m")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Ledger.Chain != "ethereum" && cfg.Ledger.Chain != "bitcoin" {
		return nil, fmt.Errorf("unsupported ledger chain %q", cfg.Ledger.Chain)
	}
	return cfg, nil
}
