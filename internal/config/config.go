// Package config loads ethwallet settings from the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ethwallet/ethwallet/internal/node"
	"github.com/ethwallet/ethwallet/internal/walletgen"
)

// Config contains all configuration parameters for the application.
type Config struct {
	Network      string        `envconfig:"ETH_NETWORK"`
	ProviderHost string        `envconfig:"ETH_PROVIDER_HOST"`
	APIKey       string        `envconfig:"ETH_API_KEY"`
	WalletPath   string        `envconfig:"WALLET_PATH" default:"wallet.json"`
	HistoryPath  string        `envconfig:"WALLET_HISTORY_PATH" default:"wallet_history.db"`
	DialTimeout  time.Duration `envconfig:"ETH_DIAL_TIMEOUT" default:"15s"`
	RPCTimeout   time.Duration `envconfig:"ETH_RPC_TIMEOUT" default:"30s"`
	RPCRate      float64       `envconfig:"ETH_RPC_RATE" default:"5"`
}

// LoadDotEnv merges KEY=VALUE pairs from path into the environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads the full configuration, including the node connection settings.
// Every problem found is reported in one joined error.
func Load() (*Config, error) {
	cfg, err := process()
	if err != nil {
		return nil, err
	}
	if err := errors.Join(cfg.validateLocal(), cfg.validateNode()); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOffline reads the configuration needed for wallet-only operations.
// Node settings may be absent.
func LoadOffline() (*Config, error) {
	cfg, err := process()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateLocal(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func process() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}

// HasNode reports whether node connection settings are present.
func (c *Config) HasNode() bool {
	return c.validateNode() == nil
}

// Endpoint returns the WebSocket URL of the node.
func (c *Config) Endpoint() (string, error) {
	return node.BuildEndpoint(c.Network, c.ProviderHost, c.APIKey)
}

// DialOptions returns node client settings derived from the configuration.
func (c *Config) DialOptions() node.Options {
	return node.Options{
		DialTimeout: c.DialTimeout,
		CallTimeout: c.RPCTimeout,
		RateLimit:   c.RPCRate,
	}
}

func (c *Config) validateLocal() error {
	var errs []error
	if strings.TrimSpace(c.WalletPath) == "" {
		c.WalletPath = walletgen.DefaultWalletFile
	}
	if c.DialTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ETH_DIAL_TIMEOUT must be positive, got %s", c.DialTimeout))
	}
	if c.RPCTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ETH_RPC_TIMEOUT must be positive, got %s", c.RPCTimeout))
	}
	if c.RPCRate <= 0 {
		errs = append(errs, fmt.Errorf("ETH_RPC_RATE must be positive, got %g", c.RPCRate))
	}
	return errors.Join(errs...)
}

func (c *Config) validateNode() error {
	var errs []error
	if strings.TrimSpace(c.Network) == "" {
		errs = append(errs, errors.New("ETH_NETWORK is required"))
	}
	if strings.TrimSpace(c.ProviderHost) == "" {
		errs = append(errs, errors.New("ETH_PROVIDER_HOST is required"))
	}
	if strings.TrimSpace(c.APIKey) == "" {
		errs = append(errs, errors.New("ETH_API_KEY is required"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if _, err := c.Endpoint(); err != nil {
		return err
	}
	return nil
}
