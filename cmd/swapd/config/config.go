// Package config loads the swapd configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Config is the swapd runtime configuration.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// FeeBps is the swap fee applied to every pair, in basis points.
	// Zero selects the default of 30 (0.3%).
	FeeBps uint16 `yaml:"fee_bps"`

	// RouterAddress identifies the router as a token spender. Empty selects
	// a derived default.
	RouterAddress string `yaml:"router_address"`
}

// LoadConfig reads the configuration file at path, overlays environment
// variables and validates the result. A missing file is not an error; the
// defaults and environment carry the configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults apply
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.overlayEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayEnv() {
	if v := os.Getenv("SWAPD_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("SWAPD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SWAPD_FEE_BPS"); v != "" {
		if bps, err := strconv.ParseUint(v, 10, 16); err == nil {
			c.FeeBps = uint16(bps)
		}
	}
	if v := os.Getenv("SWAPD_ROUTER_ADDRESS"); v != "" {
		c.RouterAddress = v
	}
}

func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return errors.New("config: listen_addr cannot be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	if c.FeeBps >= 10000 {
		return fmt.Errorf("config: fee_bps %d must be below 10000", c.FeeBps)
	}
	if c.RouterAddress != "" && !common.IsHexAddress(c.RouterAddress) {
		return fmt.Errorf("config: invalid router_address %q", c.RouterAddress)
	}
	return nil
}

// Router returns the configured router address, zero if unset.
func (c *Config) Router() common.Address {
	if c.RouterAddress == "" {
		return common.Address{}
	}
	return common.HexToAddress(c.RouterAddress)
}
