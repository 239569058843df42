// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package config loads the TOML configuration of the oracle service.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/teeoracle/bridge/host"
	"github.com/teeoracle/bridge/internal/coingecko"
	"github.com/teeoracle/bridge/priceoracle"
	"github.com/teeoracle/bridge/randoracle"
	"github.com/teeoracle/bridge/statedb"
)

// Environment variables overriding the file. They are meant to be pinned by
// the enclave manifest and take precedence over everything else.
const (
	EnvDataDir   = "ORACLE_DATADIR"
	EnvDBBackend = "ORACLE_DB_BACKEND"
	EnvKeyFile   = "ORACLE_KEY_FILE"
	EnvFeedKey   = "ORACLE_COINGECKO_KEY"
)

// Config is the service configuration.
type Config struct {
	DataDir   string `toml:"datadir"`
	DBBackend string `toml:"db_backend"`
	CacheSize int    `toml:"cache_size"` // megabytes

	Enclave EnclaveConfig      `toml:"enclave"`
	Feed    coingecko.Config   `toml:"feed"`
	Host    host.Config        `toml:"host"`
	Price   priceoracle.Config `toml:"price"`
	Random  randoracle.Config  `toml:"random"`
	RPC     RPCConfig          `toml:"rpc"`
	Log     LogConfig          `toml:"log"`
}

// EnclaveConfig locates the enclave key and its measurement.
type EnclaveConfig struct {
	KeyFile         string `toml:"key_file"`
	Measurement     string `toml:"measurement"` // hex
	AttestationFile string `toml:"attestation_file"`
	ProjectsFile    string `toml:"projects_file"`
}

// RPCConfig configures the HTTP JSON-RPC endpoint.
type RPCConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CorsOrigins []string `toml:"cors_origins"`
	Relayer     string   `toml:"relayer"` // wallet name used for submitted updates

	// RateLimit caps requests per second per remote host. Zero disables it.
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

// Endpoint returns host:port.
func (c RPCConfig) Endpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig configures logging. An empty File logs to the terminal.
type LogConfig struct {
	Verbosity  int    `toml:"verbosity"`
	JSON       bool   `toml:"json"`
	File       string `toml:"file"`
	MaxSize    int    `toml:"max_size"` // megabytes
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"` // days
	Compress   bool   `toml:"compress"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DataDir:   "oracle-data",
		DBBackend: statedb.BackendPebble,
		CacheSize: 16,
		Enclave: EnclaveConfig{
			KeyFile: "enclave.key",
		},
		Feed:   coingecko.DefaultConfig(),
		Host:   host.DefaultConfig(),
		Price:  priceoracle.DefaultConfig(),
		Random: randoracle.DefaultConfig(),
		RPC: RPCConfig{
			Host:      "localhost",
			Port:      8645,
			Relayer:   "owner",
			RateLimit: 20,
			RateBurst: 40,
		},
		Log: LogConfig{
			Verbosity:  3,
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
		},
	}
}

// Load reads file on top of the defaults and applies the environment.
// Unknown keys are an error.
func Load(file string) (Config, error) {
	cfg := DefaultConfig()
	if file != "" {
		md, err := toml.DecodeFile(file, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, fmt.Errorf("%s: unknown keys %s", file, strings.Join(keys, ", "))
		}
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields pinned by the environment.
func (c *Config) ApplyEnv() {
	c.DataDir = getEnvOrDefault(EnvDataDir, c.DataDir)
	c.DBBackend = getEnvOrDefault(EnvDBBackend, c.DBBackend)
	c.Enclave.KeyFile = getEnvOrDefault(EnvKeyFile, c.Enclave.KeyFile)
	c.Feed.DemoKey = getEnvOrDefault(EnvFeedKey, c.Feed.DemoKey)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks the configuration and every section.
func (c *Config) Validate() error {
	switch c.DBBackend {
	case statedb.BackendLevelDB, statedb.BackendPebble, statedb.BackendMemory:
	default:
		return fmt.Errorf("%w: %q", statedb.ErrUnknownBackend, c.DBBackend)
	}
	if c.DataDir == "" && c.DBBackend != statedb.BackendMemory {
		return errors.New("datadir is required for persistent backends")
	}
	if c.CacheSize < 0 {
		return errors.New("cache size must not be negative")
	}
	if c.RPC.Port < 0 || c.RPC.Port > 65535 {
		return fmt.Errorf("invalid rpc port %d", c.RPC.Port)
	}
	if c.RPC.RateLimit < 0 || (c.RPC.RateLimit > 0 && c.RPC.RateBurst <= 0) {
		return errors.New("rpc rate limit needs a positive burst")
	}
	if c.Feed.Coin == "" {
		return errors.New("feed coin is required")
	}
	if err := c.Host.Validate(); err != nil {
		return fmt.Errorf("host: %w", err)
	}
	if err := c.Price.Validate(); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	if err := c.Random.Validate(); err != nil {
		return fmt.Errorf("random: %w", err)
	}
	return nil
}

// Dump writes the configuration as TOML.
func (c *Config) Dump(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
