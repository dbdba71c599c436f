// Package config loads the node configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// Config holds the runtime configuration of a node.
type Config struct {
	ListenHost  string
	ListenPort  int
	DataDir     string
	DBType      string // pebble or goleveldb
	Authority   common.Address
	ProposalFee uint64
	LogLevel    string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// Load reads the configuration from environment variables, falling back to
// defaults for everything but AUTHORITY, which is required.
func Load() (*Config, error) {
	cfg := &Config{
		ListenHost: getenv("LISTEN_HOST", "0.0.0.0"),
		DataDir:    getenv("DATA_DIR", os.TempDir()+"/sealedvote"),
		DBType:     getenv("DB_TYPE", "pebble"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
	}

	port, err := getenvInt("LISTEN_PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.ListenPort = port

	fee, err := getenvInt("PROPOSAL_FEE", 100)
	if err != nil {
		return nil, err
	}
	if fee < 0 {
		return nil, fmt.Errorf("PROPOSAL_FEE must not be negative, got %d", fee)
	}
	cfg.ProposalFee = uint64(fee)

	authority := os.Getenv("AUTHORITY")
	if authority == "" {
		return nil, fmt.Errorf("AUTHORITY is required")
	}
	if !common.IsHexAddress(authority) {
		return nil, fmt.Errorf("invalid AUTHORITY address %q", authority)
	}
	cfg.Authority = common.HexToAddress(authority)

	return cfg, nil
}

// String returns a loggable summary of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("listen=%s:%d datadir=%s db=%s authority=%s fee=%d",
		c.ListenHost, c.ListenPort, c.DataDir, c.DBType, c.Authority.Hex(), c.ProposalFee)
}
