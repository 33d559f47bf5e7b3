// Package config holds fuzzamoto's process-wide configuration: where
// its data/corpus directories live, which target binary to drive, how
// many nodes the target exposes, and the incremental snapshot stage's
// tuning knobs. Grounded on the teacher's Config/DefaultConfig/Validate
// shape, adapted from node configuration fields to fuzzamoto's own.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is fuzzamoto's full runtime configuration, loadable from
// <DataDir>/config.json and overridable by CLI flags.
type Config struct {
	DataDir      string `json:"data_dir"`
	TargetBinary string `json:"target_binary"`
	TargetArgs   []string `json:"target_args,omitempty"`
	ListenAddr   string `json:"listen_addr"`
	NetworkMagic uint32 `json:"network_magic"`
	NumNodes     int    `json:"num_nodes"`
	Network      string `json:"network"`
	LogLevel     string `json:"log_level"`

	SnapshotEnabled       bool    `json:"snapshot_enabled"`
	SnapshotMaxReuseCount int     `json:"snapshot_max_reuse_count"`
	SnapshotRootEscapeProb float64 `json:"snapshot_root_escape_prob"`

	MaxCompiledSizeBytes int `json:"max_compiled_size_bytes"`
	MaxRawIRSizeBytes    int `json:"max_raw_ir_size_bytes"`
}

// DefaultDataDir returns "$HOME/.fuzzamoto", matching the teacher's
// os.UserHomeDir-based default.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fuzzamoto"
	}
	return filepath.Join(home, ".fuzzamoto")
}

// DefaultConfig returns a Config with every field set to a usable
// default except TargetBinary, which the operator must always supply.
func DefaultConfig() Config {
	return Config{
		DataDir:               DefaultDataDir(),
		ListenAddr:            "127.0.0.1:18444",
		NetworkMagic:          0xfabfb5da, // regtest start bytes fa bf b5 da as written big-endian; btcd's RegressionNetParams.Net is the byte-swapped 0xdab5bffa
		NumNodes:              1,
		Network:               "regtest",
		LogLevel:              "info",
		SnapshotEnabled:       true,
		SnapshotMaxReuseCount: 16,
		SnapshotRootEscapeProb: 0.04,
		MaxCompiledSizeBytes:  8 * 1024 * 1024,
		MaxRawIRSizeBytes:     1 * 1024 * 1024,
	}
}

// Validate reports the first configuration problem found, if any.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	if c.TargetBinary == "" {
		return fmt.Errorf("config: target_binary must be set")
	}
	if c.NumNodes < 0 {
		return fmt.Errorf("config: num_nodes must be >= 0, got %d", c.NumNodes)
	}
	if c.SnapshotMaxReuseCount < 1 {
		return fmt.Errorf("config: snapshot_max_reuse_count must be >= 1, got %d", c.SnapshotMaxReuseCount)
	}
	if c.SnapshotRootEscapeProb < 0 || c.SnapshotRootEscapeProb > 1 {
		return fmt.Errorf("config: snapshot_root_escape_prob must be in [0,1], got %f", c.SnapshotRootEscapeProb)
	}
	if c.MaxCompiledSizeBytes <= 0 {
		return fmt.Errorf("config: max_compiled_size_bytes must be > 0, got %d", c.MaxCompiledSizeBytes)
	}
	if c.MaxRawIRSizeBytes <= 0 {
		return fmt.Errorf("config: max_raw_ir_size_bytes must be > 0, got %d", c.MaxRawIRSizeBytes)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Path returns the config.json path for a data directory.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "config.json")
}

// Load reads and parses the config.json under dataDir.
func Load(dataDir string) (Config, error) {
	raw, err := os.ReadFile(Path(dataDir))
	if err != nil {
		return Config{}, fmt.Errorf("config: read: %w", err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	cfg.DataDir = dataDir
	return cfg, nil
}

// Save writes c to <c.DataDir>/config.json, creating the directory if
// needed.
func (c Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(Path(c.DataDir), raw, 0o644)
}
