package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigNeedsTargetBinary(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected DefaultConfig() to fail validation without a target binary")
	}
	cfg.TargetBinary = "/usr/local/bin/target-node"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected fully-populated default config to validate, got %v", err)
	}
}

func TestValidateRejectsBadFields(t *testing.T) {
	base := func() Config {
		cfg := DefaultConfig()
		cfg.TargetBinary = "/bin/target"
		return cfg
	}

	cases := []struct {
		name  string
		break_ func(Config) Config
	}{
		{"empty data dir", func(c Config) Config { c.DataDir = ""; return c }},
		{"negative num nodes", func(c Config) Config { c.NumNodes = -1; return c }},
		{"zero reuse count", func(c Config) Config { c.SnapshotMaxReuseCount = 0; return c }},
		{"escape prob too high", func(c Config) Config { c.SnapshotRootEscapeProb = 1.5; return c }},
		{"escape prob negative", func(c Config) Config { c.SnapshotRootEscapeProb = -0.1; return c }},
		{"zero compiled size cap", func(c Config) Config { c.MaxCompiledSizeBytes = 0; return c }},
		{"zero raw ir size cap", func(c Config) Config { c.MaxRawIRSizeBytes = 0; return c }},
		{"unknown log level", func(c Config) Config { c.LogLevel = "verbose"; return c }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.break_(base())
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DataDir = dir
	cfg.TargetBinary = "/bin/target-node"
	cfg.NumNodes = 3

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TargetBinary != cfg.TargetBinary || loaded.NumNodes != cfg.NumNodes {
		t.Fatalf("round-tripped config mismatch: got %+v, want TargetBinary=%q NumNodes=%d",
			loaded, cfg.TargetBinary, cfg.NumNodes)
	}
	if loaded.DataDir != dir {
		t.Fatalf("Load did not stamp DataDir: got %q, want %q", loaded.DataDir, dir)
	}
}

func TestPathJoinsDataDir(t *testing.T) {
	got := Path("/tmp/fuzzamoto")
	want := filepath.Join("/tmp/fuzzamoto", "config.json")
	if got != want {
		t.Fatalf("Path: got %q, want %q", got, want)
	}
}
