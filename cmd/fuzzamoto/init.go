package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fuzzamoto.dev/fuzzamoto/internal/config"
)

func newInitCmd() *cobra.Command {
	var targetBinary string
	var numNodes int
	var network string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a fuzzamoto data directory (corpus/, crashes/, config.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if targetBinary == "" {
				return fmt.Errorf("init: --target is required")
			}

			cfg := config.DefaultConfig()
			cfg.DataDir = flagDataDir
			cfg.TargetBinary = targetBinary
			cfg.NumNodes = numNodes
			cfg.Network = network
			if err := cfg.Validate(); err != nil {
				return err
			}

			for _, sub := range []string{"corpus", "crashes"} {
				if err := os.MkdirAll(filepath.Join(flagDataDir, sub), 0o755); err != nil {
					return fmt.Errorf("init: mkdir %s: %w", sub, err)
				}
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("init: save config: %w", err)
			}

			log.Info().Str("datadir", flagDataDir).Str("target", targetBinary).Msg("initialized fuzzamoto data directory")
			return nil
		},
	}
	cmd.Flags().StringVar(&targetBinary, "target", "", "path to the target node binary (required)")
	cmd.Flags().IntVar(&numNodes, "num-nodes", 1, "number of target nodes the generated programs will reference")
	cmd.Flags().StringVar(&network, "network", "regtest", "network name (regtest/testnet3/signet/mainnet)")
	return cmd
}
