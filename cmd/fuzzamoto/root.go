package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fuzzamoto.dev/fuzzamoto/internal/config"
)

var (
	flagDataDir string
	log         zerolog.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fuzzamoto",
		Short:         "Coverage-guided fuzzer for Bitcoin full-node P2P implementations",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
				With().Timestamp().Logger()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flagDataDir, "datadir", config.DefaultDataDir(), "fuzzamoto data directory")

	root.AddCommand(newInitCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newCorpusCmd())
	root.AddCommand(newBenchmarkCmd())
	return root
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log = log.Level(lvl)
}
