package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fuzzamoto.dev/fuzzamoto/assertions"
	"fuzzamoto.dev/fuzzamoto/corpus"
	"fuzzamoto.dev/fuzzamoto/executor"
	"fuzzamoto.dev/fuzzamoto/internal/config"
	"fuzzamoto.dev/fuzzamoto/ir"
	"fuzzamoto.dev/fuzzamoto/snapshot"
)

func newRunCmd() *cobra.Command {
	var iterations int
	var seed int64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the fuzzing loop: mutate corpus entries through the incremental snapshot stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagDataDir)
			if err != nil {
				return fmt.Errorf("run: load config (did you run `fuzzamoto init`?): %w", err)
			}
			setLogLevel(cfg.LogLevel)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runLoop(ctx, cfg, iterations, seed)
		},
	}
	cmd.Flags().IntVar(&iterations, "iterations", 0, "stop after this many iterations (0 = run until cancelled)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed (0 = derive from current time)")
	return cmd
}

func runLoop(ctx context.Context, cfg config.Config, iterations int, seedFlag int64) error {
	store, err := corpus.Open(filepath.Join(cfg.DataDir, "corpus"))
	if err != nil {
		return fmt.Errorf("run: open corpus: %w", err)
	}
	defer store.Close()
	store.MaxCompiledSizeBytes = cfg.MaxCompiledSizeBytes

	rng := newRNG(seedFlag)

	if err := ensureSeedEntry(store, cfg, rng); err != nil {
		return fmt.Errorf("run: seed corpus: %w", err)
	}

	exec := executor.NewProcessExecutor(cfg.TargetBinary, cfg.ListenAddr, cfg.NetworkMagic, cfg.TargetArgs...)
	tracker := assertions.NewTracker()

	donors, err := loadDonorPrograms(store)
	if err != nil {
		return fmt.Errorf("run: load donor programs: %w", err)
	}

	crashDir := filepath.Join(cfg.DataDir, "crashes")
	if err := os.MkdirAll(crashDir, 0o755); err != nil {
		return fmt.Errorf("run: mkdir crashes: %w", err)
	}

	inner := newMutateExecuteStage(store, tracker, donors, cfg)
	inner.onInteresting = func(p ir.Program, meta ir.PerTestcaseMetadata) {
		h, err := store.Put(p, meta)
		if err != nil {
			log.Error().Err(err).Msg("failed to store interesting program")
			return
		}
		log.Info().Str("hash", h.String()).Msg("new interesting corpus entry")
		for _, violation := range tracker.Violations() {
			writeCrash(crashDir, h, violation)
		}
	}

	stage := &snapshot.Stage{
		Enabled:              cfg.SnapshotEnabled,
		Inner:                inner,
		Policy:               snapshot.PolicyBalanced,
		MaxReuseCount:        cfg.SnapshotMaxReuseCount,
		RootEscapeProb:       cfg.SnapshotRootEscapeProb,
		MaxCompiledSizeBytes: cfg.MaxCompiledSizeBytes,
	}

	start := time.Now()
	ran := 0
	for iterations == 0 || ran < iterations {
		select {
		case <-ctx.Done():
			log.Info().Int("iterations", ran).Dur("elapsed", time.Since(start)).Msg("stopping, signal received")
			return nil
		default:
		}

		hashes, err := store.All()
		if err != nil {
			return fmt.Errorf("run: list corpus: %w", err)
		}
		if len(hashes) == 0 {
			break
		}
		entry, ok, err := store.Get(hashes[rng.Intn(len(hashes))])
		if err != nil || !ok {
			continue
		}

		input := &snapshot.Input{Program: entry.Program}
		if err := stage.Perform(ctx, exec, input, rng); err != nil {
			log.Warn().Err(err).Msg("iteration failed")
		}
		ran++
	}

	log.Info().Int("iterations", ran).Dur("elapsed", time.Since(start)).Msg("run finished")
	return nil
}

// ensureSeedEntry populates the corpus with one generator-built program
// if it is currently empty, so `fuzzamoto run` works immediately after
// `fuzzamoto init` without a separate seeding step.
func ensureSeedEntry(store *corpus.Store, cfg config.Config, rng *rand.Rand) error {
	hashes, err := store.All()
	if err != nil {
		return err
	}
	if len(hashes) > 0 {
		return nil
	}
	p, err := seedProgram(cfg, rng)
	if err != nil {
		return err
	}
	_, err = store.Put(p, ir.PerTestcaseMetadata{})
	return err
}

// loadDonorPrograms loads every corpus entry's program for use by the
// Concatenator mutator.
func loadDonorPrograms(store *corpus.Store) ([]ir.Program, error) {
	hashes, err := store.All()
	if err != nil {
		return nil, err
	}
	var out []ir.Program
	for _, h := range hashes {
		entry, ok, err := store.Get(h)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, entry.Program)
		}
	}
	return out, nil
}

func writeCrash(crashDir string, h corpus.Hash, violation assertions.Scope) {
	path := filepath.Join(crashDir, h.String()+".json")
	raw, err := json.MarshalIndent(violation, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal crash report")
		return
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		log.Error().Err(err).Msg("failed to write crash report")
	}
}
