package main

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"fuzzamoto.dev/fuzzamoto/assertions"
	"fuzzamoto.dev/fuzzamoto/corpus"
	"fuzzamoto.dev/fuzzamoto/executor"
	"fuzzamoto.dev/fuzzamoto/internal/config"
	"fuzzamoto.dev/fuzzamoto/snapshot"
)

func newBenchmarkCmd() *cobra.Command {
	var duration time.Duration
	var seed int64

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run the fuzzing loop for a fixed duration and report throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagDataDir)
			if err != nil {
				return fmt.Errorf("benchmark: load config (did you run `fuzzamoto init`?): %w", err)
			}
			setLogLevel(cfg.LogLevel)
			return runBenchmark(cmd.Context(), cfg, duration, seed)
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "how long to run the benchmark")
	cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed (0 = derive from current time)")
	return cmd
}

func runBenchmark(ctx context.Context, cfg config.Config, duration time.Duration, seedFlag int64) error {
	store, err := corpus.Open(filepath.Join(cfg.DataDir, "corpus"))
	if err != nil {
		return fmt.Errorf("benchmark: open corpus: %w", err)
	}
	defer store.Close()
	store.MaxCompiledSizeBytes = cfg.MaxCompiledSizeBytes

	rng := newRNG(seedFlag)
	if err := ensureSeedEntry(store, cfg, rng); err != nil {
		return fmt.Errorf("benchmark: seed corpus: %w", err)
	}

	donors, err := loadDonorPrograms(store)
	if err != nil {
		return fmt.Errorf("benchmark: load donor programs: %w", err)
	}

	exec := executor.NewProcessExecutor(cfg.TargetBinary, cfg.ListenAddr, cfg.NetworkMagic, cfg.TargetArgs...)
	tracker := assertions.NewTracker()
	counting := &countingInnerStage{inner: newMutateExecuteStage(store, tracker, donors, cfg)}

	stage := &snapshot.Stage{
		Enabled:              cfg.SnapshotEnabled,
		Inner:                counting,
		Policy:               snapshot.PolicyBalanced,
		MaxReuseCount:        cfg.SnapshotMaxReuseCount,
		RootEscapeProb:       cfg.SnapshotRootEscapeProb,
		MaxCompiledSizeBytes: cfg.MaxCompiledSizeBytes,
	}

	deadline := time.Now().Add(duration)
	sessions := 0
	start := time.Now()

	hashes, err := store.All()
	if err != nil || len(hashes) == 0 {
		return fmt.Errorf("benchmark: corpus is empty")
	}
	entry, ok, err := store.Get(hashes[0])
	if err != nil || !ok {
		return fmt.Errorf("benchmark: failed to load seed entry")
	}

	for time.Now().Before(deadline) {
		input := &snapshot.Input{Program: entry.Program}
		if err := stage.Perform(ctx, exec, input, rng); err != nil {
			log.Warn().Err(err).Msg("benchmark iteration failed")
			continue
		}
		sessions++
	}

	elapsed := time.Since(start)
	// mutateExecuteStage invocations, each a fresh mutation followed by
	// a target run; an invocation whose mutation fails returns without
	// running the target and is still counted. Each scheduler session
	// additionally performs
	// one forced raw run on its final reuse iteration when snapshotting
	// is engaged, which this counter intentionally excludes: it is
	// measuring sustained mutate-and-execute throughput, not raw
	// process-spawn count.
	mutateRuns := counting.count
	rate := float64(mutateRuns) / elapsed.Seconds()
	reuseRatio := 0.0
	if sessions > 0 {
		reuseRatio = float64(mutateRuns) / float64(sessions)
	}
	log.Info().
		Int("scheduler_sessions", sessions).
		Int("mutate_execute_runs", mutateRuns).
		Float64("executions_per_sec", rate).
		Float64("runs_per_session", reuseRatio).
		Dur("elapsed", elapsed).
		Msg("benchmark finished")
	return nil
}

// countingInnerStage wraps an InnerStage to count how many times it was
// invoked, so the benchmark can report the realized snapshot-reuse ratio
// (runs per scheduler session) rather than just the raw session count.
// The count includes invocations whose mutation fails and that run no
// target.
type countingInnerStage struct {
	inner snapshot.InnerStage
	count int
}

func (c *countingInnerStage) Perform(ctx context.Context, exec executor.Executor, input *snapshot.Input, rng *rand.Rand) error {
	c.count++
	return c.inner.Perform(ctx, exec, input, rng)
}
