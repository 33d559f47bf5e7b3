package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"fuzzamoto.dev/fuzzamoto/assertions"
	"fuzzamoto.dev/fuzzamoto/corpus"
	"fuzzamoto.dev/fuzzamoto/executor"
	"fuzzamoto.dev/fuzzamoto/internal/config"
	"fuzzamoto.dev/fuzzamoto/ir"
	"fuzzamoto.dev/fuzzamoto/ir/generators"
	"fuzzamoto.dev/fuzzamoto/ir/mutators"
	"fuzzamoto.dev/fuzzamoto/snapshot"
)

// mutateExecuteStage is the InnerStage the incremental snapshot
// scheduler wraps: it mutates input.Program (restricted to the suffix
// after any frozen prefix), compiles it with the current snapshot
// marker, runs it against the executor, and folds the resulting
// assertion signal into a Tracker.
type mutateExecuteStage struct {
	mutatorPool []mutators.Mutator
	tracker     *assertions.Tracker
	store       *corpus.Store
	onInteresting func(ir.Program, ir.PerTestcaseMetadata)

	// maxCompiledSizeBytes is threaded into every CompileWithSnapshot
	// call (see internal/config.Config.MaxCompiledSizeBytes).
	maxCompiledSizeBytes int
}

func newMutateExecuteStage(store *corpus.Store, tracker *assertions.Tracker, donors []ir.Program, cfg config.Config) *mutateExecuteStage {
	return &mutateExecuteStage{
		store:                store,
		tracker:              tracker,
		maxCompiledSizeBytes: cfg.MaxCompiledSizeBytes,
		mutatorPool: []mutators.Mutator{
			mutators.OperationMutator{},
			mutators.InputMutator{},
			mutators.InsertDeleteMutator{Fragments: fragmentsFromGenerators(), MaxRawIRSize: cfg.MaxRawIRSizeBytes},
			mutators.Concatenator{Pool: donors, MaxRawIRSize: cfg.MaxRawIRSizeBytes},
		},
	}
}

func fragmentsFromGenerators() []mutators.Fragment {
	gens := generators.All()
	out := make([]mutators.Fragment, len(gens))
	for i, g := range gens {
		out[i] = g
	}
	return out
}

func (s *mutateExecuteStage) Perform(ctx context.Context, exec executor.Executor, input *snapshot.Input, rng *rand.Rand) error {
	minIndex := 0
	if input.FrozenPrefixLen != nil {
		minIndex = *input.FrozenPrefixLen
	}

	meta := input.Program.Context.Metadata
	if meta == nil {
		meta = &ir.PerTestcaseMetadata{}
	}

	m := s.mutatorPool[rng.Intn(len(s.mutatorPool))]
	if err := m.MutateFrom(&input.Program, minIndex, rng, meta); err != nil {
		var mErr *mutators.Error
		if asMutatorError(err, &mErr) && mErr.Kind == mutators.ErrNoMutationsAvailable {
			return nil
		}
		if asMutatorError(err, &mErr) && mErr.Kind == mutators.ErrCreatedInvalidProgram {
			return nil
		}
		return err
	}

	compiled, err := snapshot.CompileWithSnapshot(input.Program, input.FrozenPrefixLen, s.maxCompiledSizeBytes)
	if err != nil {
		return fmt.Errorf("fuzzloop: compile: %w", err)
	}

	stdout, err := exec.Run(ctx, compiled)
	if err != nil {
		return fmt.Errorf("fuzzloop: run target: %w", err)
	}

	parsed := assertions.ParseAssertionsFromStdout(stdout)
	if s.tracker.Evaluate(parsed) {
		if s.onInteresting != nil {
			s.onInteresting(input.Program, *meta)
		}
	}
	return nil
}

func asMutatorError(err error, out **mutators.Error) bool {
	mErr, ok := err.(*mutators.Error)
	if ok {
		*out = mErr
	}
	return ok
}

// seedProgram builds a fresh, empty program and runs every generator
// once against it to produce an initial, non-trivial corpus seed.
func seedProgram(cfg config.Config, rng *rand.Rand) (ir.Program, error) {
	params, err := paramsForNetwork(cfg.Network)
	if err != nil {
		return ir.Program{}, err
	}
	b := ir.NewBuilder(ir.NewContext(cfg.NumNodes, params))
	for _, g := range generators.All() {
		// Best-effort: a generator failing to find suitable variables
		// on an empty program (e.g. CompactBlockGenerator needing a
		// Block) is expected and not fatal to seeding.
		_ = g.Generate(b, rng, nil)
	}
	return b.Program(), nil
}

func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
