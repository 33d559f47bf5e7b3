// Package snapshot implements the incremental snapshot scheduling
// stage: it chooses a point inside an IR program at which to freeze a
// VM snapshot, then replays several mutated suffixes from that frozen
// state before discarding it, grounded on
// original_source/fuzzamoto-libafl/src/stages/incremental_snapshot_stage.rs.
package snapshot

import (
	"context"
	"fmt"
	"math/rand"

	"fuzzamoto.dev/fuzzamoto/executor"
	"fuzzamoto.dev/fuzzamoto/ir"
	"fuzzamoto.dev/fuzzamoto/ir/compiler"
)

// PlacementPolicy selects where inside a program to request a snapshot.
type PlacementPolicy int

const (
	// PolicyBalanced picks uniformly from either the first or second
	// half of the program (coinflip, then uniform within the half).
	PolicyBalanced PlacementPolicy = iota
)

// Input is the mutable unit the stage and its inner stage operate on:
// a program plus the prefix length (if any) currently frozen behind a
// VM snapshot.
type Input struct {
	Program         ir.Program
	FrozenPrefixLen *int
}

// InnerStage is the mutate-then-execute stage the snapshot scheduler
// wraps. A real InnerStage mutates input.Program (restricted to the
// suffix after *input.FrozenPrefixLen when set, via a mutator's
// MutateFrom), compiles it with CompileWithSnapshot, and runs it.
type InnerStage interface {
	Perform(ctx context.Context, exec executor.Executor, input *Input, rng *rand.Rand) error
}

// DefaultRootEscapeProb is the probability of bypassing snapshot
// placement entirely and forwarding straight to the inner stage,
// spec §4.7's root-bypass escape hatch.
const DefaultRootEscapeProb = 0.04

// Stage is the incremental snapshot scheduler shell.
type Stage struct {
	Enabled       bool
	Inner         InnerStage
	Policy        PlacementPolicy
	MaxReuseCount int

	// RootEscapeProb overrides DefaultRootEscapeProb when non-zero.
	RootEscapeProb float64

	// MaxCompiledSizeBytes overrides compiler.DefaultMaxCompiledSize for
	// every CompileWithSnapshot call this stage makes when non-zero (see
	// internal/config.Config.MaxCompiledSizeBytes).
	MaxCompiledSizeBytes int
}

func (s *Stage) rootEscapeProb() float64 {
	if s.RootEscapeProb > 0 {
		return s.RootEscapeProb
	}
	return DefaultRootEscapeProb
}

// ErrSnapshotAlreadyHeld is returned if Perform is invoked while the
// executor already reports an auxiliary snapshot, which should never
// happen: every prior iteration is required to restore the
// no-auxiliary-snapshot invariant before returning.
var ErrSnapshotAlreadyHeld = fmt.Errorf("snapshot: executor already holds an auxiliary incremental snapshot")

// Perform runs one scheduling iteration. See spec.md §4.7 for the
// nine-step contract this implements: precondition check, trivial-case
// forwarding, the root-bypass escape hatch, position selection,
// snapshot request, the reuse loop, and the forced last-iteration
// delete-and-raw-run.
func (s *Stage) Perform(ctx context.Context, exec executor.Executor, input *Input, rng *rand.Rand) error {
	if !s.Enabled {
		return s.Inner.Perform(ctx, exec, input, rng)
	}

	if exec.AuxTmpSnapshotCreated() {
		return ErrSnapshotAlreadyHeld
	}

	programLen := input.Program.Len()
	if programLen == 0 {
		return s.Inner.Perform(ctx, exec, input, rng)
	}

	if rng.Float64() < s.rootEscapeProb() {
		return s.Inner.Perform(ctx, exec, input, rng)
	}

	targetPos := s.choosePosition(rng, programLen)
	prefixLen, ok := FindValidSnapshotPosition(input.Program, targetPos)
	if !ok {
		return nil
	}

	exec.SetDeleteIncrementalSnapshot(false)
	if err := exec.ApplyOptions(); err != nil {
		return err
	}

	frozen := prefixLen
	input.FrozenPrefixLen = &frozen

	for reuseCount := 1; reuseCount <= s.MaxReuseCount; reuseCount++ {
		if reuseCount == s.MaxReuseCount {
			exec.SetDeleteIncrementalSnapshot(true)
			if err := exec.ApplyOptions(); err != nil {
				return err
			}
			compiled, err := CompileWithSnapshot(input.Program, input.FrozenPrefixLen, s.MaxCompiledSizeBytes)
			if err != nil {
				return err
			}
			if _, err := exec.Run(ctx, compiled); err != nil {
				return err
			}
		} else if err := s.Inner.Perform(ctx, exec, input, rng); err != nil {
			return err
		}
	}

	input.FrozenPrefixLen = nil
	return nil
}

// choosePosition implements PolicyBalanced: for a single-instruction
// program there is only one position; otherwise flip a coin to pick
// the first or second half, then choose uniformly within it.
func (s *Stage) choosePosition(rng *rand.Rand, programLen int) int {
	switch s.Policy {
	case PolicyBalanced:
		if programLen == 1 {
			return 0
		}
		if rng.Float64() < 0.5 {
			half := programLen / 2
			if half < 1 {
				half = 1
			}
			return rng.Intn(half)
		}
		half := programLen / 2
		remaining := programLen - half
		return half + rng.Intn(remaining)
	default:
		panic("snapshot: unhandled placement policy in choosePosition")
	}
}

// FindValidSnapshotPosition returns the scope-depth-zero instruction
// index closest to targetPos, or false if the program has no
// scope-depth-zero position at all (which cannot happen for any
// program that passes ir.Validate, since validation itself requires a
// balanced scope stack — kept as an explicit check here so this
// function stays correct for programs under construction).
//
// Ties are broken toward the smaller index (the first minimal-distance
// candidate encountered while scanning left to right), one of the two
// reasonable choices the source leaves open; see DESIGN.md.
func FindValidSnapshotPosition(p ir.Program, targetPos int) (int, bool) {
	instructions := p.Instructions
	if len(instructions) == 0 {
		return 0, false
	}
	if targetPos > len(instructions) {
		targetPos = len(instructions)
	}

	var valid []int
	depth := 0
	for i, instr := range instructions {
		if depth == 0 {
			valid = append(valid, i)
		}
		if instr.Operation.IsBlockBegin() {
			depth++
		}
		if instr.Operation.IsBlockEnd() && depth > 0 {
			depth--
		}
	}
	if depth == 0 {
		valid = append(valid, len(instructions))
	}
	if len(valid) == 0 {
		return 0, false
	}

	best := valid[0]
	bestDist := abs(best - targetPos)
	for _, pos := range valid[1:] {
		d := abs(pos - targetPos)
		if d < bestDist {
			best, bestDist = pos, d
		}
	}
	return best, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// CompileWithSnapshot compiles p for execution, splicing a synthetic
// IncrementalSnapshot operation into the instruction stream at
// min(*frozenPrefixLen, len) when frozenPrefixLen is non-nil.
// maxCompiledSizeBytes overrides compiler.DefaultMaxCompiledSize when
// non-zero (see internal/config.Config.MaxCompiledSizeBytes).
func CompileWithSnapshot(p ir.Program, frozenPrefixLen *int, maxCompiledSizeBytes int) ([]byte, error) {
	c := &compiler.Compiler{MaxCompiledSize: maxCompiledSizeBytes}
	if frozenPrefixLen == nil {
		return c.Compile(p)
	}

	pos := *frozenPrefixLen
	if pos > len(p.Instructions) {
		pos = len(p.Instructions)
	}
	if pos < 0 {
		pos = 0
	}

	instructions := make([]ir.Instruction, 0, len(p.Instructions)+1)
	instructions = append(instructions, p.Instructions[:pos]...)
	instructions = append(instructions, ir.Instruction{Operation: ir.Operation{Kind: ir.OpIncrementalSnapshot}})
	instructions = append(instructions, p.Instructions[pos:]...)

	spliced := ir.UnsafeNew(p.Context, instructions)
	return c.Compile(spliced)
}
