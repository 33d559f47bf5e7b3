package mutators

import (
	"math/rand"

	"fuzzamoto.dev/fuzzamoto/ir"
	"fuzzamoto.dev/fuzzamoto/ir/compiler"
)

// Concatenator appends the body of a second validated program to the
// receiver, offsetting the donor's variable indices past the
// receiver's existing slots. Because every donor in Pool is itself a
// fully validated, scope-balanced program, every one of its
// instructions is satisfiable after the offset; there is nothing to
// drop. (The "drop unsatisfiable instructions" generality spec §4.5
// describes applies to donor fragments whose free inputs are not all
// self-contained, which cannot arise from a Pool of validated whole
// programs — see DESIGN.md.)
type Concatenator struct {
	Pool []ir.Program

	// MaxRawIRSize caps the candidate's marshaled size; a concatenation
	// that would exceed it is rejected as no_mutations_available rather
	// than growing the program unboundedly. Zero means
	// compiler.DefaultMaxRawIRSize.
	MaxRawIRSize int
}

func (c Concatenator) maxRawIRSize() int {
	if c.MaxRawIRSize > 0 {
		return c.MaxRawIRSize
	}
	return compiler.DefaultMaxRawIRSize
}

func offsetInstruction(instr ir.Instruction, offset int) ir.Instruction {
	inputs := make([]ir.VarRef, len(instr.Inputs))
	for i, in := range instr.Inputs {
		inputs[i] = ir.VarRef{Index: in.Index + offset, Kind: in.Kind}
	}
	return ir.Instruction{Inputs: inputs, Operation: instr.Operation}
}

func (c Concatenator) mutateRange(p *ir.Program, _ int, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	if len(c.Pool) == 0 {
		return noMutations("no donor programs available")
	}
	src := c.Pool[rng.Intn(len(c.Pool))]

	offset := ir.VarSlotCount(*p)
	candidate := p.Clone()
	for _, instr := range src.Instructions {
		candidate.Instructions = append(candidate.Instructions, offsetInstruction(instr, offset))
	}
	if size, err := compiler.RawSize(candidate); err == nil && size > c.maxRawIRSize() {
		return noMutations("concatenation would exceed the raw IR size cap")
	}
	return commitIfValid(p, candidate)
}

func (c Concatenator) Mutate(p *ir.Program, rng *rand.Rand, meta *ir.PerTestcaseMetadata) error {
	return c.mutateRange(p, 0, rng, meta)
}

func (c Concatenator) MutateFrom(p *ir.Program, minIndex int, rng *rand.Rand, meta *ir.PerTestcaseMetadata) error {
	return c.mutateRange(p, minIndex, rng, meta)
}
