package mutators

import (
	"math/rand"

	"fuzzamoto.dev/fuzzamoto/ir"
)

// SpliceMutator copies a scope-balanced instruction range from a donor
// program into the receiver at a chosen insertion point, remapping
// free inputs (references to variables defined before the range) to
// kind-compatible in-scope variables at the destination and shifting
// every downstream variable index by the number of slots the spliced
// range introduces.
type SpliceMutator struct {
	Pool []ir.Program
}

func zeroDepthPositions(p ir.Program, from int) []int {
	var out []int
	for i := from; i <= len(p.Instructions); i++ {
		if ir.ScopeDepthAt(p, i) == 0 {
			out = append(out, i)
		}
	}
	return out
}

func (s SpliceMutator) spliceRange(p *ir.Program, minIndex int, rng *rand.Rand) error {
	if len(s.Pool) == 0 {
		return noMutations("no donor programs available")
	}
	src := s.Pool[rng.Intn(len(s.Pool))]
	boundaries := zeroDepthPositions(src, 0)
	if len(boundaries) < 2 {
		return noMutations("donor program has no scope-balanced range")
	}
	start := boundaries[rng.Intn(len(boundaries))]
	endCandidates := make([]int, 0, len(boundaries))
	for _, b := range boundaries {
		if b > start {
			endCandidates = append(endCandidates, b)
		}
	}
	if len(endCandidates) == 0 {
		return noMutations("donor program has no range after chosen start")
	}
	end := endCandidates[rng.Intn(len(endCandidates))]

	insertPositions := zeroDepthPositions(*p, minIndex)
	if len(insertPositions) == 0 {
		return noMutations("no scope-depth-zero insertion point in range")
	}
	insertPos := insertPositions[rng.Intn(len(insertPositions))]

	sStart := ir.VarSlotCountUpTo(src, start)
	sEnd := ir.VarSlotCountUpTo(src, end)
	dstOffset := ir.VarSlotCountUpTo(*p, insertPos)
	insertedSlots := sEnd - sStart

	dstScope := inScopeByKindBefore(*p, insertPos)

	remapped := make([]ir.Instruction, 0, end-start)
	for i := start; i < end; i++ {
		instr := src.Instructions[i]
		inputs := make([]ir.VarRef, len(instr.Inputs))
		for j, in := range instr.Inputs {
			if in.Index >= sStart {
				inputs[j] = ir.VarRef{Index: in.Index - sStart + dstOffset, Kind: in.Kind}
				continue
			}
			candidates := dstScope[in.Kind]
			if len(candidates) == 0 {
				return noMutations("free input has no kind-compatible in-scope variable at insertion point")
			}
			inputs[j] = ir.VarRef{Index: candidates[rng.Intn(len(candidates))], Kind: in.Kind}
		}
		remapped = append(remapped, ir.Instruction{Inputs: inputs, Operation: instr.Operation})
	}

	candidate := p.Clone()
	tail := make([]ir.Instruction, len(candidate.Instructions)-insertPos)
	for i, instr := range candidate.Instructions[insertPos:] {
		inputs := make([]ir.VarRef, len(instr.Inputs))
		for j, in := range instr.Inputs {
			if in.Index >= dstOffset {
				inputs[j] = ir.VarRef{Index: in.Index + insertedSlots, Kind: in.Kind}
			} else {
				inputs[j] = in
			}
		}
		tail[i] = ir.Instruction{Inputs: inputs, Operation: instr.Operation}
	}

	out := make([]ir.Instruction, 0, len(candidate.Instructions)+len(remapped))
	out = append(out, candidate.Instructions[:insertPos]...)
	out = append(out, remapped...)
	out = append(out, tail...)
	candidate.Instructions = out

	return commitIfValid(p, candidate)
}

func (s SpliceMutator) Splice(dst *ir.Program, src ir.Program, rng *rand.Rand) error {
	pool := s.Pool
	s.Pool = []ir.Program{src}
	defer func() { s.Pool = pool }()
	return s.spliceRange(dst, 0, rng)
}

func (s SpliceMutator) SpliceFrom(dst *ir.Program, src ir.Program, minIndex int, rng *rand.Rand) error {
	pool := s.Pool
	s.Pool = []ir.Program{src}
	defer func() { s.Pool = pool }()
	return s.spliceRange(dst, minIndex, rng)
}

func (s SpliceMutator) Mutate(p *ir.Program, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	return s.spliceRange(p, 0, rng)
}

func (s SpliceMutator) MutateFrom(p *ir.Program, minIndex int, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	return s.spliceRange(p, minIndex, rng)
}
