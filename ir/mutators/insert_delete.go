package mutators

import (
	"math/rand"

	"fuzzamoto.dev/fuzzamoto/ir"
	"fuzzamoto.dev/fuzzamoto/ir/compiler"
)

// Fragment is anything capable of extending a builder in place, the
// shape every package generators.Generator implements. Declared here
// rather than imported to avoid a dependency cycle between ir/mutators
// and ir/generators (generators may in turn want to reuse mutators for
// corpus minimization tooling).
type Fragment interface {
	Generate(b *ir.Builder, rng *rand.Rand, meta *ir.PerTestcaseMetadata) error
}

// InsertDeleteMutator either inserts a freshly generated fragment at a
// scope-depth-zero position, or deletes a single non-scope instruction
// by replacing it with a dimension-matched Nop. Begin/End operations
// are never individually deleted or targeted for insertion inside an
// active scope, honoring the edge policy that a Begin must never be
// separated from its matching End and that inner-outputs must never be
// orphaned.
type InsertDeleteMutator struct {
	Fragments []Fragment

	// MaxRawIRSize caps the candidate's marshaled size after an insert;
	// one that would exceed it is rejected as no_mutations_available.
	// Zero means compiler.DefaultMaxRawIRSize.
	MaxRawIRSize int
}

func (m InsertDeleteMutator) maxRawIRSize() int {
	if m.MaxRawIRSize > 0 {
		return m.MaxRawIRSize
	}
	return compiler.DefaultMaxRawIRSize
}

func (m InsertDeleteMutator) mutateRange(p *ir.Program, lo int, rng *rand.Rand, meta *ir.PerTestcaseMetadata) error {
	if rng.Float64() < 0.5 && len(m.Fragments) > 0 {
		if err := m.insert(p, lo, rng, meta); err == nil {
			return nil
		}
	}
	return m.delete(p, lo, rng)
}

func (m InsertDeleteMutator) insert(p *ir.Program, lo int, rng *rand.Rand, meta *ir.PerTestcaseMetadata) error {
	var zeroDepthPositions []int
	for i := lo; i <= len(p.Instructions); i++ {
		if ir.ScopeDepthAt(*p, i) == 0 {
			zeroDepthPositions = append(zeroDepthPositions, i)
		}
	}
	if len(zeroDepthPositions) == 0 {
		return noMutations("no scope-depth-zero position to insert at")
	}
	pos := zeroDepthPositions[rng.Intn(len(zeroDepthPositions))]

	// Build the fragment against a builder seeded with the prefix up
	// to pos, so the fragment only ever references variables already
	// in scope there.
	b := ir.NewBuilder(p.Context)
	for i := 0; i < pos; i++ {
		if _, err := b.Append(p.Instructions[i]); err != nil {
			return invalidResult(err)
		}
	}

	frag := m.Fragments[rng.Intn(len(m.Fragments))]
	if err := frag.Generate(b, rng, meta); err != nil {
		return noMutations("fragment generator failed: " + err.Error())
	}

	inserted := b.Program().Instructions[pos:]
	candidate := p.Clone()
	tail := candidate.Instructions[pos:]

	// VarRef.Index is a flat variable-slot counter, not an instruction
	// position: a Begin op can allocate inner-output slots without
	// occupying a slot itself, so slot count and instruction count
	// drift apart. dstOffset is the slot count of the untouched prefix;
	// insertedSlots is how many new slots the fragment introduced. A
	// tail instruction's own inputs may reference the untouched prefix
	// (index < dstOffset, left alone) or a slot allocated by the
	// fragment or another tail instruction (index >= dstOffset, which
	// must shift with it).
	dstOffset := ir.VarSlotCountUpTo(*p, pos)
	insertedSlots := ir.VarSlotCount(b.Program()) - dstOffset

	shiftedTail := make([]ir.Instruction, len(tail))
	for i, instr := range tail {
		inputs := make([]ir.VarRef, len(instr.Inputs))
		for j, in := range instr.Inputs {
			idx := in.Index
			if idx >= dstOffset {
				idx += insertedSlots
			}
			inputs[j] = ir.VarRef{Index: idx, Kind: in.Kind}
		}
		shiftedTail[i] = ir.Instruction{Inputs: inputs, Operation: instr.Operation}
	}

	candidate.Instructions = append(candidate.Instructions[:pos:pos], inserted...)
	candidate.Instructions = append(candidate.Instructions, shiftedTail...)

	if size, err := compiler.RawSize(candidate); err == nil && size > m.maxRawIRSize() {
		return noMutations("insertion would exceed the raw IR size cap")
	}
	return commitIfValid(p, candidate)
}

func (m InsertDeleteMutator) delete(p *ir.Program, lo int, rng *rand.Rand) error {
	if lo >= len(p.Instructions) {
		return noMutations("no instructions in range")
	}
	order := rng.Perm(len(p.Instructions) - lo)
	for _, off := range order {
		idx := lo + off
		op := p.Instructions[idx].Operation
		if op.IsBlockBegin() || op.IsBlockEnd() || op.Kind == ir.OpNop || op.Kind == ir.OpIncrementalSnapshot {
			continue
		}
		candidate := p.Clone()
		candidate.Instructions[idx] = ir.Instruction{
			Operation: ir.Nop(len(op.OutputTypes()), len(op.InnerOutputTypes())),
		}
		return commitIfValid(p, candidate)
	}
	return noMutations("no deletable (non-scope) instruction found")
}

func (m InsertDeleteMutator) Mutate(p *ir.Program, rng *rand.Rand, meta *ir.PerTestcaseMetadata) error {
	return m.mutateRange(p, 0, rng, meta)
}

func (m InsertDeleteMutator) MutateFrom(p *ir.Program, minIndex int, rng *rand.Rand, meta *ir.PerTestcaseMetadata) error {
	return m.mutateRange(p, minIndex, rng, meta)
}
