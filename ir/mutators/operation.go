package mutators

import (
	"math/rand"
	"strings"

	"fuzzamoto.dev/fuzzamoto/ir"
)

// OperationMutator replaces an instruction's operation with a
// different kind sharing the exact same input/output/inner-output
// type signature, leaving its inputs untouched. Begin/End and Nop
// operations are never touched by this mutator, honoring the edge
// policy that a Begin must never be replaced without also replacing
// its matching End.
type OperationMutator struct{}

func signature(op ir.Operation) string {
	var sb strings.Builder
	for _, v := range op.InputTypes() {
		sb.WriteString(v.String())
		sb.WriteByte(',')
	}
	sb.WriteByte('|')
	for _, v := range op.OutputTypes() {
		sb.WriteString(v.String())
		sb.WriteByte(',')
	}
	sb.WriteByte('|')
	for _, v := range op.InnerOutputTypes() {
		sb.WriteString(v.String())
		sb.WriteByte(',')
	}
	return sb.String()
}

func eligibleKind(k ir.OperationKind) bool {
	op := ir.Operation{Kind: k}
	return !op.IsBlockBegin() && !op.IsBlockEnd() && k != ir.OpNop && k != ir.OpIncrementalSnapshot
}

// candidateKinds is the closed set of operation kinds the mutator
// considers swapping between, grouped implicitly by signature() at
// call time. Kept explicit (rather than ranging 0..operationKindCount,
// which is unexported) so this file documents exactly which ops
// participate in same-signature swaps.
var candidateKinds = []ir.OperationKind{
	ir.OpSendBlock, ir.OpSendBlockNoWit,
	ir.OpSendTx, ir.OpSendTxNoWit,
	ir.OpAddBlockInv, ir.OpAddCompactBlockInv, ir.OpAddBlockWithWitnessInv, ir.OpAddFilteredBlockInv,
	ir.OpAddTxidInv, ir.OpAddTxidWithWitnessInv, ir.OpAddWtxidInv,
	ir.OpSendGetCFilters, ir.OpSendGetCFHeaders, ir.OpSendGetCFCheckpt,
	ir.OpSendGetBlocks, ir.OpSendGetHeaders,
	ir.OpBuildPayToPubKey, ir.OpBuildPayToPubKeyHash, ir.OpBuildPayToWitnessPubKeyHash,
}

func alternatives(cur ir.OperationKind) []ir.OperationKind {
	curSig := signature(ir.Operation{Kind: cur})
	var out []ir.OperationKind
	for _, k := range candidateKinds {
		if k == cur || !eligibleKind(k) {
			continue
		}
		if signature(ir.Operation{Kind: k}) == curSig {
			out = append(out, k)
		}
	}
	return out
}

func (OperationMutator) mutateRange(p *ir.Program, lo int, rng *rand.Rand) error {
	if lo >= len(p.Instructions) {
		return noMutations("no instructions in range")
	}
	order := rng.Perm(len(p.Instructions) - lo)
	for _, off := range order {
		idx := lo + off
		instr := p.Instructions[idx]
		if !eligibleKind(instr.Operation.Kind) {
			continue
		}
		alts := alternatives(instr.Operation.Kind)
		if len(alts) == 0 {
			continue
		}
		newKind := alts[rng.Intn(len(alts))]

		candidate := p.Clone()
		candidate.Instructions[idx].Operation.Kind = newKind
		return commitIfValid(p, candidate)
	}
	return noMutations("no instruction has a same-signature alternative operation")
}

func (m OperationMutator) Mutate(p *ir.Program, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	return m.mutateRange(p, 0, rng)
}

func (m OperationMutator) MutateFrom(p *ir.Program, minIndex int, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	return m.mutateRange(p, minIndex, rng)
}
