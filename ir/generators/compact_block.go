package generators

import (
	"math/rand"

	"fuzzamoto.dev/fuzzamoto/ir"
)

// CompactBlockGenerator announces a previously-built Block over a
// compact-block message, optionally prefilling a random subset of its
// transactions. Ported from
// original_source/fuzzamoto-ir/src/generators/compact_block.rs,
// matching testable scenario S6.
type CompactBlockGenerator struct{}

func (CompactBlockGenerator) Generate(b *ir.Builder, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	blockVar, ok := b.GetRandomVariable(rng, ir.VarBlock)
	if !ok {
		return &ir.GeneratorError{Kind: ir.ErrMissingVariables, Msg: "no Block variable in scope"}
	}

	txListIdx, txIndices, ok := b.GetBlockVars(blockVar.Index)
	if !ok {
		return &ir.GeneratorError{Kind: ir.ErrMissingVariables, Msg: "block has no tracked transaction membership"}
	}

	connVar, err := b.GetOrCreateRandomConnection(rng)
	if err != nil {
		return err
	}

	nonceOuts, err := b.Append(ir.Instruction{
		Operation: ir.Operation{Kind: ir.OpLoadNonce, Uint64: rng.Uint64()},
	})
	if err != nil {
		return err
	}

	if _, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpBeginPrefillTransactions}}); err != nil {
		return err
	}

	numBlockTxs := len(txIndices)
	if numBlockTxs > 0 {
		numPrefill := rng.Intn(numBlockTxs + 1) // 0..=numBlockTxs

		shuffled := make([]int, numBlockTxs)
		copy(shuffled, txIndices)
		rng.Shuffle(numBlockTxs, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		// The MutPrefilledTransactions handle is implicit: AddPrefillTx
		// addresses it the same way AddTx addresses
		// MutBlockTransactions, via the variable the Begin op declared.
		// Builder.Append tracks this through InnerOutputTypes, so we
		// must re-fetch the live in-scope var here.
		prefillListVar, ok := b.GetRandomVariable(rng, ir.VarMutPrefilledTransactions)
		if !ok {
			return &ir.GeneratorError{Kind: ir.ErrMissingVariables, Msg: "prefill list variable not in scope"}
		}

		for i := 0; i < numPrefill; i++ {
			txIdx := shuffled[i]
			_, err := b.Append(ir.Instruction{
				Inputs: []ir.VarRef{
					prefillListVar,
					{Index: txListIdx, Kind: ir.VarConstBlockTransactions},
					{Index: txIdx, Kind: ir.VarConstTx},
				},
				Operation: ir.Operation{Kind: ir.OpAddPrefillTx},
			})
			if err != nil {
				return err
			}
		}
	}

	prefillOuts, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{mustVar(b, rng, ir.VarMutPrefilledTransactions)},
		Operation: ir.Operation{Kind: ir.OpEndPrefillTransactions},
	})
	if err != nil {
		return err
	}

	cmpctOuts, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{blockVar, nonceOuts[0], prefillOuts[0]},
		Operation: ir.Operation{Kind: ir.OpBuildCompactBlockWithPrefill},
	})
	if err != nil {
		return err
	}

	_, err = b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{connVar, cmpctOuts[0]},
		Operation: ir.Operation{Kind: ir.OpSendCompactBlock},
	})
	return err
}

// mustVar fetches the (necessarily present, just-opened) variable of
// kind from the builder; it only runs right after a Begin op that
// declares exactly one inner-output of that kind, so absence would
// indicate a builder bug rather than a generator input problem.
func mustVar(b *ir.Builder, rng *rand.Rand, kind ir.Variable) ir.VarRef {
	v, ok := b.GetRandomVariable(rng, kind)
	if !ok {
		panic("generators: expected in-scope variable of kind " + kind.String())
	}
	return v
}
