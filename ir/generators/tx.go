package generators

import (
	"math/rand"

	"fuzzamoto.dev/fuzzamoto/ir"
)

// BuildTxGenerator constructs a complete transaction: version and
// lock time literals, one to four inputs spending either an in-scope
// Txo or a freshly loaded one, and one to four outputs with randomly
// chosen script kinds, then closes the scope into a ConstTx.
type BuildTxGenerator struct{}

func (BuildTxGenerator) Generate(b *ir.Builder, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	versionOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadTxVersion, Int64: 2}})
	if err != nil {
		return err
	}
	lockTimeOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadLockTime, Uint64: 0}})
	if err != nil {
		return err
	}

	if _, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpBeginBuildTxInputs}}); err != nil {
		return err
	}

	numInputs := 1 + rng.Intn(4)
	for i := 0; i < numInputs; i++ {
		txoVar, ok := b.GetRandomVariable(rng, ir.VarTxo)
		if !ok {
			outs, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadTxo}})
			if err != nil {
				return err
			}
			txoVar = outs[0]
		}

		seqOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadSequence, Uint64: 0xffffffff}})
		if err != nil {
			return err
		}

		witnessOuts, err := buildEmptyWitnessStack(b, rng)
		if err != nil {
			return err
		}

		inputsVar := mustVar(b, rng, ir.VarMutTxInputs)
		_, err = b.Append(ir.Instruction{
			Inputs:    []ir.VarRef{inputsVar, txoVar, seqOuts[0], witnessOuts},
			Operation: ir.Operation{Kind: ir.OpAddTxInput},
		})
		if err != nil {
			return err
		}
	}

	inputsOuts, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{mustVar(b, rng, ir.VarMutTxInputs)},
		Operation: ir.Operation{Kind: ir.OpEndBuildTxInputs},
	})
	if err != nil {
		return err
	}

	if _, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpBeginBuildTxOutputs}}); err != nil {
		return err
	}

	numOutputs := 1 + rng.Intn(4)
	for i := 0; i < numOutputs; i++ {
		amountOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadAmount, Int64: 1000 + rng.Int63n(1_000_000)}})
		if err != nil {
			return err
		}
		scriptVar, err := buildRandomScript(b, rng)
		if err != nil {
			return err
		}

		outputsVar := mustVar(b, rng, ir.VarMutTxOutputs)
		_, err = b.Append(ir.Instruction{
			Inputs:    []ir.VarRef{outputsVar, amountOuts[0], scriptVar},
			Operation: ir.Operation{Kind: ir.OpAddTxOutput},
		})
		if err != nil {
			return err
		}
	}

	outputsOuts, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{mustVar(b, rng, ir.VarMutTxOutputs)},
		Operation: ir.Operation{Kind: ir.OpEndBuildTxOutputs},
	})
	if err != nil {
		return err
	}

	if _, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpBeginBuildTx}, Inputs: []ir.VarRef{versionOuts[0], lockTimeOuts[0]}}); err != nil {
		return err
	}

	_, err = b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{inputsOuts[0], outputsOuts[0]},
		Operation: ir.Operation{Kind: ir.OpEndBuildTx},
	})
	return err
}

func buildEmptyWitnessStack(b *ir.Builder, rng *rand.Rand) (ir.VarRef, error) {
	if _, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpBeginWitnessStack}}); err != nil {
		return ir.VarRef{}, err
	}
	outs, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{mustVar(b, rng, ir.VarMutWitnessStack)},
		Operation: ir.Operation{Kind: ir.OpEndWitnessStack},
	})
	if err != nil {
		return ir.VarRef{}, err
	}
	return outs[0], nil
}
