package generators

import (
	"math/rand"

	"fuzzamoto.dev/fuzzamoto/ir"
)

// CoinbaseTxGenerator builds a coinbase transaction: a height-tagged
// input script (the BIP-34 height push plus a random extra-nonce) and
// one or two payout outputs, closing the scope into a CoinbaseTx ready
// for BuildBlockGenerator to add to a block's transaction list.
type CoinbaseTxGenerator struct{}

func (CoinbaseTxGenerator) Generate(b *ir.Builder, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	heightVar, ok := b.GetRandomVariable(rng, ir.VarBlockHeight)
	if !ok {
		outs, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadBlockHeight, Uint64: uint64(rng.Intn(1000))}})
		if err != nil {
			return err
		}
		heightVar = outs[0]
	}

	extraNonce := make([]byte, 4)
	if _, err := rng.Read(extraNonce); err != nil {
		return err
	}
	nonceOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadBytes, Bytes: extraNonce}})
	if err != nil {
		return err
	}

	inputOuts, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{heightVar, nonceOuts[0]},
		Operation: ir.Operation{Kind: ir.OpBuildCoinbaseTxInput},
	})
	if err != nil {
		return err
	}

	versionOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadTxVersion, Int64: 2}})
	if err != nil {
		return err
	}
	lockTimeOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadLockTime, Uint64: 0}})
	if err != nil {
		return err
	}

	if _, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{versionOuts[0], lockTimeOuts[0], inputOuts[0]},
		Operation: ir.Operation{Kind: ir.OpBeginBuildCoinbaseTx},
	}); err != nil {
		return err
	}

	if _, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpBeginBuildCoinbaseTxOutputs}}); err != nil {
		return err
	}

	numOutputs := 1 + rng.Intn(2)
	for i := 0; i < numOutputs; i++ {
		amountOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadAmount, Int64: 5_000_000_000 / int64(numOutputs)}})
		if err != nil {
			return err
		}
		scriptVar, err := buildRandomScript(b, rng)
		if err != nil {
			return err
		}
		outputsVar := mustVar(b, rng, ir.VarMutTxOutputs)
		if _, err := b.Append(ir.Instruction{
			Inputs:    []ir.VarRef{outputsVar, amountOuts[0], scriptVar},
			Operation: ir.Operation{Kind: ir.OpAddCoinbaseTxOutput},
		}); err != nil {
			return err
		}
	}

	outputsOuts, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{mustVar(b, rng, ir.VarMutTxOutputs)},
		Operation: ir.Operation{Kind: ir.OpEndBuildCoinbaseTxOutputs},
	})
	if err != nil {
		return err
	}

	_, err = b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{outputsOuts[0]},
		Operation: ir.Operation{Kind: ir.OpEndBuildCoinbaseTx},
	})
	return err
}
