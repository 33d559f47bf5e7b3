package generators

import (
	"math/rand"

	"fuzzamoto.dev/fuzzamoto/ir"
)

// SendInventoryGenerator builds an inventory of one to eight
// transaction or block announcements and sends it as a getdata or inv
// message over a connection.
type SendInventoryGenerator struct{}

func (SendInventoryGenerator) Generate(b *ir.Builder, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	connVar, err := b.GetOrCreateRandomConnection(rng)
	if err != nil {
		return err
	}

	if _, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpBeginBuildInventory}}); err != nil {
		return err
	}

	n := 1 + rng.Intn(8)
	added := 0
	for i := 0; i < n; i++ {
		invVar := mustVar(b, rng, ir.VarMutInventory)
		switch rng.Intn(2) {
		case 0:
			txVar, ok := b.GetRandomVariable(rng, ir.VarConstTx)
			if !ok {
				continue
			}
			if _, err := b.Append(ir.Instruction{
				Inputs:    []ir.VarRef{invVar, txVar},
				Operation: ir.Operation{Kind: ir.OpAddTxidInv},
			}); err != nil {
				return err
			}
			added++
		default:
			headerVar, ok := b.GetRandomVariable(rng, ir.VarHeader)
			if !ok {
				continue
			}
			if _, err := b.Append(ir.Instruction{
				Inputs:    []ir.VarRef{invVar, headerVar},
				Operation: ir.Operation{Kind: ir.OpAddBlockInv},
			}); err != nil {
				return err
			}
			added++
		}
	}
	if added == 0 {
		return &ir.GeneratorError{Kind: ir.ErrMissingVariables, Msg: "no Tx or Header variable available for inventory"}
	}

	invOuts, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{mustVar(b, rng, ir.VarMutInventory)},
		Operation: ir.Operation{Kind: ir.OpEndBuildInventory},
	})
	if err != nil {
		return err
	}

	op := ir.OpSendGetData
	if rng.Float64() < 0.5 {
		op = ir.OpSendInv
	}
	_, err = b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{connVar, invOuts[0]},
		Operation: ir.Operation{Kind: op},
	})
	return err
}

// AdvanceTimeGenerator loads a duration and advances the target's mock
// time by it.
type AdvanceTimeGenerator struct{}

func (AdvanceTimeGenerator) Generate(b *ir.Builder, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	timeVar, ok := b.GetRandomVariable(rng, ir.VarTime)
	if !ok {
		outs, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadTime, Int64: 1_700_000_000}})
		if err != nil {
			return err
		}
		timeVar = outs[0]
	}
	durationOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadDuration, Int64: int64(1 + rng.Intn(600))}})
	if err != nil {
		return err
	}
	_, err = b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{timeVar, durationOuts[0]},
		Operation: ir.Operation{Kind: ir.OpAdvanceTime},
	})
	return err
}

// SendGetHeadersGenerator requests headers from a peer using a
// locator inventory built from in-scope headers.
type SendGetHeadersGenerator struct{}

func (SendGetHeadersGenerator) Generate(b *ir.Builder, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	connVar, err := b.GetOrCreateRandomConnection(rng)
	if err != nil {
		return err
	}
	headerVar, ok := b.GetRandomVariable(rng, ir.VarHeader)
	if !ok {
		outs, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadHeader}})
		if err != nil {
			return err
		}
		headerVar = outs[0]
	}

	if _, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpBeginBuildInventory}}); err != nil {
		return err
	}
	invVar := mustVar(b, rng, ir.VarMutInventory)
	if _, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{invVar, headerVar},
		Operation: ir.Operation{Kind: ir.OpAddBlockInv},
	}); err != nil {
		return err
	}
	invOuts, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{mustVar(b, rng, ir.VarMutInventory)},
		Operation: ir.Operation{Kind: ir.OpEndBuildInventory},
	})
	if err != nil {
		return err
	}

	op := ir.OpSendGetHeaders
	if rng.Float64() < 0.5 {
		op = ir.OpSendGetBlocks
	}
	_, err = b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{connVar, invOuts[0], headerVar},
		Operation: ir.Operation{Kind: op},
	})
	return err
}

// BuildBlockGenerator assembles a block containing zero to three
// previously built transactions and sends it to a peer.
type BuildBlockGenerator struct{}

func (BuildBlockGenerator) Generate(b *ir.Builder, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	headerOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadHeader}})
	if err != nil {
		return err
	}
	timeOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadTime, Int64: 1_700_000_000}})
	if err != nil {
		return err
	}
	versionOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadBlockVersion, Int64: 4}})
	if err != nil {
		return err
	}

	coinbaseVar, ok := b.GetRandomVariable(rng, ir.VarCoinbaseTx)
	if !ok {
		if err := (CoinbaseTxGenerator{}).Generate(b, rng, nil); err != nil {
			return err
		}
		coinbaseVar = mustVar(b, rng, ir.VarCoinbaseTx)
	}

	if _, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpBeginBlockTransactions}}); err != nil {
		return err
	}

	blockTxsVar := mustVar(b, rng, ir.VarMutBlockTransactions)
	if _, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{blockTxsVar, coinbaseVar},
		Operation: ir.Operation{Kind: ir.OpAddCoinbaseTx},
	}); err != nil {
		return err
	}

	numTxs := 0
	if txs := b.InScopeKinds(); containsKind(txs, ir.VarConstTx) {
		numTxs = rng.Intn(4)
	}
	for i := 0; i < numTxs; i++ {
		txVar, ok := b.GetRandomVariable(rng, ir.VarConstTx)
		if !ok {
			break
		}
		blockTxsVar := mustVar(b, rng, ir.VarMutBlockTransactions)
		if _, err := b.Append(ir.Instruction{
			Inputs:    []ir.VarRef{blockTxsVar, txVar},
			Operation: ir.Operation{Kind: ir.OpAddTx},
		}); err != nil {
			return err
		}
	}
	blockTxsOuts, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{mustVar(b, rng, ir.VarMutBlockTransactions)},
		Operation: ir.Operation{Kind: ir.OpEndBlockTransactions},
	})
	if err != nil {
		return err
	}

	buildOuts, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{headerOuts[0], timeOuts[0], versionOuts[0], blockTxsOuts[0]},
		Operation: ir.Operation{Kind: ir.OpBuildBlock},
	})
	if err != nil {
		return err
	}

	connVar, err := b.GetOrCreateRandomConnection(rng)
	if err != nil {
		return err
	}
	op := ir.OpSendBlock
	if rng.Float64() < 0.5 {
		op = ir.OpSendBlockNoWit
	}
	_, err = b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{connVar, buildOuts[1]},
		Operation: ir.Operation{Kind: op},
	})
	return err
}

func containsKind(kinds []ir.Variable, want ir.Variable) bool {
	for _, k := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// SendGetCFiltersGenerator requests compact filters for a height range
// anchored at an in-scope header.
type SendGetCFiltersGenerator struct{}

func (SendGetCFiltersGenerator) Generate(b *ir.Builder, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	connVar, err := b.GetOrCreateRandomConnection(rng)
	if err != nil {
		return err
	}
	headerVar, ok := b.GetRandomVariable(rng, ir.VarHeader)
	if !ok {
		outs, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadHeader}})
		if err != nil {
			return err
		}
		headerVar = outs[0]
	}
	filterTypeOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadCompactFilterType, Int64: 0}})
	if err != nil {
		return err
	}
	heightOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadBlockHeight, Uint64: uint64(rng.Intn(1000))}})
	if err != nil {
		return err
	}

	var op ir.OperationKind
	switch rng.Intn(3) {
	case 0:
		op = ir.OpSendGetCFilters
	case 1:
		op = ir.OpSendGetCFHeaders
	default:
		op = ir.OpSendGetCFCheckpt
	}
	_, err = b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{connVar, filterTypeOuts[0], heightOuts[0], headerVar},
		Operation: ir.Operation{Kind: op},
	})
	return err
}
