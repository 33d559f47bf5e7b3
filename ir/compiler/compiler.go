// Package compiler lowers a validated ir.Program into the compact,
// deterministic byte form the in-VM executor consumes (spec §4.6), and
// reads it back for round-tripping through the on-disk corpus.
package compiler

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/fxamacker/cbor/v2"

	"fuzzamoto.dev/fuzzamoto/ir"
)

// DefaultMaxCompiledSize is the default cap on the pre-compiled
// (post-lowering) byte form, spec §4.6/§5.
const DefaultMaxCompiledSize = 8 * 1024 * 1024

// DefaultMaxRawIRSize is the default cap on the raw IR form used when
// the executor compiles in-VM instead of accepting pre-compiled bytes.
const DefaultMaxRawIRSize = 1 * 1024 * 1024

// wireVarRef, wireInstruction and wireProgram are the on-the-wire
// shapes fed to cbor. Kept distinct from the ir package's own types so
// that the encoding is free to evolve independently of the in-memory
// representation, per spec §4.6's "exact encoding unconstrained"
// note and §6's "format is not required to be stable across versions".
type wireVarRef struct {
	Index int
	Kind  int
}

type wireInstruction struct {
	Inputs          []wireVarRef
	Op              int
	Bytes           []byte `cbor:",omitempty"`
	Uint64          uint64 `cbor:",omitempty"`
	Int64           int64  `cbor:",omitempty"`
	Bool            bool   `cbor:",omitempty"`
	Str             string `cbor:",omitempty"`
	NumOutputs      int    `cbor:",omitempty"`
	NumInnerOutputs int    `cbor:",omitempty"`
}

type wirePreminedBlock struct {
	Height uint32
	Hash   [32]byte
	TxIDs  [][32]byte `cbor:",omitempty"`
}

type wireProgram struct {
	Network        string
	NumNodes       int
	PreminedBlocks []wirePreminedBlock `cbor:",omitempty"`
	Instructions   []wireInstruction
}

func toWire(p ir.Program) wireProgram {
	wp := wireProgram{NumNodes: p.Context.NumNodes}
	if p.Context.ChainParams != nil {
		wp.Network = p.Context.ChainParams.Name
	}
	for _, blk := range p.Context.PreminedBlocks {
		wb := wirePreminedBlock{Height: blk.Height, Hash: blk.Hash}
		for _, txid := range blk.TxIDs {
			wb.TxIDs = append(wb.TxIDs, [32]byte(txid))
		}
		wp.PreminedBlocks = append(wp.PreminedBlocks, wb)
	}
	for _, instr := range p.Instructions {
		wi := wireInstruction{
			Op:              int(instr.Operation.Kind),
			Bytes:           instr.Operation.Bytes,
			Uint64:          instr.Operation.Uint64,
			Int64:           instr.Operation.Int64,
			Bool:            instr.Operation.Bool,
			Str:             instr.Operation.Str,
			NumOutputs:      instr.Operation.NumOutputs,
			NumInnerOutputs: instr.Operation.NumInnerOutputs,
		}
		for _, in := range instr.Inputs {
			wi.Inputs = append(wi.Inputs, wireVarRef{Index: in.Index, Kind: int(in.Kind)})
		}
		wp.Instructions = append(wp.Instructions, wi)
	}
	return wp
}

func fromWire(wp wireProgram) ir.Program {
	ctx := ir.Context{NumNodes: wp.NumNodes}
	for _, params := range []*chaincfg.Params{
		&chaincfg.MainNetParams, &chaincfg.TestNet3Params,
		&chaincfg.RegressionNetParams, &chaincfg.SigNetParams,
	} {
		if params.Name == wp.Network {
			ctx.ChainParams = params
		}
	}
	for _, wb := range wp.PreminedBlocks {
		blk := ir.PreminedBlock{Height: wb.Height, Hash: wb.Hash}
		for _, txid := range wb.TxIDs {
			blk.TxIDs = append(blk.TxIDs, txid)
		}
		ctx.PreminedBlocks = append(ctx.PreminedBlocks, blk)
	}

	instrs := make([]ir.Instruction, len(wp.Instructions))
	for i, wi := range wp.Instructions {
		instr := ir.Instruction{
			Operation: ir.Operation{
				Kind:            ir.OperationKind(wi.Op),
				Bytes:           wi.Bytes,
				Uint64:          wi.Uint64,
				Int64:           wi.Int64,
				Bool:            wi.Bool,
				Str:             wi.Str,
				NumOutputs:      wi.NumOutputs,
				NumInnerOutputs: wi.NumInnerOutputs,
			},
		}
		for _, in := range wi.Inputs {
			instr.Inputs = append(instr.Inputs, ir.VarRef{Index: in.Index, Kind: ir.Variable(in.Kind)})
		}
		instrs[i] = instr
	}
	return ir.UnsafeNew(ctx, instrs)
}

// Compiler lowers validated programs to the compact wire form.
type Compiler struct {
	MaxCompiledSize int
}

// New returns a Compiler using DefaultMaxCompiledSize.
func New() *Compiler {
	return &Compiler{MaxCompiledSize: DefaultMaxCompiledSize}
}

// Compile lowers p to its compact byte form. Per spec §4.6/§5, a
// program whose encoded size exceeds the configured cap compiles to an
// empty byte sequence rather than an error — the executor treats that
// as a no-op fail-safe instead of ever being handed an oversized
// payload.
func (c *Compiler) Compile(p ir.Program) ([]byte, error) {
	if err := ir.Validate(p); err != nil {
		return nil, fmt.Errorf("compiler: refusing to compile invalid program: %w", err)
	}

	raw, err := cbor.Marshal(toWire(p))
	if err != nil {
		return nil, fmt.Errorf("compiler: marshal failed: %w", err)
	}

	limit := c.MaxCompiledSize
	if limit <= 0 {
		limit = DefaultMaxCompiledSize
	}
	if len(raw) > limit {
		return []byte{}, nil
	}
	return raw, nil
}

// RawSize returns the marshaled byte size of p without validating or
// applying the compiled-size fail-safe, for callers (e.g. mutators)
// that need to bound a candidate program's size against
// DefaultMaxRawIRSize before deciding whether to keep it.
func RawSize(p ir.Program) (int, error) {
	raw, err := cbor.Marshal(toWire(p))
	if err != nil {
		return 0, fmt.Errorf("compiler: marshal failed: %w", err)
	}
	return len(raw), nil
}

// Decompile reverses Compile, for tooling (corpus show/minimize) that
// needs to read a compiled program back. The returned Program's
// Context.ChainParams is restored from the recorded network name when
// it is mainnet, testnet3, regtest or signet, and is nil for any other
// name; the name itself is also returned.
func Decompile(data []byte) (p ir.Program, network string, err error) {
	var wp wireProgram
	if err := cbor.Unmarshal(data, &wp); err != nil {
		return ir.Program{}, "", fmt.Errorf("compiler: unmarshal failed: %w", err)
	}
	return fromWire(wp), wp.Network, nil
}
