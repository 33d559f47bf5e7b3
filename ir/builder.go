package ir

import "math/rand"

// GeneratorErrorKind is the closed error set generators report.
type GeneratorErrorKind string

const (
	ErrMissingVariables GeneratorErrorKind = "missing_variables"
	ErrInvalidContext   GeneratorErrorKind = "invalid_context"
)

// GeneratorError is returned by a Generator or by Builder helpers used
// from within one.
type GeneratorError struct {
	Kind GeneratorErrorKind
	Msg  string
}

func (e *GeneratorError) Error() string { return string(e.Kind) + ": " + e.Msg }

func missingVariables(msg string) error { return &GeneratorError{Kind: ErrMissingVariables, Msg: msg} }
func invalidContext(msg string) error   { return &GeneratorError{Kind: ErrInvalidContext, Msg: msg} }

type blockVars struct {
	txListIdx int
	txIndices []int
}

// Builder is a stateful, append-only constructor used by generators
// and by the first-validation pass of mutators. It never exposes a
// partially-applied instruction: Append either fully commits the
// instruction and returns its outputs, or rejects it and leaves the
// builder exactly as it was.
type Builder struct {
	program Program
	state   *validationState

	// byKind indexes in-scope variable indices by kind, for
	// GetRandomVariable. Rebuilt lazily isn't worth it here: the
	// builder is the only writer, so it stays in sync on every
	// Append.
	byKind map[Variable][]int

	// blocks maps the variable index of a Block output to its
	// transaction membership, populated when BuildBlock runs.
	blocks map[int]blockVars

	// pendingBlockTxs accumulates the ConstTx indices added by AddTx to
	// an open BeginBlockTransactions scope, keyed by the list's variable
	// index, so BuildBlock can look them up through its
	// ConstBlockTransactions input once the list closes (see
	// trackBlockMembership).
	pendingBlockTxs map[int][]int
}

// NewBuilder returns a Builder over an empty program with context ctx.
// To resume mid-program for mutate_from/splice_from style edits, a
// caller appends the existing prefix to it instruction by instruction.
func NewBuilder(ctx Context) *Builder {
	b := &Builder{
		program:         NewProgram(ctx),
		state:           newValidationState(),
		byKind:          make(map[Variable][]int),
		blocks:          make(map[int]blockVars),
		pendingBlockTxs: make(map[int][]int),
	}
	return b
}

// Context returns the read-only context the builder was created with.
func (b *Builder) Context() *Context { return &b.program.Context }

// Program returns the program built so far. Callers must not mutate
// the returned value's Instructions slice in place.
func (b *Builder) Program() Program { return b.program }

// Len reports how many instructions have been appended.
func (b *Builder) Len() int { return len(b.program.Instructions) }

// Append validates instr against the current builder state; on
// success it commits the instruction and returns its output VarRefs
// (inner-outputs of a Begin are tracked internally and are not
// returned, matching the scope-visibility rules of §4.1/§4.2).
func (b *Builder) Append(instr Instruction) ([]VarRef, error) {
	idx := len(b.program.Instructions)
	if err := b.state.checkInputs(idx, instr); err != nil {
		return nil, err
	}

	preLen := len(b.state.visible)
	outs, err := b.state.apply(idx, instr)
	if err != nil {
		return nil, err
	}

	b.program.Instructions = append(b.program.Instructions, instr)

	for i := preLen; i < len(b.state.visible); i++ {
		kind := b.state.visible[i].kind
		b.byKind[kind] = append(b.byKind[kind], i)
	}

	b.trackBlockMembership(instr, outs)

	return outs, nil
}

// trackBlockMembership maintains the Block -> (tx list, tx indices)
// map GetBlockVars serves, following the instruction shapes
// AddTx/BeginBlockTransactions/EndBlockTransactions/BuildBlock are
// generated in (see CompactBlockGenerator in
// original_source/fuzzamoto-ir/src/generators/compact_block.rs).
func (b *Builder) trackBlockMembership(instr Instruction, outs []VarRef) {
	switch instr.Operation.Kind {
	case OpBeginBlockTransactions:
		// The inner-output MutBlockTransactions var was just pushed;
		// its index is the last entry of byKind[VarMutBlockTransactions].
		idxs := b.byKind[VarMutBlockTransactions]
		muIdx := idxs[len(idxs)-1]
		b.pendingBlockTxs[muIdx] = nil
	case OpAddTx:
		muIdx := instr.Inputs[0].Index
		txIdx := instr.Inputs[1].Index
		b.pendingBlockTxs[muIdx] = append(b.pendingBlockTxs[muIdx], txIdx)
	case OpEndBlockTransactions:
		muIdx := instr.Inputs[0].Index
		txs := b.pendingBlockTxs[muIdx]
		delete(b.pendingBlockTxs, muIdx)
		if len(outs) == 1 {
			// Stash under the ConstBlockTransactions index; BuildBlock
			// will move it under the Block index once it runs.
			b.blocks[outs[0].Index] = blockVars{txListIdx: outs[0].Index, txIndices: txs}
		}
	case OpBuildBlock:
		constTxListIdx := instr.Inputs[3].Index
		if bv, ok := b.blocks[constTxListIdx]; ok && len(outs) == 2 {
			b.blocks[outs[1].Index] = bv // outs[1] is the Block output
		}
	}
}

// GetRandomVariable returns a uniformly random in-scope VarRef of the
// given kind, or ok=false if none exist.
func (b *Builder) GetRandomVariable(rng *rand.Rand, kind Variable) (VarRef, bool) {
	idxs := b.byKind[kind]
	var live []int
	for _, idx := range idxs {
		if b.state.visible[idx].inScope {
			live = append(live, idx)
		}
	}
	if len(live) == 0 {
		return VarRef{}, false
	}
	idx := live[rng.Intn(len(live))]
	return VarRef{Index: idx, Kind: kind}, true
}

// GetOrCreateRandomConnection returns an existing in-scope Connection,
// or synthesizes a LoadNode+AddConnection pair if none exist and the
// context allows new nodes.
func (b *Builder) GetOrCreateRandomConnection(rng *rand.Rand) (VarRef, error) {
	if v, ok := b.GetRandomVariable(rng, VarConnection); ok {
		return v, nil
	}
	if b.program.Context.NumNodes == 0 {
		return VarRef{}, invalidContext("no nodes available to create a connection")
	}
	nodeOuts, err := b.Append(Instruction{
		Operation: Operation{Kind: OpLoadNode, Int64: int64(rng.Intn(b.program.Context.NumNodes))},
	})
	if err != nil {
		return VarRef{}, err
	}
	connType := "outbound"
	if rng.Float64() < 0.5 {
		connType = "inbound"
	}
	typeOuts, err := b.Append(Instruction{Operation: Operation{Kind: OpLoadConnectionType, Str: connType}})
	if err != nil {
		return VarRef{}, err
	}
	connOuts, err := b.Append(Instruction{
		Inputs:    []VarRef{nodeOuts[0], typeOuts[0]},
		Operation: Operation{Kind: OpAddConnection},
	})
	if err != nil {
		return VarRef{}, err
	}
	return connOuts[0], nil
}

// GetBlockVars returns the ConstBlockTransactions index and the
// ConstTx variable indices belonging to the Block at blockIdx, if that
// block was built via BuildBlock earlier in the program.
func (b *Builder) GetBlockVars(blockIdx int) (txListIdx int, txIndices []int, ok bool) {
	bv, ok := b.blocks[blockIdx]
	if !ok {
		return 0, nil, false
	}
	return bv.txListIdx, bv.txIndices, true
}

// InScopeKinds returns every Variable kind with at least one in-scope
// instance, for mutators choosing a random rebind target.
func (b *Builder) InScopeKinds() []Variable {
	var kinds []Variable
	for kind, idxs := range b.byKind {
		for _, idx := range idxs {
			if b.state.visible[idx].inScope {
				kinds = append(kinds, kind)
				break
			}
		}
	}
	return kinds
}

// ScopeDepth returns the current open-scope nesting depth.
func (b *Builder) ScopeDepth() int { return len(b.state.scopes) }
