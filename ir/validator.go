package ir

import "fmt"

// ValidationErrorKind is the closed error set the validator and
// Builder.Append report, matching the teacher's typed-error-code
// pattern in consensus/errors.go (an ErrorCode constant plus a message,
// rather than an ad-hoc error string per call site).
type ValidationErrorKind string

const (
	ErrInvalidNumberOfInputs  ValidationErrorKind = "invalid_number_of_inputs"
	ErrInvalidVariableType    ValidationErrorKind = "invalid_variable_type"
	ErrUseOfOutOfScopeVar     ValidationErrorKind = "use_of_out_of_scope_variable"
	ErrUnmatchedBlockEnd      ValidationErrorKind = "unmatched_block_end"
	ErrUnterminatedBlock      ValidationErrorKind = "unterminated_block"
	ErrUnknownVariable        ValidationErrorKind = "unknown_variable"
)

// ValidationError reports why a program failed validation.
type ValidationError struct {
	Kind           ValidationErrorKind
	InstructionIdx int
	Is, Expected   int // for ErrInvalidNumberOfInputs
	IsKind, ExpKind Variable // for ErrInvalidVariableType
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrInvalidNumberOfInputs:
		return fmt.Sprintf("instruction %d: invalid number of inputs: is %d, expected %d", e.InstructionIdx, e.Is, e.Expected)
	case ErrInvalidVariableType:
		return fmt.Sprintf("instruction %d: invalid variable type: is %s, expected %s", e.InstructionIdx, e.IsKind, e.ExpKind)
	case ErrUseOfOutOfScopeVar:
		return fmt.Sprintf("instruction %d: use of out-of-scope variable", e.InstructionIdx)
	case ErrUnmatchedBlockEnd:
		return fmt.Sprintf("instruction %d: unmatched block end", e.InstructionIdx)
	case ErrUnterminatedBlock:
		return "unterminated block at end of program"
	case ErrUnknownVariable:
		return fmt.Sprintf("instruction %d: unknown variable", e.InstructionIdx)
	default:
		return fmt.Sprintf("instruction %d: validation error %q", e.InstructionIdx, e.Kind)
	}
}

type visibleVar struct {
	kind    Variable
	inScope bool
}

type scopeFrame struct {
	begin        OperationKind
	innerIndices []int
}

// validationState threads the same bookkeeping through both Validate
// and Builder.Append, so the two can never drift apart: the builder
// is simply a validator run one instruction at a time with an
// append-only output.
type validationState struct {
	visible []visibleVar
	scopes  []scopeFrame
}

func newValidationState() *validationState {
	return &validationState{}
}

// checkInputs verifies every input index is in range, in scope, and of
// the expected kind for instruction index idx (used only for error
// reporting).
func (st *validationState) checkInputs(idx int, instr Instruction) error {
	expected := instr.Operation.InputTypes()
	if len(instr.Inputs) != len(expected) {
		return &ValidationError{Kind: ErrInvalidNumberOfInputs, InstructionIdx: idx, Is: len(instr.Inputs), Expected: len(expected)}
	}
	for i, in := range instr.Inputs {
		if in.Index < 0 || in.Index >= len(st.visible) {
			return &ValidationError{Kind: ErrUnknownVariable, InstructionIdx: idx}
		}
		v := st.visible[in.Index]
		if !v.inScope {
			return &ValidationError{Kind: ErrUseOfOutOfScopeVar, InstructionIdx: idx}
		}
		if v.kind != expected[i] {
			return &ValidationError{Kind: ErrInvalidVariableType, InstructionIdx: idx, IsKind: v.kind, ExpKind: expected[i]}
		}
	}
	return nil
}

// apply commits instruction idx to the state, assuming checkInputs
// already succeeded, and returns the VarRefs for its regular outputs
// (inner-outputs, if any, are tracked on the scope stack and not
// returned here).
func (st *validationState) apply(idx int, instr Instruction) ([]VarRef, error) {
	op := instr.Operation

	switch {
	case op.IsBlockBegin():
		inner := op.InnerOutputTypes()
		frame := scopeFrame{begin: op.Kind}
		for _, kind := range inner {
			st.visible = append(st.visible, visibleVar{kind: kind, inScope: true})
			frame.innerIndices = append(frame.innerIndices, len(st.visible)-1)
		}
		st.scopes = append(st.scopes, frame)
		return nil, nil

	case op.IsBlockEnd():
		if len(st.scopes) == 0 {
			return nil, &ValidationError{Kind: ErrUnmatchedBlockEnd, InstructionIdx: idx}
		}
		top := st.scopes[len(st.scopes)-1]
		if !op.IsMatchingBlockEnd(top.begin) {
			return nil, &ValidationError{Kind: ErrUnmatchedBlockEnd, InstructionIdx: idx}
		}
		st.scopes = st.scopes[:len(st.scopes)-1]
		for _, vi := range top.innerIndices {
			st.visible[vi].inScope = false
		}
		return st.allocateOutputs(op), nil

	default:
		return st.allocateOutputs(op), nil
	}
}

func (st *validationState) allocateOutputs(op Operation) []VarRef {
	outs := op.OutputTypes()
	refs := make([]VarRef, len(outs))
	for i, kind := range outs {
		st.visible = append(st.visible, visibleVar{kind: kind, inScope: true})
		refs[i] = VarRef{Index: len(st.visible) - 1, Kind: kind}
	}
	return refs
}

// Validate walks a program's instructions in order, checking every
// input reference, verifying scope nesting, and reporting the first
// violation found. A program with an unterminated scope at the end is
// rejected even if every individual instruction was locally valid.
func Validate(p Program) error {
	st := newValidationState()
	for idx, instr := range p.Instructions {
		if err := st.checkInputs(idx, instr); err != nil {
			return err
		}
		if _, err := st.apply(idx, instr); err != nil {
			return err
		}
	}
	if len(st.scopes) != 0 {
		return &ValidationError{Kind: ErrUnterminatedBlock, InstructionIdx: len(p.Instructions)}
	}
	return nil
}

// VarSlotCount returns the total number of variable slots (regular and
// inner outputs) a fully validated program allocates. Used by the
// Concatenator mutator to offset a donor program's variable indices.
func VarSlotCount(p Program) int {
	st := newValidationState()
	for idx, instr := range p.Instructions {
		if _, err := st.apply(idx, instr); err != nil {
			// p is assumed pre-validated; a failure here means the
			// caller passed an invalid program.
			return len(st.visible)
		}
	}
	return len(st.visible)
}

// VarSlotCountUpTo returns the number of variable slots allocated by
// the first idx instructions of p (idx may equal len(p.Instructions)).
func VarSlotCountUpTo(p Program, idx int) int {
	st := newValidationState()
	for i := 0; i < idx && i < len(p.Instructions); i++ {
		if _, err := st.apply(i, p.Instructions[i]); err != nil {
			return len(st.visible)
		}
	}
	return len(st.visible)
}

// ScopeDepthAt returns the scope nesting depth immediately before
// instruction index i would execute (i may equal len(instructions) to
// ask about end-of-program depth). It assumes p already validates.
func ScopeDepthAt(p Program, i int) int {
	depth := 0
	for idx := 0; idx < i && idx < len(p.Instructions); idx++ {
		op := p.Instructions[idx].Operation
		if op.IsBlockBegin() {
			depth++
		} else if op.IsBlockEnd() {
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}
