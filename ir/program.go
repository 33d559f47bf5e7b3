package ir

// Program is an ordered list of instructions plus the context they
// were generated against. A Program is immutable after validation
// except through mutators, which revalidate after every edit.
type Program struct {
	Context      Context
	Instructions []Instruction
}

// NewProgram returns an empty, trivially valid program over ctx.
func NewProgram(ctx Context) Program {
	return Program{Context: ctx}
}

// UnsafeNew builds a Program from raw instructions without validating
// it. Used by the snapshot stage to splice the synthetic
// IncrementalSnapshot marker in just before compilation, and by
// deserialization, where the bytes are assumed to already describe a
// previously validated program.
func UnsafeNew(ctx Context, instructions []Instruction) Program {
	return Program{Context: ctx, Instructions: instructions}
}

// Len returns the instruction count.
func (p Program) Len() int { return len(p.Instructions) }

// Clone returns a deep-enough copy that appending to the clone's
// instruction slice never aliases the original's backing array.
func (p Program) Clone() Program {
	instrs := make([]Instruction, len(p.Instructions))
	for i, instr := range p.Instructions {
		inputs := make([]VarRef, len(instr.Inputs))
		copy(inputs, instr.Inputs)
		instrs[i] = Instruction{Inputs: inputs, Operation: instr.Operation}
	}
	return Program{Context: p.Context, Instructions: instrs}
}
