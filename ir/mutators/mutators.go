// Package mutators implements the in-place program-editing operators
// described in spec §4.5: each perturbs a validated program and
// revalidates, discarding the edit and reporting CreatedInvalidProgram
// if the result does not validate.
package mutators

import (
	"math/rand"

	"fuzzamoto.dev/fuzzamoto/ir"
)

// ErrorKind is the closed error set every Mutator and Splicer reports.
type ErrorKind string

const (
	ErrNoMutationsAvailable ErrorKind = "no_mutations_available"
	ErrCreatedInvalidProgram ErrorKind = "created_invalid_program"
)

// Error is returned by a failed mutation or splice.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Msg }

func noMutations(msg string) error {
	return &Error{Kind: ErrNoMutationsAvailable, Msg: msg}
}

func invalidResult(cause error) error {
	return &Error{Kind: ErrCreatedInvalidProgram, Msg: cause.Error()}
}

// Mutator perturbs a program in place. mutate_from variants restrict
// edits to the suffix starting at minIndex, so snapshot-aware mutation
// never touches the frozen prefix.
type Mutator interface {
	Mutate(p *ir.Program, rng *rand.Rand, meta *ir.PerTestcaseMetadata) error
	MutateFrom(p *ir.Program, minIndex int, rng *rand.Rand, meta *ir.PerTestcaseMetadata) error
}

// Splicer additionally copies a scope-balanced instruction range from
// a donor program into the receiver.
type Splicer interface {
	Mutator
	Splice(dst *ir.Program, src ir.Program, rng *rand.Rand) error
	SpliceFrom(dst *ir.Program, src ir.Program, minIndex int, rng *rand.Rand) error
}

// commitIfValid checks candidate; on failure it reports
// CreatedInvalidProgram and leaves *p untouched.
func commitIfValid(p *ir.Program, candidate ir.Program) error {
	if err := ir.Validate(candidate); err != nil {
		return invalidResult(err)
	}
	*p = candidate
	return nil
}
