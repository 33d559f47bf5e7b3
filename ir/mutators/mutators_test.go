package mutators

import (
	"math/rand"
	"testing"

	"fuzzamoto.dev/fuzzamoto/ir"
)

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// buildSkeletonProgram returns a scope-balanced program with two
// connections (giving InputMutator a same-kind alternative to rebind
// to) and an empty BuildTx scope, closed with a SendTx referencing the
// first connection:
//
//	[LoadNode, LoadConnectionType(outbound), AddConnection,
//	 LoadConnectionType(inbound), AddConnection,
//	 LoadTxVersion, LoadLockTime, BeginBuildTx,
//	 BeginBuildTxInputs, EndBuildTxInputs,
//	 BeginBuildTxOutputs, EndBuildTxOutputs, EndBuildTx, SendTx]
func buildSkeletonProgram(t *testing.T) ir.Program {
	t.Helper()
	b := ir.NewBuilder(ir.NewContext(1, nil))

	nodeOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadNode}})
	must(t, err)
	typeOut1, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadConnectionType, Str: "outbound"}})
	must(t, err)
	conn1, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{nodeOuts[0], typeOut1[0]},
		Operation: ir.Operation{Kind: ir.OpAddConnection},
	})
	must(t, err)
	typeOut2, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadConnectionType, Str: "inbound"}})
	must(t, err)
	_, err = b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{nodeOuts[0], typeOut2[0]},
		Operation: ir.Operation{Kind: ir.OpAddConnection},
	})
	must(t, err)

	verOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadTxVersion}})
	must(t, err)
	lockOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadLockTime}})
	must(t, err)

	_, err = b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{verOuts[0], lockOuts[0]},
		Operation: ir.Operation{Kind: ir.OpBeginBuildTx},
	})
	must(t, err)

	_, err = b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpBeginBuildTxInputs}})
	must(t, err)
	mutIn, ok := b.GetRandomVariable(rand.New(rand.NewSource(1)), ir.VarMutTxInputs)
	if !ok {
		t.Fatal("expected in-scope MutTxInputs after BeginBuildTxInputs")
	}
	constIn, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{mutIn},
		Operation: ir.Operation{Kind: ir.OpEndBuildTxInputs},
	})
	must(t, err)

	_, err = b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpBeginBuildTxOutputs}})
	must(t, err)
	mutOut, ok := b.GetRandomVariable(rand.New(rand.NewSource(1)), ir.VarMutTxOutputs)
	if !ok {
		t.Fatal("expected in-scope MutTxOutputs after BeginBuildTxOutputs")
	}
	constOut, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{mutOut},
		Operation: ir.Operation{Kind: ir.OpEndBuildTxOutputs},
	})
	must(t, err)

	constTx, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{constIn[0], constOut[0]},
		Operation: ir.Operation{Kind: ir.OpEndBuildTx},
	})
	must(t, err)

	_, err = b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{conn1[0], constTx[0]},
		Operation: ir.Operation{Kind: ir.OpSendTx},
	})
	must(t, err)

	p := b.Program()
	if err := ir.Validate(p); err != nil {
		t.Fatalf("skeleton program does not validate: %v", err)
	}
	return p
}

// fixtureFragment appends a second, independent connection setup to a
// builder: LoadNode, LoadConnectionType, AddConnection. Used as an
// InsertDeleteMutator fragment in tests.
type fixtureFragment struct{}

func (fixtureFragment) Generate(b *ir.Builder, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	nodeOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadNode}})
	if err != nil {
		return err
	}
	typeOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadConnectionType, Str: "outbound"}})
	if err != nil {
		return err
	}
	_, err = b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{nodeOuts[0], typeOuts[0]},
		Operation: ir.Operation{Kind: ir.OpAddConnection},
	})
	return err
}

// assertMutatorClosure covers property 4: for every validated program,
// a Mutator either reports an error and leaves the program unchanged,
// or the mutated program also validates.
func assertMutatorClosure(t *testing.T, name string, m Mutator, p ir.Program, rng *rand.Rand) {
	t.Helper()
	before := p.Clone()
	err := m.Mutate(&p, rng, &ir.PerTestcaseMetadata{})
	if err != nil {
		if len(p.Instructions) != len(before.Instructions) {
			t.Fatalf("%s: program length changed despite returning an error", name)
		}
		for i := range p.Instructions {
			if p.Instructions[i].Operation.Kind != before.Instructions[i].Operation.Kind {
				t.Fatalf("%s: instruction %d operation changed despite returning an error", name, i)
			}
		}
		return
	}
	if verr := ir.Validate(p); verr != nil {
		t.Fatalf("%s: mutation reported success but produced an invalid program: %v", name, verr)
	}
}

func TestMutatorClosure(t *testing.T) {
	donor := buildSkeletonProgram(t)

	mutators := map[string]Mutator{
		"OperationMutator":    OperationMutator{},
		"InputMutator":        InputMutator{},
		"InsertDeleteMutator": InsertDeleteMutator{Fragments: []Fragment{fixtureFragment{}}},
		"Concatenator":        Concatenator{Pool: []ir.Program{donor}},
		"SpliceMutator":       SpliceMutator{Pool: []ir.Program{donor}},
	}

	for name, m := range mutators {
		for seed := int64(1); seed <= 20; seed++ {
			p := buildSkeletonProgram(t)
			assertMutatorClosure(t, name, m, p, rand.New(rand.NewSource(seed)))
		}
	}
}

// TestInsertDeleteMutatorInsertShiftsTailReferences is a regression
// test for a fixed bug where a tail instruction referencing a variable
// allocated by another tail instruction was not reindexed after an
// insertion at a non-terminal position, producing a program Validate
// correctly rejected. With the mutator forced to insert (at a random
// depth-zero position, most of which lie before the BuildTx scope, whose
// EndBuildTx references EndBuildTxInputs/EndBuildTxOutputs's own
// outputs downstream of the insertion point), the result must still
// validate every time.
func TestInsertDeleteMutatorInsertShiftsTailReferences(t *testing.T) {
	m := InsertDeleteMutator{Fragments: []Fragment{fixtureFragment{}}}

	for seed := int64(1); seed <= 50; seed++ {
		p := buildSkeletonProgram(t)
		rng := rand.New(rand.NewSource(seed))
		// Force the insert branch rather than delete.
		if rng.Float64() >= 0.5 {
			continue
		}
		before := p.Clone()
		err := m.Mutate(&p, rand.New(rand.NewSource(seed)), &ir.PerTestcaseMetadata{})
		if err != nil {
			continue
		}
		if len(p.Instructions) <= len(before.Instructions) {
			continue
		}
		if verr := ir.Validate(p); verr != nil {
			t.Fatalf("seed %d: insertion produced an invalid program: %v", seed, verr)
		}
	}
}

// TestInsertDeleteMutatorDeleteRejectsDanglingRealTypedReference checks
// that deleting an instruction whose output is still referenced
// downstream by a real-typed consumer is rejected as
// created_invalid_program rather than silently accepted because the
// replacement Nop's VarNop output type-checks against anything. The
// program here has exactly two candidates in the deletable range: the
// LoadNode (referenced by AddConnection below it) and AddConnection
// itself (referenced by nothing); whichever permutation tries LoadNode
// first must fail, and the program must be left untouched when it does.
func TestInsertDeleteMutatorDeleteRejectsDanglingRealTypedReference(t *testing.T) {
	m := InsertDeleteMutator{}

	buildProgram := func(t *testing.T) ir.Program {
		t.Helper()
		b := ir.NewBuilder(ir.NewContext(1, nil))
		typeOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadConnectionType, Str: "outbound"}})
		must(t, err)
		nodeOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadNode}})
		must(t, err)
		_, err = b.Append(ir.Instruction{
			Inputs:    []ir.VarRef{nodeOuts[0], typeOuts[0]},
			Operation: ir.Operation{Kind: ir.OpAddConnection},
		})
		must(t, err)
		return b.Program()
	}

	foundRejection := false
	for seed := int64(1); seed <= 50; seed++ {
		p := buildProgram(t)
		before := p.Clone()
		rng := rand.New(rand.NewSource(seed))

		// lo=1 restricts the candidate range to {LoadNode, AddConnection},
		// skipping the LoadConnectionType instruction entirely.
		err := m.delete(&p, 1, rng)
		if err == nil {
			continue
		}
		mErr, ok := err.(*Error)
		if !ok || mErr.Kind != ErrCreatedInvalidProgram {
			t.Fatalf("seed %d: expected ErrCreatedInvalidProgram, got %v", seed, err)
		}
		if len(p.Instructions) != len(before.Instructions) {
			t.Fatalf("seed %d: expected the program to be left unchanged after a rejected delete", seed)
		}
		for i := range p.Instructions {
			if p.Instructions[i].Operation.Kind != before.Instructions[i].Operation.Kind {
				t.Fatalf("seed %d: instruction %d changed despite the delete being rejected", seed, i)
			}
		}
		foundRejection = true
	}
	if !foundRejection {
		t.Fatal("expected at least one seed to try deleting LoadNode first and be rejected")
	}
}

// TestOperationMutatorSwapsOnlySameSignature checks that every swap
// OperationMutator performs lands on an operation with the exact same
// input/output/inner-output signature as the original.
func TestOperationMutatorSwapsOnlySameSignature(t *testing.T) {
	m := OperationMutator{}
	for seed := int64(1); seed <= 20; seed++ {
		p := buildSkeletonProgram(t)
		before := p.Clone()
		rng := rand.New(rand.NewSource(seed))
		if err := m.Mutate(&p, rng, nil); err != nil {
			continue
		}
		changed := 0
		for i := range p.Instructions {
			if p.Instructions[i].Operation.Kind != before.Instructions[i].Operation.Kind {
				changed++
				if signature(p.Instructions[i].Operation) != signature(before.Instructions[i].Operation) {
					t.Fatalf("seed %d: instruction %d swapped to a different signature", seed, i)
				}
			}
		}
		if changed > 1 {
			t.Fatalf("seed %d: expected at most one instruction to change, got %d", seed, changed)
		}
	}
}

// TestInputMutatorOnlyRebindsSameKind checks that every input rebind
// InputMutator performs preserves the input's declared kind.
func TestInputMutatorOnlyRebindsSameKind(t *testing.T) {
	m := InputMutator{}
	for seed := int64(1); seed <= 20; seed++ {
		p := buildSkeletonProgram(t)
		before := p.Clone()
		rng := rand.New(rand.NewSource(seed))
		if err := m.Mutate(&p, rng, nil); err != nil {
			continue
		}
		for i := range p.Instructions {
			for j := range p.Instructions[i].Inputs {
				if p.Instructions[i].Inputs[j].Kind != before.Instructions[i].Inputs[j].Kind {
					t.Fatalf("seed %d: instruction %d input %d changed kind", seed, i, j)
				}
			}
		}
	}
}

// TestConcatenatorOffsetsDonorIndices verifies the appended donor
// instructions reference only slots within the combined program after
// concatenation, i.e. VarSlotCount(*p) grows by exactly the donor's own
// slot count and the donor's internal references remain internally
// consistent after the offset.
func TestConcatenatorOffsetsDonorIndices(t *testing.T) {
	donor := buildSkeletonProgram(t)
	p := buildSkeletonProgram(t)
	before := ir.VarSlotCount(p)
	donorSlots := ir.VarSlotCount(donor)

	c := Concatenator{Pool: []ir.Program{donor}}
	rng := rand.New(rand.NewSource(7))
	must(t, c.Mutate(&p, rng, nil))

	if got, want := ir.VarSlotCount(p), before+donorSlots; got != want {
		t.Fatalf("expected combined slot count %d, got %d", want, got)
	}
	if err := ir.Validate(p); err != nil {
		t.Fatalf("concatenated program does not validate: %v", err)
	}
}

// TestConcatenatorRejectsGrowthPastMaxRawIRSize checks that a
// Concatenator configured with a MaxRawIRSize too small for even a
// single donor reports no_mutations_available and leaves the receiver
// untouched, rather than silently growing the program past the cap.
func TestConcatenatorRejectsGrowthPastMaxRawIRSize(t *testing.T) {
	donor := buildSkeletonProgram(t)
	p := buildSkeletonProgram(t)
	before := p.Clone()

	c := Concatenator{Pool: []ir.Program{donor}, MaxRawIRSize: 1}
	err := c.Mutate(&p, rand.New(rand.NewSource(3)), nil)
	if err == nil {
		t.Fatal("expected an error when the donor would exceed MaxRawIRSize")
	}
	mErr, ok := err.(*Error)
	if !ok || mErr.Kind != ErrNoMutationsAvailable {
		t.Fatalf("expected ErrNoMutationsAvailable, got %v", err)
	}
	if len(p.Instructions) != len(before.Instructions) {
		t.Fatal("expected the receiver to be left unchanged")
	}
}

// TestInsertDeleteMutatorRejectsGrowthPastMaxRawIRSize mirrors the
// Concatenator case for the insert path: with MaxRawIRSize set to 1,
// every insertion attempt must fall back to delete (or report
// no_mutations_available if nothing is deletable) rather than ever
// committing a candidate over the cap.
func TestInsertDeleteMutatorRejectsGrowthPastMaxRawIRSize(t *testing.T) {
	m := InsertDeleteMutator{Fragments: []Fragment{fixtureFragment{}}, MaxRawIRSize: 1}
	for seed := int64(1); seed <= 20; seed++ {
		p := buildSkeletonProgram(t)
		before := p.Clone()
		rng := rand.New(rand.NewSource(seed))
		if err := m.Mutate(&p, rng, &ir.PerTestcaseMetadata{}); err != nil {
			continue
		}
		// A successful mutation under a 1-byte cap can only be the
		// delete fallback, which never grows the program.
		if len(p.Instructions) > len(before.Instructions) {
			t.Fatalf("seed %d: expected no insertion to survive a 1-byte MaxRawIRSize cap", seed)
		}
	}
}

// TestMutateFromRespectsMinIndex checks that every mutator's
// MutateFrom variant never edits an instruction before minIndex, so
// snapshot-aware mutation can safely leave a frozen prefix untouched.
func TestMutateFromRespectsMinIndex(t *testing.T) {
	donor := buildSkeletonProgram(t)
	minIndex := 7 // inside the BuildTx scope setup, after the connections

	mutators := map[string]Mutator{
		"OperationMutator":    OperationMutator{},
		"InputMutator":        InputMutator{},
		"InsertDeleteMutator": InsertDeleteMutator{Fragments: []Fragment{fixtureFragment{}}},
		"SpliceMutator":       SpliceMutator{Pool: []ir.Program{donor}},
	}

	for name, m := range mutators {
		for seed := int64(1); seed <= 30; seed++ {
			p := buildSkeletonProgram(t)
			prefix := make([]ir.Instruction, minIndex)
			copy(prefix, p.Instructions[:minIndex])

			rng := rand.New(rand.NewSource(seed))
			if err := m.MutateFrom(&p, minIndex, rng, &ir.PerTestcaseMetadata{}); err != nil {
				continue
			}
			if len(p.Instructions) < minIndex {
				t.Fatalf("%s seed %d: program shrank below minIndex", name, seed)
			}
			for i := 0; i < minIndex; i++ {
				if p.Instructions[i].Operation.Kind != prefix[i].Operation.Kind {
					t.Fatalf("%s seed %d: instruction %d before minIndex was modified", name, seed, i)
				}
			}
		}
	}
}
