package compiler

import (
	"bytes"
	"testing"

	"fuzzamoto.dev/fuzzamoto/ir"
)

func buildSampleProgram(t *testing.T) ir.Program {
	t.Helper()
	b := ir.NewBuilder(ir.NewContext(2, nil))
	nodeOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadNode}})
	if err != nil {
		t.Fatalf("append LoadNode: %v", err)
	}
	typeOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadConnectionType, Str: "outbound"}})
	if err != nil {
		t.Fatalf("append LoadConnectionType: %v", err)
	}
	if _, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{nodeOuts[0], typeOuts[0]},
		Operation: ir.Operation{Kind: ir.OpAddConnection},
	}); err != nil {
		t.Fatalf("append AddConnection: %v", err)
	}
	return b.Program()
}

// TestCompileDecompileRoundTrip reproduces scenario S5: a validated
// program P serializes to P', P' validates, and re-serializing P'
// produces the exact same bytes.
func TestCompileDecompileRoundTrip(t *testing.T) {
	p := buildSampleProgram(t)
	c := New()

	raw, err := c.Compile(p)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	p2, network, err := Decompile(raw)
	if err != nil {
		t.Fatalf("Decompile: %v", err)
	}
	if err := ir.Validate(p2); err != nil {
		t.Fatalf("round-tripped program does not validate: %v", err)
	}
	if network != "regtest" {
		t.Fatalf("expected network \"regtest\" (NewContext defaults nil params to regtest), got %q", network)
	}
	if p2.Len() != p.Len() {
		t.Fatalf("expected %d instructions, got %d", p.Len(), p2.Len())
	}

	raw2, err := c.Compile(p2)
	if err != nil {
		t.Fatalf("re-Compile: %v", err)
	}
	if !bytes.Equal(raw, raw2) {
		t.Fatal("expected bytewise identical re-serialization")
	}
}

// TestCompileIsDeterministic checks property (ii) from spec §4.6:
// compiling the same program twice yields identical bytes.
func TestCompileIsDeterministic(t *testing.T) {
	p := buildSampleProgram(t)
	c := New()

	raw1, err := c.Compile(p)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	raw2, err := c.Compile(p)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !bytes.Equal(raw1, raw2) {
		t.Fatal("expected identical compiled output for the same program")
	}
}

// TestCompileRejectsInvalidProgram checks that Compile refuses to
// lower a program that fails validation.
func TestCompileRejectsInvalidProgram(t *testing.T) {
	p := ir.UnsafeNew(ir.NewContext(1, nil), []ir.Instruction{
		{Operation: ir.Operation{Kind: ir.OpBeginBuildTxInputs}},
	})
	c := New()
	if _, err := c.Compile(p); err == nil {
		t.Fatal("expected Compile to reject an unterminated-scope program")
	}
}

// TestCompileOversizedProgramYieldsEmptyBytes checks the spec §4.6/§5
// fail-safe: a program whose encoded size exceeds the configured cap
// compiles to an empty byte sequence rather than an error.
func TestCompileOversizedProgramYieldsEmptyBytes(t *testing.T) {
	p := buildSampleProgram(t)
	c := &Compiler{MaxCompiledSize: 1}

	raw, err := c.Compile(p)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("expected an empty byte sequence for an oversized program, got %d bytes", len(raw))
	}
}

// TestRawSizeMatchesCompiledSizeForWellFormedProgram checks that
// RawSize agrees with what Compile would have emitted below the cap,
// since both marshal the same wire form.
func TestRawSizeMatchesCompiledSizeForWellFormedProgram(t *testing.T) {
	p := buildSampleProgram(t)

	size, err := RawSize(p)
	if err != nil {
		t.Fatalf("RawSize: %v", err)
	}

	raw, err := New().Compile(p)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if size != len(raw) {
		t.Fatalf("expected RawSize %d to match compiled length %d", size, len(raw))
	}
}

// TestRawSizeDoesNotRequireValidation checks that RawSize can report a
// size for a program that would fail ir.Validate, unlike Compile —
// callers use it to bound candidate sizes before validation.
func TestRawSizeDoesNotRequireValidation(t *testing.T) {
	p := ir.UnsafeNew(ir.NewContext(1, nil), []ir.Instruction{
		{Operation: ir.Operation{Kind: ir.OpBeginBuildTxInputs}},
	})
	if _, err := RawSize(p); err != nil {
		t.Fatalf("RawSize should not require a valid program: %v", err)
	}
}
