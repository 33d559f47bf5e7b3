// Package executor defines the boundary between the fuzzing core and
// the process that actually runs a compiled program against a target
// node, per spec.md §4.7/§6.
package executor

import "context"

// Executor runs a compiled program and reports the target's stdout,
// while exposing the two-flag VM-snapshot state machine the
// incremental snapshot stage drives.
type Executor interface {
	// Run executes compiled (the output of ir/compiler.Compile) against
	// the target and returns everything the target wrote to stdout.
	Run(ctx context.Context, compiled []byte) (stdout []byte, err error)

	// SetDeleteIncrementalSnapshot marks whether the next Run should
	// delete any auxiliary incremental snapshot currently held. It takes
	// effect only once ApplyOptions is called.
	SetDeleteIncrementalSnapshot(del bool)

	// ApplyOptions commits pending flag changes made via
	// SetDeleteIncrementalSnapshot to the executor's live state.
	ApplyOptions() error

	// AuxTmpSnapshotCreated reports whether the executor currently holds
	// an auxiliary incremental snapshot. The snapshot stage asserts this
	// is false at the start of every iteration.
	AuxTmpSnapshotCreated() bool
}

// MockExecutor is an in-memory Executor used by snapshot and ir tests.
// It reproduces the flag state machine exactly but never actually runs
// a target: RunFunc supplies scripted stdout, defaulting to an empty
// run. Run does not look for an IncrementalSnapshot marker in the
// compiled bytes; tests call TakeSnapshotNow to stand in for the target
// creating the auxiliary snapshot.
type MockExecutor struct {
	RunFunc func(ctx context.Context, compiled []byte) ([]byte, error)

	pendingDelete bool
	appliedDelete bool
	snapshotHeld  bool

	// Runs records every compiled program passed to Run, for assertions
	// in tests about how many times the inner stage actually executed.
	Runs [][]byte
}

// NewMockExecutor returns a MockExecutor with no auxiliary snapshot held.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

func (m *MockExecutor) SetDeleteIncrementalSnapshot(del bool) {
	m.pendingDelete = del
}

func (m *MockExecutor) ApplyOptions() error {
	m.appliedDelete = m.pendingDelete
	return nil
}

func (m *MockExecutor) AuxTmpSnapshotCreated() bool {
	return m.snapshotHeld
}

// DeleteApplied reports whether the most-recently-applied options call
// had the delete-incremental-snapshot flag set, for tests asserting on
// the snapshot stage's forced last-iteration behavior.
func (m *MockExecutor) DeleteApplied() bool {
	return m.appliedDelete
}

// Run applies any pending delete-snapshot flag, invokes RunFunc (if
// set) for scripted stdout, and records the call. Tests that need to
// exercise the snapshot-held state call TakeSnapshotNow after Run,
// standing in for the target's in-VM reaction to an IncrementalSnapshot
// marker without this mock needing to parse compiled bytes itself.
func (m *MockExecutor) Run(ctx context.Context, compiled []byte) ([]byte, error) {
	m.Runs = append(m.Runs, compiled)

	if m.appliedDelete {
		m.snapshotHeld = false
	}

	if m.RunFunc != nil {
		return m.RunFunc(ctx, compiled)
	}
	return nil, nil
}

// TakeSnapshotNow marks the mock as holding an auxiliary snapshot,
// unless a pending delete flag was applied for this run.
func (m *MockExecutor) TakeSnapshotNow() {
	if !m.appliedDelete {
		m.snapshotHeld = true
	}
}
