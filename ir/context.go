package ir

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"
)

// PreminedBlock describes a block the target node is seeded with
// before the program runs, so generators can reference existing chain
// history (e.g. for SendGetHeaders locators) without having to build
// it from scratch.
type PreminedBlock struct {
	Height uint32
	Hash   chainhash.Hash
	TxIDs  []chainhash.Hash
}

// PerTestcaseMetadata is produced by the outer fuzzer when a program
// enters the corpus and flows back into generators and mutators. It
// never changes IR validity; generators are free to ignore it.
type PerTestcaseMetadata struct {
	ID         uuid.UUID
	Generation int
	// CoverageDigest summarizes the coverage map observed the last
	// time this program was executed. Generators receive it with the
	// rest of the metadata; none of them reads it.
	CoverageDigest [32]byte
}

// Context carries program-wide facts generators need that are not
// themselves dataflow: how many target nodes exist, any pre-mined
// chain history, the active network parameters, and optional
// per-testcase metadata from the outer fuzzer.
type Context struct {
	NumNodes       int
	PreminedBlocks []PreminedBlock
	ChainParams    *chaincfg.Params
	Metadata       *PerTestcaseMetadata
}

// NewContext returns a Context for numNodes target connections on the
// given network, with no pre-mined history and no metadata.
func NewContext(numNodes int, params *chaincfg.Params) Context {
	if params == nil {
		params = &chaincfg.RegressionNetParams
	}
	return Context{NumNodes: numNodes, ChainParams: params}
}
