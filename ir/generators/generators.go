// Package generators implements the small, single-purpose
// program-fragment producers described in spec §4.4: each appends a
// correct-by-construction subgraph to a Builder, or fails with
// MissingVariables or InvalidContext. A failing generator does not roll
// back: instructions it appended before the failing step stay in the
// Builder.
package generators

import (
	"math/rand"

	"fuzzamoto.dev/fuzzamoto/ir"
)

// Generator is a small, single-purpose program-fragment producer.
type Generator interface {
	Generate(b *ir.Builder, rng *rand.Rand, meta *ir.PerTestcaseMetadata) error
}

// All is the registry of every generator the mutator/insert machinery
// and the seed-program bootstrapper can draw from.
func All() []Generator {
	return []Generator{
		AddConnectionGenerator{},
		CompactBlockGenerator{},
		BuildTxGenerator{},
		SendInventoryGenerator{},
		AdvanceTimeGenerator{},
		SendGetHeadersGenerator{},
		BuildBlockGenerator{},
		SendGetCFiltersGenerator{},
		CoinbaseTxGenerator{},
	}
}
