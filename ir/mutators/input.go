package mutators

import (
	"math/rand"

	"fuzzamoto.dev/fuzzamoto/ir"
)

// InputMutator rebinds a single input slot of a random instruction to
// a different in-scope variable of the same required kind.
type InputMutator struct{}

// inScopeByKindBefore replays validation up to (not including)
// instruction idx and returns the in-scope variable indices grouped
// by kind, for choosing a rebind target.
func inScopeByKindBefore(p ir.Program, idx int) map[ir.Variable][]int {
	// Re-derive scope using the same rules Validate applies, tracked
	// here independently so mutators do not need access to ir's
	// unexported validation state.
	type entry struct {
		kind    ir.Variable
		inScope bool
	}
	var visible []entry
	var scopeInner [][]int

	for i := 0; i < idx && i < len(p.Instructions); i++ {
		op := p.Instructions[i].Operation
		switch {
		case op.IsBlockBegin():
			var idxs []int
			for _, k := range op.InnerOutputTypes() {
				visible = append(visible, entry{kind: k, inScope: true})
				idxs = append(idxs, len(visible)-1)
			}
			scopeInner = append(scopeInner, idxs)
		case op.IsBlockEnd():
			if len(scopeInner) > 0 {
				top := scopeInner[len(scopeInner)-1]
				scopeInner = scopeInner[:len(scopeInner)-1]
				for _, vi := range top {
					visible[vi].inScope = false
				}
			}
			for _, k := range op.OutputTypes() {
				visible = append(visible, entry{kind: k, inScope: true})
			}
		default:
			for _, k := range op.OutputTypes() {
				visible = append(visible, entry{kind: k, inScope: true})
			}
		}
	}

	out := make(map[ir.Variable][]int)
	for i, e := range visible {
		if e.inScope {
			out[e.kind] = append(out[e.kind], i)
		}
	}
	return out
}

func (InputMutator) mutateRange(p *ir.Program, lo int, rng *rand.Rand) error {
	if lo >= len(p.Instructions) {
		return noMutations("no instructions in range")
	}
	order := rng.Perm(len(p.Instructions) - lo)
	for _, off := range order {
		idx := lo + off
		instr := p.Instructions[idx]
		if len(instr.Inputs) == 0 {
			continue
		}
		byKind := inScopeByKindBefore(*p, idx)

		slots := rng.Perm(len(instr.Inputs))
		for _, slot := range slots {
			kind := instr.Inputs[slot].Kind
			candidates := byKind[kind]
			if len(candidates) <= 1 {
				continue
			}
			cur := instr.Inputs[slot].Index
			var alt int
			found := false
			for tries := 0; tries < 8; tries++ {
				c := candidates[rng.Intn(len(candidates))]
				if c != cur {
					alt, found = c, true
					break
				}
			}
			if !found {
				continue
			}

			candidate := p.Clone()
			candidate.Instructions[idx].Inputs[slot] = ir.VarRef{Index: alt, Kind: kind}
			return commitIfValid(p, candidate)
		}
	}
	return noMutations("no rebindable input found")
}

func (m InputMutator) Mutate(p *ir.Program, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	return m.mutateRange(p, 0, rng)
}

func (m InputMutator) MutateFrom(p *ir.Program, minIndex int, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	return m.mutateRange(p, minIndex, rng)
}
