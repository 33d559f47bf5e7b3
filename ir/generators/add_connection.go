package generators

import (
	"math/rand"

	"fuzzamoto.dev/fuzzamoto/ir"
)

// AddConnectionGenerator appends a batch of LoadNode/LoadConnectionType/
// AddConnection triples. Ported from
// original_source/fuzzamoto-ir/src/generators/add_connection.rs: with
// probability 0.7 it adds 1..=10 connections, otherwise 10..=100;
// each connection is inbound or outbound with equal probability. Each
// LoadNode carries a real node index drawn from context.num_nodes, the
// way Operation::LoadNode(usize) does in the original, rather than
// leaving every connection addressed at node 0.
type AddConnectionGenerator struct{}

func (AddConnectionGenerator) Generate(b *ir.Builder, rng *rand.Rand, _ *ir.PerTestcaseMetadata) error {
	if _, ok := b.GetRandomVariable(rng, ir.VarNode); !ok && b.Context().NumNodes == 0 {
		return &ir.GeneratorError{Kind: ir.ErrInvalidContext, Msg: "no node available and context.num_nodes == 0"}
	}

	var numConnections int
	if rng.Float64() < 0.7 {
		numConnections = 1 + rng.Intn(10) // 1..=10
	} else {
		numConnections = 10 + rng.Intn(91) // 10..=100
	}

	for i := 0; i < numConnections; i++ {
		nodeIndex := int64(0)
		if n := b.Context().NumNodes; n > 0 {
			nodeIndex = int64(rng.Intn(n))
		}
		nodeOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadNode, Int64: nodeIndex}})
		if err != nil {
			return err
		}

		connType := "outbound"
		if rng.Float64() < 0.5 {
			connType = "inbound"
		}
		typeOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadConnectionType, Str: connType}})
		if err != nil {
			return err
		}

		_, err = b.Append(ir.Instruction{
			Inputs:    []ir.VarRef{nodeOuts[0], typeOuts[0]},
			Operation: ir.Operation{Kind: ir.OpAddConnection},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
