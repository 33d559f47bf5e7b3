package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"fuzzamoto.dev/fuzzamoto/assertions"
	"fuzzamoto.dev/fuzzamoto/corpus"
	"fuzzamoto.dev/fuzzamoto/executor"
	"fuzzamoto.dev/fuzzamoto/internal/config"
	"fuzzamoto.dev/fuzzamoto/ir"
	"fuzzamoto.dev/fuzzamoto/ir/compiler"
)

func newCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Inspect and manage the on-disk corpus store",
	}
	cmd.AddCommand(newCorpusListCmd())
	cmd.AddCommand(newCorpusShowCmd())
	cmd.AddCommand(newCorpusMinimizeCmd())
	return cmd
}

func openStore() (*corpus.Store, error) {
	return corpus.Open(filepath.Join(flagDataDir, "corpus"))
}

func newCorpusListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every hash currently in the corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			hashes, err := store.All()
			if err != nil {
				return err
			}
			for _, h := range hashes {
				entry, ok, err := store.Get(h)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				fmt.Printf("%s  %4d instrs  network=%s\n", h, entry.Program.Len(), entry.Network)
			}
			return nil
		},
	}
}

func newCorpusShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <hash>",
		Short: "Print every instruction in a stored program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseHash(args[0])
			if err != nil {
				return err
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entry, ok, err := store.Get(h)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("corpus show: %s: not found", args[0])
			}

			fmt.Printf("# %s  network=%s  num_nodes=%d  metadata_id=%s generation=%d\n",
				h, entry.Network, entry.Program.Context.NumNodes,
				entry.Metadata.ID, entry.Metadata.Generation)
			for i, instr := range entry.Program.Instructions {
				fmt.Printf("%4d: %s\n", i, instr.Operation.Kind)
			}
			return nil
		},
	}
}

func newCorpusMinimizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "minimize <hash>",
		Short: "Replace every instruction that can be Nop'd without losing interestingness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseHash(args[0])
			if err != nil {
				return err
			}

			cfg, err := configOrDefault()
			if err != nil {
				return err
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			store.MaxCompiledSizeBytes = cfg.MaxCompiledSizeBytes

			entry, ok, err := store.Get(h)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("corpus minimize: %s: not found", args[0])
			}

			exec := executor.NewProcessExecutor(cfg.TargetBinary, cfg.ListenAddr, cfg.NetworkMagic, cfg.TargetArgs...)
			minimized, removed, err := minimizeProgram(cmd.Context(), exec, entry.Program, cfg.MaxCompiledSizeBytes)
			if err != nil {
				return fmt.Errorf("corpus minimize: %w", err)
			}

			newHash, err := store.Put(minimized, entry.Metadata)
			if err != nil {
				return err
			}
			log.Info().Str("from", h.String()).Str("to", newHash.String()).Int("removed", removed).Msg("minimized")
			return nil
		},
	}
}

// minimizeProgram implements delta-debugging by Nop replacement (spec
// §4.5/§8.5): for each non-scope, non-Nop instruction in turn, try
// replacing it with a dimension-matched Nop and re-running against the
// target. The replacement is kept only if the program still validates
// and the target still reports the same set of Always violations —
// anything less means the instruction was load-bearing for the bug.
func minimizeProgram(ctx context.Context, exec executor.Executor, p ir.Program, maxCompiledSizeBytes int) (ir.Program, int, error) {
	baseline, err := runOnce(ctx, exec, p, maxCompiledSizeBytes)
	if err != nil {
		return p, 0, fmt.Errorf("baseline run: %w", err)
	}
	if len(baseline) == 0 {
		return p, 0, fmt.Errorf("baseline run produced no Always violations, nothing to preserve")
	}

	current := p.Clone()
	removed := 0
	for i, instr := range current.Instructions {
		op := instr.Operation
		if op.IsBlockBegin() || op.IsBlockEnd() || op.Kind == ir.OpNop || op.Kind == ir.OpIncrementalSnapshot {
			continue
		}

		candidate := current.Clone()
		candidate.Instructions[i] = ir.Instruction{
			Operation: ir.Nop(len(op.OutputTypes()), len(op.InnerOutputTypes())),
		}
		if err := ir.Validate(candidate); err != nil {
			continue
		}

		violations, err := runOnce(ctx, exec, candidate, maxCompiledSizeBytes)
		if err != nil {
			continue
		}
		if !sameViolations(baseline, violations) {
			continue
		}

		current = candidate
		removed++
	}
	return current, removed, nil
}

func runOnce(ctx context.Context, exec executor.Executor, p ir.Program, maxCompiledSizeBytes int) (map[string]assertions.Scope, error) {
	c := &compiler.Compiler{MaxCompiledSize: maxCompiledSizeBytes}
	compiled, err := c.Compile(p)
	if err != nil {
		return nil, err
	}
	stdout, err := exec.Run(ctx, compiled)
	if err != nil {
		return nil, err
	}
	parsed := assertions.ParseAssertionsFromStdout(stdout)
	out := make(map[string]assertions.Scope)
	for msg, scope := range parsed {
		if scope.Kind == assertions.ScopeAlways && scope.Fires() {
			out[msg] = scope
		}
	}
	return out, nil
}

func sameViolations(a, b map[string]assertions.Scope) bool {
	if len(a) != len(b) {
		return false
	}
	for msg := range a {
		if _, ok := b[msg]; !ok {
			return false
		}
	}
	return true
}

func configOrDefault() (config.Config, error) {
	return config.Load(flagDataDir)
}

func parseHash(s string) (corpus.Hash, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return corpus.Hash{}, fmt.Errorf("invalid hash %q: want 64 hex characters", s)
	}
	var h corpus.Hash
	copy(h[:], raw)
	return h, nil
}
