// Command fuzzamoto drives the coverage-guided Bitcoin P2P fuzzer: it
// bootstraps a data directory, generates and mutates IR programs
// through the incremental snapshot stage, and manages the on-disk
// corpus, mirroring the subcommand set of the original
// fuzzamoto-cli.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
