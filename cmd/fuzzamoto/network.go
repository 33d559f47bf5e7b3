package main

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// paramsForNetwork resolves a network name from config.json to the
// corresponding btcd chain parameters, the set fuzzamoto's Context
// carries so generated scripts/addresses are chain-correct.
func paramsForNetwork(name string) (*chaincfg.Params, error) {
	switch name {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest", "":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("network: unknown network %q", name)
	}
}
