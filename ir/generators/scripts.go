package generators

import (
	"crypto/sha256"
	"math/rand"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"fuzzamoto.dev/fuzzamoto/ir"
)

// randomPrivateKey derives a deterministic secp256k1 key from rng and
// appends the LoadPrivateKey instruction that embeds its raw 32-byte
// encoding, mirroring the SigningUTXO.PrivKey derivation in
// other_examples' hdpay tx builder (*btcec.PrivateKey from raw bytes,
// PubKey() for the address-hashing step below).
func randomPrivateKey(b *ir.Builder, rng *rand.Rand) (ir.VarRef, *btcec.PrivateKey, error) {
	raw := make([]byte, 32)
	if _, err := rng.Read(raw); err != nil {
		return ir.VarRef{}, nil, err
	}
	key, _ := btcec.PrivKeyFromBytes(raw)
	outs, err := b.Append(ir.Instruction{
		Operation: ir.Operation{Kind: ir.OpLoadPrivateKey, Bytes: key.Serialize(), Uint64: rng.Uint64()},
	})
	if err != nil {
		return ir.VarRef{}, nil, err
	}
	return outs[0], key, nil
}

// netParams returns the builder's active network parameters,
// defaulting to regtest the same way ir.NewContext does.
func netParams(b *ir.Builder) *chaincfg.Params {
	if p := b.Context().ChainParams; p != nil {
		return p
	}
	return &chaincfg.RegressionNetParams
}

// buildRandomScript emits one of the seven script-construction Build-ops
// with its real, chain-correct scriptPubKey bytes computed up front via
// btcec/btcutil/txscript, then returns the resulting Scripts variable.
// Weighted toward the cheaper, more common P2PKH/P2WPKH forms the way
// a real wallet's output selection would be.
func buildRandomScript(b *ir.Builder, rng *rand.Rand) (ir.VarRef, error) {
	switch rng.Intn(8) {
	case 0, 1:
		return buildP2PKHScript(b, rng)
	case 2:
		return buildP2WPKHScript(b, rng)
	case 3:
		return buildP2PKScript(b, rng)
	case 4:
		return buildP2SHScript(b, rng)
	case 5:
		return buildP2WSHScript(b, rng)
	case 6:
		return buildAnchorScript(b)
	default:
		return buildOpReturnScript(b, rng)
	}
}

// buildP2PKHScript loads a fresh key and builds the standard
// pay-to-pubkey-hash scriptPubKey for it.
func buildP2PKHScript(b *ir.Builder, rng *rand.Rand) (ir.VarRef, error) {
	keyVar, key, err := randomPrivateKey(b, rng)
	if err != nil {
		return ir.VarRef{}, err
	}

	script, err := p2pkhScript(b, key)
	if err != nil {
		return ir.VarRef{}, err
	}

	outs, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{keyVar},
		Operation: ir.Operation{Kind: ir.OpBuildPayToPubKeyHash, Bytes: script},
	})
	if err != nil {
		return ir.VarRef{}, err
	}
	return outs[0], nil
}

// buildP2WPKHScript loads a fresh key and builds the native segwit
// v0 pay-to-witness-pubkey-hash scriptPubKey for it.
func buildP2WPKHScript(b *ir.Builder, rng *rand.Rand) (ir.VarRef, error) {
	keyVar, key, err := randomPrivateKey(b, rng)
	if err != nil {
		return ir.VarRef{}, err
	}

	net := netParams(b)
	pkHash := btcutil.Hash160(key.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(pkHash, net)
	if err != nil {
		return ir.VarRef{}, err
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return ir.VarRef{}, err
	}

	outs, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{keyVar},
		Operation: ir.Operation{Kind: ir.OpBuildPayToWitnessPubKeyHash, Bytes: script},
	})
	if err != nil {
		return ir.VarRef{}, err
	}
	return outs[0], nil
}

// buildP2PKScript loads a fresh key and builds the bare
// pay-to-pubkey scriptPubKey (<pubkey> OP_CHECKSIG) for it.
func buildP2PKScript(b *ir.Builder, rng *rand.Rand) (ir.VarRef, error) {
	keyVar, key, err := randomPrivateKey(b, rng)
	if err != nil {
		return ir.VarRef{}, err
	}

	net := netParams(b)
	addr, err := btcutil.NewAddressPubKey(key.PubKey().SerializeCompressed(), net)
	if err != nil {
		return ir.VarRef{}, err
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return ir.VarRef{}, err
	}

	outs, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{keyVar},
		Operation: ir.Operation{Kind: ir.OpBuildPayToPubKey, Bytes: script},
	})
	if err != nil {
		return ir.VarRef{}, err
	}
	return outs[0], nil
}

// buildP2SHScript builds a trivially-spendable (OP_TRUE) redeem
// script, hashes it into a pay-to-script-hash scriptPubKey, and closes
// an empty witness stack to satisfy BuildPayToScriptHash's
// (Bytes, ConstWitnessStack) signature.
func buildP2SHScript(b *ir.Builder, rng *rand.Rand) (ir.VarRef, error) {
	redeem, err := txscript.NewScriptBuilder().AddOp(txscript.OP_TRUE).Script()
	if err != nil {
		return ir.VarRef{}, err
	}
	redeemOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadBytes, Bytes: redeem}})
	if err != nil {
		return ir.VarRef{}, err
	}

	net := netParams(b)
	addr, err := btcutil.NewAddressScriptHash(redeem, net)
	if err != nil {
		return ir.VarRef{}, err
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return ir.VarRef{}, err
	}

	witnessVar, err := buildEmptyWitnessStack(b, rng)
	if err != nil {
		return ir.VarRef{}, err
	}

	outs, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{redeemOuts[0], witnessVar},
		Operation: ir.Operation{Kind: ir.OpBuildPayToScriptHash, Bytes: script},
	})
	if err != nil {
		return ir.VarRef{}, err
	}
	return outs[0], nil
}

// buildP2WSHScript hashes a trivially-spendable witness script into a
// native segwit v0 pay-to-witness-script-hash scriptPubKey.
func buildP2WSHScript(b *ir.Builder, rng *rand.Rand) (ir.VarRef, error) {
	witnessScript, err := txscript.NewScriptBuilder().AddOp(txscript.OP_TRUE).Script()
	if err != nil {
		return ir.VarRef{}, err
	}
	bytesOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadBytes, Bytes: witnessScript}})
	if err != nil {
		return ir.VarRef{}, err
	}

	net := netParams(b)
	hash := sha256.Sum256(witnessScript)
	addr, err := btcutil.NewAddressWitnessScriptHash(hash[:], net)
	if err != nil {
		return ir.VarRef{}, err
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return ir.VarRef{}, err
	}

	outs, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{bytesOuts[0]},
		Operation: ir.Operation{Kind: ir.OpBuildPayToWitnessScriptHash, Bytes: script},
	})
	if err != nil {
		return ir.VarRef{}, err
	}
	return outs[0], nil
}

// buildOpReturnScript embeds a small random data payload in a
// provably-unspendable OP_RETURN output.
func buildOpReturnScript(b *ir.Builder, rng *rand.Rand) (ir.VarRef, error) {
	data := make([]byte, 1+rng.Intn(40))
	if _, err := rng.Read(data); err != nil {
		return ir.VarRef{}, err
	}
	dataOuts, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpLoadBytes, Bytes: data}})
	if err != nil {
		return ir.VarRef{}, err
	}

	script, err := txscript.NullDataScript(data)
	if err != nil {
		return ir.VarRef{}, err
	}

	outs, err := b.Append(ir.Instruction{
		Inputs:    []ir.VarRef{dataOuts[0]},
		Operation: ir.Operation{Kind: ir.OpBuildOpReturnScripts, Bytes: script},
	})
	if err != nil {
		return ir.VarRef{}, err
	}
	return outs[0], nil
}

// buildAnchorScript emits the fixed BIP-443-style anchor output
// script (OP_TRUE OP_1 <2-byte push "4e73">), the form Bitcoin Core
// and other full nodes recognize for ephemeral anchor outputs; it
// takes no inputs.
func buildAnchorScript(b *ir.Builder) (ir.VarRef, error) {
	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_TRUE).
		AddOp(txscript.OP_1).
		AddData([]byte{0x4e, 0x73}).
		Script()
	if err != nil {
		return ir.VarRef{}, err
	}
	outs, err := b.Append(ir.Instruction{Operation: ir.Operation{Kind: ir.OpBuildPayToAnchor, Bytes: script}})
	if err != nil {
		return ir.VarRef{}, err
	}
	return outs[0], nil
}

func p2pkhScript(b *ir.Builder, key *btcec.PrivateKey) ([]byte, error) {
	net := netParams(b)
	pkHash := btcutil.Hash160(key.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressPubKeyHash(pkHash, net)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}
