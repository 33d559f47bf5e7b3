// Package ir implements the Bitcoin-domain fuzzing intermediate
// representation: a typed dataflow program of instructions that build
// transactions, blocks, compact-block announcements, inventories, and
// wire messages, plus the validator, builder, generators, mutators and
// compiler that operate on it.
package ir

// Variable is the closed enumeration of typed values an Instruction
// can produce or consume. Container variables come in matched Mut*/
// Const* pairs: the Mut* form is visible only between the Begin that
// declares it and the matching End; the End consumes the final Mut*
// and produces the corresponding Const*.
type Variable int

const (
	VarInvalid Variable = iota

	VarNode
	VarConnection
	VarConnectionType
	VarMsgType
	VarBytes
	VarDuration
	VarTime
	VarBlockHeight
	VarCompactFilterType
	VarAmount
	VarTxVersion
	VarBlockVersion
	VarLockTime
	VarSequence
	VarSize
	VarPrivateKey
	VarSigHashFlags
	VarTxo
	VarScripts
	VarHeader
	VarBlock
	VarCoinbaseInput
	VarCoinbaseTx
	VarNonce

	// Mut*/Const* container pairs.
	VarMutTx
	VarConstTx
	VarMutTxInputs
	VarConstTxInputs
	VarMutTxOutputs
	VarConstTxOutputs
	VarMutWitnessStack
	VarConstWitnessStack
	VarMutInventory
	VarConstInventory
	VarMutBlockTransactions
	VarConstBlockTransactions
	VarMutPrefilledTransactions
	VarConstPrefilledTransactions

	// Nop carries a placeholder variable of no fixed kind, used so a
	// deleted instruction's output slots can be preserved during
	// minimization without breaking downstream indices.
	VarNop

	variableCount
)

func (v Variable) String() string {
	switch v {
	case VarNode:
		return "Node"
	case VarConnection:
		return "Connection"
	case VarConnectionType:
		return "ConnectionType"
	case VarMsgType:
		return "MsgType"
	case VarBytes:
		return "Bytes"
	case VarDuration:
		return "Duration"
	case VarTime:
		return "Time"
	case VarBlockHeight:
		return "BlockHeight"
	case VarCompactFilterType:
		return "CompactFilterType"
	case VarAmount:
		return "Amount"
	case VarTxVersion:
		return "TxVersion"
	case VarBlockVersion:
		return "BlockVersion"
	case VarLockTime:
		return "LockTime"
	case VarSequence:
		return "Sequence"
	case VarSize:
		return "Size"
	case VarPrivateKey:
		return "PrivateKey"
	case VarSigHashFlags:
		return "SigHashFlags"
	case VarTxo:
		return "Txo"
	case VarScripts:
		return "Scripts"
	case VarHeader:
		return "Header"
	case VarBlock:
		return "Block"
	case VarCoinbaseInput:
		return "CoinbaseInput"
	case VarCoinbaseTx:
		return "CoinbaseTx"
	case VarNonce:
		return "Nonce"
	case VarMutTx:
		return "MutTx"
	case VarConstTx:
		return "ConstTx"
	case VarMutTxInputs:
		return "MutTxInputs"
	case VarConstTxInputs:
		return "ConstTxInputs"
	case VarMutTxOutputs:
		return "MutTxOutputs"
	case VarConstTxOutputs:
		return "ConstTxOutputs"
	case VarMutWitnessStack:
		return "MutWitnessStack"
	case VarConstWitnessStack:
		return "ConstWitnessStack"
	case VarMutInventory:
		return "MutInventory"
	case VarConstInventory:
		return "ConstInventory"
	case VarMutBlockTransactions:
		return "MutBlockTransactions"
	case VarConstBlockTransactions:
		return "ConstBlockTransactions"
	case VarMutPrefilledTransactions:
		return "MutPrefilledTransactions"
	case VarConstPrefilledTransactions:
		return "ConstPrefilledTransactions"
	case VarNop:
		return "Nop"
	default:
		return "Invalid"
	}
}

// VarRef is a reference to the positional output slot of an earlier
// instruction. A Program is a pure dataflow DAG expressed as a linear
// instruction list; inputs name VarRefs rather than holding pointers,
// which keeps the whole structure arena-owned and trivially
// serializable.
type VarRef struct {
	Index int
	Kind  Variable
}
