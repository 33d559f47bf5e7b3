package ir

// String renders an OperationKind by its constant name, for
// diagnostics, corpus show output, and validator error messages.
func (k OperationKind) String() string {
	if int(k) < 0 || int(k) >= len(operationKindNames) {
		return "OpUnknown"
	}
	return operationKindNames[k]
}

var operationKindNames = [...]string{
	OpInvalid: "OpInvalid",
	OpNop: "OpNop",
	OpLoadBytes: "OpLoadBytes",
	OpLoadMsgType: "OpLoadMsgType",
	OpLoadNode: "OpLoadNode",
	OpLoadConnection: "OpLoadConnection",
	OpLoadConnectionType: "OpLoadConnectionType",
	OpLoadDuration: "OpLoadDuration",
	OpLoadTime: "OpLoadTime",
	OpLoadAmount: "OpLoadAmount",
	OpLoadSize: "OpLoadSize",
	OpLoadTxVersion: "OpLoadTxVersion",
	OpLoadBlockVersion: "OpLoadBlockVersion",
	OpLoadLockTime: "OpLoadLockTime",
	OpLoadSequence: "OpLoadSequence",
	OpLoadBlockHeight: "OpLoadBlockHeight",
	OpLoadCompactFilterType: "OpLoadCompactFilterType",
	OpLoadPrivateKey: "OpLoadPrivateKey",
	OpLoadSigHashFlags: "OpLoadSigHashFlags",
	OpLoadTxo: "OpLoadTxo",
	OpLoadHeader: "OpLoadHeader",
	OpLoadNonce: "OpLoadNonce",
	OpSendRawMessage: "OpSendRawMessage",
	OpAdvanceTime: "OpAdvanceTime",
	OpSetTime: "OpSetTime",
	OpBuildRawScripts: "OpBuildRawScripts",
	OpBuildPayToWitnessScriptHash: "OpBuildPayToWitnessScriptHash",
	OpBuildPayToPubKey: "OpBuildPayToPubKey",
	OpBuildPayToPubKeyHash: "OpBuildPayToPubKeyHash",
	OpBuildPayToWitnessPubKeyHash: "OpBuildPayToWitnessPubKeyHash",
	OpBuildPayToScriptHash: "OpBuildPayToScriptHash",
	OpBuildOpReturnScripts: "OpBuildOpReturnScripts",
	OpBuildPayToAnchor: "OpBuildPayToAnchor",
	OpAddWitness: "OpAddWitness",
	OpAddTxOutput: "OpAddTxOutput",
	OpAddTxInput: "OpAddTxInput",
	OpTakeTxo: "OpTakeTxo",
	OpBuildCoinbaseTxInput: "OpBuildCoinbaseTxInput",
	OpAddCoinbaseTxOutput: "OpAddCoinbaseTxOutput",
	OpBuildBlock: "OpBuildBlock",
	OpAddTx: "OpAddTx",
	OpAddCoinbaseTx: "OpAddCoinbaseTx",
	OpAddCompactBlockInv: "OpAddCompactBlockInv",
	OpAddTxidInv: "OpAddTxidInv",
	OpAddTxidWithWitnessInv: "OpAddTxidWithWitnessInv",
	OpAddWtxidInv: "OpAddWtxidInv",
	OpAddBlockInv: "OpAddBlockInv",
	OpAddBlockWithWitnessInv: "OpAddBlockWithWitnessInv",
	OpAddFilteredBlockInv: "OpAddFilteredBlockInv",
	OpAddConnection: "OpAddConnection",
	OpAddPrefillTx: "OpAddPrefillTx",
	OpBuildCompactBlockWithPrefill: "OpBuildCompactBlockWithPrefill",
	OpBuildBlockTxnRequest: "OpBuildBlockTxnRequest",
	OpBuildBlockTxnResponse: "OpBuildBlockTxnResponse",
	OpBeginWitnessStack: "OpBeginWitnessStack",
	OpEndWitnessStack: "OpEndWitnessStack",
	OpBeginBuildTx: "OpBeginBuildTx",
	OpEndBuildTx: "OpEndBuildTx",
	OpBeginBuildTxInputs: "OpBeginBuildTxInputs",
	OpEndBuildTxInputs: "OpEndBuildTxInputs",
	OpBeginBuildTxOutputs: "OpBeginBuildTxOutputs",
	OpEndBuildTxOutputs: "OpEndBuildTxOutputs",
	OpBeginBuildCoinbaseTx: "OpBeginBuildCoinbaseTx",
	OpEndBuildCoinbaseTx: "OpEndBuildCoinbaseTx",
	OpBeginBuildCoinbaseTxOutputs: "OpBeginBuildCoinbaseTxOutputs",
	OpEndBuildCoinbaseTxOutputs: "OpEndBuildCoinbaseTxOutputs",
	OpBeginBlockTransactions: "OpBeginBlockTransactions",
	OpEndBlockTransactions: "OpEndBlockTransactions",
	OpBeginBuildInventory: "OpBeginBuildInventory",
	OpEndBuildInventory: "OpEndBuildInventory",
	OpBeginPrefillTransactions: "OpBeginPrefillTransactions",
	OpEndPrefillTransactions: "OpEndPrefillTransactions",
	OpSendGetData: "OpSendGetData",
	OpSendInv: "OpSendInv",
	OpSendTx: "OpSendTx",
	OpSendTxNoWit: "OpSendTxNoWit",
	OpSendHeader: "OpSendHeader",
	OpSendBlock: "OpSendBlock",
	OpSendBlockNoWit: "OpSendBlockNoWit",
	OpSendGetCFilters: "OpSendGetCFilters",
	OpSendGetCFHeaders: "OpSendGetCFHeaders",
	OpSendGetCFCheckpt: "OpSendGetCFCheckpt",
	OpSendCompactBlock: "OpSendCompactBlock",
	OpSendGetBlockTxn: "OpSendGetBlockTxn",
	OpSendBlockTxn: "OpSendBlockTxn",
	OpSendGetBlocks: "OpSendGetBlocks",
	OpSendGetHeaders: "OpSendGetHeaders",
	OpIncrementalSnapshot: "OpIncrementalSnapshot",
}
