package wire

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	btcwire "github.com/btcsuite/btcd/wire"
)

func TestEncodeDecodeSendCmpctPayloadRoundTrip(t *testing.T) {
	p := SendCmpctPayload{Announce: 1, ShortIDWTXID: 1, ProtocolVersion: 70016}
	raw, err := EncodeSendCmpctPayload(p)
	if err != nil {
		t.Fatalf("EncodeSendCmpctPayload: %v", err)
	}
	got, err := DecodeSendCmpctPayload(raw)
	if err != nil {
		t.Fatalf("DecodeSendCmpctPayload: %v", err)
	}
	if *got != p {
		t.Fatalf("expected %+v, got %+v", p, *got)
	}
}

func TestEncodeSendCmpctPayloadRejectsWrongShortIDVersion(t *testing.T) {
	_, err := EncodeSendCmpctPayload(SendCmpctPayload{ShortIDWTXID: 0})
	if err == nil {
		t.Fatal("expected an error for shortid_wtxid != 1")
	}
}

func TestEncodeCmpctBlockPayloadRejectsCountMismatch(t *testing.T) {
	p := CmpctBlockPayload{
		TxCount:  3,
		ShortIDs: [][CompactBlockShortIDBytes]byte{{}},
	}
	if _, err := EncodeCmpctBlockPayload(p); err == nil {
		t.Fatal("expected an error when shortid_count+prefilled_count != tx_count")
	}
}

func TestEncodeCmpctBlockPayloadRejectsNonIncreasingPrefilledIndices(t *testing.T) {
	p := CmpctBlockPayload{
		TxCount: 2,
		Prefilled: []PrefilledTx{
			{Index: 1, TxBytes: []byte{0x01}},
			{Index: 0, TxBytes: []byte{0x02}},
		},
	}
	if _, err := EncodeCmpctBlockPayload(p); err == nil {
		t.Fatal("expected an error for non-increasing prefilled indices")
	}
}

func TestEncodeCmpctBlockPayloadAcceptsWellFormed(t *testing.T) {
	p := CmpctBlockPayload{
		Header:  btcwire.BlockHeader{},
		Nonce:   42,
		TxCount: 2,
		ShortIDs: [][CompactBlockShortIDBytes]byte{
			{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
		},
		Prefilled: []PrefilledTx{
			{Index: 1, TxBytes: []byte{0xde, 0xad, 0xbe, 0xef}},
		},
	}
	raw, err := EncodeCmpctBlockPayload(p)
	if err != nil {
		t.Fatalf("EncodeCmpctBlockPayload: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("expected non-empty encoded bytes")
	}
}

// TestShortIDIsDeterministic checks that ShortID is a pure function of
// its inputs, as BIP152 short-ID derivation must be for both peers
// deriving the same announcement to agree.
func TestShortIDIsDeterministic(t *testing.T) {
	header := btcwire.BlockHeader{Nonce: 7}
	wtxid := chainhash.Hash{0x01, 0x02, 0x03}

	id1, err := ShortID(header, 1234, wtxid)
	if err != nil {
		t.Fatalf("ShortID: %v", err)
	}
	id2, err := ShortID(header, 1234, wtxid)
	if err != nil {
		t.Fatalf("ShortID: %v", err)
	}
	if id1 != id2 {
		t.Fatal("expected ShortID to be deterministic for identical inputs")
	}

	id3, err := ShortID(header, 5678, wtxid)
	if err != nil {
		t.Fatalf("ShortID: %v", err)
	}
	if id1 == id3 {
		t.Fatal("expected a different nonce to change the derived short ID")
	}
}

func TestEncodeGetBlockTxnPayloadRejectsEmpty(t *testing.T) {
	if _, err := EncodeGetBlockTxnPayload(GetBlockTxnPayload{}); err == nil {
		t.Fatal("expected an error for empty indices")
	}
}

func TestEncodeGetBlockTxnPayloadRejectsNonIncreasing(t *testing.T) {
	p := GetBlockTxnPayload{Indices: []uint64{2, 1}}
	if _, err := EncodeGetBlockTxnPayload(p); err == nil {
		t.Fatal("expected an error for non-increasing indices")
	}
}

func TestEncodeBlockTxnPayloadConcatenatesTxBytes(t *testing.T) {
	p := BlockTxnPayload{
		BlockHash: chainhash.Hash{0xaa},
		Txs:       [][]byte{{0x01, 0x02}, {0x03}},
	}
	raw, err := EncodeBlockTxnPayload(p)
	if err != nil {
		t.Fatalf("EncodeBlockTxnPayload: %v", err)
	}
	if !bytes.Contains(raw, []byte{0x01, 0x02}) || !bytes.Contains(raw, []byte{0x03}) {
		t.Fatal("expected encoded bytes to contain both transactions")
	}
}

func TestEncodeCompactSizeBoundaries(t *testing.T) {
	cases := []struct {
		n        uint64
		wantLen  int
		wantLead byte
	}{
		{0, 1, 0},
		{0xfc, 1, 0xfc},
		{0xfd, 3, 0xfd},
		{0xffff, 3, 0xfd},
		{0x10000, 5, 0xfe},
		{0x100000000, 9, 0xff},
	}
	for _, c := range cases {
		got := encodeCompactSize(c.n)
		if len(got) != c.wantLen {
			t.Fatalf("encodeCompactSize(%d): expected length %d, got %d", c.n, c.wantLen, len(got))
		}
		if got[0] != c.wantLead {
			t.Fatalf("encodeCompactSize(%d): expected leading byte %#x, got %#x", c.n, c.wantLead, got[0])
		}
	}
}
