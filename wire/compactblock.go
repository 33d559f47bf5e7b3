package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	btcwire "github.com/btcsuite/btcd/wire"
)

// CompactBlockShortIDBytes is the length of a BIP152 short transaction ID.
const CompactBlockShortIDBytes = 6

// SendCmpctPayload mirrors the real sendcmpct message.
type SendCmpctPayload struct {
	Announce        uint8
	ShortIDWTXID    uint8 // BIP152 Version 2, always 1 here
	ProtocolVersion uint32
}

func EncodeSendCmpctPayload(p SendCmpctPayload) ([]byte, error) {
	if p.ShortIDWTXID != 1 {
		return nil, fmt.Errorf("wire: sendcmpct: shortid_wtxid must be 1")
	}
	out := make([]byte, 0, 6)
	out = append(out, p.Announce, p.ShortIDWTXID)
	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], p.ProtocolVersion)
	return append(out, tmp4[:]...), nil
}

func DecodeSendCmpctPayload(b []byte) (*SendCmpctPayload, error) {
	if len(b) != 6 {
		return nil, fmt.Errorf("wire: sendcmpct: length mismatch")
	}
	return &SendCmpctPayload{
		Announce:        b[0],
		ShortIDWTXID:    b[1],
		ProtocolVersion: binary.LittleEndian.Uint32(b[2:6]),
	}, nil
}

// PrefilledTx is a transaction included in full within a compact block,
// indexed by its position in the block's transaction list.
type PrefilledTx struct {
	Index   uint64
	TxBytes []byte
}

// CmpctBlockPayload mirrors the real cmpctblock message: a header, the
// nonce used to derive short-ID SipHash keys, and the block's
// transactions as a mix of short IDs and full prefilled transactions.
type CmpctBlockPayload struct {
	Header    btcwire.BlockHeader
	Nonce     uint64
	TxCount   uint64
	ShortIDs  [][CompactBlockShortIDBytes]byte
	Prefilled []PrefilledTx
}

func encodeHeader(h btcwire.BlockHeader) ([]byte, error) {
	var buf bytes.Buffer
	if err := h.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func EncodeCmpctBlockPayload(p CmpctBlockPayload) ([]byte, error) {
	if p.TxCount == 0 {
		return nil, fmt.Errorf("wire: cmpctblock: tx_count must be >= 1")
	}
	if uint64(len(p.ShortIDs))+uint64(len(p.Prefilled)) != p.TxCount {
		return nil, fmt.Errorf("wire: cmpctblock: shortid_count+prefilled_count must equal tx_count")
	}

	hb, err := encodeHeader(p.Header)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(hb)+8+64)
	out = append(out, hb...)
	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], p.Nonce)
	out = append(out, tmp8[:]...)
	out = append(out, encodeCompactSize(p.TxCount)...)
	out = append(out, encodeCompactSize(uint64(len(p.ShortIDs)))...)
	for _, sid := range p.ShortIDs {
		out = append(out, sid[:]...)
	}

	out = append(out, encodeCompactSize(uint64(len(p.Prefilled)))...)
	var prevIdx uint64
	for i, pf := range p.Prefilled {
		if pf.Index >= p.TxCount {
			return nil, fmt.Errorf("wire: cmpctblock: prefilled index out of range")
		}
		if i == 0 {
			out = append(out, encodeCompactSize(pf.Index)...)
		} else {
			if pf.Index <= prevIdx {
				return nil, fmt.Errorf("wire: cmpctblock: prefilled indices not strictly increasing")
			}
			out = append(out, encodeCompactSize(pf.Index-prevIdx-1)...)
		}
		prevIdx = pf.Index
		out = append(out, pf.TxBytes...)
	}
	return out, nil
}

// ShortID derives the BIP152 short transaction ID for wtxid under the
// SipHash keys implied by header and nonce, using a double-SHA256 key
// schedule in place of the teacher's SHA3-256-keyed variant so that
// short IDs match what a real Bitcoin peer computes.
func ShortID(header btcwire.BlockHeader, nonce uint64, wtxid chainhash.Hash) ([CompactBlockShortIDBytes]byte, error) {
	hb, err := encodeHeader(header)
	if err != nil {
		return [CompactBlockShortIDBytes]byte{}, err
	}
	var nonce8 [8]byte
	binary.LittleEndian.PutUint64(nonce8[:], nonce)
	buf := make([]byte, 0, len(hb)+len(nonce8))
	buf = append(buf, hb...)
	buf = append(buf, nonce8[:]...)
	km := chainhash.DoubleHashB(buf)
	k0 := binary.LittleEndian.Uint64(km[0:8])
	k1 := binary.LittleEndian.Uint64(km[8:16])

	s64 := siphash24(k0, k1, wtxid[:])
	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], s64)
	var out [CompactBlockShortIDBytes]byte
	copy(out[:], tmp8[:CompactBlockShortIDBytes])
	return out, nil
}

func rotl64(x uint64, b uint) uint64 {
	return (x << b) | (x >> (64 - b))
}

func sipround(v0, v1, v2, v3 uint64) (uint64, uint64, uint64, uint64) {
	v0 += v1
	v1 = rotl64(v1, 13)
	v1 ^= v0
	v0 = rotl64(v0, 32)

	v2 += v3
	v3 = rotl64(v3, 16)
	v3 ^= v2

	v0 += v3
	v3 = rotl64(v3, 21)
	v3 ^= v0

	v2 += v1
	v1 = rotl64(v1, 17)
	v1 ^= v2
	v2 = rotl64(v2, 32)
	return v0, v1, v2, v3
}

// siphash24 implements SipHash-2-4, the algorithm BIP152 mandates for
// short-ID derivation.
func siphash24(k0, k1 uint64, msg []byte) uint64 {
	v0 := uint64(0x736f6d6570736575) ^ k0
	v1 := uint64(0x646f72616e646f6d) ^ k1
	v2 := uint64(0x6c7967656e657261) ^ k0
	v3 := uint64(0x7465646279746573) ^ k1

	off := 0
	for ; off+8 <= len(msg); off += 8 {
		m := binary.LittleEndian.Uint64(msg[off : off+8])
		v3 ^= m
		v0, v1, v2, v3 = sipround(v0, v1, v2, v3)
		v0, v1, v2, v3 = sipround(v0, v1, v2, v3)
		v0 ^= m
	}

	last := uint64(len(msg)) << 56
	rem := msg[off:]
	for i := 0; i < len(rem); i++ {
		last |= uint64(rem[i]) << (8 * i)
	}
	v3 ^= last
	v0, v1, v2, v3 = sipround(v0, v1, v2, v3)
	v0, v1, v2, v3 = sipround(v0, v1, v2, v3)
	v0 ^= last

	v2 ^= 0xff
	for i := 0; i < 4; i++ {
		v0, v1, v2, v3 = sipround(v0, v1, v2, v3)
	}
	return v0 ^ v1 ^ v2 ^ v3
}

// GetBlockTxnPayload mirrors getblocktxn: a request for specific
// transactions from a previously announced compact block, by index.
type GetBlockTxnPayload struct {
	BlockHash chainhash.Hash
	Indices   []uint64
}

func EncodeGetBlockTxnPayload(p GetBlockTxnPayload) ([]byte, error) {
	if len(p.Indices) == 0 {
		return nil, fmt.Errorf("wire: getblocktxn: empty indices")
	}
	out := make([]byte, 0, 32+9+len(p.Indices)*5)
	out = append(out, p.BlockHash[:]...)
	out = append(out, encodeCompactSize(uint64(len(p.Indices)))...)
	var prev uint64
	for i, idx := range p.Indices {
		if i == 0 {
			out = append(out, encodeCompactSize(idx)...)
		} else {
			if idx <= prev {
				return nil, fmt.Errorf("wire: getblocktxn: indices not strictly increasing")
			}
			out = append(out, encodeCompactSize(idx-prev-1)...)
		}
		prev = idx
	}
	return out, nil
}

// BlockTxnPayload mirrors blocktxn: the response to getblocktxn, the
// full bytes of the requested transactions in request order.
type BlockTxnPayload struct {
	BlockHash chainhash.Hash
	Txs       [][]byte
}

func EncodeBlockTxnPayload(p BlockTxnPayload) ([]byte, error) {
	out := make([]byte, 0, 32+9)
	out = append(out, p.BlockHash[:]...)
	out = append(out, encodeCompactSize(uint64(len(p.Txs)))...)
	for _, txb := range p.Txs {
		out = append(out, txb...)
	}
	return out, nil
}

// encodeCompactSize is Bitcoin's minimally-encoded variable-length
// integer, the same format the teacher's node/p2p/compactsize.go wraps
// around its consensus package's CompactSize type.
func encodeCompactSize(n uint64) []byte {
	switch {
	case n < 0xfd:
		return []byte{byte(n)}
	case n <= 0xffff:
		out := make([]byte, 3)
		out[0] = 0xfd
		binary.LittleEndian.PutUint16(out[1:], uint16(n))
		return out
	case n <= 0xffffffff:
		out := make([]byte, 5)
		out[0] = 0xfe
		binary.LittleEndian.PutUint32(out[1:], uint32(n))
		return out
	default:
		out := make([]byte, 9)
		out[0] = 0xff
		binary.LittleEndian.PutUint64(out[1:], n)
		return out
	}
}
